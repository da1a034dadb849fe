package provider

import (
	"testing"
	"time"

	"github.com/meshframe/actorcore/container"
	"github.com/meshframe/actorcore/model"
	"github.com/meshframe/actorcore/providerconfig"
	"github.com/meshframe/actorcore/router"
)

// Scenario F: start a provider with three models, Shutdown, then
// AwaitClose(5s) — all three containers report !alive, the live-thread
// counter reaches zero, and PostShutdown fires exactly once.
func TestProviderShutdownDrainsAllModelsAndFiresPostShutdownOnce(t *testing.T) {
	r := router.New()
	p := New(r, nil)
	p.Start()

	const n = 3
	containers := make([]container.Container, n)
	for i := 0; i < n; i++ {
		_, c := p.NewModel(func(m *model.Model) container.Container {
			return container.NewPerModelContainer(m)
		})
		c.StartHost()
		containers[i] = c
	}

	postShutdownCalls := 0
	p.OnPostShutdown(func() { postShutdownCalls++ })

	p.Shutdown()
	if err := p.AwaitClose(5 * time.Second); err != nil {
		t.Fatalf("AwaitClose: %v", err)
	}

	for i, c := range containers {
		if c.Alive() {
			t.Fatalf("expected container %d to report !alive after Shutdown", i)
		}
	}
	if p.coreContain.Alive() {
		t.Fatal("expected Core's container to report !alive after Shutdown")
	}
	if postShutdownCalls != 1 {
		t.Fatalf("expected PostShutdown to fire exactly once, got %d", postShutdownCalls)
	}
}

func TestProviderStartMarksRunningAndBuildsCore(t *testing.T) {
	r := router.New()
	p := New(r, nil)
	if p.Running() {
		t.Fatal("expected a fresh provider to report !Running")
	}
	p.Start()
	if !p.Running() {
		t.Fatal("expected Running() after Start")
	}
	defer func() {
		p.Shutdown()
		_ = p.AwaitClose(5 * time.Second)
	}()

	if p.Core() == nil {
		t.Fatal("expected Start to construct Core")
	}
}

// A provider configured for the pool schema builds every DefaultContainer
// model onto one shared PoolSchema, sized from TargetPools/TargetDensity.
func TestDefaultContainerHonorsPoolConfig(t *testing.T) {
	r := router.New()
	p := New(r, nil)
	p.UseConfig(providerconfig.Config{
		Schema:                providerconfig.SchemaPool,
		TargetPools:           2,
		TargetDensity:         1,
		DefaultSignalsEnabled: true,
	})
	p.Start()
	defer func() {
		p.Shutdown()
		_ = p.AwaitClose(5 * time.Second)
	}()

	_, c1 := p.NewModel(p.DefaultContainer)
	_, c2 := p.NewModel(p.DefaultContainer)
	if _, ok := c1.(*container.PoolContainer); !ok {
		t.Fatalf("expected a *container.PoolContainer, got %T", c1)
	}
	if p.pool == nil {
		t.Fatal("expected DefaultContainer to lazily build a shared pool")
	}
	c1.StartHost()
	c2.StartHost()
}
