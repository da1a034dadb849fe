package container

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/meshframe/actorcore/identifier"
	"github.com/meshframe/actorcore/model"
	"github.com/meshframe/actorcore/router"
)

func newTestModel(t *testing.T) *model.Model {
	t.Helper()
	r := router.New()
	if err := r.RegisterDefaultSignals(); err != nil {
		t.Fatalf("RegisterDefaultSignals: %v", err)
	}
	r.Build()
	return model.New(r, noopSink{})
}

type noopSink struct{}

func (noopSink) NotifyModelException(identifier.ID, error) {}

// Scenario E: a per-model container with MinimumLoopTime=10ms run for
// a bounded window should settle its ApproximateLoopTime in [8ms,15ms].
func TestPerModelApproximateLoopTimeSettlesNearMinimum(t *testing.T) {
	m := newTestModel(t)
	c := NewPerModelContainer(m)
	c.SetUpdateRate(100) // 1/100s = 10ms period
	c.StartHost()
	defer c.Kill()

	// Drive enough ticks for the rolling average to settle.
	for i := 0; i < 20; i++ {
		c.NotifyWork()
		time.Sleep(12 * time.Millisecond)
	}

	got := c.ApproximateLoopTime()
	if got < 8*time.Millisecond || got > 15*time.Millisecond {
		t.Fatalf("expected ApproximateLoopTime in [8ms,15ms], got %v", got)
	}
}

func TestPerModelStartHostIsIdempotent(t *testing.T) {
	m := newTestModel(t)
	c := NewPerModelContainer(m)
	c.StartHost()
	c.StartHost() // must not spawn a second worker or panic
	defer c.Kill()
	if !c.Alive() {
		t.Fatal("expected container to be alive after StartHost")
	}
}

func TestPerModelKillIsReentrySafeAndReportsNotAlive(t *testing.T) {
	m := newTestModel(t)
	c := NewPerModelContainer(m)
	c.StartHost()

	c.Kill()
	c.Kill() // re-entry safe: must not panic or double-run teardown

	deadline := time.Now().Add(time.Second)
	for c.Alive() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if c.Alive() {
		t.Fatal("expected the container to report !alive after Kill")
	}
}

func TestPoolContainerReentryCounterNeverExceedsOne(t *testing.T) {
	schema := NewPoolSchema(2, 1)
	defer schema.Close()

	const n = 4
	containers := make([]*PoolContainer, n)
	var maxObserved atomic.Int32
	for i := 0; i < n; i++ {
		m := newTestModel(t)
		c := NewPoolContainer(schema, m)
		containers[i] = c
		c.StartHost()
	}

	for _, c := range containers {
		c.NotifyWork()
		// Fire a burst of redundant notifications; only the first
		// should pass the 0->1 transition and enqueue.
		for i := 0; i < 5; i++ {
			c.NotifyWork()
			if v := c.reentry.Load(); v > maxObserved.Load() {
				maxObserved.Store(v)
			}
		}
	}

	if maxObserved.Load() > 1 {
		t.Fatalf("expected the re-entry counter to never exceed 1, observed %d", maxObserved.Load())
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		allTicked := true
		for _, c := range containers {
			if c.reentry.Load() != 0 {
				allTicked = false
				break
			}
		}
		if allTicked {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("expected every container's queued tick to drain within the bounded wait")
}

func TestPoolSchemaCurrentGoalClampsToTargetPools(t *testing.T) {
	schema := NewPoolSchema(2, 1)
	defer schema.Close()
	for i := 0; i < 10; i++ {
		schema.mu.Lock()
		schema.containerCnt++
		schema.mu.Unlock()
	}
	if got := schema.currentGoal(); got != 2 {
		t.Fatalf("expected currentGoal clamped to targetPools=2, got %d", got)
	}
}
