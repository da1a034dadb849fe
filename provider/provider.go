// Package provider implements the composition root: it owns the
// router, the registry, a parallelism schema, and the privileged Core
// model, and drives the start/shutdown lifecycle across all three.
package provider

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/meshframe/actorcore/container"
	"github.com/meshframe/actorcore/errcode"
	"github.com/meshframe/actorcore/identifier"
	"github.com/meshframe/actorcore/model"
	"github.com/meshframe/actorcore/providerconfig"
	"github.com/meshframe/actorcore/registry"
	"github.com/meshframe/actorcore/router"
)

// busyPollInterval is Shutdown's wait granularity while polling each
// container for !alive, per §4.6.
const busyPollInterval = time.Millisecond

// Provider is the composition root. Start seals the router and spins
// up Core; Shutdown tears every registered model down through normal
// signal plumbing; AwaitClose blocks until the live-thread counter
// drains.
type Provider struct {
	log      *zap.Logger
	Router   *router.Router
	Registry *registry.Registry

	running atomic.Bool
	threads atomic.Int64

	core        *model.Model
	coreContain container.Container

	cfg      providerconfig.Config
	pool     *container.PoolSchema
	poolOnce sync.Once

	mu            sync.Mutex
	containers    []container.Container
	postInitHooks []func()
	postShutHooks []func()
}

// New wires a provider around an already-populated router (encoders and
// decoders registered by the caller) and a logger; passing a nil logger
// falls back to zap.NewNop(). The provider starts with
// providerconfig.Default() in effect; call UseConfig before Start to
// override it. Whether the built-in exit/suspend signals get registered
// is Config.DefaultSignalsEnabled's call, made during Start — the
// caller should not register them itself.
func New(r *router.Router, log *zap.Logger) *Provider {
	if log == nil {
		log = zap.NewNop()
	}
	return &Provider{
		log:      log.Named("provider"),
		Router:   r,
		Registry: registry.New(r),
		cfg:      providerconfig.Default(),
	}
}

// UseConfig overrides the provider's tuning config. Call before Start;
// Start reads Schema/TargetPools/TargetDensity/DefaultUpdateRateHz only
// through DefaultContainer, and DefaultSignalsEnabled once, at startup.
func (p *Provider) UseConfig(cfg providerconfig.Config) {
	p.cfg = cfg
}

// DefaultContainer builds a Container for m using the provider's
// configured schema, sized from TargetPools/TargetDensity when the
// schema is "pool" (every model built through DefaultContainer shares
// one pool, sized once on first use), and rated from
// DefaultUpdateRateHz. Pass this to NewModel unless a model needs a
// schema override.
func (p *Provider) DefaultContainer(m *model.Model) container.Container {
	var c container.Container
	switch p.cfg.Schema {
	case providerconfig.SchemaPool:
		p.poolOnce.Do(func() {
			p.pool = container.NewPoolSchema(p.cfg.TargetPools, p.cfg.TargetDensity)
		})
		c = container.NewPoolContainer(p.pool, m)
	default:
		c = container.NewPerModelContainer(m)
	}
	if p.cfg.DefaultUpdateRateHz > 0 {
		c.SetUpdateRate(p.cfg.DefaultUpdateRateHz)
	}
	return c
}

// NewModel constructs a model wired to this provider's router and
// exception sink, under the given schema factory. Callers then attach
// their own handlers/observers and call StartHost through the
// returned container before the provider starts, or any time after.
func (p *Provider) NewModel(newContainer func(m *model.Model) container.Container) (*model.Model, container.Container) {
	m := model.New(p.Router, p)
	c := newContainer(m)
	p.wireExitNotifier(c, m.ID())
	p.Registry.Register(m)
	p.mu.Lock()
	p.containers = append(p.containers, c)
	p.mu.Unlock()
	return m, c
}

// wireExitNotifier attaches the registry-redelivery-and-deregistration
// hook to c's Kill, if c supports it (both concrete schemas do via
// container.base). A killed model redelivers `exit` to itself through
// the normal signal plumbing, then deregisters: a Closed model must not
// linger in the registry per §3/§4.3.
func (p *Provider) wireExitNotifier(c container.Container, id identifier.ID) {
	type notifier interface{ SetExitNotifier(func()) }
	if n, ok := c.(notifier); ok {
		n.SetExitNotifier(func() {
			_, _ = p.Registry.SendSignal(router.SignalExit, nil, id, id)
			p.Registry.Deregister(id)
		})
	}
}

// Start registers the built-in signals (if Config.DefaultSignalsEnabled)
// and Core's own shutdown signal, seals the router, marks the provider
// running, and constructs Core. Signal registration must happen before
// Build, so it runs first.
func (p *Provider) Start() {
	if p.cfg.DefaultSignalsEnabled {
		if err := p.Router.RegisterDefaultSignals(); err != nil {
			p.log.Error("failed registering default signals", zap.Error(err))
		}
	}
	p.core = model.New(p.Router, p)
	if err := p.registerCoreSignals(); err != nil {
		p.log.Error("failed registering core signals", zap.Error(err))
	}

	p.Router.Build()
	p.running.Store(true)

	coreContainer := container.NewPerModelContainer(p.core)
	p.wireExitNotifier(coreContainer, p.core.ID())
	p.coreContain = coreContainer
	p.Registry.Register(p.core)
	p.Registry.SetCore(p.core.ID())

	p.NotifyThreadStart()
	coreContainer.StartHost()

	p.mu.Lock()
	hooks := append([]func(){}, p.postInitHooks...)
	p.mu.Unlock()
	for _, h := range hooks {
		h()
	}
	p.log.Info("provider started", zap.String("core_id", p.core.ID().String()))
}

// registerCoreSignals installs Core's own core_shutdown handler: broadcast
// `exit` to every other registered model, ourselves excluded, then kill
// Core itself.
func (p *Provider) registerCoreSignals() error {
	_, err := router.RegisterSignal[any](p.Router, coreShutdownSignal, func(_ *router.Router, dest router.ModelRef, sig *router.Signal, _ any) error {
		p.broadcastExit(dest.ID())
		dest.Kill()
		sig.Handled = true
		return nil
	})
	return err
}

const coreShutdownSignal = "core_shutdown"

func (p *Provider) broadcastExit(coreID identifier.ID) {
	for _, m := range p.Registry.All() {
		if m.ID() == coreID {
			continue
		}
		_, _ = p.Registry.SendSignal(router.SignalExit, nil, m.ID(), coreID)
	}
}

// Shutdown sends the core-shutdown signal to Core, which fans `exit`
// out to every other model and then kills itself, and busy-polls every
// known container until each reports !alive.
func (p *Provider) Shutdown() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	if _, err := p.Registry.SendSignal(coreShutdownSignal, nil, p.core.ID(), p.core.ID()); err != nil {
		p.log.Error("shutdown signal rejected", zap.Error(err))
	}

	p.mu.Lock()
	containers := append([]container.Container{}, p.containers...)
	containers = append(containers, p.coreContain)
	p.mu.Unlock()

	for _, c := range containers {
		for c.Alive() {
			time.Sleep(busyPollInterval)
		}
	}
	if p.pool != nil {
		p.pool.Close()
	}
	p.NotifyThreadEnd()
}

// AwaitClose blocks until the live-thread counter drains or timeout
// elapses, whichever comes first. Once the counter has drained it fires
// the PostShutdown hooks; every such call fires them again.
func (p *Provider) AwaitClose(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for p.threads.Load() > 0 {
		if time.Now().After(deadline) {
			return errcode.New(errcode.Error, "AwaitClose", "timed out waiting for threads to drain")
		}
		time.Sleep(busyPollInterval)
	}
	p.mu.Lock()
	hooks := append([]func(){}, p.postShutHooks...)
	p.mu.Unlock()
	for _, h := range hooks {
		h()
	}
	return nil
}

// AwaitCloseContext is AwaitClose's context.Context-aware variant.
func (p *Provider) AwaitCloseContext(ctx context.Context) error {
	for p.threads.Load() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(busyPollInterval):
		}
	}
	p.mu.Lock()
	hooks := append([]func(){}, p.postShutHooks...)
	p.mu.Unlock()
	for _, h := range hooks {
		h()
	}
	return nil
}

// NotifyThreadStart/NotifyThreadEnd are the only callers that mutate
// the live-thread counter.
func (p *Provider) NotifyThreadStart() { p.threads.Add(1) }
func (p *Provider) NotifyThreadEnd()   { p.threads.Add(-1) }

// NotifyModelException implements model.ExceptionSink: a logging sink
// that never alters control flow.
func (p *Provider) NotifyModelException(modelID identifier.ID, err error) {
	p.log.Warn("model exception", zap.String("model", modelID.String()), zap.Error(err))
}

// NotifyHostException is the container-worker-level counterpart to
// NotifyModelException.
func (p *Provider) NotifyHostException(err error) {
	p.log.Error("host exception", zap.Error(err))
}

// OnPostInitialization registers a hook fired once, synchronously, at
// the end of Start.
func (p *Provider) OnPostInitialization(fn func()) {
	p.mu.Lock()
	p.postInitHooks = append(p.postInitHooks, fn)
	p.mu.Unlock()
}

// OnPostShutdown registers a hook fired once AwaitClose's drain
// completes.
func (p *Provider) OnPostShutdown(fn func()) {
	p.mu.Lock()
	p.postShutHooks = append(p.postShutHooks, fn)
	p.mu.Unlock()
}

// Running reports whether Start has run and Shutdown has not.
func (p *Provider) Running() bool { return p.running.Load() }

// Core returns the privileged bootstrap model Start constructs.
func (p *Provider) Core() *model.Model { return p.core }
