package container

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/meshframe/actorcore/model"
	"github.com/meshframe/actorcore/x/mathx"
)

// poolIdleTimeout is how long a pool worker blocks on an empty queue
// before looping back to re-check the live goal and ctx cancellation.
const poolIdleTimeout = 30 * time.Second

// PoolSchema is the supervised-pool schema of §4.5.2: a bounded set of
// worker goroutines pull containers needing a tick from one shared
// queue, rather than each container owning a dedicated worker.
type PoolSchema struct {
	targetPools   int
	targetDensity int

	queue chan *PoolContainer
	gate  *gate
	sf    singleflight.Group

	mu           sync.Mutex
	containerCnt int
	poolsRunning int

	ctx    context.Context
	cancel context.CancelFunc
	grp    *errgroup.Group
}

// NewPoolSchema builds a pool schema. targetPools <= 0 defaults to the
// host's CPU count; targetDensity <= 0 defaults to 1.
func NewPoolSchema(targetPools, targetDensity int) *PoolSchema {
	if targetPools <= 0 {
		targetPools = runtime.NumCPU()
	}
	if targetDensity <= 0 {
		targetDensity = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	grp, gctx := errgroup.WithContext(ctx)
	return &PoolSchema{
		targetPools:   targetPools,
		targetDensity: targetDensity,
		queue:         make(chan *PoolContainer, 4096),
		gate:          newGate(),
		ctx:           gctx,
		cancel:        cancel,
		grp:           grp,
	}
}

// Close stops the supervisor and every pool worker. Queued containers
// are dropped; callers that need a clean drain should Kill their
// containers first.
func (s *PoolSchema) Close() {
	s.cancel()
	s.gate.Set() // wake a supervisor parked in gate.Wait so it sees ctx done
}

// currentGoal recomputes min(targetPools, max(1, containerCount /
// targetDensity)) from the live container count, so pool workers can
// notice targetPools shrinking without relying on a goal frozen at
// spawn time.
func (s *PoolSchema) currentGoal() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := s.containerCnt / s.targetDensity
	return mathx.Clamp(want, 1, s.targetPools)
}

// Queue enqueues c for a pool worker to tick and wakes the supervisor,
// which spawns additional workers up to the current goal if needed.
func (s *PoolSchema) Queue(c *PoolContainer) {
	select {
	case s.queue <- c:
	case <-s.ctx.Done():
		return
	}
	s.gate.Set()
	s.ensureSupervisor()
}

// ensureSupervisor launches the supervisor loop on the first call;
// every later call, concurrent or not, shares the same in-flight
// invocation and returns immediately without blocking the caller.
func (s *PoolSchema) ensureSupervisor() {
	s.sf.DoChan("supervise", func() (any, error) {
		s.superviseLoop()
		return nil, nil
	})
}

func (s *PoolSchema) superviseLoop() {
	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}
		s.gate.Wait(0)
		s.gate.Reset()
		s.reconcile()
	}
}

func (s *PoolSchema) reconcile() {
	goal := s.currentGoal()
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.poolsRunning < goal {
		s.poolsRunning++
		id := s.poolsRunning
		s.grp.Go(func() error {
			s.poolWorker(id)
			return nil
		})
	}
}

// poolWorker repeatedly takes a container off the queue and ticks it.
// It exits once its own id exceeds the live goal — recomputed every
// iteration rather than the goal at spawn time, so a shrinking
// targetPools retires the right number of workers instead of leaking
// them.
func (s *PoolSchema) poolWorker(id int) {
	for {
		if id > s.currentGoal() {
			s.mu.Lock()
			s.poolsRunning--
			s.mu.Unlock()
			return
		}
		select {
		case <-s.ctx.Done():
			return
		case c := <-s.queue:
			s.runContainerTick(c)
		case <-time.After(poolIdleTimeout):
		}
	}
}

func (s *PoolSchema) runContainerTick(c *PoolContainer) {
	c.reentry.Add(-1) // atomic Add is itself the memory barrier the consumer side needs
	if !c.isRunning() || c.isPaused() {
		return
	}
	start := time.Now()
	c.m.Tick()
	elapsed := time.Since(start)
	c.TrackPerformance(elapsed)
	if p := c.minimumLoopPeriod(); p >= time.Millisecond {
		time.AfterFunc(p, func() { c.NotifyWork() })
	}
}

// PoolContainer is one model's lifecycle shell under the pool schema:
// it shares the schema's workers and tracks its own re-entry counter
// so NotifyWork enqueues at most once per outstanding tick.
type PoolContainer struct {
	*base
	schema  *PoolSchema
	reentry atomic.Int32
}

// NewPoolContainer builds a container for m under schema and attaches
// itself as m's lifecycle delegate.
func NewPoolContainer(schema *PoolSchema, m *model.Model) *PoolContainer {
	c := &PoolContainer{base: newBase(m), schema: schema}
	m.AttachContainer(c)
	schema.mu.Lock()
	schema.containerCnt++
	schema.mu.Unlock()
	return c
}

// StartHost marks the container running; the pool schema's workers,
// not a dedicated goroutine, drive its ticks. Idempotent.
func (c *PoolContainer) StartHost() {
	if !c.begin() {
		return
	}
	c.m.Start()
}

// NotifyWork enqueues c to the schema's shared queue, but only on a
// 0->1 re-entry transition; if the counter was already positive, the
// increment is rolled back so the container is never queued twice for
// the same outstanding tick.
func (c *PoolContainer) NotifyWork() {
	if c.reentry.Add(1) != 1 {
		c.reentry.Add(-1)
		return
	}
	c.schema.Queue(c)
}

// Kill is an irreversible, re-entry-safe stop; the pool schema simply
// stops granting the container further ticks.
func (c *PoolContainer) Kill() {
	if !c.teardown() {
		return
	}
	if c.onKillExit != nil {
		c.onKillExit()
	}
}
