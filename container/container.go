// Package container implements the lifecycle/scheduling shell around a
// model: the abstract Container surface of §4.5, and its two concrete
// parallelism schemas (dedicated-worker and supervised-pool).
package container

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/meshframe/actorcore/model"
	"github.com/meshframe/actorcore/x/timex"
)

// Container is the schema-facing surface every concrete container
// implements, and the interface model.Model's AttachContainer expects
// the narrower model.Container subset of.
type Container interface {
	StartHost()
	NotifyWork()
	Pause()
	Resume()
	Kill()
	SetUpdateRate(hz uint32)
	TrackPerformance(elapsed time.Duration)
	Alive() bool
	ApproximateLoopTime() time.Duration
}

// base holds the fields and behavior shared by both schemas: the model
// it drives, its rolling performance average, its minimum loop period,
// and the running/paused/alive flags. Concrete schemas embed base and
// add their own StartHost/NotifyWork/Kill.
type base struct {
	m    *model.Model
	perf *perfTracker

	minPeriod atomic.Int64 // time.Duration; read without the monitor

	monitor sync.Mutex
	running bool
	paused  bool
	alive   bool

	killOnce sync.Once
	// onKillExit is optional: the provider wires it to redeliver `exit`
	// through the registry so a directly-killed model still observes
	// closure via normal signal plumbing per §4.5.
	onKillExit func()
}

func newBase(m *model.Model) *base {
	return &base{m: m, perf: newPerfTracker(time.Second)}
}

// begin marks the container running+alive exactly once; later calls
// are no-ops, making StartHost idempotent.
func (b *base) begin() bool {
	b.monitor.Lock()
	defer b.monitor.Unlock()
	if b.running {
		return false
	}
	b.running = true
	b.alive = true
	return true
}

// teardown runs the shared Kill bookkeeping exactly once and reports
// whether this call was the one that ran it.
func (b *base) teardown() bool {
	ran := false
	b.killOnce.Do(func() {
		b.monitor.Lock()
		b.running = false
		b.alive = false
		b.monitor.Unlock()
		ran = true
	})
	return ran
}

func (b *base) isRunning() bool {
	b.monitor.Lock()
	defer b.monitor.Unlock()
	return b.running
}

func (b *base) isPaused() bool {
	b.monitor.Lock()
	defer b.monitor.Unlock()
	return b.paused
}

// Pause/Resume flip the container's own gate on whether it grants
// ticks; the model's own Paused state (which governs ReceiveMessage)
// is tracked independently by the model package.
func (b *base) Pause() {
	b.monitor.Lock()
	b.paused = true
	b.monitor.Unlock()
}

func (b *base) Resume() {
	b.monitor.Lock()
	b.paused = false
	b.monitor.Unlock()
}

func (b *base) Alive() bool {
	b.monitor.Lock()
	defer b.monitor.Unlock()
	return b.alive
}

// SetUpdateRate sets the minimum loop period from a requested rate in
// Hz; 0 means unthrottled (a zero minimum period).
func (b *base) SetUpdateRate(hz uint32) {
	if hz == 0 {
		b.minPeriod.Store(0)
		return
	}
	b.minPeriod.Store(int64(timex.PeriodFromHz(hz)))
}

func (b *base) minimumLoopPeriod() time.Duration {
	return time.Duration(b.minPeriod.Load())
}

func (b *base) TrackPerformance(elapsed time.Duration) { b.perf.track(elapsed) }

func (b *base) ApproximateLoopTime() time.Duration { return b.perf.approximateLoopTime() }

// SetExitNotifier wires fn to run once, inside Kill, after the shared
// teardown. The provider uses this to redeliver `exit` through the
// registry so a directly-killed model still observes closure via
// normal signal plumbing per §4.5.
func (b *base) SetExitNotifier(fn func()) { b.onKillExit = fn }
