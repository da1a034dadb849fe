package container

import (
	"time"

	"github.com/meshframe/actorcore/model"
)

// sweepInterval is the per-model schema's gate-wait timeout: the point
// at which an idle worker takes the inbox's lock and drops expired
// signals instead of waiting for the next NotifyWork.
const sweepInterval = 30 * time.Second

// PerModelContainer is the dedicated-worker schema of §4.5.1: each
// container owns exactly one long-running goroutine driving its
// model's loop.
type PerModelContainer struct {
	*base
	gate *gate
}

// NewPerModelContainer builds a container for m and attaches itself as
// m's lifecycle delegate.
func NewPerModelContainer(m *model.Model) *PerModelContainer {
	c := &PerModelContainer{base: newBase(m), gate: newGate()}
	m.AttachContainer(c)
	return c
}

// StartHost begins the dedicated worker goroutine. Idempotent.
func (c *PerModelContainer) StartHost() {
	if !c.begin() {
		return
	}
	c.m.Start()
	go c.run()
}

// NotifyWork wakes the worker promptly.
func (c *PerModelContainer) NotifyWork() { c.gate.Set() }

// Kill is an irreversible, re-entry-safe stop: it wakes a blocked
// worker so it observes the cleared running flag, then (if wired)
// redelivers `exit` through the registry.
func (c *PerModelContainer) Kill() {
	if !c.teardown() {
		return
	}
	c.gate.Set()
	if c.onKillExit != nil {
		c.onKillExit()
	}
}

func (c *PerModelContainer) run() {
	for c.isRunning() {
		start := time.Now()
		opened := c.gate.Wait(sweepInterval)
		if !c.isRunning() {
			return
		}
		if !opened {
			c.m.CompactExpired()
			continue
		}
		c.gate.Reset()
		if !c.isPaused() {
			c.m.Tick()
		}

		elapsed := time.Since(start)
		if wait := c.minimumLoopPeriod() - elapsed; wait > 0 {
			time.Sleep(wait)
		}
		c.TrackPerformance(time.Since(start))
	}
}
