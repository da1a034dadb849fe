package container

import (
	"sync"
	"time"

	"golang.org/x/exp/constraints"
)

func maxDuration[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// perfTracker maintains the rolling mean described in §4.5:
// avg <- (avg*estIters + elapsed) / (estIters + 1), estIters = interval / max(1, avg).
// The first sample seeds avg directly.
type perfTracker struct {
	mu                  sync.Mutex
	avg                 time.Duration
	performanceInterval time.Duration
}

func newPerfTracker(interval time.Duration) *perfTracker {
	if interval <= 0 {
		interval = time.Second
	}
	return &perfTracker{performanceInterval: interval}
}

func (p *perfTracker) track(elapsed time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.avg == 0 {
		p.avg = elapsed
		return
	}
	denom := maxDuration(p.avg, time.Nanosecond)
	estIters := int64(p.performanceInterval / denom)
	if estIters < 1 {
		estIters = 1
	}
	p.avg = time.Duration((int64(p.avg)*estIters + int64(elapsed)) / (estIters + 1))
}

func (p *perfTracker) approximateLoopTime() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.avg
}
