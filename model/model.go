// Package model implements the addressable actor: an inbox, a set of
// lifecycle observers, and the processing loop a container drives one
// tick at a time.
package model

import (
	"sync"

	"github.com/meshframe/actorcore/errcode"
	"github.com/meshframe/actorcore/identifier"
	"github.com/meshframe/actorcore/router"
)

// State is one of the model's lifecycle states.
type State int32

const (
	Unstarted State = iota
	Running
	Paused
	Closing
	Closed
)

func (s State) String() string {
	switch s {
	case Unstarted:
		return "unstarted"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Container is the narrow view a model needs of its container: enough
// to react to pause/resume/kill requests and wake the loop on new
// work. The container package's schemas implement this.
type Container interface {
	Pause()
	Resume()
	Kill()
	NotifyWork()
}

// ExceptionSink receives errors the model's loop could not resolve
// itself: handler failures and "nothing claimed this signal" alike.
// The provider package implements this.
type ExceptionSink interface {
	NotifyModelException(modelID identifier.ID, err error)
}

// ReceiveObserver runs on the sender's thread, before a signal is
// queued. Returning true marks the signal handled and stops the
// inbox append.
type ReceiveObserver func(sig *router.Signal) bool

// ReadObserver runs on the model's own loop thread, before router
// dispatch. Returning true marks the signal handled and skips
// dispatch.
type ReadObserver func(sig *router.Signal) bool

// Model is an addressable actor: identity, an inbox, lifecycle
// observers, and a router for resolving handlers by signal name.
// Model implements router.ModelRef directly.
type Model struct {
	id     identifier.ID
	Router *router.Router
	sink   ExceptionSink

	containerMu sync.RWMutex
	container   Container

	mu    sync.Mutex
	inbox []*router.Signal

	stateMu sync.Mutex
	state   State

	observersMu     sync.RWMutex
	onReceiveSignal []ReceiveObserver
	onReadSignal    []ReadObserver
}

// New constructs an Unstarted model bound to r for dispatch and sink
// for unresolved errors. ReceiveMessage accepts signals from
// construction on, Unstarted included; the container bound with
// AttachContainer is woken for each queued signal.
func New(r *router.Router, sink ExceptionSink) *Model {
	return &Model{id: identifier.New(), Router: r, sink: sink, state: Unstarted}
}

// ID implements router.ModelRef.
func (m *Model) ID() identifier.ID { return m.id }

// AttachContainer binds the container that will drive this model's
// loop. Schemas call this before Start.
func (m *Model) AttachContainer(c Container) {
	m.containerMu.Lock()
	m.container = c
	m.containerMu.Unlock()
}

func (m *Model) boundContainer() Container {
	m.containerMu.RLock()
	defer m.containerMu.RUnlock()
	return m.container
}

// Start transitions the model from Unstarted to Running; the
// container calls this once its host loop has begun.
func (m *Model) Start() { m.setState(Running) }

// State reports the model's current lifecycle state.
func (m *Model) State() State {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	return m.state
}

func (m *Model) setState(s State) {
	m.stateMu.Lock()
	m.state = s
	m.stateMu.Unlock()
}

// Alive reports whether the model is anywhere short of Closed.
func (m *Model) Alive() bool { return m.State() != Closed }

// OnReceiveSignal registers an observer fired synchronously on the
// sender's thread, before the signal reaches the inbox.
func (m *Model) OnReceiveSignal(obs ReceiveObserver) {
	m.observersMu.Lock()
	m.onReceiveSignal = append(m.onReceiveSignal, obs)
	m.observersMu.Unlock()
}

// OnReadSignal registers an observer fired on the model's own loop
// thread, before router dispatch.
func (m *Model) OnReadSignal(obs ReadObserver) {
	m.observersMu.Lock()
	m.onReadSignal = append(m.onReadSignal, obs)
	m.observersMu.Unlock()
}

// OnReceiveSignalTyped narrows the observer's payload to T; a payload
// that is not assignable to T is treated as "did not match" rather
// than an error.
func OnReceiveSignalTyped[T any](m *Model, fn func(sig *router.Signal, data T) bool) {
	m.OnReceiveSignal(func(sig *router.Signal) bool {
		data, ok := router.GetData[T](sig)
		if !ok {
			return false
		}
		return fn(sig, data)
	})
}

// OnReadSignalTyped is OnReceiveSignalTyped's loop-thread counterpart.
func OnReadSignalTyped[T any](m *Model, fn func(sig *router.Signal, data T) bool) {
	m.OnReadSignal(func(sig *router.Signal) bool {
		data, ok := router.GetData[T](sig)
		if !ok {
			return false
		}
		return fn(sig, data)
	})
}

// Receive implements router.ModelRef by delegating to ReceiveMessage.
func (m *Model) Receive(sig *router.Signal) bool { return m.ReceiveMessage(sig) }

// ReceiveMessage is the synchronous fast path called by the sender's
// thread. It rejects a paused, closing, or closed model and an
// already-expired signal; otherwise the receive observers run and, if
// none claims the signal, it is queued and the container is woken.
func (m *Model) ReceiveMessage(sig *router.Signal) bool {
	switch m.State() {
	case Paused, Closing, Closed:
		return false
	}
	if sig.Expired() {
		return false
	}

	m.observersMu.RLock()
	observers := m.onReceiveSignal
	m.observersMu.RUnlock()
	for _, obs := range observers {
		if obs(sig) {
			sig.Handled = true
			break
		}
	}
	if sig.Handled {
		return true
	}

	m.mu.Lock()
	m.inbox = append(m.inbox, sig)
	m.mu.Unlock()

	if c := m.boundContainer(); c != nil {
		c.NotifyWork()
	}
	return true
}

// Drain removes every currently-queued signal, dropping any that
// expired while waiting. The container calls this once per granted
// tick.
func (m *Model) Drain() []*router.Signal {
	m.mu.Lock()
	pending := m.inbox
	m.inbox = nil
	m.mu.Unlock()

	live := pending[:0]
	for _, sig := range pending {
		if !sig.Expired() {
			live = append(live, sig)
		}
	}
	return live
}

// CompactExpired strips expired entries from the inbox in place,
// without otherwise draining it — the container's periodic sweep when
// its gate wait times out.
func (m *Model) CompactExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()
	live := m.inbox[:0]
	for _, sig := range m.inbox {
		if !sig.Expired() {
			live = append(live, sig)
		}
	}
	m.inbox = live
}

// ProcessOne runs one signal through the read-observer chain, router
// dispatch, and completer fulfillment, stopping early once the signal
// is handled. An expired signal is dropped without running any of
// these phases.
func (m *Model) ProcessOne(sig *router.Signal) {
	if sig.Expired() {
		return
	}

	m.observersMu.RLock()
	observers := m.onReadSignal
	m.observersMu.RUnlock()
	for _, obs := range observers {
		if obs(sig) {
			sig.Handled = true
			break
		}
	}

	if !sig.Handled && m.Router != nil {
		if err := m.Router.InvokeProcessorDynamic(m, sig); err != nil && m.sink != nil {
			m.sink.NotifyModelException(m.id, err)
		}
	}

	if !sig.Handled && m.sink != nil {
		m.sink.NotifyModelException(m.id, errcode.New(errcode.Error, "ProcessOne", "signal not handled by any observer or router handler"))
	}

	if sig.Completer != nil {
		sig.Fulfill(sig.Response)
	}
}

// Tick drains and processes every currently-queued signal. The
// container calls this once per granted loop iteration.
func (m *Model) Tick() {
	for _, sig := range m.Drain() {
		m.ProcessOne(sig)
	}
}

// Pause implements router.ModelRef: it marks the model Paused, which
// causes ReceiveMessage to reject further sends, and tells the
// container to stop granting ticks.
func (m *Model) Pause() {
	m.setState(Paused)
	if c := m.boundContainer(); c != nil {
		c.Pause()
	}
}

// Resume reverses Pause.
func (m *Model) Resume() {
	m.setState(Running)
	if c := m.boundContainer(); c != nil {
		c.Resume()
	}
}

// Kill implements router.ModelRef: an irreversible, re-entry-safe
// transition through Closing to Closed, delegating the container-level
// stop in between.
func (m *Model) Kill() {
	if m.State() == Closed {
		return
	}
	m.setState(Closing)
	if c := m.boundContainer(); c != nil {
		c.Kill()
	}
	m.setState(Closed)
}
