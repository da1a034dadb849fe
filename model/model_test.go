package model

import (
	"testing"
	"time"

	"github.com/meshframe/actorcore/content"
	"github.com/meshframe/actorcore/identifier"
	"github.com/meshframe/actorcore/router"
)

// stubContainer records calls so tests can assert on lifecycle
// delegation without pulling in the container package.
type stubContainer struct {
	paused, resumed, killed bool
	notifyCount             int
}

func (c *stubContainer) Pause()      { c.paused = true }
func (c *stubContainer) Resume()     { c.resumed = true }
func (c *stubContainer) Kill()       { c.killed = true }
func (c *stubContainer) NotifyWork() { c.notifyCount++ }

type stubSink struct {
	errs []error
}

func (s *stubSink) NotifyModelException(_ identifier.ID, err error) {
	s.errs = append(s.errs, err)
}

func newTestRouter(t *testing.T) *router.Router {
	t.Helper()
	r := router.New()
	if err := r.RegisterDefaultSignals(); err != nil {
		t.Fatalf("RegisterDefaultSignals: %v", err)
	}
	return r
}

func TestReceiveMessageQueuesAndNotifies(t *testing.T) {
	r := newTestRouter(t)
	if _, err := RegisterEcho(r); err != nil {
		t.Fatalf("RegisterEcho: %v", err)
	}
	r.Build()

	sink := &stubSink{}
	m := New(r, sink)
	c := &stubContainer{}
	m.AttachContainer(c)
	m.Start()

	env, err := r.BuildSignalContent("echo", "hi")
	if err != nil {
		t.Fatalf("BuildSignalContent: %v", err)
	}
	sig := &router.Signal{Router: r, Content: env}
	if ok := m.ReceiveMessage(sig); !ok {
		t.Fatal("expected ReceiveMessage to accept while Running")
	}
	if c.notifyCount != 1 {
		t.Fatalf("expected container notified once, got %d", c.notifyCount)
	}

	drained := m.Drain()
	if len(drained) != 1 || drained[0] != sig {
		t.Fatalf("expected the queued signal back from Drain, got %#v", drained)
	}
}

func TestReceiveMessageRejectsWhilePaused(t *testing.T) {
	r := newTestRouter(t)
	r.Build()
	sink := &stubSink{}
	m := New(r, sink)
	m.AttachContainer(&stubContainer{})
	m.Start()
	m.Pause()

	env := content.Empty(0)
	sig := &router.Signal{Router: r, Content: env}
	if ok := m.ReceiveMessage(sig); ok {
		t.Fatal("expected a paused model to reject ReceiveMessage")
	}
}

func TestReceiveMessageRejectsExpiredSignal(t *testing.T) {
	r := newTestRouter(t)
	r.Build()
	m := New(r, &stubSink{})
	m.AttachContainer(&stubContainer{})
	m.Start()

	sig := &router.Signal{Router: r, Content: content.Empty(0), Expiration: time.Now().Add(-time.Second)}
	if ok := m.ReceiveMessage(sig); ok {
		t.Fatal("expected an expired signal to be rejected at the fast path")
	}
}

func TestTickDispatchesThroughRouterAndRecordsResponse(t *testing.T) {
	r := newTestRouter(t)
	_, err := router.RegisterSignal[string](r, "Upper", func(_ *router.Router, dest router.ModelRef, sig *router.Signal, data string) error {
		sig.Fulfill(content.New(0, data+"!"))
		return nil
	})
	if err != nil {
		t.Fatalf("RegisterSignal: %v", err)
	}
	r.Build()

	m := New(r, &stubSink{})
	m.AttachContainer(&stubContainer{})
	m.Start()

	env, _ := r.BuildSignalContent("upper", "hi")
	sig := &router.Signal{Router: r, Content: env}
	if !m.ReceiveMessage(sig) {
		t.Fatal("expected ReceiveMessage to accept")
	}
	m.Tick()

	if !sig.Handled {
		t.Fatal("expected the signal to be marked handled after Tick")
	}
	got, ok := content.GetData[string](sig.Response)
	if !ok || got != "hi!" {
		t.Fatalf("expected response %q, got %#v (ok=%v)", "hi!", sig.Response, ok)
	}
}

func TestProcessOneNotifiesSinkWhenUnhandled(t *testing.T) {
	r := newTestRouter(t)
	r.Build()
	sink := &stubSink{}
	m := New(r, sink)
	m.AttachContainer(&stubContainer{})
	m.Start()

	// A content with a signal index nothing registered for: dispatch
	// fails with UnknownSignal, which must reach the sink and leave
	// the signal unhandled.
	sig := &router.Signal{Router: r, Content: content.Empty(9999)}
	m.ProcessOne(sig)
	if sig.Handled {
		t.Fatal("expected sig to remain unhandled")
	}
	if len(sink.errs) == 0 {
		t.Fatal("expected the sink to observe at least one error")
	}
}

func TestReadObserverShortCircuitsDispatch(t *testing.T) {
	r := newTestRouter(t)
	dispatched := false
	_, err := r.RegisterSignal("Tap", func(_ *router.Router, _ router.ModelRef, sig *router.Signal) error {
		dispatched = true
		sig.Handled = true
		return nil
	})
	if err != nil {
		t.Fatalf("RegisterSignal: %v", err)
	}
	r.Build()

	m := New(r, &stubSink{})
	m.AttachContainer(&stubContainer{})
	m.Start()
	OnReadSignalTyped[int](m, func(sig *router.Signal, data int) bool {
		return data == 7
	})

	env, _ := r.BuildSignalContent("tap", 7)
	sig := &router.Signal{Router: r, Content: env}
	m.ProcessOne(sig)

	if dispatched {
		t.Fatal("expected the read observer to claim the signal before router dispatch ran")
	}
	if !sig.Handled {
		t.Fatal("expected the observer's true return to mark the signal handled")
	}
}

func TestKillTransitionsThroughClosingToClosedAndDelegates(t *testing.T) {
	r := newTestRouter(t)
	r.Build()
	m := New(r, &stubSink{})
	c := &stubContainer{}
	m.AttachContainer(c)
	m.Start()

	m.Kill()
	if m.State() != Closed {
		t.Fatalf("expected Closed, got %v", m.State())
	}
	if !c.killed {
		t.Fatal("expected Kill to delegate to the container")
	}
	if m.Alive() {
		t.Fatal("expected Alive() false once Closed")
	}

	// Re-entry is safe: a second Kill must not panic or re-delegate
	// past the first transition.
	m.Kill()
	if m.State() != Closed {
		t.Fatalf("expected Closed after repeated Kill, got %v", m.State())
	}
}

// RegisterEcho is a tiny typed signal used by tests that need a
// resolvable handler without asserting on its behavior.
func RegisterEcho(r *router.Router) (uint16, error) {
	return router.RegisterSignal[string](r, "Echo", func(_ *router.Router, _ router.ModelRef, sig *router.Signal, _ string) error {
		sig.Handled = true
		return nil
	})
}
