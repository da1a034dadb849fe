package registry

import (
	"context"
	"testing"
	"time"

	"github.com/meshframe/actorcore/content"
	"github.com/meshframe/actorcore/identifier"
	"github.com/meshframe/actorcore/router"
)

// stubModel is a minimal router.ModelRef: Receive records what it got
// and optionally fulfills the attached completer.
type stubModel struct {
	id       identifier.ID
	received []*router.Signal
	reply    string
}

func (m *stubModel) ID() identifier.ID { return m.id }
func (m *stubModel) Kill()             {}
func (m *stubModel) Pause()            {}
func (m *stubModel) Receive(sig *router.Signal) bool {
	m.received = append(m.received, sig)
	if sig.Completer != nil {
		sig.Fulfill(content.New(0, m.reply))
	}
	return true
}

func newTestRouter(t *testing.T) *router.Router {
	t.Helper()
	r := router.New()
	if _, err := r.RegisterSignal("Ping", nil); err != nil {
		t.Fatalf("RegisterSignal: %v", err)
	}
	r.Build()
	return r
}

func TestSendSignalDeliversToDestination(t *testing.T) {
	r := newTestRouter(t)
	reg := New(r)
	dest := &stubModel{id: identifier.New()}
	reg.Register(dest)

	ok, err := reg.SendSignal("ping", "hello", dest.ID(), 0)
	if err != nil {
		t.Fatalf("SendSignal: %v", err)
	}
	if !ok {
		t.Fatal("expected SendSignal to report accepted")
	}
	if len(dest.received) != 1 {
		t.Fatalf("expected one delivered signal, got %d", len(dest.received))
	}
}

func TestSendSignalUnknownDestination(t *testing.T) {
	r := newTestRouter(t)
	reg := New(r)
	if _, err := reg.SendSignal("ping", nil, identifier.New(), 0); err == nil {
		t.Fatal("expected an error for an unregistered destination")
	}
}

func TestSendSignalDefaultsToCore(t *testing.T) {
	r := newTestRouter(t)
	reg := New(r)
	core := &stubModel{id: identifier.New()}
	reg.Register(core)
	reg.SetCore(core.ID())

	ok, err := reg.SendSignal("ping", nil, 0, 0)
	if err != nil {
		t.Fatalf("SendSignal: %v", err)
	}
	if !ok || len(core.received) != 1 {
		t.Fatal("expected the zero-value destination to resolve to Core")
	}
}

func TestSendSignalAwaitResolvesWithResponse(t *testing.T) {
	r := newTestRouter(t)
	reg := New(r)
	dest := &stubModel{id: identifier.New(), reply: "pong"}
	reg.Register(dest)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := reg.SendSignalAwait(ctx, "ping", nil, dest.ID(), 0)
	if err != nil {
		t.Fatalf("SendSignalAwait: %v", err)
	}
	if got != "pong" {
		t.Fatalf("expected %q, got %#v", "pong", got)
	}
}

func TestDeregisterIsIdempotent(t *testing.T) {
	r := newTestRouter(t)
	reg := New(r)
	dest := &stubModel{id: identifier.New()}
	reg.Register(dest)
	reg.Deregister(dest.ID())
	reg.Deregister(dest.ID()) // must not panic

	if _, ok := reg.Lookup(dest.ID()); ok {
		t.Fatal("expected the model to be gone after Deregister")
	}
}
