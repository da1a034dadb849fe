// Package registry implements the concurrent address-to-model map and
// the send primitives built on top of it, grounded on the same
// handle-to-pointer registration pattern used for ring handles
// elsewhere in this codebase's ancestry.
package registry

import (
	"context"
	"sync"

	"github.com/meshframe/actorcore/completer"
	"github.com/meshframe/actorcore/errcode"
	"github.com/meshframe/actorcore/identifier"
	"github.com/meshframe/actorcore/router"
)

// Registry is a concurrent identifier.ID -> router.ModelRef map plus
// the SendSignal/SendSignalAwait primitives. Registration and
// deregistration are idempotent.
type Registry struct {
	router *router.Router

	mu      sync.RWMutex
	models  map[identifier.ID]router.ModelRef
	coreID  identifier.ID
	hasCore bool
}

// New returns an empty registry dispatching through r.
func New(r *router.Router) *Registry {
	return &Registry{router: r, models: make(map[identifier.ID]router.ModelRef)}
}

// Register adds or replaces the entry for m.ID().
func (reg *Registry) Register(m router.ModelRef) {
	reg.mu.Lock()
	reg.models[m.ID()] = m
	reg.mu.Unlock()
}

// Deregister removes id, if present. Deregistering an absent id is a
// no-op.
func (reg *Registry) Deregister(id identifier.ID) {
	reg.mu.Lock()
	delete(reg.models, id)
	reg.mu.Unlock()
}

// SetCore designates id as the default sender/destination used when a
// send omits one, per §4.4.
func (reg *Registry) SetCore(id identifier.ID) {
	reg.mu.Lock()
	reg.coreID = id
	reg.hasCore = true
	reg.mu.Unlock()
}

// Lookup resolves id to its registered model.
func (reg *Registry) Lookup(id identifier.ID) (router.ModelRef, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	m, ok := reg.models[id]
	return m, ok
}

// All returns a snapshot of every currently registered model, used by
// Core's shutdown fan-out.
func (reg *Registry) All() []router.ModelRef {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := make([]router.ModelRef, 0, len(reg.models))
	for _, m := range reg.models {
		out = append(out, m)
	}
	return out
}

// Count reports how many models are currently registered.
func (reg *Registry) Count() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.models)
}

// endpoint resolves id, falling back to Core when id is the zero
// value (the "missing destination/sender defaults to Core" rule).
func (reg *Registry) endpoint(id identifier.ID) (router.ModelRef, bool) {
	if id == 0 {
		reg.mu.RLock()
		coreID, has := reg.coreID, reg.hasCore
		reg.mu.RUnlock()
		if !has {
			return nil, false
		}
		id = coreID
	}
	return reg.Lookup(id)
}

func (reg *Registry) resolveEndpoints(destID, senderID identifier.ID) (dest, sender router.ModelRef, err error) {
	dest, ok := reg.endpoint(destID)
	if !ok {
		return nil, nil, errcode.New(errcode.ArgumentError, "SendSignal", "unknown or unregistered destination")
	}
	sender, _ = reg.endpoint(senderID) // an unresolved sender is allowed; Signal.Sender stays nil
	return dest, sender, nil
}

// SendSignal builds content for name through the router, wraps it in a
// Signal addressed destID<-senderID (either may be the zero value to
// mean Core), and hands it to the destination's fast path. The bool
// result mirrors ReceiveMessage's accept/reject outcome.
func (reg *Registry) SendSignal(name string, data any, destID, senderID identifier.ID) (bool, error) {
	dest, sender, err := reg.resolveEndpoints(destID, senderID)
	if err != nil {
		return false, err
	}
	env, err := reg.router.BuildSignalContent(name, data)
	if err != nil {
		return false, err
	}
	sig := &router.Signal{Router: reg.router, Sender: sender, Destination: dest, Content: env}
	return dest.Receive(sig), nil
}

// SendSignalAwait is SendSignal's request/reply variant: it attaches a
// completer to the signal and blocks until the destination's loop
// fulfills it, ctx expires, or the destination rejects the send
// outright.
func (reg *Registry) SendSignalAwait(ctx context.Context, name string, data any, destID, senderID identifier.ID) (any, error) {
	dest, sender, err := reg.resolveEndpoints(destID, senderID)
	if err != nil {
		return nil, err
	}
	env, err := reg.router.BuildSignalContent(name, data)
	if err != nil {
		return nil, err
	}
	c := completer.New()
	sig := &router.Signal{Router: reg.router, Sender: sender, Destination: dest, Content: env, Completer: c}
	if !dest.Receive(sig) {
		return nil, errcode.New(errcode.ArgumentError, "SendSignalAwait", "destination rejected the signal")
	}
	return c.Await(ctx)
}
