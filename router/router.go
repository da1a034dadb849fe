// Package router implements the write-once signal-name registry,
// typed packer/unpacker tables, and dispatch helper at the center of the
// framework: signals are registered by name before the router is built,
// then looked up, packed, unpacked and dispatched by numeric index for
// the remaining life of the process.
package router

import (
	"strings"
	"sync"

	"github.com/meshframe/actorcore/errcode"
	"github.com/meshframe/actorcore/identifier"
)

// maxSignals is the 15-bit cap on registered signals (bits 0-14 of a
// content header); the first two slots are reserved so a zero header
// unambiguously means "no signal".
const maxSignals = 1<<15 - 1

const (
	slotReserved0 = iota // header value 0: "no signal"
	slotReserved1        // reserved for future use, kept for parity with the source layout
	slotFirstUser
)

// Default signal names, registered when RegisterDefaultSignals is used.
const (
	SignalNull    = "_null"
	SignalExit    = "exit"
	SignalSuspend = "suspend"
)

// ModelRef is the narrow view the router needs of a model: enough to
// address it, hand it a signal, and act on the two default lifecycle
// signals (exit, suspend). The model package implements this by
// delegating Kill/Pause to the model's container.
type ModelRef interface {
	ID() identifier.ID
	Receive(sig *Signal) bool
	Kill()
	Pause()
}

// Handler is an untyped signal handler: (router, destination, signal).
type Handler func(r *Router, dest ModelRef, sig *Signal) error

// TypedHandler is a signal handler declared against payload type T; the
// router narrows the signal's data to T before invoking it.
type TypedHandler[T any] func(r *Router, dest ModelRef, sig *Signal, data T) error

// handlerEntry is the table row stored per registered signal.
type handlerEntry struct {
	name    string
	call    Handler // always set: typed handlers are wrapped into this shape
	isTyped bool
}

// Router is the signal-name <-> index table, the encoder/decoder
// registry, and the dispatch helper. Registration methods append to the
// tables and take the router's lock; once Build has run, the tables are
// immutable and Build-era errors (already-built) are returned instead.
type Router struct {
	mu    sync.RWMutex
	built bool

	names    []string       // index -> name
	handlers []handlerEntry // index -> handler
	byName   map[string]uint16

	encoders *encoderTable
	decoders *decoderTable
}

// New returns an empty, unbuilt Router with the first two table slots
// reserved.
func New() *Router {
	r := &Router{
		byName:   make(map[string]uint16),
		encoders: newEncoderTable(),
		decoders: newDecoderTable(),
	}
	r.names = append(r.names, "", "")
	r.handlers = append(r.handlers, handlerEntry{}, handlerEntry{})
	return r
}

func normalize(name string) string { return strings.ToLower(name) }

// RegisterSignal appends an untyped signal to the table.
func (r *Router) RegisterSignal(name string, handler Handler) (uint16, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.register(name, handlerEntry{name: name, call: handler})
}

// RegisterSignal registers a signal whose payload is declared as T: the
// dispatcher narrows the content to T before calling handler, and
// InvokeProcessorDynamic invokes it with the four-argument shape
// (router, destination, signal, data).
func RegisterSignal[T any](r *Router, name string, handler TypedHandler[T]) (uint16, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wrapped := func(rt *Router, dest ModelRef, sig *Signal) error {
		data, _ := GetData[T](sig)
		return handler(rt, dest, sig, data)
	}
	return r.register(name, handlerEntry{name: name, call: wrapped, isTyped: true})
}

func (r *Router) register(name string, entry handlerEntry) (uint16, error) {
	if r.built {
		return 0, errcode.New(errcode.RouterAlreadyBuilt, "RegisterSignal", "router is sealed")
	}
	key := normalize(name)
	if _, exists := r.byName[key]; exists {
		return 0, errcode.New(errcode.SignalAlreadyExist, "RegisterSignal", name)
	}
	if len(r.names) > maxSignals {
		return 0, errcode.New(errcode.RegistryFull, "RegisterSignal", "32767 signal cap exceeded")
	}
	idx := uint16(len(r.names))
	r.names = append(r.names, name)
	r.handlers = append(r.handlers, entry)
	r.byName[key] = idx
	return idx, nil
}

// RegisterDefaultSignals installs the two built-in signals: exit (kills
// the destination's container) and suspend (pauses it). _null is
// implicit — it is the reserved zero header and needs no table row.
func (r *Router) RegisterDefaultSignals() error {
	if _, err := r.RegisterSignal(SignalExit, func(_ *Router, dest ModelRef, sig *Signal) error {
		dest.Kill()
		sig.Handled = true
		return nil
	}); err != nil {
		return err
	}
	if _, err := r.RegisterSignal(SignalSuspend, func(_ *Router, dest ModelRef, sig *Signal) error {
		dest.Pause()
		sig.Handled = true
		return nil
	}); err != nil {
		return err
	}
	return nil
}

// Build seals the router: further registration fails with
// errcode.RouterAlreadyBuilt. Build is itself idempotent.
func (r *Router) Build() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.built = true
}

// IsBuilt reports whether Build has run.
func (r *Router) IsBuilt() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.built
}

// Lookup resolves a signal name to its table index.
func (r *Router) Lookup(name string) (uint16, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.byName[normalize(name)]
	return idx, ok
}

// GetHeaderName resolves a content's signal index back to its registered
// name.
func (r *Router) GetHeaderName(index uint16) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(index) >= len(r.names) || index < slotFirstUser {
		return "", false
	}
	return r.names[index], true
}

// GetSignalProcessor returns the handler registered at the given signal
// index, or ok=false if the index is out of range or unregistered.
func (r *Router) GetSignalProcessor(index uint16) (handlerEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(index) >= len(r.handlers) || index < slotFirstUser || r.handlers[index].call == nil {
		return handlerEntry{}, false
	}
	return r.handlers[index], true
}

// InvokeProcessorDynamic resolves sig's handler through the signal index
// carried by its content header and invokes it. A successful invocation
// marks sig.Handled; unresolved indices return errcode.UnknownSignal
// without altering sig.
func (r *Router) InvokeProcessorDynamic(dest ModelRef, sig *Signal) error {
	if sig.Content == nil {
		return errcode.New(errcode.UnknownSignal, "InvokeProcessorDynamic", "signal has no content")
	}
	entry, ok := r.GetSignalProcessor(sig.Content.SignalIndex())
	if !ok {
		return errcode.New(errcode.UnknownSignal, "InvokeProcessorDynamic", "no handler for signal index")
	}
	if err := entry.call(r, dest, sig); err != nil {
		return err
	}
	sig.Handled = true
	return nil
}
