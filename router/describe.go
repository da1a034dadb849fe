package router

import (
	"reflect"

	"github.com/meshframe/actorcore/errcode"
)

// Descriptor is the abstract replacement for the source's
// reflection/IL-emitting attribute discovery: a signal name, its
// declared payload type, and a callable shaped like Handler or
// TypedHandler[T]. Describe translates one Descriptor into one
// RegisterSignal call; the IL-emitting shortcut itself was a
// performance detail, not a contract worth reproducing.
type Descriptor struct {
	Name        string
	PayloadType reflect.Type // nil for an untyped handler
	Callable    any          // Handler-shaped; Describe rejects typed (four-argument) callables
}

// Describe registers d against r. When d.Callable is a plain Handler
// it behaves exactly like RegisterSignal; typed callables must be
// registered through the generic RegisterSignal[T] directly, since Go
// cannot express "a TypedHandler for whatever T PayloadType names" at
// a single non-generic call site. Describe recognizes only the
// untyped shape and reports ArgumentError for anything else.
func Describe(r *Router, d Descriptor) (uint16, error) {
	switch h := d.Callable.(type) {
	case Handler:
		return r.RegisterSignal(d.Name, h)
	case func(*Router, ModelRef, *Signal) error:
		return r.RegisterSignal(d.Name, h)
	default:
		return 0, errcode.New(errcode.ArgumentError, "Describe", "unsupported callable shape for signal "+d.Name)
	}
}
