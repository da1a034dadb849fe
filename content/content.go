// Package content implements the header+payload envelope carried by every
// signal: a 16-bit header (the typed-payload flag plus a signal index)
// wrapped around a payload that is polymorphic over its Go type — empty,
// string, int, raw bytes, or packed (serialized) data.
package content

import (
	"reflect"

	"github.com/meshframe/actorcore/errcode"
)

// TypedPayloadBit is bit 15 of the header: set once a payload has been
// through the router's packing path and become a PackedData payload;
// clear for plain, router-native payload variants.
const TypedPayloadBit = uint16(1) << 15

// SignalIndexMask isolates the low 15 bits of the header: the index into
// the router's signal-name table.
const SignalIndexMask = uint16(0x7FFF)

// Flags is the bitset carried by a PackedData payload, mirroring the wire
// format's flag byte (spec §6).
type Flags uint8

const (
	FlagNone    Flags = 0
	FlagGeneric Flags = 1 << (iota - 1)
	FlagInt
	FlagString
	FlagByte
)

// PackedData is the payload variant produced by the packing path: the
// encoded bytes plus enough metadata to decode them again without
// necessarily knowing the original Go type at the unpack call site.
type PackedData struct {
	Flags       Flags
	DecoderIdx  int16 // >= 0: index into the router's decoder table; < 0: decode by resolved type name
	PayloadType reflect.Type
	Bytes       []byte
}

// emptyMarker is the sentinel data value for Empty() contents; SetData
// on an Envelope holding it is always rejected.
type emptyMarker struct{}

// Envelope is the generic content type. Header carries the signal index
// (and, once packed, the typed-payload bit); Data holds the payload
// itself as `any` — a plain value for untyped signals, or a PackedData
// once PackContent has run. Generic helper functions (GetData, SetData)
// narrow Data back to a concrete Go type at the call site, mirroring the
// source design's Content<T> without requiring a distinct generic type
// per payload shape.
type Envelope struct {
	Header uint16
	Data   any
	isNil  bool
}

// New builds an Envelope with the given header and data.
func New(header uint16, data any) *Envelope {
	return &Envelope{Header: header, Data: data}
}

// Empty builds a content with no payload — the "null content" case of
// BuildSignalContent when the supplied data is nil, and the EmptyContent
// variant that rejects SetData.
func Empty(header uint16) *Envelope {
	return &Envelope{Header: header, Data: emptyMarker{}, isNil: true}
}

// SignalIndex returns the table index this content's header refers to.
func (e *Envelope) SignalIndex() uint16 { return e.Header & SignalIndexMask }

// IsTyped reports whether the typed-payload bit is set, i.e. this content
// carries a PackedData payload produced by the packing path.
func (e *Envelope) IsTyped() bool { return e.Header&TypedPayloadBit != 0 }

// IsNil reports whether SetData(nil) cleared this content, or it was
// constructed via Empty.
func (e *Envelope) IsNil() bool { return e.isNil }

// WithTypedBit returns a header with the typed-payload bit set, used by
// the packer to wrap an encoded payload.
func WithTypedBit(header uint16) uint16 { return header | TypedPayloadBit }

// SetData assigns a new payload. Passing nil clears the content (IsNil
// becomes true); EmptyContent rejects any non-nil SetData with
// errcode.ArgumentError.
func (e *Envelope) SetData(obj any) error {
	if _, isEmpty := e.Data.(emptyMarker); isEmpty && obj != nil {
		return errcode.New(errcode.ArgumentError, "Envelope.SetData", "EmptyContent does not accept a payload")
	}
	if obj == nil {
		e.Data = emptyMarker{}
		e.isNil = true
		return nil
	}
	e.Data = obj
	e.isNil = false
	return nil
}

// GetData narrows e's payload to T, reporting ok=false on a type
// mismatch (including when e is nil or empty).
func GetData[T any](e *Envelope) (T, bool) {
	var zero T
	if e == nil || e.isNil {
		return zero, false
	}
	v, ok := e.Data.(T)
	return v, ok
}
