package router

import (
	"reflect"

	"github.com/meshframe/actorcore/content"
	"github.com/meshframe/actorcore/errcode"
)

// BuildSignalContent resolves name to its table index and wraps data in
// a content.Envelope whose header has the typed-payload bit clear. A nil
// data produces a "null content" (no payload) rather than an error. An
// unregistered name is a routing error.
func (r *Router) BuildSignalContent(name string, data any) (*content.Envelope, error) {
	idx, ok := r.Lookup(name)
	if !ok {
		return nil, errcode.New(errcode.UnknownSignal, "BuildSignalContent", name)
	}
	if data == nil {
		return content.Empty(idx), nil
	}
	return content.New(idx, data), nil
}

var byteSliceType = reflect.TypeOf([]byte(nil))

func isNumericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// PackContent encodes e's payload into a PackedData-bearing Envelope.
// Encoder keys are tried in order: the runtime type of the data, the
// caller-declared type (may be nil), then the catch-all object type.
// The wrapper's header is the input header with the typed-payload bit
// set.
func (r *Router) PackContent(e *content.Envelope, declaredType reflect.Type) (*content.Envelope, error) {
	if e == nil {
		return nil, errcode.New(errcode.ArgumentError, "PackContent", "nil content")
	}
	runtimeType := reflect.TypeOf(e.Data)

	var tryOrder []reflect.Type
	if runtimeType != nil {
		tryOrder = append(tryOrder, runtimeType)
	}
	if declaredType != nil {
		tryOrder = append(tryOrder, declaredType)
	}
	tryOrder = append(tryOrder, objectType)

	var entry encoderEntry
	found := false
	for _, k := range tryOrder {
		if en, ok := r.encoders.byKey(k); ok {
			entry = en
			found = true
			break
		}
	}
	if !found {
		typeName := "<nil>"
		if runtimeType != nil {
			typeName = runtimeType.String()
		}
		return nil, &errcode.E{C: errcode.NoEncoder, Op: "PackContent", Type: typeName}
	}

	encoded, err := entry.fn(e.Data)
	if err != nil {
		return nil, &errcode.E{C: errcode.EncoderCallback, Op: "PackContent", Err: err}
	}

	_, decIdx, hasDecoder := r.decoders.byOutputType(entry.outputType)
	if !hasDecoder {
		decIdx = -1
	}

	flags := content.FlagNone
	switch {
	case entry.keyType == objectType:
		flags = content.FlagGeneric
	case entry.keyType.Kind() == reflect.String:
		flags = content.FlagString
	case entry.keyType == byteSliceType:
		flags = content.FlagByte
	case isNumericKind(entry.keyType.Kind()):
		flags = content.FlagInt
	}

	packed := content.PackedData{
		Flags:       flags,
		DecoderIdx:  decIdx,
		PayloadType: runtimeType,
		Bytes:       encoded,
	}
	return content.New(content.WithTypedBit(e.Header), packed), nil
}

// UnpackContent reverses PackContent. It returns (nil, nil) when e
// carries no typed payload, or when the wrapped bytes are empty.
func (r *Router) UnpackContent(e *content.Envelope) (any, error) {
	if e == nil || !e.IsTyped() {
		return nil, nil
	}
	packed, ok := e.Data.(content.PackedData)
	if !ok {
		return nil, errcode.New(errcode.InvalidData, "UnpackContent", "typed content did not carry PackedData")
	}
	if len(packed.Bytes) == 0 {
		return nil, nil
	}
	if packed.PayloadType == byteSliceType {
		return packed.Bytes, nil
	}

	if packed.DecoderIdx >= 0 {
		entry, ok := r.decoders.byIndex(packed.DecoderIdx)
		if !ok {
			return nil, &errcode.E{C: errcode.NoDecoder, Op: "UnpackContent"}
		}
		v, err := entry.fn(packed.Bytes)
		if err != nil {
			return nil, &errcode.E{C: errcode.DecoderCallback, Op: "UnpackContent", Err: err}
		}
		return v, nil
	}

	if packed.PayloadType != nil {
		if entry, _, ok := r.decoders.byOutputType(packed.PayloadType); ok {
			v, err := entry.fn(packed.Bytes)
			if err != nil {
				return nil, &errcode.E{C: errcode.DecoderCallback, Op: "UnpackContent", Err: err}
			}
			return v, nil
		}
	}
	if packed.Flags&content.FlagGeneric != 0 {
		if entry, _, ok := r.decoders.byOutputType(objectType); ok {
			v, err := entry.fn(packed.Bytes)
			if err != nil {
				return nil, &errcode.E{C: errcode.DecoderCallback, Op: "UnpackContent", Err: err}
			}
			return v, nil
		}
	}
	return nil, &errcode.E{C: errcode.NoDecoder, Op: "UnpackContent", Msg: "decoder-index < 0 and no decoder resolved by type or GENERIC fallback"}
}
