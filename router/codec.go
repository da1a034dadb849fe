package router

import (
	"encoding/binary"
	"reflect"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"github.com/meshframe/actorcore/errcode"
)

// objectType is the reflect.Type of the empty interface, used as the
// catch-all encoder/decoder key — the "object" fallback of §4.1.
var objectType = reflect.TypeOf((*any)(nil)).Elem()

var genericJSON = jsoniter.ConfigFastest

type encoderEntry struct {
	keyType    reflect.Type
	outputType reflect.Type
	fn         func(any) ([]byte, error)
}

type encoderTable struct {
	mu     sync.RWMutex
	byType map[reflect.Type]int
	list   []encoderEntry
}

func newEncoderTable() *encoderTable {
	return &encoderTable{byType: make(map[reflect.Type]int)}
}

func (t *encoderTable) register(keyType, outputType reflect.Type, fn func(any) ([]byte, error)) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.byType[keyType]; exists {
		return errcode.New(errcode.InvalidEncoder, "RegisterEncoder", "duplicate encoder for "+keyType.String())
	}
	idx := len(t.list)
	t.list = append(t.list, encoderEntry{keyType: keyType, outputType: outputType, fn: fn})
	t.byType[keyType] = idx
	return nil
}

func (t *encoderTable) byKey(k reflect.Type) (encoderEntry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	idx, ok := t.byType[k]
	if !ok {
		return encoderEntry{}, false
	}
	return t.list[idx], true
}

type decoderEntry struct {
	outputType reflect.Type
	fn         func([]byte) (any, error)
}

type decoderTable struct {
	mu     sync.RWMutex
	byType map[reflect.Type]int
	list   []decoderEntry
}

func newDecoderTable() *decoderTable {
	return &decoderTable{byType: make(map[reflect.Type]int)}
}

func (t *decoderTable) register(outputType reflect.Type, fn func([]byte) (any, error)) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.byType[outputType]; exists {
		return errcode.New(errcode.InvalidDecoder, "RegisterDecoder", "duplicate decoder for "+outputType.String())
	}
	idx := len(t.list)
	t.list = append(t.list, decoderEntry{outputType: outputType, fn: fn})
	t.byType[outputType] = idx
	return nil
}

func (t *decoderTable) byIndex(i int16) (decoderEntry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if i < 0 || int(i) >= len(t.list) {
		return decoderEntry{}, false
	}
	return t.list[i], true
}

func (t *decoderTable) byOutputType(k reflect.Type) (decoderEntry, int16, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	idx, ok := t.byType[k]
	if !ok {
		return decoderEntry{}, -1, false
	}
	return t.list[idx], int16(idx), true
}

// RegisterEncoder registers an encoder from Go type I to bytes, keyed by
// I's reflect.Type. outputType names the Go type this encoder's paired
// decoder produces — PackContent resolves DecoderIdx by looking up a
// decoder registered against outputType, so it must match the decoder's
// own declared output type (ordinarily the same type as I, since
// encode/decode pairs round-trip the same Go value) and never the byte
// representation itself. Registering twice for the same I is an error.
func RegisterEncoder[I any](r *Router, outputType reflect.Type, fn func(I) ([]byte, error)) error {
	if r.IsBuilt() {
		return errcode.New(errcode.RouterAlreadyBuilt, "RegisterEncoder", "router is sealed")
	}
	keyType := reflect.TypeOf((*I)(nil)).Elem()
	wrapped := func(v any) ([]byte, error) {
		typed, ok := v.(I)
		if !ok {
			return nil, errcode.New(errcode.InvalidEncoder, "Encoder", "value does not match declared input type")
		}
		return fn(typed)
	}
	return r.encoders.register(keyType, outputType, wrapped)
}

// RegisterDecoder registers a decoder producing Go type O from bytes,
// keyed by O's reflect.Type. Registering twice for the same O is an
// error.
func RegisterDecoder[O any](r *Router, fn func([]byte) (O, error)) error {
	if r.IsBuilt() {
		return errcode.New(errcode.RouterAlreadyBuilt, "RegisterDecoder", "router is sealed")
	}
	outType := reflect.TypeOf((*O)(nil)).Elem()
	wrapped := func(b []byte) (any, error) {
		return fn(b)
	}
	return r.decoders.register(outType, wrapped)
}

// Int128 is a 128-bit signed integer represented as two 64-bit halves,
// matching the spec's call-out of Int128 alongside the native integer
// family for the default fixed-width codecs.
type Int128 struct {
	Hi int64
	Lo uint64
}

// RegisterDefaultEncodersDecoders installs the default codec set: UTF-8
// for strings, little-endian fixed-width encoding for int, int32, int64,
// uint32, uint64 and Int128, raw passthrough for byte slices, and a
// jsoniter-backed generic encoder/decoder registered against the
// catch-all object type. No fixed-width codec is registered for floats
// or the other integer widths; those values pack through the generic
// encoder.
func RegisterDefaultEncodersDecoders(r *Router) error {
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	byteType := reflect.TypeOf([]byte(nil))
	stringType := reflect.TypeOf("")
	intType := reflect.TypeOf(int(0))
	int32Type := reflect.TypeOf(int32(0))
	int64Type := reflect.TypeOf(int64(0))
	uint32Type := reflect.TypeOf(uint32(0))
	uint64Type := reflect.TypeOf(uint64(0))
	int128Type := reflect.TypeOf(Int128{})

	add(RegisterEncoder[string](r, stringType, func(s string) ([]byte, error) { return []byte(s), nil }))
	add(RegisterDecoder[string](r, func(b []byte) (string, error) { return string(b), nil }))

	add(RegisterEncoder[[]byte](r, byteType, func(b []byte) ([]byte, error) { return b, nil }))
	add(RegisterDecoder[[]byte](r, func(b []byte) ([]byte, error) { return b, nil }))

	add(RegisterEncoder[int](r, intType, func(v int) ([]byte, error) { return leEncode(int64(v), 8) }))
	add(RegisterDecoder[int](r, func(b []byte) (int, error) { return int(leDecodeInt(b)), nil }))

	add(RegisterEncoder[int32](r, int32Type, func(v int32) ([]byte, error) { return leEncode(int64(v), 4) }))
	add(RegisterDecoder[int32](r, func(b []byte) (int32, error) { return int32(leDecodeInt(b)), nil }))

	add(RegisterEncoder[int64](r, int64Type, func(v int64) ([]byte, error) { return leEncode(v, 8) }))
	add(RegisterDecoder[int64](r, func(b []byte) (int64, error) { return leDecodeInt(b), nil }))

	add(RegisterEncoder[uint32](r, uint32Type, func(v uint32) ([]byte, error) {
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, v)
		return buf, nil
	}))
	add(RegisterDecoder[uint32](r, func(b []byte) (uint32, error) { return binary.LittleEndian.Uint32(b), nil }))

	add(RegisterEncoder[uint64](r, uint64Type, func(v uint64) ([]byte, error) {
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, v)
		return buf, nil
	}))
	add(RegisterDecoder[uint64](r, func(b []byte) (uint64, error) { return binary.LittleEndian.Uint64(b), nil }))

	add(RegisterEncoder[Int128](r, int128Type, func(v Int128) ([]byte, error) {
		buf := make([]byte, 16)
		binary.LittleEndian.PutUint64(buf[:8], v.Lo)
		binary.LittleEndian.PutUint64(buf[8:], uint64(v.Hi))
		return buf, nil
	}))
	add(RegisterDecoder[Int128](r, func(b []byte) (Int128, error) {
		if len(b) < 16 {
			return Int128{}, errcode.New(errcode.InvalidData, "Int128 decoder", "short buffer")
		}
		return Int128{Lo: binary.LittleEndian.Uint64(b[:8]), Hi: int64(binary.LittleEndian.Uint64(b[8:]))}, nil
	}))

	add(r.encoders.register(objectType, objectType, func(v any) ([]byte, error) { return genericJSON.Marshal(v) }))
	add(r.decoders.register(objectType, func(b []byte) (any, error) {
		var v any
		err := genericJSON.Unmarshal(b, &v)
		return v, err
	}))

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

func leEncode(v int64, width int) ([]byte, error) {
	buf := make([]byte, width)
	u := uint64(v)
	for i := 0; i < width; i++ {
		buf[i] = byte(u)
		u >>= 8
	}
	return buf, nil
}

func leDecodeInt(b []byte) int64 {
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return int64(v)
}
