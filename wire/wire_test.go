package wire

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/meshframe/actorcore/content"
)

func TestRoundTripUntypedEnvelope(t *testing.T) {
	var buf bytes.Buffer
	env := content.New(42, nil)
	if err := NewFrameWriter(&buf).WriteEnvelope(env); err != nil {
		t.Fatalf("WriteEnvelope: %v", err)
	}
	got, err := NewFrameReader(&buf).ReadEnvelope(nil)
	if err != nil {
		t.Fatalf("ReadEnvelope: %v", err)
	}
	if got.Header != 42 {
		t.Fatalf("expected header 42, got %d", got.Header)
	}
	if got.IsTyped() {
		t.Fatal("expected an untyped round trip")
	}
}

func TestRoundTripStringPayload(t *testing.T) {
	packed := content.PackedData{Flags: content.FlagString, DecoderIdx: -1, Bytes: []byte("hello")}
	env := content.New(content.WithTypedBit(7), packed)

	var buf bytes.Buffer
	if err := NewFrameWriter(&buf).WriteEnvelope(env); err != nil {
		t.Fatalf("WriteEnvelope: %v", err)
	}
	got, err := NewFrameReader(&buf).ReadEnvelope(nil)
	if err != nil {
		t.Fatalf("ReadEnvelope: %v", err)
	}
	gotPacked, ok := got.Data.(content.PackedData)
	if !ok {
		t.Fatalf("expected PackedData, got %#v", got.Data)
	}
	if string(gotPacked.Bytes) != "hello" {
		t.Fatalf("expected %q, got %q", "hello", gotPacked.Bytes)
	}
	if got.SignalIndex() != 7 {
		t.Fatalf("expected signal index 7, got %d", got.SignalIndex())
	}
}

func TestRoundTripGenericPayloadWithNegativeDecoderIndex(t *testing.T) {
	packed := content.PackedData{
		Flags:      content.FlagGeneric,
		DecoderIdx: -1,
		Bytes:      []byte(`{"x":1}`),
	}
	env := content.New(content.WithTypedBit(3), packed)

	var buf bytes.Buffer
	if err := NewFrameWriter(&buf).WriteEnvelope(env); err != nil {
		t.Fatalf("WriteEnvelope: %v", err)
	}

	var seenName string
	got, err := NewFrameReader(&buf).ReadEnvelope(func(name string) reflect.Type {
		seenName = name
		return nil
	})
	if err != nil {
		t.Fatalf("ReadEnvelope: %v", err)
	}
	if seenName != "" {
		t.Fatalf("expected no type name for a negative decoder index with an empty PayloadType, got %q", seenName)
	}
	gotPacked := got.Data.(content.PackedData)
	if string(gotPacked.Bytes) != `{"x":1}` {
		t.Fatalf("unexpected bytes: %q", gotPacked.Bytes)
	}
}

func TestRoundTripIndexedDecoderPayload(t *testing.T) {
	packed := content.PackedData{Flags: content.FlagNone, DecoderIdx: 5, Bytes: []byte{1, 2, 3, 4}}
	env := content.New(content.WithTypedBit(0), packed)

	var buf bytes.Buffer
	if err := NewFrameWriter(&buf).WriteEnvelope(env); err != nil {
		t.Fatalf("WriteEnvelope: %v", err)
	}
	got, err := NewFrameReader(&buf).ReadEnvelope(nil)
	if err != nil {
		t.Fatalf("ReadEnvelope: %v", err)
	}
	gotPacked := got.Data.(content.PackedData)
	if gotPacked.DecoderIdx != 5 {
		t.Fatalf("expected decoder index 5, got %d", gotPacked.DecoderIdx)
	}
	if len(gotPacked.Bytes) != 4 {
		t.Fatalf("expected 4 payload bytes, got %d", len(gotPacked.Bytes))
	}
}

func TestIntFlagRejectsNonFourByteBuffers(t *testing.T) {
	packed := content.PackedData{Flags: content.FlagInt, Bytes: []byte{1, 2, 3}}
	env := content.New(content.WithTypedBit(0), packed)
	var buf bytes.Buffer
	if err := NewFrameWriter(&buf).WriteEnvelope(env); err == nil {
		t.Fatal("expected a 3-byte INT payload to be rejected")
	}
}
