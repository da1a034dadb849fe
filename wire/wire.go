// Package wire implements the signal wire format of §6: a u16 LE
// content-header prefix followed, when the header's typed-payload bit
// is set, by a flags byte and a payload block whose shape depends on
// that flag. The same shape is used whether the content is stored or
// transmitted; this package only concerns itself with the byte layout,
// not any particular transport.
package wire

import (
	"encoding/binary"
	"io"
	"reflect"

	"github.com/meshframe/actorcore/content"
	"github.com/meshframe/actorcore/errcode"
)

// FrameWriter serializes Envelopes onto an io.Writer, mirroring the
// length-prefixed framing this codebase already uses for its transport
// link, but carrying the router's content/PackedData shape instead of
// a fixed command set.
type FrameWriter struct{ w io.Writer }

// FrameReader is FrameWriter's inverse.
type FrameReader struct{ r io.Reader }

func NewFrameWriter(w io.Writer) *FrameWriter { return &FrameWriter{w: w} }
func NewFrameReader(r io.Reader) *FrameReader { return &FrameReader{r: r} }

// WriteEnvelope writes e's header as a u16 LE prefix. When the header
// carries the typed-payload bit, the PackedData block described in §6
// follows; otherwise nothing else is written.
func (fw *FrameWriter) WriteEnvelope(e *content.Envelope) error {
	if e == nil {
		return errcode.New(errcode.ArgumentError, "WriteEnvelope", "nil content")
	}
	if err := writeUint16(fw.w, e.Header); err != nil {
		return err
	}
	if !e.IsTyped() {
		return nil
	}
	packed, ok := e.Data.(content.PackedData)
	if !ok {
		return errcode.New(errcode.InvalidData, "WriteEnvelope", "typed content did not carry PackedData")
	}
	return fw.writePacked(packed)
}

func (fw *FrameWriter) writePacked(p content.PackedData) error {
	if err := writeByte(fw.w, byte(p.Flags)); err != nil {
		return err
	}
	switch {
	case p.Flags&content.FlagString != 0:
		return writeLengthPrefixed(fw.w, p.Bytes)
	case p.Flags&content.FlagInt != 0:
		if len(p.Bytes) != 4 {
			return errcode.New(errcode.InvalidData, "WriteEnvelope", "INT payload must be exactly 4 bytes (i32 LE)")
		}
		_, err := fw.w.Write(p.Bytes)
		return err
	case p.Flags&content.FlagByte != 0:
		return writeLengthPrefixedI32(fw.w, p.Bytes)
	default:
		if err := writeInt16(fw.w, p.DecoderIdx); err != nil {
			return err
		}
		if p.DecoderIdx < 0 {
			typeName := ""
			if p.PayloadType != nil {
				typeName = p.PayloadType.String()
			}
			if err := writeLengthPrefixed(fw.w, []byte(typeName)); err != nil {
				return err
			}
		}
		return writeLengthPrefixedI32(fw.w, p.Bytes)
	}
}

// ReadEnvelope reads one WriteEnvelope-shaped frame. resolveType, if
// non-nil, is consulted to turn a negative decoder-index frame's type
// name back into a reflect.Type for PackedData.PayloadType; callers
// that only need the raw bytes may pass nil.
func (fr *FrameReader) ReadEnvelope(resolveType func(name string) reflect.Type) (*content.Envelope, error) {
	header, err := readUint16(fr.r)
	if err != nil {
		return nil, err
	}
	if header&content.TypedPayloadBit == 0 {
		return content.New(header, nil), nil
	}
	packed, err := fr.readPacked(resolveType)
	if err != nil {
		return nil, err
	}
	return content.New(header, packed), nil
}

func (fr *FrameReader) readPacked(resolveType func(string) reflect.Type) (content.PackedData, error) {
	flagByte, err := readByte(fr.r)
	if err != nil {
		return content.PackedData{}, err
	}
	flags := content.Flags(flagByte)

	switch {
	case flags&content.FlagString != 0:
		b, err := readLengthPrefixed(fr.r)
		if err != nil {
			return content.PackedData{}, err
		}
		return content.PackedData{Flags: flags, DecoderIdx: -1, Bytes: b}, nil

	case flags&content.FlagInt != 0:
		b := make([]byte, 4)
		if _, err := io.ReadFull(fr.r, b); err != nil {
			return content.PackedData{}, err
		}
		return content.PackedData{Flags: flags, DecoderIdx: -1, Bytes: b}, nil

	case flags&content.FlagByte != 0:
		b, err := readLengthPrefixedI32(fr.r)
		if err != nil {
			return content.PackedData{}, err
		}
		return content.PackedData{Flags: flags, DecoderIdx: -1, Bytes: b}, nil

	default:
		decIdx, err := readInt16(fr.r)
		if err != nil {
			return content.PackedData{}, err
		}
		var payloadType reflect.Type
		if decIdx < 0 {
			nameBytes, err := readLengthPrefixed(fr.r)
			if err != nil {
				return content.PackedData{}, err
			}
			if resolveType != nil {
				payloadType = resolveType(string(nameBytes))
			}
		}
		b, err := readLengthPrefixedI32(fr.r)
		if err != nil {
			return content.PackedData{}, err
		}
		return content.PackedData{Flags: flags, DecoderIdx: decIdx, PayloadType: payloadType, Bytes: b}, nil
	}
}

func writeByte(w io.Writer, b byte) error {
	_, err := w.Write([]byte{b})
	return err
}

func readByte(r io.Reader) (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func writeUint16(w io.Writer, v uint16) error {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readUint16(r io.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

func writeInt16(w io.Writer, v int16) error {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(v))
	_, err := w.Write(b[:])
	return err
}

func readInt16(r io.Reader) (int16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return int16(binary.LittleEndian.Uint16(b[:])), nil
}

func writeInt32Len(w io.Writer, n int) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(n))
	_, err := w.Write(b[:])
	return err
}

func readInt32Len(r io.Reader) (int, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	n := binary.LittleEndian.Uint32(b[:])
	if n > 1<<28 {
		return 0, errcode.New(errcode.InvalidData, "ReadEnvelope", "implausible length prefix")
	}
	return int(n), nil
}

func writeLengthPrefixed(w io.Writer, b []byte) error {
	if err := writeInt32Len(w, len(b)); err != nil {
		return err
	}
	if len(b) == 0 {
		return nil
	}
	_, err := w.Write(b)
	return err
}

func readLengthPrefixed(r io.Reader) ([]byte, error) {
	n, err := readInt32Len(r)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// writeLengthPrefixedI32/readLengthPrefixedI32 are the BYTE-flag and
// payload-tail shape: identical wire layout to the length-prefixed
// helpers above, named separately because §6 describes them as
// distinct cases sharing one encoding.
func writeLengthPrefixedI32(w io.Writer, b []byte) error { return writeLengthPrefixed(w, b) }
func readLengthPrefixedI32(r io.Reader) ([]byte, error)  { return readLengthPrefixed(r) }
