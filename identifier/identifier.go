// Package identifier implements the compact 64-bit model address described
// by the router/model specification: an opaque value with an 8-byte
// printable form, constructible either by auto-generation (a monotonic
// counter run through an avalanching mixer) or from an explicit
// caller-supplied string.
package identifier

import (
	"sync/atomic"

	"github.com/OneOfOne/xxhash"
)

// alphabet mirrors the shape of aistore's cos.uuidABC: a 64-character,
// printable set so a masked 42-bit value maps onto 7 bytes cleanly
// (2^6 == 64 -> 7 chars carry 42 bits exactly).
const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-_"

const (
	textLen = 8
	// mask42 keeps the low 42 bits of the mixed hash (7 chars * 6 bits).
	mask42 = (uint64(1) << 42) - 1
	// mixSeed is an arbitrary fixed seed for the avalanche mixer, kept
	// stable across a process so two calls with the same counter value
	// would (pathologically) collide — the counter itself, not the
	// seed, is what guarantees uniqueness.
	mixSeed = 0x9E3779B97F4A7C15
)

var counter atomic.Uint64

// ID is an opaque 64-bit model address. The zero value is not a valid ID.
type ID uint64

// String renders the identifier as its 8-character printable form.
func (id ID) String() string {
	return decode(uint64(id))
}

// New allocates a fresh auto-generated identifier. It draws the next value
// from a process-wide monotonic counter and avalanches it through xxhash
// so that sequential counters do not produce sequential-looking IDs,
// matching aistore's cos.GenBEID/HashK8sProxyID approach of hashing a
// counter/seed pair rather than printing it directly.
func New() ID {
	n := counter.Add(1)
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(n >> (8 * i))
	}
	digest := xxhash.Checksum64S(buf[:], mixSeed)
	return ID(digest & mask42)
}

// FromString builds an explicit identifier from a caller-supplied string.
// The input is right-padded with spaces to exactly 8 bytes, or truncated
// to its last 8 bytes if longer, then read back as a big-endian 64-bit
// value. Round-tripping through String() reproduces the padded/truncated
// form, not necessarily the original input.
func FromString(s string) ID {
	var buf [textLen]byte
	for i := range buf {
		buf[i] = ' '
	}
	b := []byte(s)
	if len(b) >= textLen {
		copy(buf[:], b[len(b)-textLen:])
	} else {
		copy(buf[:], b)
	}
	var v uint64
	for _, c := range buf {
		v = v<<8 | uint64(c)
	}
	return ID(v)
}

// decode renders a raw 64-bit value in its printable 8-character form.
// Auto-generated IDs are masked to 42 bits at construction and always
// take the underscore+alphabet branch below; explicit IDs are 8 raw
// ASCII bytes and, having a nonzero top byte, always exceed mask42 and
// take the identity branch.
func decode(v uint64) string {
	if v <= mask42 {
		var out [textLen]byte
		out[0] = '_'
		rem := v
		for i := textLen - 1; i >= 1; i-- {
			out[i] = alphabet[rem&0x3f]
			rem >>= 6
		}
		return string(out[:])
	}
	var out [textLen]byte
	for i := textLen - 1; i >= 0; i-- {
		out[i] = byte(v)
		v >>= 8
	}
	return string(out[:])
}
