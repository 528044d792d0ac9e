package simhash

import (
	"fmt"
	"math/bits"
)

// Bits is the signature width.
const Bits = 128

// Signature is a 128-bit SimHash value.
type Signature struct {
	Hi uint64 `json:"hi" msgpack:"hi"`
	Lo uint64 `json:"lo" msgpack:"lo"`
}

// IsZero reports whether no bit is set.
func (s Signature) IsZero() bool { return s.Hi == 0 && s.Lo == 0 }

// Bit returns bit p (0 = least significant bit of Lo).
func (s Signature) Bit(p int) bool {
	switch {
	case p < 0 || p >= Bits:
		return false
	case p < 64:
		return s.Lo&(1<<uint(p)) != 0
	default:
		return s.Hi&(1<<uint(p-64)) != 0
	}
}

// SetBit returns s with bit p set.
func (s Signature) SetBit(p int) Signature {
	switch {
	case p < 0 || p >= Bits:
	case p < 64:
		s.Lo |= 1 << uint(p)
	default:
		s.Hi |= 1 << uint(p-64)
	}
	return s
}

// FlipBit returns s with bit p inverted.
func (s Signature) FlipBit(p int) Signature {
	switch {
	case p < 0 || p >= Bits:
	case p < 64:
		s.Lo ^= 1 << uint(p)
	default:
		s.Hi ^= 1 << uint(p-64)
	}
	return s
}

// Slice returns the width bits starting at bit off as a 128-bit value.
func (s Signature) Slice(off, width int) (hi, lo uint64) {
	if off < 0 || width <= 0 || off >= Bits {
		return 0, 0
	}

	switch {
	case off == 0:
		hi, lo = s.Hi, s.Lo
	case off < 64:
		lo = s.Lo>>uint(off) | s.Hi<<uint(64-off)
		hi = s.Hi >> uint(off)
	default:
		lo = s.Hi >> uint(off-64)
	}

	switch {
	case width >= Bits:
	case width > 64:
		hi &= 1<<uint(width-64) - 1
	case width == 64:
		hi = 0
	default:
		hi = 0
		lo &= 1<<uint(width) - 1
	}
	return hi, lo
}

// String formats the signature as 32 hex digits.
func (s Signature) String() string {
	return fmt.Sprintf("%016x%016x", s.Hi, s.Lo)
}

// Hamming returns the number of differing bits.
func Hamming(a, b Signature) int {
	return bits.OnesCount64(a.Hi^b.Hi) + bits.OnesCount64(a.Lo^b.Lo)
}
