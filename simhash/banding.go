package simhash

import (
	"encoding/binary"
	"fmt"

	"github.com/hupe1980/neardup/lsh"
)

var _ lsh.Banding[Signature] = Banding{}

// Banding tiles the 128 signature bits with Bands slices of Width bits.
type Banding struct {
	Bands int
	Width int
}

// NewBanding splits hashBits into bands equal-width slices.
func NewBanding(hashBits, bands int) (Banding, error) {
	if hashBits != Bits {
		return Banding{}, fmt.Errorf("%w: hash bits %d, only %d supported", lsh.ErrInvalidBanding, hashBits, Bits)
	}
	if bands <= 0 || bands > hashBits {
		return Banding{}, fmt.Errorf("%w: bands=%d out of range [1, %d]", lsh.ErrInvalidBanding, bands, hashBits)
	}
	if hashBits%bands != 0 {
		return Banding{}, fmt.Errorf("%w: %d bits do not divide into %d bands", lsh.ErrInvalidBanding, hashBits, bands)
	}
	return Banding{Bands: bands, Width: hashBits / bands}, nil
}

// NumBands implements lsh.Banding.
func (b Banding) NumBands() int { return b.Bands }

// AppendKey appends the band slice as a big-endian (hi, lo) pair.
func (b Banding) AppendKey(dst []byte, sig Signature, band int) ([]byte, error) {
	if band < 0 || band >= b.Bands {
		return dst, fmt.Errorf("%w: band %d out of range", lsh.ErrInvalidBanding, band)
	}
	hi, lo := sig.Slice(band*b.Width, b.Width)
	dst = binary.BigEndian.AppendUint64(dst, hi)
	dst = binary.BigEndian.AppendUint64(dst, lo)
	return dst, nil
}

// MaxHamming returns the largest Hamming distance at which two signatures
// are still guaranteed to share at least one band (pigeonhole).
func (b Banding) MaxHamming() int { return b.Bands - 1 }
