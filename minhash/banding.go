package minhash

import (
	"encoding/binary"
	"fmt"

	"github.com/hupe1980/neardup/lsh"
)

var _ lsh.Banding[Signature] = Banding{}

// Banding splits a signature into Bands contiguous groups of Rows values.
type Banding struct {
	NumPerm int
	Bands   int
	Rows    int
}

// NewBanding validates that bands*rows covers numPerm exactly.
func NewBanding(numPerm, bands, rows int) (Banding, error) {
	if numPerm <= 0 {
		return Banding{}, fmt.Errorf("%w: numPerm=%d", lsh.ErrInvalidBanding, numPerm)
	}
	if bands <= 0 || rows <= 0 {
		return Banding{}, fmt.Errorf("%w: bands=%d rows=%d must be positive", lsh.ErrInvalidBanding, bands, rows)
	}
	if bands*rows != numPerm {
		return Banding{}, fmt.Errorf("%w: bands*rows=%d*%d != numPerm=%d", lsh.ErrInvalidBanding, bands, rows, numPerm)
	}
	return Banding{NumPerm: numPerm, Bands: bands, Rows: rows}, nil
}

// NumBands implements lsh.Banding.
func (b Banding) NumBands() int { return b.Bands }

// AppendKey appends the Rows values of band as big-endian uint64s.
func (b Banding) AppendKey(dst []byte, sig Signature, band int) ([]byte, error) {
	if len(sig) != b.NumPerm {
		return dst, fmt.Errorf("%w: got %d values, want %d", ErrSizeMismatch, len(sig), b.NumPerm)
	}
	if band < 0 || band >= b.Bands {
		return dst, fmt.Errorf("%w: band %d out of range", lsh.ErrInvalidBanding, band)
	}
	for _, v := range sig[band*b.Rows : (band+1)*b.Rows] {
		dst = binary.BigEndian.AppendUint64(dst, v)
	}
	return dst, nil
}

// Threshold returns the approximate Jaccard similarity at which the banding's
// collision probability rises most steeply.
func (b Banding) Threshold() float64 {
	return lsh.Threshold(b.Bands, b.Rows)
}
