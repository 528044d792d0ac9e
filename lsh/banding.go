package lsh

import (
	"errors"
	"math"
)

var (
	// ErrInvalidBanding is returned when the band geometry is unusable.
	ErrInvalidBanding = errors.New("lsh: invalid banding")

	// ErrTooManyItems is returned when the corpus does not fit 32-bit item ids.
	ErrTooManyItems = errors.New("lsh: too many items")
)

// Banding splits a signature of type S into a fixed number of band keys.
//
// AppendKey appends the lossless key of band b of sig to dst. It returns an
// error for malformed signatures; the item is then left out of that band.
type Banding[S any] interface {
	NumBands() int
	AppendKey(dst []byte, sig S, band int) ([]byte, error)
}

// CollisionProbability returns the probability that two items with
// similarity s share at least one of bands bands of rows rows each.
func CollisionProbability(s float64, bands, rows int) float64 {
	if bands <= 0 || rows <= 0 {
		return 0
	}
	return 1 - math.Pow(1-math.Pow(s, float64(rows)), float64(bands))
}

// Threshold approximates the similarity at which the S-curve of
// CollisionProbability is steepest, (1/bands)^(1/rows).
func Threshold(bands, rows int) float64 {
	if bands <= 0 || rows <= 0 {
		return 0
	}
	return math.Pow(1/float64(bands), 1/float64(rows))
}
