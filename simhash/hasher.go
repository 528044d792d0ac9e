package simhash

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/hupe1980/neardup/distance"
)

var (
	// ErrInvalidBits is returned for a hash width other than Bits.
	ErrInvalidBits = errors.New("simhash: unsupported hash width")

	// ErrInvalidDimension is returned for a non-positive dimension.
	ErrInvalidDimension = errors.New("simhash: dimension must be positive")
)

// ErrDimensionMismatch is returned when a vector does not match the hasher's
// dimension.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("simhash: dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Hasher projects vectors onto Bits seeded Gaussian hyperplanes.
// Planes 0..63 set bits 0..63 of Hi and planes 64..127 set bits 0..63 of Lo.
// It is immutable and safe for concurrent use.
type Hasher struct {
	dim    int
	planes [][]float32
}

// New creates a Hasher for vectors of dimension dim.
func New(dim, hashBits int, seed int64) (*Hasher, error) {
	if hashBits != Bits {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBits, hashBits)
	}
	if dim <= 0 {
		return nil, ErrInvalidDimension
	}

	rng := rand.New(rand.NewSource(seed))
	planes := make([][]float32, Bits)
	for p := range planes {
		plane := make([]float32, dim)
		for d := range plane {
			plane[d] = float32(rng.NormFloat64())
		}
		planes[p] = plane
	}

	return &Hasher{dim: dim, planes: planes}, nil
}

// Dimension returns the expected vector dimension.
func (h *Hasher) Dimension() int { return h.dim }

// Sum returns the signature of vec. A bit is set when the projection onto
// its plane is strictly positive.
func (h *Hasher) Sum(vec []float32) (Signature, error) {
	if len(vec) != h.dim {
		return Signature{}, &ErrDimensionMismatch{Expected: h.dim, Actual: len(vec)}
	}

	var sig Signature
	for p, plane := range h.planes {
		if distance.Dot(vec, plane) > 0 {
			sig = sig.SetBit(planeBit(p))
		}
	}
	return sig, nil
}

func planeBit(p int) int {
	if p < 64 {
		return p + 64
	}
	return p - 64
}
