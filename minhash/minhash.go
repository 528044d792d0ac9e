package minhash

import (
	"errors"
	"math"
	"slices"

	"github.com/cespare/xxhash/v2"
)

const (
	// DefaultNumPerm is the default number of permutations.
	DefaultNumPerm = 128

	// Empty is the slot value of a signature computed over no shingles.
	Empty = math.MaxUint64
)

// splitmix64 finalizer constants.
const (
	mixShift1 = 30
	mixMul1   = 0xbf58476d1ce4e5b9
	mixShift2 = 27
	mixMul2   = 0x94d049bb133111eb
	mixShift3 = 31
	golden    = 0x9e3779b97f4a7c15
)

var (
	// ErrInvalidNumPerm is returned when the permutation count is not positive.
	ErrInvalidNumPerm = errors.New("minhash: numPerm must be positive")

	// ErrSizeMismatch is returned when signature sizes differ or are zero.
	ErrSizeMismatch = errors.New("minhash: signature sizes do not match")
)

// Signature holds the minimum hash value per permutation.
type Signature []uint64

// IsEmpty reports whether the signature was computed over an empty set.
func (s Signature) IsEmpty() bool {
	for _, v := range s {
		if v != Empty {
			return false
		}
	}
	return true
}

// Hasher computes signatures with a fixed set of seeded permutations.
// It is immutable and safe for concurrent use.
type Hasher struct {
	seeds []uint64
}

// New creates a Hasher with numPerm permutations derived from seed.
func New(numPerm int, seed uint64) (*Hasher, error) {
	if numPerm <= 0 {
		return nil, ErrInvalidNumPerm
	}

	seeds := make([]uint64, numPerm)
	state := seed
	for i := range seeds {
		state += golden
		seeds[i] = mix(state)
	}

	return &Hasher{seeds: seeds}, nil
}

// NumPerm returns the number of permutations.
func (h *Hasher) NumPerm() int { return len(h.seeds) }

// Sum returns the signature of the shingle set. Duplicate shingles do not
// change the result.
func (h *Hasher) Sum(shingles []string) Signature {
	sig := make(Signature, len(h.seeds))
	for i := range sig {
		sig[i] = Empty
	}
	for _, s := range shingles {
		h.update(sig, xxhash.Sum64String(s))
	}
	return sig
}

// SumBytes is like Sum for byte-slice shingles.
func (h *Hasher) SumBytes(shingles [][]byte) Signature {
	sig := make(Signature, len(h.seeds))
	for i := range sig {
		sig[i] = Empty
	}
	for _, s := range shingles {
		h.update(sig, xxhash.Sum64(s))
	}
	return sig
}

func (h *Hasher) update(sig Signature, base uint64) {
	for i, seed := range h.seeds {
		if v := mix(base ^ seed); v < sig[i] {
			sig[i] = v
		}
	}
}

// Jaccard estimates the Jaccard similarity of the sets behind a and b as the
// fraction of permutation slots whose minimums are equal.
func Jaccard(a, b Signature) (float64, error) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, ErrSizeMismatch
	}

	matches := 0
	for i := range a {
		if a[i] == b[i] {
			matches++
		}
	}
	return float64(matches) / float64(len(a)), nil
}

// Clone returns a copy of s.
func (s Signature) Clone() Signature { return slices.Clone(s) }

func mix(x uint64) uint64 {
	x = (x ^ (x >> mixShift1)) * mixMul1
	x = (x ^ (x >> mixShift2)) * mixMul2
	x ^= x >> mixShift3
	return x
}
