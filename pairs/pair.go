// Package pairs defines canonical item pairs and the ranked result store.
//
// A pair is always held as (I, J) with I < J. Self-pairs are rejected.
// Pairs pack losslessly into a uint64 Key (I in the high 32 bits) so they can
// be stored in roaring64 bitmaps and maps without allocation.
package pairs

import "fmt"

// Key is a canonical pair packed as I<<32 | J with I < J.
type Key uint64

// MakeKey returns the canonical key for the unordered pair {i, j}.
// The second return value is false for self-pairs.
func MakeKey(i, j uint32) (Key, bool) {
	if i == j {
		return 0, false
	}
	if i > j {
		i, j = j, i
	}
	return Key(uint64(i)<<32 | uint64(j)), true
}

// Split unpacks the key into (I, J).
func (k Key) Split() (uint32, uint32) {
	return uint32(k >> 32), uint32(k)
}

func (k Key) String() string {
	i, j := k.Split()
	return fmt.Sprintf("(%d, %d)", i, j)
}

// Pair is a verified, scored pair of items.
type Pair struct {
	I     uint32  `json:"i" msgpack:"i" yaml:"i"`
	J     uint32  `json:"j" msgpack:"j" yaml:"j"`
	Score float64 `json:"score" msgpack:"score" yaml:"score"`
}

// New returns the canonical Pair for {i, j}. ok is false for self-pairs.
func New(i, j uint32, score float64) (Pair, bool) {
	k, ok := MakeKey(i, j)
	if !ok {
		return Pair{}, false
	}
	a, b := k.Split()
	return Pair{I: a, J: b, Score: score}, true
}

// Key returns the packed key of p.
func (p Pair) Key() Key {
	k, _ := MakeKey(p.I, p.J)
	return k
}

func (p Pair) String() string {
	return fmt.Sprintf("(%d, %d) score=%.4f", p.I, p.J, p.Score)
}
