package prefilter

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/cespare/xxhash/v2"
)

// ErrCorruptedBloomFilter is returned when serialized filter data is invalid.
var ErrCorruptedBloomFilter = errors.New("prefilter: corrupted bloom filter data")

const (
	filterMagic      = "NDBF"
	filterVersion    = 1
	filterHeaderSize = 20
	maxHashes        = 16
)

// BloomFilter is a probabilistic set of strings with no false negatives.
// It is not safe for concurrent mutation.
type BloomFilter struct {
	words   []uint64
	numBits uint64
	k       uint32
	count   uint32
}

// OptimalSize returns the bit count (a multiple of 64) and hash count that
// hold capacity elements at the given false positive rate.
func OptimalSize(capacity int, falsePositiveRate float64) (numBits uint64, k uint32) {
	n := float64(max(capacity, 1))
	p := falsePositiveRate
	if !(p > 0 && p < 1) {
		p = 0.01
	}

	m := -n * math.Log(p) / (math.Ln2 * math.Ln2)
	hashes := math.Ceil(m / n * math.Ln2)

	return roundBits(uint64(m)), uint32(min(max(hashes, 1), maxHashes))
}

func roundBits(n uint64) uint64 {
	return max((n+63)&^63, 64)
}

// NewBloomFilter returns an empty filter with numBits bits (rounded up to a
// multiple of 64) and k hash functions (clamped to [1, 16]).
func NewBloomFilter(numBits uint64, k uint32) *BloomFilter {
	numBits = roundBits(numBits)
	return &BloomFilter{
		words:   make([]uint64, numBits/64),
		numBits: numBits,
		k:       min(max(k, 1), maxHashes),
	}
}

// NewBloomFilterFor returns an empty filter sized by OptimalSize.
func NewBloomFilterFor(capacity int, falsePositiveRate float64) *BloomFilter {
	return NewBloomFilter(OptimalSize(capacity, falsePositiveRate))
}

// positions visits the k bit positions of value until visit returns false.
func (bf *BloomFilter) positions(value string, visit func(word int, mask uint64) bool) {
	h1 := xxhash.Sum64String(value)
	h2 := rehash(h1) | 1
	for i := range uint64(bf.k) {
		bit := (h1 + i*h2) % bf.numBits
		if !visit(int(bit>>6), 1<<(bit&63)) {
			return
		}
	}
}

// rehash derives a second, independent hash from h.
func rehash(h uint64) uint64 {
	h ^= h >> 31
	h *= 0x7fb5d329728ea185
	h ^= h >> 27
	h *= 0x81dadef4bc2dd44d
	return h ^ h>>33
}

// Add inserts value.
func (bf *BloomFilter) Add(value string) {
	bf.TestAndAdd(value)
}

// TestAndAdd inserts value and reports whether it may have been present
// before. Count grows only when a new bit was set.
func (bf *BloomFilter) TestAndAdd(value string) bool {
	present := true
	bf.positions(value, func(word int, mask uint64) bool {
		if bf.words[word]&mask == 0 {
			present = false
			bf.words[word] |= mask
		}
		return true
	})
	if !present {
		bf.count++
	}
	return present
}

// MayContain reports whether value may have been added.
func (bf *BloomFilter) MayContain(value string) bool {
	found := true
	bf.positions(value, func(word int, mask uint64) bool {
		found = bf.words[word]&mask != 0
		return found
	})
	return found
}

// Clone returns an independent copy of bf.
func (bf *BloomFilter) Clone() *BloomFilter {
	c := *bf
	c.words = slices.Clone(bf.words)
	return &c
}

// Count returns the number of insertions that set at least one new bit.
func (bf *BloomFilter) Count() uint32 { return bf.count }

// NumBits returns the size of the bit array.
func (bf *BloomFilter) NumBits() uint64 { return bf.numBits }

// K returns the number of hash functions.
func (bf *BloomFilter) K() uint32 { return bf.k }

// SizeBytes returns the size of the bit array in bytes.
func (bf *BloomFilter) SizeBytes() int { return len(bf.words) * 8 }

// EstimatedFalsePositiveRate returns (1 - e^(-kn/m))^k for the current count.
func (bf *BloomFilter) EstimatedFalsePositiveRate() float64 {
	if bf.count == 0 {
		return 0
	}
	k := float64(bf.k)
	return math.Pow(1-math.Exp(-k*float64(bf.count)/float64(bf.numBits)), k)
}

// MarshalBinary encodes the filter as a 20-byte little-endian header
// (magic, version, k, count, numBits) followed by the bit words.
func (bf *BloomFilter) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, filterHeaderSize+bf.SizeBytes())
	buf = append(buf, filterMagic...)
	buf = binary.LittleEndian.AppendUint16(buf, filterVersion)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(bf.k))
	buf = binary.LittleEndian.AppendUint32(buf, bf.count)
	buf = binary.LittleEndian.AppendUint64(buf, bf.numBits)
	for _, w := range bf.words {
		buf = binary.LittleEndian.AppendUint64(buf, w)
	}
	return buf, nil
}

// UnmarshalBinary decodes data produced by MarshalBinary into bf.
func (bf *BloomFilter) UnmarshalBinary(data []byte) error {
	if len(data) < filterHeaderSize || string(data[:4]) != filterMagic {
		return ErrCorruptedBloomFilter
	}
	if v := binary.LittleEndian.Uint16(data[4:]); v != filterVersion {
		return fmt.Errorf("%w: version %d", ErrCorruptedBloomFilter, v)
	}

	k := uint32(binary.LittleEndian.Uint16(data[6:]))
	count := binary.LittleEndian.Uint32(data[8:])
	numBits := binary.LittleEndian.Uint64(data[12:])

	if k < 1 || k > maxHashes || numBits < 64 || numBits%64 != 0 {
		return ErrCorruptedBloomFilter
	}
	body := data[filterHeaderSize:]
	if uint64(len(body)) != numBits/8 {
		return fmt.Errorf("%w: %d bytes for %d bits", ErrCorruptedBloomFilter, len(body), numBits)
	}

	words := make([]uint64, numBits/64)
	for i := range words {
		words[i] = binary.LittleEndian.Uint64(body[i*8:])
	}

	*bf = BloomFilter{words: words, numBits: numBits, k: k, count: count}
	return nil
}
