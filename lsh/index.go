package lsh

import (
	"context"
	"fmt"
	"iter"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"
)

// cancelCheckInterval is how many items are processed between context checks.
const cancelCheckInterval = 4096

// Index maps, for every band, a band key to the ids of the items sharing it.
// It is immutable once built and safe for concurrent reads.
type Index struct {
	n         int
	tables    []map[string][]uint32
	malformed *roaring.Bitmap
	opts      Options
}

// BuildStats summarizes an Index.
type BuildStats struct {
	Items         int `json:"items" msgpack:"items"`
	Bands         int `json:"bands" msgpack:"bands"`
	Buckets       int `json:"buckets" msgpack:"buckets"`
	LargestBucket int `json:"largest_bucket" msgpack:"largest_bucket"`
	Malformed     int `json:"malformed" msgpack:"malformed"`
}

// Build indexes sigs (item id = slice position) under banding.
//
// Bands are built concurrently, one worker per band, so no table is ever
// shared between goroutines. Items whose signature is rejected by the banding
// are left out of that band and reported by Malformed.
func Build[S any](ctx context.Context, sigs []S, banding Banding[S], optFns ...func(o *Options)) (*Index, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if banding == nil {
		return nil, fmt.Errorf("%w: nil banding", ErrInvalidBanding)
	}
	nb := banding.NumBands()
	if nb <= 0 {
		return nil, fmt.Errorf("%w: %d bands", ErrInvalidBanding, nb)
	}
	if uint64(len(sigs)) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d", ErrTooManyItems, len(sigs))
	}
	if opts.MaxBucketSize < 0 {
		return nil, fmt.Errorf("lsh: negative max bucket size %d", opts.MaxBucketSize)
	}

	tables := make([]map[string][]uint32, nb)
	bad := make([]*roaring.Bitmap, nb)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())

	for b := range nb {
		g.Go(func() error {
			table := make(map[string][]uint32)
			malformed := roaring.New()
			var buf []byte

			for i, sig := range sigs {
				if i%cancelCheckInterval == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				key, err := banding.AppendKey(buf[:0], sig, b)
				if err != nil {
					malformed.Add(uint32(i))
					continue
				}
				buf = key
				table[string(key)] = append(table[string(key)], uint32(i))
			}

			tables[b] = table
			bad[b] = malformed
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Index{
		n:         len(sigs),
		tables:    tables,
		malformed: roaring.FastOr(bad...),
		opts:      opts,
	}, nil
}

// Len returns the number of indexed items.
func (idx *Index) Len() int { return idx.n }

// NumBands returns the number of bands.
func (idx *Index) NumBands() int { return len(idx.tables) }

// Bucket returns the ids sharing key in band, in ascending order.
func (idx *Index) Bucket(band int, key []byte) []uint32 {
	if band < 0 || band >= len(idx.tables) {
		return nil
	}
	return idx.tables[band][string(key)]
}

// Buckets iterates the buckets of band as (key, ids) pairs.
// The returned slices must not be modified.
func (idx *Index) Buckets(band int) iter.Seq2[string, []uint32] {
	return func(yield func(string, []uint32) bool) {
		if band < 0 || band >= len(idx.tables) {
			return
		}
		for key, ids := range idx.tables[band] {
			if !yield(key, ids) {
				return
			}
		}
	}
}

// Malformed returns the ids rejected by the banding in at least one band.
func (idx *Index) Malformed() []uint32 {
	return idx.malformed.ToArray()
}

// Stats returns summary statistics for the index.
func (idx *Index) Stats() BuildStats {
	st := BuildStats{
		Items:     idx.n,
		Bands:     len(idx.tables),
		Malformed: int(idx.malformed.GetCardinality()),
	}
	for _, table := range idx.tables {
		st.Buckets += len(table)
		for _, ids := range table {
			st.LargestBucket = max(st.LargestBucket, len(ids))
		}
	}
	return st
}
