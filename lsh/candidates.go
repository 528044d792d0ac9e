package lsh

import (
	"cmp"
	"context"
	"iter"
	"slices"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/neardup/pairs"
)

// flushSize is the number of pair keys buffered before they are added to the
// candidate bitmap in one batch.
const flushSize = 1 << 14

// OversizedBucket describes a bucket larger than Options.MaxBucketSize.
type OversizedBucket struct {
	Band    int    `json:"band" msgpack:"band" yaml:"band"`
	Size    int    `json:"size" msgpack:"size" yaml:"size"`
	FirstID uint32 `json:"first_id" msgpack:"first_id" yaml:"first_id"`
	Skipped bool   `json:"skipped" msgpack:"skipped" yaml:"skipped"`
}

// CandidateSet is the deduplicated set of candidate pairs.
type CandidateSet struct {
	bm        *roaring64.Bitmap
	oversized []OversizedBucket
}

// Candidates emits every unordered pair of items sharing a bucket in at least
// one band. A pair colliding in several bands is kept once.
//
// A bucket of k items yields k*(k-1)/2 pairs. Buckets larger than
// MaxBucketSize are logged and recorded; with BucketPolicySkip their pairs are
// not generated.
func (idx *Index) Candidates(ctx context.Context) (*CandidateSet, error) {
	log := idx.opts.logger()
	cs := &CandidateSet{bm: roaring64.New()}
	buf := make([]uint64, 0, flushSize)

	flush := func() {
		if len(buf) > 0 {
			cs.bm.AddMany(buf)
			buf = buf[:0]
		}
	}

	for band, table := range idx.tables {
		for _, ids := range table {
			if len(ids) < 2 {
				continue
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			if limit := idx.opts.MaxBucketSize; limit > 0 && len(ids) > limit {
				skip := idx.opts.BucketPolicy == BucketPolicySkip
				cs.oversized = append(cs.oversized, OversizedBucket{
					Band:    band,
					Size:    len(ids),
					FirstID: ids[0],
					Skipped: skip,
				})
				log.WarnContext(ctx, "oversized bucket",
					"band", band,
					"size", len(ids),
					"pairs", len(ids)*(len(ids)-1)/2,
					"policy", idx.opts.BucketPolicy.String(),
				)
				if skip {
					continue
				}
			}

			for a := 0; a < len(ids); a++ {
				for b := a + 1; b < len(ids); b++ {
					k, ok := pairs.MakeKey(ids[a], ids[b])
					if !ok {
						continue
					}
					buf = append(buf, uint64(k))
					if len(buf) == flushSize {
						flush()
						if err := ctx.Err(); err != nil {
							return nil, err
						}
					}
				}
			}
		}
	}
	flush()

	slices.SortFunc(cs.oversized, func(a, b OversizedBucket) int {
		if c := cmp.Compare(a.Band, b.Band); c != 0 {
			return c
		}
		return cmp.Compare(a.FirstID, b.FirstID)
	})

	return cs, nil
}

// Len returns the number of distinct candidate pairs.
func (cs *CandidateSet) Len() int {
	return int(cs.bm.GetCardinality())
}

// Contains reports whether {i, j} is a candidate.
func (cs *CandidateSet) Contains(i, j uint32) bool {
	k, ok := pairs.MakeKey(i, j)
	if !ok {
		return false
	}
	return cs.bm.Contains(uint64(k))
}

// Keys returns the candidate pairs in ascending (I, J) order.
func (cs *CandidateSet) Keys() []pairs.Key {
	raw := cs.bm.ToArray()
	keys := make([]pairs.Key, len(raw))
	for i, v := range raw {
		keys[i] = pairs.Key(v)
	}
	return keys
}

// All iterates the candidate pairs in ascending (I, J) order.
func (cs *CandidateSet) All() iter.Seq[pairs.Key] {
	return func(yield func(pairs.Key) bool) {
		it := cs.bm.Iterator()
		for it.HasNext() {
			if !yield(pairs.Key(it.Next())) {
				return
			}
		}
	}
}

// Oversized returns the buckets that exceeded MaxBucketSize, ordered by band.
func (cs *CandidateSet) Oversized() []OversizedBucket {
	return slices.Clone(cs.oversized)
}
