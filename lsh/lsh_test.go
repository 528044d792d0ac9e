package lsh

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/neardup/pairs"
)

var errBadLength = errors.New("bad length")

// rowsBanding bands a []uint64 signature into contiguous groups of rows values.
type rowsBanding struct {
	bands, rows int
}

func (b rowsBanding) NumBands() int { return b.bands }

func (b rowsBanding) AppendKey(dst []byte, sig []uint64, band int) ([]byte, error) {
	if len(sig) != b.bands*b.rows {
		return dst, errBadLength
	}
	for _, v := range sig[band*b.rows : (band+1)*b.rows] {
		dst = binary.BigEndian.AppendUint64(dst, v)
	}
	return dst, nil
}

func TestBuildBuckets(t *testing.T) {
	sigs := [][]uint64{
		{1, 2, 3, 4},
		{1, 2, 9, 9},
		{7, 7, 3, 4},
		{5, 5, 5, 5},
	}
	idx, err := Build(context.Background(), sigs, rowsBanding{bands: 2, rows: 2})
	require.NoError(t, err)

	assert.Equal(t, 4, idx.Len())
	assert.Equal(t, 2, idx.NumBands())

	key, _ := rowsBanding{bands: 2, rows: 2}.AppendKey(nil, sigs[0], 0)
	assert.Equal(t, []uint32{0, 1}, idx.Bucket(0, key))

	key, _ = rowsBanding{bands: 2, rows: 2}.AppendKey(nil, sigs[0], 1)
	assert.Equal(t, []uint32{0, 2}, idx.Bucket(1, key))

	assert.Nil(t, idx.Bucket(5, key))

	st := idx.Stats()
	assert.Equal(t, 4, st.Items)
	assert.Equal(t, 2, st.Bands)
	assert.Equal(t, 6, st.Buckets)
	assert.Equal(t, 2, st.LargestBucket)
	assert.Equal(t, 0, st.Malformed)

	total := 0
	for _, ids := range idx.Buckets(0) {
		total += len(ids)
	}
	assert.Equal(t, 4, total)
}

func TestCandidatesDedupAcrossBands(t *testing.T) {
	sigs := [][]uint64{
		{1, 1, 2, 2},
		{1, 1, 2, 2},
		{3, 3, 4, 4},
	}
	idx, err := Build(context.Background(), sigs, rowsBanding{bands: 2, rows: 2})
	require.NoError(t, err)

	cs, err := idx.Candidates(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, cs.Len())
	assert.True(t, cs.Contains(0, 1))
	assert.True(t, cs.Contains(1, 0))
	assert.False(t, cs.Contains(0, 2))
	assert.False(t, cs.Contains(1, 1))

	k, _ := pairs.MakeKey(0, 1)
	assert.Equal(t, []pairs.Key{k}, cs.Keys())
}

func TestCandidatesCanonical(t *testing.T) {
	sigs := make([][]uint64, 6)
	for i := range sigs {
		sigs[i] = []uint64{uint64(i % 2), 0}
	}
	idx, err := Build(context.Background(), sigs, rowsBanding{bands: 2, rows: 1})
	require.NoError(t, err)

	cs, err := idx.Candidates(context.Background())
	require.NoError(t, err)

	// Band 1 puts everything in one bucket: C(6,2).
	assert.Equal(t, 15, cs.Len())

	var prev pairs.Key
	for k := range cs.All() {
		i, j := k.Split()
		assert.Less(t, i, j)
		assert.Greater(t, k, prev)
		prev = k
	}
}

func TestCandidatesOversized(t *testing.T) {
	sigs := make([][]uint64, 10)
	for i := range sigs {
		sigs[i] = []uint64{0}
	}

	t.Run("warn", func(t *testing.T) {
		idx, err := Build(context.Background(), sigs, rowsBanding{bands: 1, rows: 1}, func(o *Options) {
			o.MaxBucketSize = 4
		})
		require.NoError(t, err)

		cs, err := idx.Candidates(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 45, cs.Len())
		require.Len(t, cs.Oversized(), 1)
		assert.Equal(t, OversizedBucket{Band: 0, Size: 10, FirstID: 0, Skipped: false}, cs.Oversized()[0])
	})

	t.Run("skip", func(t *testing.T) {
		idx, err := Build(context.Background(), sigs, rowsBanding{bands: 1, rows: 1}, func(o *Options) {
			o.MaxBucketSize = 4
			o.BucketPolicy = BucketPolicySkip
		})
		require.NoError(t, err)

		cs, err := idx.Candidates(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, cs.Len())
		require.Len(t, cs.Oversized(), 1)
		assert.True(t, cs.Oversized()[0].Skipped)
	})

	t.Run("unlimited", func(t *testing.T) {
		idx, err := Build(context.Background(), sigs, rowsBanding{bands: 1, rows: 1}, func(o *Options) {
			o.MaxBucketSize = 0
		})
		require.NoError(t, err)

		cs, err := idx.Candidates(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 45, cs.Len())
		assert.Empty(t, cs.Oversized())
	})
}

func TestBuildMalformed(t *testing.T) {
	sigs := [][]uint64{{1, 2}, {1}, {1, 2}}
	idx, err := Build(context.Background(), sigs, rowsBanding{bands: 2, rows: 1})
	require.NoError(t, err)

	assert.Equal(t, []uint32{1}, idx.Malformed())
	assert.Equal(t, 1, idx.Stats().Malformed)

	cs, err := idx.Candidates(context.Background())
	require.NoError(t, err)
	assert.True(t, cs.Contains(0, 2))
	assert.False(t, cs.Contains(0, 1))
}

func TestBuildInvalid(t *testing.T) {
	_, err := Build[[]uint64](context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrInvalidBanding)

	_, err = Build(context.Background(), [][]uint64{{1}}, rowsBanding{bands: 0, rows: 1})
	assert.ErrorIs(t, err, ErrInvalidBanding)

	_, err = Build(context.Background(), [][]uint64{{1}}, rowsBanding{bands: 1, rows: 1}, func(o *Options) {
		o.MaxBucketSize = -1
	})
	assert.Error(t, err)
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Build(ctx, [][]uint64{{1}, {1}}, rowsBanding{bands: 1, rows: 1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCandidatesCancelled(t *testing.T) {
	idx, err := Build(context.Background(), [][]uint64{{1}, {1}}, rowsBanding{bands: 1, rows: 1})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = idx.Candidates(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEmptyIndex(t *testing.T) {
	idx, err := Build(context.Background(), [][]uint64{}, rowsBanding{bands: 4, rows: 1})
	require.NoError(t, err)

	cs, err := idx.Candidates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, cs.Len())
	assert.Empty(t, idx.Malformed())
}

func TestCollisionProbability(t *testing.T) {
	assert.InDelta(t, 1.0, CollisionProbability(1, 32, 4), 1e-12)
	assert.InDelta(t, 0.0, CollisionProbability(0, 32, 4), 1e-12)

	// S-curve is monotone in s.
	prev := 0.0
	for s := 0.0; s <= 1.0; s += 0.05 {
		p := CollisionProbability(s, 32, 4)
		assert.GreaterOrEqual(t, p, prev)
		prev = p
	}

	assert.InDelta(t, 0.42, Threshold(32, 4), 0.01)
	assert.Zero(t, Threshold(0, 4))
	assert.Zero(t, CollisionProbability(0.5, 0, 4))
}

func TestParseBucketPolicy(t *testing.T) {
	p, err := ParseBucketPolicy("skip")
	require.NoError(t, err)
	assert.Equal(t, BucketPolicySkip, p)
	assert.Equal(t, "skip", p.String())

	p, err = ParseBucketPolicy("")
	require.NoError(t, err)
	assert.Equal(t, BucketPolicyWarn, p)

	_, err = ParseBucketPolicy("drop")
	assert.Error(t, err)
}
