package neardup

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/neardup/minhash"
	"github.com/hupe1980/neardup/pairs"
	"github.com/hupe1980/neardup/prefilter"
	"github.com/hupe1980/neardup/simhash"
	"github.com/hupe1980/neardup/testutil"
)

func newDetector(t *testing.T, mutate func(c *Config), optFns ...Option) *Detector {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	d, err := New(cfg, optFns...)
	require.NoError(t, err)
	return d
}

func assertCanonical(t *testing.T, ps []pairs.Pair) {
	t.Helper()
	seen := make(map[pairs.Key]struct{}, len(ps))
	for _, p := range ps {
		assert.Less(t, p.I, p.J, "pair %v not canonical", p)
		_, dup := seen[p.Key()]
		assert.False(t, dup, "pair %v reported twice", p)
		seen[p.Key()] = struct{}{}
	}
}

func TestNewInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinHash.Bands = 30

	_, err := New(cfg)
	require.ErrorIs(t, err, ErrInvalidConfig)

	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "minhash.bands", ce.Param)
}

func TestMinHashScenario(t *testing.T) {
	d := newDetector(t, func(c *Config) { c.MinHash.JaccardThreshold = 0.9 })

	h, err := minhash.New(128, 1)
	require.NoError(t, err)
	sigs := []minhash.Signature{
		h.Sum([]string{"abc", "bcd"}),
		h.Sum([]string{"abc", "bcd"}),
		h.Sum([]string{"xyz"}),
	}

	res, err := d.MinHash(context.Background(), sigs)
	require.NoError(t, err)
	assert.Equal(t, BackendMinHash, res.Backend)
	assert.Equal(t, []pairs.Pair{{I: 0, J: 1, Score: 1.0}}, res.Pairs)
	assert.Empty(t, res.Degenerate)
	assert.Empty(t, res.Failures)
	assert.Equal(t, 3, res.Stats.Items)
	assert.Equal(t, 32, res.Stats.Build.Bands)
	assert.Equal(t, 1, res.Stats.Candidates)
}

func TestTexts(t *testing.T) {
	rng := testutil.NewRNG(5)
	base := rng.Words(80)
	texts := []string{
		base,
		rng.ReplaceWords(base, 1),
		rng.Words(80),
		"HELLO   world",
	}

	d := newDetector(t, nil)
	res, err := d.Texts(context.Background(), texts)
	require.NoError(t, err)

	require.Len(t, res.Pairs, 1)
	assert.Equal(t, uint32(0), res.Pairs[0].I)
	assert.Equal(t, uint32(1), res.Pairs[0].J)
	assert.Greater(t, res.Pairs[0].Score, 0.7)
}

func TestTextsDegenerate(t *testing.T) {
	d := newDetector(t, nil)

	res, err := d.Texts(context.Background(), []string{"", "   ", "the quick brown fox"})
	require.NoError(t, err)

	// Empty documents are reported and still pair with each other.
	assert.Equal(t, []uint32{0, 1}, res.Degenerate)
	assert.Equal(t, []pairs.Pair{{I: 0, J: 1, Score: 1.0}}, res.Pairs)
}

func TestMinHashMalformed(t *testing.T) {
	d := newDetector(t, nil)

	h, _ := minhash.New(128, 1)
	sigs := []minhash.Signature{
		h.Sum([]string{"a", "b"}),
		{1, 2, 3},
		h.Sum([]string{"a", "b"}),
	}

	res, err := d.MinHash(context.Background(), sigs)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1}, res.Malformed)
	assert.Equal(t, 1, res.Stats.Build.Malformed)
	assert.Equal(t, []pairs.Pair{{I: 0, J: 2, Score: 1.0}}, res.Pairs)
}

func TestThresholdMonotonicity(t *testing.T) {
	rng := testutil.NewRNG(9)
	var texts []string
	for range 5 {
		base := rng.Words(40)
		texts = append(texts, base)
		for edits := 1; edits <= 8; edits *= 2 {
			texts = append(texts, rng.ReplaceWords(base, edits))
		}
	}

	var prev map[pairs.Key]struct{}
	for _, threshold := range []float64{0.2, 0.4, 0.6, 0.8, 1.0} {
		d := newDetector(t, func(c *Config) { c.MinHash.JaccardThreshold = threshold })
		res, err := d.Texts(context.Background(), texts)
		require.NoError(t, err)
		assertCanonical(t, res.Pairs)

		for i, p := range res.Pairs {
			assert.GreaterOrEqual(t, p.Score, threshold)
			if i > 0 {
				assert.GreaterOrEqual(t, res.Pairs[i-1].Score, p.Score)
			}
		}
		prev = assertNested(t, prev, res.Pairs)
	}
}

// assertNested checks that every pair in cur also appears in prev.
func assertNested(t *testing.T, prev map[pairs.Key]struct{}, cur []pairs.Pair) map[pairs.Key]struct{} {
	t.Helper()
	keys := make(map[pairs.Key]struct{}, len(cur))
	for _, p := range cur {
		keys[p.Key()] = struct{}{}
	}
	if prev != nil {
		assert.LessOrEqual(t, len(keys), len(prev))
		for k := range keys {
			assert.Contains(t, prev, k)
		}
	}
	return keys
}

func TestThresholdMonotonicity_SimHash(t *testing.T) {
	rng := testutil.NewRNG(11)
	var sigs []simhash.Signature
	for range 4 {
		base := simhash.Signature{Hi: uint64(rng.Intn(1 << 30)), Lo: uint64(rng.Intn(1 << 30))}
		sigs = append(sigs, base)
		for flips := 1; flips <= 24; flips *= 2 {
			s := base
			for range flips {
				s = s.FlipBit(rng.Intn(128))
			}
			sigs = append(sigs, s)
		}
	}

	var prev map[pairs.Key]struct{}
	for _, threshold := range []int{30, 20, 12, 6, 2, 0} {
		d := newDetector(t, func(c *Config) { c.SimHash.HammingThreshold = threshold })
		res, err := d.SimHash(context.Background(), sigs)
		require.NoError(t, err)
		assertCanonical(t, res.Pairs)

		for i, p := range res.Pairs {
			assert.LessOrEqual(t, p.Score, float64(threshold))
			if i > 0 {
				assert.LessOrEqual(t, res.Pairs[i-1].Score, p.Score)
			}
		}
		prev = assertNested(t, prev, res.Pairs)
	}
}

func TestThresholdMonotonicity_Vectors(t *testing.T) {
	rng := testutil.NewRNG(13)
	vecs := rng.ClusteredVectors(60, 16, 6, 0.2)
	for i := range 10 {
		vecs = append(vecs, rng.Perturb(vecs[i*5], 0.02))
	}

	var prev map[pairs.Key]struct{}
	for _, threshold := range []float64{0.3, 0.6, 0.8, 0.95, 0.999} {
		d := newDetector(t, func(c *Config) { c.Vectors.SimilarityThreshold = threshold })
		res, err := d.Vectors(context.Background(), vecs)
		require.NoError(t, err)
		assert.Equal(t, "flat", res.Stats.Index)
		assertCanonical(t, res.Pairs)

		for i, p := range res.Pairs {
			assert.GreaterOrEqual(t, p.Score, threshold)
			if i > 0 {
				assert.GreaterOrEqual(t, res.Pairs[i-1].Score, p.Score)
			}
		}
		prev = assertNested(t, prev, res.Pairs)
	}
}

func TestSimHashScenario(t *testing.T) {
	a := simhash.Signature{Hi: 0x0F0F0F0F0F0F0F0F, Lo: 0x00FF00FF00FF00FF}
	b := a
	for i := range 10 {
		b = b.FlipBit(i*8 + 3)
	}
	sigs := []simhash.Signature{a, b}

	d := newDetector(t, func(c *Config) { c.SimHash.HammingThreshold = 15 })
	res, err := d.SimHash(context.Background(), sigs)
	require.NoError(t, err)
	assert.Equal(t, []pairs.Pair{{I: 0, J: 1, Score: 10}}, res.Pairs)

	d = newDetector(t, func(c *Config) { c.SimHash.HammingThreshold = 5 })
	res, err = d.SimHash(context.Background(), sigs)
	require.NoError(t, err)
	assert.Empty(t, res.Pairs)
	assert.Equal(t, 1, res.Stats.Candidates)
}

func TestSimHashOrderAndDegenerate(t *testing.T) {
	base := simhash.Signature{Hi: 0xAAAAAAAAAAAAAAAA, Lo: 0x5555555555555555}
	sigs := []simhash.Signature{
		base,
		base.FlipBit(1).FlipBit(2),
		base.FlipBit(100),
		{},
		{},
	}

	d := newDetector(t, func(c *Config) { c.SimHash.HammingThreshold = 4 })
	res, err := d.SimHash(context.Background(), sigs)
	require.NoError(t, err)

	assert.Equal(t, []uint32{3, 4}, res.Degenerate)
	assert.Equal(t, []pairs.Pair{
		{I: 3, J: 4, Score: 0},
		{I: 0, J: 2, Score: 1},
		{I: 0, J: 1, Score: 2},
		{I: 1, J: 2, Score: 3},
	}, res.Pairs)
}

func TestSimHashVectors(t *testing.T) {
	rng := testutil.NewRNG(3)
	vecs := rng.UnitVectors(50, 32)
	vecs = append(vecs, rng.Perturb(vecs[7], 0.001))

	d := newDetector(t, func(c *Config) { c.SimHash.HammingThreshold = 10 })
	res, err := d.SimHashVectors(context.Background(), vecs)
	require.NoError(t, err)
	assertCanonical(t, res.Pairs)

	found := false
	for _, p := range res.Pairs {
		if p.I == 7 && p.J == 50 {
			found = true
		}
	}
	assert.True(t, found, "perturbed copy not found: %v", res.Pairs)

	_, err = d.SimHashVectors(context.Background(), [][]float32{{1, 0}, {1, 0, 0}})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestVectorsFlat(t *testing.T) {
	rng := testutil.NewRNG(21)
	vecs := rng.UnitVectors(100, 64)
	dup := rng.Perturb(vecs[3], 0.01)
	for i := range dup {
		dup[i] *= 3 // unnormalized input
	}
	vecs = append(vecs, dup, make([]float32, 64))

	metrics := &BasicMetricsCollector{}
	d := newDetector(t, nil, WithMetricsCollector(metrics))
	res, err := d.Vectors(context.Background(), vecs)
	require.NoError(t, err)

	assert.Equal(t, "flat", res.Stats.Index)
	assert.Equal(t, []uint32{101}, res.Degenerate)
	require.Len(t, res.Pairs, 1)
	assert.Equal(t, uint32(3), res.Pairs[0].I)
	assert.Equal(t, uint32(100), res.Pairs[0].J)
	assert.Greater(t, res.Pairs[0].Score, 0.99)

	// Caller's vectors are left untouched.
	assert.InDelta(t, 9.0, dotSelf(vecs[100]), 0.1)

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.BuildCount)
	assert.Equal(t, int64(1), stats.SearchCount)
	assert.Equal(t, int64(1), stats.VerifyPassed)
}

func dotSelf(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return s
}

func TestVectorsIVF(t *testing.T) {
	vecs := testutil.NewRNG(8).UnitVectors(2500, 8)

	d := newDetector(t, nil)
	res, err := d.Vectors(context.Background(), vecs)
	require.NoError(t, err)

	assert.Equal(t, "ivf(nlist=32, nprobe=20)", res.Stats.Index)
	assertCanonical(t, res.Pairs)
	for i, p := range res.Pairs {
		assert.GreaterOrEqual(t, p.Score, 0.9)
		assert.NotEqual(t, p.I, p.J)
		if i > 0 {
			assert.GreaterOrEqual(t, res.Pairs[i-1].Score, p.Score)
		}
	}
	assert.LessOrEqual(t, res.Stats.Candidates, 2500*4)
}

func TestVectorsConfigErrors(t *testing.T) {
	d := newDetector(t, nil)

	_, err := d.Vectors(context.Background(), [][]float32{{1, 0}, {0, 1, 0}})
	require.ErrorIs(t, err, ErrInvalidConfig)
	var dm *ErrDimensionMismatch
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 2, dm.Expected)
	assert.Equal(t, 3, dm.Actual)

	d = newDetector(t, func(c *Config) { c.Vectors.ANNThreshold = 10 })
	_, err = d.Vectors(context.Background(), testutil.NewRNG(1).UnitVectors(100, 4))
	require.ErrorIs(t, err, ErrInvalidConfig)

	res, err := d.Vectors(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Pairs)
}

func TestCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := newDetector(t, nil)
	_, err := d.Texts(ctx, []string{"some text here", "some text here"})
	require.ErrorIs(t, err, context.Canceled)

	_, err = d.Vectors(ctx, testutil.NewRNG(1).UnitVectors(10, 4))
	require.ErrorIs(t, err, context.Canceled)
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})).WithRunID("run-1")

	d := newDetector(t, nil, WithLogger(logger))
	_, err := d.Texts(context.Background(), []string{"", "alpha beta gamma", "alpha beta gamma"})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"run_id":"run-1"`)
	assert.Contains(t, out, `"backend":"minhash"`)
	assert.Contains(t, out, "build completed")
	assert.Contains(t, out, "verify completed")
	assert.Contains(t, out, "degenerate signatures")
}

func TestOversizedBuckets(t *testing.T) {
	texts := make([]string, 6)
	for i := range texts {
		texts[i] = "identical document body"
	}

	d := newDetector(t, func(c *Config) {
		c.MaxBucketSize = 3
		c.BucketPolicy = "skip"
	})
	res, err := d.Texts(context.Background(), texts)
	require.NoError(t, err)
	assert.Empty(t, res.Pairs)
	assert.Len(t, res.OversizedBuckets, 32)
	assert.True(t, res.OversizedBuckets[0].Skipped)

	d = newDetector(t, func(c *Config) { c.MaxBucketSize = 3 })
	res, err = d.Texts(context.Background(), texts)
	require.NoError(t, err)
	assert.Len(t, res.Pairs, 15)
	assert.Len(t, res.OversizedBuckets, 32)
}

func TestExact(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	d := newDetector(t, func(c *Config) { c.Prefilter.Confirm = true }, WithMetricsCollector(metrics))

	rep, err := d.Exact(context.Background(), []string{
		"Hello, World!",
		"hello world",
		"",
		"Goodbye world",
	})
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 3}, rep.Unique)
	assert.Equal(t, []uint32{1}, rep.Duplicates)
	assert.Equal(t, []uint32{2}, rep.Skipped)
	assert.Equal(t, uint32(0), rep.Originals[1])
	assert.Equal(t, int64(1), metrics.GetStats().BuildCount)
}

func TestExact_WithFilter(t *testing.T) {
	d := newDetector(t, nil)
	filter := prefilter.NewBloomFilterFor(100, 0.001)

	_, err := d.Exact(context.Background(), []string{"Hello, World!"}, func(o *prefilter.Options) {
		o.Filter = filter
	})
	require.NoError(t, err)

	rep, err := d.Exact(context.Background(), []string{"hello world", "Goodbye world"}, func(o *prefilter.Options) {
		o.Filter = filter
	})
	require.NoError(t, err)
	assert.Equal(t, []uint32{0}, rep.Known)
	assert.Equal(t, []uint32{1}, rep.Unique)
	assert.Empty(t, rep.Duplicates)
}
