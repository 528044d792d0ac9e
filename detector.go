package neardup

import (
	"context"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/neardup/ann"
	"github.com/hupe1980/neardup/distance"
	"github.com/hupe1980/neardup/lsh"
	"github.com/hupe1980/neardup/minhash"
	"github.com/hupe1980/neardup/pairs"
	"github.com/hupe1980/neardup/simhash"
	"github.com/hupe1980/neardup/verify"
)

// Backend names reported in results and logs.
const (
	BackendMinHash = "minhash"
	BackendSimHash = "simhash"
	BackendVectors = "vectors"
	BackendExact   = "exact"
)

// Stats summarizes one detection run.
type Stats struct {
	Items         int            `json:"items" msgpack:"items"`
	Index         string         `json:"index" msgpack:"index"`
	Build         lsh.BuildStats `json:"build" msgpack:"build"`
	Candidates    int            `json:"candidates" msgpack:"candidates"`
	Passed        int            `json:"passed" msgpack:"passed"`
	Failed        int            `json:"failed" msgpack:"failed"`
	BuildTime     time.Duration  `json:"build_time" msgpack:"build_time"`
	CandidateTime time.Duration  `json:"candidate_time" msgpack:"candidate_time"`
	VerifyTime    time.Duration  `json:"verify_time" msgpack:"verify_time"`
}

// Result is the outcome of one detection run.
type Result struct {
	Backend string `json:"backend" msgpack:"backend"`

	// Pairs holds the verified pairs, best first.
	Pairs []pairs.Pair `json:"pairs" msgpack:"pairs"`

	Stats Stats `json:"stats" msgpack:"stats"`

	// Degenerate lists items with empty or all-zero signatures. They are
	// still indexed.
	Degenerate []uint32 `json:"degenerate" msgpack:"degenerate"`

	// Malformed lists items whose signatures the banding rejected. They are
	// in no bucket.
	Malformed []uint32 `json:"malformed,omitempty" msgpack:"malformed,omitempty"`

	// Failures lists candidates whose signatures could not be compared.
	Failures []verify.Failure `json:"failures" msgpack:"failures"`

	OversizedBuckets []lsh.OversizedBucket `json:"oversized_buckets" msgpack:"oversized_buckets"`
}

// Detector finds near-duplicate pairs with a validated Config.
// It is safe for concurrent use.
type Detector struct {
	cfg    Config
	policy lsh.BucketPolicy
	opts   options
}

// New validates cfg and creates a Detector.
func New(cfg Config, optFns ...Option) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	policy, err := lsh.ParseBucketPolicy(cfg.BucketPolicy)
	if err != nil {
		return nil, translateError(err)
	}
	return &Detector{cfg: cfg, policy: policy, opts: applyOptions(optFns)}, nil
}

// Config returns the detector configuration.
func (d *Detector) Config() Config { return d.cfg }

// Texts shingles and MinHash-signs texts, then runs MinHash detection.
func (d *Detector) Texts(ctx context.Context, texts []string) (*Result, error) {
	h, err := minhash.New(d.cfg.MinHash.NumPerm, uint64(d.cfg.Seed))
	if err != nil {
		return nil, translateError(err)
	}

	sigs := make([]minhash.Signature, len(texts))
	for i, text := range texts {
		if i&1023 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		sigs[i] = h.Sum(minhash.Shingles(text, d.cfg.MinHash.ShingleSize))
	}
	return d.MinHash(ctx, sigs)
}

// MinHash finds pairs whose estimated Jaccard similarity reaches the
// configured threshold. Pairs are ordered by similarity descending.
func (d *Detector) MinHash(ctx context.Context, sigs []minhash.Signature) (*Result, error) {
	mh := d.cfg.MinHash
	banding, err := minhash.NewBanding(mh.NumPerm, mh.Bands, mh.Rows)
	if err != nil {
		return nil, translateError(err)
	}

	scorer := func(i, j uint32) (float64, error) {
		return minhash.Jaccard(sigs[i], sigs[j])
	}

	return runLSH(ctx, d, BackendMinHash, sigs, banding, minhash.Signature.IsEmpty,
		scorer, verify.AtLeast(mh.JaccardThreshold), pairs.Descending)
}

// SimHashVectors SimHash-signs vectors, then runs SimHash detection.
func (d *Detector) SimHashVectors(ctx context.Context, vecs [][]float32) (*Result, error) {
	if len(vecs) == 0 {
		return d.SimHash(ctx, nil)
	}

	h, err := simhash.New(len(vecs[0]), d.cfg.SimHash.HashBits, d.cfg.Seed)
	if err != nil {
		return nil, translateError(err)
	}

	sigs := make([]simhash.Signature, len(vecs))
	for i, v := range vecs {
		if i&1023 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if sigs[i], err = h.Sum(v); err != nil {
			return nil, translateError(err)
		}
	}
	return d.SimHash(ctx, sigs)
}

// SimHash finds pairs within the configured Hamming distance. Pairs are
// ordered by distance ascending.
func (d *Detector) SimHash(ctx context.Context, sigs []simhash.Signature) (*Result, error) {
	sh := d.cfg.SimHash
	banding, err := simhash.NewBanding(sh.HashBits, sh.Bands)
	if err != nil {
		return nil, translateError(err)
	}

	scorer := func(i, j uint32) (float64, error) {
		return float64(simhash.Hamming(sigs[i], sigs[j])), nil
	}

	return runLSH(ctx, d, BackendSimHash, sigs, banding, simhash.Signature.IsZero,
		scorer, verify.AtMost(float64(sh.HammingThreshold)), pairs.Ascending)
}

func runLSH[S any](
	ctx context.Context,
	d *Detector,
	backend string,
	sigs []S,
	banding lsh.Banding[S],
	degenerate func(S) bool,
	scorer verify.Scorer,
	accept verify.Accept,
	order pairs.Order,
) (*Result, error) {
	log := d.opts.logger.WithBackend(backend)
	mc := d.opts.metricsCollector
	res := &Result{Backend: backend, Stats: Stats{Items: len(sigs), Index: "lsh"}}

	empty := roaring.New()
	for i, s := range sigs {
		if degenerate(s) {
			empty.Add(uint32(i))
		}
	}
	res.Degenerate = empty.ToArray()
	log.LogDegenerate(ctx, res.Degenerate)

	start := time.Now()
	idx, err := lsh.Build(ctx, sigs, banding, func(o *lsh.Options) {
		o.Workers = d.cfg.Workers
		o.MaxBucketSize = d.cfg.MaxBucketSize
		o.BucketPolicy = d.policy
		o.Logger = log.Logger
	})
	res.Stats.BuildTime = time.Since(start)
	mc.RecordBuild(len(sigs), res.Stats.BuildTime, err)
	log.LogBuild(ctx, len(sigs), res.Stats.Index, res.Stats.BuildTime, err)
	if err != nil {
		return nil, translateError(err)
	}
	res.Stats.Build = idx.Stats()
	res.Malformed = idx.Malformed()

	start = time.Now()
	cs, err := idx.Candidates(ctx)
	if err != nil {
		return nil, err
	}
	res.Stats.CandidateTime = time.Since(start)
	res.Stats.Candidates = cs.Len()
	res.OversizedBuckets = cs.Oversized()
	mc.RecordCandidates(cs.Len(), len(res.OversizedBuckets), res.Stats.CandidateTime)
	log.LogCandidates(ctx, cs.Len(), len(res.OversizedBuckets), res.Stats.CandidateTime)

	if err := d.verify(ctx, log, res, cs.Keys(), scorer, accept, order); err != nil {
		return nil, err
	}
	return res, nil
}

// Vectors L2-normalizes copies of vecs, searches each vector's TopK nearest
// neighbors on a flat or IVF index and keeps the pairs whose cosine
// similarity reaches the configured threshold. Pairs are ordered by
// similarity descending. Zero vectors are reported as degenerate.
func (d *Detector) Vectors(ctx context.Context, vecs [][]float32) (*Result, error) {
	log := d.opts.logger.WithBackend(BackendVectors)
	mc := d.opts.metricsCollector
	vc := d.cfg.Vectors
	res := &Result{Backend: BackendVectors, Stats: Stats{Items: len(vecs)}}

	if len(vecs) == 0 {
		res.Stats.Index = ann.TypeFlat.String()
		return res, ctx.Err()
	}

	dim := len(vecs[0])
	normalized := make([][]float32, len(vecs))
	empty := roaring.New()
	for i, v := range vecs {
		if len(v) != dim {
			return nil, &ErrDimensionMismatch{Expected: dim, Actual: len(v)}
		}
		nv, ok := distance.NormalizeL2Copy(v)
		if !ok {
			nv = make([]float32, dim)
			empty.Add(uint32(i))
		}
		normalized[i] = nv
	}
	res.Degenerate = empty.ToArray()
	log.LogDegenerate(ctx, res.Degenerate)

	kind, err := ann.SelectWithThreshold(len(normalized), dim, vc.ANNThreshold)
	if err != nil {
		return nil, translateError(err)
	}
	res.Stats.Index = kind.String()

	annOpts := func(o *ann.Options) {
		o.Workers = d.cfg.Workers
		o.Seed = d.cfg.Seed
		o.Logger = log.Logger
		o.ProgressInterval = d.opts.progressInterval
	}

	start := time.Now()
	idx, err := ann.Build(ctx, normalized, kind, annOpts)
	res.Stats.BuildTime = time.Since(start)
	mc.RecordBuild(len(normalized), res.Stats.BuildTime, err)
	log.LogBuild(ctx, len(normalized), res.Stats.Index, res.Stats.BuildTime, err)
	if err != nil {
		return nil, translateError(err)
	}

	start = time.Now()
	neighbors, err := idx.Search(ctx, normalized, vc.TopK)
	mc.RecordSearch(len(normalized), vc.TopK, time.Since(start), err)
	log.LogSearch(ctx, len(normalized), vc.TopK, err)
	if err != nil {
		return nil, translateError(err)
	}

	cands := roaring64.New()
	for i, nbrs := range neighbors {
		for _, nb := range nbrs {
			if key, ok := pairs.MakeKey(uint32(i), nb.ID); ok {
				cands.Add(uint64(key))
			}
		}
	}
	res.Stats.CandidateTime = time.Since(start)
	res.Stats.Candidates = int(cands.GetCardinality())
	mc.RecordCandidates(res.Stats.Candidates, 0, res.Stats.CandidateTime)
	log.LogCandidates(ctx, res.Stats.Candidates, 0, res.Stats.CandidateTime)

	keys := make([]pairs.Key, 0, res.Stats.Candidates)
	it := cands.Iterator()
	for it.HasNext() {
		keys = append(keys, pairs.Key(it.Next()))
	}

	scorer := func(i, j uint32) (float64, error) {
		return float64(distance.Dot(normalized[i], normalized[j])), nil
	}
	if err := d.verify(ctx, log, res, keys, scorer, verify.AtLeast(vc.SimilarityThreshold), pairs.Descending); err != nil {
		return nil, err
	}
	return res, nil
}

func (d *Detector) verify(ctx context.Context, log *Logger, res *Result, keys []pairs.Key, scorer verify.Scorer, accept verify.Accept, order pairs.Order) error {
	v := verify.New(func(o *verify.Options) {
		o.Workers = d.cfg.Workers
		o.Logger = log.Logger
		o.ProgressInterval = d.opts.progressInterval
	})

	start := time.Now()
	passed, failures, err := v.Run(ctx, keys, scorer, accept)
	if err != nil {
		return err
	}
	res.Stats.VerifyTime = time.Since(start)

	store := pairs.NewStore(order)
	store.Add(passed...)
	res.Pairs = store.Finalize()
	res.Failures = failures
	res.Stats.Passed = len(res.Pairs)
	res.Stats.Failed = len(failures)

	d.opts.metricsCollector.RecordVerify(len(keys), res.Stats.Passed, res.Stats.Failed, res.Stats.VerifyTime)
	log.LogVerify(ctx, len(keys), res.Stats.Passed, res.Stats.Failed, res.Stats.VerifyTime)
	return nil
}
