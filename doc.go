// Package neardup finds near-duplicate item pairs in a corpus without
// comparing all O(N²) pairs.
//
// Three backends share one pipeline shape. Signatures are generated, a
// candidate generator proposes pairs, an exact verifier re-checks each
// candidate against its threshold, and a pair store deduplicates and sorts
// the survivors.
//
//   - MinHash: Jaccard similarity of shingle sets, LSH banding over
//     permutation minimums.
//   - SimHash: Hamming distance of 128-bit random-projection signatures,
//     LSH banding over bit slices.
//   - Vectors: cosine similarity of L2-normalized embeddings, candidates
//     from a flat (exact) or IVF (approximate) top-k search.
//
// # Quick Start
//
//	cfg := neardup.DefaultConfig()
//	cfg.MinHash.JaccardThreshold = 0.8
//
//	d, _ := neardup.New(cfg, neardup.WithLogger(neardup.NewTextLogger(slog.LevelInfo)))
//	res, _ := d.Texts(ctx, texts)
//	for _, p := range res.Pairs {
//	    fmt.Println(p.I, p.J, p.Score)
//	}
//
// # Guarantees
//
// Every reported pair is canonical (I < J), never a self pair, appears once
// and satisfies its threshold. LSH and IVF candidate generation is
// probabilistic: a qualifying pair may be missed, never a false one kept.
//
// Items with empty MinHash or all-zero SimHash signatures, and zero vectors,
// are listed in Result.Degenerate. They are still indexed, so a corpus of
// many empty documents produces one large bucket; MaxBucketSize and
// BucketPolicy bound that cost.
//
// # Configuration
//
// Config carries YAML tags and is loaded with LoadConfig. Every
// configuration problem is a *ConfigError (or *ErrDimensionMismatch) that
// matches ErrInvalidConfig and is reported before any index is built.
package neardup
