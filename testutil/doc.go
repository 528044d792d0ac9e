// Package testutil provides testing utilities for neardup.
//
// This package is intended for use in tests only. It provides seeded
// generators for vectors and texts, exact inner-product top-k ground truth,
// and recall computation.
//
// # Random Vector Generation
//
//	rng := testutil.NewRNG(seed)
//	vecs := rng.UnitVectors(1000, 64)
//	dup := rng.Perturb(vecs[0], 0.01)
//
// # Exact Search (Ground Truth)
//
//	results := testutil.ExactTopK(query, vecs, k)
//
// # Recall Verification
//
//	recall := testutil.ComputeRecall(exact, approx)
package testutil
