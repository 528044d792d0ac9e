// Package lsh implements the banding index and candidate collection shared by
// the MinHash and SimHash backends.
//
// A signature is split into B band keys by a Banding. Items whose keys are
// equal in at least one band land in a common bucket and become candidate
// pairs. For MinHash with R rows per band, two items with Jaccard similarity s
// collide with probability 1 - (1 - s^R)^B.
//
// # Usage
//
//	idx, err := lsh.Build(ctx, sigs, banding)
//	cands, err := idx.Candidates(ctx)
//	for key := range cands.All() {
//	    i, j := key.Split()
//	}
//
// Keys are compared as exact byte strings; no lossy hashing happens before the
// equality check.
package lsh
