// Package minhash provides MinHash signatures and their LSH banding.
//
// A MinHash signature compresses a set of shingles into NumPerm minimum hash
// values, one per seeded permutation. The fraction of slots in which two
// signatures agree estimates the Jaccard similarity of the underlying sets;
// the estimate has standard error sqrt(s(1-s)/NumPerm), about 0.044 at
// s=0.5 with 128 permutations.
//
// # Usage
//
//	h, _ := minhash.New(128, 42)
//	a := h.Sum(minhash.Shingles(textA, 5))
//	b := h.Sum(minhash.Shingles(textB, 5))
//	s, _ := minhash.Jaccard(a, b)
//
//	banding, _ := minhash.NewBanding(128, 32, 4)
//	idx, _ := lsh.Build(ctx, sigs, banding)
package minhash
