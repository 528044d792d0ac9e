// Package ann provides inner-product nearest-neighbor search over
// L2-normalized vectors.
//
// Select picks the index kind from the corpus size: an exact Flat index for
// small corpora and an IVF (inverted file) index with a k-means coarse
// quantizer otherwise. Both return neighbors ranked by similarity descending
// with ties broken by ascending id; a corpus vector searching for itself
// finds itself at rank 0.
//
// # Usage
//
//	kind, _ := ann.Select(len(vecs), dim)
//	idx, _ := ann.Build(ctx, vecs, kind)
//	neighbors, _ := idx.Search(ctx, vecs, 5)
package ann
