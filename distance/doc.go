// Package distance provides vector similarity and distance calculations.
//
// # Supported Metrics
//
//   - MetricInnerProduct: inner product; equals cosine similarity on L2-normalized vectors
//   - MetricL2: squared Euclidean distance
//
// # Usage
//
//	sim := distance.Dot(a, b)
//	ok := distance.NormalizeL2InPlace(vec)
package distance
