// Package kmeans implements Lloyd's k-means clustering for coarse
// quantizer training.
//
// Used by the IVF index to learn the centroids of its inverted lists.
// With MetricInnerProduct the centroids are re-normalized after every update
// step (spherical k-means).
package kmeans
