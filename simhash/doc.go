// Package simhash provides 128-bit random-hyperplane SimHash signatures,
// Hamming distance and LSH banding over bit slices.
//
// Bit 0 of a Signature is the least significant bit of Lo; the full value is
// (Hi<<64)|Lo. A band of width w covers bits [b*w, (b+1)*w) and may straddle
// the 64-bit word boundary.
package simhash
