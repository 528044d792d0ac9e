// Package prefilter detects exact duplicates of normalized text with a Bloom
// filter.
//
// A Bloom filter can say definitively that a text has NOT been seen, but may
// have false positives when saying it has. Without confirmation a false
// positive reports a unique text as a duplicate; with Options.Confirm every
// positive is checked against the exact set of normalized texts seen so far.
package prefilter
