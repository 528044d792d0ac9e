package lsh

import (
	"fmt"
	"log/slog"
	"runtime"
)

// BucketPolicy decides what happens to buckets larger than MaxBucketSize.
type BucketPolicy int

const (
	// BucketPolicyWarn enumerates oversized buckets and records them.
	BucketPolicyWarn BucketPolicy = iota
	// BucketPolicySkip records oversized buckets without enumerating their pairs.
	BucketPolicySkip
)

func (p BucketPolicy) String() string {
	switch p {
	case BucketPolicyWarn:
		return "warn"
	case BucketPolicySkip:
		return "skip"
	default:
		return fmt.Sprintf("Unknown(%d)", p)
	}
}

// ParseBucketPolicy parses "warn" or "skip".
func ParseBucketPolicy(s string) (BucketPolicy, error) {
	switch s {
	case "", "warn":
		return BucketPolicyWarn, nil
	case "skip":
		return BucketPolicySkip, nil
	default:
		return 0, fmt.Errorf("lsh: unknown bucket policy %q", s)
	}
}

// Options contains configuration options for building and querying an Index.
type Options struct {
	// Workers bounds the number of bands built concurrently.
	// Zero means GOMAXPROCS.
	Workers int

	// MaxBucketSize is the bucket size above which BucketPolicy applies.
	// Zero disables the check.
	MaxBucketSize int

	// BucketPolicy selects how oversized buckets are handled.
	BucketPolicy BucketPolicy

	// Logger receives warnings about oversized buckets. Nil discards.
	Logger *slog.Logger
}

// DefaultOptions contains the default configuration options for an Index.
var DefaultOptions = Options{
	Workers:       0,
	MaxBucketSize: 1000,
	BucketPolicy:  BucketPolicyWarn,
}

func (o *Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (o *Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}
