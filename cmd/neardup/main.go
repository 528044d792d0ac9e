// Package main provides the neardup CLI.
//
// Usage:
//
//	neardup [flags] <backend> <corpus>
//
// Backends:
//
//	minhash  - articles JSON, shingled and MinHash-banded
//	simhash  - embeddings, SimHash-banded
//	vectors  - embeddings, flat or IVF neighbor search
//	exact    - articles JSON, bloom-filter exact duplicates
//
// A corpus is a local path, s3://bucket/key or minio://bucket/key. A ".zst"
// or ".lz4" suffix is decompressed.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
