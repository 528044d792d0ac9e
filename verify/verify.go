// Package verify re-checks candidate pairs against an exact scorer on a
// bounded worker pool.
package verify

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/hupe1980/neardup/pairs"
)

// Scorer computes the similarity or distance of items i and j.
type Scorer func(i, j uint32) (float64, error)

// Accept decides whether a score passes the threshold.
type Accept func(score float64) bool

// AtLeast accepts scores >= threshold (similarities).
func AtLeast(threshold float64) Accept {
	return func(score float64) bool { return score >= threshold }
}

// AtMost accepts scores <= threshold (distances).
func AtMost(threshold float64) Accept {
	return func(score float64) bool { return score <= threshold }
}

// Failure records a candidate that could not be scored.
type Failure struct {
	I      uint32 `json:"i" msgpack:"i" yaml:"i"`
	J      uint32 `json:"j" msgpack:"j" yaml:"j"`
	Reason string `json:"reason" msgpack:"reason" yaml:"reason"`
	Err    error  `json:"-" msgpack:"-" yaml:"-"`
}

func (f Failure) Error() string {
	return fmt.Sprintf("pair (%d, %d): %s", f.I, f.J, f.Reason)
}

func (f Failure) Unwrap() error { return f.Err }

// Options configures a Verifier.
type Options struct {
	// Workers bounds concurrent chunks. Zero means GOMAXPROCS.
	Workers int

	// ChunkSize is the number of candidates per work unit.
	ChunkSize int

	// ProgressInterval is the minimum time between progress records.
	// Zero disables progress logging.
	ProgressInterval time.Duration

	Logger *slog.Logger
}

// DefaultOptions contains the default verifier options.
var DefaultOptions = Options{
	Workers:          0,
	ChunkSize:        4096,
	ProgressInterval: 5 * time.Second,
}

// Verifier scores candidate pairs in parallel.
type Verifier struct {
	opts Options
}

// New creates a Verifier.
func New(optFns ...func(o *Options)) *Verifier {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultOptions.ChunkSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Verifier{opts: opts}
}

type chunkResult struct {
	passed   []pairs.Pair
	failures []Failure
}

// Run scores every candidate and returns the accepted pairs and the
// candidates whose scorer failed, both in candidate order. Self pairs are
// dropped. A scorer error never aborts the run; only ctx does.
func (v *Verifier) Run(ctx context.Context, candidates []pairs.Key, scorer Scorer, accept Accept) ([]pairs.Pair, []Failure, error) {
	if len(candidates) == 0 {
		return nil, nil, ctx.Err()
	}

	chunk := v.opts.ChunkSize
	numChunks := (len(candidates) + chunk - 1) / chunk
	results := make([]chunkResult, numChunks)

	var (
		done     atomic.Int64
		progress = rate.Sometimes{Interval: v.opts.ProgressInterval}
		total    = len(candidates)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.opts.Workers)

	for c := 0; c < numChunks; c++ {
		lo := c * chunk
		hi := min(lo+chunk, total)

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			var res chunkResult
			for n, key := range candidates[lo:hi] {
				if n&1023 == 1023 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}

				i, j := key.Split()
				if i == j {
					continue
				}

				score, err := scorer(i, j)
				if err != nil {
					res.failures = append(res.failures, Failure{I: i, J: j, Reason: err.Error(), Err: err})
					continue
				}
				if accept(score) {
					res.passed = append(res.passed, pairs.Pair{I: i, J: j, Score: score})
				}
			}
			results[c] = res

			finished := done.Add(int64(hi - lo))
			if v.opts.ProgressInterval > 0 {
				progress.Do(func() {
					v.opts.Logger.InfoContext(gctx, "verify progress",
						slog.Int64("done", finished),
						slog.Int("total", total),
					)
				})
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var (
		passed   []pairs.Pair
		failures []Failure
	)
	for _, r := range results {
		passed = append(passed, r.passed...)
		failures = append(failures, r.failures...)
	}
	return passed, failures, nil
}
