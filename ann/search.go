package ann

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/hupe1980/neardup/distance"
	"github.com/hupe1980/neardup/internal/queue"
)

const searchChunk = 256

// candidateFunc feeds the vectors one query must be scored against into
// visit.
type candidateFunc func(query []float32, visit func(id uint32))

// searchAll runs one bounded top-k scan per query on a worker pool.
func searchAll(ctx context.Context, data []float32, dim int, queries [][]float32, k int, opts Options, candidates candidateFunc) ([][]Neighbor, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	for _, q := range queries {
		if dim > 0 && len(q) != dim {
			return nil, &ErrDimensionMismatch{Expected: dim, Actual: len(q)}
		}
	}

	results := make([][]Neighbor, len(queries))
	if len(data) == 0 {
		for i := range results {
			results[i] = []Neighbor{}
		}
		return results, ctx.Err()
	}

	var (
		done     atomic.Int64
		progress = rate.Sometimes{Interval: opts.ProgressInterval}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for lo := 0; lo < len(queries); lo += searchChunk {
		hi := min(lo+searchChunk, len(queries))

		g.Go(func() error {
			pq := queue.NewMax(min(k, len(data)/dim))
			for qi := lo; qi < hi; qi++ {
				if err := gctx.Err(); err != nil {
					return err
				}

				q := queries[qi]
				pq.Reset()
				candidates(q, func(id uint32) {
					vec := data[int(id)*dim : (int(id)+1)*dim]
					pq.PushBounded(queue.Item{ID: id, Distance: -distance.Dot(q, vec)}, k)
				})

				items := pq.Drain()
				out := make([]Neighbor, len(items))
				for i, it := range items {
					out[i] = Neighbor{ID: it.ID, Score: -it.Distance}
				}
				results[qi] = out
			}

			finished := done.Add(int64(hi - lo))
			if opts.ProgressInterval > 0 {
				progress.Do(func() {
					opts.Logger.InfoContext(gctx, "search progress",
						slog.Int64("done", finished),
						slog.Int("total", len(queries)),
					)
				})
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
