package kmeans

import (
	"cmp"
	"context"
	"errors"
	"math"
	"math/rand"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/neardup/distance"
)

var (
	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("kmeans: k must be positive")

	// ErrTooFewVectors is returned when there are fewer vectors than clusters.
	ErrTooFewVectors = errors.New("kmeans: fewer vectors than clusters")

	// ErrInvalidDimension is returned when the flattened input is not a
	// multiple of dim.
	ErrInvalidDimension = errors.New("kmeans: invalid dimension")
)

// Options configures training.
type Options struct {
	// MaxIter bounds the number of Lloyd iterations.
	MaxIter int

	// Seed drives centroid initialization and empty-cluster reseeding.
	Seed int64

	// Workers bounds the parallel assignment step. Zero means GOMAXPROCS.
	Workers int
}

// DefaultOptions contains the default training options.
var DefaultOptions = Options{
	MaxIter: 25,
	Seed:    1,
	Workers: 0,
}

// TrainKMeans trains k centroids from the given vectors using Lloyd's algorithm.
// It returns the flattened centroids (k * dim).
func TrainKMeans(ctx context.Context, vectors []float32, dim int, k int, metric distance.Metric, optFns ...func(o *Options)) ([]float32, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if dim <= 0 || len(vectors)%dim != 0 {
		return nil, ErrInvalidDimension
	}
	if k <= 0 {
		return nil, ErrInvalidK
	}

	n := len(vectors) / dim
	if n < k {
		return nil, ErrTooFewVectors
	}

	distFunc, err := distance.Provider(metric)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	centroids := make([]float32, k*dim)

	perm := rng.Perm(n)
	for i := 0; i < k; i++ {
		copy(centroids[i*dim:(i+1)*dim], vectors[perm[i]*dim:(perm[i]+1)*dim])
	}
	if metric == distance.MetricInnerProduct {
		normalizeRows(centroids, dim)
	}

	assignments := make([]int, n)
	for i := range assignments {
		assignments[i] = -1
	}
	counts := make([]int, k)
	sums := make([]float32, k*dim)

	for iter := 0; iter < opts.MaxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		changed, err := assign(ctx, vectors, centroids, dim, distFunc, assignments, opts.Workers)
		if err != nil {
			return nil, err
		}
		if changed == 0 {
			break
		}

		clear(sums)
		clear(counts)

		for i := 0; i < n; i++ {
			cluster := assignments[i]
			vec := vectors[i*dim : (i+1)*dim]
			row := sums[cluster*dim : (cluster+1)*dim]
			for d := range row {
				row[d] += vec[d]
			}
			counts[cluster]++
		}

		for j := 0; j < k; j++ {
			if counts[j] > 0 {
				scale := 1.0 / float32(counts[j])
				for d := 0; d < dim; d++ {
					centroids[j*dim+d] = sums[j*dim+d] * scale
				}
			} else {
				idx := rng.Intn(n)
				copy(centroids[j*dim:(j+1)*dim], vectors[idx*dim:(idx+1)*dim])
			}
		}

		if metric == distance.MetricInnerProduct {
			normalizeRows(centroids, dim)
		}
	}

	return centroids, nil
}

// Assign returns the closest centroid of every vector, computed in parallel.
func Assign(ctx context.Context, vectors []float32, centroids []float32, dim int, metric distance.Metric, workers int) ([]int, error) {
	if dim <= 0 || len(vectors)%dim != 0 || len(centroids)%dim != 0 {
		return nil, ErrInvalidDimension
	}
	if len(centroids) == 0 {
		return nil, ErrInvalidK
	}

	distFunc, err := distance.Provider(metric)
	if err != nil {
		return nil, err
	}

	assignments := make([]int, len(vectors)/dim)
	for i := range assignments {
		assignments[i] = -1
	}
	if _, err := assign(ctx, vectors, centroids, dim, distFunc, assignments, workers); err != nil {
		return nil, err
	}
	return assignments, nil
}

// assign updates assignments in place and returns how many changed.
func assign(ctx context.Context, vectors, centroids []float32, dim int, distFunc distance.Func, assignments []int, workers int) (int, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	n := len(assignments)
	shard := max((n+workers-1)/workers, 1)
	changed := make([]int, (n+shard-1)/shard)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for s := range changed {
		lo := s * shard
		hi := min(lo+shard, n)

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := lo; i < hi; i++ {
				best := closest(vectors[i*dim:(i+1)*dim], centroids, dim, distFunc)
				if assignments[i] != best {
					assignments[i] = best
					changed[s]++
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}

	total := 0
	for _, c := range changed {
		total += c
	}
	return total, nil
}

func closest(vec, centroids []float32, dim int, distFunc distance.Func) int {
	bestCluster := -1
	minDist := float32(math.MaxFloat32)

	for j := 0; j < len(centroids)/dim; j++ {
		d := distFunc(vec, centroids[j*dim:(j+1)*dim])
		if bestCluster < 0 || d < minDist {
			minDist = d
			bestCluster = j
		}
	}
	return bestCluster
}

func normalizeRows(m []float32, dim int) {
	for i := 0; i+dim <= len(m); i += dim {
		distance.NormalizeL2InPlace(m[i : i+dim])
	}
}

type centroidDist struct {
	id   int
	dist float32
}

// FindClosestCentroids returns the indices of the n closest centroids to the
// query vector, nearest first. Ties go to the lower index.
func FindClosestCentroids(query []float32, centroids []float32, dim int, n int, metric distance.Metric) ([]int, error) {
	k := len(centroids) / dim
	if n > k {
		n = k
	}

	distFunc, err := distance.Provider(metric)
	if err != nil {
		return nil, err
	}

	dists := make([]centroidDist, k)
	for i := 0; i < k; i++ {
		dists[i] = centroidDist{id: i, dist: distFunc(query, centroids[i*dim:(i+1)*dim])}
	}

	slices.SortFunc(dists, func(a, b centroidDist) int {
		if c := cmp.Compare(a.dist, b.dist); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})

	result := make([]int, n)
	for i := 0; i < n; i++ {
		result[i] = dists[i].id
	}

	return result, nil
}
