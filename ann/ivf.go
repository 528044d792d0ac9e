package ann

import (
	"context"
	"log/slog"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/neardup/distance"
	"github.com/hupe1980/neardup/internal/kmeans"
)

var _ Index = (*IVF)(nil)

// IVF is an inverted-file index: vectors are partitioned by their nearest
// k-means centroid and a query scans only the NProbe closest lists.
type IVF struct {
	dim       int
	n         int
	data      []float32
	kind      Kind
	centroids []float32
	lists     []*roaring.Bitmap
	opts      Options
}

func newIVF(ctx context.Context, data []float32, dim int, kind Kind, opts Options) (*IVF, error) {
	start := time.Now()

	centroids, err := kmeans.TrainKMeans(ctx, data, dim, kind.NList, distance.MetricInnerProduct, func(o *kmeans.Options) {
		o.MaxIter = opts.MaxIter
		o.Seed = opts.Seed
		o.Workers = opts.Workers
	})
	if err != nil {
		return nil, err
	}

	assignments, err := kmeans.Assign(ctx, data, centroids, dim, distance.MetricInnerProduct, opts.Workers)
	if err != nil {
		return nil, err
	}

	lists := make([]*roaring.Bitmap, kind.NList)
	for i := range lists {
		lists[i] = roaring.New()
	}
	for id, c := range assignments {
		lists[c].Add(uint32(id))
	}
	for _, l := range lists {
		l.RunOptimize()
	}

	opts.Logger.DebugContext(ctx, "ivf trained",
		slog.Int("vectors", len(assignments)),
		slog.Int("nlist", kind.NList),
		slog.Int("nprobe", kind.NProbe),
		slog.Duration("duration", time.Since(start)),
	)

	return &IVF{
		dim:       dim,
		n:         len(assignments),
		data:      data,
		kind:      kind,
		centroids: centroids,
		lists:     lists,
		opts:      opts,
	}, nil
}

// Kind implements Index.
func (ivf *IVF) Kind() Kind { return ivf.kind }

// Len implements Index.
func (ivf *IVF) Len() int { return ivf.n }

// Dimension implements Index.
func (ivf *IVF) Dimension() int { return ivf.dim }

// ListSizes returns the number of vectors per inverted list.
func (ivf *IVF) ListSizes() []int {
	sizes := make([]int, len(ivf.lists))
	for i, l := range ivf.lists {
		sizes[i] = int(l.GetCardinality())
	}
	return sizes
}

// Search scans the NProbe lists closest to each query.
func (ivf *IVF) Search(ctx context.Context, queries [][]float32, k int) ([][]Neighbor, error) {
	return searchAll(ctx, ivf.data, ivf.dim, queries, k, ivf.opts, func(q []float32, visit func(uint32)) {
		nearest, _ := kmeans.FindClosestCentroids(q, ivf.centroids, ivf.dim, ivf.kind.NProbe, distance.MetricInnerProduct)
		for _, c := range nearest {
			it := ivf.lists[c].Iterator()
			for it.HasNext() {
				visit(it.Next())
			}
		}
	})
}
