package kmeans

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/neardup/distance"
)

func TestTrainKMeans(t *testing.T) {
	ctx := context.Background()
	// 2 clusters: (0,0) and (10,10)
	vecs := []float32{
		0, 0, 0, 1, 1, 0, // near 0,0
		10, 10, 10, 11, 11, 10, // near 10,10
	}
	k := 2
	dim := 2

	centroids, err := TrainKMeans(ctx, vecs, dim, k, distance.MetricL2, func(o *Options) { o.MaxIter = 100 })
	require.NoError(t, err)
	assert.Len(t, centroids, k*dim)

	parts, err := Assign(ctx, []float32{0.5, 0.5, 10.5, 10.5}, centroids, dim, distance.MetricL2, 0)
	require.NoError(t, err)
	require.Len(t, parts, 2)
	assert.NotEqual(t, parts[0], parts[1])
}

func TestTrainKMeans_Deterministic(t *testing.T) {
	ctx := context.Background()
	vecs := make([]float32, 200*4)
	for i := range vecs {
		vecs[i] = float32((i*7919)%101) / 101
	}

	a, err := TrainKMeans(ctx, vecs, 4, 8, distance.MetricL2, func(o *Options) { o.Seed = 3; o.Workers = 3 })
	require.NoError(t, err)
	b, err := TrainKMeans(ctx, vecs, 4, 8, distance.MetricL2, func(o *Options) { o.Seed = 3; o.Workers = 1 })
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestTrainKMeans_Spherical(t *testing.T) {
	ctx := context.Background()
	vecs := []float32{
		1, 0, 0.9, 0.1, 0.95, -0.05,
		0, 1, 0.1, 0.9, -0.05, 0.95,
	}
	for i := 0; i < len(vecs); i += 2 {
		distance.NormalizeL2InPlace(vecs[i : i+2])
	}

	centroids, err := TrainKMeans(ctx, vecs, 2, 2, distance.MetricInnerProduct)
	require.NoError(t, err)

	for j := 0; j < 2; j++ {
		c := centroids[j*2 : (j+1)*2]
		assert.InDelta(t, 1.0, distance.Dot(c, c), 1e-5)
	}

	parts, err := Assign(ctx, []float32{1, 0, 0, 1}, centroids, 2, distance.MetricInnerProduct, 1)
	require.NoError(t, err)
	assert.NotEqual(t, parts[0], parts[1])
}

func TestTrainKMeans_NotEnoughVectors(t *testing.T) {
	ctx := context.Background()
	_, err := TrainKMeans(ctx, []float32{0, 0}, 2, 2, distance.MetricL2)
	require.ErrorIs(t, err, ErrTooFewVectors)

	_, err = TrainKMeans(ctx, []float32{0, 0}, 2, 0, distance.MetricL2)
	require.ErrorIs(t, err, ErrInvalidK)

	_, err = TrainKMeans(ctx, []float32{0, 0, 0}, 2, 1, distance.MetricL2)
	require.ErrorIs(t, err, ErrInvalidDimension)
}

func TestTrainKMeans_Error(t *testing.T) {
	ctx := context.Background()
	_, err := TrainKMeans(ctx, []float32{0, 0}, 2, 1, distance.Metric(999))
	assert.Error(t, err)
}

func TestTrainKMeans_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	// Large enough to require iteration
	vecs := make([]float32, 1000*2)
	for i := range vecs {
		vecs[i] = float32(i)
	}

	_, err := TrainKMeans(ctx, vecs, 2, 10, distance.MetricL2, func(o *Options) { o.MaxIter = 1000 })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAssign(t *testing.T) {
	centroids := []float32{
		0, 0,
		10, 10,
	}
	vecs := []float32{1, 1, 9, 9, 0, 0.5, 12, 8}

	got, err := Assign(context.Background(), vecs, centroids, 2, distance.MetricL2, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 0, 1}, got)

	_, err = Assign(context.Background(), vecs, nil, 2, distance.MetricL2, 2)
	require.ErrorIs(t, err, ErrInvalidK)
}

func TestFindClosestCentroids(t *testing.T) {
	centroids := []float32{
		0, 0, // 0
		10, 10, // 1
		20, 20, // 2
	}
	dim := 2

	// Query close to 0,0
	res, err := FindClosestCentroids([]float32{1, 1}, centroids, dim, 2, distance.MetricL2)
	require.NoError(t, err)
	assert.Len(t, res, 2)
	assert.Equal(t, 0, res[0])
	assert.Equal(t, 1, res[1])

	// Query close to 20,20
	res, err = FindClosestCentroids([]float32{19, 19}, centroids, dim, 1, distance.MetricL2)
	require.NoError(t, err)
	assert.Len(t, res, 1)
	assert.Equal(t, 2, res[0])

	// Equidistant: lower index first.
	res, err = FindClosestCentroids([]float32{5, 5}, centroids, dim, 3, distance.MetricL2)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, res)

	// Error case (invalid metric)
	_, err = FindClosestCentroids([]float32{0, 0}, centroids, dim, 1, distance.Metric(999))
	assert.Error(t, err)
}

func TestAssign_UnknownMetric(t *testing.T) {
	_, err := Assign(context.Background(), []float32{0, 0}, []float32{0, 0}, 2, distance.Metric(999), 1)
	assert.Error(t, err)
}
