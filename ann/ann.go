package ann

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"time"
)

const (
	// Threshold is the corpus size from which IVF is selected.
	Threshold = 2000

	// MinPointsPerCentroid is the minimum number of training vectors per
	// inverted list.
	MinPointsPerCentroid = 39

	// MaxProbes caps the number of inverted lists visited per query.
	MaxProbes = 20

	largeCorpus = 100000
)

var (
	// ErrTooFewPoints is returned when IVF training has fewer than
	// NList*MinPointsPerCentroid vectors.
	ErrTooFewPoints = errors.New("ann: too few training points")

	// ErrInvalidK is returned for a non-positive k.
	ErrInvalidK = errors.New("ann: k must be positive")

	// ErrInvalidKind is returned for an unknown or inconsistent index kind.
	ErrInvalidKind = errors.New("ann: invalid index kind")

	// ErrInvalidDimension is returned for a non-positive dimension.
	ErrInvalidDimension = errors.New("ann: dimension must be positive")
)

// ErrDimensionMismatch is a named error type for dimension mismatch.
type ErrDimensionMismatch struct {
	Expected int // Expected dimensions
	Actual   int // Actual dimensions
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("ann: dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Type identifies an index implementation.
type Type int

const (
	TypeFlat Type = iota
	TypeIVF
)

func (t Type) String() string {
	switch t {
	case TypeFlat:
		return "flat"
	case TypeIVF:
		return "ivf"
	default:
		return fmt.Sprintf("Unknown(%d)", t)
	}
}

// Kind describes the index to build.
type Kind struct {
	Type   Type `json:"type" yaml:"type"`
	NList  int  `json:"nlist,omitempty" yaml:"nlist,omitempty"`
	NProbe int  `json:"nprobe,omitempty" yaml:"nprobe,omitempty"`
}

func (k Kind) String() string {
	if k.Type == TypeIVF {
		return fmt.Sprintf("ivf(nlist=%d, nprobe=%d)", k.NList, k.NProbe)
	}
	return k.Type.String()
}

// Select chooses the index kind for a corpus of n vectors of dimension dim.
func Select(n, dim int) (Kind, error) {
	return SelectWithThreshold(n, dim, Threshold)
}

// SelectWithThreshold is like Select with a custom flat/IVF cutoff.
func SelectWithThreshold(n, dim, threshold int) (Kind, error) {
	if dim <= 0 {
		return Kind{}, ErrInvalidDimension
	}
	if n < 0 {
		return Kind{}, fmt.Errorf("%w: negative corpus size %d", ErrInvalidKind, n)
	}
	if n < threshold {
		return Kind{Type: TypeFlat}, nil
	}

	root := int(math.Sqrt(float64(n)))
	var nlist int
	if n < largeCorpus {
		nlist = max(32, min(n/100, root))
	} else {
		nlist = max(100, root)
	}

	kind := Kind{Type: TypeIVF, NList: nlist, NProbe: min(MaxProbes, nlist)}
	if err := kind.validate(n); err != nil {
		return Kind{}, err
	}
	return kind, nil
}

func (k Kind) validate(n int) error {
	switch k.Type {
	case TypeFlat:
		return nil
	case TypeIVF:
		if k.NList <= 0 || k.NProbe <= 0 || k.NProbe > k.NList {
			return fmt.Errorf("%w: nlist=%d nprobe=%d", ErrInvalidKind, k.NList, k.NProbe)
		}
		if k.NList > n || n < k.NList*MinPointsPerCentroid {
			return fmt.Errorf("%w: %d vectors for %d lists, need at least %d",
				ErrTooFewPoints, n, k.NList, k.NList*MinPointsPerCentroid)
		}
		return nil
	default:
		return fmt.Errorf("%w: %v", ErrInvalidKind, k.Type)
	}
}

// Neighbor is a search hit.
type Neighbor struct {
	ID    uint32  `json:"id" msgpack:"id"`
	Score float32 `json:"score" msgpack:"score"`
}

// Index is a searchable vector collection.
type Index interface {
	// Kind returns the index kind.
	Kind() Kind

	// Len returns the number of indexed vectors.
	Len() int

	// Dimension returns the vector dimension.
	Dimension() int

	// Search returns up to k neighbors per query ranked by inner product
	// descending, ties by ascending id.
	Search(ctx context.Context, queries [][]float32, k int) ([][]Neighbor, error)
}

// Options configures index construction and search.
type Options struct {
	// Workers bounds parallel training and search. Zero means GOMAXPROCS.
	Workers int

	// Seed drives k-means initialization.
	Seed int64

	// MaxIter bounds k-means iterations.
	MaxIter int

	// ProgressInterval is the minimum time between search progress records.
	// Zero disables progress logging.
	ProgressInterval time.Duration

	Logger *slog.Logger
}

// DefaultOptions contains the default index options.
var DefaultOptions = Options{
	Workers:          0,
	Seed:             1,
	MaxIter:          25,
	ProgressInterval: 5 * time.Second,
}

func (o *Options) normalize() {
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.MaxIter <= 0 {
		o.MaxIter = DefaultOptions.MaxIter
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
}

// Build indexes vecs with the given kind. All vectors must share one
// dimension; vecs are copied.
func Build(ctx context.Context, vecs [][]float32, kind Kind, optFns ...func(o *Options)) (Index, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.normalize()

	if err := kind.validate(len(vecs)); err != nil {
		return nil, err
	}

	data, dim, err := flatten(vecs)
	if err != nil {
		return nil, err
	}

	if kind.Type == TypeIVF {
		return newIVF(ctx, data, dim, kind, opts)
	}
	return newFlat(data, dim, opts), nil
}

func flatten(vecs [][]float32) ([]float32, int, error) {
	if len(vecs) == 0 {
		return nil, 0, nil
	}

	dim := len(vecs[0])
	if dim == 0 {
		return nil, 0, ErrInvalidDimension
	}

	data := make([]float32, 0, len(vecs)*dim)
	for _, v := range vecs {
		if len(v) != dim {
			return nil, 0, &ErrDimensionMismatch{Expected: dim, Actual: len(v)}
		}
		data = append(data, v...)
	}
	return data, dim, nil
}
