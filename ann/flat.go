package ann

import "context"

var _ Index = (*Flat)(nil)

// Flat is an exact brute-force inner-product index.
type Flat struct {
	dim  int
	n    int
	data []float32
	opts Options
}

func newFlat(data []float32, dim int, opts Options) *Flat {
	n := 0
	if dim > 0 {
		n = len(data) / dim
	}
	return &Flat{dim: dim, n: n, data: data, opts: opts}
}

// Kind implements Index.
func (f *Flat) Kind() Kind { return Kind{Type: TypeFlat} }

// Len implements Index.
func (f *Flat) Len() int { return f.n }

// Dimension implements Index.
func (f *Flat) Dimension() int { return f.dim }

// Search scores every query against every vector.
func (f *Flat) Search(ctx context.Context, queries [][]float32, k int) ([][]Neighbor, error) {
	return searchAll(ctx, f.data, f.dim, queries, k, f.opts, func(_ []float32, visit func(uint32)) {
		for id := 0; id < f.n; id++ {
			visit(uint32(id))
		}
	})
}
