package pairs

import (
	"cmp"
	"slices"
	"sync"
)

// Order selects how finalized pairs are ranked.
type Order int

const (
	// Descending ranks higher scores first (similarities).
	Descending Order = iota
	// Ascending ranks lower scores first (distances).
	Ascending
)

func (o Order) String() string {
	if o == Ascending {
		return "ascending"
	}
	return "descending"
}

// Store accumulates verified pairs, dropping duplicates and self-pairs.
// It is safe for concurrent use.
type Store struct {
	mu    sync.Mutex
	order Order
	seen  map[Key]struct{}
	pairs []Pair
}

// NewStore creates an empty Store ranking by order.
func NewStore(order Order) *Store {
	return &Store{
		order: order,
		seen:  make(map[Key]struct{}),
	}
}

// Add inserts pairs. Self-pairs are ignored; a pair already present keeps its
// first score.
func (s *Store) Add(ps ...Pair) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range ps {
		c, ok := New(p.I, p.J, p.Score)
		if !ok {
			continue
		}
		k := c.Key()
		if _, dup := s.seen[k]; dup {
			continue
		}
		s.seen[k] = struct{}{}
		s.pairs = append(s.pairs, c)
	}
}

// Len returns the number of distinct pairs.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pairs)
}

// Finalize returns a sorted copy of the stored pairs. Ties on score are
// broken by (I, J).
func (s *Store) Finalize() []Pair {
	s.mu.Lock()
	out := slices.Clone(s.pairs)
	order := s.order
	s.mu.Unlock()

	Sort(out, order)
	return out
}

// Sort orders ps in place by score in the given order, ties by (I, J).
func Sort(ps []Pair, order Order) {
	slices.SortStableFunc(ps, func(a, b Pair) int {
		c := cmp.Compare(a.Score, b.Score)
		if order == Descending {
			c = -c
		}
		if c != 0 {
			return c
		}
		if c = cmp.Compare(a.I, b.I); c != 0 {
			return c
		}
		return cmp.Compare(a.J, b.J)
	})
}
