package prefilter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// DefaultCapacity is the expected number of distinct texts.
const DefaultCapacity = 2000

// DefaultFalsePositiveRate is the target false positive rate at capacity.
const DefaultFalsePositiveRate = 0.001

// ErrInvalidOptions is returned for a non-positive capacity or a false
// positive rate outside (0, 1).
var ErrInvalidOptions = errors.New("prefilter: invalid options")

// Options configures Dedup.
type Options struct {
	// Capacity is the expected number of distinct texts.
	Capacity int

	// FalsePositiveRate is the target rate once Capacity texts were added.
	FalsePositiveRate float64

	// Confirm checks every bloom positive against the normalized texts seen
	// so far, so no unique text is reported as a duplicate.
	Confirm bool

	// Filter, when set, is used instead of a new filter sized from Capacity
	// and FalsePositiveRate, and is updated in place. Texts it may already
	// contain are reported in Report.Known.
	Filter *BloomFilter

	Logger *slog.Logger
}

// DefaultOptions contains the default options for Dedup.
var DefaultOptions = Options{
	Capacity:          DefaultCapacity,
	FalsePositiveRate: DefaultFalsePositiveRate,
}

// Report is the outcome of Dedup. All id lists are in input order.
type Report struct {
	// Unique holds the first occurrence of every normalized text.
	Unique []uint32 `json:"unique" msgpack:"unique"`

	// Duplicates holds every later occurrence.
	Duplicates []uint32 `json:"duplicates" msgpack:"duplicates"`

	// Known holds texts that Options.Filter may have contained before the
	// run. They are never confirmed.
	Known []uint32 `json:"known,omitempty" msgpack:"known,omitempty"`

	// Skipped holds texts that normalize to the empty string.
	Skipped []uint32 `json:"skipped" msgpack:"skipped"`

	// Originals maps a duplicate to the id of its first occurrence. It is
	// only populated with Options.Confirm.
	Originals map[uint32]uint32 `json:"originals,omitempty" msgpack:"originals,omitempty"`

	// FalsePositives counts bloom positives rejected by confirmation.
	FalsePositives int `json:"false_positives" msgpack:"false_positives"`

	// EstimatedFalsePositiveRate is the filter's rate after the run.
	EstimatedFalsePositiveRate float64 `json:"estimated_false_positive_rate" msgpack:"estimated_false_positive_rate"`

	// FilterBytes is the memory used by the bit array.
	FilterBytes int `json:"filter_bytes" msgpack:"filter_bytes"`
}

// Dedup splits texts into first occurrences and exact duplicates of their
// normalized form. Texts are processed in order, so the earliest occurrence
// is always the one reported unique.
func Dedup(ctx context.Context, texts []string, optFns ...func(o *Options)) (*Report, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity %d", ErrInvalidOptions, opts.Capacity)
	}
	if !(opts.FalsePositiveRate > 0 && opts.FalsePositiveRate < 1) {
		return nil, fmt.Errorf("%w: false positive rate %g", ErrInvalidOptions, opts.FalsePositiveRate)
	}

	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	bf := opts.Filter
	var prior *BloomFilter
	if bf == nil {
		bf = NewBloomFilterFor(opts.Capacity, opts.FalsePositiveRate)
	} else if bf.Count() > 0 {
		prior = bf.Clone()
	}
	rep := &Report{}

	var seen map[string]uint32
	if opts.Confirm {
		seen = make(map[string]uint32)
		rep.Originals = make(map[uint32]uint32)
	}

	for i, text := range texts {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		id := uint32(i)

		norm := Normalize(text)
		if norm == "" {
			rep.Skipped = append(rep.Skipped, id)
			continue
		}

		if !bf.TestAndAdd(norm) {
			rep.Unique = append(rep.Unique, id)
			if seen != nil {
				seen[norm] = id
			}
			continue
		}

		if first, ok := seen[norm]; ok {
			rep.Duplicates = append(rep.Duplicates, id)
			rep.Originals[id] = first
			continue
		}

		if prior != nil && prior.MayContain(norm) {
			rep.Known = append(rep.Known, id)
			if seen != nil {
				seen[norm] = id
			}
			continue
		}

		if seen == nil {
			rep.Duplicates = append(rep.Duplicates, id)
			continue
		}

		rep.FalsePositives++
		rep.Unique = append(rep.Unique, id)
		seen[norm] = id
	}

	rep.EstimatedFalsePositiveRate = bf.EstimatedFalsePositiveRate()
	rep.FilterBytes = bf.SizeBytes()

	if bf.Count() > uint32(opts.Capacity) {
		log.WarnContext(ctx, "bloom filter over capacity",
			"capacity", opts.Capacity,
			"distinct", bf.Count(),
			"estimated_fpr", rep.EstimatedFalsePositiveRate,
		)
	}

	return rep, nil
}
