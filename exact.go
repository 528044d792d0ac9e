package neardup

import (
	"context"
	"time"

	"github.com/hupe1980/neardup/prefilter"
)

// Exact reports texts that are exact duplicates of an earlier text after
// normalization (lower case, punctuation and whitespace removed). Texts that
// normalize to nothing are skipped.
//
// optFns are applied after the configured capacity, rate and confirmation,
// e.g. to pass a filter loaded from an earlier run in prefilter.Options.Filter.
func (d *Detector) Exact(ctx context.Context, texts []string, optFns ...func(o *prefilter.Options)) (*prefilter.Report, error) {
	log := d.opts.logger.WithBackend(BackendExact)
	pc := d.cfg.Prefilter

	start := time.Now()
	rep, err := prefilter.Dedup(ctx, texts, func(o *prefilter.Options) {
		o.Capacity = pc.Capacity
		o.FalsePositiveRate = pc.FalsePositiveRate
		o.Confirm = pc.Confirm
		o.Logger = log.Logger
		for _, fn := range optFns {
			fn(o)
		}
	})
	elapsed := time.Since(start)
	d.opts.metricsCollector.RecordBuild(len(texts), elapsed, err)
	if err != nil {
		return nil, translateError(err)
	}

	log.LogExact(ctx, len(texts), len(rep.Duplicates), len(rep.Known), rep.FalsePositives, elapsed)
	return rep, nil
}
