package neardup

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordBuild is called after each band-index or vector-index build.
	RecordBuild(items int, duration time.Duration, err error)

	// RecordCandidates is called after candidate collection.
	// oversized is the number of buckets above the configured cap.
	RecordCandidates(candidates, oversized int, duration time.Duration)

	// RecordVerify is called after each verification pass.
	RecordVerify(candidates, passed, failed int, duration time.Duration)

	// RecordSearch is called after each batched neighbor search.
	RecordSearch(queries, k int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordBuild(int, time.Duration, error)       {}
func (NoopMetricsCollector) RecordCandidates(int, int, time.Duration)    {}
func (NoopMetricsCollector) RecordVerify(int, int, int, time.Duration)   {}
func (NoopMetricsCollector) RecordSearch(int, int, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	BuildCount       atomic.Int64
	BuildErrors      atomic.Int64
	BuildItems       atomic.Int64
	BuildTotalNanos  atomic.Int64
	CandidateCount   atomic.Int64
	OversizedBuckets atomic.Int64
	VerifyCount      atomic.Int64
	VerifyPassed     atomic.Int64
	VerifyFailed     atomic.Int64
	VerifyTotalNanos atomic.Int64
	SearchCount      atomic.Int64
	SearchQueries    atomic.Int64
	SearchErrors     atomic.Int64
	SearchTotalNanos atomic.Int64
}

// RecordBuild implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBuild(items int, duration time.Duration, err error) {
	b.BuildCount.Add(1)
	b.BuildItems.Add(int64(items))
	b.BuildTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.BuildErrors.Add(1)
	}
}

// RecordCandidates implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCandidates(candidates, oversized int, duration time.Duration) {
	b.CandidateCount.Add(int64(candidates))
	b.OversizedBuckets.Add(int64(oversized))
}

// RecordVerify implements MetricsCollector.
func (b *BasicMetricsCollector) RecordVerify(candidates, passed, failed int, duration time.Duration) {
	b.VerifyCount.Add(int64(candidates))
	b.VerifyPassed.Add(int64(passed))
	b.VerifyFailed.Add(int64(failed))
	b.VerifyTotalNanos.Add(duration.Nanoseconds())
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(queries, k int, duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchQueries.Add(int64(queries))
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SearchErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		BuildCount:       b.BuildCount.Load(),
		BuildErrors:      b.BuildErrors.Load(),
		BuildItems:       b.BuildItems.Load(),
		BuildAvgNanos:    avg(b.BuildTotalNanos.Load(), b.BuildCount.Load()),
		CandidateCount:   b.CandidateCount.Load(),
		OversizedBuckets: b.OversizedBuckets.Load(),
		VerifyCount:      b.VerifyCount.Load(),
		VerifyPassed:     b.VerifyPassed.Load(),
		VerifyFailed:     b.VerifyFailed.Load(),
		VerifyTotalNanos: b.VerifyTotalNanos.Load(),
		SearchCount:      b.SearchCount.Load(),
		SearchQueries:    b.SearchQueries.Load(),
		SearchErrors:     b.SearchErrors.Load(),
		SearchAvgNanos:   avg(b.SearchTotalNanos.Load(), b.SearchCount.Load()),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	BuildCount       int64
	BuildErrors      int64
	BuildItems       int64
	BuildAvgNanos    int64
	CandidateCount   int64
	OversizedBuckets int64
	VerifyCount      int64
	VerifyPassed     int64
	VerifyFailed     int64
	VerifyTotalNanos int64
	SearchCount      int64
	SearchQueries    int64
	SearchErrors     int64
	SearchAvgNanos   int64
}
