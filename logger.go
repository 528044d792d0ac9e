package neardup

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with neardup-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithRunID adds a run identifier to every record.
func (l *Logger) WithRunID(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("run_id", id),
	}
}

// WithBackend adds a backend field (minhash, simhash, vectors, exact).
func (l *Logger) WithBackend(backend string) *Logger {
	return &Logger{
		Logger: l.Logger.With("backend", backend),
	}
}

// WithCount adds a count field to the logger.
func (l *Logger) WithCount(count int) *Logger {
	return &Logger{
		Logger: l.Logger.With("count", count),
	}
}

// LogBuild logs a band-index or vector-index build.
func (l *Logger) LogBuild(ctx context.Context, items int, index string, d time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "build failed",
			"items", items,
			"index", index,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "build completed",
			"items", items,
			"index", index,
			"duration", d,
		)
	}
}

// LogCandidates logs candidate collection.
func (l *Logger) LogCandidates(ctx context.Context, candidates, oversized int, d time.Duration) {
	if oversized > 0 {
		l.WarnContext(ctx, "candidates collected with oversized buckets",
			"candidates", candidates,
			"oversized_buckets", oversized,
			"duration", d,
		)
	} else {
		l.InfoContext(ctx, "candidates collected",
			"candidates", candidates,
			"duration", d,
		)
	}
}

// LogVerify logs a verification pass.
func (l *Logger) LogVerify(ctx context.Context, candidates, passed, failed int, d time.Duration) {
	if failed > 0 {
		l.WarnContext(ctx, "verify completed with failures",
			"candidates", candidates,
			"passed", passed,
			"failed", failed,
			"duration", d,
		)
	} else {
		l.InfoContext(ctx, "verify completed",
			"candidates", candidates,
			"passed", passed,
			"duration", d,
		)
	}
}

// LogSearch logs a batched neighbor search.
func (l *Logger) LogSearch(ctx context.Context, queries, k int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed",
			"queries", queries,
			"k", k,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "search completed",
			"queries", queries,
			"k", k,
		)
	}
}

// LogDegenerate logs items with empty or all-zero signatures.
func (l *Logger) LogDegenerate(ctx context.Context, ids []uint32) {
	if len(ids) == 0 {
		return
	}
	l.WarnContext(ctx, "degenerate signatures",
		"count", len(ids),
		"first", ids[0],
	)
}

// LogExact logs an exact-duplicate prefilter run.
func (l *Logger) LogExact(ctx context.Context, items, duplicates, known, falsePositives int, d time.Duration) {
	l.InfoContext(ctx, "exact dedup completed",
		"items", items,
		"duplicates", duplicates,
		"known", known,
		"false_positives", falsePositives,
		"duration", d,
	)
}
