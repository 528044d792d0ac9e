package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hupe1980/neardup"
	"github.com/hupe1980/neardup/codec"
)

// app holds global flags and per-run state.
type app struct {
	// Global flags
	cfgPath   string
	output    string
	format    string
	logLevel  string
	logFormat string
	cacheDir  string
	workers   int
	seed      int64
	top       int
	noColor   bool

	stdout io.Writer
	stderr io.Writer

	cfg     neardup.Config
	runID   string
	logger  *neardup.Logger
	metrics *neardup.BasicMetricsCollector
}

func newRootCmd() *cobra.Command {
	a := &app{stdout: os.Stdout, stderr: os.Stderr}

	rootCmd := &cobra.Command{
		Use:   "neardup",
		Short: "Find near-duplicate documents and embeddings",
		Long: `neardup finds near-duplicate pairs in a corpus.

Text corpora are JSON arrays of articles ([{"content": "..."}]). Embedding
corpora are whitespace-separated rows (TXT) or JSON arrays of arrays.

Examples:
  # MinHash over articles stored in S3, result as compressed msgpack
  neardup minhash s3://corpora/articles.json.zst -o result.msgpack.zst

  # SimHash with a custom config file
  neardup --config neardup.yaml simhash embeddings.txt

  # Dense vectors, IVF above 2000 items
  neardup vectors minio://data/embeddings.json --threshold 0.95

  # Every shard below a prefix, msgpack result on stdout
  neardup exact s3://corpora/articles/ -o - --format msgpack
`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.stdout = cmd.OutOrStdout()
			a.stderr = cmd.ErrOrStderr()
			return a.prepare(cmd.Context(), cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgPath, "config", "", "YAML config file (local path or blob URI)")
	flags.StringVarP(&a.output, "output", "o", "", "result location; extension selects json or msgpack and .zst/.lz4 compression")
	flags.StringVar(&a.format, "format", "json", "encoding of --output - (json, msgpack)")
	flags.StringVar(&a.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.StringVar(&a.logFormat, "log-format", "text", "log format (text, json)")
	flags.StringVar(&a.cacheDir, "cache-dir", "", "cache remote corpora in this directory")
	flags.IntVarP(&a.workers, "workers", "w", 0, "parallelism (default GOMAXPROCS)")
	flags.Int64Var(&a.seed, "seed", 0, "random seed for hashing and k-means")
	flags.IntVar(&a.top, "top", 10, "pairs shown in the summary")
	flags.BoolVar(&a.noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(
		a.minhashCmd(),
		a.simhashCmd(),
		a.vectorsCmd(),
		a.exactCmd(),
	)
	return rootCmd
}

// prepare loads the configuration, applies global flag overrides and sets up
// logging for one run.
func (a *app) prepare(ctx context.Context, cmd *cobra.Command) error {
	a.cfg = neardup.DefaultConfig()
	if a.cfgPath != "" {
		data, err := readBlob(ctx, a.cfgPath, a.cacheDir, nil)
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		if a.cfg, err = neardup.ParseConfig(data); err != nil {
			return err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("workers") {
		a.cfg.Workers = a.workers
	}
	if flags.Changed("seed") {
		a.cfg.Seed = a.seed
	}

	if _, ok := codec.ByName(a.format); !ok {
		return fmt.Errorf("unknown format %q", a.format)
	}

	level, err := parseLevel(a.logLevel)
	if err != nil {
		return err
	}
	var handler slog.Handler
	switch strings.ToLower(a.logFormat) {
	case "json":
		handler = slog.NewJSONHandler(a.stderr, &slog.HandlerOptions{Level: level})
	case "text":
		handler = slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level})
	default:
		return fmt.Errorf("unknown log format %q", a.logFormat)
	}

	a.runID = uuid.NewString()
	a.logger = neardup.NewLogger(handler).WithRunID(a.runID)
	a.metrics = &neardup.BasicMetricsCollector{}

	if a.noColor {
		color.NoColor = true
	}
	return nil
}

// detector validates the (possibly flag-modified) configuration.
func (a *app) detector() (*neardup.Detector, error) {
	return neardup.New(a.cfg,
		neardup.WithLogger(a.logger),
		neardup.WithMetricsCollector(a.metrics),
	)
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}
