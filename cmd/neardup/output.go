package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/hupe1980/neardup"
	"github.com/hupe1980/neardup/codec"
	"github.com/hupe1980/neardup/pairs"
	"github.com/hupe1980/neardup/prefilter"
)

// Header identifies a run.
type Header struct {
	RunID     string    `json:"run_id" msgpack:"run_id"`
	Backend   string    `json:"backend" msgpack:"backend"`
	Source    string    `json:"source" msgpack:"source"`
	Count     int       `json:"count" msgpack:"count"`
	CreatedAt time.Time `json:"created_at" msgpack:"created_at"`
}

// Output is the document written to --output.
type Output struct {
	Header  Header                    `json:"header" msgpack:"header"`
	Config  neardup.Config            `json:"config" msgpack:"config"`
	Result  *neardup.Result           `json:"result,omitempty" msgpack:"result,omitempty"`
	Exact   *prefilter.Report         `json:"exact,omitempty" msgpack:"exact,omitempty"`
	Metrics neardup.BasicMetricsStats `json:"metrics" msgpack:"metrics"`
}

func (a *app) newOutput(backend, source string, count int) *Output {
	return &Output{
		Header: Header{
			RunID:     a.runID,
			Backend:   backend,
			Source:    source,
			Count:     count,
			CreatedAt: time.Now().UTC(),
		},
		Config: a.cfg,
	}
}

// emit writes out to --output, if set, and prints the summary. With
// --output - the document goes to stdout, encoded as --format, and the
// summary to stderr.
func (a *app) emit(ctx context.Context, out *Output) error {
	out.Metrics = a.metrics.GetStats()

	summary := a.stdout
	switch a.output {
	case "":
	case "-":
		summary = a.stderr
		c, _ := codec.ByName(a.format)
		data, err := codec.Encode(c, codec.CompressionNone, out)
		if err != nil {
			return err
		}
		if c.Name() == "json" {
			data = append(data, '\n')
		}
		if _, err := a.stdout.Write(data); err != nil {
			return err
		}
	default:
		if err := writeBlob(ctx, a.output, out); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
		a.logger.InfoContext(ctx, "result written", "output", a.output)
	}

	if out.Exact != nil {
		printExact(summary, out)
	} else {
		printResult(summary, out, a.top)
	}
	return nil
}

func printResult(w io.Writer, out *Output, top int) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	res := out.Result
	st := res.Stats

	fmt.Fprintf(w, "\n%s\n", cyan(fmt.Sprintf("=== %s: %d items (%s) ===", res.Backend, st.Items, st.Index)))
	fmt.Fprintf(w, "  Candidates: %d\n", st.Candidates)
	fmt.Fprintf(w, "  Pairs:      %s\n", green(st.Passed))
	fmt.Fprintf(w, "  Timing:     build %v, candidates %v, verify %v\n",
		st.BuildTime.Round(time.Microsecond),
		st.CandidateTime.Round(time.Microsecond),
		st.VerifyTime.Round(time.Microsecond))

	if n := len(res.Degenerate); n > 0 {
		fmt.Fprintf(w, "  %s %d degenerate items\n", yellow("⚠"), n)
	}
	if n := len(res.Malformed); n > 0 {
		fmt.Fprintf(w, "  %s %d malformed signatures\n", red("✗"), n)
	}
	if n := len(res.Failures); n > 0 {
		fmt.Fprintf(w, "  %s %d failed comparisons\n", red("✗"), n)
	}
	for _, b := range res.OversizedBuckets {
		action := "enumerated"
		if b.Skipped {
			action = "skipped"
		}
		fmt.Fprintf(w, "  %s band %d bucket of %d items %s\n", yellow("⚠"), b.Band, b.Size, action)
	}

	if len(res.Pairs) == 0 {
		fmt.Fprintf(w, "\n  %s\n\n", gray("No pairs found"))
		return
	}

	shown := min(top, len(res.Pairs))
	fmt.Fprintf(w, "\n%s\n", yellow(fmt.Sprintf("Top %d of %d:", shown, len(res.Pairs))))
	for _, p := range res.Pairs[:shown] {
		fmt.Fprintf(w, "  %6d  %6d  %s\n", p.I, p.J, green(formatScore(res.Backend, p)))
	}
	fmt.Fprintln(w)
}

func printExact(w io.Writer, out *Output) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	rep := out.Exact
	fmt.Fprintf(w, "\n%s\n", cyan(fmt.Sprintf("=== exact: %d items ===", out.Header.Count)))
	fmt.Fprintf(w, "  Unique:     %s\n", green(len(rep.Unique)))
	fmt.Fprintf(w, "  Duplicates: %s\n", yellow(len(rep.Duplicates)))
	if len(rep.Known) > 0 {
		fmt.Fprintf(w, "  Known:      %s\n", yellow(len(rep.Known)))
	}
	fmt.Fprintf(w, "  Skipped:    %s\n", gray(len(rep.Skipped)))
	fmt.Fprintf(w, "  Filter:     %d bytes, estimated FPR %.5f\n", rep.FilterBytes, rep.EstimatedFalsePositiveRate)
	if rep.Originals != nil {
		fmt.Fprintf(w, "  Rejected false positives: %d\n", rep.FalsePositives)
	}
	if len(rep.Duplicates) > 0 {
		shown := rep.Duplicates[:min(10, len(rep.Duplicates))]
		fmt.Fprintf(w, "\n%s %v\n", yellow("First duplicates:"), shown)
	}
	fmt.Fprintln(w)
}

func formatScore(backend string, p pairs.Pair) string {
	if backend == neardup.BackendSimHash {
		return fmt.Sprintf("hamming=%d", int(p.Score))
	}
	return fmt.Sprintf("%.4f", p.Score)
}
