package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/neardup"
	"github.com/hupe1980/neardup/prefilter"
)

func (a *app) minhashCmd() *cobra.Command {
	var (
		threshold float64
		bands     int
		rows      int
		shingle   int
	)

	cmd := &cobra.Command{
		Use:   "minhash <articles>",
		Short: "Near-duplicate texts by MinHash LSH",
		Long: `Shingle every article into character k-grams, MinHash-sign the shingle
sets and report pairs whose estimated Jaccard similarity reaches the
threshold.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			mh := &a.cfg.MinHash
			if flags.Changed("threshold") {
				mh.JaccardThreshold = threshold
			}
			if flags.Changed("bands") {
				mh.Bands = bands
			}
			if flags.Changed("rows") {
				mh.Rows = rows
			}
			if flags.Changed("shingle") {
				mh.ShingleSize = shingle
			}

			d, err := a.detector()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			texts, err := a.loadArticles(ctx, args[0])
			if err != nil {
				return err
			}
			res, err := d.Texts(ctx, texts)
			if err != nil {
				return err
			}

			out := a.newOutput(neardup.BackendMinHash, args[0], len(texts))
			out.Result = res
			return a.emit(ctx, out)
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", 0, "minimum Jaccard similarity")
	cmd.Flags().IntVar(&bands, "bands", 0, "number of bands")
	cmd.Flags().IntVar(&rows, "rows", 0, "rows per band")
	cmd.Flags().IntVar(&shingle, "shingle", 0, "shingle size in characters")
	return cmd
}

func (a *app) simhashCmd() *cobra.Command {
	var (
		threshold int
		bands     int
	)

	cmd := &cobra.Command{
		Use:   "simhash <embeddings>",
		Short: "Near-duplicate embeddings by SimHash LSH",
		Long: `Project every embedding onto random hyperplanes into a 128-bit SimHash
and report pairs within the Hamming threshold.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			sh := &a.cfg.SimHash
			if flags.Changed("threshold") {
				sh.HammingThreshold = threshold
			}
			if flags.Changed("bands") {
				sh.Bands = bands
			}

			d, err := a.detector()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			vecs, err := a.loadEmbeddings(ctx, args[0])
			if err != nil {
				return err
			}
			res, err := d.SimHashVectors(ctx, vecs)
			if err != nil {
				return err
			}

			out := a.newOutput(neardup.BackendSimHash, args[0], len(vecs))
			out.Result = res
			return a.emit(ctx, out)
		},
	}

	cmd.Flags().IntVar(&threshold, "threshold", 0, "maximum Hamming distance")
	cmd.Flags().IntVar(&bands, "bands", 0, "number of bands")
	return cmd
}

func (a *app) vectorsCmd() *cobra.Command {
	var (
		threshold    float64
		topK         int
		annThreshold int
	)

	cmd := &cobra.Command{
		Use:   "vectors <embeddings>",
		Short: "Near-duplicate embeddings by cosine similarity",
		Long: `L2-normalize every embedding, search each one's nearest neighbors on a
flat index (or IVF for large corpora) and report pairs whose cosine
similarity reaches the threshold.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			vc := &a.cfg.Vectors
			if flags.Changed("threshold") {
				vc.SimilarityThreshold = threshold
			}
			if flags.Changed("top-k") {
				vc.TopK = topK
			}
			if flags.Changed("ann-threshold") {
				vc.ANNThreshold = annThreshold
			}

			d, err := a.detector()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			vecs, err := a.loadEmbeddings(ctx, args[0])
			if err != nil {
				return err
			}
			res, err := d.Vectors(ctx, vecs)
			if err != nil {
				return err
			}

			out := a.newOutput(neardup.BackendVectors, args[0], len(vecs))
			out.Result = res
			return a.emit(ctx, out)
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", 0, "minimum cosine similarity")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "neighbors searched per item, self included")
	cmd.Flags().IntVar(&annThreshold, "ann-threshold", 0, "corpus size from which IVF is used")
	return cmd
}

func (a *app) exactCmd() *cobra.Command {
	var (
		capacity   int
		fpr        float64
		confirm    bool
		loadFilter string
		saveFilter string
	)

	cmd := &cobra.Command{
		Use:   "exact <articles>",
		Short: "Exact duplicate texts by bloom filter",
		Long: `Normalize every article (lower case, punctuation and whitespace removed)
and report the ones already seen. Empty articles are skipped.

With --load-filter the bloom filter of an earlier run is reused: articles it
may contain are reported as known. --save-filter writes the updated filter
for the next run.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			pc := &a.cfg.Prefilter
			if flags.Changed("capacity") {
				pc.Capacity = capacity
			}
			if flags.Changed("fpr") {
				pc.FalsePositiveRate = fpr
			}
			if flags.Changed("confirm") {
				pc.Confirm = confirm
			}

			d, err := a.detector()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			texts, err := a.loadArticles(ctx, args[0])
			if err != nil {
				return err
			}
			filter, err := a.openFilter(ctx, loadFilter, saveFilter)
			if err != nil {
				return err
			}
			rep, err := d.Exact(ctx, texts, func(o *prefilter.Options) {
				if filter != nil {
					o.Filter = filter
				}
			})
			if err != nil {
				return err
			}
			if saveFilter != "" {
				data, err := filter.MarshalBinary()
				if err != nil {
					return err
				}
				if err := writeRawBlob(ctx, saveFilter, data); err != nil {
					return fmt.Errorf("save filter: %w", err)
				}
				a.logger.InfoContext(ctx, "filter saved", "target", saveFilter, "distinct", filter.Count())
			}

			out := a.newOutput(neardup.BackendExact, args[0], len(texts))
			out.Exact = rep
			return a.emit(ctx, out)
		},
	}

	cmd.Flags().IntVar(&capacity, "capacity", 0, "expected number of distinct texts")
	cmd.Flags().Float64Var(&fpr, "fpr", 0, "target false positive rate")
	cmd.Flags().BoolVar(&confirm, "confirm", false, "confirm bloom positives against the texts seen")
	cmd.Flags().StringVar(&loadFilter, "load-filter", "", "bloom filter of an earlier run (path or s3:// / minio:// URI)")
	cmd.Flags().StringVar(&saveFilter, "save-filter", "", "write the updated bloom filter to this path or URI")
	return cmd
}

func (a *app) loadArticles(ctx context.Context, uri string) ([]string, error) {
	shards, err := readCorpus(ctx, uri, a.cacheDir, a.logger.Logger)
	if err != nil {
		return nil, err
	}

	var texts []string
	for _, sh := range shards {
		part, err := decodeArticles(sh.data, corpusFormat(sh.name))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", sh.name, err)
		}
		texts = append(texts, part...)
	}
	a.logger.WithCount(len(texts)).InfoContext(ctx, "corpus loaded", "source", uri, "shards", len(shards))
	return texts, nil
}

func (a *app) loadEmbeddings(ctx context.Context, uri string) ([][]float32, error) {
	shards, err := readCorpus(ctx, uri, a.cacheDir, a.logger.Logger)
	if err != nil {
		return nil, err
	}

	var vecs [][]float32
	for _, sh := range shards {
		part, err := decodeEmbeddings(sh.data, corpusFormat(sh.name))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", sh.name, err)
		}
		if len(vecs) > 0 && len(part) > 0 && len(part[0]) != len(vecs[0]) {
			return nil, fmt.Errorf("%s: dimension %d, want %d", sh.name, len(part[0]), len(vecs[0]))
		}
		vecs = append(vecs, part...)
	}
	a.logger.WithCount(len(vecs)).InfoContext(ctx, "corpus loaded", "source", uri, "shards", len(shards))
	return vecs, nil
}

// openFilter loads the filter at load, or creates an empty one sized from
// the prefilter config when only save is set. It returns nil when neither
// is set.
func (a *app) openFilter(ctx context.Context, load, save string) (*prefilter.BloomFilter, error) {
	if load == "" {
		if save == "" {
			return nil, nil
		}
		pc := a.cfg.Prefilter
		return prefilter.NewBloomFilterFor(pc.Capacity, pc.FalsePositiveRate), nil
	}

	data, err := readBlob(ctx, load, a.cacheDir, a.logger.Logger)
	if err != nil {
		return nil, fmt.Errorf("load filter: %w", err)
	}
	filter := new(prefilter.BloomFilter)
	if err := filter.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("load filter %s: %w", load, err)
	}
	a.logger.InfoContext(ctx, "filter loaded", "source", load, "distinct", filter.Count(), "bits", filter.NumBits())
	return filter, nil
}
