package neardup

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/neardup/ann"
	"github.com/hupe1980/neardup/lsh"
	"github.com/hupe1980/neardup/minhash"
	"github.com/hupe1980/neardup/simhash"
)

// MinHashConfig configures MinHash signing, banding and verification.
type MinHashConfig struct {
	NumPerm          int     `yaml:"num_perm" json:"num_perm"`
	Bands            int     `yaml:"bands" json:"bands"`
	Rows             int     `yaml:"rows" json:"rows"`
	JaccardThreshold float64 `yaml:"jaccard_threshold" json:"jaccard_threshold"`
	ShingleSize      int     `yaml:"shingle_size" json:"shingle_size"`
}

// SimHashConfig configures SimHash signing, banding and verification.
type SimHashConfig struct {
	HashBits         int `yaml:"hash_bits" json:"hash_bits"`
	Bands            int `yaml:"bands" json:"bands"`
	HammingThreshold int `yaml:"hamming_threshold" json:"hamming_threshold"`
}

// VectorConfig configures dense-vector neighbor search.
type VectorConfig struct {
	ANNThreshold        int     `yaml:"ann_threshold" json:"ann_threshold"`
	TopK                int     `yaml:"top_k" json:"top_k"`
	SimilarityThreshold float64 `yaml:"similarity_threshold" json:"similarity_threshold"`
}

// PrefilterConfig configures the exact-duplicate bloom filter.
type PrefilterConfig struct {
	Capacity          int     `yaml:"capacity" json:"capacity"`
	FalsePositiveRate float64 `yaml:"false_positive_rate" json:"false_positive_rate"`
	Confirm           bool    `yaml:"confirm" json:"confirm"`
}

// Config is the run-level configuration.
type Config struct {
	MinHash   MinHashConfig   `yaml:"minhash" json:"minhash"`
	SimHash   SimHashConfig   `yaml:"simhash" json:"simhash"`
	Vectors   VectorConfig    `yaml:"vectors" json:"vectors"`
	Prefilter PrefilterConfig `yaml:"prefilter" json:"prefilter"`

	// Workers bounds parallelism. Zero means GOMAXPROCS.
	Workers int `yaml:"workers" json:"workers"`

	// MaxBucketSize caps bucket enumeration. Zero disables the cap.
	MaxBucketSize int `yaml:"max_bucket_size" json:"max_bucket_size"`

	// BucketPolicy is "warn" or "skip".
	BucketPolicy string `yaml:"bucket_policy" json:"bucket_policy"`

	Seed int64 `yaml:"seed" json:"seed"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		MinHash: MinHashConfig{
			NumPerm:          minhash.DefaultNumPerm,
			Bands:            32,
			Rows:             4,
			JaccardThreshold: 0.5,
			ShingleSize:      minhash.DefaultShingleSize,
		},
		SimHash: SimHashConfig{
			HashBits:         simhash.Bits,
			Bands:            8,
			HammingThreshold: 25,
		},
		Vectors: VectorConfig{
			ANNThreshold:        ann.Threshold,
			TopK:                5,
			SimilarityThreshold: 0.9,
		},
		Prefilter: PrefilterConfig{
			Capacity:          2000,
			FalsePositiveRate: 0.001,
		},
		MaxBucketSize: lsh.DefaultOptions.MaxBucketSize,
		BucketPolicy:  lsh.BucketPolicyWarn.String(),
		Seed:          1,
	}
}

// Validate checks every parameter and returns the first violation as a
// *ConfigError.
func (c Config) Validate() error {
	mh := c.MinHash
	if mh.NumPerm <= 0 {
		return configError("minhash.num_perm", mh.NumPerm, "must be positive")
	}
	if mh.Bands <= 0 || mh.Rows <= 0 {
		return configError("minhash.bands", mh.Bands, fmt.Sprintf("bands and rows (%d) must be positive", mh.Rows))
	}
	if mh.Bands*mh.Rows != mh.NumPerm {
		return configError("minhash.bands", mh.Bands, fmt.Sprintf("bands*rows=%d must equal num_perm=%d", mh.Bands*mh.Rows, mh.NumPerm))
	}
	if !(mh.JaccardThreshold > 0 && mh.JaccardThreshold <= 1) {
		return configError("minhash.jaccard_threshold", mh.JaccardThreshold, "must be in (0, 1]")
	}
	if mh.ShingleSize <= 0 {
		return configError("minhash.shingle_size", mh.ShingleSize, "must be positive")
	}

	sh := c.SimHash
	if sh.HashBits != simhash.Bits {
		return configError("simhash.hash_bits", sh.HashBits, fmt.Sprintf("only %d is supported", simhash.Bits))
	}
	if sh.Bands <= 0 || sh.HashBits%sh.Bands != 0 {
		return configError("simhash.bands", sh.Bands, fmt.Sprintf("must evenly divide hash_bits=%d", sh.HashBits))
	}
	if sh.HammingThreshold < 0 || sh.HammingThreshold > sh.HashBits {
		return configError("simhash.hamming_threshold", sh.HammingThreshold, fmt.Sprintf("must be in [0, %d]", sh.HashBits))
	}

	v := c.Vectors
	if v.ANNThreshold <= 0 {
		return configError("vectors.ann_threshold", v.ANNThreshold, "must be positive")
	}
	if v.TopK < 1 {
		return configError("vectors.top_k", v.TopK, "must be at least 1")
	}
	if !(v.SimilarityThreshold >= -1 && v.SimilarityThreshold <= 1) {
		return configError("vectors.similarity_threshold", v.SimilarityThreshold, "must be in [-1, 1]")
	}

	p := c.Prefilter
	if p.Capacity <= 0 {
		return configError("prefilter.capacity", p.Capacity, "must be positive")
	}
	if !(p.FalsePositiveRate > 0 && p.FalsePositiveRate < 1) {
		return configError("prefilter.false_positive_rate", p.FalsePositiveRate, "must be in (0, 1)")
	}

	if c.Workers < 0 {
		return configError("workers", c.Workers, "must not be negative")
	}
	if c.MaxBucketSize < 0 {
		return configError("max_bucket_size", c.MaxBucketSize, "must not be negative")
	}
	if _, err := lsh.ParseBucketPolicy(c.BucketPolicy); err != nil {
		return &ConfigError{Param: "bucket_policy", Value: c.BucketPolicy, Reason: "must be warn or skip", cause: err}
	}
	return nil
}

// ParseConfig decodes YAML over DefaultConfig and validates the result.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}
