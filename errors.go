package neardup

import (
	"errors"
	"fmt"

	"github.com/hupe1980/neardup/ann"
	"github.com/hupe1980/neardup/internal/kmeans"
	"github.com/hupe1980/neardup/lsh"
	"github.com/hupe1980/neardup/minhash"
	"github.com/hupe1980/neardup/prefilter"
	"github.com/hupe1980/neardup/simhash"
)

var (
	// ErrInvalidConfig is matched by every configuration error, including
	// those raised by subpackages and translated at the API boundary.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ConfigError describes a rejected configuration parameter.
//
// errors.Is(err, ErrInvalidConfig) holds for every ConfigError. The
// original underlying error (if any) can be accessed via errors.Unwrap.
type ConfigError struct {
	Param  string
	Value  any
	Reason string
	cause  error
}

func (e *ConfigError) Error() string {
	if e.Param == "" {
		return fmt.Sprintf("%s: %s", ErrInvalidConfig, e.Reason)
	}
	return fmt.Sprintf("%s: %s=%v: %s", ErrInvalidConfig, e.Param, e.Value, e.Reason)
}

func (e *ConfigError) Is(target error) bool { return target == ErrInvalidConfig }

func (e *ConfigError) Unwrap() error { return e.cause }

func configError(param string, value any, reason string) *ConfigError {
	return &ConfigError{Param: param, Value: value, Reason: reason}
}

// ErrDimensionMismatch indicates a vector dimensionality mismatch.
// It is a configuration error.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Is(target error) bool { return target == ErrInvalidConfig }

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	var ce *ConfigError
	if errors.As(err, &ce) {
		return err
	}

	// Dimension normalization.
	var adm *ann.ErrDimensionMismatch
	if errors.As(err, &adm) {
		return &ErrDimensionMismatch{Expected: adm.Expected, Actual: adm.Actual, cause: err}
	}
	var sdm *simhash.ErrDimensionMismatch
	if errors.As(err, &sdm) {
		return &ErrDimensionMismatch{Expected: sdm.Expected, Actual: sdm.Actual, cause: err}
	}

	// Geometry and index-selection errors surface as configuration errors.
	for _, sentinel := range []error{
		lsh.ErrInvalidBanding,
		lsh.ErrTooManyItems,
		minhash.ErrInvalidNumPerm,
		simhash.ErrInvalidBits,
		simhash.ErrInvalidDimension,
		ann.ErrTooFewPoints,
		ann.ErrInvalidKind,
		ann.ErrInvalidDimension,
		ann.ErrInvalidK,
		kmeans.ErrTooFewVectors,
		prefilter.ErrInvalidOptions,
	} {
		if errors.Is(err, sentinel) {
			return &ConfigError{Reason: err.Error(), cause: err}
		}
	}

	return err
}
