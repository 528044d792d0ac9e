package neardup

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/neardup/ann"
	"github.com/hupe1980/neardup/lsh"
	"github.com/hupe1980/neardup/simhash"
)

func TestTranslateError(t *testing.T) {
	assert.NoError(t, translateError(nil))

	err := translateError(fmt.Errorf("%w: bands", lsh.ErrInvalidBanding))
	require.ErrorIs(t, err, ErrInvalidConfig)
	require.ErrorIs(t, err, lsh.ErrInvalidBanding)

	err = translateError(fmt.Errorf("wrap: %w", ann.ErrTooFewPoints))
	require.ErrorIs(t, err, ErrInvalidConfig)
	require.ErrorIs(t, err, ann.ErrTooFewPoints)

	err = translateError(&ann.ErrDimensionMismatch{Expected: 4, Actual: 3})
	var dm *ErrDimensionMismatch
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 4, dm.Expected)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	var adm *ann.ErrDimensionMismatch
	assert.ErrorAs(t, err, &adm)

	err = translateError(&simhash.ErrDimensionMismatch{Expected: 8, Actual: 2})
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 2, dm.Actual)

	assert.Equal(t, context.Canceled, translateError(context.Canceled))

	other := errors.New("boom")
	assert.Equal(t, other, translateError(other))
}

func TestConfigErrorMessage(t *testing.T) {
	err := configError("vectors.top_k", 0, "must be at least 1")
	assert.Equal(t, "invalid configuration: vectors.top_k=0: must be at least 1", err.Error())
	assert.Nil(t, err.Unwrap())

	err = &ConfigError{Reason: "bad geometry"}
	assert.Equal(t, "invalid configuration: bad geometry", err.Error())
}
