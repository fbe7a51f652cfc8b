package tx

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEmptyContext(t *testing.T) {
	_, ok := From(context.Background())
	assert.False(t, ok)
}

func TestWithTxNilKeepsContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, WithTx(ctx, nil))
}

func TestRunnerWithoutDatabase(t *testing.T) {
	r := NewRunner(nil)

	var entered bool
	err := r.RunInTx(context.Background(), func(ctx context.Context) error {
		entered = true
		_, ok := From(ctx)
		assert.False(t, ok, "no transaction without a database")
		return nil
	})
	require.NoError(t, err)
	assert.True(t, entered)
}

func TestRunnerPropagatesError(t *testing.T) {
	failure := errors.New("store unavailable")
	err := NewRunner(nil).RunInTx(context.Background(), func(context.Context) error {
		return failure
	})
	assert.ErrorIs(t, err, failure)
}
