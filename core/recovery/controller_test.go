package recovery

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/siherrmann/ragcore/collection"
	"github.com/siherrmann/ragcore/core/embedding"
	"github.com/siherrmann/ragcore/helper"
	"github.com/siherrmann/ragcore/model"
	"github.com/siherrmann/ragcore/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testController(config *helper.Configuration) (*Controller, *memory.Store, *collection.Manager) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	resolver := embedding.NewResolver(config, logger)
	st := memory.NewStore()
	names := collection.NewManager(config, resolver, st, logger)
	return NewController(names, resolver, logger), st, names
}

func workingConfig() *helper.Configuration {
	return &helper.Configuration{
		EmbeddingBackend: "gemini",
		GeminiModel:      "text-embedding-004",
		GeminiAPIKey:     "test-key",
	}
}

func TestRunSuccess(t *testing.T) {
	ctx := context.Background()

	t.Run("Successful op runs exactly once", func(t *testing.T) {
		controller, _, _ := testController(workingConfig())

		attempts := 0
		err := controller.Run(ctx, func(ctx context.Context) error {
			attempts++
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 1, attempts)
	})

	t.Run("Successful op leaves the collection untouched", func(t *testing.T) {
		controller, st, names := testController(workingConfig())

		require.NoError(t, st.Add(ctx, names.CurrentName(), []model.Record{
			{ID: uuid.New(), Vector: []float32{1, 0}, Text: "survivor"},
		}))

		err := controller.Run(ctx, func(ctx context.Context) error { return nil })
		assert.NoError(t, err)

		count, err := st.Count(ctx, names.CurrentName())
		assert.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}

func TestRunOrdinaryErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("Non-mismatch errors pass through unmodified", func(t *testing.T) {
		controller, st, names := testController(workingConfig())

		require.NoError(t, st.Add(ctx, names.CurrentName(), []model.Record{
			{ID: uuid.New(), Vector: []float32{1, 0}, Text: "survivor"},
		}))

		cause := errors.New("connection refused")
		attempts := 0
		err := controller.Run(ctx, func(ctx context.Context) error {
			attempts++
			return cause
		})

		assert.ErrorIs(t, err, cause, "The error must not be wrapped or replaced")
		assert.Equal(t, 1, attempts, "Ordinary errors must not be retried")

		count, countErr := st.Count(ctx, names.CurrentName())
		assert.NoError(t, countErr)
		assert.Equal(t, 1, count, "Ordinary errors must not reset the collection")
	})

	t.Run("Configuration errors are not treated as mismatches", func(t *testing.T) {
		controller, _, _ := testController(workingConfig())

		cause := &model.ConfigurationError{Err: errors.New("bad setting")}
		err := controller.Run(ctx, func(ctx context.Context) error { return cause })
		assert.ErrorIs(t, err, cause)
	})
}

func TestRunRecovery(t *testing.T) {
	ctx := context.Background()

	t.Run("Single mismatch triggers reset and one retry", func(t *testing.T) {
		controller, st, names := testController(workingConfig())

		require.NoError(t, st.Add(ctx, names.CurrentName(), []model.Record{
			{ID: uuid.New(), Vector: []float32{1, 0, 0}, Text: "stale vectors"},
		}))

		attempts := 0
		err := controller.Run(ctx, func(ctx context.Context) error {
			attempts++
			if attempts == 1 {
				return &model.DimensionMismatchError{Collection: names.CurrentName(), Want: 3, Got: 2}
			}
			// The retry writes with the new dimensionality
			return st.Add(ctx, names.CurrentName(), []model.Record{
				{ID: uuid.New(), Vector: []float32{1, 0}, Text: "fresh vectors"},
			})
		})

		assert.NoError(t, err)
		assert.Equal(t, 2, attempts, "Exactly one retry after a mismatch")

		records, peekErr := st.Peek(ctx, names.CurrentName(), 10)
		require.NoError(t, peekErr)
		require.Len(t, records, 1)
		assert.Equal(t, "fresh vectors", records[0].Text, "The stale collection must have been dropped")
	})

	t.Run("Mismatch wrapped in other errors still triggers recovery", func(t *testing.T) {
		controller, _, names := testController(workingConfig())

		attempts := 0
		err := controller.Run(ctx, func(ctx context.Context) error {
			attempts++
			if attempts == 1 {
				return helper.NewError("add records", &model.DimensionMismatchError{
					Collection: names.CurrentName(), Want: 3, Got: 2,
				})
			}
			return nil
		})

		assert.NoError(t, err)
		assert.Equal(t, 2, attempts)
	})

	t.Run("Persistent mismatch fails after exactly one retry", func(t *testing.T) {
		controller, _, names := testController(workingConfig())

		attempts := 0
		err := controller.Run(ctx, func(ctx context.Context) error {
			attempts++
			return &model.DimensionMismatchError{Collection: names.CurrentName(), Want: 3, Got: 2}
		})

		assert.Error(t, err)
		assert.Equal(t, 2, attempts, "There must be no retry loop")
		assert.True(t, model.IsConfiguration(err), "A persistent mismatch is fatal")
		assert.Contains(t, err.Error(), names.CurrentName())
		assert.Contains(t, err.Error(), "RAG_COLLECTION", "The error should name the remediation")
	})

	t.Run("Backend refresh failure during recovery is fatal", func(t *testing.T) {
		// An unsupported backend makes the refresh fail after the reset
		controller, _, names := testController(&helper.Configuration{EmbeddingBackend: "openai"})

		attempts := 0
		err := controller.Run(ctx, func(ctx context.Context) error {
			attempts++
			return &model.DimensionMismatchError{Collection: names.CurrentName(), Want: 3, Got: 2}
		})

		assert.Error(t, err)
		assert.Equal(t, 1, attempts, "The op must not be retried without a working backend")
		assert.True(t, model.IsConfiguration(err))
	})
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "normal", StateNormal.String())
	assert.Equal(t, "recovering", StateRecovering.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "unknown", State(99).String())
}
