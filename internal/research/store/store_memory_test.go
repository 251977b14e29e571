package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zonescout/internal/research/models"
	"zonescout/pkg/platform/sentinel"
)

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()

	rec := models.NewRecord()
	rec.Overlays = []string{"HPOZ"}
	result := &models.Result{RunID: "run-1", Address: "1600 Vine Street, Los Angeles, CA", Record: rec, Warnings: []string{"search: timeout"}}
	require.NoError(t, s.Save(ctx, result))

	t.Run("round trip returns a copy", func(t *testing.T) {
		got, err := s.FindByID(ctx, "run-1")
		require.NoError(t, err)
		assert.Equal(t, result.Address, got.Address)
		assert.Equal(t, []string{"HPOZ"}, got.Record.Overlays)

		got.Record.Overlays[0] = "changed"
		got.Warnings[0] = "changed"
		again, err := s.FindByID(ctx, "run-1")
		require.NoError(t, err)
		assert.Equal(t, "HPOZ", again.Record.Overlays[0])
		assert.Equal(t, "search: timeout", again.Warnings[0])
	})

	t.Run("saved value is isolated from the caller", func(t *testing.T) {
		result.Record.Overlays[0] = "mutated"
		got, err := s.FindByID(ctx, "run-1")
		require.NoError(t, err)
		assert.Equal(t, "HPOZ", got.Record.Overlays[0])
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := s.FindByID(ctx, "missing")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("nil result", func(t *testing.T) {
		assert.Error(t, s.Save(ctx, nil))
	})
}
