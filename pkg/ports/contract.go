package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/intake/pkg/domain"
)

// RunStateStoreContract runs a suite of tests to verify that a
// StateStore implementation adheres to the interface contract.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		state := domain.NewBookingState(sessionID)
		state.CurrentStepID = "phone"
		state.Turn = 3
		state.Slots[domain.KeyName] = domain.Slot{
			Value:      "Mark",
			Confidence: 0.9,
			Source:     domain.SourceUtterance,
			Locked:     true,
			LockTier:   domain.LockPrimary,
		}
		state.ConfirmedSlots[domain.KeyName] = true

		err := store.Save(ctx, sessionID, state)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, state.CurrentStepID, loaded.CurrentStepID)
		assert.Equal(t, state.Turn, loaded.Turn)
		assert.Equal(t, "Mark", loaded.Slots[domain.KeyName].Value)
		assert.Equal(t, domain.LockPrimary, loaded.Slots[domain.KeyName].LockTier)
		assert.True(t, loaded.ConfirmedSlots[domain.KeyName])
	})

	t.Run("Load Isolation", func(t *testing.T) {
		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		loaded.Slots[domain.KeyName] = domain.Slot{Value: "clobbered"}

		again, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "Mark", again.Slots[domain.KeyName].Value,
			"mutating a loaded state must not leak into the store")
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, domain.NewBookingState(sessionID))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, domain.NewBookingState(id1))
		_ = store.Save(ctx, id2, domain.NewBookingState(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
