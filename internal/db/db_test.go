package db

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "lockerd_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordAndListEvents(t *testing.T) {
	db := newTestDB(t)

	first := Event{
		ID:             uuid.NewString(),
		Operation:      "unlock",
		Station:        0,
		Lock:           5,
		Success:        true,
		Status:         "open",
		ResponseTimeMs: 120,
	}
	require.NoError(t, db.RecordEvent(first))

	second := Event{
		ID:        uuid.NewString(),
		Operation: "status",
		Station:   1,
		Lock:      3,
		Success:   false,
		Status:    "unknown",
		Error:     "locker: response timeout",
	}
	require.NoError(t, db.RecordEvent(second))

	events, err := db.Events(10)
	require.NoError(t, err)
	require.Len(t, events, 2)

	byID := map[string]Event{events[0].ID: events[0], events[1].ID: events[1]}

	got := byID[first.ID]
	assert.Equal(t, "unlock", got.Operation)
	assert.Equal(t, 5, got.Lock)
	assert.True(t, got.Success)
	assert.Equal(t, int64(120), got.ResponseTimeMs)
	assert.NotEmpty(t, got.Timestamp)

	got = byID[second.ID]
	assert.False(t, got.Success)
	assert.Equal(t, "locker: response timeout", got.Error)
}

func TestEventsLimit(t *testing.T) {
	db := newTestDB(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, db.RecordEvent(Event{
			ID:        uuid.NewString(),
			Operation: "status",
			Lock:      i + 1,
			Success:   true,
			Status:    "closed",
		}))
	}

	events, err := db.Events(3)
	require.NoError(t, err)
	assert.Len(t, events, 3)

	// Zero limit falls back to the default rather than returning nothing.
	events, err = db.Events(0)
	require.NoError(t, err)
	assert.Len(t, events, 5)
}

func TestRecordEventRejectsDuplicateID(t *testing.T) {
	db := newTestDB(t)

	e := Event{ID: uuid.NewString(), Operation: "unlock", Lock: 1, Success: true}
	require.NoError(t, db.RecordEvent(e))
	assert.Error(t, db.RecordEvent(e))
}
