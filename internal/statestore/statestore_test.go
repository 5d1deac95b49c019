package statestore

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestStore opens a seeded in-memory store.
func newTestStore(t *testing.T) *DataStore {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_pragma=foreign_keys(1)"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&BoolState{}, &IntState{}, &DoorEvent{}, &SpeechEvent{}))

	store := &DataStore{DB: db}
	require.NoError(t, store.SeedDefaults())

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})
	return store
}

func TestSeedDefaults(t *testing.T) {
	store := newTestStore(t)

	for _, key := range []string{KeyUserAuthorized, KeyDoorOpen, KeyDoorOpened, KeyGoingOut} {
		value, err := store.GetBool(key)
		require.NoError(t, err, key)
		assert.False(t, value, key)
	}
	for _, key := range []string{KeyTemperature, KeyHumidity} {
		value, err := store.GetInt(key)
		require.NoError(t, err, key)
		assert.Equal(t, UnknownReading, value, key)
	}
	pending, err := store.GetInt(KeyPendingSince)
	require.NoError(t, err)
	assert.Equal(t, 0, pending)
}

func TestSeedDefaultsIsIdempotent(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SetBool(KeyDoorOpened, true))
	require.NoError(t, store.SetInt(KeyTemperature, 21))

	// Re-seeding (as happens on every restart) must not clobber values.
	require.NoError(t, store.SeedDefaults())

	opened, err := store.GetBool(KeyDoorOpened)
	require.NoError(t, err)
	assert.True(t, opened)

	temp, err := store.GetInt(KeyTemperature)
	require.NoError(t, err)
	assert.Equal(t, 21, temp)
}

func TestSetGetRoundTrip(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SetBool(KeyUserAuthorized, true))
	value, err := store.GetBool(KeyUserAuthorized)
	require.NoError(t, err)
	assert.True(t, value)

	require.NoError(t, store.SetInt(KeyHumidity, 55))
	humidity, err := store.GetInt(KeyHumidity)
	require.NoError(t, err)
	assert.Equal(t, 55, humidity)
}

func TestSetUnseededKeyFails(t *testing.T) {
	store := newTestStore(t)

	err := store.SetBool("no_such_key", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not seeded")
}

func TestDoorEvents(t *testing.T) {
	store := newTestStore(t)

	now := time.Now().Unix()
	for i := range 5 {
		require.NoError(t, store.AddDoorEvent(&DoorEvent{
			Timestamp:     now + int64(i),
			Duration:      int64(i),
			WasAuthorized: i%2 == 0,
		}))
	}

	events, err := store.LatestDoorEvents(3)
	require.NoError(t, err)
	require.Len(t, events, 3)

	// Newest first.
	assert.Equal(t, int64(4), events[0].Duration)
	assert.Equal(t, int64(3), events[1].Duration)
	assert.Equal(t, int64(2), events[2].Duration)
}

func TestDoorEventRejectsNegativeDuration(t *testing.T) {
	store := newTestStore(t)

	err := store.AddDoorEvent(&DoorEvent{Timestamp: time.Now().Unix(), Duration: -1})
	require.Error(t, err)
}

func TestDoorEventString(t *testing.T) {
	t.Parallel()

	event := &DoorEvent{Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.Local).Unix(), Duration: 12}
	assert.Equal(t, "2026-03-01:12-00-00: 12s, not authorized", event.String())

	event.WasAuthorized = true
	assert.Equal(t, "2026-03-01:12-00-00: 12s, authorized", event.String())
}

func TestSpeechQueueFIFO(t *testing.T) {
	store := newTestStore(t)

	base := time.Now().Unix()
	// Insert out of order; the queue must come back sorted by timestamp.
	require.NoError(t, store.AddSpeechEvent(&SpeechEvent{Text: "second", Timestamp: base + 10}))
	require.NoError(t, store.AddSpeechEvent(&SpeechEvent{Text: "first", Timestamp: base}))

	pending, err := store.PendingSpeechEvents()
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "first", pending[0].Text)
	assert.Equal(t, "second", pending[1].Text)

	require.NoError(t, store.MarkSpeechExecuted(pending[0].ID))

	pending, err = store.PendingSpeechEvents()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "second", pending[0].Text)
}

func TestMemStoreDefaultsSpeechTimestamp(t *testing.T) {
	store := NewMemStore()

	// Queued without an explicit timestamp, like the sensor pollers do.
	require.NoError(t, store.AddSpeechEvent(&SpeechEvent{Text: "Goodbye."}))
	require.NoError(t, store.AddSpeechEvent(&SpeechEvent{
		Text:      "Welcome home!",
		Timestamp: time.Now().Add(-time.Hour).Unix(),
	}))

	pending, err := store.PendingSpeechEvents()
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.NotZero(t, pending[1].Timestamp)
	assert.Equal(t, "Welcome home!", pending[0].Text, "ordered by timestamp, not insertion")
	assert.Equal(t, "Goodbye.", pending[1].Text)
}

func TestUpdateCommitsAtomically(t *testing.T) {
	store := newTestStore(t)

	err := store.Update(func(s Accessor) error {
		if err := s.SetBool(KeyDoorOpen, true); err != nil {
			return err
		}
		return s.SetBool(KeyDoorOpened, true)
	})
	require.NoError(t, err)

	open, err := store.GetBool(KeyDoorOpen)
	require.NoError(t, err)
	opened, err := store.GetBool(KeyDoorOpened)
	require.NoError(t, err)
	assert.True(t, open)
	assert.True(t, opened)
}

func TestUpdateRollsBackOnError(t *testing.T) {
	store := newTestStore(t)

	err := store.Update(func(s Accessor) error {
		if err := s.SetBool(KeyDoorOpen, true); err != nil {
			return err
		}
		return fmt.Errorf("deliberate failure")
	})
	require.Error(t, err)

	open, err := store.GetBool(KeyDoorOpen)
	require.NoError(t, err)
	assert.False(t, open, "failed transaction must not leak writes")
}
