package speech

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/sentinel-go/internal/statestore"
	"go.uber.org/goleak"
)

type fakeSpeaker struct {
	spoken  []string
	failOn  string
	failErr error
}

func (f *fakeSpeaker) Say(_ context.Context, text string) error {
	if text == f.failOn {
		return f.failErr
	}
	f.spoken = append(f.spoken, text)
	return nil
}

func TestDrainOncePlaysInQueueOrder(t *testing.T) {
	store := statestore.NewMemStore()
	require.NoError(t, store.AddSpeechEvent(&statestore.SpeechEvent{Text: "Welcome home!"}))
	require.NoError(t, store.AddSpeechEvent(&statestore.SpeechEvent{Text: "Goodbye."}))

	speaker := &fakeSpeaker{}
	worker := NewWorker(store, speaker, time.Millisecond)

	require.NoError(t, worker.DrainOnce(context.Background()))
	assert.Equal(t, []string{"Welcome home!", "Goodbye."}, speaker.spoken)

	pending, err := store.PendingSpeechEvents()
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestDrainOnceIsIdempotentWhenEmpty(t *testing.T) {
	store := statestore.NewMemStore()
	speaker := &fakeSpeaker{}
	worker := NewWorker(store, speaker, time.Millisecond)

	require.NoError(t, worker.DrainOnce(context.Background()))
	require.NoError(t, worker.DrainOnce(context.Background()))
	assert.Empty(t, speaker.spoken)
}

func TestDrainOnceKeepsFailedAnnouncementPending(t *testing.T) {
	store := statestore.NewMemStore()
	require.NoError(t, store.AddSpeechEvent(&statestore.SpeechEvent{Text: "Door has been opened"}))

	speaker := &fakeSpeaker{failOn: "Door has been opened", failErr: errors.New("no audio device")}
	worker := NewWorker(store, speaker, time.Millisecond)

	require.Error(t, worker.DrainOnce(context.Background()))

	pending, err := store.PendingSpeechEvents()
	require.NoError(t, err)
	require.Len(t, pending, 1, "failed announcement must stay queued")

	// Device recovered, the retry drains it.
	speaker.failOn = ""
	require.NoError(t, worker.DrainOnce(context.Background()))
	pending, err = store.PendingSpeechEvents()
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRunStopsCleanly(t *testing.T) {
	defer goleak.VerifyNone(t,
		goleak.IgnoreTopFunction("gopkg.in/natefinch/lumberjack%2ev2.(*Logger).millRun"),
	)

	store := statestore.NewMemStore()
	require.NoError(t, store.AddSpeechEvent(&statestore.SpeechEvent{Text: "Welcome home!"}))

	worker := NewWorker(store, &fakeSpeaker{}, time.Millisecond)
	stop := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(stop)
	}()

	require.Eventually(t, func() bool {
		pending, err := store.PendingSpeechEvents()
		return err == nil && len(pending) == 0
	}, time.Second, time.Millisecond)

	close(stop)
	wg.Wait()
}
