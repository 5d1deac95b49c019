package alarm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/sentinel-go/internal/capture"
	"github.com/tphakala/sentinel-go/internal/statestore"
)

type fakeNotifier struct {
	mu        sync.Mutex
	texts     []string
	media     [][]capture.Media
	notifyErr error
}

func (f *fakeNotifier) Notify(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.notifyErr != nil {
		return f.notifyErr
	}
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeNotifier) SendMedia(_ context.Context, media []capture.Media) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.media = append(f.media, media)
	return nil
}

func (f *fakeNotifier) sentTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.texts))
	copy(out, f.texts)
	return out
}

func (f *fakeNotifier) mediaBatches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.media)
}

func (f *fakeNotifier) mediaPaths(batch int) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var paths []string
	for _, m := range f.media[batch] {
		paths = append(paths, m.Path)
	}
	return paths
}

type fakeGateway struct {
	mu         sync.Mutex
	calls      int
	photoCalls int
}

func (f *fakeGateway) TakePhotos(_ context.Context) ([]capture.Media, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.photoCalls++
	return []capture.Media{{Path: "/tmp/still-raspicam.jpg", Caption: "(Raspberry Pi Camera)"}}, nil
}

func (f *fakeGateway) RecordVideos(_ context.Context, _ time.Duration) ([]capture.Media, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return []capture.Media{{Path: "/tmp/clip-raspicam.mp4", Caption: "(Raspberry Pi Camera)"}}, nil
}

func (f *fakeGateway) recordCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeGateway) takePhotoCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.photoCalls
}

func newTestMonitor() (*Monitor, *statestore.MemStore, *fakeNotifier, *fakeGateway) {
	store := statestore.NewMemStore()
	notifier := &fakeNotifier{}
	gateway := &fakeGateway{}
	monitor := NewMonitor(store, notifier, gateway, time.Second, 10*time.Second, nil)
	return monitor, store, notifier, gateway
}

// waitCaptureSettled blocks until no capture goroutine is in flight.
func waitCaptureSettled(t *testing.T, m *Monitor) {
	t.Helper()
	require.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return !m.captureInFlight
	}, time.Second, time.Millisecond)
}

func TestTickIdleWhenDoorNeverOpened(t *testing.T) {
	monitor, _, notifier, gateway := newTestMonitor()

	require.NoError(t, monitor.Tick(context.Background()))

	assert.Equal(t, StateIdle, monitor.State())
	assert.Empty(t, notifier.sentTexts())
	assert.Equal(t, 0, gateway.recordCalls())
}

func TestUnauthorizedOpenEscalatesToAlerted(t *testing.T) {
	monitor, store, notifier, gateway := newTestMonitor()
	require.NoError(t, store.SetBool(statestore.KeyDoorOpened, true))

	// First tick: warning plus one photo+video capture start.
	require.NoError(t, monitor.Tick(context.Background()))
	assert.Equal(t, StatePending, monitor.State())
	assert.Equal(t, []string{"Door has been opened"}, notifier.sentTexts())
	waitCaptureSettled(t, monitor)
	assert.Equal(t, 1, gateway.recordCalls())
	assert.Equal(t, 1, gateway.takePhotoCalls())

	pendingSince, err := store.GetInt(statestore.KeyPendingSince)
	require.NoError(t, err)
	assert.NotZero(t, pendingSince, "pending timestamp must be persisted")

	// Second tick: break-in confirmation plus evidence delivery.
	require.NoError(t, monitor.Tick(context.Background()))
	assert.Equal(t, StateAlerted, monitor.State())
	assert.Equal(t, []string{"Door has been opened", "A break-in has been detected!"}, notifier.sentTexts())
	assert.Equal(t, 1, notifier.mediaBatches(), "previously captured media is sent")
	waitCaptureSettled(t, monitor)
	assert.Equal(t, 2, gateway.recordCalls(), "a new capture starts on confirmation")
}

func TestFirstAlertQueuesStillsWithClips(t *testing.T) {
	monitor, store, notifier, _ := newTestMonitor()
	require.NoError(t, store.SetBool(statestore.KeyDoorOpened, true))

	require.NoError(t, monitor.Tick(context.Background()))
	waitCaptureSettled(t, monitor)
	require.NoError(t, monitor.Tick(context.Background()))

	require.Equal(t, 1, notifier.mediaBatches())
	paths := notifier.mediaPaths(0)
	assert.Contains(t, paths, "/tmp/still-raspicam.jpg")
	assert.Contains(t, paths, "/tmp/clip-raspicam.mp4")
}

func TestAlertedTicksDoNotRepeatBreakInText(t *testing.T) {
	monitor, store, notifier, _ := newTestMonitor()
	require.NoError(t, store.SetBool(statestore.KeyDoorOpened, true))

	for i := 0; i < 4; i++ {
		require.NoError(t, monitor.Tick(context.Background()))
		waitCaptureSettled(t, monitor)
	}

	texts := notifier.sentTexts()
	require.Len(t, texts, 2)
	assert.Equal(t, "A break-in has been detected!", texts[1])
	assert.Equal(t, StateAlerted, monitor.State())
}

func TestAuthorizationWinsAndDisarms(t *testing.T) {
	monitor, store, notifier, _ := newTestMonitor()
	require.NoError(t, store.SetBool(statestore.KeyDoorOpened, true))

	require.NoError(t, monitor.Tick(context.Background()))
	require.NoError(t, monitor.Tick(context.Background()))
	require.Equal(t, StateAlerted, monitor.State())
	waitCaptureSettled(t, monitor)

	require.NoError(t, store.SetBool(statestore.KeyUserAuthorized, true))
	sent := len(notifier.sentTexts())

	require.NoError(t, monitor.Tick(context.Background()))
	assert.Equal(t, StateIdle, monitor.State())
	assert.Len(t, notifier.sentTexts(), sent, "no further alerts after authorization")

	doorOpened, err := store.GetBool(statestore.KeyDoorOpened)
	require.NoError(t, err)
	assert.False(t, doorOpened)

	pendingSince, err := store.GetInt(statestore.KeyPendingSince)
	require.NoError(t, err)
	assert.Zero(t, pendingSince)
}

func TestSimultaneousFlipsAuthorizationWins(t *testing.T) {
	monitor, store, notifier, gateway := newTestMonitor()
	require.NoError(t, store.SetBool(statestore.KeyDoorOpened, true))
	require.NoError(t, store.SetBool(statestore.KeyUserAuthorized, true))

	require.NoError(t, monitor.Tick(context.Background()))

	assert.Equal(t, StateIdle, monitor.State())
	assert.Empty(t, notifier.sentTexts())
	assert.Equal(t, 0, gateway.recordCalls())
}

func TestGoingOutSuppressesTransitions(t *testing.T) {
	monitor, store, notifier, gateway := newTestMonitor()
	require.NoError(t, store.SetBool(statestore.KeyGoingOut, true))
	require.NoError(t, store.SetBool(statestore.KeyDoorOpened, true))

	require.NoError(t, monitor.Tick(context.Background()))

	assert.Equal(t, StateSuppressed, monitor.State())
	assert.Empty(t, notifier.sentTexts())
	assert.Equal(t, 0, gateway.recordCalls())

	pendingSince, err := store.GetInt(statestore.KeyPendingSince)
	require.NoError(t, err)
	assert.Zero(t, pendingSince, "suppressed ticks perform no bookkeeping")
}

func TestFalseAlarmOverride(t *testing.T) {
	monitor, store, _, _ := newTestMonitor()
	require.NoError(t, store.SetBool(statestore.KeyDoorOpened, true))

	require.NoError(t, monitor.Tick(context.Background()))
	require.NoError(t, monitor.Tick(context.Background()))
	require.Equal(t, StateAlerted, monitor.State())
	waitCaptureSettled(t, monitor)

	require.NoError(t, monitor.FalseAlarm())

	assert.Equal(t, StateIdle, monitor.State())
	doorOpened, err := store.GetBool(statestore.KeyDoorOpened)
	require.NoError(t, err)
	assert.False(t, doorOpened)

	require.NoError(t, monitor.Tick(context.Background()))
	assert.Equal(t, StateIdle, monitor.State())
}

func TestRestartResumesFromPersistedPending(t *testing.T) {
	store := statestore.NewMemStore()
	require.NoError(t, store.SetBool(statestore.KeyDoorOpened, true))
	require.NoError(t, store.SetInt(statestore.KeyPendingSince, 1700000000))

	notifier := &fakeNotifier{}
	gateway := &fakeGateway{}
	monitor := NewMonitor(store, notifier, gateway, time.Second, 10*time.Second, nil)

	// A fresh monitor with a persisted pending timestamp confirms the
	// break-in instead of starting over with the first warning.
	require.NoError(t, monitor.Tick(context.Background()))
	assert.Equal(t, StateAlerted, monitor.State())
	assert.Equal(t, []string{"A break-in has been detected!"}, notifier.sentTexts())
}

func TestNotifyFailureDoesNotBlockBookkeeping(t *testing.T) {
	monitor, store, notifier, _ := newTestMonitor()
	notifier.notifyErr = errors.New("transport down")
	require.NoError(t, store.SetBool(statestore.KeyDoorOpened, true))

	require.NoError(t, monitor.Tick(context.Background()))

	assert.Equal(t, StatePending, monitor.State())
	pendingSince, err := store.GetInt(statestore.KeyPendingSince)
	require.NoError(t, err)
	assert.NotZero(t, pendingSince, "pending flag advances despite notify failure")
}

func TestAtMostOneCaptureInFlight(t *testing.T) {
	monitor, store, _, _ := newTestMonitor()
	blocked := make(chan struct{})
	slow := &blockingGateway{release: blocked}
	monitor.gateway = slow
	require.NoError(t, store.SetBool(statestore.KeyDoorOpened, true))

	require.NoError(t, monitor.Tick(context.Background()))
	require.NoError(t, monitor.Tick(context.Background()))
	require.NoError(t, monitor.Tick(context.Background()))

	close(blocked)
	waitCaptureSettled(t, monitor)
	assert.Equal(t, 1, slow.recordCalls(), "overlapping captures must not start")
}

type blockingGateway struct {
	mu      sync.Mutex
	calls   int
	release chan struct{}
}

func (b *blockingGateway) TakePhotos(_ context.Context) ([]capture.Media, error) {
	return nil, nil
}

func (b *blockingGateway) RecordVideos(_ context.Context, _ time.Duration) ([]capture.Media, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	<-b.release
	return nil, nil
}

func (b *blockingGateway) recordCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}
