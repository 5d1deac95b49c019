// Package alarm implements the break-in state machine. It evaluates the
// shared state flags once per second and drives notifications and camera
// captures when the door opens without authorization.
package alarm

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/tphakala/sentinel-go/internal/capture"
	"github.com/tphakala/sentinel-go/internal/logging"
	"github.com/tphakala/sentinel-go/internal/mqtt"
	"github.com/tphakala/sentinel-go/internal/observability"
	"github.com/tphakala/sentinel-go/internal/statestore"
)

// Package-level logger for the alarm monitor
var (
	alarmLogger   *slog.Logger
	alarmLevelVar = new(slog.LevelVar)
)

func init() {
	var err error
	alarmLevelVar.Set(slog.LevelInfo)

	alarmLogger, _, err = logging.NewFileLogger("logs/alarm.log", "alarm", alarmLevelVar)
	if err != nil {
		logging.Error("Failed to initialize alarm file logger", "error", err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: alarmLevelVar})
		alarmLogger = slog.New(fbHandler).With("service", "alarm")
	}
}

// State is the alarm monitor's mode after a tick.
type State string

const (
	StateIdle       State = "armed_idle"
	StatePending    State = "armed_pending"
	StateAlerted    State = "alerted"
	StateSuppressed State = "suppressed"
)

// Alert texts sent to the owner.
const (
	doorOpenedAlert = "Door has been opened"
	breakInAlert    = "A break-in has been detected!"
)

// Notifier delivers alert texts and captured media to the owner.
type Notifier interface {
	Notify(ctx context.Context, text string) error
	SendMedia(ctx context.Context, media []capture.Media) error
}

// CaptureGateway records evidence stills and clips on all cameras.
type CaptureGateway interface {
	TakePhotos(ctx context.Context) ([]capture.Media, error)
	RecordVideos(ctx context.Context, duration time.Duration) ([]capture.Media, error)
}

// Monitor is the alarm state machine. The pending timestamp lives in the
// state store, so a restart mid-break-in resumes instead of silently
// disarming.
type Monitor struct {
	store           statestore.Interface
	notifier        Notifier
	gateway         CaptureGateway
	tickInterval    time.Duration
	captureDuration time.Duration
	metrics         *observability.Metrics

	mqttClient mqtt.Client
	mqttTopic  string

	// now is replaceable in tests
	now func() time.Time

	mu              sync.Mutex
	state           State
	alerted         bool
	captureInFlight bool
	unsentMedia     []capture.Media
	running         bool
}

// NewMonitor creates an alarm monitor.
func NewMonitor(store statestore.Interface, notifier Notifier, gateway CaptureGateway, tickInterval time.Duration, captureDuration time.Duration, metrics *observability.Metrics) *Monitor {
	return &Monitor{
		store:           store,
		notifier:        notifier,
		gateway:         gateway,
		tickInterval:    tickInterval,
		captureDuration: captureDuration,
		metrics:         metrics,
		now:             time.Now,
		state:           StateIdle,
	}
}

// EnableMQTT publishes state transitions as JSON under topic/alarm.
func (m *Monitor) EnableMQTT(client mqtt.Client, topic string) {
	m.mqttClient = client
	m.mqttTopic = topic
}

// State reports the monitor's mode after the most recent tick.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Alive reports whether the tick loop is running.
func (m *Monitor) Alive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Run evaluates the transition table until stop closes.
func (m *Monitor) Run(stop <-chan struct{}) {
	alarmLogger.Info("Starting alarm monitor", "tick_interval", m.tickInterval)
	m.mu.Lock()
	m.running = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
	}()

	ticker := time.NewTicker(m.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			alarmLogger.Info("Stopping alarm monitor")
			return
		case <-ticker.C:
			if err := m.Tick(context.Background()); err != nil {
				alarmLogger.Error("Alarm tick failed", "error", err)
			}
		}
	}
}

// tickDecision is the outcome of one transition table evaluation.
type tickDecision int

const (
	decideSuppressed tickDecision = iota
	decideIdle
	decideFirstAlert
	decideBreakIn
)

// Tick evaluates the transition table once. Flag reads and bookkeeping
// writes commit atomically; the notify and capture side effects run after
// the commit so their failures never block the transition itself.
func (m *Monitor) Tick(ctx context.Context) error {
	var decision tickDecision
	err := m.store.Update(func(s statestore.Accessor) error {
		goingOut, err := s.GetBool(statestore.KeyGoingOut)
		if err != nil {
			return err
		}
		if goingOut {
			decision = decideSuppressed
			return nil
		}

		authorized, err := s.GetBool(statestore.KeyUserAuthorized)
		if err != nil {
			return err
		}
		doorOpened, err := s.GetBool(statestore.KeyDoorOpened)
		if err != nil {
			return err
		}
		pendingSince, err := s.GetInt(statestore.KeyPendingSince)
		if err != nil {
			return err
		}

		// Authorization wins over a simultaneous door_opened flip.
		if authorized {
			decision = decideIdle
			if doorOpened {
				if err := s.SetBool(statestore.KeyDoorOpened, false); err != nil {
					return err
				}
			}
			if pendingSince != 0 {
				return s.SetInt(statestore.KeyPendingSince, 0)
			}
			return nil
		}

		if !doorOpened {
			decision = decideIdle
			if pendingSince != 0 {
				return s.SetInt(statestore.KeyPendingSince, 0)
			}
			return nil
		}

		if pendingSince == 0 {
			decision = decideFirstAlert
			return s.SetInt(statestore.KeyPendingSince, int(m.now().Unix()))
		}
		decision = decideBreakIn
		return nil
	})
	if err != nil {
		return err
	}

	m.apply(ctx, decision)
	return nil
}

// apply runs the side effects for a committed decision.
func (m *Monitor) apply(ctx context.Context, decision tickDecision) {
	switch decision {
	case decideSuppressed:
		m.setState(StateSuppressed)

	case decideIdle:
		m.mu.Lock()
		m.alerted = false
		m.mu.Unlock()
		m.setState(StateIdle)

	case decideFirstAlert:
		alarmLogger.Warn("Door opened while armed")
		m.notify(ctx, doorOpenedAlert)
		m.startCapture()
		m.setState(StatePending)

	case decideBreakIn:
		m.mu.Lock()
		firstConfirmation := !m.alerted
		m.alerted = true
		m.mu.Unlock()

		if firstConfirmation {
			alarmLogger.Error("Break-in detected")
			m.notify(ctx, breakInAlert)
		}
		m.sendUnsentMedia(ctx)
		m.startCapture()
		m.setState(StateAlerted)
	}
}

func (m *Monitor) setState(next State) {
	m.mu.Lock()
	previous := m.state
	m.state = next
	m.mu.Unlock()

	if previous == next {
		return
	}
	alarmLogger.Info("Alarm state changed", "from", previous, "to", next)
	if m.metrics != nil {
		m.metrics.AlarmTransitions.WithLabelValues(string(next)).Inc()
	}
	m.publishTransition(previous, next)
}

func (m *Monitor) publishTransition(from, to State) {
	if m.mqttClient == nil || !m.mqttClient.IsConnected() {
		return
	}
	payload, err := json.Marshal(map[string]any{
		"from":      from,
		"to":        to,
		"timestamp": m.now().Unix(),
	})
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.mqttClient.Publish(ctx, m.mqttTopic+"/alarm", string(payload)); err != nil {
		alarmLogger.Warn("MQTT transition publish failed", "error", err)
	}
}

func (m *Monitor) notify(ctx context.Context, text string) {
	if err := m.notifier.Notify(ctx, text); err != nil {
		alarmLogger.Error("Alert notification failed", "text", text, "error", err)
	}
}

// startCapture kicks off an evidence capture unless one is already in
// flight: stills first, then a clip on every camera. Completed media
// queues up for the next alerted tick to send.
func (m *Monitor) startCapture() {
	m.mu.Lock()
	if m.captureInFlight {
		m.mu.Unlock()
		return
	}
	m.captureInFlight = true
	m.mu.Unlock()

	go func() {
		photos, err := m.gateway.TakePhotos(context.Background())
		if err != nil {
			// Partial results still get queued.
			alarmLogger.Error("Evidence photo capture failed", "error", err)
		}
		clips, err := m.gateway.RecordVideos(context.Background(), m.captureDuration)
		if err != nil {
			alarmLogger.Error("Evidence video capture failed", "error", err)
		}
		m.mu.Lock()
		m.captureInFlight = false
		m.unsentMedia = append(m.unsentMedia, photos...)
		m.unsentMedia = append(m.unsentMedia, clips...)
		m.mu.Unlock()
	}()
}

// sendUnsentMedia delivers every completed clip that has not been sent
// yet. Delivery failures drop the batch rather than retrying forever.
func (m *Monitor) sendUnsentMedia(ctx context.Context) {
	m.mu.Lock()
	batch := m.unsentMedia
	m.unsentMedia = nil
	m.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	if err := m.notifier.SendMedia(ctx, batch); err != nil {
		alarmLogger.Error("Evidence delivery failed", "files", len(batch), "error", err)
	}
}

// FalseAlarm is the manual override. It clears the pending state and the
// sticky door flag without requiring authorization.
func (m *Monitor) FalseAlarm() error {
	alarmLogger.Info("False alarm override")
	err := m.store.Update(func(s statestore.Accessor) error {
		if err := s.SetInt(statestore.KeyPendingSince, 0); err != nil {
			return err
		}
		return s.SetBool(statestore.KeyDoorOpened, false)
	})
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.alerted = false
	m.mu.Unlock()
	m.setState(StateIdle)
	return nil
}
