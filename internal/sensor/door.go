package sensor

import (
	"context"
	"encoding/json"
	"time"

	"github.com/tphakala/sentinel-go/internal/errors"
	"github.com/tphakala/sentinel-go/internal/mqtt"
	"github.com/tphakala/sentinel-go/internal/observability"
	"github.com/tphakala/sentinel-go/internal/statestore"
)

// DoorPoller watches the door contact and maintains the door_open and
// door_opened flags. On every open->close transition it appends a
// DoorEvent recording the interval duration and whether the user was
// authorized at close time.
//
// door_opened is sticky: the poller only ever sets it, clearing is the
// business of the alarm monitor and the authorization flows.
type DoorPoller struct {
	store    statestore.Interface
	contact  DoorContact
	interval time.Duration
	metrics  *observability.Metrics

	mqttClient mqtt.Client
	mqttTopic  string

	// now is replaceable in tests
	now func() time.Time

	// openSince is process-local: the start of the current open interval,
	// nil while the door is closed.
	openSince *time.Time
}

// NewDoorPoller creates a door poller reading contact every interval.
func NewDoorPoller(store statestore.Interface, contact DoorContact, interval time.Duration, metrics *observability.Metrics) *DoorPoller {
	return &DoorPoller{
		store:    store,
		contact:  contact,
		interval: interval,
		metrics:  metrics,
		now:      time.Now,
	}
}

// EnableMQTT publishes door events as JSON under topic/door.
func (p *DoorPoller) EnableMQTT(client mqtt.Client, topic string) {
	p.mqttClient = client
	p.mqttTopic = topic
}

// Run polls until stop closes. A failing tick is logged and retried on the
// next interval; the loop never terminates on its own.
func (p *DoorPoller) Run(stop <-chan struct{}) {
	sensorLogger.Info("Starting door poller", "interval", p.interval)
	for {
		if err := p.Tick(); err != nil {
			sensorLogger.Error("Door poller tick failed", "error", err)
			if p.metrics != nil {
				p.metrics.SensorReadErrors.WithLabelValues("door").Inc()
			}
		}
		if !sleepOrStop(p.interval, stop) {
			sensorLogger.Info("Stopping door poller")
			return
		}
	}
}

// Tick performs a single poll of the door contact.
func (p *DoorPoller) Tick() error {
	rawOpen, err := p.contact.IsOpen()
	if err != nil {
		return errors.New(err).
			Component("sensor").
			Category(errors.CategorySensor).
			Context("sensor", "door").
			Build()
	}

	switch {
	case rawOpen && p.openSince == nil:
		now := p.now()
		p.openSince = &now
		sensorLogger.Info("Door opened")
		if err := p.store.Update(func(s statestore.Accessor) error {
			if err := s.SetBool(statestore.KeyDoorOpen, true); err != nil {
				return err
			}
			return s.SetBool(statestore.KeyDoorOpened, true)
		}); err != nil {
			// Forget the interval start so the write is retried next tick.
			p.openSince = nil
			return err
		}
		if p.metrics != nil {
			p.metrics.DoorOpenGauge.Set(1)
		}

	case !rawOpen && p.openSince != nil:
		closeTime := p.now()
		duration := int64(closeTime.Sub(*p.openSince).Seconds())
		if duration < 0 {
			duration = 0
		}
		var wasAuthorized bool
		if err := p.store.Update(func(s statestore.Accessor) error {
			var err error
			wasAuthorized, err = s.GetBool(statestore.KeyUserAuthorized)
			if err != nil {
				return err
			}
			if err := s.AddDoorEvent(&statestore.DoorEvent{
				Timestamp:     closeTime.Unix(),
				Duration:      duration,
				WasAuthorized: wasAuthorized,
			}); err != nil {
				return err
			}
			// door_opened stays untouched here, it is sticky until an
			// authorization or a false-alarm override clears it.
			return s.SetBool(statestore.KeyDoorOpen, false)
		}); err != nil {
			return err
		}
		sensorLogger.Info("Door closed", "open_seconds", duration)
		p.openSince = nil
		if p.metrics != nil {
			p.metrics.DoorOpenGauge.Set(0)
			p.metrics.DoorEvents.Inc()
		}
		p.publishDoorEvent(closeTime, duration, wasAuthorized)
	}

	return nil
}

// publishDoorEvent mirrors a recorded door event to MQTT when enabled.
func (p *DoorPoller) publishDoorEvent(closeTime time.Time, duration int64, wasAuthorized bool) {
	if p.mqttClient == nil || !p.mqttClient.IsConnected() {
		return
	}
	payload, err := json.Marshal(map[string]any{
		"timestamp":      closeTime.Unix(),
		"duration":       duration,
		"was_authorized": wasAuthorized,
	})
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.mqttClient.Publish(ctx, p.mqttTopic+"/door", string(payload)); err != nil {
		sensorLogger.Warn("MQTT door event publish failed", "error", err)
	}
}
