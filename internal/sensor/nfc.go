package sensor

import (
	"context"
	"time"

	"github.com/tphakala/sentinel-go/internal/errors"
	"github.com/tphakala/sentinel-go/internal/observability"
	"github.com/tphakala/sentinel-go/internal/statestore"
	"golang.org/x/crypto/bcrypt"
)

// NFCPoller waits for a tag on the badge reader and toggles the
// user_authorized flag when the presented credential matches the
// configured hash. A physical tag carries no separate in/out signal, so a
// match toggles: arriving clears door_opened, leaving opens a grace
// window during which the alarm is suppressed.
type NFCPoller struct {
	store          statestore.Interface
	reader         TagReader
	credentialHash string
	cooldown       time.Duration
	graceWindow    time.Duration
	metrics        *observability.Metrics
}

// NewNFCPoller creates an NFC poller.
func NewNFCPoller(store statestore.Interface, reader TagReader, credentialHash string, cooldown, graceWindow time.Duration, metrics *observability.Metrics) *NFCPoller {
	return &NFCPoller{
		store:          store,
		reader:         reader,
		credentialHash: credentialHash,
		cooldown:       cooldown,
		graceWindow:    graceWindow,
		metrics:        metrics,
	}
}

// Run reads tags until stop closes. The blocking tag read is cancelled
// through the context when shutdown is requested.
func (p *NFCPoller) Run(stop <-chan struct{}) {
	sensorLogger.Info("Starting NFC poller", "cooldown", p.cooldown, "grace_window", p.graceWindow)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-stop
		cancel()
	}()

	for {
		select {
		case <-stop:
			sensorLogger.Info("Stopping NFC poller")
			return
		default:
		}

		if err := p.waitAndHandleTag(ctx, stop); err != nil {
			if ctx.Err() != nil {
				sensorLogger.Info("Stopping NFC poller")
				return
			}
			sensorLogger.Error("NFC read failed", "error", err)
			if p.metrics != nil {
				p.metrics.SensorReadErrors.WithLabelValues("nfc").Inc()
			}
		}

		if !sleepOrStop(p.cooldown, stop) {
			sensorLogger.Info("Stopping NFC poller")
			return
		}
	}
}

func (p *NFCPoller) waitAndHandleTag(ctx context.Context, stop <-chan struct{}) error {
	sensorLogger.Info("Waiting for NFC tag")
	credential, err := p.reader.ReadTag(ctx)
	if err != nil {
		return errors.New(err).
			Component("sensor").
			Category(errors.CategorySensor).
			Context("sensor", "nfc").
			Build()
	}
	sensorLogger.Info("NFC tag detected")

	if bcrypt.CompareHashAndPassword([]byte(p.credentialHash), []byte(credential)) != nil {
		// A foreign tag is not a state change, just an audit line.
		sensorLogger.Warn("NFC authentication unsuccessful")
		return nil
	}
	sensorLogger.Info("NFC authentication successful")

	return p.toggleAuthorization(stop)
}

// toggleAuthorization flips user_authorized and performs the arrival or
// departure sequence.
func (p *NFCPoller) toggleAuthorization(stop <-chan struct{}) error {
	var nowAuthorized bool
	err := p.store.Update(func(s statestore.Accessor) error {
		authorized, err := s.GetBool(statestore.KeyUserAuthorized)
		if err != nil {
			return err
		}
		nowAuthorized = !authorized
		return s.SetBool(statestore.KeyUserAuthorized, nowAuthorized)
	})
	if err != nil {
		return err
	}

	if nowAuthorized {
		return p.handleArrival()
	}
	return p.handleDeparture(stop)
}

func (p *NFCPoller) handleArrival() error {
	sensorLogger.Info("User returned home")
	return p.store.Update(func(s statestore.Accessor) error {
		if err := s.SetBool(statestore.KeyDoorOpened, false); err != nil {
			return err
		}
		return s.AddSpeechEvent(&statestore.SpeechEvent{Text: "Welcome home!"})
	})
}

// handleDeparture opens the going_out grace window, then re-arms. The
// sticky door_opened flag is pre-cleared at the end of the window so the
// door opening during egress is not treated as a break-in.
func (p *NFCPoller) handleDeparture(stop <-chan struct{}) error {
	sensorLogger.Info("User leaving", "grace_window", p.graceWindow)
	err := p.store.Update(func(s statestore.Accessor) error {
		if err := s.SetBool(statestore.KeyGoingOut, true); err != nil {
			return err
		}
		return s.AddSpeechEvent(&statestore.SpeechEvent{Text: "Goodbye."})
	})
	if err != nil {
		return err
	}

	// Give the user time to leave. Shutdown during the window still
	// re-arms so the flag is not left dangling in the shared store.
	sleepOrStop(p.graceWindow, stop)

	return p.store.Update(func(s statestore.Accessor) error {
		if err := s.SetBool(statestore.KeyGoingOut, false); err != nil {
			return err
		}
		return s.SetBool(statestore.KeyDoorOpened, false)
	})
}
