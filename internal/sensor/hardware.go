// Package sensor contains the pollers that read physical inputs and write
// their readings into the shared state store. The hardware drivers
// themselves (GPIO door contact, RFID reader, DHT22) are external
// collaborators reached through the interfaces below.
package sensor

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/tphakala/sentinel-go/internal/logging"
)

// Package-level logger for sensor pollers
var (
	sensorLogger   *slog.Logger
	sensorLevelVar = new(slog.LevelVar)
)

func init() {
	var err error
	sensorLevelVar.Set(slog.LevelInfo)

	sensorLogger, _, err = logging.NewFileLogger("logs/sensor.log", "sensor", sensorLevelVar)
	if err != nil {
		logging.Error("Failed to initialize sensor file logger", "error", err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: sensorLevelVar})
		sensorLogger = slog.New(fbHandler).With("service", "sensor")
	}
}

// DoorContact reads the raw door contact state.
type DoorContact interface {
	// IsOpen reports whether the door is currently open.
	IsOpen() (bool, error)
}

// TagReader reads a credential from an NFC tag. ReadTag blocks until a tag
// is presented or the context is cancelled.
type TagReader interface {
	ReadTag(ctx context.Context) (string, error)
}

// EnvironmentSensor reads temperature and humidity. A transient failure
// returns an error; the poller skips the tick and retries.
type EnvironmentSensor interface {
	Read() (temperature, humidity int, err error)
}

// ExclusiveDoorContact serializes access to a door contact so two logical
// pollers never collide on the same physical pin.
type ExclusiveDoorContact struct {
	mu      sync.Mutex
	contact DoorContact
}

// NewExclusiveDoorContact wraps contact with an exclusive-access lock.
func NewExclusiveDoorContact(contact DoorContact) *ExclusiveDoorContact {
	return &ExclusiveDoorContact{contact: contact}
}

func (e *ExclusiveDoorContact) IsOpen() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.contact.IsOpen()
}

// ExclusiveTagReader serializes access to the NFC reader bus.
type ExclusiveTagReader struct {
	mu     sync.Mutex
	reader TagReader
}

// NewExclusiveTagReader wraps reader with an exclusive-access lock.
func NewExclusiveTagReader(reader TagReader) *ExclusiveTagReader {
	return &ExclusiveTagReader{reader: reader}
}

func (e *ExclusiveTagReader) ReadTag(ctx context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reader.ReadTag(ctx)
}

// ExclusiveEnvironmentSensor serializes access to the environment sensor.
type ExclusiveEnvironmentSensor struct {
	mu     sync.Mutex
	sensor EnvironmentSensor
}

// NewExclusiveEnvironmentSensor wraps sensor with an exclusive-access lock.
func NewExclusiveEnvironmentSensor(sensor EnvironmentSensor) *ExclusiveEnvironmentSensor {
	return &ExclusiveEnvironmentSensor{sensor: sensor}
}

func (e *ExclusiveEnvironmentSensor) Read() (int, int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sensor.Read()
}

// sleepOrStop sleeps for d, returning false immediately if stop closes.
func sleepOrStop(d time.Duration, stop <-chan struct{}) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-stop:
		return false
	}
}
