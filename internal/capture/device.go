// Package capture records video clips and still photos from the configured
// cameras. Devices are driven concurrently but each physical camera only
// runs one recording at a time.
package capture

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/tphakala/sentinel-go/internal/logging"
)

// Package-level logger for capture operations
var (
	captureLogger   *slog.Logger
	captureLevelVar = new(slog.LevelVar)
)

func init() {
	var err error
	captureLevelVar.Set(slog.LevelInfo)

	captureLogger, _, err = logging.NewFileLogger("logs/capture.log", "capture", captureLevelVar)
	if err != nil {
		logging.Error("Failed to initialize capture file logger", "error", err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: captureLevelVar})
		captureLogger = slog.New(fbHandler).With("service", "capture")
	}
}

// Device is a single camera capable of recording video and taking photos.
type Device interface {
	// Name is the device's file name suffix, e.g. "raspicam" or "webcam1".
	Name() string
	// Caption is the human readable label attached to outgoing media.
	Caption() string
	// VideoExtension is the container extension recordings are written in.
	VideoExtension() string
	// RecordVideo records for duration into the file at path.
	RecordVideo(ctx context.Context, duration time.Duration, path string) error
	// TakePhoto writes a single still image to path.
	TakePhoto(ctx context.Context, path string) error
}

// exclusiveDevice serializes operations on one physical camera. A second
// request arriving while the device is busy waits rather than corrupting
// the stream.
type exclusiveDevice struct {
	mu     sync.Mutex
	device Device
}

func (e *exclusiveDevice) Name() string           { return e.device.Name() }
func (e *exclusiveDevice) Caption() string        { return e.device.Caption() }
func (e *exclusiveDevice) VideoExtension() string { return e.device.VideoExtension() }

func (e *exclusiveDevice) RecordVideo(ctx context.Context, duration time.Duration, path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.device.RecordVideo(ctx, duration, path)
}

func (e *exclusiveDevice) TakePhoto(ctx context.Context, path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.device.TakePhoto(ctx, path)
}
