package capture

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tphakala/sentinel-go/internal/conf"
	"github.com/tphakala/sentinel-go/internal/errors"
	"github.com/tphakala/sentinel-go/internal/observability"
)

// Media is one captured file ready for delivery.
type Media struct {
	Path    string
	Caption string
}

// Gateway fans capture requests out to all configured devices in parallel
// and collects whatever succeeded. One slow or broken camera never blocks
// the others, and partial results are still delivered.
type Gateway struct {
	devices []Device
	tempDir string
	metrics *observability.Metrics
}

// NewGateway builds a gateway from the capture settings. Camera id 0 maps
// to the Raspberry Pi camera module, higher ids to V4L2 webcams.
func NewGateway(settings *conf.CaptureSettings, tempDir string, metrics *observability.Metrics) *Gateway {
	g := &Gateway{tempDir: tempDir, metrics: metrics}
	for _, id := range settings.CameraIDs {
		var device Device
		if id == 0 {
			device = NewRaspicam()
		} else {
			device = NewWebcam(id, settings.VideoFormat)
		}
		g.devices = append(g.devices, &exclusiveDevice{device: device})
	}
	return g
}

// Devices reports how many cameras the gateway drives.
func (g *Gateway) Devices() int { return len(g.devices) }

// RecordVideos records duration of video on every device concurrently.
// The returned slice contains the media from the devices that succeeded;
// a non-nil error reports the devices that failed.
func (g *Gateway) RecordVideos(ctx context.Context, duration time.Duration) ([]Media, error) {
	base := uuid.New().String()
	return g.fanOut(func(d Device) (Media, error) {
		path := filepath.Join(g.tempDir, fmt.Sprintf("%s-%s.%s", base, d.Name(), d.VideoExtension()))
		captureLogger.Info("Recording video", "device", d.Name(), "duration", duration, "path", path)
		if err := d.RecordVideo(ctx, duration, path); err != nil {
			return Media{}, err
		}
		return Media{Path: path, Caption: d.Caption()}, nil
	})
}

// TakePhotos takes a still on every device concurrently. Partial results
// are returned alongside the failure error.
func (g *Gateway) TakePhotos(ctx context.Context) ([]Media, error) {
	base := uuid.New().String()
	return g.fanOut(func(d Device) (Media, error) {
		path := filepath.Join(g.tempDir, fmt.Sprintf("%s-%s.jpg", base, d.Name()))
		captureLogger.Info("Taking photo", "device", d.Name(), "path", path)
		if err := d.TakePhoto(ctx, path); err != nil {
			return Media{}, err
		}
		return Media{Path: path, Caption: d.Caption()}, nil
	})
}

func (g *Gateway) fanOut(op func(Device) (Media, error)) ([]Media, error) {
	results := make([]Media, len(g.devices))
	failures := make([]error, len(g.devices))

	var wg sync.WaitGroup
	for i, device := range g.devices {
		wg.Add(1)
		go func(i int, device Device) {
			defer wg.Done()
			media, err := op(device)
			if err != nil {
				captureLogger.Error("Capture failed", "device", device.Name(), "error", err)
				if g.metrics != nil {
					g.metrics.CaptureFailures.WithLabelValues(device.Name()).Inc()
				}
				failures[i] = err
				return
			}
			results[i] = media
		}(i, device)
	}
	wg.Wait()

	// Compact in device order so output is deterministic.
	media := results[:0:0]
	var errs []error
	for i := range g.devices {
		if failures[i] != nil {
			errs = append(errs, failures[i])
			continue
		}
		media = append(media, results[i])
	}
	if len(errs) > 0 {
		return media, errors.Join(errs...)
	}
	return media, nil
}
