package capture

import (
	"context"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/tphakala/sentinel-go/internal/errors"
)

// Raspicam drives the Raspberry Pi camera module through the raspivid and
// raspistill binaries. raspivid emits a raw h264 stream, so recordings are
// remuxed into a playable container with MP4Box before delivery.
type Raspicam struct{}

// NewRaspicam creates a Raspberry Pi camera device.
func NewRaspicam() *Raspicam { return &Raspicam{} }

func (r *Raspicam) Name() string    { return "raspicam" }
func (r *Raspicam) Caption() string { return "(Raspberry Pi Camera)" }

func (r *Raspicam) RecordVideo(ctx context.Context, duration time.Duration, path string) error {
	rawPath := path + ".h264"
	defer os.Remove(rawPath)

	record := exec.CommandContext(ctx, "raspivid",
		"-o", rawPath,
		"-t", strconv.FormatInt(duration.Milliseconds(), 10))
	if output, err := record.CombinedOutput(); err != nil {
		return errors.Newf("raspivid failed: %w: %s", err, output).
			Component("capture").
			Category(errors.CategoryCapture).
			Context("device", r.Name()).
			Build()
	}

	remux := exec.CommandContext(ctx, "MP4Box", "-add", rawPath, path)
	if output, err := remux.CombinedOutput(); err != nil {
		return errors.Newf("MP4Box failed: %w: %s", err, output).
			Component("capture").
			Category(errors.CategoryCapture).
			Context("device", r.Name()).
			Build()
	}
	return nil
}

func (r *Raspicam) TakePhoto(ctx context.Context, path string) error {
	shoot := exec.CommandContext(ctx, "raspistill", "-o", path)
	if output, err := shoot.CombinedOutput(); err != nil {
		return errors.Newf("raspistill failed: %w: %s", err, output).
			Component("capture").
			Category(errors.CategoryCapture).
			Context("device", r.Name()).
			Build()
	}
	return nil
}

// VideoExtension reports the container extension raspicam recordings use.
func (r *Raspicam) VideoExtension() string { return "mp4" }
