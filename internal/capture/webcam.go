package capture

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/tphakala/sentinel-go/internal/errors"
)

// Webcam drives a V4L2 webcam through ffmpeg. The id selects the video
// device node, /dev/video<id>.
type Webcam struct {
	id     int
	format string
}

// NewWebcam creates a webcam device for /dev/video<id> recording into the
// given container format.
func NewWebcam(id int, format string) *Webcam {
	return &Webcam{id: id, format: format}
}

func (w *Webcam) Name() string    { return fmt.Sprintf("webcam%d", w.id) }
func (w *Webcam) Caption() string { return fmt.Sprintf("(Webcam %d)", w.id) }

func (w *Webcam) devicePath() string { return fmt.Sprintf("/dev/video%d", w.id) }

func (w *Webcam) RecordVideo(ctx context.Context, duration time.Duration, path string) error {
	record := exec.CommandContext(ctx, "ffmpeg",
		"-y",
		"-f", "v4l2",
		"-i", w.devicePath(),
		"-t", fmt.Sprintf("%.0f", duration.Seconds()),
		path)
	if output, err := record.CombinedOutput(); err != nil {
		return errors.Newf("ffmpeg recording failed: %w: %s", err, output).
			Component("capture").
			Category(errors.CategoryCapture).
			Context("device", w.Name()).
			Build()
	}
	return nil
}

func (w *Webcam) TakePhoto(ctx context.Context, path string) error {
	shoot := exec.CommandContext(ctx, "ffmpeg",
		"-y",
		"-f", "v4l2",
		"-i", w.devicePath(),
		"-frames:v", "1",
		path)
	if output, err := shoot.CombinedOutput(); err != nil {
		return errors.Newf("ffmpeg snapshot failed: %w: %s", err, output).
			Component("capture").
			Category(errors.CategoryCapture).
			Context("device", w.Name()).
			Build()
	}
	return nil
}

// VideoExtension reports the configured container extension.
func (w *Webcam) VideoExtension() string { return w.format }
