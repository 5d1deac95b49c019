// Package speech drains queued announcements from the state store and
// plays them through a text-to-speech engine.
package speech

import (
	"context"
	"io"
	"log/slog"
	"os/exec"
	"time"

	"github.com/tphakala/sentinel-go/internal/errors"
	"github.com/tphakala/sentinel-go/internal/logging"
	"github.com/tphakala/sentinel-go/internal/statestore"
)

// Package-level logger for the speech worker
var (
	speechLogger   *slog.Logger
	speechLevelVar = new(slog.LevelVar)
)

func init() {
	var err error
	speechLevelVar.Set(slog.LevelInfo)

	speechLogger, _, err = logging.NewFileLogger("logs/speech.log", "speech", speechLevelVar)
	if err != nil {
		logging.Error("Failed to initialize speech file logger", "error", err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: speechLevelVar})
		speechLogger = slog.New(fbHandler).With("service", "speech")
	}
}

// Speaker plays one announcement.
type Speaker interface {
	Say(ctx context.Context, text string) error
}

// FliteSpeaker speaks through the flite text-to-speech binary.
type FliteSpeaker struct {
	Voice string
}

// Say plays text through flite, blocking until playback finishes.
func (f *FliteSpeaker) Say(ctx context.Context, text string) error {
	voice := f.Voice
	if voice == "" {
		voice = "awb"
	}
	cmd := exec.CommandContext(ctx, "flite", "-voice", voice, "-t", text)
	if output, err := cmd.CombinedOutput(); err != nil {
		return errors.Newf("flite failed: %w: %s", err, output).
			Component("speech").
			Category(errors.CategorySpeech).
			Build()
	}
	return nil
}

// Worker drains the speech queue in insertion order. An announcement is
// marked executed only after playback, so a crash replays it rather than
// losing it.
type Worker struct {
	store    statestore.Interface
	speaker  Speaker
	interval time.Duration
}

// NewWorker creates a speech worker draining store through speaker.
func NewWorker(store statestore.Interface, speaker Speaker, interval time.Duration) *Worker {
	return &Worker{store: store, speaker: speaker, interval: interval}
}

// Run drains the queue until stop closes.
func (w *Worker) Run(stop <-chan struct{}) {
	speechLogger.Info("Starting speech worker", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			speechLogger.Info("Stopping speech worker")
			return
		case <-ticker.C:
			if err := w.DrainOnce(context.Background()); err != nil {
				speechLogger.Error("Speech queue drain failed", "error", err)
			}
		}
	}
}

// DrainOnce plays every pending announcement in queue order.
func (w *Worker) DrainOnce(ctx context.Context) error {
	pending, err := w.store.PendingSpeechEvents()
	if err != nil {
		return err
	}

	for i := range pending {
		event := &pending[i]
		speechLogger.Info("Speaking", "id", event.ID, "text", event.Text)
		if err := w.speaker.Say(ctx, event.Text); err != nil {
			// Leave the event pending so the next drain retries it.
			return err
		}
		if err := w.store.MarkSpeechExecuted(event.ID); err != nil {
			return err
		}
	}
	return nil
}
