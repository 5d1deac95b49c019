// Package alertbot implements the owner-facing command interface and the
// outward notification path. The chat service itself is an external
// collaborator reached through the Transport interface.
package alertbot

import (
	"context"
	"io"
	"log/slog"

	"github.com/tphakala/sentinel-go/internal/logging"
)

// Package-level logger for the alert bot
var (
	botLogger   *slog.Logger
	botLevelVar = new(slog.LevelVar)
)

func init() {
	var err error
	botLevelVar.Set(slog.LevelInfo)

	botLogger, _, err = logging.NewFileLogger("logs/alertbot.log", "alertbot", botLevelVar)
	if err != nil {
		logging.Error("Failed to initialize alertbot file logger", "error", err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: botLevelVar})
		botLogger = slog.New(fbHandler).With("service", "alertbot")
	}
}

// Message is one inbound chat message.
type Message struct {
	Sender string // transport-specific sender address
	Text   string
}

// Transport is a bidirectional chat connection. Implementations adapt a
// concrete chat service (Telegram, Matrix, XMPP) to the bot.
type Transport interface {
	// Messages exposes the inbound message stream. The channel closes when
	// the transport shuts down.
	Messages() <-chan Message

	// SendText delivers text to the given address.
	SendText(ctx context.Context, recipient, text string) error

	// SendMedia delivers the file at path with a caption.
	SendMedia(ctx context.Context, recipient, path, caption string) error

	// Close tears down the connection and closes the message stream.
	Close() error
}

// LogTransport is the fallback when no chat transport is configured.
// Outbound traffic is logged, the inbound stream stays empty.
type LogTransport struct {
	inbound chan Message
}

// NewLogTransport creates a log-only transport.
func NewLogTransport() *LogTransport {
	return &LogTransport{inbound: make(chan Message)}
}

func (l *LogTransport) Messages() <-chan Message { return l.inbound }

func (l *LogTransport) SendText(_ context.Context, recipient, text string) error {
	botLogger.Info("Notification (no transport)", "recipient", recipient, "text", text)
	return nil
}

func (l *LogTransport) SendMedia(_ context.Context, recipient, path, caption string) error {
	botLogger.Info("Media (no transport)", "recipient", recipient, "path", path, "caption", caption)
	return nil
}

func (l *LogTransport) Close() error {
	close(l.inbound)
	return nil
}
