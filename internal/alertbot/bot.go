package alertbot

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tphakala/sentinel-go/internal/capture"
	"github.com/tphakala/sentinel-go/internal/conf"
	"github.com/tphakala/sentinel-go/internal/statestore"
	"github.com/tphakala/sentinel-go/internal/weather"
)

// Manual recording ceilings. A single camera may record up to 15 seconds
// per command, a multi-camera rig up to 45 seconds total.
const (
	maxSingleCameraSeconds = 15
	maxMultiCameraSeconds  = 45
)

// CaptureGateway is the camera fan-out used by the manual commands.
type CaptureGateway interface {
	Devices() int
	RecordVideos(ctx context.Context, duration time.Duration) ([]capture.Media, error)
	TakePhotos(ctx context.Context) ([]capture.Media, error)
}

// AlarmController resets the alarm on owner request.
type AlarmController interface {
	FalseAlarm() error
}

// WeatherSource provides outside conditions for status reports.
type WeatherSource interface {
	Enabled() bool
	Current(ctx context.Context) (*weather.Data, error)
}

// Bot dispatches owner commands arriving over the chat transport.
type Bot struct {
	settings  *conf.Settings
	store     statestore.Interface
	transport Transport
	gateway   CaptureGateway
	alarm     AlarmController
	weather   WeatherSource

	// saveConfig is replaceable in tests
	saveConfig func(*conf.Settings) error

	commands map[string]command
	services map[string]func() bool
}

// command describes one dispatch table entry.
type command struct {
	args         []argKind
	usage        string
	requiresAuth bool
	handler      func(ctx context.Context, sender string, args []string) error
}

type argKind int

const (
	argString argKind = iota
	argInt
)

// NewBot creates the command bot. The weather source and alarm controller
// may be nil when those subsystems are disabled.
func NewBot(settings *conf.Settings, store statestore.Interface, transport Transport, gateway CaptureGateway, alarm AlarmController, weatherSource WeatherSource) *Bot {
	b := &Bot{
		settings:   settings,
		store:      store,
		transport:  transport,
		gateway:    gateway,
		alarm:      alarm,
		weather:    weatherSource,
		saveConfig: conf.SaveSecuritySettings,
		services:   make(map[string]func() bool),
	}
	b.commands = map[string]command{
		"init": {
			args:    []argKind{argString},
			usage:   "/init <key>",
			handler: b.handleInit,
		},
		"status": {
			usage:        "/status",
			requiresAuth: true,
			handler:      b.handleStatus,
		},
		"false_alarm": {
			usage:        "/false_alarm",
			requiresAuth: true,
			handler:      b.handleFalseAlarm,
		},
		"video": {
			args:         []argKind{argInt},
			usage:        "/video <seconds>",
			requiresAuth: true,
			handler:      b.handleVideo,
		},
		"photo": {
			usage:        "/photo",
			requiresAuth: true,
			handler:      b.handlePhoto,
		},
		"arm": {
			usage:        "/arm",
			requiresAuth: true,
			handler:      b.handleArm,
		},
		"door_open_events": {
			args:         []argKind{argInt},
			usage:        "/door_open_events <count>",
			requiresAuth: true,
			handler:      b.handleDoorOpenEvents,
		},
	}
	return b
}

// RegisterService adds a named liveness probe to the status report.
func (b *Bot) RegisterService(name string, alive func() bool) {
	b.services[name] = alive
}

// Run consumes inbound messages until stop closes or the transport shuts
// down.
func (b *Bot) Run(stop <-chan struct{}) {
	botLogger.Info("Starting alert bot")
	for {
		select {
		case <-stop:
			botLogger.Info("Stopping alert bot")
			return
		case msg, ok := <-b.transport.Messages():
			if !ok {
				botLogger.Info("Transport closed, stopping alert bot")
				return
			}
			b.Handle(context.Background(), msg)
		}
	}
}

// Handle dispatches a single inbound message. Messages that are not
// commands, and unknown commands, are ignored.
func (b *Bot) Handle(ctx context.Context, msg Message) {
	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, "/") {
		return
	}
	fields := strings.Fields(strings.TrimPrefix(text, "/"))
	if len(fields) == 0 {
		return
	}
	name, args := fields[0], fields[1:]

	cmd, known := b.commands[name]
	if !known {
		botLogger.Debug("Ignoring unknown command", "command", name)
		return
	}

	if cmd.requiresAuth && msg.Sender != b.settings.OwnerAddress() {
		botLogger.Warn("Unauthorized command", "command", name, "sender", msg.Sender)
		b.reply(ctx, msg.Sender, "Unauthorized")
		return
	}

	if len(args) != len(cmd.args) || !argsMatch(cmd.args, args) {
		b.reply(ctx, msg.Sender, "Usage: "+cmd.usage)
		return
	}

	botLogger.Info("Handling command", "command", name, "sender", msg.Sender)
	if err := cmd.handler(ctx, msg.Sender, args); err != nil {
		botLogger.Error("Command failed", "command", name, "error", err)
		b.reply(ctx, msg.Sender, "Command failed: "+err.Error())
	}
}

func argsMatch(kinds []argKind, args []string) bool {
	for i, kind := range kinds {
		if kind == argInt {
			if _, err := strconv.Atoi(args[i]); err != nil {
				return false
			}
		}
	}
	return true
}

func (b *Bot) reply(ctx context.Context, recipient, text string) {
	if err := b.transport.SendText(ctx, recipient, text); err != nil {
		botLogger.Error("Reply failed", "recipient", recipient, "error", err)
	}
}

// handleInit binds the sender as owner. Pairing is single use.
func (b *Bot) handleInit(ctx context.Context, sender string, args []string) error {
	if b.settings.OwnerAddress() != "" {
		b.reply(ctx, sender, "Already initialized")
		return nil
	}
	if args[0] != b.settings.Security.PairingKey {
		botLogger.Warn("Pairing attempt with invalid key", "sender", sender)
		b.reply(ctx, sender, "Invalid Key")
		return nil
	}

	b.settings.SetOwnerAddress(sender)
	if err := b.saveConfig(b.settings); err != nil {
		b.settings.SetOwnerAddress("")
		return err
	}
	botLogger.Info("Owner bound", "owner", sender)
	b.reply(ctx, sender, "Initialized successfully")
	return nil
}

func (b *Bot) handleStatus(ctx context.Context, sender string, _ []string) error {
	report, err := b.statusReport(ctx)
	if err != nil {
		return err
	}
	b.reply(ctx, sender, report)
	return nil
}

func (b *Bot) statusReport(ctx context.Context) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Status Report (%s)\n", time.Now().Format("2006-01-02 15:04:05"))

	if len(b.services) > 0 {
		sb.WriteString("\nServices:\n")
		names := make([]string, 0, len(b.services))
		for name := range b.services {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			state := "stopped"
			if b.services[name]() {
				state = "running"
			}
			fmt.Fprintf(&sb, "  %s: %s\n", name, state)
		}
	}

	temperature, err := b.store.GetInt(statestore.KeyTemperature)
	if err != nil {
		return "", err
	}
	humidity, err := b.store.GetInt(statestore.KeyHumidity)
	if err != nil {
		return "", err
	}
	if temperature == statestore.UnknownReading || humidity == statestore.UnknownReading {
		sb.WriteString("\nInside: unknown\n")
	} else {
		fmt.Fprintf(&sb, "\nInside: %d°C, %d%% humidity\n", temperature, humidity)
	}

	if b.weather != nil && b.weather.Enabled() {
		if data, err := b.weather.Current(ctx); err == nil {
			fmt.Fprintf(&sb, "Outside: %s\n", data)
		}
		// Unavailable weather is omitted, never fails the report.
	}

	sb.WriteString("\nFlags:\n")
	for _, key := range []string{
		statestore.KeyUserAuthorized,
		statestore.KeyDoorOpen,
		statestore.KeyDoorOpened,
		statestore.KeyGoingOut,
	} {
		value, err := b.store.GetBool(key)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, "  %s: %t\n", key, value)
	}

	return sb.String(), nil
}

func (b *Bot) handleFalseAlarm(ctx context.Context, sender string, _ []string) error {
	if b.alarm == nil {
		return fmt.Errorf("alarm monitor is not running")
	}
	if err := b.alarm.FalseAlarm(); err != nil {
		return err
	}
	b.reply(ctx, sender, "Alarm has been reset")
	return nil
}

// handleVideo records a manual clip on every camera. The requested length
// is clamped to the per-command ceiling before any camera starts.
func (b *Bot) handleVideo(ctx context.Context, sender string, args []string) error {
	seconds, _ := strconv.Atoi(args[0])
	if seconds <= 0 {
		b.reply(ctx, sender, "Usage: /video <seconds>")
		return nil
	}

	limit := maxSingleCameraSeconds
	if b.gateway.Devices() > 1 {
		limit = maxMultiCameraSeconds
	}
	if seconds > limit {
		b.reply(ctx, sender, fmt.Sprintf("Requested %ds exceeds the %ds limit, recording %ds instead", seconds, limit, limit))
		seconds = limit
	}

	media, err := b.gateway.RecordVideos(ctx, time.Duration(seconds)*time.Second)
	if sendErr := b.sendMedia(ctx, sender, media); sendErr != nil {
		return sendErr
	}
	return err
}

func (b *Bot) handlePhoto(ctx context.Context, sender string, _ []string) error {
	media, err := b.gateway.TakePhotos(ctx)
	if sendErr := b.sendMedia(ctx, sender, media); sendErr != nil {
		return sendErr
	}
	return err
}

func (b *Bot) sendMedia(ctx context.Context, recipient string, media []capture.Media) error {
	for _, m := range media {
		if err := b.transport.SendMedia(ctx, recipient, m.Path, m.Caption); err != nil {
			return err
		}
	}
	return nil
}

// handleArm forces the system back into the armed state.
func (b *Bot) handleArm(ctx context.Context, sender string, _ []string) error {
	err := b.store.Update(func(s statestore.Accessor) error {
		return s.SetBool(statestore.KeyUserAuthorized, false)
	})
	if err != nil {
		return err
	}
	b.reply(ctx, sender, "Armed")
	return nil
}

func (b *Bot) handleDoorOpenEvents(ctx context.Context, sender string, args []string) error {
	count, _ := strconv.Atoi(args[0])
	if count <= 0 {
		b.reply(ctx, sender, "Usage: /door_open_events <count>")
		return nil
	}

	events, err := b.store.LatestDoorEvents(count)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		b.reply(ctx, sender, "No door open events recorded")
		return nil
	}

	lines := make([]string, 0, len(events))
	for i := range events {
		lines = append(lines, events[i].String())
	}
	b.reply(ctx, sender, strings.Join(lines, "\n"))
	return nil
}
