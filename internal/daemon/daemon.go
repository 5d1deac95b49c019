// Package daemon wires all subsystems together and supervises their
// lifecycles for the long-running service mode.
package daemon

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/tphakala/sentinel-go/internal/alarm"
	"github.com/tphakala/sentinel-go/internal/alertbot"
	"github.com/tphakala/sentinel-go/internal/capture"
	"github.com/tphakala/sentinel-go/internal/conf"
	"github.com/tphakala/sentinel-go/internal/errors"
	"github.com/tphakala/sentinel-go/internal/logging"
	"github.com/tphakala/sentinel-go/internal/mqtt"
	"github.com/tphakala/sentinel-go/internal/observability"
	"github.com/tphakala/sentinel-go/internal/sensor"
	"github.com/tphakala/sentinel-go/internal/speech"
	"github.com/tphakala/sentinel-go/internal/statestore"
	"github.com/tphakala/sentinel-go/internal/weather"
)

// Run starts every configured subsystem and blocks until SIGINT or
// SIGTERM arrives.
func Run(settings *conf.Settings) error {
	logging.Info("Starting sentinel daemon", "name", settings.Main.Name)

	store := statestore.New(settings)
	if store == nil {
		return errors.Newf("no state store output enabled, enable output.sqlite or output.mysql").
			Component("daemon").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if err := store.Open(); err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error("Closing state store failed", "error", err)
		}
	}()
	if err := store.SeedDefaults(); err != nil {
		return err
	}

	metrics := observability.NewMetrics()
	stop := make(chan struct{})
	var wg sync.WaitGroup

	start := func(name string, run func(<-chan struct{})) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			run(stop)
			logging.Info("Worker finished", "worker", name)
		}()
	}

	if settings.Telemetry.Enabled {
		start("telemetry", func(stop <-chan struct{}) {
			metrics.Serve(settings.Telemetry.Listen, stop)
		})
	}

	var mqttClient mqtt.Client
	if settings.MQTT.Enabled {
		client, err := mqtt.NewClient(settings)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err = client.Connect(ctx)
		cancel()
		if err != nil {
			// The paho client keeps retrying in the background.
			logging.Warn("Initial MQTT connection failed", "error", err)
		}
		defer client.Disconnect()
		mqttClient = client
	}

	// The chat transport runs over MQTT when available, otherwise replies
	// land in the daemon log only.
	var transport alertbot.Transport
	if mqttClient != nil {
		mqttTransport, err := alertbot.NewMQTTTransport(mqttClient, settings.MQTT.Topic)
		if err != nil {
			return err
		}
		transport = mqttTransport
	} else {
		logging.Warn("MQTT disabled, owner commands unavailable")
		transport = alertbot.NewLogTransport()
	}

	notifier, err := alertbot.NewNotifier(settings, transport, metrics)
	if err != nil {
		return err
	}

	gateway := capture.NewGateway(&settings.Capture, settings.Alarm.TempDir, metrics)
	captureDuration := time.Duration(settings.Alarm.CaptureDuration) * time.Second

	monitor := alarm.NewMonitor(store, notifier, gateway, settings.Alarm.TickInterval, captureDuration, metrics)
	if mqttClient != nil {
		monitor.EnableMQTT(mqttClient, settings.MQTT.Topic)
	}
	start("alarm", monitor.Run)

	doorContact := sensor.NewExclusiveDoorContact(sensor.NewSysfsDoorContact(settings.Sensors.Door.Pin))
	doorPoller := sensor.NewDoorPoller(store, doorContact, settings.Sensors.Door.PollInterval, metrics)
	if mqttClient != nil {
		doorPoller.EnableMQTT(mqttClient, settings.MQTT.Topic)
	}
	start("door", doorPoller.Run)

	tagReader := sensor.NewExclusiveTagReader(sensor.NewDeviceTagReader(settings.Sensors.NFC.DevicePath))
	nfcPoller := sensor.NewNFCPoller(store, tagReader,
		settings.Security.NFCCredentialHash,
		settings.Sensors.NFC.Cooldown,
		settings.Sensors.NFC.GraceWindow,
		metrics)
	start("nfc", nfcPoller.Run)

	environment := sensor.NewExclusiveEnvironmentSensor(
		sensor.NewExecEnvironmentSensor(settings.Sensors.Environment.HelperCommand, settings.Sensors.Environment.Pin))
	environmentPoller := sensor.NewEnvironmentPoller(store, environment, settings.Sensors.Environment.PollInterval, metrics)
	start("environment", environmentPoller.Run)

	if settings.Speech.Enabled {
		worker := speech.NewWorker(store, &speech.FliteSpeaker{Voice: settings.Speech.Voice}, settings.Speech.PollInterval)
		start("speech", worker.Run)
	}

	var weatherService *weather.Service
	if settings.Weather.OpenWeather.Enabled {
		weatherService = weather.NewService(&settings.Weather.OpenWeather, nil)
	}

	bot := alertbot.NewBot(settings, store, transport, gateway, monitor, weatherSource(weatherService))
	bot.RegisterService("alarm", monitor.Alive)
	if mqttClient != nil {
		bot.RegisterService("mqtt", mqttClient.IsConnected)
	}
	start("alertbot", bot.Run)

	logging.Info("Sentinel daemon running")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logging.Info("Shutting down", "signal", sig.String())

	close(stop)
	if err := transport.Close(); err != nil {
		logging.Error("Closing transport failed", "error", err)
	}
	wg.Wait()
	return nil
}

// weatherSource converts a possibly-nil service into the bot's interface
// without producing a non-nil interface around a nil pointer.
func weatherSource(service *weather.Service) alertbot.WeatherSource {
	if service == nil {
		return nil
	}
	return service
}
