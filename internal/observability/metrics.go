// Package observability exposes Prometheus metrics for the daemon's loops
// and side effects on the telemetry listener.
package observability

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tphakala/sentinel-go/internal/logging"
)

var telemetryLogger *slog.Logger

func init() {
	var err error
	telemetryLogger, _, err = logging.NewFileLogger("logs/telemetry.log", "telemetry", slog.LevelInfo)
	if err != nil {
		logging.Error("Failed to initialize telemetry file logger", "error", err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelInfo})
		telemetryLogger = slog.New(fbHandler).With("service", "telemetry")
	}
}

// Metrics bundles the counters and gauges published by the daemon.
type Metrics struct {
	AlarmTransitions *prometheus.CounterVec
	DoorEvents       prometheus.Counter
	SensorReadErrors *prometheus.CounterVec
	CaptureFailures  *prometheus.CounterVec
	NotifyFailures   prometheus.Counter
	DoorOpenGauge    prometheus.Gauge
	Temperature      prometheus.Gauge
	Humidity         prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates and registers all daemon metrics on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		AlarmTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_alarm_transitions_total",
			Help: "Alarm state machine transitions by target state.",
		}, []string{"to"}),
		DoorEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_door_events_total",
			Help: "Door open/close intervals recorded.",
		}),
		SensorReadErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_sensor_read_errors_total",
			Help: "Sensor read failures by sensor.",
		}, []string{"sensor"}),
		CaptureFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_capture_failures_total",
			Help: "Camera capture failures by device.",
		}, []string{"device"}),
		NotifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_notify_failures_total",
			Help: "Failed owner notifications.",
		}),
		DoorOpenGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sentinel_door_open",
			Help: "1 while the door contact reports open.",
		}),
		Temperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sentinel_temperature_celsius",
			Help: "Last inside temperature reading.",
		}),
		Humidity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sentinel_humidity_percent",
			Help: "Last inside humidity reading.",
		}),
		registry: registry,
	}

	registry.MustRegister(
		m.AlarmTransitions,
		m.DoorEvents,
		m.SensorReadErrors,
		m.CaptureFailures,
		m.NotifyFailures,
		m.DoorOpenGauge,
		m.Temperature,
		m.Humidity,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Serve runs a /metrics endpoint on listen until stop closes.
func (m *Metrics) Serve(listen string, stop <-chan struct{}) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-stop
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			telemetryLogger.Warn("Telemetry server shutdown failed", "error", err)
		}
	}()

	telemetryLogger.Info("Starting telemetry endpoint", "listen", listen)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		telemetryLogger.Error("Telemetry server failed", "error", err)
	}
}
