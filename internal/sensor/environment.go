package sensor

import (
	"time"

	"github.com/tphakala/sentinel-go/internal/observability"
	"github.com/tphakala/sentinel-go/internal/statestore"
)

// EnvironmentPoller periodically samples indoor temperature and humidity
// and publishes the readings into the state store.
type EnvironmentPoller struct {
	store    statestore.Interface
	probe    EnvironmentSensor
	interval time.Duration
	metrics  *observability.Metrics
}

// NewEnvironmentPoller creates an environment poller.
func NewEnvironmentPoller(store statestore.Interface, probe EnvironmentSensor, interval time.Duration, metrics *observability.Metrics) *EnvironmentPoller {
	return &EnvironmentPoller{
		store:    store,
		probe:    probe,
		interval: interval,
		metrics:  metrics,
	}
}

// Run polls the sensor until stop closes.
func (p *EnvironmentPoller) Run(stop <-chan struct{}) {
	sensorLogger.Info("Starting environment poller", "interval", p.interval)
	for {
		if err := p.Tick(); err != nil {
			sensorLogger.Error("Environment poll failed", "error", err)
			if p.metrics != nil {
				p.metrics.SensorReadErrors.WithLabelValues("environment").Inc()
			}
		}
		if !sleepOrStop(p.interval, stop) {
			sensorLogger.Info("Stopping environment poller")
			return
		}
	}
}

// Tick performs a single sample. Transient read failures from the probe
// leave the previous stored values in place.
func (p *EnvironmentPoller) Tick() error {
	temperature, humidity, err := p.probe.Read()
	if err != nil {
		return err
	}

	err = p.store.Update(func(s statestore.Accessor) error {
		if err := s.SetInt(statestore.KeyTemperature, temperature); err != nil {
			return err
		}
		return s.SetInt(statestore.KeyHumidity, humidity)
	})
	if err != nil {
		return err
	}

	if p.metrics != nil {
		p.metrics.Temperature.Set(float64(temperature))
		p.metrics.Humidity.Set(float64(humidity))
	}
	return nil
}
