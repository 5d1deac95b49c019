// Package weather fetches outside conditions for status reports. Readings
// are cached so repeated status requests do not hammer the provider.
package weather

import (
	"context"
	"io"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/tphakala/sentinel-go/internal/conf"
	"github.com/tphakala/sentinel-go/internal/errors"
	"github.com/tphakala/sentinel-go/internal/logging"
)

// Package-level logger for weather operations
var (
	weatherLogger   *slog.Logger
	weatherLevelVar = new(slog.LevelVar)
)

func init() {
	var err error
	weatherLevelVar.Set(slog.LevelInfo)

	weatherLogger, _, err = logging.NewFileLogger("logs/weather.log", "weather", weatherLevelVar)
	if err != nil {
		logging.Error("Failed to initialize weather file logger", "error", err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: weatherLevelVar})
		weatherLogger = slog.New(fbHandler).With("service", "weather")
	}
}

// Data is one outside-conditions reading.
type Data struct {
	City        string
	Description string
	Temperature float64
	Humidity    int
	IconURL     string
	FetchedAt   time.Time
}

// Provider fetches current conditions for a city.
type Provider interface {
	Fetch(ctx context.Context, city string) (*Data, error)
}

const (
	cacheTTL       = 5 * time.Minute
	cacheCleanup   = 10 * time.Minute
	cacheKeyPrefix = "weather:"
)

// Service serves cached weather readings from the configured provider.
type Service struct {
	settings *conf.OpenWeatherSettings
	provider Provider
	cache    *gocache.Cache
}

// NewService creates a weather service. A nil provider defaults to the
// OpenWeather client built from the settings.
func NewService(settings *conf.OpenWeatherSettings, provider Provider) *Service {
	if provider == nil {
		provider = NewOpenWeatherClient(settings)
	}
	return &Service{
		settings: settings,
		provider: provider,
		cache:    gocache.New(cacheTTL, cacheCleanup),
	}
}

// Enabled reports whether outside weather is configured.
func (s *Service) Enabled() bool {
	return s.settings != nil && s.settings.Enabled && s.settings.APIKey != ""
}

// Current returns current conditions for the configured city, served from
// cache when a recent reading exists.
func (s *Service) Current(ctx context.Context) (*Data, error) {
	if !s.Enabled() {
		return nil, errors.Newf("weather provider is not configured").
			Component("weather").
			Category(errors.CategoryConfiguration).
			Build()
	}

	key := cacheKeyPrefix + s.settings.City
	if cached, found := s.cache.Get(key); found {
		return cached.(*Data), nil
	}

	data, err := s.provider.Fetch(ctx, s.settings.City)
	if err != nil {
		weatherLogger.Error("Weather fetch failed", "city", s.settings.City, "error", err)
		return nil, err
	}
	weatherLogger.Info("Fetched weather",
		"city", data.City,
		"description", data.Description,
		"temperature", data.Temperature)

	s.cache.Set(key, data, cacheTTL)
	return data, nil
}
