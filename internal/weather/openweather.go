package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/tphakala/sentinel-go/internal/conf"
	"github.com/tphakala/sentinel-go/internal/errors"
)

// DefaultEndpoint is the OpenWeather current-conditions API.
const DefaultEndpoint = "https://api.openweathermap.org/data/2.5/weather"

const requestTimeout = 10 * time.Second

// OpenWeatherClient fetches current conditions from the OpenWeather API
// using a by-city query.
type OpenWeatherClient struct {
	settings   *conf.OpenWeatherSettings
	httpClient *http.Client
}

// openWeatherResponse mirrors the fields we need from the API payload.
type openWeatherResponse struct {
	Name    string `json:"name"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity int     `json:"humidity"`
	} `json:"main"`
}

// NewOpenWeatherClient creates an OpenWeather API client.
func NewOpenWeatherClient(settings *conf.OpenWeatherSettings) *OpenWeatherClient {
	return &OpenWeatherClient{
		settings:   settings,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// Fetch queries current conditions for city.
func (c *OpenWeatherClient) Fetch(ctx context.Context, city string) (*Data, error) {
	endpoint := c.settings.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	units := c.settings.Units
	if units == "" {
		units = "metric"
	}

	query := url.Values{}
	query.Set("q", city)
	query.Set("appid", c.settings.APIKey)
	query.Set("units", units)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, errors.New(err).
			Component("weather").
			Category(errors.CategoryNetwork).
			Build()
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.New(err).
			Component("weather").
			Category(errors.CategoryNetwork).
			Context("city", city).
			Build()
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("weather API returned status %d", resp.StatusCode).
			Component("weather").
			Category(errors.CategoryNetwork).
			Context("city", city).
			Build()
	}

	var payload openWeatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.Newf("decoding weather response: %w", err).
			Component("weather").
			Category(errors.CategoryNetwork).
			Build()
	}

	data := &Data{
		City:        payload.Name,
		Temperature: payload.Main.Temp,
		Humidity:    payload.Main.Humidity,
		FetchedAt:   time.Now(),
	}
	if len(payload.Weather) > 0 {
		data.Description = payload.Weather[0].Description
		if payload.Weather[0].Icon != "" {
			data.IconURL = fmt.Sprintf("https://openweathermap.org/img/wn/%s@2x.png", payload.Weather[0].Icon)
		}
	}
	return data, nil
}

// String renders a reading for status reports.
func (d *Data) String() string {
	return fmt.Sprintf("%s, %.1f°C, %d%% humidity", d.Description, d.Temperature, d.Humidity)
}
