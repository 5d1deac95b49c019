package weather

import (
	"context"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/sentinel-go/internal/conf"
)

func testSettings() *conf.OpenWeatherSettings {
	return &conf.OpenWeatherSettings{
		Enabled:  true,
		APIKey:   "test-key",
		City:     "Karlsruhe",
		Endpoint: DefaultEndpoint,
		Units:    "metric",
	}
}

const sampleResponse = `{
	"name": "Karlsruhe",
	"weather": [{"main": "Clouds", "description": "scattered clouds", "icon": "03d"}],
	"main": {"temp": 18.4, "humidity": 62}
}`

func TestOpenWeatherFetch(t *testing.T) {
	client := NewOpenWeatherClient(testSettings())
	httpmock.ActivateNonDefault(client.httpClient)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodGet, DefaultEndpoint,
		func(req *http.Request) (*http.Response, error) {
			query := req.URL.Query()
			assert.Equal(t, "Karlsruhe", query.Get("q"))
			assert.Equal(t, "test-key", query.Get("appid"))
			assert.Equal(t, "metric", query.Get("units"))
			return httpmock.NewStringResponse(http.StatusOK, sampleResponse), nil
		})

	data, err := client.Fetch(context.Background(), "Karlsruhe")
	require.NoError(t, err)
	assert.Equal(t, "Karlsruhe", data.City)
	assert.Equal(t, "scattered clouds", data.Description)
	assert.InDelta(t, 18.4, data.Temperature, 0.01)
	assert.Equal(t, 62, data.Humidity)
	assert.Equal(t, "https://openweathermap.org/img/wn/03d@2x.png", data.IconURL)
}

func TestOpenWeatherFetchErrorStatus(t *testing.T) {
	client := NewOpenWeatherClient(testSettings())
	httpmock.ActivateNonDefault(client.httpClient)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodGet, DefaultEndpoint,
		httpmock.NewStringResponder(http.StatusUnauthorized, `{"cod":401}`))

	_, err := client.Fetch(context.Background(), "Karlsruhe")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestServiceCachesReadings(t *testing.T) {
	client := NewOpenWeatherClient(testSettings())
	httpmock.ActivateNonDefault(client.httpClient)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodGet, DefaultEndpoint,
		httpmock.NewStringResponder(http.StatusOK, sampleResponse))

	service := NewService(testSettings(), client)

	first, err := service.Current(context.Background())
	require.NoError(t, err)
	second, err := service.Current(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second, "second call must come from cache")
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestServiceDisabledWithoutKey(t *testing.T) {
	settings := testSettings()
	settings.APIKey = ""
	service := NewService(settings, nil)

	assert.False(t, service.Enabled())
	_, err := service.Current(context.Background())
	require.Error(t, err)
}

func TestServicePropagatesFetchFailure(t *testing.T) {
	client := NewOpenWeatherClient(testSettings())
	httpmock.ActivateNonDefault(client.httpClient)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodGet, DefaultEndpoint,
		httpmock.NewErrorResponder(assert.AnError))

	service := NewService(testSettings(), client)
	_, err := service.Current(context.Background())
	require.Error(t, err)
}
