package conf

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() *Settings {
	s := &Settings{}
	s.Output.SQLite.Enabled = true
	s.Output.SQLite.Path = "sentinel.db"
	s.Sensors.Door.PollInterval = 300 * time.Millisecond
	s.Sensors.NFC.Cooldown = 3 * time.Second
	s.Sensors.NFC.GraceWindow = 10 * time.Second
	s.Sensors.Environment.PollInterval = 2 * time.Second
	s.Alarm.TickInterval = time.Second
	s.Alarm.CaptureDuration = 10
	s.Capture.CameraIDs = []int{0}
	return s
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateSettings(validSettings()))
}

func TestValidateSettingsRejectsNoDatabase(t *testing.T) {
	t.Parallel()

	s := validSettings()
	s.Output.SQLite.Enabled = false
	err := ValidateSettings(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output.sqlite")
}

func TestValidateSettingsRejectsBadIntervals(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"zero door interval", func(s *Settings) { s.Sensors.Door.PollInterval = 0 }},
		{"zero grace window", func(s *Settings) { s.Sensors.NFC.GraceWindow = 0 }},
		{"zero tick", func(s *Settings) { s.Alarm.TickInterval = 0 }},
		{"zero capture duration", func(s *Settings) { s.Alarm.CaptureDuration = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := validSettings()
			tt.mutate(s)
			assert.Error(t, ValidateSettings(s))
		})
	}
}

func TestValidateSettingsRejectsDuplicateCameras(t *testing.T) {
	t.Parallel()

	s := validSettings()
	s.Capture.CameraIDs = []int{0, 1, 0}
	err := ValidateSettings(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestValidateSettingsWeatherRequiresKeyAndCity(t *testing.T) {
	t.Parallel()

	s := validSettings()
	s.Weather.OpenWeather.Enabled = true
	assert.Error(t, ValidateSettings(s))

	s.Weather.OpenWeather.APIKey = "abc"
	assert.Error(t, ValidateSettings(s))

	s.Weather.OpenWeather.City = "Helsinki"
	assert.NoError(t, ValidateSettings(s))
}

func TestGenerateKey(t *testing.T) {
	t.Parallel()

	key, err := GenerateKey(PairingKeyLength)
	require.NoError(t, err)
	assert.Len(t, key, PairingKeyLength)

	other, err := GenerateKey(PairingKeyLength)
	require.NoError(t, err)
	assert.NotEqual(t, key, other, "two generated keys should differ")

	for _, r := range key {
		assert.Contains(t, keyAlphabet, string(r))
	}
}

// Pairing rewrites the owner address while the notifier reads it from
// another goroutine; the accessors must hold the settings lock so the
// race detector stays quiet.
func TestOwnerAddressAccessorsAreSynchronized(t *testing.T) {
	settings := validSettings()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			settings.SetOwnerAddress(fmt.Sprintf("owner-%d@chat", n))
		}(i)
		go func() {
			defer wg.Done()
			_ = settings.OwnerAddress()
		}()
	}
	wg.Wait()

	assert.NotEmpty(t, settings.OwnerAddress())
}
