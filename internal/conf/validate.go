package conf

import (
	"fmt"
	"slices"
)

// ValidateSettings checks the loaded settings for values the daemon cannot
// run with. It returns the first problem found.
func ValidateSettings(settings *Settings) error {
	if err := validateOutput(&settings.Output); err != nil {
		return err
	}
	if err := validateSensors(&settings.Sensors); err != nil {
		return err
	}
	if settings.Alarm.TickInterval <= 0 {
		return fmt.Errorf("alarm.tickinterval must be positive")
	}
	if settings.Alarm.CaptureDuration <= 0 {
		return fmt.Errorf("alarm.captureduration must be positive")
	}
	if err := validateCapture(&settings.Capture); err != nil {
		return err
	}
	if settings.Weather.OpenWeather.Enabled {
		if settings.Weather.OpenWeather.APIKey == "" {
			return fmt.Errorf("weather.openweather.apikey is required when OpenWeather is enabled")
		}
		if settings.Weather.OpenWeather.City == "" {
			return fmt.Errorf("weather.openweather.city is required when OpenWeather is enabled")
		}
	}
	if settings.Notification.Enabled && len(settings.Notification.URLs) == 0 {
		return fmt.Errorf("notification.urls is required when the notification mirror is enabled")
	}
	if settings.MQTT.Enabled && settings.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when MQTT is enabled")
	}
	if settings.Telemetry.Enabled && settings.Telemetry.Listen == "" {
		return fmt.Errorf("telemetry.listen is required when telemetry is enabled")
	}
	return nil
}

func validateOutput(output *OutputSettings) error {
	if !output.SQLite.Enabled && !output.MySQL.Enabled {
		return fmt.Errorf("either output.sqlite or output.mysql must be enabled")
	}
	if output.SQLite.Enabled && output.SQLite.Path == "" {
		return fmt.Errorf("output.sqlite.path is required when SQLite is enabled")
	}
	if output.MySQL.Enabled {
		if output.MySQL.Host == "" || output.MySQL.Database == "" {
			return fmt.Errorf("output.mysql.host and output.mysql.database are required when MySQL is enabled")
		}
	}
	return nil
}

func validateSensors(sensors *SensorSettings) error {
	if sensors.Door.PollInterval <= 0 {
		return fmt.Errorf("sensors.door.pollinterval must be positive")
	}
	if sensors.NFC.Cooldown < 0 {
		return fmt.Errorf("sensors.nfc.cooldown must not be negative")
	}
	if sensors.NFC.GraceWindow <= 0 {
		return fmt.Errorf("sensors.nfc.gracewindow must be positive")
	}
	if sensors.Environment.PollInterval <= 0 {
		return fmt.Errorf("sensors.environment.pollinterval must be positive")
	}
	return nil
}

func validateCapture(capture *CaptureSettings) error {
	seen := make([]int, 0, len(capture.CameraIDs))
	for _, id := range capture.CameraIDs {
		if id < 0 {
			return fmt.Errorf("capture.cameraids must not contain negative ids, got %d", id)
		}
		if slices.Contains(seen, id) {
			return fmt.Errorf("capture.cameraids contains duplicate id %d", id)
		}
		seen = append(seen, id)
	}
	return nil
}
