// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "Sentinel")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "sentinel.log")
	viper.SetDefault("main.log.rotation", RotationDaily)
	viper.SetDefault("main.log.maxsize", 1048576)
	viper.SetDefault("main.log.rotationday", "Sunday")

	viper.SetDefault("security.pairingkey", "")
	viper.SetDefault("security.owneraddress", "")
	viper.SetDefault("security.nfccredentialhash", "")

	viper.SetDefault("sensors.door.pin", 27)
	viper.SetDefault("sensors.door.pollinterval", "300ms")
	viper.SetDefault("sensors.nfc.devicepath", "/dev/nfc0")
	viper.SetDefault("sensors.nfc.cooldown", "3s")
	viper.SetDefault("sensors.nfc.gracewindow", "10s")
	viper.SetDefault("sensors.environment.pin", 18)
	viper.SetDefault("sensors.environment.helpercommand", "dht22-read")
	viper.SetDefault("sensors.environment.pollinterval", "2s")

	viper.SetDefault("alarm.tickinterval", "1s")
	viper.SetDefault("alarm.captureduration", 10)
	viper.SetDefault("alarm.tempdir", "/tmp")

	viper.SetDefault("capture.cameraids", []int{0})
	viper.SetDefault("capture.videoformat", "avi")

	viper.SetDefault("speech.enabled", true)
	viper.SetDefault("speech.voice", "awb")
	viper.SetDefault("speech.pollinterval", "250ms")

	viper.SetDefault("weather.openweather.enabled", false)
	viper.SetDefault("weather.openweather.apikey", "")
	viper.SetDefault("weather.openweather.city", "")
	viper.SetDefault("weather.openweather.endpoint", "https://api.openweathermap.org/data/2.5/weather")
	viper.SetDefault("weather.openweather.units", "metric")

	viper.SetDefault("notification.enabled", false)
	viper.SetDefault("notification.urls", []string{})

	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt.topic", "sentinel")
	viper.SetDefault("mqtt.username", "")
	viper.SetDefault("mqtt.password", "")

	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.listen", "0.0.0.0:8090")

	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "sentinel.db")
	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "sentinel")
	viper.SetDefault("output.mysql.password", "")
	viper.SetDefault("output.mysql.database", "sentinel")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", "3306")
}
