// Package conf defines the settings for the sentinel daemon and functions to
// load, validate and persist them. The configuration surface is a JSON file
// (config.json) because the pairing flow rewrites it at runtime.
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// LogConfig defines the configuration for a log file
type LogConfig struct {
	Enabled     bool         // true to enable this log
	Path        string       // path to the log file
	Rotation    RotationType // type of log rotation
	MaxSize     int64        // max size in bytes for RotationSize
	RotationDay string       // day of the week for RotationWeekly
}

// RotationType defines different types of log rotations.
type RotationType string

const (
	RotationDaily  RotationType = "daily"
	RotationWeekly RotationType = "weekly"
	RotationSize   RotationType = "size"
)

// SecuritySettings holds pairing state and the NFC credential hash.
// OwnerAddress and PairingKey are rewritten by the pairing flow.
type SecuritySettings struct {
	PairingKey        string // secret the owner must present to /init
	OwnerAddress      string // bound owner chat address, empty until paired
	NFCCredentialHash string // bcrypt hash of the NFC tag credential
}

// DoorSensorSettings contains settings for the door contact poller.
type DoorSensorSettings struct {
	Pin          int           // GPIO pin of the door contact
	PollInterval time.Duration // poll cadence
}

// NFCSensorSettings contains settings for the NFC badge reader poller.
type NFCSensorSettings struct {
	DevicePath  string        // character device or FIFO emitting credential lines
	Cooldown    time.Duration // pause after each blocking tag read
	GraceWindow time.Duration // going_out window after a check-out
}

// EnvironmentSensorSettings contains settings for the DHT22 poller.
type EnvironmentSensorSettings struct {
	Pin           int           // GPIO pin of the environment sensor
	HelperCommand string        // binary printing "temperature humidity"
	PollInterval  time.Duration // poll cadence, sensor updates every 2s
}

// SensorSettings groups the hardware poller settings.
type SensorSettings struct {
	Door        DoorSensorSettings
	NFC         NFCSensorSettings
	Environment EnvironmentSensorSettings
}

// AlarmSettings contains settings for the alarm state machine.
type AlarmSettings struct {
	TickInterval    time.Duration // state machine evaluation cadence
	CaptureDuration int           // seconds of video per automatic capture
	TempDir         string        // directory for capture files
}

// CaptureSettings contains settings for the camera gateway.
type CaptureSettings struct {
	CameraIDs   []int  // numbered webcams in addition to the on-board camera
	VideoFormat string // webcam container format, e.g. "avi" or "mp4"
}

// SpeechSettings contains settings for the speech output worker.
type SpeechSettings struct {
	Enabled      bool
	Voice        string        // TTS voice name
	PollInterval time.Duration // queue drain cadence
}

// OpenWeatherSettings contains settings for the OpenWeather integration.
type OpenWeatherSettings struct {
	Enabled  bool
	APIKey   string // OpenWeather API key
	City     string // city to query
	Endpoint string // OpenWeather API endpoint
	Units    string // standard, metric, or imperial
}

// WeatherSettings contains all weather-related settings.
type WeatherSettings struct {
	OpenWeather OpenWeatherSettings
}

// NotificationSettings configures the optional shoutrrr mirror. Alert
// texts sent to the owner are duplicated to every URL listed here.
type NotificationSettings struct {
	Enabled bool
	URLs    []string // shoutrrr service URLs
}

// MQTTSettings contains settings for MQTT integration.
type MQTTSettings struct {
	Enabled  bool
	Broker   string // MQTT broker (tcp://host:port)
	Topic    string // base topic for published events
	Username string
	Password string
}

// TelemetrySettings contains settings for the Prometheus endpoint.
type TelemetrySettings struct {
	Enabled bool
	Listen  string // IP address and port to listen on
}

// OutputSettings selects and configures the shared state database.
type OutputSettings struct {
	SQLite struct {
		Enabled bool
		Path    string // path to the sqlite database
	}
	MySQL struct {
		Enabled  bool
		Username string
		Password string
		Database string
		Host     string
		Port     string
	}
}

// Settings contains all configuration options for the sentinel daemon.
type Settings struct {
	Debug bool // true to enable debug mode

	// Runtime values, not stored in the config file
	Version string `json:"-"`

	Main struct {
		Name string    // name of this sentinel node
		Log  LogConfig // logging configuration
	}

	Security     SecuritySettings
	Sensors      SensorSettings
	Alarm        AlarmSettings
	Capture      CaptureSettings
	Speech       SpeechSettings
	Weather      WeatherSettings
	Notification NotificationSettings
	MQTT         MQTTSettings
	Telemetry    TelemetrySettings
	Output       OutputSettings
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into Settings.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settings, nil
}

// initViper sets up the config file search paths and reads the config,
// creating a default config file if none exists yet.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("json")

	configPaths, err := configPaths()
	if err != nil {
		return err
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !asConfigNotFound(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		return createDefaultConfig(configPaths[0])
	}
	return nil
}

func asConfigNotFound(err error, target *viper.ConfigFileNotFoundError) bool {
	if e, ok := err.(viper.ConfigFileNotFoundError); ok {
		*target = e
		return true
	}
	return false
}

// createDefaultConfig writes the default settings to a new config file.
func createDefaultConfig(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}
	configPath := filepath.Join(dir, "config.json")
	if err := viper.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("error writing default config: %w", err)
	}
	return viper.ReadInConfig()
}

// configPaths returns the list of directories searched for config.json,
// most specific first.
func configPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("error resolving home directory: %w", err)
	}
	return []string{
		filepath.Join(homeDir, ".config", "sentinel"),
		".",
	}, nil
}

// Setting returns the current settings instance, or nil if Load has not
// been called.
func Setting() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// OwnerAddress returns the bound owner chat address under the settings
// lock. The pairing flow rewrites it while other goroutines read it.
func (s *Settings) OwnerAddress() string {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return s.Security.OwnerAddress
}

// SetOwnerAddress updates the bound owner chat address under the
// settings lock.
func (s *Settings) SetOwnerAddress(address string) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()
	s.Security.OwnerAddress = address
}

// SaveSecuritySettings persists the security section back to the config
// file. Pairing and NFC provisioning are the only flows that rewrite
// configuration at runtime.
func SaveSecuritySettings(settings *Settings) error {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	viper.Set("security.pairingkey", settings.Security.PairingKey)
	viper.Set("security.owneraddress", settings.Security.OwnerAddress)
	viper.Set("security.nfccredentialhash", settings.Security.NFCCredentialHash)

	if err := viper.WriteConfig(); err != nil {
		return fmt.Errorf("error writing config: %w", err)
	}
	settingsInstance = settings
	return nil
}
