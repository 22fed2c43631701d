// config.go: settings struct for SafeTrack and the functions to load and save it.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/safetrack/safetrack/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// MainSettings holds process-wide identity settings.
type MainSettings struct {
	Name     string `yaml:"name"`     // instance name shown in alerts
	Timezone string `yaml:"timezone"` // IANA zone used when rendering timestamps
}

// SQLiteSettings configures the embedded database.
type SQLiteSettings struct {
	Path string `yaml:"path"` // database file, ":memory:" for ephemeral use
}

// MySQLSettings configures a MySQL server connection.
type MySQLSettings struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Username        string        `yaml:"username"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	MaxOpenConns    int           `yaml:"maxopenconns"`
	MaxIdleConns    int           `yaml:"maxidleconns"`
	ConnMaxLifetime time.Duration `yaml:"connmaxlifetime"`
}

// PostgresSettings configures a PostgreSQL connection.
type PostgresSettings struct {
	DSN string `yaml:"dsn"` // libpq style or URL DSN
}

// DatabaseSettings selects and configures the persistence backend.
type DatabaseSettings struct {
	Type               string           `yaml:"type"`               // sqlite, mysql or postgres
	SlowQueryThreshold time.Duration    `yaml:"slowquerythreshold"` // queries slower than this are logged at WARN
	SQLite             SQLiteSettings   `yaml:"sqlite"`
	MySQL              MySQLSettings    `yaml:"mysql"`
	Postgres           PostgresSettings `yaml:"postgres"`
}

// AttachmentSettings bounds what may be attached to a checklist response.
type AttachmentSettings struct {
	MaxBytes     int64    `yaml:"maxbytes"`     // per-file ceiling
	AllowedTypes []string `yaml:"allowedtypes"` // MIME types
}

// InspectionSettings configures the inspection engine.
type InspectionSettings struct {
	Attachments   AttachmentSettings `yaml:"attachments"`
	ElevatedRoles []string           `yaml:"elevatedroles"` // roles allowed to run lifecycle transitions
	RoleCacheTTL  time.Duration      `yaml:"rolecachettl"`  // how long role lookups are cached
}

// WebServerSettings configures the HTTP API.
type WebServerSettings struct {
	Enabled         bool          `yaml:"enabled"`
	Listen          string        `yaml:"listen"`          // host:port
	RateLimit       float64       `yaml:"ratelimit"`       // requests per second per client, 0 disables
	RateBurst       int           `yaml:"rateburst"`       // burst allowance
	ShutdownTimeout time.Duration `yaml:"shutdowntimeout"` // graceful shutdown budget
}

// MetricsSettings configures the Prometheus endpoint.
type MetricsSettings struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// NotificationSettings configures outbound alerts.
type NotificationSettings struct {
	Enabled      bool          `yaml:"enabled"`
	URLs         []string      `yaml:"urls"`         // shoutrrr service URLs
	Timeout      time.Duration `yaml:"timeout"`      // per-send budget
	OnNOK        bool          `yaml:"onnok"`        // alert when a NOK response is recorded
	OnForceClose bool          `yaml:"onforceclose"` // alert when an inspection is force-closed
}

// TelemetrySettings configures error reporting.
type TelemetrySettings struct {
	Enabled     bool   `yaml:"enabled"`
	SentryDSN   string `yaml:"sentrydsn"`
	Environment string `yaml:"environment"`
}

// Settings contains all configuration options for SafeTrack.
type Settings struct {
	Debug bool `yaml:"debug"`

	Main         MainSettings         `yaml:"main"`
	Logging      logger.LoggingConfig `yaml:"logging"`
	Database     DatabaseSettings     `yaml:"database"`
	Inspection   InspectionSettings   `yaml:"inspection"`
	WebServer    WebServerSettings    `yaml:"webserver"`
	Metrics      MetricsSettings      `yaml:"metrics"`
	Notification NotificationSettings `yaml:"notification"`
	Telemetry    TelemetrySettings    `yaml:"telemetry"`
}

var (
	settingsInstance *Settings
	settingsViper    *viper.Viper
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables.
// An empty configFile searches the default config paths and writes the
// embedded defaults to the first one when no file exists.
func Load(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	v, err := initViper(configFile)
	if err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings, err := decode(v)
	if err != nil {
		return nil, err
	}

	settingsInstance = settings
	settingsViper = v
	return settings, nil
}

func decode(v *viper.Viper) (*Settings, error) {
	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}
	return settings, nil
}

// initViper builds a viper instance with defaults, environment bindings and the config file.
func initViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	setDefaultConfig(v)

	if err := configureEnvironmentVariables(v); err != nil {
		return nil, err
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("fatal error reading config file %s: %w", configFile, err)
		}
		return v, nil
	}

	v.SetConfigName("config")
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return nil, fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		v.AddConfigPath(path)
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return v, createDefaultConfig(v, configPaths)
		}
		return nil, fmt.Errorf("fatal error reading config file: %w", err)
	}

	return v, nil
}

// createDefaultConfig writes the embedded config.yaml to the first writable default path.
func createDefaultConfig(v *viper.Viper, configPaths []string) error {
	defaultConfig, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return fmt.Errorf("error reading embedded default config: %w", err)
	}

	var lastErr error
	for _, dir := range configPaths {
		configPath := filepath.Join(dir, "config.yaml")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			lastErr = err
			continue
		}
		if err := os.WriteFile(configPath, defaultConfig, 0o600); err != nil {
			lastErr = err
			continue
		}
		logger.Global().Module("conf").Info("created default config file", logger.String("path", configPath))
		v.SetConfigFile(configPath)
		return v.ReadInConfig()
	}

	return fmt.Errorf("error writing default config file: %w", lastErr)
}

// GetSettings returns the most recently loaded settings, or nil before Load.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// ConfigFileUsed returns the path of the loaded config file.
func ConfigFileUsed() string {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	if settingsViper == nil {
		return ""
	}
	return settingsViper.ConfigFileUsed()
}

// SaveYAMLConfig writes settings to configPath atomically.
// Comments and ordering of the existing file are not preserved.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(yamlData); err != nil {
		tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempFileName, configPath); err != nil {
		return fmt.Errorf("error replacing config file: %w", err)
	}
	return nil
}
