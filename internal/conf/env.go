// env.go - Environment variable configuration and validation for SafeTrack
package conf

import (
	"fmt"
	"net"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable SafeTrack reads.
const EnvPrefix = "SAFETRACK"

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "SAFETRACK_DEBUG", validateEnvBool},
		{"logging.defaultlevel", "SAFETRACK_LOG_LEVEL", validateEnvLogLevel},

		// Database
		{"database.type", "SAFETRACK_DATABASE_TYPE", validateEnvDatabaseType},
		{"database.sqlite.path", "SAFETRACK_DATABASE_SQLITE_PATH", nil},
		{"database.mysql.host", "SAFETRACK_DATABASE_MYSQL_HOST", nil},
		{"database.mysql.port", "SAFETRACK_DATABASE_MYSQL_PORT", validateEnvPort},
		{"database.mysql.username", "SAFETRACK_DATABASE_MYSQL_USERNAME", nil},
		{"database.mysql.password", "SAFETRACK_DATABASE_MYSQL_PASSWORD", nil},
		{"database.mysql.database", "SAFETRACK_DATABASE_MYSQL_DATABASE", nil},
		{"database.postgres.dsn", "SAFETRACK_DATABASE_POSTGRES_DSN", nil},

		// Inspection engine
		{"inspection.attachments.maxbytes", "SAFETRACK_ATTACHMENT_MAXBYTES", validateEnvPositiveInt},
		{"inspection.rolecachettl", "SAFETRACK_ROLE_CACHE_TTL", validateEnvDuration},

		// Servers
		{"webserver.listen", "SAFETRACK_LISTEN", validateEnvListenAddr},
		{"metrics.listen", "SAFETRACK_METRICS_LISTEN", validateEnvListenAddr},

		// Integrations
		{"notification.urls", "SAFETRACK_NOTIFICATION_URLS", nil},
		{"telemetry.sentrydsn", "SAFETRACK_SENTRY_DSN", nil},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars(v *viper.Viper) error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := v.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate == nil {
			continue
		}
		if envValue := os.Getenv(binding.EnvVar); envValue != "" {
			if err := binding.Validate(envValue); err != nil {
				warnings = append(warnings, fmt.Sprintf("invalid %s value %q: %v", binding.EnvVar, envValue, err))
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be a boolean")
	}
	return nil
}

func validateEnvLogLevel(value string) error {
	if !slices.Contains(validLogLevels, strings.ToLower(value)) {
		return fmt.Errorf("must be one of %s", strings.Join(validLogLevels, ", "))
	}
	return nil
}

func validateEnvDatabaseType(value string) error {
	if !slices.Contains(validDatabaseTypes, strings.ToLower(value)) {
		return fmt.Errorf("must be one of %s", strings.Join(validDatabaseTypes, ", "))
	}
	return nil
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("must be a port number between 1 and 65535")
	}
	return nil
}

func validateEnvPositiveInt(value string) error {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n <= 0 {
		return fmt.Errorf("must be a positive integer")
	}
	return nil
}

func validateEnvDuration(value string) error {
	if _, err := time.ParseDuration(value); err != nil {
		return fmt.Errorf("must be a duration such as 30s: %w", err)
	}
	return nil
}

func validateEnvListenAddr(value string) error {
	if _, _, err := net.SplitHostPort(value); err != nil {
		return fmt.Errorf("must be host:port: %w", err)
	}
	return nil
}

// configureEnvironmentVariables sets up environment variable support for Viper
func configureEnvironmentVariables(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return bindEnvVars(v)
}
