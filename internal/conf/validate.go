// conf/validate.go

package conf

import (
	"fmt"
	"mime"
	"net"
	"slices"
	"strings"
)

var (
	validLogLevels     = []string{"trace", "debug", "info", "warn", "error"}
	validDatabaseTypes = []string{"sqlite", "mysql", "postgres"}
	validRoles         = []string{"admin", "supervisor", "operario", "auditor"}
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation errors: %s", strings.Join(ve.Errors, "; "))
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	validators := []func(*Settings) []string{
		validateLoggingSettings,
		validateDatabaseSettings,
		validateInspectionSettings,
		validateServerSettings,
		validateNotificationSettings,
		validateTelemetrySettings,
	}
	for _, validate := range validators {
		ve.Errors = append(ve.Errors, validate(settings)...)
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateLoggingSettings(s *Settings) []string {
	var errs []string
	if s.Logging.DefaultLevel != "" && !slices.Contains(validLogLevels, s.Logging.DefaultLevel) {
		errs = append(errs, fmt.Sprintf("logging.defaultlevel %q is not a valid level", s.Logging.DefaultLevel))
	}
	for module, level := range s.Logging.ModuleLevels {
		if !slices.Contains(validLogLevels, level) {
			errs = append(errs, fmt.Sprintf("logging.modulelevels.%s %q is not a valid level", module, level))
		}
	}
	return errs
}

func validateDatabaseSettings(s *Settings) []string {
	db := s.Database
	switch db.Type {
	case "sqlite":
		if db.SQLite.Path == "" {
			return []string{"database.sqlite.path is required for sqlite"}
		}
	case "mysql":
		var errs []string
		if db.MySQL.Host == "" {
			errs = append(errs, "database.mysql.host is required for mysql")
		}
		if db.MySQL.Database == "" {
			errs = append(errs, "database.mysql.database is required for mysql")
		}
		if db.MySQL.Port < 1 || db.MySQL.Port > 65535 {
			errs = append(errs, "database.mysql.port must be between 1 and 65535")
		}
		return errs
	case "postgres":
		if db.Postgres.DSN == "" {
			return []string{"database.postgres.dsn is required for postgres"}
		}
	default:
		return []string{fmt.Sprintf("database.type %q must be one of %s", db.Type, strings.Join(validDatabaseTypes, ", "))}
	}
	return nil
}

func validateInspectionSettings(s *Settings) []string {
	var errs []string
	in := s.Inspection

	if in.Attachments.MaxBytes <= 0 {
		errs = append(errs, "inspection.attachments.maxbytes must be positive")
	}
	if len(in.Attachments.AllowedTypes) == 0 {
		errs = append(errs, "inspection.attachments.allowedtypes must list at least one MIME type")
	}
	for _, mimeType := range in.Attachments.AllowedTypes {
		if _, _, err := mime.ParseMediaType(mimeType); err != nil {
			errs = append(errs, fmt.Sprintf("inspection.attachments.allowedtypes %q is not a MIME type", mimeType))
		}
	}

	if len(in.ElevatedRoles) == 0 {
		errs = append(errs, "inspection.elevatedroles must list at least one role")
	}
	for _, role := range in.ElevatedRoles {
		if !slices.Contains(validRoles, role) {
			errs = append(errs, fmt.Sprintf("inspection.elevatedroles %q must be one of %s", role, strings.Join(validRoles, ", ")))
		}
	}

	if in.RoleCacheTTL < 0 {
		errs = append(errs, "inspection.rolecachettl cannot be negative")
	}
	return errs
}

func validateServerSettings(s *Settings) []string {
	var errs []string
	if s.WebServer.Enabled {
		if _, _, err := net.SplitHostPort(s.WebServer.Listen); err != nil {
			errs = append(errs, fmt.Sprintf("webserver.listen %q must be host:port", s.WebServer.Listen))
		}
		if s.WebServer.RateLimit < 0 {
			errs = append(errs, "webserver.ratelimit cannot be negative")
		}
		if s.WebServer.RateLimit > 0 && s.WebServer.RateBurst < 1 {
			errs = append(errs, "webserver.rateburst must be at least 1 when rate limiting is enabled")
		}
	}
	if s.Metrics.Enabled {
		if _, _, err := net.SplitHostPort(s.Metrics.Listen); err != nil {
			errs = append(errs, fmt.Sprintf("metrics.listen %q must be host:port", s.Metrics.Listen))
		}
	}
	return errs
}

func validateNotificationSettings(s *Settings) []string {
	n := s.Notification
	if !n.Enabled {
		return nil
	}
	var errs []string
	if len(n.URLs) == 0 {
		errs = append(errs, "notification.urls must contain at least one URL when notifications are enabled")
	}
	if n.Timeout <= 0 {
		errs = append(errs, "notification.timeout must be positive")
	}
	return errs
}

func validateTelemetrySettings(s *Settings) []string {
	if s.Telemetry.Enabled && s.Telemetry.SentryDSN == "" {
		return []string{"telemetry.sentrydsn is required when telemetry is enabled"}
	}
	return nil
}
