// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Default attachment policy for checklist responses.
const (
	DefaultAttachmentMaxBytes = 8 * 1024 * 1024
	DefaultRoleCacheTTL       = 30 * time.Second
)

// DefaultAttachmentTypes are the MIME types accepted on checklist responses.
var DefaultAttachmentTypes = []string{"image/jpeg", "image/png", "application/pdf"}

// setDefaultConfig sets default values for every configuration key.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("main.name", "SafeTrack")
	v.SetDefault("main.timezone", "Local")

	v.SetDefault("logging.defaultlevel", "info")
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.console.enabled", true)
	v.SetDefault("logging.console.level", "info")
	v.SetDefault("logging.fileoutput.enabled", false)
	v.SetDefault("logging.fileoutput.path", "logs/safetrack.log")
	v.SetDefault("logging.fileoutput.level", "info")

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.slowquerythreshold", 200*time.Millisecond)
	v.SetDefault("database.sqlite.path", "safetrack.db")
	v.SetDefault("database.mysql.host", "localhost")
	v.SetDefault("database.mysql.port", 3306)
	v.SetDefault("database.mysql.username", "")
	v.SetDefault("database.mysql.password", "")
	v.SetDefault("database.mysql.database", "safetrack")
	v.SetDefault("database.mysql.maxopenconns", 25)
	v.SetDefault("database.mysql.maxidleconns", 10)
	v.SetDefault("database.mysql.connmaxlifetime", 5*time.Minute)
	v.SetDefault("database.postgres.dsn", "")

	v.SetDefault("inspection.attachments.maxbytes", DefaultAttachmentMaxBytes)
	v.SetDefault("inspection.attachments.allowedtypes", DefaultAttachmentTypes)
	v.SetDefault("inspection.elevatedroles", []string{"admin", "supervisor"})
	v.SetDefault("inspection.rolecachettl", DefaultRoleCacheTTL)

	v.SetDefault("webserver.enabled", true)
	v.SetDefault("webserver.listen", ":8080")
	v.SetDefault("webserver.ratelimit", 20.0)
	v.SetDefault("webserver.rateburst", 40)
	v.SetDefault("webserver.shutdowntimeout", 10*time.Second)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.listen", ":9090")

	v.SetDefault("notification.enabled", false)
	v.SetDefault("notification.urls", []string{})
	v.SetDefault("notification.timeout", 10*time.Second)
	v.SetDefault("notification.onnok", true)
	v.SetDefault("notification.onforceclose", true)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.sentrydsn", "")
	v.SetDefault("telemetry.environment", "production")
}
