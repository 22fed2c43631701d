// Package datastore persists inspections, responses, roles and audit rows with
// GORM on SQLite, MySQL or PostgreSQL.
package datastore

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	mysqlcfg "github.com/go-sql-driver/mysql"
	"github.com/safetrack/safetrack/internal/conf"
	"github.com/safetrack/safetrack/internal/datastore/entities"
	"github.com/safetrack/safetrack/internal/errors"
	"github.com/safetrack/safetrack/internal/logger"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Manager owns the database connection and schema.
type Manager struct {
	db       *gorm.DB
	dbType   string
	location string // file path or host:port/database for display
	log      logger.Logger
	metrics  *Metrics
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used by the manager and the GORM adapter.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithMetrics records operation metrics on m.
func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// Open connects to the database selected by settings.Type. The schema is not
// touched; call Initialize to migrate it.
func Open(settings *conf.DatabaseSettings, opts ...Option) (*Manager, error) {
	m := &Manager{dbType: settings.Type}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = defaultLogger()
	}

	dialector, location, err := dialectorFor(settings)
	if err != nil {
		return nil, err
	}
	m.location = location

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.NewGormLoggerAdapter(m.log, settings.SlowQueryThreshold),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	})
	if err != nil {
		return nil, dbError(err, "open", errors.PriorityHigh,
			"db_type", settings.Type, "location", location)
	}
	m.db = db

	if err := m.configurePool(settings); err != nil {
		_ = m.Close()
		return nil, err
	}

	m.log.Info("database opened",
		logger.String("db_type", m.dbType),
		logger.String("location", m.location))
	return m, nil
}

func dialectorFor(settings *conf.DatabaseSettings) (gorm.Dialector, string, error) {
	switch settings.Type {
	case "sqlite":
		return sqlite.Open(settings.SQLite.Path), settings.SQLite.Path, nil
	case "mysql":
		cfg := mysqlDSN(&settings.MySQL)
		return mysql.Open(cfg.FormatDSN()),
			fmt.Sprintf("%s/%s", cfg.Addr, cfg.DBName), nil
	case "postgres":
		return postgres.Open(settings.Postgres.DSN), "postgres", nil
	default:
		return nil, "", validationError(ErrUnsupportedType, "database.type", settings.Type)
	}
}

// mysqlDSN builds the driver configuration. ClientFoundRows makes UPDATE
// report matched rather than changed rows so no-op updates are not mistaken
// for missing records.
func mysqlDSN(s *conf.MySQLSettings) *mysqlcfg.Config {
	cfg := mysqlcfg.NewConfig()
	cfg.User = s.Username
	cfg.Passwd = s.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
	cfg.DBName = s.Database
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.ClientFoundRows = true
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg
}

func (m *Manager) configurePool(settings *conf.DatabaseSettings) error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return dbError(err, "get_sql_db", errors.PriorityHigh)
	}

	switch settings.Type {
	case "sqlite":
		// SQLite has a single writer; one connection also keeps :memory: databases shared.
		sqlDB.SetMaxOpenConns(1)
		if err := m.db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return dbError(err, "enable_foreign_keys", errors.PriorityHigh)
		}
		if err := m.db.Exec("PRAGMA busy_timeout = 5000").Error; err != nil {
			return dbError(err, "set_busy_timeout", errors.PriorityMedium)
		}
	case "mysql":
		sqlDB.SetMaxOpenConns(settings.MySQL.MaxOpenConns)
		sqlDB.SetMaxIdleConns(settings.MySQL.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(settings.MySQL.ConnMaxLifetime)
	default:
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}
	return nil
}

// Initialize migrates the schema.
func (m *Manager) Initialize() error {
	err := m.db.AutoMigrate(
		&entities.Area{},
		&entities.Inspection{},
		&entities.InspectionItem{},
		&entities.ItemResponse{},
		&entities.UserRole{},
		&entities.AuditLog{},
	)
	if err != nil {
		return dbError(err, "auto_migrate", errors.PriorityCritical, "db_type", m.dbType)
	}
	m.log.Info("schema migrated", logger.String("db_type", m.dbType))
	return nil
}

// DB returns the underlying GORM database.
func (m *Manager) DB() *gorm.DB {
	return m.db
}

// Type returns the configured database type.
func (m *Manager) Type() string {
	return m.dbType
}

// Path returns the database location (file path or host:port/database).
func (m *Manager) Path() string {
	return m.location
}

// Metrics returns the metrics collector, or nil.
func (m *Manager) Metrics() *Metrics {
	return m.metrics
}

// ReportPoolStats publishes connection pool gauges.
func (m *Manager) ReportPoolStats() {
	if m.metrics == nil {
		return
	}
	sqlDB, err := m.db.DB()
	if err != nil {
		return
	}
	stats := sqlDB.Stats()
	m.metrics.UpdateConnectionMetrics(stats.InUse, stats.Idle, stats.MaxOpenConnections)
}

// MonitorPool reports pool statistics every interval until ctx is done.
func (m *Manager) MonitorPool(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		m.ReportPoolStats()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Close closes the database connection.
func (m *Manager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return dbError(err, "get_sql_db", errors.PriorityMedium)
	}
	return sqlDB.Close()
}
