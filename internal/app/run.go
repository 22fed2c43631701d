package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/safetrack/safetrack/internal/api"
	"github.com/safetrack/safetrack/internal/buildinfo"
	"github.com/safetrack/safetrack/internal/conf"
	"github.com/safetrack/safetrack/internal/datastore"
	"github.com/safetrack/safetrack/internal/events"
	"github.com/safetrack/safetrack/internal/inspection"
	"github.com/safetrack/safetrack/internal/logger"
	"github.com/safetrack/safetrack/internal/notification"
	"github.com/safetrack/safetrack/internal/observability"
	"github.com/safetrack/safetrack/internal/telemetry"
)

const (
	poolStatsInterval  = 30 * time.Second
	busShutdownTimeout = 5 * time.Second
	dedupSweepInterval = 5 * time.Minute
)

// Service bundles the running components.
type Service struct {
	Settings *conf.Settings
	Metrics  *observability.Metrics
	DB       *datastore.Manager
	Bus      *events.EventBus
	Roles    *datastore.RoleRepository
	Audit    *datastore.AuditConsumer
	Engine   *inspection.Engine
	Notifier *notification.Service // nil when alerts are disabled

	log logger.Logger
}

// NewService opens the database, registers the event consumers and builds the
// engine. Close releases what it opened.
func NewService(settings *conf.Settings, m *observability.Metrics) (*Service, error) {
	log := logger.Global().Module("app")

	db, err := OpenDatastore(&settings.Database, m.Datastore)
	if err != nil {
		return nil, err
	}

	s := &Service{
		Settings: settings,
		Metrics:  m,
		DB:       db,
		Bus:      events.New(events.DefaultConfig(), logger.Global().Module("events")),
		Roles:    datastore.NewRoleRepository(db, settings.Inspection.RoleCacheTTL),
		Audit:    datastore.NewAuditConsumer(db),
		log:      log,
	}

	consumers := []events.EventConsumer{s.Audit, m.Inspection}
	if settings.Notification.Enabled {
		s.Notifier, err = notification.NewFromSettings(settings, m.Notification, logger.Global().Module("notification"))
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("notification setup failed: %w", err)
		}
		consumers = append(consumers, s.Notifier)
	}
	for _, c := range consumers {
		if err := s.Bus.RegisterConsumer(c); err != nil {
			s.Close()
			return nil, err
		}
	}

	s.Engine, err = NewEngine(settings, datastore.NewInspectionStore(db), s.Bus)
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// ApplySettings pushes reloadable settings into the running components.
func (s *Service) ApplySettings(settings *conf.Settings) {
	s.Engine.SetAttachmentPolicy(AttachmentPolicy(settings))
	logger.Global().SetLevels(settings.Logging.DefaultLevel, settings.Logging.ModuleLevels)
}

// Close drains the event bus and closes the database.
func (s *Service) Close() {
	if err := s.Bus.Shutdown(busShutdownTimeout); err != nil {
		s.log.Warn("event bus shutdown incomplete", logger.Error(err))
	}
	if err := s.DB.Close(); err != nil {
		s.log.Warn("database close failed", logger.Error(err))
	}
}

// Serve runs the API server, the metrics endpoint and the pool monitor until
// ctx is cancelled or one of them fails.
func Serve(ctx context.Context, settings *conf.Settings, build *buildinfo.Context) error {
	log := logger.Global().Module("app")
	log.Info("starting SafeTrack",
		logger.String("version", build.GetVersion()),
		logger.String("build_date", build.GetBuildDate()))

	if _, err := telemetry.Init(&settings.Telemetry, build); err != nil {
		log.Warn("error reporting disabled", logger.Error(err))
	}
	defer telemetry.Flush(telemetry.DefaultFlushTimeout)

	m, err := observability.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics setup failed: %w", err)
	}

	svc, err := NewService(settings, m)
	if err != nil {
		return err
	}
	defer svc.Close()

	conf.Watch(svc.ApplySettings)

	g, gctx := errgroup.WithContext(ctx)

	if settings.WebServer.Enabled {
		server := api.New(&settings.WebServer, svc.Engine, svc.Roles,
			api.WithLogger(logger.Global().Module("api")),
			api.WithMetrics(m.HTTP))
		g.Go(func() error { return server.Run(gctx) })
	}

	if settings.Metrics.Enabled {
		endpoint, err := observability.NewEndpoint(settings, m)
		if err != nil {
			return err
		}
		g.Go(func() error { return endpoint.Run(gctx) })
	}

	g.Go(func() error {
		svc.DB.MonitorPool(gctx, poolStatsInterval)
		return nil
	})

	if svc.Notifier != nil {
		g.Go(func() error {
			ticker := time.NewTicker(dedupSweepInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					svc.Notifier.Sweep()
				}
			}
		})
	}

	err = g.Wait()
	log.Info("SafeTrack stopped", logger.Bool("clean", err == nil))
	return err
}
