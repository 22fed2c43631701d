package notification

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/safetrack/safetrack/internal/conf"
	"github.com/safetrack/safetrack/internal/errors"
	"github.com/safetrack/safetrack/internal/events"
	"github.com/safetrack/safetrack/internal/inspection"
	"github.com/safetrack/safetrack/internal/logger"
	"github.com/safetrack/safetrack/internal/observability/metrics"
)

const component = "notification"

// Default limits for outbound alerts.
const (
	DefaultSendTimeout    = 10 * time.Second
	DefaultAlertsPerMin   = 30
	DefaultAlertBurst     = 10
	suppressedDuplicate   = "duplicate"
	suppressedRateLimited = "rate_limited"
)

var _ events.EventConsumer = (*Service)(nil)

// Service turns inspection events into alerts. It is registered on the event
// bus as the "notification" consumer.
type Service struct {
	senders  []Sender
	triggers Triggers
	instance string
	timeout  time.Duration
	dedup    *events.Deduplicator
	limiter  *rate.Limiter
	metrics  *metrics.NotificationMetrics
	log      logger.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics records deliveries on m.
func WithMetrics(m *metrics.NotificationMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the service logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithDeduplicator replaces the default ten-minute deduplicator.
func WithDeduplicator(d *events.Deduplicator) Option {
	return func(s *Service) { s.dedup = d }
}

// WithRateLimit caps alerts per minute with the given burst.
func WithRateLimit(perMinute, burst int) Option {
	return func(s *Service) {
		s.limiter = rate.NewLimiter(rate.Limit(float64(perMinute)/60), burst)
	}
}

// WithInstanceName prefixes alert titles with name.
func WithInstanceName(name string) Option {
	return func(s *Service) { s.instance = name }
}

// WithTimeout bounds each send.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewService creates an alert service delivering through senders.
func NewService(triggers Triggers, senders []Sender, opts ...Option) *Service {
	s := &Service{
		senders:  senders,
		triggers: triggers,
		timeout:  DefaultSendTimeout,
		dedup:    events.NewDeduplicator(events.DefaultDeduplicationConfig()),
		limiter:  rate.NewLimiter(rate.Limit(float64(DefaultAlertsPerMin)/60), DefaultAlertBurst),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Global().Module(component)
	}
	return s
}

// NewFromSettings builds the service with a shoutrrr sender for the
// configured URLs.
func NewFromSettings(settings *conf.Settings, m *metrics.NotificationMetrics, log logger.Logger) (*Service, error) {
	ns := settings.Notification
	sender, err := NewShoutrrrSender("shoutrrr", ns.URLs, ns.Timeout)
	if err != nil {
		return nil, err
	}
	triggers := Triggers{OnNOK: ns.OnNOK, OnForceClose: ns.OnForceClose}
	return NewService(triggers, []Sender{sender},
		WithMetrics(m),
		WithLogger(log),
		WithInstanceName(settings.Main.Name),
		WithTimeout(ns.Timeout),
	), nil
}

// Sweep purges expired deduplication keys.
func (s *Service) Sweep() {
	s.dedup.Sweep()
}

// Name identifies the consumer on the event bus.
func (s *Service) Name() string { return component }

// ProcessEvent sends the alert for ev, if any. Delivery failures of individual
// senders are joined into the returned error.
func (s *Service) ProcessEvent(ev inspection.Event) error {
	alert := BuildAlert(ev, s.triggers, s.instance)
	if alert == nil {
		return nil
	}

	if !s.dedup.ShouldProcess(ev) {
		s.suppress(alert, suppressedDuplicate)
		return nil
	}
	if s.limiter != nil && !s.limiter.Allow() {
		s.suppress(alert, suppressedRateLimited)
		return nil
	}

	var errs []error
	for _, sender := range s.senders {
		if err := s.deliver(sender, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Service) deliver(sender Sender, alert *Alert) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	err := sender.Send(ctx, alert)
	elapsed := time.Since(start)

	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordDelivery(sender.Name(), string(alert.Type), "error", elapsed)
			s.metrics.RecordDeliveryError(sender.Name(), string(alert.Type), errorCategory(err))
		}
		s.log.Error("alert delivery failed",
			logger.String("provider", sender.Name()),
			logger.String("type", string(alert.Type)),
			logger.String("inspection_id", alert.InspectionID),
			logger.Error(err))
		return err
	}

	if s.metrics != nil {
		s.metrics.RecordDelivery(sender.Name(), string(alert.Type), "success", elapsed)
	}
	s.log.Info("alert sent",
		logger.String("provider", sender.Name()),
		logger.String("type", string(alert.Type)),
		logger.String("inspection_id", alert.InspectionID),
		logger.Duration("elapsed", elapsed))
	return nil
}

func (s *Service) suppress(alert *Alert, why string) {
	if s.metrics != nil {
		s.metrics.RecordSuppressed(string(alert.Type))
	}
	s.log.Debug("alert suppressed",
		logger.String("type", string(alert.Type)),
		logger.String("inspection_id", alert.InspectionID),
		logger.String("reason", why))
}

func errorCategory(err error) string {
	var ee *errors.EnhancedError
	if errors.As(err, &ee) {
		return ee.GetCategory()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return string(errors.CategoryGeneric)
}
