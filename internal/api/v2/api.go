// Package api exposes the inspection engine over JSON/HTTP under /api/v2.
// Authentication happens upstream; the caller identity arrives in the
// X-User-ID header and roles are resolved per request.
package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/safetrack/safetrack/internal/conf"
	"github.com/safetrack/safetrack/internal/inspection"
	"github.com/safetrack/safetrack/internal/logger"
	"github.com/safetrack/safetrack/internal/observability/metrics"
)

// HeaderUserID carries the authenticated caller.
const HeaderUserID = "X-User-ID"

const (
	contextUserIDKey = "user_id"
	defaultBodyLimit = "1M"
)

// RoleResolver binds role checks to a user.
type RoleResolver interface {
	ForUser(userID string) inspection.RoleChecker
}

// Controller manages the API routes and handlers.
type Controller struct {
	Echo  *echo.Echo
	Group *echo.Group

	engine   *inspection.Engine
	roles    RoleResolver
	settings *conf.WebServerSettings
	metrics  *metrics.HTTPMetrics
	limiter  *ipRateLimiter
	log      logger.Logger
}

// Option is a functional option for configuring the Controller.
type Option func(*Controller)

// WithMetrics records request metrics on m.
func WithMetrics(m *metrics.HTTPMetrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithLogger sets the controller logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates the controller and registers its routes on e.
func New(e *echo.Echo, engine *inspection.Engine, roles RoleResolver, settings *conf.WebServerSettings, opts ...Option) *Controller {
	c := &Controller{
		Echo:     e,
		engine:   engine,
		roles:    roles,
		settings: settings,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Global().Module("api")
	}
	if settings.RateLimit > 0 {
		c.limiter = newIPRateLimiter(settings.RateLimit, settings.RateBurst)
	}

	c.Group = e.Group("/api/v2")
	c.Group.Use(
		middleware.RequestID(),
		c.metricsMiddleware(),
		c.rateLimitMiddleware(),
		middleware.BodyLimit(defaultBodyLimit),
	)
	c.initRoutes()
	return c
}

func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.health)

	inspections := c.Group.Group("/inspections/:id", c.userMiddleware)
	inspections.GET("", c.GetInspection)
	inspections.PUT("/items/:itemId/response", c.RecordResponse)
	inspections.POST("/complete", c.CompleteInspection)
	inspections.POST("/mark-na", c.MarkRemainingNA)
	inspections.POST("/mark-incomplete", c.MarkIncomplete)
	inspections.POST("/reopen", c.ReopenInspection)
}

func (c *Controller) health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error         string `json:"error"`   // machine readable kind
	Message       string `json:"message"` // human readable detail
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
	Marked        *int   `json:"marked,omitempty"` // NA responses written before a mark-na failure
}

// NewErrorResponse creates an API error response with a fresh correlation ID.
func NewErrorResponse(kind, message string, code int) *ErrorResponse {
	return &ErrorResponse{
		Error:         kind,
		Message:       message,
		Code:          code,
		CorrelationID: uuid.NewString()[:8],
	}
}

// HandleError writes err as an ErrorResponse with the status of its kind.
func (c *Controller) HandleError(ctx echo.Context, err error, operation string) error {
	resp := c.errorResponse(ctx, err, operation)
	return ctx.JSON(resp.Code, resp)
}

// errorResponse logs err and builds its response body.
func (c *Controller) errorResponse(ctx echo.Context, err error, operation string) *ErrorResponse {
	kind := inspection.KindOf(err)
	code := StatusForKind(kind)
	resp := NewErrorResponse(string(kind), err.Error(), code)

	fields := []logger.Field{
		logger.String("correlation_id", resp.CorrelationID),
		logger.String("operation", operation),
		logger.String("kind", string(kind)),
		logger.Int("code", code),
		logger.String("path", ctx.Request().URL.Path),
		logger.String("ip", ctx.RealIP()),
		logger.Error(err),
	}
	if code >= http.StatusInternalServerError {
		c.log.Error("request failed", fields...)
	} else {
		c.log.Debug("request rejected", fields...)
	}
	return resp
}

// StatusForKind maps engine error kinds to HTTP status codes.
func StatusForKind(kind inspection.Kind) int {
	switch kind {
	case inspection.KindNotFound:
		return http.StatusNotFound
	case inspection.KindInvalidState:
		return http.StatusBadRequest
	case inspection.KindAttachmentRejected, inspection.KindReasonRequired:
		return http.StatusUnprocessableEntity
	case inspection.KindConfirmationRequired, inspection.KindInvalidTransition:
		return http.StatusConflict
	case inspection.KindLocked:
		return http.StatusLocked
	case inspection.KindForbidden:
		return http.StatusForbidden
	case inspection.KindStoreFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(ctx echo.Context, message string) error {
	return ctx.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", message, http.StatusBadRequest))
}
