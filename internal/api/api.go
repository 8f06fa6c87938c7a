// api.go: echo controller exposing the dispatch engine over HTTP.
package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/vantazh/vantazh-go/internal/conf"
	"github.com/vantazh/vantazh-go/internal/datastore"
	"github.com/vantazh/vantazh-go/internal/errors"
	"github.com/vantazh/vantazh-go/internal/logging"
	"github.com/vantazh/vantazh-go/internal/notify"
	"github.com/vantazh/vantazh-go/internal/observability"
)

// NotificationStore is the slice of the datastore the API reads.
type NotificationStore interface {
	GetNotifications(ctx context.Context, recipientID string, limit int) ([]datastore.NotificationRecord, error)
	UnreadNotificationCount(ctx context.Context, recipientID string) (int64, error)
	MarkNotificationRead(ctx context.Context, id string) error
}

// OrderBroadcaster triggers the fan-out for a newly created order.
type OrderBroadcaster interface {
	BroadcastNewOrder(ctx context.Context, orderID uint) (notify.DispatchOutcome, error)
}

// ProximityHandler consumes live distance samples.
type ProximityHandler interface {
	OnDistanceSample(ctx context.Context, dealID uint, clientID, carrierName string, distanceKm float64) notify.Tier
}

// Controller manages the API routes and handlers.
type Controller struct {
	Echo        *echo.Echo
	Group       *echo.Group
	Settings    *conf.Settings
	store       NotificationStore
	broadcaster OrderBroadcaster
	proximity   ProximityHandler
	metrics     *observability.Metrics

	// Version is the build version reported by the health endpoint.
	Version string

	apiLogger      *slog.Logger
	apiLoggerClose func() error
}

// New creates the API controller and registers all routes.
func New(settings *conf.Settings, store NotificationStore, broadcaster OrderBroadcaster, proximity ProximityHandler, metrics *observability.Metrics) *Controller {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	c := &Controller{
		Echo:        e,
		Settings:    settings,
		store:       store,
		broadcaster: broadcaster,
		proximity:   proximity,
		metrics:     metrics,
	}

	apiLogger, closer, err := logging.NewFileLogger("logs/api.log", "api", slog.LevelInfo)
	if err != nil {
		apiLogger = logging.Structured().With("service", "api")
		closer = func() error { return nil }
	}
	c.apiLogger = apiLogger
	c.apiLoggerClose = closer

	c.Group = e.Group("/api/v1")
	c.initRoutes()

	return c
}

// initRoutes registers all API endpoints.
func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.HealthCheck)

	c.Group.POST("/orders/:id/broadcast", c.BroadcastOrder)
	c.Group.POST("/proximity", c.ProximitySample)

	c.Group.GET("/notifications", c.ListNotifications)
	c.Group.POST("/notifications/:id/read", c.MarkNotificationRead)

	if c.metrics != nil {
		c.Echo.GET("/metrics", echo.WrapHandler(c.metrics.Handler()))
	}
}

// Start runs the HTTP server on the configured port. Blocks until the
// server stops.
func (c *Controller) Start() error {
	return c.Echo.Start(":" + c.Settings.WebServer.Port)
}

// Shutdown stops the HTTP server and closes the API log file.
func (c *Controller) Shutdown(ctx context.Context) error {
	err := c.Echo.Shutdown(ctx)
	if c.apiLoggerClose != nil {
		_ = c.apiLoggerClose()
	}
	return err
}

// HealthCheck handles GET /api/v1/health.
func (c *Controller) HealthCheck(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]any{
		"status":    "healthy",
		"version":   c.Version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// ErrorResponse is the standard API error document.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// NewErrorResponse builds an error document with a fresh correlation ID.
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	resp := &ErrorResponse{
		Message:       message,
		Code:          code,
		CorrelationID: generateCorrelationID(),
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}

// generateCorrelationID creates a short random hex ID for error tracking.
func generateCorrelationID() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "00000000"
	}
	return hex.EncodeToString(b)
}

// HandleError logs an error and writes the standard error document.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	resp := NewErrorResponse(err, message, code)
	c.apiLogger.Error("API error",
		"correlation_id", resp.CorrelationID,
		"message", message,
		"error", err,
		"code", code,
		"path", ctx.Request().URL.Path,
		"method", ctx.Request().Method,
		"ip", ctx.RealIP())
	return ctx.JSON(code, resp)
}

// statusForError maps an engine error to an HTTP status code.
func statusForError(err error) int {
	switch {
	case errors.IsNotFound(err):
		return http.StatusNotFound
	case errors.HasCategory(err, errors.CategoryValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
