// Package v1 provides the HTTP API of the companion service.
package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/streamreact/companion/internal/domain"
	"github.com/streamreact/companion/internal/metrics"
	"github.com/streamreact/companion/internal/policy"
	"github.com/streamreact/companion/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
	policy  *policy.Engine
	metrics *metrics.Metrics
	log     *zap.Logger
}

// NewHandler creates a new handler.
func NewHandler(svc *service.Service, policyEngine *policy.Engine, m *metrics.Metrics, log *zap.Logger) *Handler {
	return &Handler{
		service: svc,
		policy:  policyEngine,
		metrics: m,
		log:     log,
	}
}

// RegisterRoutes registers the API routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
	e.GET("/metrics", echo.WrapHandler(h.metrics.Handler()))

	api := e.Group("/api", h.Authenticate)

	api.GET("/triggers", h.ListTriggers)
	api.GET("/messages", h.ListMessages)
	api.GET("/donations", h.ListDonations)

	api.GET("/products", h.ListProducts)
	api.GET("/products/stats", h.GetPurchaseStats)
	api.POST("/products/:id/purchase", h.Purchase, h.Authorize(policy.ActionPurchase))

	api.GET("/balance", h.GetBalance)
	api.GET("/settings", h.ListSettings)
	api.GET("/settings/:key", h.GetSetting)
	api.PUT("/settings/:key", h.UpdateSetting, h.Authorize(policy.ActionSettingsUpdate))
	api.POST("/settings/reset-balance", h.ResetBalance, h.Authorize(policy.ActionBalanceReset))
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	live, authenticated := h.service.Sessions().Count()
	status, code := "healthy", http.StatusOK
	if err := h.service.Ping(c.Request().Context()); err != nil {
		h.log.Warn("health check: database unreachable", zap.Error(err))
		status, code = "degraded", http.StatusServiceUnavailable
	}
	return c.JSON(code, map[string]interface{}{
		"status":        status,
		"connections":   live,
		"authenticated": authenticated,
	})
}

// writeError maps the error taxonomy onto HTTP status codes.
func (h *Handler) writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInsufficientFunds):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrUnauthenticated), errors.Is(err, domain.ErrVerification):
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrForbidden):
		return c.JSON(http.StatusForbidden, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		h.log.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Server error"})
	}
}
