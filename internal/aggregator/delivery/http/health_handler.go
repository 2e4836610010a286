package http

import (
	"context"
	"net/http"
	"time"

	"golang-market-aggregator/internal/aggregator/dto"
	"golang-market-aggregator/pkg/logger"

	"github.com/labstack/echo/v4"
)

// HealthHandler reports service liveness and store reachability.
type HealthHandler struct {
	snapshots SnapshotService
	logger    *logger.Logger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(snapshots SnapshotService, logger *logger.Logger) *HealthHandler {
	return &HealthHandler{snapshots: snapshots, logger: logger}
}

// Health godoc
// @Summary Health check
// @Tags health
// @Produce  json
// @Success 200 {object} dto.HealthResponse
// @Failure 503 {object} dto.HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	mode := string(h.snapshots.Status().Mode)
	if err := h.snapshots.Ping(ctx); err != nil {
		h.logger.WarnContext(ctx, "Health check failed", logger.ErrorField(err))
		return c.JSON(http.StatusServiceUnavailable, dto.HealthResponse{Status: "unavailable", Mode: mode})
	}
	return c.JSON(http.StatusOK, dto.HealthResponse{Status: "ok", Mode: mode})
}
