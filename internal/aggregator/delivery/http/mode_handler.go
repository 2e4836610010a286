package http

import (
	"errors"
	"net/http"
	"time"

	"golang-market-aggregator/internal/aggregator/dto"
	"golang-market-aggregator/internal/aggregator/service"
	"golang-market-aggregator/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ModeHandler handles HTTP requests for the serving mode.
type ModeHandler struct {
	snapshots SnapshotService
	logger    *logger.Logger
}

// NewModeHandler creates a new ModeHandler.
func NewModeHandler(snapshots SnapshotService, logger *logger.Logger) *ModeHandler {
	return &ModeHandler{snapshots: snapshots, logger: logger}
}

// RegisterRoutes registers the mode routes to the Echo group.
func (h *ModeHandler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.GetMode)
	g.PUT("", h.SetMode)
}

// GetMode godoc
// @Summary Get the serving mode
// @Tags mode
// @Produce  json
// @Success 200 {object} dto.ModeResponse
// @Router /mode [get]
func (h *ModeHandler) GetMode(c echo.Context) error {
	return c.JSON(http.StatusOK, modeResponse(h.snapshots.Status()))
}

// SetMode godoc
// @Summary Toggle live mode
// @Description Live mode refreshes the last requested symbols in the background on a fixed interval.
// @Tags mode
// @Accept  json
// @Produce  json
// @Param   request body    dto.ModeRequest true    "Desired mode"
// @Success 200 {object} dto.ModeResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /mode [put]
func (h *ModeHandler) SetMode(c echo.Context) error {
	var req dto.ModeRequest
	if details := bindAndValidate(c, &req); details != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request payload", Details: details})
	}

	status, err := h.snapshots.SetLive(*req.Live)
	if err != nil {
		if errors.Is(err, service.ErrControllerClosed) {
			return c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Error: "Service is shutting down"})
		}
		h.logger.ErrorContext(c.Request().Context(), "Failed to switch mode", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to switch mode"})
	}
	return c.JSON(http.StatusOK, modeResponse(status))
}

func modeResponse(st service.Status) dto.ModeResponse {
	resp := dto.ModeResponse{
		Mode:            string(st.Mode),
		Symbols:         st.Symbols,
		Timeframes:      dto.TimeframeStrings(st.Timeframes),
		RefreshInterval: st.RefreshInterval.String(),
	}
	if st.LastCycleAt != nil {
		at := st.LastCycleAt.Format(time.RFC3339)
		resp.LastCycleAt = &at
	}
	return resp
}
