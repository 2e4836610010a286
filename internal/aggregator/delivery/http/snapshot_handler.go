package http

import (
	"context"
	"errors"
	"net/http"

	"golang-market-aggregator/internal/aggregator/dto"
	"golang-market-aggregator/internal/aggregator/service"
	"golang-market-aggregator/internal/entity"
	"golang-market-aggregator/pkg/logger"
	"golang-market-aggregator/pkg/utils"

	"github.com/labstack/echo/v4"
)

// SnapshotService is the part of the mode controller the HTTP layer drives.
type SnapshotService interface {
	GetSnapshot(ctx context.Context, req service.SnapshotRequest, mode service.Mode) (map[string]dto.SymbolSnapshot, error)
	Resolve(req service.SnapshotRequest) ([]string, []entity.Timeframe, error)
	SetLive(live bool) (service.Status, error)
	Status() service.Status
	Ping(ctx context.Context) error
}

// SnapshotHandler handles HTTP requests for symbol snapshots.
type SnapshotHandler struct {
	snapshots  SnapshotService
	dispatcher service.RefreshDispatcher
	logger     *logger.Logger
}

// NewSnapshotHandler creates a new SnapshotHandler.
func NewSnapshotHandler(snapshots SnapshotService, dispatcher service.RefreshDispatcher, logger *logger.Logger) *SnapshotHandler {
	return &SnapshotHandler{snapshots: snapshots, dispatcher: dispatcher, logger: logger}
}

// RegisterRoutes registers the snapshot routes to the Echo group.
func (h *SnapshotHandler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.GetSnapshots)
	g.GET("/live", h.GetLiveSnapshots)
	g.POST("/refresh", h.Refresh)
}

// GetSnapshots godoc
// @Summary Get symbol snapshots
// @Description Returns one snapshot per requested symbol. Stored mode reads the latest persisted rows; live mode runs an aggregation cycle first.
// @Tags snapshots
// @Produce  json
// @Param   symbols     query   string  false   "Comma separated symbols, defaults to the configured set"
// @Param   timeframes  query   string  false   "Comma separated prediction timeframes (1h,1d,1w,1m)"
// @Param   mode        query   string  false   "stored or live"    Enums(stored, live)
// @Success 200 {object} dto.SnapshotResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /snapshots [get]
func (h *SnapshotHandler) GetSnapshots(c echo.Context) error {
	var q dto.SnapshotQuery
	if details := bindAndValidate(c, &q); details != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid query", Details: details})
	}
	mode, err := service.ParseMode(q.Mode)
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	}
	return h.serve(c, snapshotRequest(c, q), mode)
}

// GetLiveSnapshots godoc
// @Summary Get live symbol snapshots
// @Description Runs an aggregation cycle for the requested symbols, persists it and returns the result.
// @Tags snapshots
// @Produce  json
// @Param   symbols     query   string  false   "Comma separated symbols, defaults to the configured set"
// @Param   timeframes  query   string  false   "Comma separated prediction timeframes (1h,1d,1w,1m)"
// @Success 200 {object} dto.SnapshotResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /snapshots/live [get]
func (h *SnapshotHandler) GetLiveSnapshots(c echo.Context) error {
	var q dto.SnapshotQuery
	if details := bindAndValidate(c, &q); details != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid query", Details: details})
	}
	return h.serve(c, snapshotRequest(c, q), service.ModeLive)
}

func (h *SnapshotHandler) serve(c echo.Context, req service.SnapshotRequest, mode service.Mode) error {
	ctx := c.Request().Context()
	snapshots, err := h.snapshots.GetSnapshot(ctx, req, mode)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, dto.SnapshotResponse{
		Mode:        string(mode),
		GeneratedAt: utils.TimeNowUTC(),
		Snapshots:   snapshots,
	})
}

// Refresh godoc
// @Summary Trigger a refresh
// @Description Accepts a refresh of the given symbols. The cycle runs asynchronously and persists its result.
// @Tags snapshots
// @Accept  json
// @Produce  json
// @Param   request body    dto.RefreshRequest  true    "Symbols and timeframes to refresh"
// @Success 202 {object} dto.RefreshResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /snapshots/refresh [post]
func (h *SnapshotHandler) Refresh(c echo.Context) error {
	var req dto.RefreshRequest
	if details := bindAndValidate(c, &req); details != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request payload", Details: details})
	}

	symbols, timeframes, err := h.snapshots.Resolve(service.ToSnapshotRequest(req))
	if err != nil {
		return h.errorResponse(c, err)
	}

	resolved := dto.RefreshRequest{Symbols: symbols, Timeframes: dto.TimeframeStrings(timeframes)}
	if err := h.dispatcher.Dispatch(c.Request().Context(), resolved); err != nil {
		h.logger.ErrorContext(c.Request().Context(), "Failed to dispatch refresh", logger.ErrorField(err))
		return c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Error: "Refresh could not be scheduled"})
	}

	return c.JSON(http.StatusAccepted, dto.RefreshResponse{
		Status:     "accepted",
		Symbols:    resolved.Symbols,
		Timeframes: resolved.Timeframes,
	})
}

func (h *SnapshotHandler) errorResponse(c echo.Context, err error) error {
	switch {
	case errors.Is(err, dto.ErrInvalidRequest):
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrStoreUnavailable):
		return c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Error: "Snapshot store unavailable"})
	default:
		h.logger.ErrorContext(c.Request().Context(), "Failed to serve snapshots", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get snapshots"})
	}
}

// snapshotRequest keeps an explicitly empty symbols parameter distinct from an
// absent one.
func snapshotRequest(c echo.Context, q dto.SnapshotQuery) service.SnapshotRequest {
	req := service.SnapshotRequest{
		Symbols:    dto.SplitList(q.Symbols),
		Timeframes: dto.SplitList(q.Timeframes),
	}
	if c.QueryParams().Has("symbols") && req.Symbols == nil {
		req.Symbols = []string{}
	}
	return req
}
