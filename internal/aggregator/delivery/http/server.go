package http

import (
	"golang-market-aggregator/internal/aggregator/service"
	"golang-market-aggregator/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swagger "github.com/swaggo/echo-swagger"
)

// ServerDeps is everything the router needs.
type ServerDeps struct {
	Snapshots  SnapshotService
	Dispatcher service.RefreshDispatcher
	Hub        *Hub
	// Gatherer is exposed on MetricsPath when set.
	Gatherer    prometheus.Gatherer
	MetricsPath string
	Logger      *logger.Logger
}

// NewRouter builds the Echo instance with every route under /api/v1.
func NewRouter(deps ServerDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(requestID())
	e.Use(requestLogger(deps.Logger))

	apiV1 := e.Group("/api/v1")

	snapshotHandler := NewSnapshotHandler(deps.Snapshots, deps.Dispatcher, deps.Logger)
	snapshotsGroup := apiV1.Group("/snapshots")
	snapshotHandler.RegisterRoutes(snapshotsGroup)
	if deps.Hub != nil {
		snapshotsGroup.GET("/stream", deps.Hub.Stream)
	}

	modeHandler := NewModeHandler(deps.Snapshots, deps.Logger)
	modeHandler.RegisterRoutes(apiV1.Group("/mode"))

	healthHandler := NewHealthHandler(deps.Snapshots, deps.Logger)
	apiV1.GET("/health", healthHandler.Health)

	if deps.Gatherer != nil {
		path := deps.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		e.GET(path, echo.WrapHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	e.GET("/swagger/*", swagger.WrapHandler)

	return e
}
