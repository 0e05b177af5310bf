package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"index-proxy-go/internal/config"
	"index-proxy-go/internal/metrics"
	"index-proxy-go/internal/middleware"
)

// RegisterRoutes wires all route handlers onto the Echo instance. The proxy
// catch-all takes every method; the proxy's own endpoints take precedence over it.
func RegisterRoutes(e *echo.Echo, cfg *config.Config, m *metrics.Metrics, proxy *ProxyHandler, health *HealthHandler) {
	secure := middleware.SecurityHeaders()

	e.GET("/healthz", health.Healthz, secure)
	e.GET("/proxy/status", health.Status, secure)

	if cfg.Metrics.Enabled {
		e.GET(cfg.Metrics.Path, echo.WrapHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})), secure)
	}

	// Any covers echo's known methods. RouteNotFound catches extension
	// methods such as PURGE, which would otherwise get a local 405.
	e.Any("/*", proxy.Handle)
	e.RouteNotFound("/*", proxy.Handle)
}

// LocalRoutes lists the paths served by the proxy itself, for metric labels.
func LocalRoutes(cfg *config.Config) []string {
	routes := []string{"/healthz", "/proxy/status"}
	if cfg.Metrics.Enabled {
		routes = append(routes, cfg.Metrics.Path)
	}
	return routes
}
