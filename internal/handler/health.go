package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"index-proxy-go/internal/config"
)

// Version is a string type for dependency injection of the build version.
type Version string

// HealthHandler serves health and status endpoints.
type HealthHandler struct {
	cfg      *config.Config
	version  Version
	upstream string
}

// NewHealthHandler creates a HealthHandler reporting upstream as the forwarding target.
func NewHealthHandler(cfg *config.Config, v Version, upstream Upstream) *HealthHandler {
	return &HealthHandler{cfg: cfg, version: v, upstream: upstream.BaseURL()}
}

// Upstream reports where proxied requests go.
type Upstream interface {
	BaseURL() string
}

// Healthz returns a simple OK response for liveness probes.
func (h *HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Status returns proxy status information.
func (h *HealthHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":       "ok",
		"version":      string(h.version),
		"upstream_url": h.upstream,
		"etag_match":   h.cfg.Conditional.Match,
	})
}
