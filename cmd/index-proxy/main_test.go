package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"index-proxy-go/internal/config"
	"index-proxy-go/internal/metrics"
)

func TestNewEcho_BodyLimit(t *testing.T) {
	cfg := &config.Config{Server: config.ServerConfig{BodyMaxBytes: 16}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := newEcho(cfg, logger, metrics.New())

	var received []string
	e.Any("/*", func(c echo.Context) error {
		b, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return err
		}
		received = append(received, string(b))
		return c.NoContent(http.StatusOK)
	})

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"within limit", "0123456789", http.StatusOK},
		{"at limit", strings.Repeat("x", 16), http.StatusOK},
		{"over limit", strings.Repeat("x", 17), http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/registry-proxy/se/rd/serde", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}

	if len(received) != 2 {
		t.Errorf("handler saw %d bodies, want 2 (the over-limit body must not be forwarded)", len(received))
	}
}

func TestNewEcho_RequestIDOnResponse(t *testing.T) {
	cfg := &config.Config{Server: config.ServerConfig{BodyMaxBytes: 1024}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := newEcho(cfg, logger, metrics.New())
	e.GET("/*", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/registry-proxy/config.json", http.NoBody))

	if rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Error("expected X-Request-Id on the response")
	}
}
