package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"

	"index-proxy-go/internal/client"
	"index-proxy-go/internal/config"
	"index-proxy-go/internal/metrics"
	"index-proxy-go/internal/service"
)

func TestRegisterRoutes_Wiring(t *testing.T) {
	var (
		mu      sync.Mutex
		proxied []string
	)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		proxied = append(proxied, r.Method+" "+r.URL.Path)
		mu.Unlock()
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer upstream.Close()

	cfg := &config.Config{
		Upstream: config.UpstreamConfig{
			TimeoutSeconds:  10,
			IdleConnections: 10,
		},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()
	uc := client.NewUpstreamClient(cfg, logger, m)
	svc := service.NewProxyServiceForTest(uc, service.SubstringMatcher{}, m, logger, upstream.URL)

	proxy := NewProxyHandler(svc, logger)
	health := NewHealthHandler(cfg, "test", svc)

	e := echo.New()
	RegisterRoutes(e, cfg, m, proxy, health)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantBody   string
	}{
		{"GET /healthz", http.MethodGet, "/healthz", http.StatusOK, `"status":"ok"`},
		{"GET /proxy/status", http.MethodGet, "/proxy/status", http.StatusOK, `"upstream_url"`},
		{"GET /metrics", http.MethodGet, "/metrics", http.StatusOK, "index_proxy_"},
		{"GET crate file", http.MethodGet, "/registry-proxy/se/rd/serde", http.StatusOK, `{"ok":true}`},
		{"POST crate file", http.MethodPost, "/registry-proxy/se/rd/serde", http.StatusOK, `{"ok":true}`},
		{"GET root", http.MethodGet, "/", http.StatusOK, `{"ok":true}`},
		{"GET config.json", http.MethodGet, "/registry-proxy/config.json", http.StatusOK, `{"ok":true}`},
		{"PURGE crate file", "PURGE", "/registry-proxy/se/rd/serde", http.StatusOK, `{"ok":true}`},
		{"LOCK crate file", "LOCK", "/registry-proxy/3/s/syn", http.StatusOK, `{"ok":true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body = %q, want it to contain %q", rec.Body.String(), tt.wantBody)
			}
		})
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{
		"GET /se/rd/serde",
		"POST /se/rd/serde",
		"GET /",
		"GET /config.json",
		"PURGE /se/rd/serde",
		"LOCK /3/s/syn",
	}
	if strings.Join(proxied, ",") != strings.Join(want, ",") {
		t.Errorf("proxied paths = %v, want %v", proxied, want)
	}
}

func TestRegisterRoutes_MetricsDisabled(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer upstream.Close()

	cfg := &config.Config{Metrics: config.MetricsConfig{Path: "/metrics"}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()
	uc := client.NewUpstreamClient(cfg, logger, nil)
	svc := service.NewProxyServiceForTest(uc, nil, nil, logger, upstream.URL)

	e := echo.New()
	RegisterRoutes(e, cfg, m, NewProxyHandler(svc, logger), NewHealthHandler(cfg, "test", svc))

	req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	// Without the metrics route, /metrics is just another proxied path.
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d from upstream", rec.Code, http.StatusNotFound)
	}
}

func TestLocalRoutes(t *testing.T) {
	cfg := &config.Config{Metrics: config.MetricsConfig{Enabled: true, Path: "/custom"}}
	got := LocalRoutes(cfg)
	want := []string{"/healthz", "/proxy/status", "/custom"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("LocalRoutes() = %v, want %v", got, want)
	}

	cfg.Metrics.Enabled = false
	if got := LocalRoutes(cfg); len(got) != 2 {
		t.Errorf("LocalRoutes() = %v, want 2 routes without metrics", got)
	}
}
