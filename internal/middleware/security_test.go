package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestSecurityHeaders_AddsHeaders(t *testing.T) {
	e := echo.New()
	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}, SecurityHeaders())

	req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if v := rec.Header().Get("X-Content-Type-Options"); v != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want %q", v, "nosniff")
	}
	if v := rec.Header().Get("X-Frame-Options"); v != "DENY" {
		t.Errorf("X-Frame-Options = %q, want %q", v, "DENY")
	}
}

func TestHopByHop_StripsRequestHeaders(t *testing.T) {
	e := echo.New()
	e.Use(HopByHop())

	var got http.Header
	e.GET("/*", func(c echo.Context) error {
		got = c.Request().Header.Clone()
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/p/se/rd/serde", http.NoBody)
	req.Header.Set("Connection", "keep-alive, X-Hop")
	req.Header.Set("X-Hop", "1")
	req.Header.Set("Proxy-Authorization", "Basic abc")
	req.Header.Set("If-None-Match", `"abc"`)
	req.Header.Set("User-Agent", "cargo")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	for _, h := range []string{"Connection", "X-Hop", "Proxy-Authorization"} {
		if v := got.Get(h); v != "" {
			t.Errorf("%s should be stripped, got %q", h, v)
		}
	}
	for _, h := range []string{"If-None-Match", "User-Agent"} {
		if got.Get(h) == "" {
			t.Errorf("%s should be kept", h)
		}
	}
}

func TestHopByHop_LeavesResponseAlone(t *testing.T) {
	e := echo.New()
	e.Use(HopByHop())
	e.GET("/*", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/p/x", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if v := rec.Header().Get("X-Frame-Options"); v != "" {
		t.Errorf("X-Frame-Options = %q, want proxied responses untouched", v)
	}
}

func TestSplitTokens(t *testing.T) {
	got := splitTokens(" keep-alive ,, X-Hop,")
	if len(got) != 2 || got[0] != "keep-alive" || got[1] != "X-Hop" {
		t.Errorf("splitTokens() = %q, want [keep-alive X-Hop]", got)
	}
}
