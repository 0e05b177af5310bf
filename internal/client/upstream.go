// Package client provides the HTTP client used to reach the fixed upstream origin.
package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"index-proxy-go/internal/config"
	"index-proxy-go/internal/metrics"
	"index-proxy-go/internal/model"
)

// UpstreamClient fetches index files from the upstream origin, one request per call.
type UpstreamClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewUpstreamClient creates an UpstreamClient sharing one pooled transport.
// m may be nil, in which case nothing is recorded.
func NewUpstreamClient(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *UpstreamClient {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        cfg.Upstream.IdleConnections,
		MaxIdleConnsPerHost: cfg.Upstream.IdleConnections,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		ForceAttemptHTTP2:   true,
		// Bodies pass through as the upstream encoded them.
		DisableCompression: true,
	}

	return &UpstreamClient{
		// Timeout 0 leaves the deadline to ctx.
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(cfg.Upstream.TimeoutSeconds) * time.Second,
		},
		logger:  logger.With("component", "upstream_client"),
		metrics: m,
	}
}

// DoStream sends method to url with header and body, and returns the upstream
// response once its headers arrive. The body is left unread and must be closed
// by the caller. ctx is the inbound request's context, so an abandoned client
// request abandons the fetch too.
func (c *UpstreamClient) DoStream(ctx context.Context, method, url string, header http.Header, body io.Reader) (*model.ProxyResponse, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	req.Header = header

	c.logger.Debug("fetching", "method", method, "url", url)

	start := time.Now()
	resp, err := c.httpClient.Do(req) //nolint:bodyclose // closed by the caller via ProxyResponse.Body
	c.observe(method, resp, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("upstream request: %w", err)
	}

	return &model.ProxyResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       resp.Body,
	}, nil
}

// observe records fetch latency, and the status when a response arrived.
func (c *UpstreamClient) observe(method string, resp *http.Response, elapsed time.Duration) {
	if c.metrics == nil {
		return
	}
	label := metrics.NormalizeMethod(method)
	c.metrics.UpstreamDuration.WithLabelValues(label).Observe(elapsed.Seconds())
	if resp != nil {
		c.metrics.UpstreamResponses.WithLabelValues(label, strconv.Itoa(resp.StatusCode)).Inc()
	}
}
