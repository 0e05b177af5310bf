// Package service implements the request transform: path rewrite, single
// upstream fetch, and the conditional 304 collapse.
package service

import (
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"index-proxy-go/internal/client"
	"index-proxy-go/internal/metrics"
	"index-proxy-go/internal/model"
)

const (
	// UpstreamBaseURL is the fixed origin every request is forwarded to.
	UpstreamBaseURL = "https://raw.githubusercontent.com/rust-lang/crates.io-index/master"

	// proxyIdentifier is announced in the forwarded User-Agent.
	proxyIdentifier = "lib.rs"
)

// firstSegment matches the leading path segment including both slashes.
var firstSegment = regexp.MustCompile(`^/[^/]+/`)

// ProxyService maps one inbound request to one upstream fetch.
// It holds no per-request state and is safe for concurrent use.
type ProxyService struct {
	client  *client.UpstreamClient
	matcher Matcher
	metrics *metrics.Metrics
	logger  *slog.Logger
	baseURL string
}

// NewProxyService creates a ProxyService forwarding to UpstreamBaseURL.
// The metrics parameter is optional.
func NewProxyService(c *client.UpstreamClient, matcher Matcher, m *metrics.Metrics, logger *slog.Logger) *ProxyService {
	return newProxyService(c, matcher, m, logger, UpstreamBaseURL)
}

// NewProxyServiceForTest creates a ProxyService that forwards to baseURL instead
// of the fixed upstream. This is intended only for tests that use httptest servers.
func NewProxyServiceForTest(c *client.UpstreamClient, matcher Matcher, m *metrics.Metrics, logger *slog.Logger, baseURL string) *ProxyService {
	return newProxyService(c, matcher, m, logger, strings.TrimSuffix(baseURL, "/"))
}

func newProxyService(c *client.UpstreamClient, matcher Matcher, m *metrics.Metrics, logger *slog.Logger, baseURL string) *ProxyService {
	if matcher == nil {
		matcher = SubstringMatcher{}
	}
	return &ProxyService{
		client:  c,
		matcher: matcher,
		metrics: m,
		logger:  logger.With("component", "proxy_service"),
		baseURL: baseURL,
	}
}

// BaseURL returns the upstream origin and base path requests are forwarded to.
func (s *ProxyService) BaseURL() string {
	return s.baseURL
}

// Handle forwards pr upstream and returns the response for the client.
// The caller is responsible for closing the response body.
//
// When the client's If-None-Match still matches the upstream ETag the upstream
// body is discarded and an empty 304 carrying a copy of the upstream headers is
// returned instead. Upstream failures are returned as-is; no response is
// synthesized for them.
func (s *ProxyService) Handle(pr *model.ProxyRequest) (*model.ProxyResponse, error) {
	target := s.upstreamURL(pr.Path, pr.RawQuery)
	header := annotateUserAgent(pr.Header)

	s.logger.Debug("forwarding request",
		"method", pr.Method,
		"path", pr.Path,
		"upstream", target,
	)

	resp, err := s.client.DoStream(pr.Ctx, pr.Method, target, header, pr.Body)
	if err != nil {
		return nil, err
	}

	if !s.notModified(pr.Header, resp.Header) {
		return resp, nil
	}

	_ = resp.Body.Close()
	if s.metrics != nil {
		s.metrics.NotModifiedTotal.Inc()
	}
	s.logger.Debug("not modified", "path", pr.Path, "upstream_status", resp.StatusCode)

	return &model.ProxyResponse{
		StatusCode: http.StatusNotModified,
		Header:     resp.Header.Clone(),
		Body:       http.NoBody,
	}, nil
}

// upstreamURL joins the base URL, the rewritten path and the original query.
func (s *ProxyService) upstreamURL(path, rawQuery string) string {
	var b strings.Builder
	b.WriteString(s.baseURL)
	b.WriteString(rewritePath(path))
	if rawQuery != "" {
		b.WriteByte('?')
		b.WriteString(rawQuery)
	}
	return b.String()
}

// rewritePath drops the first path segment, keeping the slash that follows it.
// Paths with no second slash ("/", "/crate") are left as they are.
func rewritePath(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return firstSegment.ReplaceAllLiteralString(path, "/")
}

// annotateUserAgent returns a copy of src with the proxy identifier appended
// to the User-Agent. A missing User-Agent is rendered as "undefined".
func annotateUserAgent(src http.Header) http.Header {
	dst := src.Clone()
	if dst == nil {
		dst = make(http.Header)
	}

	ua := "undefined"
	if vals := src.Values("User-Agent"); len(vals) > 0 {
		ua = strings.Join(vals, ", ")
	}
	dst.Set("User-Agent", ua+" ("+proxyIdentifier+" proxied)")
	return dst
}

// notModified reports whether the client's cached copy is still current.
func (s *ProxyService) notModified(reqHeader, respHeader http.Header) bool {
	ifNoneMatch := strings.Join(reqHeader.Values("If-None-Match"), ", ")
	etag := strings.Join(respHeader.Values("ETag"), ", ")
	if ifNoneMatch == "" || etag == "" {
		return false
	}
	return s.matcher.Match(ifNoneMatch, etag)
}
