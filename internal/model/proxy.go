// Package model defines the per-request values passed between the adapter and the transform.
package model

import (
	"context"
	"io"
	"net/http"
)

// ProxyRequest is an inbound request as seen by the transform.
// Path is the escaped path; RawQuery excludes the leading '?'.
type ProxyRequest struct {
	Ctx      context.Context
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     io.ReadCloser
}

// ProxyResponse is either the upstream response or a response synthesized from it.
type ProxyResponse struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}
