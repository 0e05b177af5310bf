// Package index reads the crates.io registry index through the proxy.
package index

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// maxLineBytes bounds a single index line; crates with many versions and
// features produce long JSON records.
const maxLineBytes = 16 << 20

// Crate is one published version as recorded in the index.
type Crate struct {
	Name     string              `json:"name"`
	Vers     string              `json:"vers"`
	Deps     []Dep               `json:"deps"`
	Cksum    string              `json:"cksum"`
	Features map[string][]string `json:"features"`
	Yanked   bool                `json:"yanked"`
}

// Dep is a dependency declared by a crate version.
type Dep struct {
	Name            string   `json:"name"`
	Package         string   `json:"package,omitempty"`
	Req             string   `json:"req"`
	Features        []string `json:"features"`
	Optional        bool     `json:"optional"`
	DefaultFeatures bool     `json:"default_features"`
	Target          string   `json:"target,omitempty"`
	Kind            string   `json:"kind,omitempty"`
}

// PackageName returns the crate the dependency resolves to, which differs from
// Name when the dependency was renamed.
func (d Dep) PackageName() string {
	if d.Package != "" {
		return d.Package
	}
	return d.Name
}

// CratePath returns the index file path for a crate name.
func CratePath(name string) (string, error) {
	if name == "" {
		return "", errors.New("empty crate name")
	}
	name = strings.ToLower(name)

	switch len(name) {
	case 1:
		return "1/" + name, nil
	case 2:
		return "2/" + name, nil
	case 3:
		return "3/" + name[:1] + "/" + name, nil
	default:
		return name[:2] + "/" + name[2:4] + "/" + name, nil
	}
}

// Client fetches index files from a proxy base URL.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a Client for baseURL, e.g. https://lib.rs/registry-proxy/.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(baseURL, "/") + "/",
		logger:     logger.With("component", "index_client"),
	}
}

// Fetch returns every version of the named crate listed in the index.
func (c *Client) Fetch(ctx context.Context, name string) ([]Crate, error) {
	p, err := CratePath(name)
	if err != nil {
		return nil, err
	}
	url := c.baseURL + p

	c.logger.Debug("fetching index file", "crate", name, "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", name, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s from %s: unexpected status %s", name, url, resp.Status)
	}

	var crates []Crate
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		line := sc.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		var cr Crate
		if err := json.Unmarshal(line, &cr); err != nil {
			return nil, fmt.Errorf("parse %s from %s: %w; line: %s", name, url, err, line)
		}
		crates = append(crates, cr)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s from %s: %w", name, url, err)
	}

	return crates, nil
}
