package service

import (
	"strings"

	"index-proxy-go/internal/config"
)

// Matcher decides whether an upstream ETag satisfies a client's If-None-Match.
// Both arguments are non-empty.
type Matcher interface {
	Match(ifNoneMatch, etag string) bool
}

// NewMatcher returns the matcher selected by conditional.match.
func NewMatcher(cfg *config.Config) Matcher {
	if cfg.Conditional.Match == config.MatchList {
		return ListMatcher{}
	}
	return SubstringMatcher{}
}

// SubstringMatcher matches when the ETag, minus any weak prefix, occurs anywhere
// in If-None-Match. The If-None-Match value is not parsed.
type SubstringMatcher struct{}

// Match implements Matcher.
func (SubstringMatcher) Match(ifNoneMatch, etag string) bool {
	return strings.Contains(ifNoneMatch, stripWeak(etag))
}

// ListMatcher parses If-None-Match as a comma-separated list of entity tags and
// applies weak comparison (RFC 9110 §8.8.3.2) to each entry. "*" matches any ETag.
type ListMatcher struct{}

// Match implements Matcher.
func (ListMatcher) Match(ifNoneMatch, etag string) bool {
	tag := stripWeak(strings.TrimSpace(etag))
	for _, candidate := range strings.Split(ifNoneMatch, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" {
			return true
		}
		if candidate != "" && stripWeak(candidate) == tag {
			return true
		}
	}
	return false
}

func stripWeak(etag string) string {
	return strings.TrimPrefix(etag, "W/")
}
