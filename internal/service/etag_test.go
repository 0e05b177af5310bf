package service

import (
	"testing"

	"index-proxy-go/internal/config"
)

func TestSubstringMatcher(t *testing.T) {
	tests := []struct {
		name        string
		ifNoneMatch string
		etag        string
		want        bool
	}{
		{"exact", `"abc123"`, `"abc123"`, true},
		{"in list", `"xyz", "abc123"`, `"abc123"`, true},
		{"weak etag", `"abc123"`, `W/"abc123"`, true},
		{"weak if-none-match kept", `W/"abc123"`, `"abc123"`, true},
		{"different", `"xyz"`, `"abc123"`, false},
		{"unquoted substring of other token", `"deadbeef"`, `beef`, true},
		{"bare weak prefix", `"anything"`, `W/`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (SubstringMatcher{}).Match(tt.ifNoneMatch, tt.etag); got != tt.want {
				t.Errorf("Match(%q, %q) = %v, want %v", tt.ifNoneMatch, tt.etag, got, tt.want)
			}
		})
	}
}

func TestListMatcher(t *testing.T) {
	tests := []struct {
		name        string
		ifNoneMatch string
		etag        string
		want        bool
	}{
		{"exact", `"abc123"`, `"abc123"`, true},
		{"in list", `"xyz", "abc123"`, `"abc123"`, true},
		{"in list no spaces", `"xyz","abc123"`, `"abc123"`, true},
		{"weak etag", `"abc123"`, `W/"abc123"`, true},
		{"weak candidate", `W/"abc123"`, `"abc123"`, true},
		{"wildcard", `*`, `"abc123"`, true},
		{"different", `"xyz"`, `"abc123"`, false},
		{"substring is not a match", `"deadbeef"`, `beef`, false},
		{"empty entries ignored", `, ,`, `"abc123"`, false},
		{"bare weak prefix", `"anything"`, `W/`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (ListMatcher{}).Match(tt.ifNoneMatch, tt.etag); got != tt.want {
				t.Errorf("Match(%q, %q) = %v, want %v", tt.ifNoneMatch, tt.etag, got, tt.want)
			}
		})
	}
}

func TestNewMatcher(t *testing.T) {
	tests := []struct {
		match string
		want  Matcher
	}{
		{config.MatchSubstring, SubstringMatcher{}},
		{config.MatchList, ListMatcher{}},
		{"", SubstringMatcher{}},
	}

	for _, tt := range tests {
		t.Run(tt.match, func(t *testing.T) {
			cfg := &config.Config{Conditional: config.ConditionalConfig{Match: tt.match}}
			if got := NewMatcher(cfg); got != tt.want {
				t.Errorf("NewMatcher(%q) = %T, want %T", tt.match, got, tt.want)
			}
		})
	}
}
