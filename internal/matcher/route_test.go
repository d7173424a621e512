package matcher_test

import (
	"testing"

	"github.com/RodolfoBonis/go-capture-agent/internal/matcher"
)

func TestShouldExclude(t *testing.T) {
	m := matcher.NewRouteMatcher(matcher.RouteExclusionConfig{
		ExactPaths:  []string{"/health", "/ready"},
		PrefixPaths: []string{"/debug/", ""},
		Patterns:    []string{"/api/v*/health", "/static/*.js"},
	})

	tests := []struct {
		path string
		want bool
	}{
		{"/health", true},
		{"/ready", true},
		{"/healthz", false},
		{"/health/", false},
		{"/debug/pprof", true},
		{"/debugx", false},
		{"/api/v1/health", true},
		{"/api/v2/health", true},
		{"/api/v1/orders", false},
		{"/static/app.js", true},
		{"/static/css/app.js", false},
		{"/orders", false},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			if got := m.ShouldExclude(tc.path); got != tc.want {
				t.Errorf("ShouldExclude(%q) = %v, want %v", tc.path, got, tc.want)
			}
		})
	}
}

func TestShouldSkip_Methods(t *testing.T) {
	m := matcher.NewRouteMatcher(matcher.RouteExclusionConfig{
		ExactPaths: []string{"/health"},
		Methods:    []string{"options", " HEAD "},
	})

	tests := []struct {
		method string
		path   string
		want   bool
	}{
		{"OPTIONS", "/orders", true},
		{"options", "/orders", true},
		{"HEAD", "/orders", true},
		{"GET", "/orders", false},
		{"POST", "/health", true},
	}

	for _, tc := range tests {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			if got := m.ShouldSkip(tc.method, tc.path); got != tc.want {
				t.Errorf("ShouldSkip(%q, %q) = %v, want %v", tc.method, tc.path, got, tc.want)
			}
		})
	}
}

func TestNilMatcher(t *testing.T) {
	var m *matcher.RouteMatcher
	if m.ShouldExclude("/health") || m.ShouldSkip("OPTIONS", "/") {
		t.Error("nil matcher should exclude nothing")
	}
	if !m.IsEmpty() {
		t.Error("nil matcher should be empty")
	}
}

func TestIsEmpty(t *testing.T) {
	if !matcher.NewRouteMatcher(matcher.RouteExclusionConfig{}).IsEmpty() {
		t.Error("matcher without rules should be empty")
	}
	if matcher.NewRouteMatcher(matcher.RouteExclusionConfig{Methods: []string{"OPTIONS"}}).IsEmpty() {
		t.Error("method rule should make the matcher non-empty")
	}
}
