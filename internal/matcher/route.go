// Package matcher decides which requests the capture middleware skips.
package matcher

import (
	"path"
	"strings"
)

// RouteMatcher reports requests that must not be captured. Rules are
// compiled once; matching does not allocate.
type RouteMatcher struct {
	exactPaths  map[string]struct{}
	prefixPaths []string
	patterns    []string
	methods     map[string]struct{}
}

// RouteExclusionConfig configures which requests are skipped.
type RouteExclusionConfig struct {
	ExactPaths  []string // map lookup: ["/health", "/metrics"]
	PrefixPaths []string // strings.HasPrefix: ["/debug/", "/internal/"]
	Patterns    []string // path.Match glob: ["/api/v*/health"]
	Methods     []string // case-insensitive: ["OPTIONS"]
}

// NewRouteMatcher compiles cfg. Empty entries are ignored.
func NewRouteMatcher(cfg RouteExclusionConfig) *RouteMatcher {
	m := &RouteMatcher{
		exactPaths:  make(map[string]struct{}, len(cfg.ExactPaths)),
		prefixPaths: nonEmpty(cfg.PrefixPaths),
		patterns:    nonEmpty(cfg.Patterns),
		methods:     make(map[string]struct{}, len(cfg.Methods)),
	}
	for _, p := range cfg.ExactPaths {
		m.exactPaths[p] = struct{}{}
	}
	for _, method := range nonEmpty(cfg.Methods) {
		m.methods[strings.ToUpper(method)] = struct{}{}
	}
	return m
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// ShouldSkip reports whether a request with the given method and path is
// excluded from capture.
func (m *RouteMatcher) ShouldSkip(method, requestPath string) bool {
	if m == nil {
		return false
	}
	if _, ok := m.methods[strings.ToUpper(method)]; ok {
		return true
	}
	return m.ShouldExclude(requestPath)
}

// ShouldExclude reports whether requestPath is excluded regardless of method.
func (m *RouteMatcher) ShouldExclude(requestPath string) bool {
	if m == nil {
		return false
	}

	if _, ok := m.exactPaths[requestPath]; ok {
		return true
	}

	for _, prefix := range m.prefixPaths {
		if strings.HasPrefix(requestPath, prefix) {
			return true
		}
	}

	for _, pattern := range m.patterns {
		if matched, _ := path.Match(pattern, requestPath); matched {
			return true
		}
	}

	return false
}

// IsEmpty returns true if no exclusions are configured.
func (m *RouteMatcher) IsEmpty() bool {
	if m == nil {
		return true
	}
	return len(m.exactPaths) == 0 && len(m.prefixPaths) == 0 &&
		len(m.patterns) == 0 && len(m.methods) == 0
}
