package provider

import (
	"mime"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/RodolfoBonis/go-capture-agent/config"
)

const (
	defaultRedacted = "[REDACTED]"
	truncatedSuffix = "...[truncated]"
)

// HTTPScrubber redacts and bounds captured HTTP data before it leaves the
// process. Sensitive headers are always redacted; key and pattern based
// redaction of bodies and query strings only runs with scrubbing enabled.
type HTTPScrubber struct {
	captureCfg config.CaptureConfig
	scrubCfg   config.ScrubConfig

	sensitiveHeaders map[string]struct{}
	sensitiveKeys    map[string]struct{}
	allowedTypes     map[string]struct{}
	patterns         []*regexp.Regexp
	jsonKeys         *regexp.Regexp
}

// NewHTTPScrubber compiles the scrub rules once.
func NewHTTPScrubber(captureCfg config.CaptureConfig, scrubCfg config.ScrubConfig) *HTTPScrubber {
	s := &HTTPScrubber{
		captureCfg:       captureCfg,
		scrubCfg:         scrubCfg,
		sensitiveHeaders: lowerSet(captureCfg.SensitiveHeaders),
		sensitiveKeys:    lowerSet(scrubCfg.SensitiveKeys),
		allowedTypes:     lowerSet(captureCfg.BodyAllowedContentTypes),
	}

	if !scrubCfg.Enabled {
		return s
	}

	for _, pattern := range scrubCfg.SensitivePatterns {
		if re, err := regexp.Compile(pattern); err == nil {
			s.patterns = append(s.patterns, re)
		}
	}

	if len(scrubCfg.SensitiveKeys) > 0 {
		quoted := make([]string, 0, len(scrubCfg.SensitiveKeys))
		for _, key := range scrubCfg.SensitiveKeys {
			quoted = append(quoted, regexp.QuoteMeta(key))
		}
		// "key": "value" pairs in JSON text; non-string values are left alone.
		s.jsonKeys = regexp.MustCompile(`(?i)("(?:` + strings.Join(quoted, "|") + `)"\s*:\s*)"(?:[^"\\]|\\.)*"`)
	}

	return s
}

func lowerSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}

// ScrubHeaders filters headers through the allow-list, when one is given, and
// redacts sensitive ones. Names are reported lower-cased.
func (s *HTTPScrubber) ScrubHeaders(headers map[string]string, allowed []string) map[string]string {
	result := make(map[string]string, len(headers))
	allowedSet := lowerSet(allowed)

	for name, value := range headers {
		lower := strings.ToLower(name)
		if len(allowedSet) > 0 {
			if _, ok := allowedSet[lower]; !ok {
				continue
			}
		}
		if _, sensitive := s.sensitiveHeaders[lower]; sensitive {
			value = s.redactedValue()
		}
		result[lower] = value
	}

	return result
}

// ScrubQueryString redacts the values of sensitive keys in a URL-encoded
// string. The synthesized form body (a=1&b=[x, y]) has the same shape.
func (s *HTTPScrubber) ScrubQueryString(raw string) string {
	if raw == "" || !s.scrubCfg.Enabled {
		return raw
	}

	parts := strings.Split(raw, "&")
	for i, part := range parts {
		key, _, ok := strings.Cut(part, "=")
		if ok && s.IsSensitiveKey(key) {
			parts[i] = key + "=" + s.redactedValue()
		}
	}
	return strings.Join(parts, "&")
}

// ScrubURI scrubs the query part of a request URI.
func (s *HTTPScrubber) ScrubURI(uri string) string {
	path, query, ok := strings.Cut(uri, "?")
	if !ok {
		return uri
	}
	return path + "?" + s.ScrubQueryString(query)
}

// ScrubBody redacts sensitive values in body text and then bounds it to
// maxSize bytes without splitting a UTF-8 sequence. It reports whether the
// body was truncated.
func (s *HTTPScrubber) ScrubBody(body, contentType string, maxSize int) (string, bool) {
	if body == "" {
		return "", false
	}

	if s.scrubCfg.Enabled {
		switch mediaType(contentType) {
		case "application/x-www-form-urlencoded", "multipart/form-data":
			body = s.ScrubQueryString(body)
		default:
			if s.jsonKeys != nil {
				repl := strings.ReplaceAll(s.redactedValue(), "$", "$$")
				body = s.jsonKeys.ReplaceAllString(body, `${1}"`+repl+`"`)
			}
		}
		for _, re := range s.patterns {
			body = re.ReplaceAllString(body, s.redactedValue())
		}
	}

	if maxSize <= 0 || len(body) <= maxSize {
		return body, false
	}
	cut := maxSize
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return body[:cut] + truncatedSuffix, true
}

// IsAllowedContentType reports whether bodies of contentType are captured.
// An empty allow-list admits everything.
func (s *HTTPScrubber) IsAllowedContentType(contentType string) bool {
	if len(s.allowedTypes) == 0 {
		return true
	}
	_, ok := s.allowedTypes[mediaType(contentType)]
	return ok
}

// IsSensitiveKey reports whether a parameter or attribute key names a secret.
func (s *HTTPScrubber) IsSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	if _, ok := s.sensitiveKeys[lower]; ok {
		return true
	}
	for _, re := range s.patterns {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

func (s *HTTPScrubber) redactedValue() string {
	if s.scrubCfg.RedactedValue != "" {
		return s.scrubCfg.RedactedValue
	}
	return defaultRedacted
}

func mediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt, _, _ = strings.Cut(contentType, ";")
		return strings.ToLower(strings.TrimSpace(mt))
	}
	return mt
}
