package provider

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// URI-bearing span attributes whose query part is scrubbed.
var uriAttributes = map[attribute.Key]bool{
	"url.full":    true,
	"url.query":   true,
	"http.target": true,
	"http.url":    true,
}

// ScrubProcessor is a SpanProcessor that redacts sensitive query parameters
// and sensitive attribute keys when a span starts. ReadOnlySpan is immutable
// after end, so attributes set later (the span sink) are scrubbed before they
// are recorded instead.
type ScrubProcessor struct {
	scrubber *HTTPScrubber
}

// NewScrubProcessor creates the span processor around scrubber.
func NewScrubProcessor(scrubber *HTTPScrubber) *ScrubProcessor {
	return &ScrubProcessor{scrubber: scrubber}
}

// OnStart scrubs the attributes the span was started with.
func (sp *ScrubProcessor) OnStart(_ context.Context, s sdktrace.ReadWriteSpan) {
	var scrubbed []attribute.KeyValue

	for _, attr := range s.Attributes() {
		if attr.Value.Type() != attribute.STRING {
			continue
		}
		val := attr.Value.AsString()

		switch {
		case sp.scrubber.IsSensitiveKey(string(attr.Key)):
			scrubbed = append(scrubbed, attr.Key.String(sp.scrubber.redactedValue()))
		case attr.Key == "url.query":
			if clean := sp.scrubber.ScrubQueryString(val); clean != val {
				scrubbed = append(scrubbed, attr.Key.String(clean))
			}
		case uriAttributes[attr.Key]:
			if clean := sp.scrubber.ScrubURI(val); clean != val {
				scrubbed = append(scrubbed, attr.Key.String(clean))
			}
		}
	}

	if len(scrubbed) > 0 {
		s.SetAttributes(scrubbed...)
	}
}

func (sp *ScrubProcessor) OnEnd(sdktrace.ReadOnlySpan)       {}
func (sp *ScrubProcessor) Shutdown(context.Context) error   { return nil }
func (sp *ScrubProcessor) ForceFlush(context.Context) error { return nil }
