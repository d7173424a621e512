package provider

import (
	"fmt"
	"time"

	"github.com/RodolfoBonis/go-capture-agent/config"
)

type protocol int

const (
	protocolGRPC protocol = iota
	protocolHTTP
)

func (p protocol) String() string {
	if p == protocolHTTP {
		return "http"
	}
	return "grpc"
}

// exportSettings is the part of the exporter setup shared by every signal.
type exportSettings struct {
	protocol protocol
	endpoint string
	timeout  time.Duration
	insecure bool
	gzip     bool
	headers  map[string]string

	retry         bool
	retryInitial  time.Duration
	retryMax      time.Duration
	retryDeadline time.Duration
}

func newExportSettings(cfg *config.Config) (exportSettings, error) {
	s := exportSettings{
		endpoint: cfg.Endpoint,
		timeout:  cfg.Timeout,
		insecure: cfg.Insecure,
		gzip:     cfg.Compression != "" && cfg.Compression != "none",
		headers:  cfg.ResolvedAuthHeaders(),
	}

	switch cfg.ExporterProtocol {
	case "", "grpc":
		s.protocol = protocolGRPC
	case "http", "http/protobuf":
		s.protocol = protocolHTTP
	default:
		return s, fmt.Errorf("unsupported OTLP protocol: %s (use 'grpc' or 'http')", cfg.ExporterProtocol)
	}

	if cfg.Retry.Attempts > 0 && cfg.Retry.Backoff > 0 {
		s.retry = true
		s.retryInitial = cfg.Retry.Backoff
		s.retryMax = cfg.Retry.Backoff * 5
		s.retryDeadline = cfg.Retry.Backoff * time.Duration(cfg.Retry.Attempts) * 5
	}

	return s, nil
}
