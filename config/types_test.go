package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Enabled:          true,
		ServiceName:      "orders",
		ExporterProtocol: "grpc",
		Compression:      "gzip",
		Traces:           TracesConfig{SamplingRate: 1},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"disabled without service", func(c *Config) { c.Enabled = false; c.ServiceName = "" }, ""},
		{"missing service", func(c *Config) { c.ServiceName = "" }, "ServiceName is required"},
		{"bad protocol", func(c *Config) { c.ExporterProtocol = "udp" }, "ExporterProtocol must be one of"},
		{"bad compression", func(c *Config) { c.Compression = "lz4" }, "Compression must be one of"},
		{"empty compression", func(c *Config) { c.Compression = "" }, ""},
		{"sampling above one", func(c *Config) { c.Traces.SamplingRate = 1.5 }, "Traces.SamplingRate failed lte=1"},
		{"negative body limit", func(c *Config) { c.Capture.RequestBodyMaxSize = -1 }, "Capture.RequestBodyMaxSize failed gte=0"},
		{"long application id", func(c *Config) { c.ApplicationID = strings.Repeat("a", 257) }, "ApplicationID failed max=256"},
		{"amqp without url", func(c *Config) {
			c.Sinks.AMQP = AMQPSinkConfig{Enabled: true, RoutingKey: "k"}
		}, "Sinks.AMQP.URL is required"},
		{"amqp bad url", func(c *Config) {
			c.Sinks.AMQP = AMQPSinkConfig{Enabled: true, URL: "not a url", RoutingKey: "k"}
		}, "Sinks.AMQP.URL must be a valid URL"},
		{"amqp disabled without url", func(c *Config) { c.Sinks.AMQP = AMQPSinkConfig{} }, ""},
		{"redis bad addr", func(c *Config) {
			c.Sinks.Redis = RedisSinkConfig{Enabled: true, Addr: "localhost", Channel: "c"}
		}, "Sinks.Redis.Addr must be host:port"},
		{"redis ok", func(c *Config) {
			c.Sinks.Redis = RedisSinkConfig{Enabled: true, Addr: "localhost:6379", Channel: "c"}
		}, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)

			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tc.wantErr)
			}
		})
	}
}

func TestValidate_ReportsEveryViolation(t *testing.T) {
	cfg := validConfig()
	cfg.ServiceName = ""
	cfg.ExporterProtocol = "udp"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected an error")
	}
	if got := strings.Count(err.Error(), "; "); got != 1 {
		t.Errorf("expected two messages joined, got %q", err)
	}
}
