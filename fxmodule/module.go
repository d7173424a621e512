// Package fxmodule wires the capture agent into go.uber.org/fx applications.
package fxmodule

import (
	"context"

	captureagent "github.com/RodolfoBonis/go-capture-agent"
	"github.com/RodolfoBonis/go-capture-agent/logger"
	"github.com/RodolfoBonis/go-capture-agent/middleware"
	"go.uber.org/fx"
)

// Module provides logger.Logger, *captureagent.Agent and *middleware.Filter.
// The agent is initialized on start and shut down on stop.
var Module = ProvideWithConfiguration()

// ProvideWithConfiguration is Module with extra agent options.
func ProvideWithConfiguration(opts ...captureagent.Option) fx.Option {
	return fx.Module("go-capture-agent",
		fx.Provide(
			provideLogger,
			func(lc fx.Lifecycle, log logger.Logger) *captureagent.Agent {
				return provideAgent(lc, log, opts)
			},
			provideFilter,
		),
	)
}

// ProvideForTesting provides a disabled agent; the filter passes every
// request through untouched.
func ProvideForTesting() fx.Option {
	return ProvideWithConfiguration(captureagent.WithEnabled(false))
}

// CaptureOnlyModule runs the capture pipeline without OTLP trace, metric or
// log export. Exchanges go to the log sink unless opts choose others.
func CaptureOnlyModule(opts ...captureagent.Option) fx.Option {
	base := []captureagent.Option{
		captureagent.WithDisabledSignals(captureagent.SignalTraces, captureagent.SignalMetrics, captureagent.SignalLogs),
		captureagent.WithSinks(captureagent.SinksConfig{Log: true}),
	}
	return ProvideWithConfiguration(append(base, opts...)...)
}

func provideLogger() logger.Logger {
	return logger.NewLogger("")
}

func provideAgent(lc fx.Lifecycle, log logger.Logger, opts []captureagent.Option) *captureagent.Agent {
	all := append([]captureagent.Option{captureagent.WithLogger(log)}, opts...)
	agent := captureagent.NewAgent(all...)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return agent.Init(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return agent.Shutdown(ctx)
		},
	})

	return agent
}

func provideFilter(agent *captureagent.Agent) *middleware.Filter {
	return middleware.NewFilter(agent)
}
