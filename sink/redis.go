package sink

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/RodolfoBonis/go-capture-agent/config"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// RedisPublisher is the subset of a go-redis client used by RedisSink.
type RedisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisSink PUBLISHes each exchange on a pub/sub channel. Pub/sub keeps no
// copy: subscribers that are not listening miss the event.
type RedisSink struct {
	pub     RedisPublisher
	channel string
	closer  io.Closer
	closed  atomic.Bool
}

// NewRedisSink publishes through pub on channel.
func NewRedisSink(pub RedisPublisher, channel string) *RedisSink {
	return &RedisSink{pub: pub, channel: channel}
}

// DialRedis creates a client for cfg, instruments it with the given providers
// and wraps it in a sink that closes the client on Close. Nil providers skip
// the corresponding instrumentation.
func DialRedis(cfg config.RedisSinkConfig, tp trace.TracerProvider, mp metric.MeterProvider) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if tp != nil {
		if err := redisotel.InstrumentTracing(client, redisotel.WithTracerProvider(tp)); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis tracing: %w", err)
		}
	}
	if mp != nil {
		if err := redisotel.InstrumentMetrics(client, redisotel.WithMeterProvider(mp)); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis metrics: %w", err)
		}
	}

	s := NewRedisSink(client, cfg.Channel)
	s.closer = client
	return s, nil
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Send(ctx context.Context, ex *Exchange) error {
	if s.closed.Load() {
		return ErrClosed
	}

	body, err := ex.Marshal()
	if err != nil {
		return fmt.Errorf("encode exchange: %w", err)
	}
	return s.pub.Publish(ctx, s.channel, body).Err()
}

func (s *RedisSink) Close(context.Context) error {
	if !s.closed.CompareAndSwap(false, true) || s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
