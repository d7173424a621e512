package sink

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/RodolfoBonis/go-capture-agent/config"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// AMQPPublisher is the subset of *amqp.Channel used by AMQPSink.
type AMQPPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPSink publishes each exchange as a transient JSON message. The current
// trace context travels in the message headers.
type AMQPSink struct {
	pub        AMQPPublisher
	exchange   string
	routingKey string
	tracer     trace.Tracer
	closeFn    func() error
	closed     atomic.Bool
}

// NewAMQPSink publishes through pub. A nil tracer disables producer spans.
func NewAMQPSink(pub AMQPPublisher, exchange, routingKey string, tracer trace.Tracer) *AMQPSink {
	return &AMQPSink{
		pub:        pub,
		exchange:   exchange,
		routingKey: routingKey,
		tracer:     tracer,
	}
}

// DialAMQP connects to the broker in cfg and opens a channel for the sink.
// The sink owns both and closes them on Close.
func DialAMQP(cfg config.AMQPSinkConfig, tracer trace.Tracer) (*AMQPSink, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}

	s := NewAMQPSink(ch, cfg.Exchange, cfg.RoutingKey, tracer)
	s.closeFn = func() error {
		return errors.Join(ch.Close(), conn.Close())
	}
	return s, nil
}

func (s *AMQPSink) Name() string { return "amqp" }

func (s *AMQPSink) Send(ctx context.Context, ex *Exchange) error {
	if s.closed.Load() {
		return ErrClosed
	}

	body, err := ex.Marshal()
	if err != nil {
		return fmt.Errorf("encode exchange: %w", err)
	}

	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, "amqp.publish "+s.destination(),
			trace.WithSpanKind(trace.SpanKindProducer),
			trace.WithAttributes(
				attribute.String("messaging.system", "rabbitmq"),
				attribute.String("messaging.destination.name", s.exchange),
				attribute.String("messaging.rabbitmq.destination.routing_key", s.routingKey),
				attribute.String("messaging.operation.type", "publish"),
				attribute.String("messaging.message.id", ex.TransactionID),
			),
		)
		defer span.End()
	}

	headers := amqp.Table{}
	otel.GetTextMapPropagator().Inject(ctx, amqpHeaderCarrier(headers))

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Transient,
		MessageId:    ex.TransactionID,
		AppId:        ex.ApplicationID,
		Timestamp:    ex.StartedAt,
		Type:         "http.exchange",
		Headers:      headers,
		Body:         body,
	}

	if err := s.pub.PublishWithContext(ctx, s.exchange, s.routingKey, false, false, msg); err != nil {
		if span != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	}
	return nil
}

func (s *AMQPSink) Close(context.Context) error {
	if !s.closed.CompareAndSwap(false, true) || s.closeFn == nil {
		return nil
	}
	return s.closeFn()
}

func (s *AMQPSink) destination() string {
	if s.exchange == "" {
		return s.routingKey
	}
	return s.exchange
}

// amqpHeaderCarrier adapts AMQP message headers for OTel propagation.
type amqpHeaderCarrier amqp.Table

var _ propagation.TextMapCarrier = amqpHeaderCarrier(nil)

func (c amqpHeaderCarrier) Get(key string) string {
	if s, ok := c[key].(string); ok {
		return s
	}
	return ""
}

func (c amqpHeaderCarrier) Set(key, value string) {
	c[key] = value
}

func (c amqpHeaderCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}
