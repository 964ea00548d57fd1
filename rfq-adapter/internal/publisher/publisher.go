package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/portcall/adapters/pkg/model"
	"github.com/portcall/adapters/rfq-adapter/internal/metrics"
)

// Sink publishes canonical envelopes to an event bus.
type Sink interface {
	Publish(ctx context.Context, subject string, env *model.Envelope) error
	Healthy() error
	Close() error
}

// Publisher routes envelopes to a Sink and records the outcome.
type Publisher struct {
	sink    Sink
	backend string
	subject string
	logger  *zap.Logger
}

// New wraps sink. subject is used when Publish is called with an empty subject.
func New(sink Sink, backend, subject string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{sink: sink, backend: backend, subject: subject, logger: logger}
}

// Publish sends env to subject (or the default subject).
func (p *Publisher) Publish(ctx context.Context, subject string, env *model.Envelope) error {
	if subject == "" {
		subject = p.subject
	}
	if err := p.sink.Publish(ctx, subject, env); err != nil {
		p.logger.Error("publisher.publish_failed",
			zap.String("backend", p.backend),
			zap.String("subject", subject),
			zap.String("event_type", env.EventType),
			zap.Error(err))
		metrics.IncEvent(p.backend, "error")
		return fmt.Errorf("publish %s: %w", env.EventType, err)
	}

	p.logger.Debug("publisher.publish_success",
		zap.String("backend", p.backend),
		zap.String("subject", subject),
		zap.String("event_type", env.EventType),
		zap.Int64("rfq_id", env.Context.RFQID))
	metrics.IncEvent(p.backend, "ok")
	return nil
}

func (p *Publisher) Backend() string { return p.backend }

func (p *Publisher) Healthy() error { return p.sink.Healthy() }

func (p *Publisher) Close() error { return p.sink.Close() }

// NopSink discards every event. Used when EVENTS_BACKEND=none.
type NopSink struct{}

func (NopSink) Publish(context.Context, string, *model.Envelope) error { return nil }
func (NopSink) Healthy() error                                          { return nil }
func (NopSink) Close() error                                            { return nil }

func marshal(env *model.Envelope) ([]byte, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return data, nil
}
