package publisher

import (
	"context"
	"fmt"
	"strconv"

	"github.com/nats-io/nats.go"

	"github.com/portcall/adapters/pkg/model"
)

// msgPublisher is the subset of nats.JetStreamContext the sink uses.
type msgPublisher interface {
	PublishMsg(m *nats.Msg, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// NATSSink publishes envelopes through JetStream.
type NATSSink struct {
	nc      *nats.Conn
	js      msgPublisher
	service string
}

// NewNATSSink enables JetStream on nc.
func NewNATSSink(nc *nats.Conn, service string) (*NATSSink, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &NATSSink{nc: nc, js: js, service: service}, nil
}

func (s *NATSSink) Publish(ctx context.Context, subject string, env *model.Envelope) error {
	data, err := marshal(env)
	if err != nil {
		return err
	}

	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"event_type":     []string{env.EventType},
			"correlation_id": []string{env.CorrelationID.String()},
			"service":        []string{s.service},
			"content_type":   []string{"application/json"},
			"rfq_id":         []string{strconv.FormatInt(env.Context.RFQID, 10)},
		},
	}
	// Msg-Id lets JetStream de-duplicate redeliveries of the same envelope.
	msg.Header.Set(nats.MsgIdHdr, env.ID.String())

	_, err = s.js.PublishMsg(msg, nats.Context(ctx))
	return err
}

func (s *NATSSink) Healthy() error {
	if s.nc == nil || !s.nc.IsConnected() {
		return fmt.Errorf("nats disconnected")
	}
	return nil
}

func (s *NATSSink) Close() error {
	if s.nc != nil && s.nc.IsConnected() {
		return s.nc.Drain()
	}
	return nil
}
