package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSSender publishes messages as JSON for an out-of-process delivery
// worker. It does not own the connection.
type NATSSender struct {
	nc      *nats.Conn
	subject string
}

var _ Sender = (*NATSSender)(nil)

// flushTimeout bounds the flush when the caller's context has no deadline.
const flushTimeout = 5 * time.Second

// ConnectNATS dials url with reconnect settings suited to a long-lived
// publisher.
func ConnectNATS(url, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return nc, nil
}

// NewNATSSender publishes to subject on nc.
func NewNATSSender(nc *nats.Conn, subject string) (*NATSSender, error) {
	if nc == nil {
		return nil, errors.New("nats connection required")
	}
	if subject == "" {
		return nil, errors.New("nats subject required")
	}
	return &NATSSender{nc: nc, subject: subject}, nil
}

// Send publishes msg and flushes so a broken connection surfaces here.
func (s *NATSSender) Send(ctx context.Context, msg Message) error {
	if msg.Token == "" {
		return fmt.Errorf("%w: empty device token", ErrPermanent)
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%w: marshal message: %w", ErrPermanent, err)
	}
	if err := s.nc.Publish(s.subject, data); err != nil {
		if errors.Is(err, nats.ErrMaxPayload) || errors.Is(err, nats.ErrBadSubject) {
			return fmt.Errorf("%w: publish: %w", ErrPermanent, err)
		}
		return fmt.Errorf("publish: %w", err)
	}
	if err := s.flush(ctx); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

func (s *NATSSender) flush(ctx context.Context) error {
	if _, ok := ctx.Deadline(); ok {
		return s.nc.FlushWithContext(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.nc.FlushTimeout(flushTimeout)
}
