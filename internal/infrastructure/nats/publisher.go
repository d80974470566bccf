package natsinfra

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/egovauthenticator/api/internal/domain"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

type conn interface {
	Publish(subj string, data []byte) error
	Close()
}

// Publisher sends verification events to a NATS subject.
type Publisher struct {
	conn    conn
	subject string
	logger  *zap.Logger
}

// Connect dials url and returns a Publisher bound to subject.
func Connect(url, subject string, logger *zap.Logger) (*Publisher, error) {
	nc, err := nats.Connect(url, nats.Name("egov-authenticator"))
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	logger.Info("connected to NATS", zap.String("url", url))
	return newPublisher(nc, subject, logger), nil
}

func newPublisher(c conn, subject string, logger *zap.Logger) *Publisher {
	return &Publisher{conn: c, subject: subject, logger: logger}
}

func (p *Publisher) Publish(_ context.Context, ev domain.VerificationEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	p.logger.Debug("verification event published",
		zap.String("subject", p.subject), zap.String("verification_id", ev.VerificationID))
	return nil
}

func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
		p.logger.Info("NATS connection closed")
	}
}
