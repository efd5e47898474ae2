// Package messaging publishes case events to NATS.
package messaging

import (
	"context"
	"fmt"
	"strings"
	"time"

	"benefit-orchestrator/internal/common/logger"

	"github.com/nats-io/nats.go"
)

// Publisher sends raw payloads to subjects.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
	Close() error
}

// NATSPublisher uses core NATS publish followed by a flush so a returned nil
// means the server has received the message.
type NATSPublisher struct {
	nc  *nats.Conn
	log logger.Logger
}

// Connect dials url with reconnect handlers that log through log.
func Connect(url, name string, log logger.Logger) (*NATSPublisher, error) {
	log = log.WithFields(map[string]interface{}{"component": "nats"})

	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", map[string]interface{}{"error": err.Error()})
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", map[string]interface{}{"url": c.ConnectedUrl()})
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	log.Info("nats connected", map[string]interface{}{"url": url})
	return &NATSPublisher{nc: nc, log: log}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	if err := p.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("nats flush %s: %w", subject, err)
	}
	return nil
}

func (p *NATSPublisher) Close() error {
	if p.nc == nil {
		return nil
	}
	return p.nc.Drain()
}

// CaseEventSubject returns "<prefix>.<caseId>.events" with the case id made subject-safe.
func CaseEventSubject(prefix, caseID string) string {
	token := strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n':
			return '_'
		}
		return r
	}, caseID)
	return fmt.Sprintf("%s.%s.events", strings.TrimSuffix(prefix, "."), token)
}
