package jetstream

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/deustocoin/sc-ledger/internal/adapter"
	"github.com/deustocoin/sc-ledger/internal/domain"
	"github.com/deustocoin/sc-ledger/internal/logger"
	"github.com/deustocoin/sc-ledger/internal/messaging"
)

// Config holds the configuration for NATS JetStream connection
type Config struct {
	URL            string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectionName string
}

// EventSubjectPrefix is the subject space chaincode events are published
// under, one subject per event name
const EventSubjectPrefix = "ledger.events"

// SubmitSubjectPrefix is the subject space transaction submissions are
// published under, one subject per contract function
const SubmitSubjectPrefix = "ledger.submissions"

// connect dials NATS with the shared handler options
func connect(cfg Config, natsJS adapter.NatsJetStream) (adapter.NatsConn, adapter.JetStream, error) {
	opts := []nats.Option{
		nats.Name(cfg.ConnectionName),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error(err, zap.String("message", "Disconnected from NATS"))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Reconnected to NATS", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	nc, js, err := natsJS.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS and create JetStream: %w", err)
	}

	return nc, js, nil
}

type publisher struct {
	nc   adapter.NatsConn
	js   adapter.JetStream
	json adapter.JSON
}

// NewPublisher creates a new NATS JetStream chaincode event publisher
func NewPublisher(cfg Config, natsJS adapter.NatsJetStream, jsonAdapter adapter.JSON) (messaging.Publisher, error) {
	nc, js, err := connect(cfg, natsJS)
	if err != nil {
		return nil, err
	}

	return &publisher{
		nc:   nc,
		js:   js,
		json: jsonAdapter,
	}, nil
}

// PublishEvent publishes a chaincode event to NATS JetStream
func (p *publisher) PublishEvent(ctx context.Context, event *domain.ChaincodeEvent) error {
	logger.Debug("Publishing chaincode event",
		zap.String("txID", event.TxID),
		zap.String("name", string(event.Name)))

	data, err := p.json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", EventSubjectPrefix, event.Name)

	_, err = p.js.Publish(ctx, subject, data)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// Close closes the NATS connection
func (p *publisher) Close() {
	if p.nc == nil {
		return
	}

	p.nc.Close()
}

type submitter struct {
	nc   adapter.NatsConn
	js   adapter.JetStream
	json adapter.JSON
}

// NewSubmitter creates a new NATS JetStream transaction submitter
func NewSubmitter(cfg Config, natsJS adapter.NatsJetStream, jsonAdapter adapter.JSON) (messaging.Submitter, error) {
	nc, js, err := connect(cfg, natsJS)
	if err != nil {
		return nil, err
	}

	return &submitter{
		nc:   nc,
		js:   js,
		json: jsonAdapter,
	}, nil
}

// SubmitTransaction publishes a transaction submission to NATS JetStream
func (s *submitter) SubmitTransaction(ctx context.Context, sub *domain.TxSubmission) error {
	data, err := s.json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("failed to marshal submission: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", SubmitSubjectPrefix, sub.Fn)

	_, err = s.js.Publish(ctx, subject, data)
	if err != nil {
		return fmt.Errorf("failed to publish submission: %w", err)
	}

	return nil
}

// Close closes the NATS connection
func (s *submitter) Close() {
	if s.nc == nil {
		return
	}

	s.nc.Close()
}
