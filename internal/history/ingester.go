package history

import (
	"context"
	"fmt"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/cenkalti/backoff/v4"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/deustocoin/sc-ledger/internal/adapter"
	"github.com/deustocoin/sc-ledger/internal/domain"
	"github.com/deustocoin/sc-ledger/internal/logger"
	jsprovider "github.com/deustocoin/sc-ledger/internal/providers/jetstream"
	"github.com/deustocoin/sc-ledger/internal/store"
	"github.com/deustocoin/sc-ledger/internal/store/schema"
)

const (
	DEFAULT_WORKER_POOL_SIZE  = 20
	DEFAULT_WORKER_QUEUE_SIZE = 2048
)

// Config holds the configuration for the history ingester
type Config struct {
	URL             string
	StreamName      string
	ConsumerName    string
	MaxReconnects   int
	ReconnectWait   time.Duration
	ConnectionName  string
	AckWaitTimeout  time.Duration
	MaxDeliver      int
	WorkerPoolSize  int
	WorkerQueueSize int
}

// Ingester defines the interface for the transaction-history ingester
type Ingester interface {
	// Run starts consuming chaincode events and recording history rows
	Run(ctx context.Context) error
	// Close closes the ingester and cleans up resources
	Close()
}

type ingester struct {
	nc     adapter.NatsConn
	js     adapter.JetStream
	store  store.Store
	json   adapter.JSON
	clock  adapter.Clock
	config Config
	pool   pond.Pool
}

// NewIngester creates a new transaction-history ingester
func NewIngester(
	cfg Config,
	natsJS adapter.NatsJetStream,
	st store.Store,
	jsonAdapter adapter.JSON,
	clock adapter.Clock,
) (Ingester, error) {
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
		return nil, fmt.Errorf("failed to connect to NATS and create JetStream: %w", err)
	}

	return &ingester{
		nc:     nc,
		js:     js,
		store:  st,
		json:   jsonAdapter,
		clock:  clock,
		config: cfg,
	}, nil
}

// Run starts the history ingester
func (i *ingester) Run(ctx context.Context) error {
	logger.Info("Starting history ingester",
		zap.String("stream", i.config.StreamName),
		zap.String("consumer", i.config.ConsumerName))

	workerPoolSize := i.config.WorkerPoolSize
	if workerPoolSize == 0 {
		workerPoolSize = DEFAULT_WORKER_POOL_SIZE
	}
	workerQueueSize := i.config.WorkerQueueSize
	if workerQueueSize == 0 {
		workerQueueSize = DEFAULT_WORKER_QUEUE_SIZE
	}

	// History rows are independent of each other, so events can be handled
	// concurrently, unlike submissions on the ledger side.
	i.pool = pond.NewPool(
		workerPoolSize,
		pond.WithQueueSize(workerQueueSize),
		pond.WithContext(ctx),
	)

	subject := jsprovider.EventSubjectPrefix + ".>"

	consumerConfig := jetstream.ConsumerConfig{
		Durable:       i.config.ConsumerName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       i.config.AckWaitTimeout,
		MaxDeliver:    i.config.MaxDeliver,
		FilterSubject: subject,
	}

	consumer, err := i.js.CreateOrUpdateConsumer(ctx, i.config.StreamName, consumerConfig)
	if err != nil {
		return fmt.Errorf("failed to create/update consumer: %w", err)
	}

	consumerInfo, err := consumer.Info(ctx)
	if err != nil {
		return fmt.Errorf("failed to get consumer info: %w", err)
	}
	logger.Info("Consumer created/retrieved", zap.String("consumer", consumerInfo.Name))

	msgChan := make(chan adapter.Message, 100)
	cc, err := consumer.Consume(func(msg adapter.Message) {
		msgChan <- msg
	})
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	defer cc.Stop()

	logger.Info("Started ingesting chaincode events")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutting down history ingester")
			i.pool.StopAndWait()
			return ctx.Err()
		case msg := <-msgChan:
			i.pool.Submit(func() {
				i.handleMessage(ctx, msg)
			})
		}
	}
}

// handleMessage records a single chaincode event as a history row
func (i *ingester) handleMessage(ctx context.Context, msg adapter.Message) {
	var event domain.ChaincodeEvent
	if err := i.json.Unmarshal(msg.Data(), &event); err != nil {
		logger.Error(err, zap.String("message", "Failed to unmarshal event"))
		// Terminate message for unparseable data
		if err := msg.Term(); err != nil {
			logger.Error(err, zap.String("message", "Failed to terminate message"))
		}
		return
	}

	row, err := i.buildRow(&event)
	if err != nil {
		logger.Error(err,
			zap.String("message", "Failed to build history row"),
			zap.String("txID", event.TxID),
			zap.String("event", string(event.Name)),
		)
		if err := msg.Term(); err != nil {
			logger.Error(err, zap.String("message", "Failed to terminate message"))
		}
		return
	}
	if row == nil {
		// Unrecognized event name, nothing to record
		if err := msg.Ack(); err != nil {
			logger.Error(err, zap.String("message", "Failed to ACK message"))
		}
		return
	}

	if err := i.insertWithRetry(ctx, row); err != nil {
		logger.Error(err,
			zap.String("message", "Failed to insert history row"),
			zap.String("txID", event.TxID),
		)
		// NAK to retry
		if err := msg.Nak(); err != nil {
			logger.Error(err, zap.String("message", "Failed to NAK message"))
		}
		return
	}

	logger.Debug("Recorded history row",
		zap.String("txID", event.TxID),
		zap.String("kind", row.Kind),
		zap.String("from", row.FromAccount),
		zap.String("to", row.ToAccount),
		zap.Int64("amount", row.Amount),
	)

	if err := msg.Ack(); err != nil {
		logger.Error(err, zap.String("message", "Failed to ACK message"))
	}
}

// buildRow maps a chaincode event to a history row. A nil row without error
// means the event carries nothing to record.
func (i *ingester) buildRow(event *domain.ChaincodeEvent) (*schema.Transaction, error) {
	switch event.Name {
	case domain.EventTransfer:
		var payload domain.TransferEvent
		if err := i.json.Unmarshal(event.Payload, &payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal transfer payload: %w", err)
		}

		return &schema.Transaction{
			ID:          ulid.MustNewDefault(i.clock.Now()).String(),
			TxID:        event.TxID,
			Kind:        string(domain.ClassifyTransfer(payload.From, payload.To)),
			FromAccount: payload.From,
			ToAccount:   payload.To,
			Amount:      payload.Value,
		}, nil

	case domain.EventAction:
		var payload domain.ActionEvent
		if err := i.json.Unmarshal(event.Payload, &payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal action payload: %w", err)
		}

		actionTime := i.clock.Unix(payload.Time, 0)
		return &schema.Transaction{
			ID:          ulid.MustNewDefault(i.clock.Now()).String(),
			TxID:        event.TxID,
			Kind:        string(domain.TxKindAction),
			FromAccount: payload.From,
			ToAccount:   payload.To,
			Amount:      payload.Value,
			ActionID:    &payload.ActionID,
			ActionTime:  &actionTime,
			IPFSHash:    &payload.IPFSHash,
		}, nil

	default:
		logger.Warn("Skipping unrecognized event", zap.String("name", string(event.Name)))
		return nil, nil
	}
}

// insertWithRetry writes the row with exponential backoff so a brief
// database outage does not burn through the redelivery budget
func (i *ingester) insertWithRetry(ctx context.Context, row *schema.Transaction) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	b.Multiplier = 2.0
	b.RandomizationFactor = 0.5 // Add jitter

	operation := func() error {
		return i.store.InsertTransaction(ctx, row)
	}

	return backoff.Retry(operation, backoff.WithContext(b, ctx))
}

// Close closes the ingester and cleans up resources
func (i *ingester) Close() {
	if i.nc == nil {
		return
	}

	i.nc.Close()
}
