package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/deustocoin/sc-ledger/internal/adapter"
	"github.com/deustocoin/sc-ledger/internal/contract"
	"github.com/deustocoin/sc-ledger/internal/domain"
	"github.com/deustocoin/sc-ledger/internal/logger"
	"github.com/deustocoin/sc-ledger/internal/messaging"
	jsprovider "github.com/deustocoin/sc-ledger/internal/providers/jetstream"
	"github.com/deustocoin/sc-ledger/internal/worldstate"
)

// Config holds the configuration for the ledger runtime
type Config struct {
	URL            string
	StreamName     string
	ConsumerName   string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectionName string
	AckWaitTimeout time.Duration
	MaxDeliver     int
}

// Runtime defines the interface for the ledger runtime
type Runtime interface {
	// Run starts consuming and applying transaction submissions
	Run(ctx context.Context) error
	// Close closes the runtime and cleans up resources
	Close()
}

type runtime struct {
	nc        adapter.NatsConn
	js        adapter.JetStream
	state     worldstate.WorldState
	registry  contract.Registry
	publisher messaging.Publisher
	json      adapter.JSON
	clock     adapter.Clock
	config    Config
}

// NewRuntime creates a new ledger runtime
func NewRuntime(
	cfg Config,
	natsJS adapter.NatsJetStream,
	state worldstate.WorldState,
	registry contract.Registry,
	publisher messaging.Publisher,
	jsonAdapter adapter.JSON,
	clock adapter.Clock,
) (Runtime, error) {
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

	return &runtime{
		nc:        nc,
		js:        js,
		state:     state,
		registry:  registry,
		publisher: publisher,
		json:      jsonAdapter,
		clock:     clock,
		config:    cfg,
	}, nil
}

// Run starts the ledger runtime
func (r *runtime) Run(ctx context.Context) error {
	logger.Info("Starting ledger runtime",
		zap.String("stream", r.config.StreamName),
		zap.String("consumer", r.config.ConsumerName))

	subject := jsprovider.SubmitSubjectPrefix + ".>"

	consumerConfig := jetstream.ConsumerConfig{
		Durable:       r.config.ConsumerName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       r.config.AckWaitTimeout,
		MaxDeliver:    r.config.MaxDeliver,
		FilterSubject: subject,
	}

	consumer, err := r.js.CreateOrUpdateConsumer(ctx, r.config.StreamName, consumerConfig)
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

	logger.Info("Started applying submissions")

	// Submissions are applied strictly one at a time. The single applier is
	// what gives transactions a serial order on a single-node deployment; a
	// multi-peer network gets the equivalent guarantee from read/write-set
	// validation at commit time.
	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutting down ledger runtime")
			return ctx.Err()
		case msg := <-msgChan:
			r.handleMessage(ctx, msg)
		}
	}
}

// handleMessage applies a single transaction submission
func (r *runtime) handleMessage(ctx context.Context, msg adapter.Message) {
	metadata, _ := msg.Metadata()

	var sub domain.TxSubmission
	if err := r.json.Unmarshal(msg.Data(), &sub); err != nil {
		logger.Error(err, zap.String("message", "Failed to unmarshal submission"))
		// Terminate message for unparseable data
		if err := msg.Term(); err != nil {
			logger.Error(err, zap.String("message", "Failed to terminate message"))
		}
		return
	}

	if sub.TxID == "" {
		sub.TxID = uuid.New().String()
	}

	var deliveries uint64
	if metadata != nil {
		deliveries = metadata.NumDelivered
	}
	logger.Debug("Received submission",
		zap.String("txID", sub.TxID),
		zap.String("fn", string(sub.Fn)),
		zap.String("mspID", sub.MSPID),
		zap.Uint64("deliveryCount", deliveries),
	)

	// Each submission executes against its own write-set. Reads fall through
	// to the committed state, writes stay buffered until Commit.
	ws := worldstate.NewWriteSet(r.state)
	recorder := contract.NewEventRecorder()
	tc := &contract.Context{
		State: ws,
		Identity: contract.Identity{
			MSPID:    sub.MSPID,
			ClientID: sub.ClientID,
		},
		Events: recorder,
	}

	result, err := r.registry.Invoke(ctx, tc, sub.Fn, sub.Args)
	if err != nil {
		ws.Discard()
		if isRejection(err) {
			// Deterministic rejection. Redelivery would produce the same
			// outcome, so the message is terminated rather than retried.
			logger.Warn("Submission rejected",
				zap.String("txID", sub.TxID),
				zap.String("fn", string(sub.Fn)),
				zap.String("reason", err.Error()),
			)
			if err := msg.Term(); err != nil {
				logger.Error(err, zap.String("message", "Failed to terminate message"))
			}
			return
		}
		logger.Error(err,
			zap.String("message", "Failed to execute submission"),
			zap.String("txID", sub.TxID),
			zap.String("fn", string(sub.Fn)),
		)
		// NAK to retry
		if err := msg.Nak(); err != nil {
			logger.Error(err, zap.String("message", "Failed to NAK message"))
		}
		return
	}

	if err := ws.Commit(ctx); err != nil {
		logger.Error(err,
			zap.String("message", "Failed to commit write-set"),
			zap.String("txID", sub.TxID),
		)
		if err := msg.Nak(); err != nil {
			logger.Error(err, zap.String("message", "Failed to NAK message"))
		}
		return
	}

	// The commit is the point of no return. A redelivery after this would
	// apply the transaction twice, so publish failures are logged and the
	// message is acked regardless.
	for _, ev := range recorder.Events() {
		event := &domain.ChaincodeEvent{
			TxID:      sub.TxID,
			Name:      ev.Name,
			Payload:   ev.Payload,
			Timestamp: r.clock.Now(),
		}
		if err := r.publisher.PublishEvent(ctx, event); err != nil {
			logger.Error(err,
				zap.String("message", "Failed to publish chaincode event"),
				zap.String("txID", sub.TxID),
				zap.String("event", string(ev.Name)),
			)
		}
	}

	logger.Info("Transaction committed",
		zap.String("txID", sub.TxID),
		zap.String("fn", string(sub.Fn)),
		zap.Int("events", len(recorder.Events())),
	)
	if result != nil {
		logger.Debug("Invocation result",
			zap.String("txID", sub.TxID),
			zap.Any("result", result))
	}

	if err := msg.Ack(); err != nil {
		logger.Error(err, zap.String("message", "Failed to ACK message"))
	}
}

// rejections are the contract's deterministic refusals. Anything else is
// treated as transient infrastructure failure and retried.
var rejections = []error{
	domain.ErrUnauthorized,
	domain.ErrInvalidAmount,
	domain.ErrNegativeAmount,
	domain.ErrSelfTransfer,
	domain.ErrNoBalance,
	domain.ErrBalanceNotFound,
	domain.ErrAccountNotFound,
	domain.ErrInsufficientFunds,
	domain.ErrSupplyNotInitialized,
	domain.ErrTransferFailed,
	domain.ErrUnknownFunction,
	domain.ErrBadArgCount,
}

func isRejection(err error) bool {
	for _, sentinel := range rejections {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// Close closes the runtime and cleans up resources
func (r *runtime) Close() {
	if r.nc == nil {
		return
	}

	r.nc.Close()
}
