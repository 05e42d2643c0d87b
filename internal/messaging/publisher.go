package messaging

import (
	"context"

	"github.com/deustocoin/sc-ledger/internal/domain"
)

// Publisher defines the interface for publishing chaincode events to the
// message broker
type Publisher interface {
	// PublishEvent publishes a chaincode event emitted by a committed transaction
	PublishEvent(ctx context.Context, event *domain.ChaincodeEvent) error
	// Close closes the connection
	Close()
}

// Submitter defines the interface backends use to submit transactions to
// the ledger
type Submitter interface {
	// SubmitTransaction enqueues a transaction submission for the ledger runtime
	SubmitTransaction(ctx context.Context, sub *domain.TxSubmission) error
	// Close closes the connection
	Close()
}
