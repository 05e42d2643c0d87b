package store

import (
	"context"

	"github.com/deustocoin/sc-ledger/internal/store/schema"
	"github.com/deustocoin/sc-ledger/internal/worldstate"
)

// Store defines the interface for database operations
type Store interface {
	// GetStateEntry retrieves a world-state value; nil when the key is absent
	GetStateEntry(ctx context.Context, key string) ([]byte, error)
	// PutStateEntries upserts a batch of world-state writes in one database
	// transaction. This is the ledger's commit boundary: either every write
	// of a contract invocation lands or none does.
	PutStateEntries(ctx context.Context, writes []worldstate.Write) error
	// InsertTransaction records a history row reconstructed from a chain event
	InsertTransaction(ctx context.Context, tx *schema.Transaction) error
	// ListTransactionsByAccount returns an account's history rows, newest first
	ListTransactionsByAccount(ctx context.Context, account string, limit int) ([]schema.Transaction, error)
}
