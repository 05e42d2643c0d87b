package store

import (
	"context"

	"github.com/deustocoin/sc-ledger/internal/worldstate"
)

// storeWorldState adapts a Store to the contract's WorldState interface.
// PutStates maps to the store's batch upsert, so a committed write-set
// lands in a single database transaction.
type storeWorldState struct {
	store Store
}

// NewWorldState exposes a Store as a worldstate.WorldState
func NewWorldState(s Store) worldstate.WorldState {
	return &storeWorldState{store: s}
}

func (w *storeWorldState) GetState(ctx context.Context, key string) ([]byte, error) {
	return w.store.GetStateEntry(ctx, key)
}

func (w *storeWorldState) PutState(ctx context.Context, key string, value []byte) error {
	return w.store.PutStateEntries(ctx, []worldstate.Write{{Key: key, Value: value}})
}

// PutStates implements worldstate.BatchWriter
func (w *storeWorldState) PutStates(ctx context.Context, writes []worldstate.Write) error {
	return w.store.PutStateEntries(ctx, writes)
}
