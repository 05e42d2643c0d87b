package schema

import "time"

// Transaction is an off-chain history row reconstructed from chaincode
// events. The chain remains the source of truth; these rows exist so the
// web application can page through an account's history without replaying
// event logs.
type Transaction struct {
	// ID is a ULID assigned by the ingester
	ID string `gorm:"primaryKey;type:text"`
	// TxID is the ledger transaction that produced the event
	TxID string `gorm:"column:tx_id;type:text;not null;index:idx_transactions_tx_id"`
	// Kind is mint, burn, transfer or action
	Kind string `gorm:"type:text;not null"`
	// FromAccount holds the zero-address sentinel for mints
	FromAccount string `gorm:"column:from_account;type:text;not null;index:idx_transactions_from"`
	// ToAccount holds the zero-address sentinel for burns
	ToAccount string `gorm:"column:to_account;type:text;not null;index:idx_transactions_to"`
	// Amount is in the smallest currency unit
	Amount int64 `gorm:"not null"`
	// ActionID is set for action rows only
	ActionID *string `gorm:"column:action_id;type:text"`
	// ActionTime is the reported fulfillment time, action rows only
	ActionTime *time.Time `gorm:"column:action_time;type:timestamptz"`
	// IPFSHash is the action proof image hash, action rows only
	IPFSHash *string `gorm:"column:ipfs_hash;type:text"`
	// CreatedAt is the ingestion timestamp
	CreatedAt time.Time `gorm:"autoCreateTime;type:timestamptz"`
}

func (Transaction) TableName() string {
	return "transactions"
}
