package schema

import "time"

// StateEntry backs the ledger world state: one row per world-state key.
// Values are the raw bytes the contract reads and writes.
type StateEntry struct {
	Key       string    `gorm:"primaryKey;type:text"`
	Value     []byte    `gorm:"type:bytea;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (StateEntry) TableName() string {
	return "state_entries"
}
