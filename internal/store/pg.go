package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/deustocoin/sc-ledger/internal/store/schema"
	"github.com/deustocoin/sc-ledger/internal/worldstate"
)

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// AutoMigrate creates or updates the ledger tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&schema.StateEntry{},
		&schema.Transaction{},
	)
}

// ConfigureConnectionPool applies pool settings to the underlying sql.DB,
// with defaults when a setting is zero
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

func (s *pgStore) GetStateEntry(ctx context.Context, key string) ([]byte, error) {
	var entry schema.StateEntry
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get state entry %q: %w", key, err)
	}
	return entry.Value, nil
}

func (s *pgStore) PutStateEntries(ctx context.Context, writes []worldstate.Write) error {
	if len(writes) == 0 {
		return nil
	}

	entries := make([]schema.StateEntry, 0, len(writes))
	for _, w := range writes {
		entries = append(entries, schema.StateEntry{Key: w.Key, Value: w.Value})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&entries).Error
	})
	if err != nil {
		return fmt.Errorf("failed to put state entries: %w", err)
	}
	return nil
}

func (s *pgStore) InsertTransaction(ctx context.Context, txn *schema.Transaction) error {
	if err := s.db.WithContext(ctx).Create(txn).Error; err != nil {
		return fmt.Errorf("failed to insert transaction %s: %w", txn.ID, err)
	}
	return nil
}

func (s *pgStore) ListTransactionsByAccount(ctx context.Context, account string, limit int) ([]schema.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows []schema.Transaction
	err := s.db.WithContext(ctx).
		Where("from_account = ? OR to_account = ?", account, account).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions for %s: %w", account, err)
	}
	return rows, nil
}
