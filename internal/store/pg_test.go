package store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/deustocoin/sc-ledger/internal/domain"
	"github.com/deustocoin/sc-ledger/internal/store/schema"
	"github.com/deustocoin/sc-ledger/internal/worldstate"
)

var (
	testDB      *gorm.DB
	pgContainer *postgres.PostgresContainer
)

// TestMain sets up the test database before running tests
func TestMain(m *testing.M) {
	ctx := context.Background()

	// Check if we should use an external database (for CI or local development)
	dbHost := os.Getenv("TEST_DB_HOST")

	var dsn string
	var err error

	if dbHost != "" {
		dbPort := os.Getenv("TEST_DB_PORT")
		if dbPort == "" {
			dbPort = "5432"
		}
		dsn = fmt.Sprintf("host=%s port=%s user=postgres password=postgres dbname=test_db sslmode=disable",
			dbHost, dbPort)
	} else {
		pgContainer, err = postgres.Run(ctx,
			"postgres:18-alpine",
			postgres.WithDatabase("test_db"),
			postgres.WithUsername("postgres"),
			postgres.WithPassword("postgres"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second)),
		)
		if err != nil {
			fmt.Printf("Failed to start PostgreSQL container: %v\n", err)
			os.Exit(1)
		}

		dsn, err = pgContainer.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			fmt.Printf("Failed to get connection string: %v\n", err)
			_ = pgContainer.Terminate(ctx)
			os.Exit(1)
		}
	}

	testDB, err = gorm.Open(pgdriver.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		fmt.Printf("Failed to connect to database: %v\n", err)
		if pgContainer != nil {
			_ = pgContainer.Terminate(ctx)
		}
		os.Exit(1)
	}

	if err := AutoMigrate(testDB); err != nil {
		fmt.Printf("Failed to migrate database: %v\n", err)
		if pgContainer != nil {
			_ = pgContainer.Terminate(ctx)
		}
		os.Exit(1)
	}

	code := m.Run()

	if pgContainer != nil {
		_ = pgContainer.Terminate(ctx)
	}

	os.Exit(code)
}

// initPGTestDB wraps each test in a rolled-back transaction for isolation
func initPGTestDB(t *testing.T) Store {
	tx := testDB.Begin()
	require.NotNil(t, tx)
	require.NoError(t, tx.Error)

	t.Cleanup(func() {
		tx.Rollback()
	})

	return NewPGStore(tx)
}

func TestGetStateEntryMissing(t *testing.T) {
	ctx := context.Background()
	s := initPGTestDB(t)

	value, err := s.GetStateEntry(ctx, "absent")
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestPutStateEntriesUpsert(t *testing.T) {
	ctx := context.Background()
	s := initPGTestDB(t)

	writes := []worldstate.Write{
		{Key: "balance\x00alice", Value: []byte("500")},
		{Key: "totalSupply", Value: []byte("500")},
	}
	require.NoError(t, s.PutStateEntries(ctx, writes))

	value, err := s.GetStateEntry(ctx, "balance\x00alice")
	require.NoError(t, err)
	assert.Equal(t, []byte("500"), value)

	// Second batch updates one key and creates another
	writes = []worldstate.Write{
		{Key: "balance\x00alice", Value: []byte("300")},
		{Key: "balance\x00bob", Value: []byte("200")},
	}
	require.NoError(t, s.PutStateEntries(ctx, writes))

	value, err = s.GetStateEntry(ctx, "balance\x00alice")
	require.NoError(t, err)
	assert.Equal(t, []byte("300"), value)
	value, err = s.GetStateEntry(ctx, "balance\x00bob")
	require.NoError(t, err)
	assert.Equal(t, []byte("200"), value)
	value, err = s.GetStateEntry(ctx, "totalSupply")
	require.NoError(t, err)
	assert.Equal(t, []byte("500"), value)
}

func TestPutStateEntriesEmpty(t *testing.T) {
	s := initPGTestDB(t)
	require.NoError(t, s.PutStateEntries(context.Background(), nil))
}

func TestStoreBackedWorldState(t *testing.T) {
	ctx := context.Background()
	s := initPGTestDB(t)
	state := NewWorldState(s)

	require.NoError(t, state.PutState(ctx, "a", []byte("1")))

	value, err := state.GetState(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), value)

	// A write-set over the store-backed state commits as one batch
	ws := worldstate.NewWriteSet(state)
	require.NoError(t, ws.PutState(ctx, "a", []byte("2")))
	require.NoError(t, ws.PutState(ctx, "b", []byte("3")))
	require.NoError(t, ws.Commit(ctx))

	value, err = state.GetState(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), value)
	value, err = state.GetState(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []byte("3"), value)
}

func buildTestTransaction(kind domain.TxKind, from, to string, amount int64) *schema.Transaction {
	return &schema.Transaction{
		ID:          ulid.MustNewDefault(time.Now()).String(),
		TxID:        ulid.MustNewDefault(time.Now()).String(),
		Kind:        string(kind),
		FromAccount: from,
		ToAccount:   to,
		Amount:      amount,
	}
}

func TestInsertAndListTransactions(t *testing.T) {
	ctx := context.Background()
	s := initPGTestDB(t)

	rows := []*schema.Transaction{
		buildTestTransaction(domain.TxKindMint, domain.ZeroAddress, "alice", 500),
		buildTestTransaction(domain.TxKindTransfer, "alice", "bob", 200),
		buildTestTransaction(domain.TxKindBurn, "alice", domain.ZeroAddress, 100),
		buildTestTransaction(domain.TxKindTransfer, "carol", "dave", 50),
	}
	for _, row := range rows {
		require.NoError(t, s.InsertTransaction(ctx, row))
	}

	aliceRows, err := s.ListTransactionsByAccount(ctx, "alice", 10)
	require.NoError(t, err)
	assert.Len(t, aliceRows, 3)

	carolRows, err := s.ListTransactionsByAccount(ctx, "carol", 10)
	require.NoError(t, err)
	require.Len(t, carolRows, 1)
	assert.Equal(t, string(domain.TxKindTransfer), carolRows[0].Kind)

	noneRows, err := s.ListTransactionsByAccount(ctx, "nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, noneRows)
}

func TestInsertActionTransaction(t *testing.T) {
	ctx := context.Background()
	s := initPGTestDB(t)

	actionID := "A1"
	actionTime := time.Unix(1700000000, 0).UTC()
	ipfsHash := "QmProof"

	row := buildTestTransaction(domain.TxKindAction, "alice", "bob", 50)
	row.ActionID = &actionID
	row.ActionTime = &actionTime
	row.IPFSHash = &ipfsHash
	require.NoError(t, s.InsertTransaction(ctx, row))

	rows, err := s.ListTransactionsByAccount(ctx, "bob", 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].ActionID)
	assert.Equal(t, "A1", *rows[0].ActionID)
	require.NotNil(t, rows[0].ActionTime)
	assert.Equal(t, actionTime.Unix(), rows[0].ActionTime.Unix())
}
