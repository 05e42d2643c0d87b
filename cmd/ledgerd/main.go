package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/deustocoin/sc-ledger/internal/adapter"
	"github.com/deustocoin/sc-ledger/internal/config"
	"github.com/deustocoin/sc-ledger/internal/contract"
	"github.com/deustocoin/sc-ledger/internal/domain"
	"github.com/deustocoin/sc-ledger/internal/logger"
	jsprovider "github.com/deustocoin/sc-ledger/internal/providers/jetstream"
	"github.com/deustocoin/sc-ledger/internal/runtime"
	"github.com/deustocoin/sc-ledger/internal/store"
	"github.com/deustocoin/sc-ledger/internal/worldstate"
)

var (
	configPath = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "", "Path to the directory holding .env files")
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadLedgerdConfig(*configPath, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	err = logger.Initialize(logger.Config{
		Debug:     cfg.Debug,
		SentryDSN: cfg.SentryDSN,
		Tags:      map[string]string{"service": "ledgerd"},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.Info("Starting ledgerd")

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := store.AutoMigrate(db); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}
	if err := store.ConfigureConnectionPool(db,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
		cfg.Database.ConnMaxLifetime,
		cfg.Database.ConnMaxIdleTime,
	); err != nil {
		logger.Fatal("Failed to configure connection pool", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Initialize store and world state
	dataStore := store.NewPGStore(db)
	state := store.NewWorldState(dataStore)

	// Initialize adapters
	jsonAdapter := adapter.NewJSON()
	jcsAdapter := adapter.NewJCS()
	clock := adapter.NewClock()
	natsJS := adapter.NewNatsJetStream()

	if err := seedTokenMetadata(context.Background(), state, cfg.Token); err != nil {
		logger.Fatal("Failed to seed token metadata", zap.Error(err))
	}

	// Create event publisher
	publisher, err := jsprovider.NewPublisher(
		jsprovider.Config{
			URL:            cfg.NATS.URL,
			MaxReconnects:  cfg.NATS.MaxReconnects,
			ReconnectWait:  cfg.NATS.ReconnectWait,
			ConnectionName: cfg.NATS.ConnectionName,
		},
		natsJS,
		jsonAdapter,
	)
	if err != nil {
		logger.Fatal("Failed to create event publisher", zap.Error(err))
	}
	defer publisher.Close()

	// Create contract and runtime
	c := contract.NewContract(
		contract.Config{AdminMSP: cfg.Token.AdminMSP},
		jsonAdapter,
		jcsAdapter,
	)

	rt, err := runtime.NewRuntime(
		runtime.Config{
			URL:            cfg.NATS.URL,
			StreamName:     cfg.NATS.SubmitStream,
			ConsumerName:   cfg.NATS.ConsumerName,
			MaxReconnects:  cfg.NATS.MaxReconnects,
			ReconnectWait:  cfg.NATS.ReconnectWait,
			ConnectionName: cfg.NATS.ConnectionName,
			AckWaitTimeout: cfg.NATS.AckWait,
			MaxDeliver:     cfg.NATS.MaxDeliver,
		},
		natsJS,
		state,
		c.Registry(),
		publisher,
		jsonAdapter,
		clock,
	)
	if err != nil {
		logger.Fatal("Failed to create ledger runtime", zap.Error(err))
	}
	defer rt.Close()
	logger.Info("Ledger runtime created",
		zap.String("stream", cfg.NATS.SubmitStream),
		zap.String("consumer", cfg.NATS.ConsumerName))

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Channel for runtime errors
	errCh := make(chan error, 1)

	// Start the runtime
	go func() {
		if err := rt.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case sig := <-sigCh:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		logger.Error(err, zap.String("component", "runtime"))
		cancel()
	}

	// Give some time for graceful shutdown
	time.Sleep(time.Second)

	logger.Info("ledgerd stopped")
}

// seedTokenMetadata writes the deploy-time token parameters into the world
// state on first start. Later changes go through the setOption transaction,
// so existing keys are left untouched.
func seedTokenMetadata(ctx context.Context, state worldstate.WorldState, token config.TokenConfig) error {
	existing, err := state.GetState(ctx, domain.NameKey)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	if err := state.PutState(ctx, domain.NameKey, []byte(token.Name)); err != nil {
		return err
	}
	if err := state.PutState(ctx, domain.SymbolKey, []byte(token.Symbol)); err != nil {
		return err
	}
	if err := state.PutState(ctx, domain.DecimalsKey, []byte(strconv.Itoa(token.Decimals))); err != nil {
		return err
	}

	logger.Info("Seeded token metadata",
		zap.String("name", token.Name),
		zap.String("symbol", token.Symbol),
		zap.Int("decimals", token.Decimals))
	return nil
}
