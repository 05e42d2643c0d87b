// Command benchmark floods the submission stream with generated ledger
// traffic and reports the achieved submit rate. It exercises the same path
// a production backend uses: mint seed balances from the admin identity,
// then fire random peer transfers.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/deustocoin/sc-ledger/internal/adapter"
	"github.com/deustocoin/sc-ledger/internal/domain"
	"github.com/deustocoin/sc-ledger/internal/logger"
	jsprovider "github.com/deustocoin/sc-ledger/internal/providers/jetstream"
)

type Config struct {
	NATSURL   string
	AdminMSP  string
	Accounts  int
	Transfers int
	SeedFunds int64
	Debug     bool
}

func main() {
	cfg := Config{}
	flag.StringVar(&cfg.NATSURL, "nats", "nats://localhost:4222", "NATS server URL")
	flag.StringVar(&cfg.AdminMSP, "admin-msp", "centralbankMSP", "admin MSP id used for mint submissions")
	flag.IntVar(&cfg.Accounts, "accounts", 10, "number of generated accounts")
	flag.IntVar(&cfg.Transfers, "transfers", 1000, "number of transfer submissions")
	flag.Int64Var(&cfg.SeedFunds, "seed", 1000000, "minted starting balance per account")
	flag.BoolVar(&cfg.Debug, "debug", false, "enable debug logging")
	flag.Parse()

	if err := logger.Initialize(logger.Config{Debug: cfg.Debug}); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "benchmark failed: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg Config) error {
	submitter, err := jsprovider.NewSubmitter(
		jsprovider.Config{
			URL:            cfg.NATSURL,
			MaxReconnects:  10,
			ReconnectWait:  2 * time.Second,
			ConnectionName: "ledger-benchmark",
		},
		adapter.NewNatsJetStream(),
		adapter.NewJSON(),
	)
	if err != nil {
		return err
	}
	defer submitter.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	accounts := make([]string, cfg.Accounts)
	for i := range accounts {
		accounts[i] = fmt.Sprintf("bench-%03d", i)
	}

	// Seed every account so transfers cannot fail on missing balances
	seedStart := time.Now()
	for _, account := range accounts {
		sub := &domain.TxSubmission{
			TxID:        uuid.New().String(),
			Fn:          domain.FnMint,
			Args:        []string{account, strconv.FormatInt(cfg.SeedFunds, 10)},
			MSPID:       cfg.AdminMSP,
			ClientID:    "benchmark-admin",
			SubmittedAt: time.Now(),
		}
		if err := submitter.SubmitTransaction(ctx, sub); err != nil {
			return fmt.Errorf("failed to submit mint for %s: %w", account, err)
		}
	}
	fmt.Printf("Seeded %d accounts in %s (%s)\n",
		len(accounts), time.Since(seedStart).Round(time.Millisecond),
		formatRate(len(accounts), time.Since(seedStart)))

	transferStart := time.Now()
	submitted := 0
	for i := 0; i < cfg.Transfers; i++ {
		if ctx.Err() != nil {
			break
		}

		from := accounts[rand.Intn(len(accounts))]
		to := accounts[rand.Intn(len(accounts))]
		if from == to {
			continue
		}

		sub := &domain.TxSubmission{
			TxID:        uuid.New().String(),
			Fn:          domain.FnTransfer,
			Args:        []string{to, strconv.Itoa(1 + rand.Intn(100))},
			MSPID:       "benchMSP",
			ClientID:    from,
			SubmittedAt: time.Now(),
		}
		if err := submitter.SubmitTransaction(ctx, sub); err != nil {
			return fmt.Errorf("failed to submit transfer %d: %w", i, err)
		}
		submitted++
	}

	elapsed := time.Since(transferStart)
	fmt.Printf("Submitted %d transfers in %s (%s, %s of requested)\n",
		submitted, elapsed.Round(time.Millisecond),
		formatRate(submitted, elapsed),
		percentageString(submitted, cfg.Transfers))

	return ctx.Err()
}
