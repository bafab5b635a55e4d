// Command relayd runs the unlinker service: the request API, the deposit
// matcher, and the batch processor, wired to a single EVM-compatible chain.
package main

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/shadowrelay/relayd/internal/api"
	"github.com/shadowrelay/relayd/internal/chain"
	"github.com/shadowrelay/relayd/internal/config"
	"github.com/shadowrelay/relayd/internal/enclave"
	"github.com/shadowrelay/relayd/internal/jitter"
	"github.com/shadowrelay/relayd/internal/jobs"
	"github.com/shadowrelay/relayd/internal/matcher"
	"github.com/shadowrelay/relayd/internal/processor"
	"github.com/shadowrelay/relayd/internal/queue"
	"github.com/shadowrelay/relayd/internal/session"
)

var app = &cli.App{
	Name:  "relayd",
	Usage: "run the deposit-unlinker service",
	Action: func(*cli.Context) error {
		return run()
	},
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	operatorKey, err := loadOrGenerateOperatorKey(cfg.OperatorPrivateKey)
	if err != nil {
		return fmt.Errorf("resolve operator key: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	escrowAddr := common.HexToAddress(cfg.EscrowContractAddress)
	chainClient, err := chain.Dial(ctx, cfg.ChainRPC, escrowAddr, operatorKey)
	if err != nil {
		return fmt.Errorf("dial chain: %w", err)
	}
	log.Info("relayd: operator identity resolved", "address", chainClient.OperatorAddress().Hex())

	store := session.New()
	jobTable := jobs.New()
	q := queue.New()
	jitterPolicy := jitter.NewPolicy()
	if cfg.JitterMaxDelaySeconds > 0 {
		jitterPolicy.DelayMaxSeconds = cfg.JitterMaxDelaySeconds
	}
	enc := enclave.New()

	m := matcher.New(store, jobTable, q, jitterPolicy)
	events := chainClient.SubscribeDeposits(ctx, 0)
	matcherEvents := make(chan matcher.DepositEvent, 64)
	go bridgeDepositEvents(ctx, events, matcherEvents)
	go m.Run(ctx, matcherEvents)

	proc := processor.New(store, jobTable, q, chainClient, chain.JobID32)
	tickPeriod := time.Duration(cfg.ProcessorTickSeconds) * time.Second
	go proc.Run(ctx, tickPeriod)

	server := api.New(store, enc, chainClient, config.GasPrefundWei, cfg.CORSOrigins)
	httpServer := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.Port),
		Handler: server.Handler(),
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("relayd: http server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("relayd: shutdown signal received, draining")
	case err := <-serveErr:
		cancel()
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("relayd: http server did not shut down cleanly", "err", err)
	}

	return nil
}

// bridgeDepositEvents adapts chain.DepositEvent to matcher.DepositEvent —
// the two types are kept distinct so the matcher package never imports
// chain (spec §9 testability note).
func bridgeDepositEvents(ctx context.Context, in <-chan chain.DepositEvent, out chan<- matcher.DepositEvent) {
	defer close(out)
	for {
		select {
		case ev, ok := <-in:
			if !ok {
				return
			}
			select {
			case out <- matcher.DepositEvent{From: ev.From, Amount: ev.Amount, DepositID: ev.DepositID, TxHash: ev.TxHash}:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// loadOrGenerateOperatorKey parses hexKey if non-empty and valid. If hexKey
// is absent or fails to parse, it falls back to an ephemeral key for
// local/dev runs and logs its address so the operator can be funded
// manually (spec §6: "if absent or invalid, an ephemeral key is generated").
func loadOrGenerateOperatorKey(hexKey string) (*ecdsa.PrivateKey, error) {
	if hexKey != "" {
		trimmed := strings.TrimPrefix(hexKey, "0x")
		key, err := crypto.HexToECDSA(trimmed)
		if err != nil {
			log.Warn("relayd: OPERATOR_PRIVATE_KEY is invalid, using ephemeral key instead", "err", err)
			return generateEphemeralOperatorKey()
		}
		return key, nil
	}

	log.Warn("relayd: no OPERATOR_PRIVATE_KEY set, using ephemeral key")
	return generateEphemeralOperatorKey()
}

func generateEphemeralOperatorKey() (*ecdsa.PrivateKey, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate ephemeral operator key: %w", err)
	}
	log.Warn("relayd: ephemeral operator key generated", "address", crypto.PubkeyToAddress(key.PublicKey).Hex())
	return key, nil
}
