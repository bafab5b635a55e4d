// Package chain abstracts the transport to a single EVM-compatible RPC
// endpoint: submitting signed transactions (operatorWithdraw, native gas
// transfer) and subscribing to the escrow's Deposited log (spec §4.6).
package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"

	"github.com/shadowrelay/relayd/internal/chain/escrowbind"
)

// Sentinel errors for the chain-transient / chain-fatal error kinds (spec §7).
var (
	ErrTransient = errors.New("chain: transient failure")
	ErrFatal     = errors.New("chain: transaction mined with non-success status")
)

// DepositEvent is a Deposited log, handed to the matcher (spec §3).
type DepositEvent struct {
	From      string
	Amount    *big.Int
	DepositID *big.Int
	TxHash    string
}

// Client wraps an ethclient.Client plus the escrow binding and the
// operator's signing identity. It is the sole owner of the operator's
// nonce stream: every submission goes through submitMu.
type Client struct {
	backend      *ethclient.Client
	escrow       *escrowbind.Escrow
	escrowAddr   common.Address
	chainID      *big.Int
	operatorKey  *ecdsa.PrivateKey
	operatorAddr common.Address

	submitMu sync.Mutex
}

// Dial connects to rpcURL and binds the Escrow contract at escrowAddr,
// signing outgoing transactions with operatorKey.
func Dial(ctx context.Context, rpcURL string, escrowAddr common.Address, operatorKey *ecdsa.PrivateKey) (*Client, error) {
	backend, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrTransient, rpcURL, err)
	}

	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch chain id: %v", ErrTransient, err)
	}

	escrow, err := escrowbind.NewEscrow(escrowAddr, backend)
	if err != nil {
		return nil, fmt.Errorf("bind escrow contract: %w", err)
	}

	return &Client{
		backend:      backend,
		escrow:       escrow,
		escrowAddr:   escrowAddr,
		chainID:      chainID,
		operatorKey:  operatorKey,
		operatorAddr: crypto.PubkeyToAddress(operatorKey.PublicKey),
	}, nil
}

// OperatorAddress returns the address whose key signs all submissions.
func (c *Client) OperatorAddress() common.Address {
	return c.operatorAddr
}

func (c *Client) transactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(c.operatorKey, c.chainID)
	if err != nil {
		return nil, fmt.Errorf("build transactor: %w", err)
	}
	opts.Context = ctx
	return opts, nil
}

// SubmitWithdrawal calls operatorWithdraw(to, amount, depositID, jobID32)
// and awaits a mined receipt. jobID32 must be derived deterministically and
// stably from the internal job id (spec §4.6, §9) so a retry reuses the
// exact same on-chain replay-protection key.
func (c *Client) SubmitWithdrawal(ctx context.Context, to common.Address, amount, depositID *big.Int, jobID32 [32]byte) (txHash string, err error) {
	c.submitMu.Lock()
	defer c.submitMu.Unlock()

	opts, err := c.transactOpts(ctx)
	if err != nil {
		return "", err
	}

	tx, err := c.escrow.OperatorWithdraw(opts, to, amount, depositID, jobID32)
	if err != nil {
		return "", fmt.Errorf("%w: submit operatorWithdraw: %v", ErrTransient, err)
	}

	receipt, err := bind.WaitMined(ctx, c.backend, tx)
	if err != nil {
		return tx.Hash().Hex(), fmt.Errorf("%w: await receipt: %v", ErrTransient, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return tx.Hash().Hex(), fmt.Errorf("%w: tx %s", ErrFatal, tx.Hash().Hex())
	}

	return tx.Hash().Hex(), nil
}

// SubmitGasFunding sends a small fixed amount of the native token to to. A
// failure here is best-effort from the caller's perspective (spec §4.1 step
// 5): the caller logs and continues, never propagating it as a session
// failure.
func (c *Client) SubmitGasFunding(ctx context.Context, to common.Address, amount *big.Int) (txHash string, err error) {
	c.submitMu.Lock()
	defer c.submitMu.Unlock()

	nonce, err := c.backend.PendingNonceAt(ctx, c.operatorAddr)
	if err != nil {
		return "", fmt.Errorf("%w: fetch nonce: %v", ErrTransient, err)
	}
	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: suggest gas price: %v", ErrTransient, err)
	}

	tx := types.NewTransaction(nonce, to, amount, 21000, gasPrice, nil)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.operatorKey)
	if err != nil {
		return "", fmt.Errorf("sign gas funding tx: %w", err)
	}
	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("%w: send gas funding tx: %v", ErrTransient, err)
	}

	receipt, err := bind.WaitMined(ctx, c.backend, signed)
	if err != nil {
		return signed.Hash().Hex(), fmt.Errorf("%w: await gas funding receipt: %v", ErrTransient, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return signed.Hash().Hex(), fmt.Errorf("%w: gas funding tx %s", ErrFatal, signed.Hash().Hex())
	}

	return signed.Hash().Hex(), nil
}

// SubscribeDeposits returns a channel of DepositEvent delivered in chain
// order. It backfills recent logs before switching to the live watch, and
// transparently re-dials the subscription with backoff on disconnect —
// callers must assume at-least-once delivery (spec §4.6, §9).
func (c *Client) SubscribeDeposits(ctx context.Context, fromBlock uint64) <-chan DepositEvent {
	out := make(chan DepositEvent, 64)

	go func() {
		defer close(out)

		lastBlock := fromBlock
		reconnect := newReconnectBackoff()

		for {
			if ctx.Err() != nil {
				return
			}

			if head, err := c.backend.BlockNumber(ctx); err == nil && head >= lastBlock {
				it, err := c.escrow.FilterDeposited(&bind.FilterOpts{Start: lastBlock, Context: ctx}, nil)
				if err != nil {
					log.Warn("chain: backfill deposited logs failed", "err", err)
				} else {
					for it.Next() {
						ev := it.Event
						select {
						case out <- toDepositEvent(ev):
						case <-ctx.Done():
							it.Close()
							return
						}
						if ev.Raw.BlockNumber >= lastBlock {
							lastBlock = ev.Raw.BlockNumber + 1
						}
					}
					if err := it.Error(); err != nil {
						log.Warn("chain: backfill deposited logs iterator failed", "err", err)
					}
					it.Close()
				}
			}

			sink := make(chan *escrowbind.EscrowDeposited, 64)
			sub, err := c.escrow.WatchDeposited(&bind.WatchOpts{Start: &lastBlock, Context: ctx}, sink, nil)
			if err != nil {
				delay := reconnect.NextBackOff()
				log.Warn("chain: subscribe deposited failed, retrying", "err", err, "backoff", delay)
				if !sleepOrDone(ctx, delay) {
					return
				}
				continue
			}
			reconnect.Reset()

			drained := c.drainSubscription(ctx, sub, sink, out, &lastBlock)
			if !drained {
				return
			}
		}
	}()

	return out
}

func (c *Client) drainSubscription(ctx context.Context, sub event.Subscription, sink chan *escrowbind.EscrowDeposited, out chan<- DepositEvent, lastBlock *uint64) bool {
	defer sub.Unsubscribe()
	for {
		select {
		case ev := <-sink:
			select {
			case out <- toDepositEvent(ev):
			case <-ctx.Done():
				return false
			}
			if ev.Raw.BlockNumber >= *lastBlock {
				*lastBlock = ev.Raw.BlockNumber + 1
			}
		case err := <-sub.Err():
			if err != nil {
				log.Warn("chain: deposited subscription dropped, reconnecting", "err", err)
			}
			return ctx.Err() == nil
		case <-ctx.Done():
			return false
		}
	}
}

func toDepositEvent(ev *escrowbind.EscrowDeposited) DepositEvent {
	return DepositEvent{
		From:      ev.From.Hex(),
		Amount:    new(big.Int).Set(ev.Amount),
		DepositID: new(big.Int).Set(ev.DepositId),
		TxHash:    ev.Raw.TxHash.Hex(),
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// newReconnectBackoff returns an exponential backoff for the subscription
// reconnect loop above, capped at 30s between attempts and never exhausted
// (spec §4.6: the subscription must keep retrying indefinitely).
func newReconnectBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 30 * time.Second
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// JobID32 derives the deterministic, collision-resistant bytes32 the
// contract's replay guard keys on, from the internal job id. Retries must
// call this with the same jobID to get the same on-chain key (spec §4.6,
// §9).
func JobID32(jobID string) [32]byte {
	return crypto.Keccak256Hash([]byte(jobID))
}
