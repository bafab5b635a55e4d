// Package matcher implements the deposit matcher (spec §4.2): it consumes
// Deposited events, correlates them against awaiting sessions within
// tolerance, advances session state, and hands matched sessions to the
// jitter engine to create a withdrawal job.
package matcher

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/log"

	"github.com/shadowrelay/relayd/internal/jitter"
	"github.com/shadowrelay/relayd/internal/jobs"
	"github.com/shadowrelay/relayd/internal/queue"
	"github.com/shadowrelay/relayd/internal/session"
)

// DepositEvent is the subset of chain.DepositEvent the matcher needs. It is
// redeclared here so this package does not import the chain package,
// keeping the matcher testable without a live RPC endpoint.
type DepositEvent struct {
	From      string
	Amount    *big.Int
	DepositID *big.Int
	TxHash    string
}

// Matcher correlates deposit events to awaiting sessions and schedules
// withdrawal jobs for matches.
type Matcher struct {
	store  *session.Store
	jobs   *jobs.Table
	queue  queue.Queue
	jitter *jitter.Policy
}

// New returns a Matcher wired to the given session store, job table, queue,
// and jitter policy.
func New(store *session.Store, jobTable *jobs.Table, q queue.Queue, jitterPolicy *jitter.Policy) *Matcher {
	return &Matcher{store: store, jobs: jobTable, queue: q, jitter: jitterPolicy}
}

// Run consumes events from the given channel until it closes or ctx is
// done. Each event is handled inside a recover-guarded closure, so one
// malformed event never halts the subscription (spec §7).
func (m *Matcher) Run(ctx context.Context, events <-chan DepositEvent) {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			m.handleSafely(ev)
		case <-ctx.Done():
			return
		}
	}
}

func (m *Matcher) handleSafely(ev DepositEvent) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("matcher: recovered from panic handling deposit event", "panic", r, "txHash", ev.TxHash)
		}
	}()
	m.Handle(ev)
}

// Handle processes a single deposit event (spec §4.2 steps 1-5). It is
// exported so tests and a synchronous caller can drive it directly.
func (m *Matcher) Handle(ev DepositEvent) {
	from := strings.ToLower(strings.TrimSpace(ev.From))

	for _, candidate := range m.store.AwaitingDepositSnapshot() {
		if candidate.UserAddress != from {
			continue
		}
		if !withinTolerance(ev.Amount, candidate.ExpectedAmount) {
			continue
		}
		m.matchOne(candidate, ev)
	}
}

func withinTolerance(amount, expected *big.Int) bool {
	diff := new(big.Int).Sub(amount, expected)
	diff.Abs(diff)
	return diff.Cmp(jitter.Tolerance(expected)) <= 0
}

// matchOne advances one matched session and schedules its withdrawal job.
// The awaiting_deposit guard inside AdvanceToDepositDetected makes this
// idempotent under event replay and tolerant of the matcher's deliberate
// over-triggering policy (spec §4.2 tie-breaking).
func (m *Matcher) matchOne(candidate *session.Record, ev DepositEvent) {
	rec, err := m.store.AdvanceToDepositDetected(candidate.SessionToken, ev.TxHash, ev.DepositID)
	if err != nil {
		// Already past awaiting_deposit — a replayed event or a
		// previous candidate in this same scan already claimed it.
		return
	}

	result, err := m.jitter.Apply(rec.ExpectedAmount)
	if err != nil {
		log.Warn("matcher: jitter produced a dust amount, failing session", "token", rec.SessionToken, "err", err)
		if _, ferr := m.store.AdvanceToFailed(rec.SessionToken); ferr != nil {
			log.Error("matcher: failed to mark session failed", "token", rec.SessionToken, "err", ferr)
		}
		return
	}

	job := m.jobs.Create(rec.SessionToken, rec.NewAddress, result.NormalizedAmount, rec.DepositID, result.ExecuteAfter)
	m.queue.Push(job.ID)

	if _, err := m.store.AdvanceToWithdrawalQueued(rec.SessionToken); err != nil {
		log.Error("matcher: failed to advance session to withdrawal_queued", "token", rec.SessionToken, "err", err)
		return
	}

	log.Info("matcher: deposit matched, withdrawal job scheduled",
		"token", rec.SessionToken, "jobID", job.ID,
		"amount", fmt.Sprint(result.NormalizedAmount), "executeAfter", result.ExecuteAfter)
}
