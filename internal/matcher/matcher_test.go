package matcher

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shadowrelay/relayd/internal/jitter"
	"github.com/shadowrelay/relayd/internal/jobs"
	"github.com/shadowrelay/relayd/internal/queue"
	"github.com/shadowrelay/relayd/internal/session"
)

func newTestMatcher() (*Matcher, *session.Store, *jobs.Table, *queue.InMemory) {
	store := session.New()
	jobTable := jobs.New()
	q := queue.New()
	policy := jitter.NewPolicy()
	return New(store, jobTable, q, policy), store, jobTable, q
}

func TestHandleMatchesWithinToleranceAndSchedulesJob(t *testing.T) {
	m, store, jobTable, q := newTestMatcher()
	rec := store.Create("0xAAA", big.NewInt(2_000_000), "0xNEW", "blob", "report")

	m.Handle(DepositEvent{From: "0xAAA", Amount: big.NewInt(2_000_000), DepositID: big.NewInt(7), TxHash: "0xtx"})

	got, err := store.GetForRead(rec.SessionToken)
	require.NoError(t, err)
	require.Equal(t, session.StatusWithdrawalQueued, got.Status)
	require.Equal(t, "0xtx", got.DepositTxHash)

	ids := q.Scan()
	require.Len(t, ids, 1)
	job, err := jobTable.Get(ids[0])
	require.NoError(t, err)
	require.Equal(t, rec.SessionToken, job.SessionToken)
}

func TestHandleIgnoresUnmatchedDepositor(t *testing.T) {
	m, store, _, q := newTestMatcher()
	rec := store.Create("0xAAA", big.NewInt(2_000_000), "0xNEW", "blob", "report")

	m.Handle(DepositEvent{From: "0xBBB", Amount: big.NewInt(2_000_000), DepositID: big.NewInt(8), TxHash: "0xtx"})

	got, err := store.GetForRead(rec.SessionToken)
	require.NoError(t, err)
	require.Equal(t, session.StatusAwaitingDeposit, got.Status)
	require.Empty(t, q.Scan())
}

func TestHandleIgnoresOutOfToleranceAmount(t *testing.T) {
	m, store, _, _ := newTestMatcher()
	rec := store.Create("0xAAA", big.NewInt(10_000_000_000), "0xNEW", "blob", "report")

	// tolerance = 1_000_000; diff of 1_000_001 must not match.
	m.Handle(DepositEvent{From: "0xAAA", Amount: big.NewInt(10_001_000_001), DepositID: big.NewInt(1), TxHash: "0xtx"})

	got, err := store.GetForRead(rec.SessionToken)
	require.NoError(t, err)
	require.Equal(t, session.StatusAwaitingDeposit, got.Status)
}

func TestHandleToleranceBoundaryMatches(t *testing.T) {
	m, store, _, _ := newTestMatcher()
	rec := store.Create("0xAAA", big.NewInt(10_000_000_000), "0xNEW", "blob", "report")

	// tolerance = 1_000_000; diff of exactly 1_000_000 must match.
	m.Handle(DepositEvent{From: "0xAAA", Amount: big.NewInt(10_001_000_000), DepositID: big.NewInt(1), TxHash: "0xtx"})

	got, err := store.GetForRead(rec.SessionToken)
	require.NoError(t, err)
	require.Equal(t, session.StatusWithdrawalQueued, got.Status)
}

func TestHandleEventReplayIsIdempotent(t *testing.T) {
	m, store, _, q := newTestMatcher()
	rec := store.Create("0xAAA", big.NewInt(2_000_000), "0xNEW", "blob", "report")

	ev := DepositEvent{From: "0xAAA", Amount: big.NewInt(2_000_000), DepositID: big.NewInt(7), TxHash: "0xtx"}
	m.Handle(ev)
	m.Handle(ev) // replay

	got, err := store.GetForRead(rec.SessionToken)
	require.NoError(t, err)
	require.Equal(t, session.StatusWithdrawalQueued, got.Status)
	require.Len(t, q.Scan(), 1, "replay must not create a second job")
}
