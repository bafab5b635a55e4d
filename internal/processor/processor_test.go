package processor

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/shadowrelay/relayd/internal/jobs"
	"github.com/shadowrelay/relayd/internal/queue"
	"github.com/shadowrelay/relayd/internal/session"
)

type fakeWithdrawer struct {
	mu        sync.Mutex
	calls     []string
	failFor   map[string]bool
	txCounter int
}

func newFakeWithdrawer() *fakeWithdrawer {
	return &fakeWithdrawer{failFor: make(map[string]bool)}
}

func (f *fakeWithdrawer) SubmitWithdrawal(_ context.Context, _ common.Address, _, depositID *big.Int, jobID32 [32]byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := depositID.String()
	f.calls = append(f.calls, key)
	if f.failFor[key] {
		return "", errTransient
	}
	f.txCounter++
	return "0xtx", nil
}

var errTransient = &testError{"transient failure"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }

func fakeJobID32(id string) [32]byte {
	var out [32]byte
	copy(out[:], id)
	return out
}

func setup(t *testing.T) (*Processor, *session.Store, *jobs.Table, *queue.InMemory, *fakeWithdrawer) {
	t.Helper()
	store := session.New()
	jobTable := jobs.New()
	q := queue.New()
	w := newFakeWithdrawer()
	p := New(store, jobTable, q, w, fakeJobID32)
	return p, store, jobTable, q, w
}

func TestTickExecutesEligibleJobAndCompletesSession(t *testing.T) {
	p, store, jobTable, q, _ := setup(t)

	rec := store.Create("0xAAA", big.NewInt(1_000_000), "0xNEW", "blob", "report")
	_, err := store.AdvanceToDepositDetected(rec.SessionToken, "0xdeptx", big.NewInt(1))
	require.NoError(t, err)
	_, err = store.AdvanceToWithdrawalQueued(rec.SessionToken)
	require.NoError(t, err)

	job := jobTable.Create(rec.SessionToken, rec.NewAddress, big.NewInt(1_000_010), big.NewInt(1), time.Now().Add(-time.Second))
	q.Push(job.ID)

	require.NoError(t, p.Tick(context.Background()))

	got, err := store.GetForRead(rec.SessionToken)
	require.NoError(t, err)
	require.Equal(t, session.StatusCompleted, got.Status)
	require.Equal(t, "0xtx", got.WithdrawTxHash)
	require.Empty(t, q.Scan())

	_, err = jobTable.Get(job.ID)
	require.ErrorIs(t, err, jobs.ErrNotFound)
}

func TestTickSkipsFutureJobs(t *testing.T) {
	p, _, jobTable, q, w := setup(t)
	job := jobTable.Create("tok", "0xNEW", big.NewInt(1), big.NewInt(1), time.Now().Add(time.Hour))
	q.Push(job.ID)

	require.NoError(t, p.Tick(context.Background()))
	require.Empty(t, w.calls)
	require.Len(t, q.Scan(), 1, "ineligible job must remain queued")
}

func TestTickReschedulesOnFailureWithoutRemoval(t *testing.T) {
	p, _, jobTable, q, w := setup(t)
	job := jobTable.Create("tok", "0xNEW", big.NewInt(1), big.NewInt(42), time.Now().Add(-time.Second))
	q.Push(job.ID)
	w.failFor["42"] = true

	require.NoError(t, p.Tick(context.Background()))

	got, err := jobTable.Get(job.ID)
	require.NoError(t, err)
	require.Equal(t, jobs.StatusPending, got.Status)
	require.True(t, got.ExecuteAfter.After(time.Now()))
	require.Len(t, q.Scan(), 1, "failed job must not be removed from the queue")
}

func TestConcurrentTicksCollapseToOne(t *testing.T) {
	p, _, jobTable, q, w := setup(t)
	job := jobTable.Create("tok", "0xNEW", big.NewInt(1), big.NewInt(99), time.Now().Add(-time.Second))
	q.Push(job.ID)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.Tick(context.Background())
		}()
	}
	wg.Wait()

	w.mu.Lock()
	defer w.mu.Unlock()
	require.LessOrEqual(t, w.txCounter, 1, "no job is ever submitted twice")
}
