// Package processor implements the batch processor (spec §4.4): a periodic,
// single-flight tick that shuffles eligible jobs and submits them for
// withdrawal in sequence, retrying failures with backoff.
package processor

import (
	"context"
	"math/big"
	"math/rand/v2"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/singleflight"

	"github.com/shadowrelay/relayd/internal/jobs"
	"github.com/shadowrelay/relayd/internal/queue"
	"github.com/shadowrelay/relayd/internal/session"
)

const (
	retryMinSeconds = 30
	retryMaxSeconds = 120
)

// Withdrawer is the chain-facing surface the processor needs: submit an
// operatorWithdraw and await its receipt. chain.Client satisfies this.
type Withdrawer interface {
	SubmitWithdrawal(ctx context.Context, to common.Address, amount, depositID *big.Int, jobID32 [32]byte) (txHash string, err error)
}

// JobIDHasher derives the on-chain replay-protection key from an internal
// job id. chain.JobID32 satisfies this.
type JobIDHasher func(jobID string) [32]byte

// Processor runs the periodic withdrawal tick.
type Processor struct {
	store      *session.Store
	jobs       *jobs.Table
	queue      queue.Queue
	withdrawer Withdrawer
	jobID32    JobIDHasher

	now func() time.Time

	flight singleflight.Group
}

// New returns a Processor wired to its dependencies.
func New(store *session.Store, jobTable *jobs.Table, q queue.Queue, withdrawer Withdrawer, jobID32 JobIDHasher) *Processor {
	return &Processor{
		store:      store,
		jobs:       jobTable,
		queue:      q,
		withdrawer: withdrawer,
		jobID32:    jobID32,
		now:        time.Now,
	}
}

// Run ticks every period until ctx is done. Overlapping ticks are
// collapsed by the single-flight guard rather than queued (spec §4.4, §5,
// §9) — a tick that is still running when the next one fires is simply
// joined, not duplicated.
func (p *Processor) Run(ctx context.Context, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := p.Tick(ctx); err != nil {
				log.Error("processor: tick failed", "err", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Tick runs one pass: scan, filter eligible, shuffle, submit sequentially.
// Concurrent callers collapse onto the same in-flight tick.
func (p *Processor) Tick(ctx context.Context) error {
	_, err, _ := p.flight.Do("tick", func() (interface{}, error) {
		p.tickOnce(ctx)
		return nil, nil
	})
	return err
}

func (p *Processor) tickOnce(ctx context.Context) {
	ids := p.queue.Scan()
	eligible := p.jobs.EligibleAt(ids, p.now())
	shuffle(eligible)

	for _, job := range eligible {
		p.submitOne(ctx, job)
	}
}

// submitOne executes a single job. No parallel submission: the operator has
// one nonce stream, so jobs within a tick execute strictly sequentially
// (spec §4.4, §5).
func (p *Processor) submitOne(ctx context.Context, job *jobs.Job) {
	jobID32 := p.jobID32(job.ID)
	to := common.HexToAddress(job.NewAddress)

	txHash, err := p.withdrawer.SubmitWithdrawal(ctx, to, job.NormalizedAmount, job.DepositID, jobID32)
	if err != nil {
		next := p.now().Add(randomRetryDelay())
		if rerr := p.jobs.Reschedule(job.ID, next); rerr != nil {
			log.Error("processor: failed to reschedule job after submission error", "jobID", job.ID, "err", rerr)
		}
		log.Warn("processor: withdrawal submission failed, rescheduled", "jobID", job.ID, "sessionToken", job.SessionToken, "nextAttempt", next, "err", err)
		return
	}

	if err := p.jobs.Complete(job.ID); err != nil {
		log.Error("processor: failed to mark job completed", "jobID", job.ID, "err", err)
	}
	p.queue.Remove(job.ID)

	if _, err := p.store.AdvanceToCompleted(job.SessionToken, txHash); err != nil {
		log.Error("processor: failed to advance session to completed", "sessionToken", job.SessionToken, "err", err)
	}

	log.Info("processor: withdrawal completed", "jobID", job.ID, "sessionToken", job.SessionToken, "txHash", txHash)
}

// randomRetryDelay samples uniformly from [30s, 120s] per spec §4.4 — each
// job's retry is independent, not a cumulative backoff series, so this
// mirrors jitter.go's own uniform-sampling pattern rather than reaching for
// an exponential-backoff library to express a fixed window.
func randomRetryDelay() time.Duration {
	seconds := retryMinSeconds + rand.IntN(retryMaxSeconds-retryMinSeconds+1)
	return time.Duration(seconds) * time.Second
}

// shuffle performs an in-place Fisher-Yates shuffle with a uniform RNG,
// decoupling withdrawal order from session-creation order within a tick
// (spec §4.4) — the only cheap defense against rank-based correlation.
func shuffle(jobs []*jobs.Job) {
	rand.Shuffle(len(jobs), func(i, j int) { jobs[i], jobs[j] = jobs[j], jobs[i] })
}

