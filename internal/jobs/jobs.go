// Package jobs implements the pending-job table keyed by job id (spec §3,
// §4.4): withdrawal jobs created by a deposit match, consumed and retried
// by the batch processor.
package jobs

import (
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is a job's position in its (much shorter) state machine.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// ErrNotFound is returned when a job id has no table entry.
var ErrNotFound = errors.New("jobs: not found")

// Job is a scheduled, not-yet-executed withdrawal from the pool to a
// session's NewAddress.
type Job struct {
	ID               string
	SessionToken     string
	NewAddress       string
	NormalizedAmount *big.Int
	DepositID        *big.Int
	ExecuteAfter     time.Time
	Status           Status
}

func (j *Job) clone() *Job {
	out := *j
	if j.NormalizedAmount != nil {
		out.NormalizedAmount = new(big.Int).Set(j.NormalizedAmount)
	}
	if j.DepositID != nil {
		out.DepositID = new(big.Int).Set(j.DepositID)
	}
	return &out
}

// Table is the in-memory job table. Volatile by design (spec §9) — it must
// be paired with an equally volatile or equally durable queue.Queue.
type Table struct {
	mu   sync.Mutex
	byID map[string]*Job
}

// New returns an empty job table.
func New() *Table {
	return &Table{byID: make(map[string]*Job)}
}

// Create inserts a new pending job and returns it. Exactly one job is
// created per successful deposit match (spec §3 invariant).
func (t *Table) Create(sessionToken, newAddress string, normalizedAmount, depositID *big.Int, executeAfter time.Time) *Job {
	job := &Job{
		ID:               uuid.NewString(),
		SessionToken:     sessionToken,
		NewAddress:       newAddress,
		NormalizedAmount: new(big.Int).Set(normalizedAmount),
		DepositID:        new(big.Int).Set(depositID),
		ExecuteAfter:     executeAfter,
		Status:           StatusPending,
	}

	t.mu.Lock()
	t.byID[job.ID] = job
	t.mu.Unlock()

	return job.clone()
}

// Get returns a snapshot of the job with the given id.
func (t *Table) Get(id string) (*Job, error) {
	t.mu.Lock()
	job, ok := t.byID[id]
	t.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	return job.clone(), nil
}

// Reschedule leaves a job pending but pushes its ExecuteAfter out — used
// after a failed submission (spec §4.4).
func (t *Table) Reschedule(id string, executeAfter time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.byID[id]
	if !ok {
		return ErrNotFound
	}
	job.ExecuteAfter = executeAfter
	return nil
}

// Complete marks a job completed and removes it from the table — a
// completed job is never retained (spec §3 invariant).
func (t *Table) Complete(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.byID[id]; !ok {
		return ErrNotFound
	}
	delete(t.byID, id)
	return nil
}

// EligibleAt returns a snapshot of every pending job in ids whose
// ExecuteAfter is at or before now. Unknown ids are silently discarded
// (spec §4.4 step 2).
func (t *Table) EligibleAt(ids []string, now time.Time) []*Job {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]*Job, 0, len(ids))
	for _, id := range ids {
		job, ok := t.byID[id]
		if !ok || job.Status != StatusPending {
			continue
		}
		if job.ExecuteAfter.After(now) {
			continue
		}
		out = append(out, job.clone())
	}
	return out
}
