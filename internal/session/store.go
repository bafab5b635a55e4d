package session

import (
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is the single owning module for session records. All mutation is
// serialized internally; callers never see a partially-updated record.
// Token lookup is a map access; the matcher's search for awaiting sessions
// is a bounded linear scan — spec §4.2 accepts O(n) over the active
// session count for the reference design's expected workload.
type Store struct {
	mu      sync.Mutex
	byToken map[string]*Record
}

// New returns an empty, ready-to-use store.
func New() *Store {
	return &Store{byToken: make(map[string]*Record)}
}

// Create inserts a fresh record in StatusAwaitingDeposit and returns a
// snapshot of it, including its session token. userAddress must already be the recovered signer, never
// caller-supplied.
func (s *Store) Create(userAddress string, expectedAmount *big.Int, newAddress, encryptedKeyForUser, attestationReport string) *Record {
	now := time.Now().UTC()
	rec := &Record{
		ID:                  uuid.NewString(),
		SessionToken:        uuid.NewString(),
		UserAddress:         normalizeAddress(userAddress),
		ExpectedAmount:      new(big.Int).Set(expectedAmount),
		Status:              StatusAwaitingDeposit,
		NewAddress:          newAddress,
		EncryptedKeyForUser: encryptedKeyForUser,
		AttestationReport:   attestationReport,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	s.mu.Lock()
	s.byToken[rec.SessionToken] = rec
	s.mu.Unlock()

	return rec.clone()
}

// GetForRead returns a snapshot of the record for the given token, or
// ErrNotFound.
func (s *Store) GetForRead(token string) (*Record, error) {
	s.mu.Lock()
	rec, ok := s.byToken[token]
	s.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	return rec.clone(), nil
}

// AwaitingDepositSnapshot returns a snapshot of every record currently in
// StatusAwaitingDeposit, for the matcher to scan (spec §4.2 step 2).
func (s *Store) AwaitingDepositSnapshot() []*Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Record, 0, len(s.byToken))
	for _, rec := range s.byToken {
		if rec.Status == StatusAwaitingDeposit {
			out = append(out, rec.clone())
		}
	}
	return out
}

// AdvanceToDepositDetected moves a session from awaiting_deposit to
// deposit_detected, recording the matched deposit. It is a no-op error if
// the session is not in awaiting_deposit — this is the idempotence guard
// spec §4.2/§8 relies on for event replay.
func (s *Store) AdvanceToDepositDetected(token, depositTxHash string, depositID *big.Int) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byToken[token]
	if !ok {
		return nil, ErrNotFound
	}
	if rec.Status != StatusAwaitingDeposit {
		return nil, ErrInvalidState
	}

	rec.Status = StatusDepositDetected
	rec.DepositTxHash = depositTxHash
	rec.DepositID = new(big.Int).Set(depositID)
	rec.UpdatedAt = time.Now().UTC()

	return rec.clone(), nil
}

// AdvanceToWithdrawalQueued moves a session from deposit_detected to
// withdrawal_queued, once the jitter engine has produced a job for it.
func (s *Store) AdvanceToWithdrawalQueued(token string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byToken[token]
	if !ok {
		return nil, ErrNotFound
	}
	if rec.Status != StatusDepositDetected {
		return nil, ErrInvalidState
	}

	rec.Status = StatusWithdrawalQueued
	rec.UpdatedAt = time.Now().UTC()

	return rec.clone(), nil
}

// AdvanceToFailed moves a session to failed, from any pre-completion state.
// Used when the jitter engine cannot produce a dispatchable amount (spec
// §4.3 dust guard).
func (s *Store) AdvanceToFailed(token string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byToken[token]
	if !ok {
		return nil, ErrNotFound
	}
	if rec.Status == StatusCompleted || rec.Status == StatusFailed {
		return nil, ErrInvalidState
	}

	rec.Status = StatusFailed
	rec.UpdatedAt = time.Now().UTC()

	return rec.clone(), nil
}

// AdvanceToCompleted moves a session from withdrawal_queued to completed,
// recording the withdrawal transaction hash.
func (s *Store) AdvanceToCompleted(token, withdrawTxHash string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byToken[token]
	if !ok {
		return nil, ErrNotFound
	}
	if rec.Status != StatusWithdrawalQueued {
		return nil, ErrInvalidState
	}

	rec.Status = StatusCompleted
	rec.WithdrawTxHash = withdrawTxHash
	rec.UpdatedAt = time.Now().UTC()

	return rec.clone(), nil
}
