// Package session implements the server-side session store: the in-memory
// mapping of opaque session tokens to session records, and the state
// machine a session moves through from creation to completion.
package session

import (
	"errors"
	"math/big"
	"strings"
	"time"
)

// Status is a session's position in its state machine. Sessions advance
// forward only.
type Status string

const (
	StatusAwaitingDeposit  Status = "awaiting_deposit"
	StatusDepositDetected  Status = "deposit_detected"
	StatusWithdrawalQueued Status = "withdrawal_queued"
	StatusCompleted        Status = "completed"
	StatusFailed           Status = "failed"
)

// Sentinel errors for the error kinds this package can produce (spec §7).
var (
	ErrNotFound     = errors.New("session: not found")
	ErrInvalidState = errors.New("session: invalid state")
)

// Record is a single session. Fields set at creation (UserAddress,
// ExpectedAmount, NewAddress, EncryptedKeyForUser, AttestationReport) are
// never rewritten after Create returns.
type Record struct {
	ID             string
	SessionToken   string
	UserAddress    string
	ExpectedAmount *big.Int

	Status Status

	NewAddress          string
	EncryptedKeyForUser string
	AttestationReport   string

	DepositTxHash  string
	DepositID      *big.Int
	WithdrawTxHash string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// clone returns a value copy safe to hand to a caller outside the lock.
func (r *Record) clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	if r.ExpectedAmount != nil {
		out.ExpectedAmount = new(big.Int).Set(r.ExpectedAmount)
	}
	if r.DepositID != nil {
		out.DepositID = new(big.Int).Set(r.DepositID)
	}
	return &out
}

// WithoutKeyMaterial returns a copy of the record with fields that must
// never be exposed on the status endpoint cleared (spec §4.1).
func (r *Record) WithoutKeyMaterial() *Record {
	out := r.clone()
	out.EncryptedKeyForUser = ""
	return out
}

// normalizeAddress lower-cases an address string to the canonical form used
// throughout matching (spec §3, §4.2).
func normalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
