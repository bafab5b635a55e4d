// Package jitter computes the normalized withdrawal amount and scheduling
// delay for a matched deposit (spec §4.3). All monetary arithmetic is
// integer-only; no float ever touches an amount.
package jitter

import (
	"errors"
	"math/big"
	"math/rand/v2"
	"time"
)

// ErrDust is returned when the jittered amount would round to zero or
// below — the session must fail rather than dispatch a dust transfer.
var ErrDust = errors.New("jitter: normalized amount rounds to zero")

const (
	ppmMin = -30
	ppmMax = 40

	delayMinSeconds = 1
)

// Result is the outcome of applying the jitter policy to one expected
// amount.
type Result struct {
	NormalizedAmount *big.Int
	ExecuteAfter     time.Time
}

// Policy samples amount and delay jitter. DelayMaxSeconds is the single
// named configuration knob spec §4.3 allows for widening the delay window
// from the default [1,10] to [1,60].
type Policy struct {
	DelayMaxSeconds int
	Now             func() time.Time
}

// NewPolicy returns a policy with the default [1,10]s delay window.
func NewPolicy() *Policy {
	return &Policy{DelayMaxSeconds: 10, Now: time.Now}
}

// Apply samples ppm in [-30, 40] and delay in [1, DelayMaxSeconds], and
// computes the normalized amount by truncating integer division — never
// floating point. Returns ErrDust if the result is not strictly positive.
func (p *Policy) Apply(expected *big.Int) (Result, error) {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}

	ppm := int64(ppmMin + rand.IntN(ppmMax-ppmMin+1))

	delayMax := p.DelayMaxSeconds
	if delayMax < delayMinSeconds {
		delayMax = delayMinSeconds
	}
	delaySeconds := delayMinSeconds + rand.IntN(delayMax-delayMinSeconds+1)

	adjustment := new(big.Int).Mul(expected, big.NewInt(ppm))
	adjustment.Quo(adjustment, big.NewInt(1_000_000)) // truncation toward zero

	normalized := new(big.Int).Add(expected, adjustment)
	if normalized.Sign() <= 0 {
		return Result{}, ErrDust
	}

	return Result{
		NormalizedAmount: normalized,
		ExecuteAfter:     now().Add(time.Duration(delaySeconds) * time.Second),
	}, nil
}

// Tolerance returns the matcher's acceptance window around expected: 0.01%
// of expected, minimum one smallest unit (spec §4.2).
func Tolerance(expected *big.Int) *big.Int {
	tol := new(big.Int).Quo(expected, big.NewInt(10_000))
	if tol.Sign() <= 0 {
		return big.NewInt(1)
	}
	return tol
}
