package api

import (
	"errors"

	"github.com/shadowrelay/relayd/internal/session"
)

// ErrInvalidInput is returned for missing or ill-formed HTTP fields (spec §7).
var ErrInvalidInput = errors.New("api: invalid input")

// statusFor maps an error kind to its HTTP status code (spec §7).
// invalid-input/invalid-signature -> 400, not-found -> 404,
// invalid-state -> 409, everything else -> 500. No internal state is
// leaked in the response body regardless of which case matches.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidSignature):
		return 400
	case errors.Is(err, session.ErrNotFound):
		return 404
	case errors.Is(err, session.ErrInvalidState):
		return 409
	default:
		return 500
	}
}
