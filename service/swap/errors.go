package swap

import "errors"

var (
	// ErrInvalidRequest indicates malformed or missing input. Never retried;
	// surfaced verbatim to the caller as a 400-class error.
	ErrInvalidRequest = errors.New("invalid swap request")

	// ErrAccountResolution indicates the destination account lookup failed for
	// a reason other than not-found (e.g. the address is occupied by an
	// account with an unexpected owner).
	ErrAccountResolution = errors.New("account resolution failed")

	// ErrUpstream indicates a network or RPC failure while building the
	// transaction. Surfaced as a 500-class error.
	ErrUpstream = errors.New("upstream failure")
)
