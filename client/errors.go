package client

import (
	"errors"
	"strings"
)

var (
	// ErrBelowMinimum indicates the USD amount is under the sale minimum.
	// Detected locally before any network call.
	ErrBelowMinimum = errors.New("amount is below the minimum purchase")

	// ErrInsufficientFunds indicates the buyer's balance of the selected
	// payment token cannot cover the purchase. Advisory: on-chain execution
	// is the authority of record and fails atomically if bypassed.
	ErrInsufficientFunds = errors.New("insufficient balance for selected token")

	// ErrUserRejected indicates the user declined to sign in their wallet.
	// Terminal; no retry.
	ErrUserRejected = errors.New("transaction rejected by user")

	// ErrStaleBlockhash indicates the transaction's blockhash expired before
	// submission. The whole flow must restart with a fresh transaction.
	ErrStaleBlockhash = errors.New("transaction expired, request a fresh one")
)

// classifySubmitError maps raw wallet/RPC error text onto the client error
// taxonomy so callers can show friendly copy instead of raw RPC output.
func classifySubmitError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "user rejected"), strings.Contains(msg, "rejected the request"):
		return ErrUserRejected
	case strings.Contains(msg, "blockhash not found"), strings.Contains(msg, "block height exceeded"):
		return ErrStaleBlockhash
	default:
		return err
	}
}
