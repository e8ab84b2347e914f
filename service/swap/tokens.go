package swap

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// PaymentToken selects which stablecoin the buyer pays with.
// A small closed variant: each value maps to a (mint, decimals) pair.
type PaymentToken string

const (
	PaymentUSDC PaymentToken = "USDC"
	PaymentUSDT PaymentToken = "USDT"
)

// Both USDC and USDT use 6 decimals on Solana.
const stablecoinDecimals = 6

// TokenInfo is the on-chain identity of a payment token.
type TokenInfo struct {
	Mint     solana.PublicKey
	Decimals uint8
}

// ParsePaymentToken validates a payment token tag from an API request.
func ParsePaymentToken(s string) (PaymentToken, error) {
	switch PaymentToken(s) {
	case PaymentUSDC:
		return PaymentUSDC, nil
	case PaymentUSDT:
		return PaymentUSDT, nil
	default:
		return "", fmt.Errorf("%w: unsupported token type %q (must be USDC or USDT)", ErrInvalidRequest, s)
	}
}
