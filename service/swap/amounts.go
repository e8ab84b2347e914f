package swap

import (
	"fmt"

	"cosmossdk.io/math"
)

// toBaseUnits converts a human-readable token amount to integer base units:
// round(amount * 10^decimals). The conversion happens exactly once per leg so
// no floating rounding drift can accumulate at the boundary.
func toBaseUnits(amount math.LegacyDec, decimals uint8) (uint64, error) {
	scaled := amount.Mul(math.LegacyNewDec(10).Power(uint64(decimals))).RoundInt()
	if scaled.IsNegative() {
		return 0, fmt.Errorf("amount is negative: %s", amount)
	}
	if !scaled.BigInt().IsUint64() {
		return 0, fmt.Errorf("amount overflows base units: %s", amount)
	}
	return scaled.Uint64(), nil
}

// paymentLegBaseUnits computes the stablecoin amount the buyer pays.
func paymentLegBaseUnits(usdAmount math.LegacyDec) (uint64, error) {
	return toBaseUnits(usdAmount, stablecoinDecimals)
}

// tokenLegBaseUnits computes the project-token amount the buyer receives:
// round((usdAmount / pricePerToken) * 10^decimals).
func tokenLegBaseUnits(usdAmount, pricePerToken math.LegacyDec, decimals uint8) (uint64, error) {
	return toBaseUnits(usdAmount.Quo(pricePerToken), decimals)
}

// TokensReceived returns the human-readable project-token quantity a USD
// amount buys. The server recomputes base units independently during the
// build; the two always agree because both divide by the same fixed price.
func TokensReceived(usdAmount, pricePerToken math.LegacyDec) math.LegacyDec {
	return usdAmount.Quo(pricePerToken)
}
