package swap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePaymentToken(t *testing.T) {
	tok, err := ParsePaymentToken("USDC")
	require.NoError(t, err)
	assert.Equal(t, PaymentUSDC, tok)

	tok, err = ParsePaymentToken("USDT")
	require.NoError(t, err)
	assert.Equal(t, PaymentUSDT, tok)

	for _, bad := range []string{"", "usdc", "SOL", "DOGE"} {
		_, err := ParsePaymentToken(bad)
		require.Error(t, err, "token %q should be rejected", bad)
		assert.ErrorIs(t, err, ErrInvalidRequest)
	}
}
