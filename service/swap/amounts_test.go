package swap

import (
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToBaseUnits(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		decimals uint8
		want     uint64
		wantErr  bool
	}{
		{"whole dollars", "100", 6, 100_000_000, false},
		{"cents", "0.25", 6, 250_000, false},
		{"fractional rounding up", "0.0000006", 6, 1, false},
		{"fractional rounding down", "0.0000004", 6, 0, false},
		{"zero", "0", 6, 0, false},
		{"zero decimals", "42", 0, 42, false},
		{"negative", "-1", 6, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := toBaseUnits(math.LegacyMustNewDecFromStr(tt.amount), tt.decimals)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTokenLegBaseUnits(t *testing.T) {
	price := math.LegacyMustNewDecFromStr("0.25")

	got, err := tokenLegBaseUnits(math.LegacyMustNewDecFromStr("100"), price, 6)
	require.NoError(t, err)
	assert.Equal(t, uint64(400_000_000), got)

	// A price that doesn't divide evenly still rounds exactly once.
	got, err = tokenLegBaseUnits(math.LegacyMustNewDecFromStr("1"), math.LegacyMustNewDecFromStr("0.3"), 6)
	require.NoError(t, err)
	assert.Equal(t, uint64(3_333_333), got)
}

func TestTokensReceived(t *testing.T) {
	price := math.LegacyMustNewDecFromStr("0.25")
	got := TokensReceived(math.LegacyMustNewDecFromStr("100"), price)
	assert.True(t, got.Equal(math.LegacyNewDec(400)))
}
