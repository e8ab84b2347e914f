package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileJQFilters(t *testing.T) {
	filters, err := compileJQFilters([]string{`.payment_token == "USDC"`, `.created_account`})
	require.NoError(t, err)
	assert.Len(t, filters, 2)

	_, err = compileJQFilters([]string{`.broken(`})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse jq filter")
}

func TestMatchesFilters(t *testing.T) {
	eventJSON := `{
		"buyer_address": "DYw8jCTfwHNRJhhmFcbXvVDTqWMEVFBX6ZKUmG5CNSKK",
		"payment_token": "USDC",
		"amount_usd": "100",
		"payment_base_units": 100000000,
		"token_base_units": 400000000,
		"created_account": false,
		"instructions": 2
	}`

	var event map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(eventJSON), &event))

	tests := []struct {
		name    string
		filters []string
		want    bool
	}{
		{"no filters matches everything", nil, true},
		{"token match", []string{`.payment_token == "USDC"`}, true},
		{"token mismatch", []string{`.payment_token == "USDT"`}, false},
		{"numeric comparison", []string{`.payment_base_units >= 50000000`}, true},
		{"boolean field false", []string{`.created_account`}, false},
		{"all must match", []string{`.payment_token == "USDC"`, `.instructions == 3`}, false},
		{"contains", []string{`. | contains({payment_token: "USDC"})`}, true},
		{"missing field is null", []string{`.no_such_field`}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filters, err := compileJQFilters(tt.filters)
			require.NoError(t, err)
			assert.Equal(t, tt.want, matchesFilters(event, filters))
		})
	}
}

func TestIsTruthy(t *testing.T) {
	assert.False(t, isTruthy(nil))
	assert.False(t, isTruthy(false))
	assert.True(t, isTruthy(true))
	assert.True(t, isTruthy(0))
	assert.True(t, isTruthy("anything"))
	assert.True(t, isTruthy(map[string]interface{}{}))
}
