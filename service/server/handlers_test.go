package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satoshistrike/presale/service/config"
	"github.com/satoshistrike/presale/service/events"
	"github.com/satoshistrike/presale/service/swap"
)

// mockBuilder implements SwapBuilder for handler tests.
type mockBuilder struct {
	built   *swap.BuiltSwap
	err     error
	lastReq swap.Request
	calls   int
}

func (m *mockBuilder) Build(ctx context.Context, req swap.Request) (*swap.BuiltSwap, error) {
	m.calls++
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.built, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testBuyerAddress(t *testing.T) string {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return key.PublicKey().String()
}

func postCreateTransaction(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/create-transaction", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleCreateTransaction_Success(t *testing.T) {
	builder := &mockBuilder{
		built: &swap.BuiltSwap{
			Base64:           "dGVzdC10cmFuc2FjdGlvbg==",
			PaymentAmount:    100_000_000,
			TokenAmount:      400_000_000,
			InstructionCount: 2,
		},
	}
	handler := handleCreateTransaction(builder, nil, testLogger())

	addr := testBuyerAddress(t)
	body := fmt.Sprintf(`{"userAddress": %q, "amountUSD": "100", "tokenType": "USDC"}`, addr)
	rec := postCreateTransaction(t, handler, body)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "dGVzdC10cmFuc2FjdGlvbg==", resp["transaction"])

	assert.Equal(t, addr, builder.lastReq.Buyer.String())
	assert.Equal(t, swap.PaymentUSDC, builder.lastReq.Token)
	assert.True(t, builder.lastReq.AmountUSD.Equal(math.LegacyNewDec(100)))
}

func TestHandleCreateTransaction_NumericAmount(t *testing.T) {
	builder := &mockBuilder{built: &swap.BuiltSwap{Base64: "eA=="}}
	handler := handleCreateTransaction(builder, nil, testLogger())

	// amountUSD as a JSON number instead of a string
	body := fmt.Sprintf(`{"userAddress": %q, "amountUSD": 42.5, "tokenType": "USDT"}`, testBuyerAddress(t))
	rec := postCreateTransaction(t, handler, body)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, builder.lastReq.AmountUSD.Equal(math.LegacyMustNewDecFromStr("42.5")))
}

func TestHandleCreateTransaction_InvalidJSON(t *testing.T) {
	builder := &mockBuilder{}
	handler := handleCreateTransaction(builder, nil, testLogger())

	rec := postCreateTransaction(t, handler, `{not json`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, builder.calls)
}

func TestHandleCreateTransaction_MissingFields(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing address", `{"amountUSD": "100", "tokenType": "USDC"}`},
		{"missing amount", fmt.Sprintf(`{"userAddress": %q, "tokenType": "USDC"}`, "11111111111111111111111111111112")},
		{"missing token", fmt.Sprintf(`{"userAddress": %q, "amountUSD": "100"}`, "11111111111111111111111111111112")},
		{"bad address", `{"userAddress": "nope", "amountUSD": "100", "tokenType": "USDC"}`},
		{"bad token", `{"userAddress": "11111111111111111111111111111112", "amountUSD": "100", "tokenType": "SOL"}`},
		{"amount not numeric", `{"userAddress": "11111111111111111111111111111112", "amountUSD": "abc", "tokenType": "USDC"}`},
		{"amount wrong type", `{"userAddress": "11111111111111111111111111111112", "amountUSD": true, "tokenType": "USDC"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			builder := &mockBuilder{}
			handler := handleCreateTransaction(builder, nil, testLogger())

			rec := postCreateTransaction(t, handler, tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Zero(t, builder.calls, "builder must not run for invalid input")

			var resp map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp["error"])
		})
	}
}

func TestHandleCreateTransaction_BuilderInvalidRequest(t *testing.T) {
	builder := &mockBuilder{err: fmt.Errorf("%w: minimum purchase is $1", swap.ErrInvalidRequest)}
	handler := handleCreateTransaction(builder, nil, testLogger())

	body := fmt.Sprintf(`{"userAddress": %q, "amountUSD": "0.5", "tokenType": "USDC"}`, testBuyerAddress(t))
	rec := postCreateTransaction(t, handler, body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "minimum purchase")
}

func TestHandleCreateTransaction_BuilderUpstreamError(t *testing.T) {
	builder := &mockBuilder{err: fmt.Errorf("%w: failed to fetch latest blockhash", swap.ErrUpstream)}
	handler := handleCreateTransaction(builder, nil, testLogger())

	body := fmt.Sprintf(`{"userAddress": %q, "amountUSD": "100", "tokenType": "USDC"}`, testBuyerAddress(t))
	rec := postCreateTransaction(t, handler, body)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleCreateTransaction_PublishesEvent(t *testing.T) {
	builder := &mockBuilder{
		built: &swap.BuiltSwap{
			Base64:           "eA==",
			PaymentAmount:    10_000_000,
			TokenAmount:      40_000_000,
			CreatedAccount:   true,
			InstructionCount: 3,
		},
	}
	publisher := events.NewMockPublisher()
	handler := handleCreateTransaction(builder, publisher, testLogger())

	addr := testBuyerAddress(t)
	body := fmt.Sprintf(`{"userAddress": %q, "amountUSD": "10", "tokenType": "USDC"}`, addr)
	rec := postCreateTransaction(t, handler, body)

	require.Equal(t, http.StatusOK, rec.Code)

	published := publisher.GetPublishedEvents()
	require.Len(t, published, 1)
	assert.Equal(t, addr, published[0].BuyerAddress)
	assert.Equal(t, "USDC", published[0].PaymentToken)
	assert.Equal(t, uint64(10_000_000), published[0].PaymentBaseUnits)
	assert.Equal(t, uint64(40_000_000), published[0].TokenBaseUnits)
	assert.True(t, published[0].CreatedAccount)
	assert.Equal(t, 3, published[0].Instructions)
}

func TestHandleCreateTransaction_PublishFailureDoesNotFailRequest(t *testing.T) {
	builder := &mockBuilder{built: &swap.BuiltSwap{Base64: "eA=="}}
	publisher := events.NewMockPublisher()
	publisher.SetPublishError(assert.AnError)
	handler := handleCreateTransaction(builder, publisher, testLogger())

	body := fmt.Sprintf(`{"userAddress": %q, "amountUSD": "10", "tokenType": "USDC"}`, testBuyerAddress(t))
	rec := postCreateTransaction(t, handler, body)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleSaleInfo(t *testing.T) {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	cfg := &config.Config{
		TreasuryKey:    key,
		USDCMint:       solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"),
		USDTMint:       solana.MustPublicKeyFromBase58("Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"),
		SSFMint:        solana.MustPublicKeyFromBase58("GQgPoRVDbxy47neUJ9j7zF6TrCXWLPUbs5W7y3rnB84L"),
		SSFDecimals:    6,
		PricePerToken:  math.LegacyMustNewDecFromStr("0.25"),
		MinPurchaseUSD: math.LegacyMustNewDecFromStr("1.00"),
	}
	handler := handleSaleInfo(cfg, testLogger())

	req := httptest.NewRequest("GET", "/sale", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp saleInfoResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, cfg.SSFMint.String(), resp.ProjectMint)
	assert.Equal(t, uint8(6), resp.ProjectDecimals)
	assert.Equal(t, cfg.USDCMint.String(), resp.PaymentTokens["USDC"])
	assert.Equal(t, cfg.USDTMint.String(), resp.PaymentTokens["USDT"])
}

func TestCORSMiddleware(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := corsMiddleware(inner)

	// Preflight request gets headers and 204 without reaching the handler
	req := httptest.NewRequest("OPTIONS", "/create-transaction", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")

	// Normal requests pass through with headers applied
	req = httptest.NewRequest("GET", "/health", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestAmountToString(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"string", `"100"`, "100", false},
		{"number", `42.5`, "42.5", false},
		{"integer", `7`, "7", false},
		{"empty", ``, "", true},
		{"bool", `true`, "", true},
		{"object", `{}`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var raw json.RawMessage
			if tt.raw != "" {
				raw = json.RawMessage(tt.raw)
			}
			got, err := amountToString(raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
