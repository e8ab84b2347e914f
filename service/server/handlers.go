package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/satoshistrike/presale/service/config"
	"github.com/satoshistrike/presale/service/events"
	"github.com/satoshistrike/presale/service/swap"
)

const (
	maxRequestBodySize = 1 << 20 // 1MB - plenty for a swap request
)

// createTransactionRequest is the JSON request body for POST /create-transaction.
// amountUSD may arrive as a JSON string or a JSON number; the widget sends
// whatever its input state holds.
type createTransactionRequest struct {
	UserAddress string          `json:"userAddress"`
	AmountUSD   json.RawMessage `json:"amountUSD"`
	TokenType   string          `json:"tokenType"`
}

// handleCreateTransaction returns a handler that builds a partially signed
// swap transaction for the buyer to countersign and submit.
// POST /create-transaction
func handleCreateTransaction(builder SwapBuilder, publisher events.Publisher, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Limit request body size to prevent memory exhaustion
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		var req createTransactionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Debug("failed to decode swap request", "error", err)
			if strings.Contains(err.Error(), "http: request body too large") {
				writeError(w, "request body too large: maximum size is 1MB", http.StatusBadRequest)
				return
			}
			writeError(w, "invalid request body: must be valid JSON", http.StatusBadRequest)
			return
		}

		amount, err := amountToString(req.AmountUSD)
		if err != nil {
			logger.Debug("invalid amountUSD", "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		swapReq, err := swap.ParseRequest(req.UserAddress, amount, req.TokenType)
		if err != nil {
			logger.Debug("invalid swap request",
				"user_address", req.UserAddress,
				"token_type", req.TokenType,
				"error", err,
			)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		built, err := builder.Build(r.Context(), swapReq)
		if err != nil {
			if errors.Is(err, swap.ErrInvalidRequest) {
				logger.Debug("swap build rejected", "buyer", swapReq.Buyer.String(), "error", err)
				writeError(w, err.Error(), http.StatusBadRequest)
				return
			}
			logger.Error("swap build failed",
				"buyer", swapReq.Buyer.String(),
				"token", string(swapReq.Token),
				"error", err,
			)
			writeError(w, err.Error(), http.StatusInternalServerError)
			return
		}

		// Event publishing is best-effort; a publish failure never fails the build.
		if publisher != nil {
			if err := publisher.PublishSwap(r.Context(), events.FromBuiltSwap(swapReq, built)); err != nil {
				logger.Warn("failed to publish swap event",
					"buyer", swapReq.Buyer.String(),
					"error", err,
				)
			}
		}

		writeJSON(w, map[string]string{
			"transaction": built.Base64,
		}, http.StatusOK)
	})
}

// saleInfoResponse is the JSON response format for the public sale parameters.
type saleInfoResponse struct {
	ProjectMint     string            `json:"project_mint"`
	ProjectDecimals uint8             `json:"project_decimals"`
	PricePerToken   string            `json:"price_per_token"`
	MinPurchaseUSD  string            `json:"min_purchase_usd"`
	PaymentTokens   map[string]string `json:"payment_tokens"`
}

// handleSaleInfo returns a handler that serves the fixed sale parameters so
// the widget doesn't need to hardcode them.
// GET /sale
func handleSaleInfo(cfg *config.Config, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, saleInfoResponse{
			ProjectMint:     cfg.SSFMint.String(),
			ProjectDecimals: cfg.SSFDecimals,
			PricePerToken:   cfg.PricePerToken.String(),
			MinPurchaseUSD:  cfg.MinPurchaseUSD.String(),
			PaymentTokens: map[string]string{
				string(swap.PaymentUSDC): cfg.USDCMint.String(),
				string(swap.PaymentUSDT): cfg.USDTMint.String(),
			},
		}, http.StatusOK)
	})
}

// amountToString normalizes the amountUSD field, which clients send either as
// a JSON string or a JSON number.
func amountToString(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("amountUSD is required")
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}

	return "", fmt.Errorf("amountUSD must be a string or a number")
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
