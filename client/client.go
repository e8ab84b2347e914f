package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
)

// Client is the HTTP client for the presale service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new presale service client.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// CreateTransaction asks the server to build a partially signed swap
// transaction. Returns the base64-encoded artifact for countersigning.
func (c *Client) CreateTransaction(ctx context.Context, userAddress, amountUSD, tokenType string) (string, error) {
	reqBody := map[string]interface{}{
		"userAddress": userAddress,
		"amountUSD":   amountUSD,
		"tokenType":   tokenType,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/create-transaction", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", c.parseErrorResponse(resp)
	}

	var response struct {
		Transaction string `json:"transaction"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if response.Transaction == "" {
		return "", fmt.Errorf("server returned empty transaction")
	}

	c.logger.Debug("transaction created", "user", userAddress, "token", tokenType)
	return response.Transaction, nil
}

// SaleInfo holds the sale parameters as served by the API.
type SaleInfo struct {
	ProjectMint     string            `json:"project_mint"`
	ProjectDecimals uint8             `json:"project_decimals"`
	PricePerToken   string            `json:"price_per_token"`
	MinPurchaseUSD  string            `json:"min_purchase_usd"`
	PaymentTokens   map[string]string `json:"payment_tokens"`
}

// SaleInfo fetches the public sale parameters.
func (c *Client) SaleInfo(ctx context.Context) (*SaleInfo, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/sale", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var info SaleInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &info, nil
}

// SaleParams is the parsed, typed form of SaleInfo.
type SaleParams struct {
	ProjectMint     solana.PublicKey
	ProjectDecimals uint8
	PricePerToken   math.LegacyDec
	MinPurchaseUSD  math.LegacyDec
	PaymentMints    map[string]solana.PublicKey
}

// Params parses the wire representation into typed sale parameters.
func (si *SaleInfo) Params() (SaleParams, error) {
	mint, err := solana.PublicKeyFromBase58(si.ProjectMint)
	if err != nil {
		return SaleParams{}, fmt.Errorf("invalid project mint %q: %w", si.ProjectMint, err)
	}

	price, err := math.LegacyNewDecFromStr(si.PricePerToken)
	if err != nil {
		return SaleParams{}, fmt.Errorf("invalid price %q: %w", si.PricePerToken, err)
	}

	minPurchase, err := math.LegacyNewDecFromStr(si.MinPurchaseUSD)
	if err != nil {
		return SaleParams{}, fmt.Errorf("invalid minimum %q: %w", si.MinPurchaseUSD, err)
	}

	mints := make(map[string]solana.PublicKey, len(si.PaymentTokens))
	for tag, addr := range si.PaymentTokens {
		pk, err := solana.PublicKeyFromBase58(addr)
		if err != nil {
			return SaleParams{}, fmt.Errorf("invalid %s mint %q: %w", tag, addr, err)
		}
		mints[tag] = pk
	}

	return SaleParams{
		ProjectMint:     mint,
		ProjectDecimals: si.ProjectDecimals,
		PricePerToken:   price,
		MinPurchaseUSD:  minPurchase,
		PaymentMints:    mints,
	}, nil
}

// parseErrorResponse attempts to parse an error response from the server.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	var errResp struct {
		Error string `json:"error"`
	}

	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return fmt.Errorf("request failed: %s", errResp.Error)
}
