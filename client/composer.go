package client

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"cosmossdk.io/math"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// ChainClient is the on-chain surface the composer needs: balance reads
// before a purchase, then submission and confirmation after countersigning.
type ChainClient interface {
	TokenBalance(ctx context.Context, owner, mint solana.PublicKey) (uint64, error)
	Submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	AwaitConfirmation(ctx context.Context, sig solana.Signature, commitment rpc.ConfirmationStatusType) error
}

// Composer drives the buyer side of a purchase: balance pre-checks, quote
// derivation, requesting the partially signed transaction from the service,
// countersigning, submission and confirmation.
type Composer struct {
	api      *Client
	chain    ChainClient
	wallet   Wallet
	params   SaleParams
	notifier *StatusNotifier
	logger   *slog.Logger

	mu       sync.RWMutex
	balances map[string]uint64 // payment token tag -> base units
}

// NewComposer creates a composer for the given wallet and sale parameters.
// The notifier is optional.
func NewComposer(api *Client, chain ChainClient, wallet Wallet, params SaleParams, notifier *StatusNotifier, logger *slog.Logger) *Composer {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if notifier == nil {
		notifier = NewStatusNotifier(0)
	}
	c := &Composer{
		api:      api,
		chain:    chain,
		wallet:   wallet,
		params:   params,
		notifier: notifier,
		logger:   logger,
		balances: make(map[string]uint64),
	}
	c.notifier.Notify(StatusConnected, wallet.Address().String())
	return c
}

// RefreshBalances fetches the wallet's balance for every payment token
// concurrently and replaces the cached state. Call after the active wallet
// changes; stale balances from a previous wallet are never kept.
func (c *Composer) RefreshBalances(ctx context.Context) (map[string]uint64, error) {
	owner := c.wallet.Address()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		fetched  = make(map[string]uint64, len(c.params.PaymentMints))
		firstErr error
	)
	for tag, mint := range c.params.PaymentMints {
		wg.Add(1)
		go func(tag string, mint solana.PublicKey) {
			defer wg.Done()
			bal, err := c.chain.TokenBalance(ctx, owner, mint)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("failed to fetch %s balance: %w", tag, err)
				}
				return
			}
			fetched[tag] = bal
		}(tag, mint)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	c.mu.Lock()
	c.balances = fetched
	c.mu.Unlock()

	c.logger.DebugContext(ctx, "refreshed balances", "owner", owner.String(), "balances", fetched)
	return fetched, nil
}

// Balance returns the cached base-unit balance for a payment token tag.
func (c *Composer) Balance(token string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.balances[token]
}

// Quote returns how many project tokens a USD amount buys at the sale price.
func (c *Composer) Quote(amountUSD math.LegacyDec) math.LegacyDec {
	return amountUSD.Quo(c.params.PricePerToken)
}

// Validate runs the local guards: minimum purchase and cached balance. These
// are advisory; the chain remains the authority and a build that slips past
// them still fails atomically on-chain.
func (c *Composer) Validate(amountUSD math.LegacyDec, token string) error {
	if amountUSD.LT(c.params.MinPurchaseUSD) {
		return fmt.Errorf("%w: minimum is %s USD", ErrBelowMinimum, c.params.MinPurchaseUSD)
	}

	// USDC and USDT both carry 6 decimals; USD maps to base units directly.
	needed := amountUSD.MulInt64(1_000_000).TruncateInt()
	if !needed.BigInt().IsUint64() {
		return fmt.Errorf("amount too large: %s", amountUSD)
	}
	if needed.Uint64() > c.Balance(token) {
		return fmt.Errorf("%w: need %s %s", ErrInsufficientFunds, amountUSD, token)
	}
	return nil
}

// Receipt describes a completed purchase.
type Receipt struct {
	Signature      solana.Signature
	TokensReceived math.LegacyDec
}

// DisplaySignature returns the truncated form shown to the user.
func (r *Receipt) DisplaySignature() string {
	s := r.Signature.String()
	if len(s) <= 16 {
		return s
	}
	return s[:8] + "..." + s[len(s)-8:]
}

// Buy runs the full purchase flow: validate, request the partially signed
// transaction, countersign, submit and await confirmation.
func (c *Composer) Buy(ctx context.Context, amountUSD string, token string) (*Receipt, error) {
	amount, err := math.LegacyNewDecFromStr(amountUSD)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amountUSD, err)
	}
	if err := c.Validate(amount, token); err != nil {
		return nil, err
	}

	c.notifier.Notify(StatusPreparing, "")
	artifact, err := c.api.CreateTransaction(ctx, c.wallet.Address().String(), amountUSD, token)
	if err != nil {
		c.notifier.Notify(StatusFailed, err.Error())
		return nil, err
	}

	sig, err := c.Complete(ctx, artifact)
	if err != nil {
		c.notifier.Notify(StatusFailed, err.Error())
		return nil, err
	}

	receipt := &Receipt{
		Signature:      sig,
		TokensReceived: c.Quote(amount),
	}
	c.notifier.Notify(StatusConfirmed, receipt.DisplaySignature())
	return receipt, nil
}

// Complete decodes a base64 transaction artifact, countersigns it with the
// wallet, submits it and waits for confirmed commitment. The artifact already
// carries the treasury signature; the wallet fills the remaining slot.
func (c *Composer) Complete(ctx context.Context, artifact string) (solana.Signature, error) {
	raw, err := base64.StdEncoding.DecodeString(artifact)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to decode transaction: %w", err)
	}

	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to deserialize transaction: %w", err)
	}

	c.notifier.Notify(StatusAwaitingSignature, "")
	if err := c.wallet.SignTransaction(tx); err != nil {
		return solana.Signature{}, classifySubmitError(err)
	}

	sig, err := c.chain.Submit(ctx, tx)
	if err != nil {
		return solana.Signature{}, classifySubmitError(err)
	}

	c.notifier.Notify(StatusSubmitted, sig.String())
	if err := c.chain.AwaitConfirmation(ctx, sig, rpc.ConfirmationStatusConfirmed); err != nil {
		return solana.Signature{}, err
	}

	return sig, nil
}
