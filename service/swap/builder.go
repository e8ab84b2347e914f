package swap

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/token"

	"github.com/satoshistrike/presale/service/config"
	"github.com/satoshistrike/presale/service/metrics"
	solclient "github.com/satoshistrike/presale/service/solana"
)

// ChainReader is the read-only view of the chain the builder needs.
// Implemented by *solana.Client; mocked in tests.
type ChainReader interface {
	// FetchTokenAccount fetches and decodes an SPL token account, returning
	// solana.ErrAccountNotFound when the address is vacant.
	FetchTokenAccount(ctx context.Context, address solana.PublicKey) (*token.Account, error)

	// LatestBlockhash fetches the current blockhash for transaction freshness.
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
}

// Request is the validated input to a swap build.
type Request struct {
	Buyer     solana.PublicKey
	AmountUSD math.LegacyDec
	Token     PaymentToken
}

// Accounts holds the four token accounts a swap touches.
type Accounts struct {
	BuyerPayment    solana.PublicKey // buyer pays from here
	TreasuryPayment solana.PublicKey // treasury receives payment here
	TreasuryToken   solana.PublicKey // treasury sends project tokens from here
	BuyerToken      solana.PublicKey // buyer receives project tokens here
}

// BuiltSwap is a freshly composed, treasury-signed swap transaction.
// It has no persisted identity; the caller completes or abandons it and the
// server keeps no record beyond metrics.
type BuiltSwap struct {
	Transaction *solana.Transaction
	Base64      string

	Accounts         Accounts
	CreatedAccount   bool   // a create-account instruction was prepended
	PaymentAmount    uint64 // payment leg, stablecoin base units
	TokenAmount      uint64 // token leg, project-token base units
	InstructionCount int
}

// Builder composes the atomic two-leg swap transaction: stablecoin from buyer
// to treasury, project token from treasury to buyer, with conditional creation
// of the buyer's destination account. The treasury key signs only the outbound
// token leg; the buyer signs the payment leg (and pays fees) client-side.
type Builder struct {
	chain         ChainReader
	treasury      solana.PrivateKey
	treasuryAddr  solana.PublicKey
	projectToken  TokenInfo
	price         math.LegacyDec
	minPurchase   math.LegacyDec
	paymentTokens map[PaymentToken]TokenInfo
	logger        *slog.Logger
	metrics       *metrics.Metrics
}

// NewBuilder creates a swap builder from the process configuration.
// The treasury key is immutable process-wide state; config.Load has already
// failed fast if it was absent or malformed.
func NewBuilder(chain ChainReader, cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) *Builder {
	return &Builder{
		chain:        chain,
		treasury:     cfg.TreasuryKey,
		treasuryAddr: cfg.TreasuryKey.PublicKey(),
		projectToken: TokenInfo{Mint: cfg.SSFMint, Decimals: cfg.SSFDecimals},
		price:        cfg.PricePerToken,
		minPurchase:  cfg.MinPurchaseUSD,
		paymentTokens: map[PaymentToken]TokenInfo{
			PaymentUSDC: {Mint: cfg.USDCMint, Decimals: stablecoinDecimals},
			PaymentUSDT: {Mint: cfg.USDTMint, Decimals: stablecoinDecimals},
		},
		logger:  logger,
		metrics: m,
	}
}

// ParseRequest validates raw request parameters into a Request.
// All failures wrap ErrInvalidRequest and happen before any network call.
func ParseRequest(userAddress, amountUSD, tokenType string) (Request, error) {
	if userAddress == "" {
		return Request{}, fmt.Errorf("%w: userAddress is required", ErrInvalidRequest)
	}
	buyer, err := solana.PublicKeyFromBase58(userAddress)
	if err != nil {
		return Request{}, fmt.Errorf("%w: invalid userAddress: %v", ErrInvalidRequest, err)
	}

	if amountUSD == "" {
		return Request{}, fmt.Errorf("%w: amountUSD is required", ErrInvalidRequest)
	}
	amount, err := math.LegacyNewDecFromStr(amountUSD)
	if err != nil {
		return Request{}, fmt.Errorf("%w: invalid amountUSD %q", ErrInvalidRequest, amountUSD)
	}
	if amount.IsNegative() {
		return Request{}, fmt.Errorf("%w: amountUSD cannot be negative", ErrInvalidRequest)
	}

	tok, err := ParsePaymentToken(tokenType)
	if err != nil {
		return Request{}, err
	}

	return Request{Buyer: buyer, AmountUSD: amount, Token: tok}, nil
}

// Build composes, treasury-signs and serializes a swap transaction.
//
// Instruction order is fixed: optional create-destination-account first, then
// the payment leg (authority = buyer), then the token leg (authority =
// treasury). The transaction is returned base64-encoded with the treasury
// signature applied and a zero slot left for the buyer's signature.
func (b *Builder) Build(ctx context.Context, req Request) (*BuiltSwap, error) {
	start := time.Now()
	built, err := b.build(ctx, req)

	if b.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
			if errors.Is(err, ErrInvalidRequest) {
				status = "invalid"
			}
		}
		b.metrics.RecordSwapBuild(string(req.Token), status, time.Since(start).Seconds())
		if err == nil {
			b.metrics.RecordPaymentVolume(string(req.Token), built.PaymentAmount)
			if built.CreatedAccount {
				b.metrics.RecordAccountCreation(string(req.Token))
			}
		}
	}

	return built, err
}

func (b *Builder) build(ctx context.Context, req Request) (*BuiltSwap, error) {
	payToken, ok := b.paymentTokens[req.Token]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported token type %q", ErrInvalidRequest, req.Token)
	}
	if req.Buyer.IsZero() {
		return nil, fmt.Errorf("%w: buyer address is required", ErrInvalidRequest)
	}
	if req.Buyer.Equals(b.treasuryAddr) {
		return nil, fmt.Errorf("%w: buyer cannot be the treasury", ErrInvalidRequest)
	}
	if req.AmountUSD.IsNil() {
		return nil, fmt.Errorf("%w: amountUSD is required", ErrInvalidRequest)
	}
	if req.AmountUSD.LT(b.minPurchase) {
		return nil, fmt.Errorf("%w: minimum purchase is $%s", ErrInvalidRequest, b.minPurchase)
	}

	// Convert once, round once: integer arithmetic from here on.
	payAmount, err := paymentLegBaseUnits(req.AmountUSD)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	tokenAmount, err := tokenLegBaseUnits(req.AmountUSD, b.price, b.projectToken.Decimals)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	// Associated token addresses are a pure function of (mint, owner); only
	// the buyer's destination account needs an on-chain existence check.
	accounts, err := b.resolveAccounts(req.Buyer, payToken.Mint)
	if err != nil {
		return nil, err
	}

	createAccount, err := b.destinationNeedsCreation(ctx, req.Buyer, accounts.BuyerToken)
	if err != nil {
		return nil, err
	}

	instructions := make([]solana.Instruction, 0, 3)
	if createAccount {
		instructions = append(instructions,
			// Buyer pays the rent for their own destination account.
			associatedtokenaccount.NewCreateInstruction(
				req.Buyer,
				req.Buyer,
				b.projectToken.Mint,
			).Build(),
		)
	}
	instructions = append(instructions,
		// Payment leg: buyer -> treasury, authorized by the buyer client-side.
		token.NewTransferCheckedInstruction(
			payAmount,
			payToken.Decimals,
			accounts.BuyerPayment,
			payToken.Mint,
			accounts.TreasuryPayment,
			req.Buyer,
			nil,
		).Build(),
		// Token leg: treasury -> buyer, authorized by the treasury key below.
		token.NewTransferCheckedInstruction(
			tokenAmount,
			b.projectToken.Decimals,
			accounts.TreasuryToken,
			b.projectToken.Mint,
			accounts.BuyerToken,
			b.treasuryAddr,
			nil,
		).Build(),
	)

	blockhash, err := b.chain.LatestBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch latest blockhash: %v", ErrUpstream, err)
	}

	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(req.Buyer))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to assemble transaction: %v", ErrUpstream, err)
	}

	// Partial sign: only the treasury key is available server-side. The
	// buyer's signature slot stays zeroed until the wallet countersigns.
	if _, err := tx.PartialSign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(b.treasuryAddr) {
			return &b.treasury
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("%w: failed to sign transaction: %v", ErrUpstream, err)
	}

	raw, err := tx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to serialize transaction: %v", ErrUpstream, err)
	}

	b.logger.InfoContext(ctx, "swap transaction built",
		"buyer", req.Buyer.String(),
		"token", string(req.Token),
		"amount_usd", req.AmountUSD.String(),
		"payment_base_units", payAmount,
		"token_base_units", tokenAmount,
		"created_account", createAccount,
		"instructions", len(instructions),
	)

	return &BuiltSwap{
		Transaction:      tx,
		Base64:           base64.StdEncoding.EncodeToString(raw),
		Accounts:         accounts,
		CreatedAccount:   createAccount,
		PaymentAmount:    payAmount,
		TokenAmount:      tokenAmount,
		InstructionCount: len(instructions),
	}, nil
}

// resolveAccounts derives the four associated token accounts deterministically.
func (b *Builder) resolveAccounts(buyer, payMint solana.PublicKey) (Accounts, error) {
	var accounts Accounts
	var err error

	if accounts.BuyerPayment, _, err = solana.FindAssociatedTokenAddress(buyer, payMint); err != nil {
		return Accounts{}, fmt.Errorf("%w: buyer payment account: %v", ErrAccountResolution, err)
	}
	if accounts.TreasuryPayment, _, err = solana.FindAssociatedTokenAddress(b.treasuryAddr, payMint); err != nil {
		return Accounts{}, fmt.Errorf("%w: treasury payment account: %v", ErrAccountResolution, err)
	}
	if accounts.TreasuryToken, _, err = solana.FindAssociatedTokenAddress(b.treasuryAddr, b.projectToken.Mint); err != nil {
		return Accounts{}, fmt.Errorf("%w: treasury token account: %v", ErrAccountResolution, err)
	}
	if accounts.BuyerToken, _, err = solana.FindAssociatedTokenAddress(buyer, b.projectToken.Mint); err != nil {
		return Accounts{}, fmt.Errorf("%w: buyer token account: %v", ErrAccountResolution, err)
	}

	return accounts, nil
}

// destinationNeedsCreation checks the buyer's project-token account on-chain.
// Three outcomes: vacant address means we prepend a create instruction; a
// well-formed account owned by the buyer means we don't; anything else is
// rejected rather than recreated, since a create instruction against an
// occupied address would fail atomically on-chain anyway.
func (b *Builder) destinationNeedsCreation(ctx context.Context, buyer, destination solana.PublicKey) (bool, error) {
	acct, err := b.chain.FetchTokenAccount(ctx, destination)
	switch {
	case err == nil:
		if !acct.Owner.Equals(buyer) {
			return false, fmt.Errorf("%w: destination %s exists with unexpected owner %s",
				ErrAccountResolution, destination, acct.Owner)
		}
		return false, nil
	case errors.Is(err, solclient.ErrAccountNotFound):
		b.logger.DebugContext(ctx, "buyer token account missing, adding create instruction",
			"buyer", buyer.String(),
			"destination", destination.String(),
		)
		return true, nil
	case errors.Is(err, solclient.ErrInvalidAccountOwner):
		return false, fmt.Errorf("%w: destination %s: %v", ErrAccountResolution, destination, err)
	default:
		return false, fmt.Errorf("%w: failed to look up destination %s: %v", ErrUpstream, destination, err)
	}
}
