package solana

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"golang.org/x/time/rate"

	"github.com/satoshistrike/presale/service/metrics"
)

var (
	// ErrAccountNotFound indicates the queried account does not exist on-chain.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInvalidAccountOwner indicates the account exists but is not owned by
	// the SPL token program.
	ErrInvalidAccountOwner = errors.New("account is not owned by the token program")

	// ErrTransactionFailed indicates the transaction landed on-chain but its
	// instructions failed (both swap legs rolled back atomically).
	ErrTransactionFailed = errors.New("transaction failed on-chain")
)

// RPCClient is an interface for the Solana RPC operations we need.
// This allows us to mock the RPC layer in tests without hitting real Solana nodes.
type RPCClient interface {
	GetAccountInfoWithOpts(
		ctx context.Context,
		account solana.PublicKey,
		opts *rpc.GetAccountInfoOpts,
	) (*rpc.GetAccountInfoResult, error)

	GetLatestBlockhash(
		ctx context.Context,
		commitment rpc.CommitmentType,
	) (*rpc.GetLatestBlockhashResult, error)

	GetTokenAccountsByOwner(
		ctx context.Context,
		owner solana.PublicKey,
		conf *rpc.GetTokenAccountsConfig,
		opts *rpc.GetTokenAccountsOpts,
	) (*rpc.GetTokenAccountsResult, error)

	SendTransactionWithOpts(
		ctx context.Context,
		tx *solana.Transaction,
		opts rpc.TransactionOpts,
	) (solana.Signature, error)

	GetSignatureStatuses(
		ctx context.Context,
		searchTransactionHistory bool,
		sigs ...solana.Signature,
	) (*rpc.GetSignatureStatusesResult, error)
}

// Client provides domain-level Solana operations for the presale service.
// It wraps the RPC client with rate limiting, logging and metrics.
type Client struct {
	rpc      RPCClient
	limiter  *rate.Limiter
	logger   *slog.Logger
	metrics  *metrics.Metrics
	endpoint string // RPC endpoint identifier for metrics (e.g., "mainnet", rpc host)
}

// NewClient creates a new Solana client.
// ratePerSecond bounds outbound RPC calls; public mainnet endpoints throttle
// aggressively, so callers should keep this low unless using a premium RPC.
// If metrics is nil, no metrics will be recorded.
func NewClient(rpcClient RPCClient, endpoint string, ratePerSecond int, m *metrics.Metrics, logger *slog.Logger) *Client {
	if ratePerSecond <= 0 {
		ratePerSecond = 10
	}
	return &Client{
		rpc:      rpcClient,
		limiter:  rate.NewLimiter(rate.Limit(ratePerSecond), ratePerSecond),
		logger:   logger,
		metrics:  m,
		endpoint: endpoint,
	}
}

// FetchTokenAccount fetches and decodes an SPL token account.
// Returns ErrAccountNotFound if the address has no account on-chain, and
// ErrInvalidAccountOwner if the account exists under a different program.
func (c *Client) FetchTokenAccount(ctx context.Context, address solana.PublicKey) (*token.Account, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := c.rpc.GetAccountInfoWithOpts(ctx, address, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: rpc.CommitmentConfirmed,
	})
	c.recordRPCCall("GetAccountInfo", err, time.Since(start))

	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		c.logger.ErrorContext(ctx, "failed to fetch account",
			"address", address.String(),
			"error", err,
		)
		return nil, err
	}
	if result.Value == nil {
		return nil, ErrAccountNotFound
	}

	if !result.Value.Owner.Equals(token.ProgramID) {
		return nil, fmt.Errorf("%w: owned by %s", ErrInvalidAccountOwner, result.Value.Owner)
	}

	var acct token.Account
	if err := bin.NewBinDecoder(result.Value.Data.GetBinary()).Decode(&acct); err != nil {
		return nil, fmt.Errorf("failed to decode token account %s: %w", address, err)
	}

	return &acct, nil
}

// LatestBlockhash fetches the current blockhash. The value is short-lived:
// transactions stamped with an expired blockhash are rejected at submission.
func (c *Client) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return solana.Hash{}, err
	}

	start := time.Now()
	result, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	c.recordRPCCall("GetLatestBlockhash", err, time.Since(start))

	if err != nil {
		c.logger.ErrorContext(ctx, "failed to fetch latest blockhash", "error", err)
		return solana.Hash{}, err
	}

	return result.Value.Blockhash, nil
}

// TokenBalance sums the balances of all token accounts the owner holds for the
// given mint, in base units. An owner normally holds a single associated
// account per mint, but auxiliary accounts exist in the wild; sum them all.
func (c *Client) TokenBalance(ctx context.Context, owner, mint solana.PublicKey) (uint64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	start := time.Now()
	result, err := c.rpc.GetTokenAccountsByOwner(ctx, owner,
		&rpc.GetTokenAccountsConfig{Mint: &mint},
		&rpc.GetTokenAccountsOpts{Encoding: solana.EncodingBase64},
	)
	c.recordRPCCall("GetTokenAccountsByOwner", err, time.Since(start))

	if err != nil {
		c.logger.ErrorContext(ctx, "failed to fetch token accounts",
			"owner", owner.String(),
			"mint", mint.String(),
			"error", err,
		)
		return 0, err
	}

	var total uint64
	for _, ta := range result.Value {
		var acct token.Account
		if err := bin.NewBinDecoder(ta.Account.Data.GetBinary()).Decode(&acct); err != nil {
			return 0, fmt.Errorf("failed to decode token account %s: %w", ta.Pubkey, err)
		}
		total += acct.Amount
	}

	c.logger.DebugContext(ctx, "fetched token balance",
		"owner", owner.String(),
		"mint", mint.String(),
		"accounts", len(result.Value),
		"total", total,
	)

	return total, nil
}

// Submit broadcasts a fully signed transaction.
func (c *Client) Submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return solana.Signature{}, err
	}

	start := time.Now()
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	c.recordRPCCall("SendTransaction", err, time.Since(start))

	if err != nil {
		c.logger.ErrorContext(ctx, "failed to send transaction", "error", err)
		return solana.Signature{}, err
	}

	c.logger.InfoContext(ctx, "transaction submitted", "signature", sig.String())
	return sig, nil
}

// AwaitConfirmation polls signature status until the transaction reaches the
// given commitment level or the context is cancelled. Returns
// ErrTransactionFailed if the transaction landed but its instructions errored.
func (c *Client) AwaitConfirmation(ctx context.Context, sig solana.Signature, commitment rpc.ConfirmationStatusType) error {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		start := time.Now()
		result, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
		c.recordRPCCall("GetSignatureStatuses", err, time.Since(start))

		if err != nil {
			c.logger.WarnContext(ctx, "failed to fetch signature status, retrying",
				"signature", sig.String(),
				"error", err,
			)
		} else if len(result.Value) > 0 && result.Value[0] != nil {
			status := result.Value[0]
			if status.Err != nil {
				return fmt.Errorf("%w: %v", ErrTransactionFailed, status.Err)
			}
			if confirmationReached(status.ConfirmationStatus, commitment) {
				c.logger.InfoContext(ctx, "transaction confirmed",
					"signature", sig.String(),
					"status", status.ConfirmationStatus,
				)
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// confirmationReached reports whether the observed status satisfies the target.
// Finalized satisfies a confirmed target, never the other way around.
func confirmationReached(observed, target rpc.ConfirmationStatusType) bool {
	if observed == rpc.ConfirmationStatusFinalized {
		return true
	}
	if observed == rpc.ConfirmationStatusConfirmed {
		return target != rpc.ConfirmationStatusFinalized
	}
	return false
}

func (c *Client) recordRPCCall(method string, err error, duration time.Duration) {
	if c.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordRPCCall(method, status, c.endpoint, duration.Seconds())
}
