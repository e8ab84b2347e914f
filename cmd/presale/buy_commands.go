package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cosmossdk.io/math"
	"github.com/urfave/cli/v2"

	"github.com/satoshistrike/presale/client"
	"github.com/satoshistrike/presale/service/solana"
)

// newComposer wires up an HTTP client, a chain client and a local wallet
// keypair into a ready composer, fetching sale parameters from the service.
func newComposer(c *cli.Context, keypairPath string) (*client.Composer, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError, // Only errors to stderr
	}))

	wallet, err := client.LocalWalletFromFile(keypairPath)
	if err != nil {
		return nil, err
	}

	api := client.NewClient(c.String("server-url"), nil, logger)
	info, err := api.SaleInfo(c.Context)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sale info: %w", err)
	}
	params, err := info.Params()
	if err != nil {
		return nil, err
	}

	rpcURL := c.String("rpc-url")
	chain := solana.NewClient(solana.NewRPCClient(rpcURL), rpcURL, 5, nil, logger)

	notifier := client.NewStatusNotifier(0)
	if !c.Bool("json") {
		notifier.Subscribe(func(status client.Status, detail string) {
			if detail != "" {
				fmt.Fprintf(os.Stderr, "[%s] %s\n", status, detail)
			} else {
				fmt.Fprintf(os.Stderr, "[%s]\n", status)
			}
		})
	}

	return client.NewComposer(api, chain, wallet, params, notifier, logger), nil
}

func buyCommand() *cli.Command {
	return &cli.Command{
		Name:      "buy",
		Usage:     "Buy SSF tokens with USDC or USDT",
		ArgsUsage: "AMOUNT_USD",
		Description: `Run the full purchase flow with a local keypair: request a partially
signed swap transaction from the service, countersign it, submit it and wait
for confirmation.

Example:
  presale buy 100 --token USDC --keypair ~/.config/solana/id.json`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "keypair",
				Aliases: []string{"k"},
				Usage:   "Path to solana-keygen keypair file",
				EnvVars: []string{"SOLANA_KEYPAIR"},
				Value:   os.ExpandEnv("$HOME/.config/solana/id.json"),
			},
			&cli.StringFlag{
				Name:  "token",
				Usage: "Payment token (USDC or USDT)",
				Value: "USDC",
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Aliases: []string{"t"},
				Usage:   "How long to wait for confirmation",
				Value:   2 * time.Minute,
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("USD amount is required")
			}
			amount := c.Args().Get(0)
			token := c.String("token")

			composer, err := newComposer(c, c.String("keypair"))
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
			defer cancel()

			if _, err := composer.RefreshBalances(ctx); err != nil {
				return err
			}

			receipt, err := composer.Buy(ctx, amount, token)
			if err != nil {
				return err
			}

			if c.Bool("json") {
				out := map[string]string{
					"signature":       receipt.Signature.String(),
					"tokens_received": receipt.TokensReceived.String(),
				}
				data, _ := json.MarshalIndent(out, "", "  ")
				fmt.Println(string(data))
				return nil
			}

			fmt.Printf("✓ Purchase confirmed\n")
			fmt.Printf("  Signature: %s\n", receipt.DisplaySignature())
			fmt.Printf("  Received:  %s SSF\n", receipt.TokensReceived)
			return nil
		},
	}
}

func balanceCommand() *cli.Command {
	return &cli.Command{
		Name:  "balance",
		Usage: "Show payment token balances for a local keypair",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "keypair",
				Aliases: []string{"k"},
				Usage:   "Path to solana-keygen keypair file",
				EnvVars: []string{"SOLANA_KEYPAIR"},
				Value:   os.ExpandEnv("$HOME/.config/solana/id.json"),
			},
		},
		Action: func(c *cli.Context) error {
			composer, err := newComposer(c, c.String("keypair"))
			if err != nil {
				return err
			}

			balances, err := composer.RefreshBalances(c.Context)
			if err != nil {
				return err
			}

			if c.Bool("json") {
				data, _ := json.MarshalIndent(balances, "", "  ")
				fmt.Println(string(data))
				return nil
			}

			for token, base := range balances {
				// USDC and USDT both carry 6 decimals
				human := math.LegacyNewDec(int64(base)).QuoInt64(1_000_000)
				fmt.Printf("%s: %s\n", token, human)
			}
			return nil
		},
	}
}

func quoteCommand() *cli.Command {
	return &cli.Command{
		Name:      "quote",
		Usage:     "Show how many SSF tokens a USD amount buys",
		ArgsUsage: "AMOUNT_USD",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("USD amount is required")
			}

			amount, err := math.LegacyNewDecFromStr(c.Args().Get(0))
			if err != nil {
				return fmt.Errorf("invalid amount: %w", err)
			}

			logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelError,
			}))
			api := client.NewClient(c.String("server-url"), nil, logger)
			info, err := api.SaleInfo(c.Context)
			if err != nil {
				return fmt.Errorf("failed to fetch sale info: %w", err)
			}
			params, err := info.Params()
			if err != nil {
				return err
			}

			tokens := amount.Quo(params.PricePerToken)
			if c.Bool("json") {
				out := map[string]string{
					"amount_usd":      amount.String(),
					"price_per_token": params.PricePerToken.String(),
					"tokens_received": tokens.String(),
				}
				data, _ := json.MarshalIndent(out, "", "  ")
				fmt.Println(string(data))
				return nil
			}

			fmt.Printf("%s USD buys %s SSF at %s USD/token\n", amount, tokens, params.PricePerToken)
			return nil
		},
	}
}

func saleInfoCommand() *cli.Command {
	return &cli.Command{
		Name:  "sale-info",
		Usage: "Show the public sale parameters",
		Action: func(c *cli.Context) error {
			logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelError,
			}))
			api := client.NewClient(c.String("server-url"), nil, logger)
			info, err := api.SaleInfo(c.Context)
			if err != nil {
				return fmt.Errorf("failed to fetch sale info: %w", err)
			}

			if c.Bool("json") {
				data, _ := json.MarshalIndent(info, "", "  ")
				fmt.Println(string(data))
				return nil
			}

			fmt.Printf("Project mint:  %s (decimals: %d)\n", info.ProjectMint, info.ProjectDecimals)
			fmt.Printf("Price:         %s USD/token\n", info.PricePerToken)
			fmt.Printf("Minimum:       %s USD\n", info.MinPurchaseUSD)
			for tag, mint := range info.PaymentTokens {
				fmt.Printf("Payment %s:   %s\n", tag, mint)
			}
			return nil
		},
	}
}
