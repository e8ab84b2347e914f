package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/itchyny/gojq"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/urfave/cli/v2"

	"github.com/satoshistrike/presale/service/events"
)

// subscribeCommand streams swap events for a buyer (or all buyers).
func subscribeCommand() *cli.Command {
	return &cli.Command{
		Name:      "subscribe",
		Usage:     "Subscribe to swap events",
		ArgsUsage: "[buyer_address]",
		Description: `Subscribe to swap events published to NATS JetStream.

Events are published to the subject swaps.{buyer_address}; omit the address to
stream events for all buyers. Events can be filtered with jq expressions that
run against the event JSON.

Example:
  presale events subscribe DYw8jCTfwHNRJhhmFcbXvVDTqWMEVFBX6ZKUmG5CNSKK --jq '.payment_token == "USDC"'`,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "must-jq",
				Usage:   "jq filter expression that must evaluate to true (can be specified multiple times, all must match)",
				Aliases: []string{"jq"},
			},
			&cli.BoolFlag{
				Name:    "durable",
				Aliases: []string{"d"},
				Usage:   "Create a durable consumer (survives restarts)",
			},
			&cli.StringFlag{
				Name:  "consumer-name",
				Usage: "Consumer name (required for durable)",
				Value: "presale-cli",
			},
		},
		Action: func(c *cli.Context) error {
			subject := events.StreamSubjects
			if c.NArg() == 1 {
				subject = fmt.Sprintf("swaps.%s", c.Args().Get(0))
			}

			filters, err := compileJQFilters(c.StringSlice("must-jq"))
			if err != nil {
				return err
			}

			return streamSwapEvents(subject, c.String("nats-url"), c.Bool("durable"),
				c.String("consumer-name"), c.Bool("json"), filters)
		},
	}
}

// compileJQFilters parses and compiles jq expressions up front so bad filters
// fail before connecting to NATS.
func compileJQFilters(exprs []string) ([]*gojq.Code, error) {
	compiled := make([]*gojq.Code, len(exprs))
	for i, expr := range exprs {
		query, err := gojq.Parse(expr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse jq filter %q: %w", expr, err)
		}
		compiled[i], err = gojq.Compile(query)
		if err != nil {
			return nil, fmt.Errorf("failed to compile jq filter %q: %w", expr, err)
		}
	}
	return compiled, nil
}

// matchesFilters reports whether the event JSON satisfies every jq filter.
func matchesFilters(event map[string]interface{}, filters []*gojq.Code) bool {
	for _, code := range filters {
		iter := code.Run(event)
		v, ok := iter.Next()
		if !ok {
			return false
		}
		if _, isErr := v.(error); isErr {
			return false
		}
		if !isTruthy(v) {
			return false
		}
	}
	return true
}

func isTruthy(v interface{}) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	// Everything else (numbers, strings, objects, arrays) is truthy
	return true
}

// streamSwapEvents connects to NATS and streams swap events.
func streamSwapEvents(subject, natsURL string, durable bool, consumerName string, jsonOutput bool, filters []*gojq.Code) error {
	nc, err := nats.Connect(natsURL)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if !jsonOutput {
		fmt.Printf("📡 Subscribing to: %s\n", subject)
		fmt.Printf("   NATS: %s\n", natsURL)
		if durable {
			fmt.Printf("   Consumer: %s (durable)\n", consumerName)
		}
		fmt.Printf("\nWaiting for swap events... (Ctrl-C to exit)\n\n")
	}

	consumerConfig := jetstream.ConsumerConfig{
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
	}
	if durable {
		consumerConfig.Durable = consumerName
		consumerConfig.Name = consumerName
	}

	cons, err := js.CreateOrUpdateConsumer(context.Background(), events.StreamName, consumerConfig)
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	msgChan := make(chan jetstream.Msg, 10)
	go func() {
		_, _ = cons.Consume(func(msg jetstream.Msg) {
			msgChan <- msg
		})
	}()

	count := 0
	for {
		select {
		case msg := <-msgChan:
			// Decode into a generic map so jq filters see the raw JSON shape
			var raw map[string]interface{}
			if err := json.Unmarshal(msg.Data(), &raw); err != nil {
				if !jsonOutput {
					fmt.Fprintf(os.Stderr, "Error parsing event: %v\n", err)
				}
				msg.Ack()
				continue
			}

			if !matchesFilters(raw, filters) {
				msg.Ack()
				continue
			}

			var event events.SwapEvent
			if err := json.Unmarshal(msg.Data(), &event); err != nil {
				msg.Ack()
				continue
			}

			count++

			if jsonOutput {
				data, _ := json.Marshal(event)
				fmt.Println(string(data))
			} else {
				fmt.Printf("─────────────────────────────────────────────────────\n")
				fmt.Printf("Swap #%d\n", count)
				fmt.Printf("─────────────────────────────────────────────────────\n")
				fmt.Printf("Buyer:         %s\n", event.BuyerAddress)
				fmt.Printf("Paid:          %s USD in %s (%d base units)\n", event.AmountUSD, event.PaymentToken, event.PaymentBaseUnits)
				fmt.Printf("Receives:      %d SSF base units\n", event.TokenBaseUnits)
				fmt.Printf("Instructions:  %d\n", event.Instructions)
				if event.CreatedAccount {
					fmt.Printf("Note:          creates buyer token account\n")
				}
				fmt.Printf("Published:     %s\n", event.PublishedAt.Format(time.RFC3339))
				fmt.Printf("\n")
			}

			msg.Ack()

		case <-sigChan:
			if !jsonOutput {
				fmt.Printf("\n\n✅ Received %d swap event(s)\n", count)
				fmt.Println("Shutting down...")
			}
			return nil
		}
	}
}

// inspectStreamCommand shows information about the NATS JetStream stream.
func inspectStreamCommand() *cli.Command {
	return &cli.Command{
		Name:  "inspect-stream",
		Usage: "Inspect the SWAPS JetStream stream",
		Description: `Show information about the JetStream stream including:
- Message count
- Consumers
- Storage usage
- Stream configuration

Example:
  presale events inspect-stream`,
		Action: func(c *cli.Context) error {
			natsURL := c.String("nats-url")
			jsonOutput := c.Bool("json")

			nc, err := nats.Connect(natsURL)
			if err != nil {
				return fmt.Errorf("failed to connect to NATS: %w", err)
			}
			defer nc.Close()

			js, err := jetstream.New(nc)
			if err != nil {
				return fmt.Errorf("failed to create JetStream context: %w", err)
			}

			stream, err := js.Stream(context.Background(), events.StreamName)
			if err != nil {
				return fmt.Errorf("failed to get stream: %w", err)
			}

			info, err := stream.Info(context.Background())
			if err != nil {
				return fmt.Errorf("failed to get stream info: %w", err)
			}

			if jsonOutput {
				data, _ := json.MarshalIndent(info, "", "  ")
				fmt.Println(string(data))
			} else {
				fmt.Printf("Stream: %s\n", info.Config.Name)
				fmt.Printf("─────────────────────────────────────────────────────\n")
				fmt.Printf("Description:  %s\n", info.Config.Description)
				fmt.Printf("Subjects:     %v\n", info.Config.Subjects)
				fmt.Printf("Messages:     %d\n", info.State.Msgs)
				fmt.Printf("Bytes:        %d\n", info.State.Bytes)
				fmt.Printf("First Seq:    %d\n", info.State.FirstSeq)
				fmt.Printf("Last Seq:     %d\n", info.State.LastSeq)
				fmt.Printf("Consumers:    %d\n", info.State.Consumers)
				fmt.Printf("Max Age:      %s\n", info.Config.MaxAge)
				fmt.Printf("Storage:      %s\n", info.Config.Storage)
				fmt.Printf("\n")
			}

			return nil
		},
	}
}
