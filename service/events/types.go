package events

import (
	"time"

	"github.com/satoshistrike/presale/service/swap"
)

// SwapEvent represents a swap lifecycle event published to NATS.
// This is published to the subject "swaps.{buyer_address}" in JetStream.
type SwapEvent struct {
	// Buyer information
	BuyerAddress string `json:"buyer_address"`

	// Swap details
	PaymentToken     string `json:"payment_token"`
	AmountUSD        string `json:"amount_usd"`
	PaymentBaseUnits uint64 `json:"payment_base_units"`
	TokenBaseUnits   uint64 `json:"token_base_units"`
	CreatedAccount   bool   `json:"created_account"`
	Instructions     int    `json:"instructions"`

	// Metadata
	PublishedAt time.Time `json:"published_at"`
}

// FromBuiltSwap converts a built swap to a SwapEvent for publishing.
func FromBuiltSwap(req swap.Request, built *swap.BuiltSwap) *SwapEvent {
	return &SwapEvent{
		BuyerAddress:     req.Buyer.String(),
		PaymentToken:     string(req.Token),
		AmountUSD:        req.AmountUSD.String(),
		PaymentBaseUnits: built.PaymentAmount,
		TokenBaseUnits:   built.TokenAmount,
		CreatedAccount:   built.CreatedAccount,
		Instructions:     built.InstructionCount,
		PublishedAt:      time.Now().UTC(),
	}
}
