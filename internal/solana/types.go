package solana

import (
	"fmt"
	"time"

	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"
)

// Pubkey is a Solana public key (base58 string).
type Pubkey string

// Signature is a Solana transaction signature.
type Signature string

// PumpTotalSupply is the fixed total supply minted by the launch venue
// for every bonding-curve token (1 billion, already decimal-adjusted).
var PumpTotalSupply = decimal.NewFromInt(1_000_000_000)

// ValidatePubkey checks that s decodes to a 32-byte ed25519 public key.
func ValidatePubkey(s string) error {
	if s == "" {
		return fmt.Errorf("empty pubkey")
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return fmt.Errorf("decode pubkey %q: %w", s, err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("pubkey %q: want 32 bytes, got %d", s, len(raw))
	}
	return nil
}

// IsValid reports whether the pubkey is a well-formed base58 32-byte key.
func (p Pubkey) IsValid() bool {
	return ValidatePubkey(string(p)) == nil
}

// ---------------------------------------------------------------------------
// Wallet history types
// ---------------------------------------------------------------------------

// SwapSide distinguishes buys from sells relative to the tracked mint.
type SwapSide string

const (
	SwapBuy  SwapSide = "BUY"  // wallet received the mint
	SwapSell SwapSide = "SELL" // wallet sent the mint away
)

// SwapEvent is one swap touching a wallet, as reported by the history provider.
type SwapEvent struct {
	Signature Signature       `json:"signature"`
	Wallet    Pubkey          `json:"wallet"`
	Mint      Pubkey          `json:"mint"`
	Side      SwapSide        `json:"side"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"ts"`
}

// TokenCreation records a token launched by a wallet.
type TokenCreation struct {
	Mint      Pubkey    `json:"mint"`
	Creator   Pubkey    `json:"creator"`
	Symbol    string    `json:"symbol,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
