package providers

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vigil-trading/vigil/internal/solana"
)

// HTTPWalletHistorySource fetches creator-wallet transaction history.
type HTTPWalletHistorySource struct {
	http *httpClient
}

// NewHTTPWalletHistorySource creates the wallet-history adapter.
func NewHTTPWalletHistorySource(name, baseURL, apiKey string, rps float64, timeout time.Duration) *HTTPWalletHistorySource {
	return &HTTPWalletHistorySource{
		http: newHTTPClient(name, baseURL, apiKey, rps, timeout),
	}
}

type swapHistoryResponse struct {
	Swaps []struct {
		Signature string  `json:"signature"`
		Mint      string  `json:"mint"`
		Side      string  `json:"side"` // buy|sell
		Amount    string  `json:"amount"`
		Timestamp int64   `json:"timestamp"` // unix seconds
	} `json:"swaps"`
}

// GetSwapHistory returns the wallet's recent swaps, newest first.
func (s *HTTPWalletHistorySource) GetSwapHistory(ctx context.Context, wallet solana.Pubkey, limit int) ([]solana.SwapEvent, error) {
	var resp swapHistoryResponse
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if err := s.http.getJSON(ctx, "/wallets/"+string(wallet)+"/swaps", q, &resp); err != nil {
		return nil, err
	}

	events := make([]solana.SwapEvent, 0, len(resp.Swaps))
	for _, sw := range resp.Swaps {
		amount, err := decimal.NewFromString(sw.Amount)
		if err != nil {
			return nil, fmt.Errorf("%s: bad swap amount %q: %w", s.http.name, sw.Amount, err)
		}
		side := solana.SwapBuy
		if sw.Side == "sell" {
			side = solana.SwapSell
		}
		events = append(events, solana.SwapEvent{
			Signature: solana.Signature(sw.Signature),
			Wallet:    wallet,
			Mint:      solana.Pubkey(sw.Mint),
			Side:      side,
			Amount:    amount,
			Timestamp: time.Unix(sw.Timestamp, 0),
		})
	}
	return events, nil
}

type balanceResponse struct {
	Amount string `json:"amount"`
}

// GetTokenBalance returns the wallet's current balance of the mint.
func (s *HTTPWalletHistorySource) GetTokenBalance(ctx context.Context, wallet, mint solana.Pubkey) (decimal.Decimal, error) {
	var resp balanceResponse
	q := url.Values{}
	q.Set("mint", string(mint))
	if err := s.http.getJSON(ctx, "/wallets/"+string(wallet)+"/balance", q, &resp); err != nil {
		return decimal.Zero, err
	}
	amount, err := decimal.NewFromString(resp.Amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: bad balance %q: %w", s.http.name, resp.Amount, err)
	}
	return amount, nil
}

type creationHistoryResponse struct {
	Tokens []struct {
		Mint      string `json:"mint"`
		Symbol    string `json:"symbol"`
		CreatedAt int64  `json:"createdAt"` // unix seconds
	} `json:"tokens"`
}

// GetCreationHistory returns all tokens the wallet has launched.
func (s *HTTPWalletHistorySource) GetCreationHistory(ctx context.Context, wallet solana.Pubkey) ([]solana.TokenCreation, error) {
	var resp creationHistoryResponse
	if err := s.http.getJSON(ctx, "/wallets/"+string(wallet)+"/creations", nil, &resp); err != nil {
		return nil, err
	}

	tokens := make([]solana.TokenCreation, 0, len(resp.Tokens))
	for _, tkn := range resp.Tokens {
		tokens = append(tokens, solana.TokenCreation{
			Mint:      solana.Pubkey(tkn.Mint),
			Creator:   wallet,
			Symbol:    tkn.Symbol,
			CreatedAt: time.Unix(tkn.CreatedAt, 0),
		})
	}
	return tokens, nil
}
