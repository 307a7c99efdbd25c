package providers

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/vigil-trading/vigil/internal/solana"
)

// ---------------------------------------------------------------------------
// Market-data adapters. Providers lie, disappear, and rate limit; every
// response is normalized into TokenMetrics and providers are consulted in
// a fixed precedence order.
// ---------------------------------------------------------------------------

// marketResponse is the upstream wire shape for /tokens/{mint}/stats.
type marketResponse struct {
	Mint            string  `json:"mint"`
	HolderCount     int     `json:"holderCount"`
	VolumeUSD       float64 `json:"volumeUsd"`
	PriceUSD        float64 `json:"priceUsd"`
	LiquidityUSD    float64 `json:"liquidityUsd"`
	MarketCapUSD    float64 `json:"marketCapUsd"`
	BondingCurvePct float64 `json:"bondingCurvePct"`
}

// HTTPMetricsSource fetches token stats from one market-data provider.
type HTTPMetricsSource struct {
	http *httpClient
}

// NewHTTPMetricsSource creates a metrics source for one provider endpoint.
func NewHTTPMetricsSource(name, baseURL, apiKey string, rps float64, timeout time.Duration) *HTTPMetricsSource {
	return &HTTPMetricsSource{
		http: newHTTPClient(name, baseURL, apiKey, rps, timeout),
	}
}

func (s *HTTPMetricsSource) Name() string { return s.http.name }

// GetMetrics fetches and normalizes one market snapshot.
func (s *HTTPMetricsSource) GetMetrics(ctx context.Context, mint solana.Pubkey) (*TokenMetrics, error) {
	var resp marketResponse
	q := url.Values{}
	q.Set("mint", string(mint))
	if err := s.http.getJSON(ctx, "/tokens/"+string(mint)+"/stats", q, &resp); err != nil {
		return nil, err
	}

	if resp.PriceUSD < 0 || resp.HolderCount < 0 {
		return nil, fmt.Errorf("%s: malformed stats for %s", s.http.name, mint)
	}

	return &TokenMetrics{
		Mint:            mint,
		Holders:         resp.HolderCount,
		VolumeUSD:       decimal.NewFromFloat(resp.VolumeUSD),
		PriceUSD:        decimal.NewFromFloat(resp.PriceUSD),
		LiquidityUSD:    decimal.NewFromFloat(resp.LiquidityUSD),
		MarketCapUSD:    decimal.NewFromFloat(resp.MarketCapUSD),
		BondingCurvePct: resp.BondingCurvePct,
		FetchedAt:       time.Now(),
		Source:          s.http.name,
	}, nil
}

// FallbackMetricsSource tries providers in precedence order, returning the
// first usable snapshot. All providers failing is one transient error; the
// orchestrator's retry policy decides what happens next.
type FallbackMetricsSource struct {
	sources []MetricsSource
}

// NewFallbackMetricsSource builds the precedence chain. Order matters.
func NewFallbackMetricsSource(sources ...MetricsSource) *FallbackMetricsSource {
	return &FallbackMetricsSource{sources: sources}
}

func (f *FallbackMetricsSource) Name() string { return "fallback" }

// GetMetrics walks the chain until one provider answers.
func (f *FallbackMetricsSource) GetMetrics(ctx context.Context, mint solana.Pubkey) (*TokenMetrics, error) {
	var lastErr error
	for _, src := range f.sources {
		m, err := src.GetMetrics(ctx, mint)
		if err == nil {
			return m, nil
		}
		lastErr = err
		log.Debug().Err(err).
			Str("provider", src.Name()).
			Str("mint", string(mint)).
			Msg("metrics provider failed, trying next")
	}
	if lastErr == nil {
		return nil, fmt.Errorf("no metrics providers configured")
	}
	return nil, fmt.Errorf("all metrics providers failed for %s: %w", mint, lastErr)
}
