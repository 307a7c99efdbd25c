// Package stub provides deterministic in-memory providers for tests and
// for running the engine with -stub (no real upstream connections).
package stub

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vigil-trading/vigil/internal/providers"
	"github.com/vigil-trading/vigil/internal/solana"
)

// Providers bundles all stub sources behind one fixture store.
type Providers struct {
	mu        sync.RWMutex
	metrics   map[solana.Pubkey]providers.TokenMetrics
	safety    map[solana.Pubkey]providers.SafetyReport
	balances  map[string]decimal.Decimal // wallet|mint
	swaps     map[solana.Pubkey][]solana.SwapEvent
	creations map[solana.Pubkey][]solana.TokenCreation
	launches  []providers.TokenLaunch

	errs map[solana.Pubkey]error // forced per-mint metric failures
}

// New creates an empty stub provider set.
func New() *Providers {
	return &Providers{
		metrics:   make(map[solana.Pubkey]providers.TokenMetrics),
		safety:    make(map[solana.Pubkey]providers.SafetyReport),
		balances:  make(map[string]decimal.Decimal),
		swaps:     make(map[solana.Pubkey][]solana.SwapEvent),
		creations: make(map[solana.Pubkey][]solana.TokenCreation),
		errs:      make(map[solana.Pubkey]error),
	}
}

func balanceKey(wallet, mint solana.Pubkey) string {
	return string(wallet) + "|" + string(mint)
}

// SetMetrics installs the metrics fixture for a mint.
func (p *Providers) SetMetrics(m providers.TokenMetrics) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.metrics[m.Mint] = m
}

// SetMetricsError forces GetMetrics for the mint to fail with err.
func (p *Providers) SetMetricsError(mint solana.Pubkey, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errs[mint] = err
}

// SetSafety installs the safety-report fixture for a mint.
func (p *Providers) SetSafety(r providers.SafetyReport) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.safety[r.Mint] = r
}

// SetBalance installs the wallet's balance of mint.
func (p *Providers) SetBalance(wallet, mint solana.Pubkey, amount decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.balances[balanceKey(wallet, mint)] = amount
}

// SetSwaps installs the wallet's swap history, newest first.
func (p *Providers) SetSwaps(wallet solana.Pubkey, events []solana.SwapEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.swaps[wallet] = events
}

// SetCreations installs the wallet's token-creation history.
func (p *Providers) SetCreations(wallet solana.Pubkey, tokens []solana.TokenCreation) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.creations[wallet] = tokens
}

// AddLaunch appends a launch to the discovery feed fixture.
func (p *Providers) AddLaunch(l providers.TokenLaunch) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.launches = append(p.launches, l)
}

func (p *Providers) Name() string { return "stub" }

// GetMetrics implements providers.MetricsSource.
func (p *Providers) GetMetrics(_ context.Context, mint solana.Pubkey) (*providers.TokenMetrics, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if err, ok := p.errs[mint]; ok {
		return nil, err
	}
	m, ok := p.metrics[mint]
	if !ok {
		return nil, &UnknownMintError{Mint: mint}
	}
	out := m
	out.FetchedAt = time.Now()
	out.Source = "stub"
	return &out, nil
}

// GetSafetyReport implements providers.SafetySource. Mints with no fixture
// get a clean report.
func (p *Providers) GetSafetyReport(_ context.Context, mint solana.Pubkey) (*providers.SafetyReport, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if r, ok := p.safety[mint]; ok {
		out := r
		out.FetchedAt = time.Now()
		return &out, nil
	}
	return &providers.SafetyReport{
		Mint:               mint,
		NormalizedScore:    90,
		LiquidityLockedPct: 100,
		FetchedAt:          time.Now(),
	}, nil
}

// GetSwapHistory implements providers.WalletHistorySource.
func (p *Providers) GetSwapHistory(_ context.Context, wallet solana.Pubkey, limit int) ([]solana.SwapEvent, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	events := p.swaps[wallet]
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	out := make([]solana.SwapEvent, len(events))
	copy(out, events)
	return out, nil
}

// GetTokenBalance implements providers.WalletHistorySource.
func (p *Providers) GetTokenBalance(_ context.Context, wallet, mint solana.Pubkey) (decimal.Decimal, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.balances[balanceKey(wallet, mint)], nil
}

// GetCreationHistory implements providers.WalletHistorySource.
func (p *Providers) GetCreationHistory(_ context.Context, wallet solana.Pubkey) ([]solana.TokenCreation, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]solana.TokenCreation, len(p.creations[wallet]))
	copy(out, p.creations[wallet])
	return out, nil
}

// RecentLaunches implements providers.LaunchSource.
func (p *Providers) RecentLaunches(_ context.Context, since time.Time) ([]providers.TokenLaunch, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []providers.TokenLaunch
	for _, l := range p.launches {
		if l.LaunchedAt.After(since) {
			out = append(out, l)
		}
	}
	return out, nil
}

// UnknownMintError marks a fixture miss; callers treat it as permanent.
type UnknownMintError struct {
	Mint solana.Pubkey
}

func (e *UnknownMintError) Error() string {
	return "stub: no metrics fixture for mint " + string(e.Mint)
}
