package devwallet

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/vigil-trading/vigil/internal/config"
	"github.com/vigil-trading/vigil/internal/providers"
	"github.com/vigil-trading/vigil/internal/solana"
)

// ---------------------------------------------------------------------------
// Dev-Wallet Monitor
// Tracks what a token's creator wallet is doing: selling into its own
// launch, exiting entirely, buying back, or spinning up the next token
// while this one is still live.
// ---------------------------------------------------------------------------

// Status is the outcome of one creator-wallet check for a single mint.
type Status struct {
	HasSold      bool            `json:"has_sold"`
	SellCount    int             `json:"sell_count"`
	SoldAmount   decimal.Decimal `json:"sold_amount"`
	HoldingPct   float64         `json:"holding_pct"` // of total supply
	IsFullExit   bool            `json:"is_full_exit"`
	HasBoughtBack bool           `json:"has_bought_back"`
	CheckedAt    time.Time       `json:"checked_at"`
}

// Monitor inspects creator wallets through the history provider. A sticky
// per-mint cache remembers creators that already fully exited or launched a
// successor, so settled verdicts never pay for another round of API calls.
type Monitor struct {
	cfg    config.DevWalletConfig
	source providers.WalletHistorySource

	mu      sync.RWMutex
	settled map[solana.Pubkey]Status // mint -> final verdict
}

// New creates a monitor over the given wallet-history source.
func New(cfg config.DevWalletConfig, source providers.WalletHistorySource) *Monitor {
	return &Monitor{
		cfg:     cfg,
		source:  source,
		settled: make(map[solana.Pubkey]Status),
	}
}

// CheckDevWallet evaluates the creator's position in the mint. Full exits
// are cached permanently: a dev who dumped everything stays dumped even if
// the wallet later rebuys dust.
func (m *Monitor) CheckDevWallet(ctx context.Context, creator, mint solana.Pubkey) (Status, error) {
	m.mu.RLock()
	cached, ok := m.settled[mint]
	m.mu.RUnlock()
	if ok {
		return cached, nil
	}

	swaps, err := m.source.GetSwapHistory(ctx, creator, m.cfg.SwapScanDepth)
	if err != nil {
		return Status{}, err
	}

	// History arrives newest first, so sells are aggregated before buys
	// are judged against the last sell.
	st := Status{CheckedAt: time.Now()}
	var lastSell time.Time
	for _, sw := range swaps {
		if sw.Mint != mint || sw.Side != solana.SwapSell {
			continue
		}
		st.HasSold = true
		st.SellCount++
		st.SoldAmount = st.SoldAmount.Add(sw.Amount)
		if sw.Timestamp.After(lastSell) {
			lastSell = sw.Timestamp
		}
	}
	if st.HasSold {
		for _, sw := range swaps {
			if sw.Mint != mint || sw.Side != solana.SwapBuy {
				continue
			}
			// A buy after the last sell is a rebuy, a classic pump pattern.
			if sw.Timestamp.After(lastSell) {
				st.HasBoughtBack = true
				break
			}
		}
	}

	balance, err := m.source.GetTokenBalance(ctx, creator, mint)
	if err != nil {
		return Status{}, err
	}
	st.HoldingPct, _ = balance.Div(solana.PumpTotalSupply).Mul(decimal.NewFromInt(100)).Float64()
	st.IsFullExit = st.HasSold && st.HoldingPct < m.cfg.FullExitEpsilon

	if st.IsFullExit {
		m.mu.Lock()
		m.settled[mint] = st
		m.mu.Unlock()
		log.Warn().
			Str("mint", string(mint)).
			Str("creator", string(creator)).
			Int("sell_count", st.SellCount).
			Msg("devwallet: creator fully exited")
	}

	return st, nil
}

// CheckNewLaunch reports whether the creator launched another token after
// tokenCreatedAt. A positive verdict is sticky per mint.
func (m *Monitor) CheckNewLaunch(ctx context.Context, creator, mint solana.Pubkey, tokenCreatedAt time.Time) (bool, error) {
	m.mu.RLock()
	_, settled := m.settled[newLaunchKey(mint)]
	m.mu.RUnlock()
	if settled {
		return true, nil
	}

	creations, err := m.source.GetCreationHistory(ctx, creator)
	if err != nil {
		return false, err
	}

	for _, c := range creations {
		if c.Mint == mint {
			continue
		}
		if c.CreatedAt.After(tokenCreatedAt) {
			m.mu.Lock()
			m.settled[newLaunchKey(mint)] = Status{CheckedAt: time.Now()}
			m.mu.Unlock()
			log.Warn().
				Str("mint", string(mint)).
				Str("creator", string(creator)).
				Str("new_mint", string(c.Mint)).
				Msg("devwallet: creator launched a new token")
			return true, nil
		}
	}
	return false, nil
}

// IsYoungToken reports whether the token is still inside the window where a
// creator full exit earns a permanent rejection instead of a soft one.
func (m *Monitor) IsYoungToken(createdAt, now time.Time) bool {
	return now.Sub(createdAt) < m.cfg.YoungTokenWindow
}

// newLaunchKey namespaces sticky new-launch verdicts away from full-exit
// verdicts in the same map.
func newLaunchKey(mint solana.Pubkey) solana.Pubkey {
	return "launch:" + mint
}
