package providers

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vigil-trading/vigil/internal/solana"
)

// ---------------------------------------------------------------------------
// Provider interfaces + normalized records
// Every upstream (market data, safety report, wallet history) is hidden
// behind one of these; the engine only ever sees the normalized shapes.
// ---------------------------------------------------------------------------

// TokenMetrics is one normalized per-mint market snapshot.
type TokenMetrics struct {
	Mint            solana.Pubkey   `json:"mint"`
	Holders         int             `json:"holders"`
	VolumeUSD       decimal.Decimal `json:"volume_usd"` // trailing window volume
	PriceUSD        decimal.Decimal `json:"price_usd"`
	LiquidityUSD    decimal.Decimal `json:"liquidity_usd"`
	MarketCapUSD    decimal.Decimal `json:"market_cap_usd"`
	BondingCurvePct float64         `json:"bonding_curve_pct"` // 0-100, 100 = graduated
	FetchedAt       time.Time       `json:"fetched_at"`
	Source          string          `json:"source"` // provider that served the snapshot
}

// RiskLevel classifies a safety-report risk flag.
type RiskLevel string

const (
	RiskInfo     RiskLevel = "info"
	RiskWarn     RiskLevel = "warn"
	RiskDanger   RiskLevel = "danger"
	RiskCritical RiskLevel = "critical" // any critical flag hard-rejects the token
)

// RiskFlag is one named, tagged risk from the safety provider. Provider
// specific extras that the engine never branches on stay in Extra.
type RiskFlag struct {
	Name        string            `json:"name"` // e.g. mint_authority_enabled
	Level       RiskLevel         `json:"level"`
	Description string            `json:"description,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// SafetyReport is the normalized token-safety report for a mint.
type SafetyReport struct {
	Mint              solana.Pubkey `json:"mint"`
	NormalizedScore   float64       `json:"normalized_score"` // 0-100, higher = safer
	Risks             []RiskFlag    `json:"risks"`
	LiquidityLockedPct float64      `json:"liquidity_locked_pct"`
	FetchedAt         time.Time     `json:"fetched_at"`
}

// CriticalRisk returns the first critical flag, if any.
func (r SafetyReport) CriticalRisk() *RiskFlag {
	for i := range r.Risks {
		if r.Risks[i].Level == RiskCritical {
			return &r.Risks[i]
		}
	}
	return nil
}

// TokenLaunch is a newly launched token from the discovery feed.
type TokenLaunch struct {
	Mint       solana.Pubkey `json:"mint"`
	Symbol     string        `json:"symbol"`
	Name       string        `json:"name"`
	Creator    solana.Pubkey `json:"creator"`
	LaunchedAt time.Time     `json:"launched_at"`
}

// MetricsSource fetches market metrics for a mint.
type MetricsSource interface {
	GetMetrics(ctx context.Context, mint solana.Pubkey) (*TokenMetrics, error)
	Name() string
}

// SafetySource fetches the token-safety report for a mint.
type SafetySource interface {
	GetSafetyReport(ctx context.Context, mint solana.Pubkey) (*SafetyReport, error)
}

// WalletHistorySource exposes the creator-wallet history operations the
// dev-wallet monitor needs.
type WalletHistorySource interface {
	GetSwapHistory(ctx context.Context, wallet solana.Pubkey, limit int) ([]solana.SwapEvent, error)
	GetTokenBalance(ctx context.Context, wallet, mint solana.Pubkey) (decimal.Decimal, error)
	GetCreationHistory(ctx context.Context, wallet solana.Pubkey) ([]solana.TokenCreation, error)
}

// LaunchSource yields newly launched tokens since the given time.
type LaunchSource interface {
	RecentLaunches(ctx context.Context, since time.Time) ([]TokenLaunch, error)
}
