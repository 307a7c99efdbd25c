package watchlist

import (
	"time"

	"github.com/vigil-trading/vigil/internal/providers"
	"github.com/vigil-trading/vigil/internal/scoring"
	"github.com/vigil-trading/vigil/internal/solana"
)

// Status is the lifecycle state of a tracked mint.
type Status string

const (
	// StatusPendingTriage is the entry state for a freshly discovered mint
	// awaiting its first full check.
	StatusPendingTriage Status = "pending_triage"
	StatusWatching      Status = "watching"
	StatusQualified     Status = "qualified"
	StatusRejected      Status = "rejected"
	StatusDead          Status = "dead"   // slow bleed below alive thresholds
	StatusBombed        Status = "bombed" // sudden single-step collapse
	StatusRemoved       Status = "removed"
)

// RejectionKind distinguishes recoverable from terminal rejections.
type RejectionKind string

const (
	RejectNone      RejectionKind = ""
	RejectSoft      RejectionKind = "soft"      // may re-enter watching after cool-down
	RejectPermanent RejectionKind = "permanent" // terminal
)

// RiskAnnotations is the bounded set of risk flags carried alongside the
// lifecycle status. DevSold and DevLaunchedNew are sticky: the engine never
// clears them once set (only a full administrative reset does).
type RiskAnnotations struct {
	DevSold             bool    `json:"dev_sold"`
	DevLaunchedNew      bool    `json:"dev_launched_new"`
	DevHoldingPct       float64 `json:"dev_holding_pct"`
	InsiderActivity     bool    `json:"insider_activity"`
	GiniCoefficient     float64 `json:"gini_coefficient"`
	LinkedWallets       int     `json:"linked_wallets"`
	BundledBuys         int     `json:"bundled_buys"`
	FreshWalletPct      float64 `json:"fresh_wallet_pct"`
	SuspiciousWalletPct float64 `json:"suspicious_wallet_pct"`
}

// Entry is the one mutable record per tracked mint. The mint is immutable
// once the entry exists; everything else is owned by the state machine and
// the polling cycle.
type Entry struct {
	Mint    solana.Pubkey `json:"mint"`
	Symbol  string        `json:"symbol"`
	Name    string        `json:"name"`
	Creator solana.Pubkey `json:"creator,omitempty"`

	Status        Status        `json:"status"`
	RejectionKind RejectionKind `json:"rejection_kind,omitempty"`

	FirstSeenAt   time.Time  `json:"first_seen_at"`
	LastCheckedAt time.Time  `json:"last_checked_at"`
	QualifiedAt   *time.Time `json:"qualified_at,omitempty"`
	RejectedAt    *time.Time `json:"rejected_at,omitempty"`
	RemovedAt     *time.Time `json:"removed_at,omitempty"`

	// Current and previous metric snapshots; the pair feeds momentum.
	Metrics     *providers.TokenMetrics `json:"metrics,omitempty"`
	PrevMetrics *providers.TokenMetrics `json:"prev_metrics,omitempty"`

	Score scoring.Breakdown `json:"score"`
	Risk  RiskAnnotations   `json:"risk"`

	QualifyReason string `json:"qualify_reason,omitempty"`
	RejectReason  string `json:"reject_reason,omitempty"` // also carries dead/bombed reasons
	RemoveReason  string `json:"remove_reason,omitempty"`

	// BelowAliveSince tracks how long the token has sat under the alive
	// thresholds, for the dead-grace-period rule.
	BelowAliveSince *time.Time `json:"below_alive_since,omitempty"`
}

// NewEntry creates a pending_triage entry for a discovered launch.
func NewEntry(launch providers.TokenLaunch, now time.Time) *Entry {
	return &Entry{
		Mint:          launch.Mint,
		Symbol:        launch.Symbol,
		Name:          launch.Name,
		Creator:       launch.Creator,
		Status:        StatusPendingTriage,
		FirstSeenAt:   now,
		LastCheckedAt: now,
	}
}

// IsActive reports whether the entry counts against the watchdog cap.
func (e *Entry) IsActive() bool {
	switch e.Status {
	case StatusPendingTriage, StatusWatching, StatusQualified:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the entry can never return to watching.
func (e *Entry) IsTerminal() bool {
	switch e.Status {
	case StatusDead, StatusBombed, StatusRemoved:
		return true
	case StatusRejected:
		return e.RejectionKind == RejectPermanent
	default:
		return false
	}
}

// RecordMetrics rotates the metric snapshots.
func (e *Entry) RecordMetrics(m *providers.TokenMetrics) {
	e.PrevMetrics = e.Metrics
	e.Metrics = m
}

// MarkDevSold sets the sticky dev-sold flag.
func (e *Entry) MarkDevSold(holdingPct float64) {
	e.Risk.DevSold = true
	e.Risk.DevHoldingPct = holdingPct
}

// MarkDevLaunchedNew sets the sticky dev-launched-new flag.
func (e *Entry) MarkDevLaunchedNew() {
	e.Risk.DevLaunchedNew = true
}
