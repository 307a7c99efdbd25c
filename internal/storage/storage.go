package storage

import (
	"context"
	"errors"
	"time"

	"github.com/vigil-trading/vigil/internal/safeguard"
	"github.com/vigil-trading/vigil/internal/solana"
	"github.com/vigil-trading/vigil/internal/watchlist"
)

var (
	// ErrNotFound means no entry exists for the requested mint.
	ErrNotFound = errors.New("storage: not found")
	// ErrDuplicateKey means an insert collided with an existing row.
	ErrDuplicateKey = errors.New("storage: duplicate key")
)

// WatchlistStore persists lifecycle entries and their transition log.
type WatchlistStore interface {
	// UpsertEntry inserts or fully replaces the entry keyed by mint.
	UpsertEntry(ctx context.Context, e *watchlist.Entry) error
	// GetByMint returns the entry or ErrNotFound.
	GetByMint(ctx context.Context, mint solana.Pubkey) (*watchlist.Entry, error)
	// ListByStatus returns all entries in any of the given statuses.
	ListByStatus(ctx context.Context, statuses ...watchlist.Status) ([]*watchlist.Entry, error)
	// ListDue returns up to limit active entries last checked before the
	// cutoff, newest token first.
	ListDue(ctx context.Context, cutoff time.Time, limit int) ([]*watchlist.Entry, error)
	// AppendTransition records one state-machine transition.
	AppendTransition(ctx context.Context, rec *watchlist.TransitionRecord) error
	// ListTransitions returns the mint's transition history, newest first.
	ListTransitions(ctx context.Context, mint solana.Pubkey, limit int) ([]*watchlist.TransitionRecord, error)
}

// SafeguardStore persists the singleton safeguard state.
type SafeguardStore = safeguard.Store

// ScoreSnapshot is one append-only scoring observation, written per check
// for later analysis. Never read on the hot path.
type ScoreSnapshot struct {
	Mint       solana.Pubkey
	Status     watchlist.Status
	Holder     float64
	Volume     float64
	Safety     float64
	Momentum   float64
	Total      float64
	HardReject bool
	Holders    int
	VolumeUSD  float64
	PriceUSD   float64
	CheckedAt  time.Time
}

// SnapshotStore is the append-only score history sink.
type SnapshotStore interface {
	AppendSnapshot(ctx context.Context, s ScoreSnapshot) error
	Close() error
}
