// Package memory provides mutex-guarded in-memory stores, used in stub mode
// and in tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vigil-trading/vigil/internal/safeguard"
	"github.com/vigil-trading/vigil/internal/solana"
	"github.com/vigil-trading/vigil/internal/storage"
	"github.com/vigil-trading/vigil/internal/watchlist"
)

// WatchlistStore keeps entries and transitions in maps.
type WatchlistStore struct {
	mu          sync.RWMutex
	entries     map[solana.Pubkey]watchlist.Entry
	transitions map[solana.Pubkey][]watchlist.TransitionRecord
}

// NewWatchlistStore creates an empty store.
func NewWatchlistStore() *WatchlistStore {
	return &WatchlistStore{
		entries:     make(map[solana.Pubkey]watchlist.Entry),
		transitions: make(map[solana.Pubkey][]watchlist.TransitionRecord),
	}
}

func (s *WatchlistStore) UpsertEntry(_ context.Context, e *watchlist.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.Mint] = *e
	return nil
}

func (s *WatchlistStore) GetByMint(_ context.Context, mint solana.Pubkey) (*watchlist.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[mint]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := e
	return &cp, nil
}

func (s *WatchlistStore) ListByStatus(_ context.Context, statuses ...watchlist.Status) ([]*watchlist.Entry, error) {
	want := make(map[watchlist.Status]bool, len(statuses))
	for _, st := range statuses {
		want[st] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*watchlist.Entry
	for _, e := range s.entries {
		if want[e.Status] {
			cp := e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Mint < out[j].Mint })
	return out, nil
}

func (s *WatchlistStore) ListDue(_ context.Context, cutoff time.Time, limit int) ([]*watchlist.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*watchlist.Entry
	for _, e := range s.entries {
		if !e.IsActive() || e.LastCheckedAt.After(cutoff) {
			continue
		}
		cp := e
		out = append(out, &cp)
	}
	// Youngest tokens first: early-life volatility makes them the most
	// urgent to recheck when the per-cycle cap bites.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].FirstSeenAt.Equal(out[j].FirstSeenAt) {
			return out[i].FirstSeenAt.After(out[j].FirstSeenAt)
		}
		return out[i].Mint < out[j].Mint
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *WatchlistStore) AppendTransition(_ context.Context, rec *watchlist.TransitionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transitions[rec.Mint] = append(s.transitions[rec.Mint], *rec)
	return nil
}

func (s *WatchlistStore) ListTransitions(_ context.Context, mint solana.Pubkey, limit int) ([]*watchlist.TransitionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs := s.transitions[mint]
	var out []*watchlist.TransitionRecord
	for i := len(recs) - 1; i >= 0; i-- {
		cp := recs[i]
		out = append(out, &cp)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// SafeguardStore holds the singleton safeguard state.
type SafeguardStore struct {
	mu    sync.Mutex
	state *safeguard.State
}

// NewSafeguardStore creates an empty store.
func NewSafeguardStore() *SafeguardStore {
	return &SafeguardStore{}
}

func (s *SafeguardStore) LoadSafeguard(_ context.Context) (*safeguard.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return nil, nil
	}
	cp := *s.state
	return &cp, nil
}

func (s *SafeguardStore) SaveSafeguard(_ context.Context, st *safeguard.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *st
	s.state = &cp
	return nil
}

// SnapshotStore accumulates score snapshots in a slice.
type SnapshotStore struct {
	mu    sync.Mutex
	items []storage.ScoreSnapshot
}

// NewSnapshotStore creates an empty snapshot sink.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

func (s *SnapshotStore) AppendSnapshot(_ context.Context, snap storage.ScoreSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, snap)
	return nil
}

func (s *SnapshotStore) Close() error { return nil }

// Snapshots returns a copy of everything appended so far.
func (s *SnapshotStore) Snapshots() []storage.ScoreSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]storage.ScoreSnapshot, len(s.items))
	copy(out, s.items)
	return out
}
