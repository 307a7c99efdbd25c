package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigil-trading/vigil/internal/safeguard"
	"github.com/vigil-trading/vigil/internal/solana"
	"github.com/vigil-trading/vigil/internal/storage"
	"github.com/vigil-trading/vigil/internal/watchlist"
)

func entry(mint string, status watchlist.Status, lastChecked time.Time) *watchlist.Entry {
	return &watchlist.Entry{
		Mint:          solana.Pubkey(mint),
		Status:        status,
		FirstSeenAt:   lastChecked.Add(-time.Hour),
		LastCheckedAt: lastChecked,
	}
}

func TestUpsertAndGet(t *testing.T) {
	s := NewWatchlistStore()
	ctx := context.Background()

	_, err := s.GetByMint(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	e := entry("mintA", watchlist.StatusWatching, time.Now())
	require.NoError(t, s.UpsertEntry(ctx, e))

	got, err := s.GetByMint(ctx, "mintA")
	require.NoError(t, err)
	assert.Equal(t, watchlist.StatusWatching, got.Status)

	// Returned copy is detached from the store.
	got.Status = watchlist.StatusDead
	again, err := s.GetByMint(ctx, "mintA")
	require.NoError(t, err)
	assert.Equal(t, watchlist.StatusWatching, again.Status)
}

func TestListByStatus(t *testing.T) {
	s := NewWatchlistStore()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.UpsertEntry(ctx, entry("a", watchlist.StatusWatching, now)))
	require.NoError(t, s.UpsertEntry(ctx, entry("b", watchlist.StatusQualified, now)))
	require.NoError(t, s.UpsertEntry(ctx, entry("c", watchlist.StatusDead, now)))

	got, err := s.ListByStatus(ctx, watchlist.StatusWatching, watchlist.StatusQualified)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, solana.Pubkey("a"), got[0].Mint)
	assert.Equal(t, solana.Pubkey("b"), got[1].Mint)
}

func TestListDueOrderedAndLimited(t *testing.T) {
	s := NewWatchlistStore()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.UpsertEntry(ctx, entry("old", watchlist.StatusWatching, now.Add(-time.Hour))))
	require.NoError(t, s.UpsertEntry(ctx, entry("older", watchlist.StatusWatching, now.Add(-2*time.Hour))))
	require.NoError(t, s.UpsertEntry(ctx, entry("fresh", watchlist.StatusWatching, now)))
	require.NoError(t, s.UpsertEntry(ctx, entry("deadOld", watchlist.StatusDead, now.Add(-3*time.Hour))))

	due, err := s.ListDue(ctx, now.Add(-time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, due, 2, "fresh not due, dead not active")
	assert.Equal(t, solana.Pubkey("old"), due[0].Mint, "youngest token first")

	due, err = s.ListDue(ctx, now.Add(-time.Minute), 1)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, solana.Pubkey("old"), due[0].Mint)
}

func TestTransitionLog(t *testing.T) {
	s := NewWatchlistStore()
	ctx := context.Background()
	now := time.Now()

	for i, to := range []watchlist.Status{watchlist.StatusWatching, watchlist.StatusQualified} {
		rec := &watchlist.TransitionRecord{
			ID:   string(rune('a' + i)),
			Mint: "mintA",
			To:   to,
			At:   now.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, s.AppendTransition(ctx, rec))
	}

	recs, err := s.ListTransitions(ctx, "mintA", 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, watchlist.StatusQualified, recs[0].To, "newest first")

	recs, err = s.ListTransitions(ctx, "mintA", 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
}

func TestSnapshotStore(t *testing.T) {
	s := NewSnapshotStore()
	ctx := context.Background()

	require.NoError(t, s.AppendSnapshot(ctx, storage.ScoreSnapshot{Mint: "m", Total: 71}))
	require.NoError(t, s.AppendSnapshot(ctx, storage.ScoreSnapshot{Mint: "m", Total: 68}))

	snaps := s.Snapshots()
	require.Len(t, snaps, 2)
	assert.Equal(t, 71.0, snaps[0].Total)
	require.NoError(t, s.Close())
}

func TestSafeguardRoundTrip(t *testing.T) {
	s := NewSafeguardStore()
	ctx := context.Background()

	st, err := s.LoadSafeguard(ctx)
	require.NoError(t, err)
	assert.Nil(t, st)

	require.NoError(t, s.SaveSafeguard(ctx, &safeguard.State{KillSwitchActive: true}))
	st, err = s.LoadSafeguard(ctx)
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.True(t, st.KillSwitchActive)
}
