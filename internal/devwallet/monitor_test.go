package devwallet

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigil-trading/vigil/internal/config"
	"github.com/vigil-trading/vigil/internal/providers/stub"
	"github.com/vigil-trading/vigil/internal/solana"
)

const (
	testCreator = solana.Pubkey("DevCreator11111111111111111111111111111111")
	testMint    = solana.Pubkey("MintAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	otherMint   = solana.Pubkey("MintBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB")
)

func testMonitor(t *testing.T) (*Monitor, *stub.Providers) {
	t.Helper()
	p := stub.New()
	cfg := config.DevWalletConfig{
		YoungTokenWindow: time.Hour,
		FullExitEpsilon:  0.1,
		SwapScanDepth:    200,
	}
	return New(cfg, p), p
}

func swap(mint solana.Pubkey, side solana.SwapSide, amount int64, at time.Time) solana.SwapEvent {
	return solana.SwapEvent{
		Wallet:    testCreator,
		Mint:      mint,
		Side:      side,
		Amount:    decimal.NewFromInt(amount),
		Timestamp: at,
	}
}

func TestCleanCreator(t *testing.T) {
	m, p := testMonitor(t)
	now := time.Now()
	p.SetSwaps(testCreator, []solana.SwapEvent{
		swap(testMint, solana.SwapBuy, 50_000_000, now.Add(-time.Hour)),
	})
	p.SetBalance(testCreator, testMint, decimal.NewFromInt(50_000_000))

	st, err := m.CheckDevWallet(context.Background(), testCreator, testMint)
	require.NoError(t, err)
	assert.False(t, st.HasSold)
	assert.False(t, st.IsFullExit)
	assert.InDelta(t, 5.0, st.HoldingPct, 0.001)
}

func TestSellDetection(t *testing.T) {
	m, p := testMonitor(t)
	now := time.Now()
	p.SetSwaps(testCreator, []solana.SwapEvent{
		swap(testMint, solana.SwapSell, 10_000_000, now.Add(-5*time.Minute)),
		swap(testMint, solana.SwapSell, 20_000_000, now.Add(-10*time.Minute)),
		swap(otherMint, solana.SwapSell, 99_000_000, now.Add(-2*time.Minute)), // different mint, ignored
	})
	p.SetBalance(testCreator, testMint, decimal.NewFromInt(20_000_000))

	st, err := m.CheckDevWallet(context.Background(), testCreator, testMint)
	require.NoError(t, err)
	assert.True(t, st.HasSold)
	assert.Equal(t, 2, st.SellCount)
	assert.True(t, st.SoldAmount.Equal(decimal.NewFromInt(30_000_000)))
	assert.False(t, st.IsFullExit, "still holds 2% of supply")
}

func TestFullExitAndStickyCache(t *testing.T) {
	m, p := testMonitor(t)
	now := time.Now()
	p.SetSwaps(testCreator, []solana.SwapEvent{
		swap(testMint, solana.SwapSell, 50_000_000, now.Add(-time.Minute)),
	})
	p.SetBalance(testCreator, testMint, decimal.Zero)

	st, err := m.CheckDevWallet(context.Background(), testCreator, testMint)
	require.NoError(t, err)
	assert.True(t, st.IsFullExit)

	// Verdict is settled: a later rebuy does not un-exit the creator.
	p.SetBalance(testCreator, testMint, decimal.NewFromInt(30_000_000))
	st2, err := m.CheckDevWallet(context.Background(), testCreator, testMint)
	require.NoError(t, err)
	assert.True(t, st2.IsFullExit)
	assert.Equal(t, st.CheckedAt, st2.CheckedAt)
}

func TestDustBalanceCountsAsExit(t *testing.T) {
	m, p := testMonitor(t)
	now := time.Now()
	p.SetSwaps(testCreator, []solana.SwapEvent{
		swap(testMint, solana.SwapSell, 50_000_000, now.Add(-time.Minute)),
	})
	// 0.05% of supply, below the 0.1 epsilon.
	p.SetBalance(testCreator, testMint, decimal.NewFromInt(500_000))

	st, err := m.CheckDevWallet(context.Background(), testCreator, testMint)
	require.NoError(t, err)
	assert.True(t, st.IsFullExit)
}

func TestNoSellNoExitEvenAtZeroBalance(t *testing.T) {
	m, p := testMonitor(t)
	p.SetSwaps(testCreator, nil)
	p.SetBalance(testCreator, testMint, decimal.Zero)

	st, err := m.CheckDevWallet(context.Background(), testCreator, testMint)
	require.NoError(t, err)
	assert.False(t, st.IsFullExit, "exit requires an observed sell")
}

func TestRebuyDetection(t *testing.T) {
	m, p := testMonitor(t)
	now := time.Now()
	p.SetSwaps(testCreator, []solana.SwapEvent{
		swap(testMint, solana.SwapBuy, 5_000_000, now.Add(-time.Minute)),
		swap(testMint, solana.SwapSell, 40_000_000, now.Add(-10*time.Minute)),
		swap(testMint, solana.SwapBuy, 40_000_000, now.Add(-time.Hour)),
	})
	p.SetBalance(testCreator, testMint, decimal.NewFromInt(5_000_000))

	st, err := m.CheckDevWallet(context.Background(), testCreator, testMint)
	require.NoError(t, err)
	assert.True(t, st.HasSold)
	assert.True(t, st.HasBoughtBack, "buy after the last sell is a rebuy")
}

func TestFullExitThenDustRebuy(t *testing.T) {
	m, p := testMonitor(t)
	now := time.Now()
	// Dumped to zero, then rebought dust. The holding stays below the
	// epsilon, but the rebuy flag must survive the newest-first history.
	p.SetSwaps(testCreator, []solana.SwapEvent{
		swap(testMint, solana.SwapBuy, 100_000, now.Add(-time.Minute)),
		swap(testMint, solana.SwapSell, 40_000_000, now.Add(-10*time.Minute)),
		swap(testMint, solana.SwapBuy, 40_000_000, now.Add(-time.Hour)),
	})
	p.SetBalance(testCreator, testMint, decimal.NewFromInt(100_000))

	st, err := m.CheckDevWallet(context.Background(), testCreator, testMint)
	require.NoError(t, err)
	assert.True(t, st.IsFullExit)
	assert.True(t, st.HasBoughtBack, "dust rebuy after the exit must be visible")
}

func TestInitialBuyIsNotRebuy(t *testing.T) {
	m, p := testMonitor(t)
	now := time.Now()
	p.SetSwaps(testCreator, []solana.SwapEvent{
		swap(testMint, solana.SwapSell, 20_000_000, now.Add(-time.Minute)),
		swap(testMint, solana.SwapBuy, 40_000_000, now.Add(-time.Hour)),
	})
	p.SetBalance(testCreator, testMint, decimal.NewFromInt(20_000_000))

	st, err := m.CheckDevWallet(context.Background(), testCreator, testMint)
	require.NoError(t, err)
	assert.False(t, st.HasBoughtBack)
}

func TestNewLaunchDetection(t *testing.T) {
	m, p := testMonitor(t)
	createdAt := time.Now().Add(-2 * time.Hour)
	p.SetCreations(testCreator, []solana.TokenCreation{
		{Mint: testMint, Creator: testCreator, CreatedAt: createdAt},
		{Mint: otherMint, Creator: testCreator, CreatedAt: createdAt.Add(time.Hour)},
	})

	launched, err := m.CheckNewLaunch(context.Background(), testCreator, testMint, createdAt)
	require.NoError(t, err)
	assert.True(t, launched)

	// Sticky: drops straight out of the cache with no provider call.
	p.SetCreations(testCreator, nil)
	launched, err = m.CheckNewLaunch(context.Background(), testCreator, testMint, createdAt)
	require.NoError(t, err)
	assert.True(t, launched)
}

func TestOlderLaunchesIgnored(t *testing.T) {
	m, p := testMonitor(t)
	createdAt := time.Now().Add(-time.Hour)
	p.SetCreations(testCreator, []solana.TokenCreation{
		{Mint: otherMint, Creator: testCreator, CreatedAt: createdAt.Add(-24 * time.Hour)},
		{Mint: testMint, Creator: testCreator, CreatedAt: createdAt},
	})

	launched, err := m.CheckNewLaunch(context.Background(), testCreator, testMint, createdAt)
	require.NoError(t, err)
	assert.False(t, launched, "prior launches are history, not abandonment")
}

func TestIsYoungToken(t *testing.T) {
	m, _ := testMonitor(t)
	now := time.Now()
	assert.True(t, m.IsYoungToken(now.Add(-30*time.Minute), now))
	assert.False(t, m.IsYoungToken(now.Add(-2*time.Hour), now))
}
