package scoring

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/vigil-trading/vigil/internal/providers"
)

func metricsFixture(holders int, volume, price float64) providers.TokenMetrics {
	return providers.TokenMetrics{
		Mint:            "test-mint",
		Holders:         holders,
		VolumeUSD:       decimal.NewFromFloat(volume),
		PriceUSD:        decimal.NewFromFloat(price),
		LiquidityUSD:    decimal.NewFromFloat(10000),
		MarketCapUSD:    decimal.NewFromFloat(50000),
		BondingCurvePct: 80,
	}
}

func cleanReport() providers.SafetyReport {
	return providers.SafetyReport{
		Mint:               "test-mint",
		NormalizedScore:    90,
		LiquidityLockedPct: 100,
	}
}

func TestScore_BoundsAndSum(t *testing.T) {
	cases := []struct {
		name    string
		holders int
		volume  float64
		price   float64
	}{
		{"empty token", 0, 0, 0},
		{"tiny token", 15, 30, 0.0001},
		{"mid token", 300, 600, 0.001},
		{"large token", 5000, 100000, 0.01},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := metricsFixture(tc.holders, tc.volume, tc.price)
			b := Score(m, cleanReport(), nil)

			for _, comp := range []float64{b.Holder, b.Volume, b.Safety, b.Momentum} {
				assert.GreaterOrEqual(t, comp, 0.0)
				assert.LessOrEqual(t, comp, 25.0)
			}
			assert.GreaterOrEqual(t, b.Total, 0.0)
			assert.LessOrEqual(t, b.Total, 100.0)
			assert.InDelta(t, b.Holder+b.Volume+b.Safety+b.Momentum, b.Total, 1e-9)
		})
	}
}

func TestScore_CriticalFlagHardRejects(t *testing.T) {
	m := metricsFixture(5000, 100000, 0.01) // would otherwise score high
	rep := cleanReport()
	rep.Risks = []providers.RiskFlag{
		{Name: "freeze_authority_enabled", Level: providers.RiskCritical},
	}

	b := Score(m, rep, nil)

	assert.True(t, b.HardReject)
	assert.Zero(t, b.Safety)
	assert.Zero(t, b.Total)
	assert.Contains(t, b.RejectReason, "freeze_authority_enabled")
}

func TestScore_HolderCurveMonotonic(t *testing.T) {
	last := -1.0
	for _, h := range []int{0, 10, 50, 100, 250, 500, 1000, 1500, 10000} {
		s := holderScore(h)
		assert.GreaterOrEqual(t, s, last, "holders=%d", h)
		last = s
	}
	// Steepest region is 100..500: compare equal 50-holder spans.
	gainLow := holderScore(80) - holderScore(30)
	gainSteep := holderScore(350) - holderScore(300)
	assert.Greater(t, gainSteep, gainLow)
}

func TestScore_MomentumPositiveOnGrowth(t *testing.T) {
	prev := metricsFixture(550, 200, 0.001)
	m := metricsFixture(600, 250, 0.001)

	b := Score(m, cleanReport(), &prev)

	assert.Greater(t, b.Momentum, 0.0)
	// The reference example: growing mid-size token with a clean report
	// clears a typical qualification bar.
	assert.GreaterOrEqual(t, b.Total, 70.0)
}

func TestScore_MomentumNearZeroWhenBleeding(t *testing.T) {
	prev := metricsFixture(1000, 5000, 0.01)
	m := metricsFixture(600, 1500, 0.004) // losing holders, volume, price

	b := Score(m, cleanReport(), &prev)

	assert.Less(t, b.Momentum, 1.0)
}

func TestScore_MomentumNeutralWithoutPrevious(t *testing.T) {
	m := metricsFixture(600, 250, 0.001)
	b := Score(m, cleanReport(), nil)
	assert.InDelta(t, momentumBaseline, b.Momentum, 1e-9)
}

func TestScore_VolumeAccelerationBonus(t *testing.T) {
	prev := metricsFixture(500, 200, 0.001)
	flat := metricsFixture(500, 200, 0.001)
	ramping := metricsFixture(500, 400, 0.001)

	flatScore := volumeScore(flat, &prev)
	rampScore := volumeScore(ramping, &prev)

	assert.Greater(t, rampScore, flatScore)
}

func TestScore_SafetyDeductions(t *testing.T) {
	rep := cleanReport()
	base := safetyScore(rep)

	rep.Risks = []providers.RiskFlag{
		{Name: "top_holder_concentration", Level: providers.RiskDanger},
	}
	withDanger := safetyScore(rep)
	assert.Less(t, withDanger, base)

	rep.LiquidityLockedPct = 10
	withUnlocked := safetyScore(rep)
	assert.Less(t, withUnlocked, withDanger)
}
