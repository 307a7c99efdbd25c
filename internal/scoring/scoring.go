package scoring

import (
	"fmt"

	"github.com/vigil-trading/vigil/internal/providers"
)

// ---------------------------------------------------------------------------
// Qualification Scoring Engine
// Four components, 25 points each: Holder + Volume + Safety + Momentum.
// Pure: metrics in, score out. No I/O, no clocks, no state.
// ---------------------------------------------------------------------------

// componentMax bounds each sub-score.
const componentMax = 25.0

// Breakdown is the full qualification score for one check.
type Breakdown struct {
	Holder   float64 `json:"holder"`   // 0-25
	Volume   float64 `json:"volume"`   // 0-25
	Safety   float64 `json:"safety"`   // 0-25
	Momentum float64 `json:"momentum"` // 0-25
	Total    float64 `json:"total"`    // sum, 0-100

	// HardReject short-circuits everything: the token must be permanently
	// rejected regardless of the other components.
	HardReject   bool     `json:"hard_reject"`
	RejectReason string   `json:"reject_reason,omitempty"`
	Reasons      []string `json:"reasons,omitempty"`
}

// Score computes the full breakdown. prev may be nil on a token's first
// check; momentum then sits at its neutral baseline.
func Score(m providers.TokenMetrics, rep providers.SafetyReport, prev *providers.TokenMetrics) Breakdown {
	b := Breakdown{}

	// Safety first: a critical flag kills the token before anything else
	// is worth computing.
	if crit := rep.CriticalRisk(); crit != nil {
		b.HardReject = true
		b.RejectReason = "critical safety flag: " + crit.Name
		b.Reasons = append(b.Reasons, "HARD_REJECT:"+crit.Name)
		return b
	}

	b.Holder = holderScore(m.Holders)
	b.Volume = volumeScore(m, prev)
	b.Safety = safetyScore(rep)
	b.Momentum = momentumScore(m, prev)
	b.Total = b.Holder + b.Volume + b.Safety + b.Momentum

	b.Reasons = append(b.Reasons, fmt.Sprintf(
		"holder=%.1f volume=%.1f safety=%.1f momentum=%.1f", b.Holder, b.Volume, b.Safety, b.Momentum))

	return b
}

// holderScore maps holder count onto a steeply concave 0-25 curve. Tokens
// under ~100 holders rarely survive; the steepest gains sit between 100 and
// 500 where survival odds improve the most.
func holderScore(holders int) float64 {
	h := float64(holders)
	switch {
	case h <= 10:
		return 0
	case h <= 100:
		return lerp(h, 10, 100, 0, 3)
	case h <= 500:
		return lerp(h, 100, 500, 3, 20)
	case h <= 1500:
		return lerp(h, 500, 1500, 20, 24)
	default:
		return componentMax
	}
}

// volumeScore combines absolute window volume with an acceleration bonus.
// Absolute volume alone underweights tokens whose volume is ramping.
func volumeScore(m providers.TokenMetrics, prev *providers.TokenMetrics) float64 {
	vol := m.VolumeUSD.InexactFloat64()

	var base float64
	switch {
	case vol >= 5000:
		base = 18
	case vol >= 1000:
		base = 16
	case vol >= 500:
		base = 14
	case vol >= 250:
		base = 12
	case vol >= 100:
		base = 8
	case vol >= 25:
		base = 4
	default:
		base = 0
	}

	// Acceleration bonus: how fast volume grew since the previous check.
	var bonus float64
	if prev != nil && prev.VolumeUSD.IsPositive() {
		growthPct := m.VolumeUSD.Sub(prev.VolumeUSD).
			Div(prev.VolumeUSD).InexactFloat64() * 100
		bonus = clamp(growthPct*0.2, 0, componentMax-18)
	}

	return clamp(base+bonus, 0, componentMax)
}

// safetyScore converts the provider's normalized 0-100 risk score into the
// 0-25 component and deducts for specific named non-critical flags.
func safetyScore(rep providers.SafetyReport) float64 {
	score := rep.NormalizedScore / 100 * componentMax

	for _, risk := range rep.Risks {
		switch risk.Level {
		case providers.RiskDanger:
			score -= 5
		case providers.RiskWarn:
			score -= 1.5
		}
	}

	if rep.LiquidityLockedPct < 50 {
		score -= 5
	}

	return clamp(score, 0, componentMax)
}

// Momentum tuning: baseline is where a flat token sits; the per-delta gains
// convert percentage change into points.
const (
	momentumBaseline   = 6.0
	holderDeltaGain    = 0.6
	volumeDeltaGain    = 0.25
	priceDeltaGain     = 0.25
	momentumDeltaFloor = -10.0
)

// momentumScore combines the sign and magnitude of holder, volume, and
// price deltas since the previous check. A token losing holders and volume
// at once lands near zero here no matter its absolute levels.
func momentumScore(m providers.TokenMetrics, prev *providers.TokenMetrics) float64 {
	if prev == nil {
		return momentumBaseline
	}

	score := momentumBaseline

	if prev.Holders > 0 {
		deltaPct := float64(m.Holders-prev.Holders) / float64(prev.Holders) * 100
		score += clamp(deltaPct*holderDeltaGain, momentumDeltaFloor, 7)
	}
	if prev.VolumeUSD.IsPositive() {
		deltaPct := m.VolumeUSD.Sub(prev.VolumeUSD).
			Div(prev.VolumeUSD).InexactFloat64() * 100
		score += clamp(deltaPct*volumeDeltaGain, momentumDeltaFloor, 6)
	}
	if prev.PriceUSD.IsPositive() {
		deltaPct := m.PriceUSD.Sub(prev.PriceUSD).
			Div(prev.PriceUSD).InexactFloat64() * 100
		score += clamp(deltaPct*priceDeltaGain, momentumDeltaFloor, 6)
	}

	return clamp(score, 0, componentMax)
}

func lerp(v, lo, hi, outLo, outHi float64) float64 {
	return outLo + (v-lo)/(hi-lo)*(outHi-outLo)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
