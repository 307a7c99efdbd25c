package providers

import (
	"context"
	"strings"
	"time"

	"github.com/vigil-trading/vigil/internal/solana"
)

// safetyResponse is the upstream wire shape for /report/{mint}.
type safetyResponse struct {
	Mint  string  `json:"mint"`
	Score float64 `json:"score"` // 0-100 normalized, higher = safer
	Risks []struct {
		Name        string `json:"name"`
		Level       string `json:"level"`
		Description string `json:"description"`
	} `json:"risks"`
	LiquidityLockedPct float64 `json:"liquidityLockedPct"`
}

// criticalRiskNames are upstream flags promoted to critical regardless of
// the level the provider assigned. These are the hard-reject conditions.
var criticalRiskNames = map[string]bool{
	"freeze_authority_enabled": true,
	"mint_authority_enabled":   true,
	"honeypot":                 true,
	"rug_pull_detected":        true,
}

// HTTPSafetySource fetches token-safety reports.
type HTTPSafetySource struct {
	http *httpClient
}

// NewHTTPSafetySource creates the safety-check adapter.
func NewHTTPSafetySource(name, baseURL, apiKey string, rps float64, timeout time.Duration) *HTTPSafetySource {
	return &HTTPSafetySource{
		http: newHTTPClient(name, baseURL, apiKey, rps, timeout),
	}
}

// GetSafetyReport fetches and normalizes the safety report for a mint.
func (s *HTTPSafetySource) GetSafetyReport(ctx context.Context, mint solana.Pubkey) (*SafetyReport, error) {
	var resp safetyResponse
	if err := s.http.getJSON(ctx, "/report/"+string(mint), nil, &resp); err != nil {
		return nil, err
	}

	report := &SafetyReport{
		Mint:               mint,
		NormalizedScore:    resp.Score,
		LiquidityLockedPct: resp.LiquidityLockedPct,
		FetchedAt:          time.Now(),
	}
	for _, r := range resp.Risks {
		flag := RiskFlag{
			Name:        r.Name,
			Level:       normalizeRiskLevel(r.Level),
			Description: r.Description,
		}
		if criticalRiskNames[strings.ToLower(r.Name)] {
			flag.Level = RiskCritical
		}
		report.Risks = append(report.Risks, flag)
	}
	return report, nil
}

func normalizeRiskLevel(s string) RiskLevel {
	switch strings.ToLower(s) {
	case "critical", "crit":
		return RiskCritical
	case "danger", "high":
		return RiskDanger
	case "warn", "warning", "medium":
		return RiskWarn
	default:
		return RiskInfo
	}
}
