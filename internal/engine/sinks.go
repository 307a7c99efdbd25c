package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vigil-trading/vigil/internal/solana"
)

// TradeCandidate is a qualified token handed to downstream execution.
// CanExecute is false when a safeguard (daily cap, kill switch race)
// blocked execution while still preserving the qualification itself.
type TradeCandidate struct {
	Mint        solana.Pubkey `json:"mint"`
	Symbol      string        `json:"symbol"`
	Score       float64       `json:"score"`
	Reason      string        `json:"reason"`
	CanExecute  bool          `json:"can_execute"`
	QualifiedAt time.Time     `json:"qualified_at"`
}

// TradeSink receives qualified candidates. Execution is out of scope for
// the engine; the sink is the hand-off point.
type TradeSink interface {
	EmitCandidate(ctx context.Context, c TradeCandidate) error
}

// NotifySink receives end-of-cycle summaries.
type NotifySink interface {
	NotifySummary(ctx context.Context, s CycleSummary) error
}

// LogTradeSink logs candidates instead of forwarding them. The default in
// stub mode and when no executor is wired.
type LogTradeSink struct{}

func (LogTradeSink) EmitCandidate(_ context.Context, c TradeCandidate) error {
	log.Info().
		Str("mint", string(c.Mint)).
		Str("symbol", c.Symbol).
		Float64("score", c.Score).
		Bool("can_execute", c.CanExecute).
		Str("reason", c.Reason).
		Msg("trade candidate emitted")
	return nil
}

// LogNotifySink logs cycle summaries.
type LogNotifySink struct{}

func (LogNotifySink) NotifySummary(_ context.Context, s CycleSummary) error {
	log.Info().
		Str("cycle_id", s.CycleID).
		Int("scanned", s.Scanned).
		Int("added", s.Added).
		Int("qualified", s.Qualified).
		Int("removed", s.Removed).
		Int("updated", s.Updated).
		Int("errors", s.Errors).
		Bool("aborted", s.Aborted).
		Dur("duration", s.Duration).
		Msg("cycle complete")
	return nil
}

// CaptureTradeSink buffers candidates in memory, for tests and stub mode
// inspection.
type CaptureTradeSink struct {
	mu         sync.Mutex
	candidates []TradeCandidate
}

func (s *CaptureTradeSink) EmitCandidate(_ context.Context, c TradeCandidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidates = append(s.candidates, c)
	return nil
}

// Candidates returns a copy of everything emitted so far.
func (s *CaptureTradeSink) Candidates() []TradeCandidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TradeCandidate, len(s.candidates))
	copy(out, s.candidates)
	return out
}
