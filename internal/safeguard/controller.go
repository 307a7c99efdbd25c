package safeguard

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ---------------------------------------------------------------------------
// Safeguard Controller
// Process-wide breakers consulted before every promotion and emission,
// independent of any single token's score.
// SAFETY > PROFIT > SPEED
// ---------------------------------------------------------------------------

// State is the persisted process-wide safeguard snapshot.
type State struct {
	KillSwitchActive bool       `json:"kill_switch_active"`
	KillReason       string     `json:"kill_reason,omitempty"`
	KillActivatedAt  *time.Time `json:"kill_activated_at,omitempty"`

	DailyBuys        int       `json:"daily_buys"`
	DailyWindowStart time.Time `json:"daily_window_start"`

	ActiveWatchdogs int `json:"active_watchdogs"`

	// Outcomes is the trailing window of resolved candidates, newest last.
	Outcomes []bool  `json:"outcomes"`
	WinRate  float64 `json:"win_rate"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists the singleton safeguard state.
type Store interface {
	LoadSafeguard(ctx context.Context) (*State, error)
	SaveSafeguard(ctx context.Context, s *State) error
}

// Config tunes the controller.
type Config struct {
	DailyBuyCap        int
	MaxActiveWatchdogs int
	WinRateWindow      int
	MinWinRate         float64
	// WinRateKillCoupled auto-activates the kill switch when the win rate
	// breaches MinWinRate. Off by default: the breach is a warning signal
	// for operators, not a breaker, unless explicitly coupled.
	WinRateKillCoupled bool
	PriorityHalfLife   time.Duration
}

// Decision is the promotion gate verdict.
type Decision struct {
	Allowed     bool     `json:"allowed"`      // may the token be marked qualified
	CanExecute  bool     `json:"can_execute"`  // may a buy actually run
	ReasonCodes []string `json:"reason_codes,omitempty"`
}

// Controller owns all SafeguardState mutation. All entry points serialize
// on one mutex; kill-switch reads are cheap enough that an atomic fast
// path is not worth splitting state ownership for.
type Controller struct {
	cfg   Config
	store Store

	mu    sync.Mutex
	state State
}

// New creates the controller with a fresh state.
func New(cfg Config, store Store) *Controller {
	return &Controller{
		cfg:   cfg,
		store: store,
		state: State{DailyWindowStart: time.Now()},
	}
}

// Restore loads persisted state. Load failures fail closed: an error never
// clears a previously known-active kill switch, it just keeps whatever the
// controller already holds.
func (c *Controller) Restore(ctx context.Context) error {
	loaded, err := c.store.LoadSafeguard(ctx)
	if err != nil {
		log.Error().Err(err).Msg("safeguard: state load failed, keeping in-memory state")
		return err
	}
	if loaded == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.KillSwitchActive && !loaded.KillSwitchActive {
		// Never let a stale read silently clear an active kill switch.
		loaded.KillSwitchActive = true
		loaded.KillReason = c.state.KillReason
		loaded.KillActivatedAt = c.state.KillActivatedAt
	}
	c.state = *loaded
	return nil
}

// AllowPromotion evaluates every breaker for a watching -> qualified move.
// The daily buy cap does not block qualification itself, only execution.
func (c *Controller) AllowPromotion() Decision {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rollDailyWindowLocked(time.Now())

	d := Decision{Allowed: true, CanExecute: true}

	if c.state.KillSwitchActive {
		d.Allowed = false
		d.CanExecute = false
		d.ReasonCodes = append(d.ReasonCodes, "KILL_SWITCH_ACTIVE:"+c.state.KillReason)
		return d
	}

	if c.state.DailyBuys >= c.cfg.DailyBuyCap {
		d.CanExecute = false
		d.ReasonCodes = append(d.ReasonCodes, "DAILY_BUY_CAP_REACHED")
	}

	if c.state.ActiveWatchdogs > c.cfg.MaxActiveWatchdogs {
		d.ReasonCodes = append(d.ReasonCodes, "WATCHDOG_CAP_EXCEEDED")
	}

	if c.winRateBreachedLocked() {
		d.ReasonCodes = append(d.ReasonCodes, "WIN_RATE_BELOW_MINIMUM")
	}

	return d
}

// RecordBuy counts one executed or simulated buy against the daily cap.
// Returns false when the cap is already reached; the counter never exceeds
// the cap inside a single 24h window.
func (c *Controller) RecordBuy(ctx context.Context) bool {
	c.mu.Lock()
	c.rollDailyWindowLocked(time.Now())
	if c.state.DailyBuys >= c.cfg.DailyBuyCap {
		c.mu.Unlock()
		return false
	}
	c.state.DailyBuys++
	c.persistLocked(ctx)
	c.mu.Unlock()
	return true
}

// RecordOutcome feeds one resolved candidate (profitable or not) into the
// rolling win-rate window.
func (c *Controller) RecordOutcome(ctx context.Context, profitable bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.Outcomes = append(c.state.Outcomes, profitable)
	if len(c.state.Outcomes) > c.cfg.WinRateWindow {
		c.state.Outcomes = c.state.Outcomes[len(c.state.Outcomes)-c.cfg.WinRateWindow:]
	}
	c.state.WinRate = winRate(c.state.Outcomes)

	if c.winRateBreachedLocked() {
		log.Warn().
			Float64("win_rate", c.state.WinRate).
			Float64("min_win_rate", c.cfg.MinWinRate).
			Msg("safeguard: rolling win rate below minimum")
		if c.cfg.WinRateKillCoupled && !c.state.KillSwitchActive {
			c.activateKillLocked("rolling win rate below minimum")
		}
	}

	c.persistLocked(ctx)
}

// SetActiveWatchdogs records the current count of watching/qualified tokens.
func (c *Controller) SetActiveWatchdogs(ctx context.Context, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.ActiveWatchdogs = n
	c.persistLocked(ctx)
}

// WatchdogOverflow returns how many active entries exceed the cap, if any.
func (c *Controller) WatchdogOverflow() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	over := c.state.ActiveWatchdogs - c.cfg.MaxActiveWatchdogs
	if over < 0 {
		return 0
	}
	return over
}

// ActivateKill trips the kill switch. Only ResetKill clears it.
func (c *Controller) ActivateKill(ctx context.Context, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activateKillLocked(reason)
	c.persistLocked(ctx)
}

func (c *Controller) activateKillLocked(reason string) {
	now := time.Now()
	c.state.KillSwitchActive = true
	c.state.KillReason = reason
	c.state.KillActivatedAt = &now
	log.Error().Str("reason", reason).Msg("KILL SWITCH ACTIVATED - all promotions stopped")
}

// ResetKill is the explicit administrative clear.
func (c *Controller) ResetKill(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.KillSwitchActive = false
	c.state.KillReason = ""
	c.state.KillActivatedAt = nil
	c.persistLocked(ctx)
	log.Warn().Msg("safeguard: kill switch reset by operator")
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollDailyWindowLocked(time.Now())
	out := c.state
	out.Outcomes = append([]bool(nil), c.state.Outcomes...)
	return out
}

func (c *Controller) winRateBreachedLocked() bool {
	// Not enough resolved candidates yet: no signal either way.
	if len(c.state.Outcomes) < c.cfg.WinRateWindow/2 {
		return false
	}
	return c.state.WinRate < c.cfg.MinWinRate
}

// rollDailyWindowLocked resets the buy counter 24h after the window opened.
func (c *Controller) rollDailyWindowLocked(now time.Time) {
	if now.Sub(c.state.DailyWindowStart) >= 24*time.Hour {
		c.state.DailyBuys = 0
		c.state.DailyWindowStart = now
	}
}

// persistLocked writes through to the store. Persistence failures are
// logged, never propagated: in-memory state stays authoritative and the
// next successful save catches up.
func (c *Controller) persistLocked(ctx context.Context) {
	c.state.UpdatedAt = time.Now()
	snapshot := c.state
	snapshot.Outcomes = append([]bool(nil), c.state.Outcomes...)
	if err := c.store.SaveSafeguard(ctx, &snapshot); err != nil {
		log.Error().Err(err).Msg("safeguard: state save failed")
	}
}

func winRate(outcomes []bool) float64 {
	if len(outcomes) == 0 {
		return 0
	}
	wins := 0
	for _, w := range outcomes {
		if w {
			wins++
		}
	}
	return float64(wins) / float64(len(outcomes))
}

// Priority is the recency-weighted score used by the pruning routine:
// the raw score decayed by the age of its last check, halving every
// halfLife. Lowest priority gets pruned first.
func Priority(score float64, lastChecked time.Time, halfLife time.Duration, now time.Time) float64 {
	if halfLife <= 0 {
		return score
	}
	age := now.Sub(lastChecked)
	if age < 0 {
		age = 0
	}
	return score * math.Pow(0.5, age.Hours()/halfLife.Hours())
}
