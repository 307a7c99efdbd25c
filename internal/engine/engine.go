// Package engine runs the polling cycle: due-token selection, batched
// provider fan-out, scoring, lifecycle transitions, and safeguard
// bookkeeping. One cycle runs at a time.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vigil-trading/vigil/internal/config"
	"github.com/vigil-trading/vigil/internal/devwallet"
	"github.com/vigil-trading/vigil/internal/observability"
	"github.com/vigil-trading/vigil/internal/providers"
	"github.com/vigil-trading/vigil/internal/safeguard"
	"github.com/vigil-trading/vigil/internal/scoring"
	"github.com/vigil-trading/vigil/internal/solana"
	"github.com/vigil-trading/vigil/internal/storage"
	"github.com/vigil-trading/vigil/internal/watchlist"
)

// ErrCycleInFlight is returned when RunCycle is invoked while a cycle is
// already running. Cycles are never queued.
var ErrCycleInFlight = errors.New("cycle already in flight")

// CycleSummary reports one completed polling pass.
type CycleSummary struct {
	CycleID   string        `json:"cycle_id"`
	StartedAt time.Time     `json:"started_at"`
	Scanned   int           `json:"scanned"`
	Added     int           `json:"added"`
	Qualified int           `json:"qualified"`
	Removed   int           `json:"removed"` // dead + bombed + rejected + pruned this cycle
	Updated   int           `json:"updated"`
	Errors    int           `json:"errors"`
	Aborted   bool          `json:"aborted"`
	Duration  time.Duration `json:"duration"`
}

// Engine coordinates one pass over the tracked-token set.
type Engine struct {
	cfg config.Config

	store     storage.WatchlistStore
	snapshots storage.SnapshotStore
	machine   *watchlist.Machine
	metrics   providers.MetricsSource
	safety    providers.SafetySource
	devmon    *devwallet.Monitor
	guard     *safeguard.Controller
	trades    TradeSink
	notify    NotifySink
	obs       *observability.Metrics

	running atomic.Bool

	mu      sync.Mutex
	pending []providers.TokenLaunch

	lastSummary atomic.Pointer[CycleSummary]
}

// Deps bundles the engine's collaborators.
type Deps struct {
	Store     storage.WatchlistStore
	Snapshots storage.SnapshotStore // optional
	Machine   *watchlist.Machine
	Metrics   providers.MetricsSource
	Safety    providers.SafetySource
	DevMon    *devwallet.Monitor
	Guard     *safeguard.Controller
	Trades    TradeSink // defaults to LogTradeSink
	Notify    NotifySink
	Obs       *observability.Metrics
}

// New creates the engine.
func New(cfg config.Config, d Deps) *Engine {
	if d.Trades == nil {
		d.Trades = LogTradeSink{}
	}
	if d.Notify == nil {
		d.Notify = LogNotifySink{}
	}
	return &Engine{
		cfg:       cfg,
		store:     d.Store,
		snapshots: d.Snapshots,
		machine:   d.Machine,
		metrics:   d.Metrics,
		safety:    d.Safety,
		devmon:    d.DevMon,
		guard:     d.Guard,
		trades:    d.Trades,
		notify:    d.Notify,
		obs:       d.Obs,
	}
}

// AddLaunch queues a newly discovered token for the next cycle.
func (en *Engine) AddLaunch(l providers.TokenLaunch) {
	en.mu.Lock()
	en.pending = append(en.pending, l)
	en.mu.Unlock()
}

// LastSummary returns the most recent cycle summary, or nil before the
// first cycle.
func (en *Engine) LastSummary() *CycleSummary {
	return en.lastSummary.Load()
}

// RunCycle executes one polling pass. A second concurrent invocation
// returns ErrCycleInFlight. Cancelling ctx stops new batches from starting;
// the in-flight batch finishes and its writes complete.
func (en *Engine) RunCycle(ctx context.Context) (CycleSummary, error) {
	if !en.running.CompareAndSwap(false, true) {
		if en.obs != nil {
			en.obs.CyclesSkipped.Inc()
		}
		return CycleSummary{}, ErrCycleInFlight
	}
	defer en.running.Store(false)

	start := time.Now()
	summary := CycleSummary{
		CycleID:   uuid.NewString(),
		StartedAt: start,
	}
	log.Info().Str("cycle_id", summary.CycleID).Msg("cycle started")

	// Writes must not be torn by the abort signal; they run on a context
	// that survives cancellation.
	writeCtx := context.WithoutCancel(ctx)

	en.admitLaunches(writeCtx, &summary)
	en.retriageSoftRejected(writeCtx, start)

	due, err := en.store.ListDue(writeCtx, start.Add(-en.cfg.Engine.RecheckInterval), en.cfg.Engine.MaxTokensPerCycle)
	if err != nil {
		return summary, fmt.Errorf("select due tokens: %w", err)
	}

	batchSize := en.cfg.Engine.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}

	for i := 0; i < len(due); i += batchSize {
		if ctx.Err() != nil {
			summary.Aborted = true
			if en.obs != nil {
				en.obs.CyclesAborted.Inc()
			}
			log.Warn().Str("cycle_id", summary.CycleID).Msg("cycle aborted, skipping remaining batches")
			break
		}
		if i > 0 && en.cfg.Engine.BatchDelay > 0 {
			select {
			case <-time.After(en.cfg.Engine.BatchDelay):
			case <-ctx.Done():
				summary.Aborted = true
				if en.obs != nil {
					en.obs.CyclesAborted.Inc()
				}
			}
			if summary.Aborted {
				break
			}
		}

		end := i + batchSize
		if end > len(due) {
			end = len(due)
		}
		en.runBatch(writeCtx, due[i:end], &summary)
	}

	en.refreshWatchdogCount(writeCtx)

	summary.Duration = time.Since(start)
	en.lastSummary.Store(&summary)
	if en.obs != nil {
		en.obs.CyclesRun.Inc()
		en.obs.CycleDuration.Observe(summary.Duration.Seconds())
	}
	if err := en.notify.NotifySummary(writeCtx, summary); err != nil {
		log.Warn().Err(err).Msg("summary notify failed")
	}
	return summary, nil
}

// admitLaunches drains the pending launch queue into pending_triage entries.
func (en *Engine) admitLaunches(ctx context.Context, summary *CycleSummary) {
	en.mu.Lock()
	launches := en.pending
	en.pending = nil
	en.mu.Unlock()

	for _, l := range launches {
		_, err := en.store.GetByMint(ctx, l.Mint)
		if err == nil {
			continue // already tracked, one row per mint
		}
		if !errors.Is(err, storage.ErrNotFound) {
			summary.Errors++
			log.Error().Err(err).Str("mint", string(l.Mint)).Msg("launch admit lookup failed")
			continue
		}

		e := watchlist.NewEntry(l, time.Now())
		// New entries are due immediately, not after the recheck interval.
		e.LastCheckedAt = time.Time{}
		if err := en.store.UpsertEntry(ctx, e); err != nil {
			summary.Errors++
			log.Error().Err(err).Str("mint", string(l.Mint)).Msg("launch admit failed")
			continue
		}
		summary.Added++
		if en.obs != nil {
			en.obs.LaunchesDiscovered.Inc()
		}
	}
}

// retriageSoftRejected moves soft-rejected tokens whose cool-down elapsed
// back to watching so the due selection can pick them up.
func (en *Engine) retriageSoftRejected(ctx context.Context, now time.Time) {
	rejected, err := en.store.ListByStatus(ctx, watchlist.StatusRejected)
	if err != nil {
		log.Error().Err(err).Msg("re-triage scan failed")
		return
	}

	for _, e := range rejected {
		if e.RejectionKind != watchlist.RejectSoft {
			continue
		}
		rec, err := en.machine.Transition(e, watchlist.StatusWatching, watchlist.RejectNone, "re-triage after cool-down", now)
		if err != nil {
			if !errors.Is(err, watchlist.ErrCooldownActive) {
				log.Error().Err(err).Str("mint", string(e.Mint)).Msg("re-triage failed")
			}
			continue
		}
		en.persist(ctx, e, rec)
	}
}

func (en *Engine) runBatch(ctx context.Context, batch []*watchlist.Entry, summary *CycleSummary) {
	var wg sync.WaitGroup
	results := make([]checkResult, len(batch))

	for i, e := range batch {
		wg.Add(1)
		go func(i int, e *watchlist.Entry) {
			defer wg.Done()
			results[i] = en.checkToken(ctx, e)
		}(i, e)
	}
	wg.Wait()

	// Transitions and safeguard updates are serialized after the fan-out;
	// only the provider calls run concurrently.
	for i, e := range batch {
		res := results[i]
		summary.Scanned++
		if en.obs != nil {
			en.obs.TokensChecked.Inc()
		}

		if res.err != nil {
			summary.Errors++
			if en.obs != nil {
				en.obs.CheckErrors.WithLabelValues(res.errKind).Inc()
			}
			log.Warn().Err(res.err).Str("mint", string(e.Mint)).Msg("token check failed, skipping this cycle")
			continue
		}

		en.applyVerdict(ctx, e, res, summary)
	}
}

// checkResult carries one token's fetched data out of the concurrent
// fan-out; all state mutation happens later, single-threaded.
type checkResult struct {
	metrics *providers.TokenMetrics
	safety  *providers.SafetyReport
	dev     *devwallet.Status
	devNew  bool
	err     error
	errKind string
}

// checkToken fetches everything the verdict needs. It mutates nothing.
func (en *Engine) checkToken(ctx context.Context, e *watchlist.Entry) checkResult {
	var res checkResult

	err := en.withRetry(ctx, func(callCtx context.Context) error {
		m, err := en.metrics.GetMetrics(callCtx, e.Mint)
		if err != nil {
			return err
		}
		res.metrics = m
		return nil
	})
	if err != nil {
		return checkResult{err: fmt.Errorf("metrics: %w", err), errKind: "metrics"}
	}

	err = en.withRetry(ctx, func(callCtx context.Context) error {
		rep, err := en.safety.GetSafetyReport(callCtx, e.Mint)
		if err != nil {
			return err
		}
		res.safety = rep
		return nil
	})
	if err != nil {
		return checkResult{err: fmt.Errorf("safety: %w", err), errKind: "safety"}
	}

	if e.Creator != "" && en.devmon != nil {
		// Sticky flags short-circuit inside the monitor; a token whose dev
		// already exited costs no further API calls.
		if !e.Risk.DevSold || !e.Risk.DevLaunchedNew {
			err = en.withRetry(ctx, func(callCtx context.Context) error {
				st, err := en.devmon.CheckDevWallet(callCtx, e.Creator, e.Mint)
				if err != nil {
					return err
				}
				res.dev = &st
				return nil
			})
			if err != nil {
				return checkResult{err: fmt.Errorf("devwallet: %w", err), errKind: "devwallet"}
			}

			err = en.withRetry(ctx, func(callCtx context.Context) error {
				launched, err := en.devmon.CheckNewLaunch(callCtx, e.Creator, e.Mint, e.FirstSeenAt)
				if err != nil {
					return err
				}
				res.devNew = launched
				return nil
			})
			if err != nil {
				return checkResult{err: fmt.Errorf("devwallet creations: %w", err), errKind: "devwallet"}
			}
		}
	}

	return res
}

func (en *Engine) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	return en.cfg.Engine.Retry.Do(ctx, func(attemptCtx context.Context) error {
		callCtx, cancel := context.WithTimeout(attemptCtx, en.cfg.Engine.CallTimeout)
		defer cancel()
		return fn(callCtx)
	})
}

// applyVerdict folds one token's fetched data into score, risk flags, and
// at most one lifecycle transition.
func (en *Engine) applyVerdict(ctx context.Context, e *watchlist.Entry, res checkResult, summary *CycleSummary) {
	now := time.Now()
	e.RecordMetrics(res.metrics)
	e.LastCheckedAt = now

	breakdown := scoring.Score(*res.metrics, *res.safety, e.PrevMetrics)
	e.Score = breakdown
	if en.obs != nil {
		en.obs.ScoresComputed.Inc()
		en.obs.ScoreTotal.Observe(breakdown.Total)
	}
	en.writeSnapshot(ctx, e, breakdown)

	if res.dev != nil {
		if res.dev.HasSold {
			e.MarkDevSold(res.dev.HoldingPct)
		}
	}
	if res.devNew {
		e.MarkDevLaunchedNew()
	}

	recs := en.decide(e, res, breakdown, now)
	summary.Updated++

	en.persist(ctx, e, recs...)

	for _, rec := range recs {
		switch rec.To {
		case watchlist.StatusQualified:
			summary.Qualified++
			en.emitCandidate(ctx, e)
		case watchlist.StatusDead, watchlist.StatusBombed, watchlist.StatusRejected, watchlist.StatusRemoved:
			summary.Removed++
		}
	}
}

// decide folds the check into at most two lifecycle transitions (triage
// graduation may be followed by a threshold verdict on the same check).
// Order: collapse detection, permanent disqualifiers, triage, threshold.
func (en *Engine) decide(e *watchlist.Entry, res checkResult, breakdown scoring.Breakdown, now time.Time) []*watchlist.TransitionRecord {
	cur := res.metrics

	// Bomb: sudden single-step collapse of price or liquidity.
	if e.PrevMetrics != nil {
		if drop := dropPct(e.PrevMetrics.PriceUSD.InexactFloat64(), cur.PriceUSD.InexactFloat64()); drop >= en.cfg.Engine.BombDropPct {
			return en.transition(nil, e, watchlist.StatusBombed, watchlist.RejectNone,
				fmt.Sprintf("price collapsed %.0f%% in one check", drop), now)
		}
		if drop := dropPct(e.PrevMetrics.LiquidityUSD.InexactFloat64(), cur.LiquidityUSD.InexactFloat64()); drop >= en.cfg.Engine.BombDropPct {
			return en.transition(nil, e, watchlist.StatusBombed, watchlist.RejectNone,
				fmt.Sprintf("liquidity collapsed %.0f%% in one check", drop), now)
		}
	}

	// Dead: both alive thresholds breached for longer than the grace period.
	belowAlive := cur.Holders < en.cfg.Engine.MinAliveHolders &&
		cur.VolumeUSD.InexactFloat64() < en.cfg.Engine.MinAliveVolume
	if belowAlive {
		if e.BelowAliveSince == nil {
			ts := now
			e.BelowAliveSince = &ts
		} else if now.Sub(*e.BelowAliveSince) >= en.cfg.Engine.DeadGracePeriod {
			return en.transition(nil, e, watchlist.StatusDead, watchlist.RejectNone,
				fmt.Sprintf("below alive thresholds (holders<%d, volume<%.0f) past grace period",
					en.cfg.Engine.MinAliveHolders, en.cfg.Engine.MinAliveVolume), now)
		}
	} else {
		e.BelowAliveSince = nil
	}

	// Dev full exit while the token is young, with no rebuy.
	if res.dev != nil && res.dev.IsFullExit && !res.dev.HasBoughtBack &&
		en.devmon.IsYoungToken(e.FirstSeenAt, now) {
		return en.transition(nil, e, watchlist.StatusRejected, watchlist.RejectPermanent,
			fmt.Sprintf("dev fully exited (%d sells, %.2f%% held) within young-token window",
				res.dev.SellCount, res.dev.HoldingPct), now)
	}

	// Dev launched a replacement token.
	if res.devNew {
		return en.transition(nil, e, watchlist.StatusRejected, watchlist.RejectPermanent,
			"dev launched a new token, abandonment", now)
	}

	// Critical safety flag.
	if breakdown.HardReject {
		if en.obs != nil {
			en.obs.HardRejects.Inc()
		}
		return en.transition(nil, e, watchlist.StatusRejected, watchlist.RejectPermanent, breakdown.RejectReason, now)
	}

	// First successful check graduates triage; the threshold verdict runs
	// on the same check.
	var recs []*watchlist.TransitionRecord
	if e.Status == watchlist.StatusPendingTriage {
		recs = en.transition(recs, e, watchlist.StatusWatching, watchlist.RejectNone, "initial triage complete", now)
		if e.Status != watchlist.StatusWatching {
			return recs
		}
	}

	threshold := en.cfg.Scoring.QualifyThreshold
	switch {
	case e.Status == watchlist.StatusWatching && breakdown.Total >= threshold:
		decision := en.guard.AllowPromotion()
		if !decision.Allowed {
			log.Warn().
				Str("mint", string(e.Mint)).
				Strs("reasons", decision.ReasonCodes).
				Float64("score", breakdown.Total).
				Msg("promotion blocked by safeguard")
			if en.obs != nil {
				en.obs.BlockedBuys.Inc()
			}
			return recs
		}
		reason := fmt.Sprintf("score %.1f >= %.0f (%s)", breakdown.Total, threshold, joinReasons(breakdown.Reasons))
		recs = en.transition(recs, e, watchlist.StatusQualified, watchlist.RejectNone, reason, now)

	case e.Status == watchlist.StatusWatching && breakdown.Total < threshold:
		reason := fmt.Sprintf("score %.1f below threshold %.0f", breakdown.Total, threshold)
		recs = en.transition(recs, e, watchlist.StatusRejected, watchlist.RejectSoft, reason, now)
	}

	return recs
}

func (en *Engine) transition(recs []*watchlist.TransitionRecord, e *watchlist.Entry, target watchlist.Status, kind watchlist.RejectionKind, reason string, now time.Time) []*watchlist.TransitionRecord {
	rec, err := en.machine.Transition(e, target, kind, reason, now)
	if err != nil {
		log.Error().Err(err).Str("mint", string(e.Mint)).Str("target", string(target)).Msg("transition rejected")
		return recs
	}
	if rec == nil {
		return recs
	}
	if en.obs != nil {
		en.obs.Transitions.WithLabelValues(string(rec.To)).Inc()
	}
	return append(recs, rec)
}

// emitCandidate hands a freshly qualified token downstream, consuming one
// daily buy when execution is permitted.
func (en *Engine) emitCandidate(ctx context.Context, e *watchlist.Entry) {
	decision := en.guard.AllowPromotion()
	canExec := decision.CanExecute
	if canExec {
		canExec = en.guard.RecordBuy(ctx)
	}
	if !canExec && en.obs != nil {
		en.obs.BlockedBuys.Inc()
	}

	c := TradeCandidate{
		Mint:        e.Mint,
		Symbol:      e.Symbol,
		Score:       e.Score.Total,
		Reason:      e.QualifyReason,
		CanExecute:  canExec,
		QualifiedAt: time.Now(),
	}
	if e.QualifiedAt != nil {
		c.QualifiedAt = *e.QualifiedAt
	}
	if err := en.trades.EmitCandidate(ctx, c); err != nil {
		log.Error().Err(err).Str("mint", string(e.Mint)).Msg("trade candidate emit failed")
	}
}

// persist writes the entry and its transition records. A transition is
// applied in full or not at all: the entry upsert failing skips the record
// appends so a retried cycle replays the same transition.
func (en *Engine) persist(ctx context.Context, e *watchlist.Entry, recs ...*watchlist.TransitionRecord) {
	if err := en.store.UpsertEntry(ctx, e); err != nil {
		log.Error().Err(err).Str("mint", string(e.Mint)).Msg("entry persist failed")
		return
	}
	for _, rec := range recs {
		if rec == nil {
			continue
		}
		if err := en.store.AppendTransition(ctx, rec); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			log.Error().Err(err).Str("mint", string(e.Mint)).Msg("transition record persist failed")
		}
	}
}

func (en *Engine) writeSnapshot(ctx context.Context, e *watchlist.Entry, b scoring.Breakdown) {
	if en.snapshots == nil {
		return
	}
	snap := storage.ScoreSnapshot{
		Mint:       e.Mint,
		Status:     e.Status,
		Holder:     b.Holder,
		Volume:     b.Volume,
		Safety:     b.Safety,
		Momentum:   b.Momentum,
		Total:      b.Total,
		HardReject: b.HardReject,
		CheckedAt:  time.Now(),
	}
	if e.Metrics != nil {
		snap.Holders = e.Metrics.Holders
		snap.VolumeUSD = e.Metrics.VolumeUSD.InexactFloat64()
		snap.PriceUSD = e.Metrics.PriceUSD.InexactFloat64()
	}
	if err := en.snapshots.AppendSnapshot(ctx, snap); err != nil {
		log.Warn().Err(err).Str("mint", string(e.Mint)).Msg("score snapshot write failed")
	}
}

// refreshWatchdogCount recounts active entries into the safeguard state and
// metric gauges.
func (en *Engine) refreshWatchdogCount(ctx context.Context) {
	active, err := en.store.ListByStatus(ctx,
		watchlist.StatusPendingTriage, watchlist.StatusWatching, watchlist.StatusQualified)
	if err != nil {
		log.Error().Err(err).Msg("watchdog recount failed")
		return
	}
	en.guard.SetActiveWatchdogs(ctx, len(active))

	if en.obs != nil {
		en.obs.ActiveWatchdogs.Set(float64(len(active)))
		counts := map[watchlist.Status]int{}
		for _, e := range active {
			counts[e.Status]++
		}
		for _, st := range []watchlist.Status{watchlist.StatusPendingTriage, watchlist.StatusWatching, watchlist.StatusQualified} {
			en.obs.StatusCounts.WithLabelValues(string(st)).Set(float64(counts[st]))
		}

		snap := en.guard.Snapshot()
		if snap.KillSwitchActive {
			en.obs.KillSwitchActive.Set(1)
		} else {
			en.obs.KillSwitchActive.Set(0)
		}
		en.obs.DailyBuys.Set(float64(snap.DailyBuys))
		en.obs.WinRate.Set(snap.WinRate)
	}
}

// UpdatePriorities recomputes pruning priorities and removes the
// lowest-priority active entries while the watchdog count exceeds the cap.
// Explicitly invoked maintenance, never an implicit cycle side effect.
func (en *Engine) UpdatePriorities(ctx context.Context) (int, error) {
	active, err := en.store.ListByStatus(ctx,
		watchlist.StatusPendingTriage, watchlist.StatusWatching, watchlist.StatusQualified)
	if err != nil {
		return 0, fmt.Errorf("list active entries: %w", err)
	}
	en.guard.SetActiveWatchdogs(ctx, len(active))

	overflow := en.guard.WatchdogOverflow()
	if overflow == 0 {
		return 0, nil
	}

	now := time.Now()
	halfLife := en.cfg.Safeguard.PriorityHalfLife
	sort.Slice(active, func(i, j int) bool {
		pi := safeguard.Priority(active[i].Score.Total, active[i].LastCheckedAt, halfLife, now)
		pj := safeguard.Priority(active[j].Score.Total, active[j].LastCheckedAt, halfLife, now)
		return pi < pj
	})

	pruned := 0
	for _, e := range active {
		if pruned >= overflow {
			break
		}
		rec, err := en.machine.Transition(e, watchlist.StatusRemoved, watchlist.RejectNone,
			"pruned: watchdog cap exceeded, lowest recency-weighted priority", now)
		if err != nil || rec == nil {
			continue
		}
		en.persist(ctx, e, rec)
		pruned++
	}

	en.guard.SetActiveWatchdogs(ctx, len(active)-pruned)
	log.Info().Int("pruned", pruned).Int("overflow", overflow).Msg("priority prune complete")
	return pruned, nil
}

// GetStatus returns the current entry for a mint.
func (en *Engine) GetStatus(ctx context.Context, mint solana.Pubkey) (*watchlist.Entry, error) {
	return en.store.GetByMint(ctx, mint)
}

// GetSafeguardStatus returns the current safeguard snapshot.
func (en *Engine) GetSafeguardStatus() safeguard.State {
	return en.guard.Snapshot()
}

// ResetKillSwitch is the administrative clear.
func (en *Engine) ResetKillSwitch(ctx context.Context) {
	en.guard.ResetKill(ctx)
}

// ManualTransition applies an operator override, subject to the same
// transition-validity rules as the cycle.
func (en *Engine) ManualTransition(ctx context.Context, mint solana.Pubkey, target watchlist.Status, kind watchlist.RejectionKind, reason string) error {
	e, err := en.store.GetByMint(ctx, mint)
	if err != nil {
		return err
	}
	rec, err := en.machine.Transition(e, target, kind, reason, time.Now())
	if err != nil {
		return err
	}
	if rec == nil {
		return nil
	}
	en.persist(ctx, e, rec)
	return nil
}

func dropPct(prev, cur float64) float64 {
	if prev <= 0 {
		return 0
	}
	drop := (prev - cur) / prev * 100
	if drop < 0 {
		return 0
	}
	return drop
}

func joinReasons(reasons []string) string {
	if len(reasons) == 0 {
		return "composite score"
	}
	out := reasons[0]
	for _, r := range reasons[1:] {
		out += "; " + r
	}
	return out
}
