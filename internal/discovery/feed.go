// Package discovery watches the launch venue for newly created tokens.
// Primary path is a websocket subscription; when the socket is unavailable
// or drops, the feed falls back to REST polling until it reconnects.
package discovery

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/vigil-trading/vigil/internal/config"
	"github.com/vigil-trading/vigil/internal/observability"
	"github.com/vigil-trading/vigil/internal/providers"
	"github.com/vigil-trading/vigil/internal/solana"
)

const (
	reconnectDelay  = time.Second
	maxBackoff      = 30 * time.Second
	pingInterval    = 30 * time.Second
	dedupCapacity   = 10_000
	launchBuffer    = 256
)

// Feed emits validated, deduplicated token launches.
type Feed struct {
	cfg  config.LaunchFeedConfig
	rest providers.LaunchSource
	obs  *observability.Metrics

	out    chan providers.TokenLaunch
	closed atomic.Bool

	mu       sync.Mutex
	seen     map[solana.Pubkey]struct{}
	seenRing []solana.Pubkey // eviction order for the dedup set
	lastPoll time.Time

	// Stats.
	launchesSeen atomic.Int64
	dropped      atomic.Int64
	reconnects   atomic.Int64
	wsConnected  atomic.Bool
}

// NewFeed creates the feed. rest may not be nil: it is the fallback and the
// catch-up source after reconnects. obs may be nil.
func NewFeed(cfg config.LaunchFeedConfig, rest providers.LaunchSource, obs *observability.Metrics) *Feed {
	return &Feed{
		cfg:      cfg,
		rest:     rest,
		obs:      obs,
		out:      make(chan providers.TokenLaunch, launchBuffer),
		seen:     make(map[solana.Pubkey]struct{}, dedupCapacity),
		lastPoll: time.Now().Add(-time.Minute),
	}
}

// Start runs the feed until ctx is cancelled and returns the launch channel.
// The channel is closed on shutdown.
func (f *Feed) Start(ctx context.Context) <-chan providers.TokenLaunch {
	go f.run(ctx)
	return f.out
}

// Connected reports whether the websocket path is currently up.
func (f *Feed) Connected() bool {
	return f.wsConnected.Load()
}

func (f *Feed) run(ctx context.Context) {
	defer func() {
		if f.closed.CompareAndSwap(false, true) {
			close(f.out)
		}
	}()

	if f.cfg.WSURL == "" {
		log.Info().Msg("discovery: no websocket URL configured, polling only")
		f.pollLoop(ctx)
		return
	}

	backoff := reconnectDelay
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		err := f.runSocket(ctx)
		if ctx.Err() != nil {
			return
		}
		f.wsConnected.Store(false)
		f.reconnects.Add(1)
		if f.obs != nil {
			f.obs.FeedReconnects.Inc()
		}
		log.Warn().Err(err).Dur("backoff", backoff).Msg("discovery: websocket down, polling until reconnect")

		// Poll once immediately to cover the gap, then wait out the backoff
		// with the poller running.
		f.pollOnce(ctx)
		pollCtx, cancel := context.WithTimeout(ctx, backoff)
		f.pollLoop(pollCtx)
		cancel()

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// wsLaunchMessage is the venue's new-token push frame.
type wsLaunchMessage struct {
	Type      string `json:"type"`
	Mint      string `json:"mint"`
	Symbol    string `json:"symbol"`
	Name      string `json:"name"`
	Creator   string `json:"creator"`
	CreatedAt int64  `json:"createdAt"` // unix seconds
}

func (f *Feed) runSocket(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, f.cfg.WSURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]string{"method": "subscribeNewToken"}); err != nil {
		return err
	}

	f.wsConnected.Store(true)
	log.Info().Str("url", f.cfg.WSURL).Msg("discovery: websocket connected")

	// Catch up on anything launched while the socket was down.
	f.pollOnce(ctx)

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				conn.Close()
				return
			case <-ticker.C:
				deadline := time.Now().Add(5 * time.Second)
				if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					conn.Close()
					return
				}
			}
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var msg wsLaunchMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Debug().Err(err).Msg("discovery: unparseable frame, skipping")
			continue
		}
		if msg.Type != "" && msg.Type != "newToken" {
			continue
		}
		if msg.Mint == "" {
			continue
		}

		f.emit(ctx, providers.TokenLaunch{
			Mint:       solana.Pubkey(msg.Mint),
			Symbol:     msg.Symbol,
			Name:       msg.Name,
			Creator:    solana.Pubkey(msg.Creator),
			LaunchedAt: time.Unix(msg.CreatedAt, 0),
		})
	}
}

func (f *Feed) pollLoop(ctx context.Context) {
	interval := f.cfg.PollInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.pollOnce(ctx)
		}
	}
}

func (f *Feed) pollOnce(ctx context.Context) {
	if f.rest == nil {
		return
	}

	f.mu.Lock()
	since := f.lastPoll
	f.mu.Unlock()

	launches, err := f.rest.RecentLaunches(ctx, since)
	if err != nil {
		log.Warn().Err(err).Msg("discovery: launch poll failed")
		return
	}

	f.mu.Lock()
	f.lastPoll = time.Now()
	f.mu.Unlock()

	for _, l := range launches {
		f.emit(ctx, l)
	}
}

// emit validates, deduplicates, and forwards one launch. Malformed mints
// never reach the watchlist.
func (f *Feed) emit(ctx context.Context, l providers.TokenLaunch) {
	if err := solana.ValidatePubkey(string(l.Mint)); err != nil {
		f.dropped.Add(1)
		if f.obs != nil {
			f.obs.LaunchesDropped.Inc()
		}
		log.Debug().Str("mint", string(l.Mint)).Err(err).Msg("discovery: dropping malformed mint")
		return
	}

	f.mu.Lock()
	if _, dup := f.seen[l.Mint]; dup {
		f.mu.Unlock()
		return
	}
	f.seen[l.Mint] = struct{}{}
	f.seenRing = append(f.seenRing, l.Mint)
	if len(f.seenRing) > dedupCapacity {
		evict := f.seenRing[0]
		f.seenRing = f.seenRing[1:]
		delete(f.seen, evict)
	}
	f.mu.Unlock()

	f.launchesSeen.Add(1)
	select {
	case f.out <- l:
	case <-ctx.Done():
	}
}

// Stats is a point-in-time view of feed counters for the ops surface.
type Stats struct {
	LaunchesSeen int64 `json:"launches_seen"`
	Dropped      int64 `json:"dropped"`
	Reconnects   int64 `json:"reconnects"`
	WSConnected  bool  `json:"ws_connected"`
}

// SnapshotStats returns current counters.
func (f *Feed) SnapshotStats() Stats {
	return Stats{
		LaunchesSeen: f.launchesSeen.Load(),
		Dropped:      f.dropped.Load(),
		Reconnects:   f.reconnects.Load(),
		WSConnected:  f.wsConnected.Load(),
	}
}
