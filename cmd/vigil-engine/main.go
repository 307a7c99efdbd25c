package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vigil-trading/vigil/internal/config"
	"github.com/vigil-trading/vigil/internal/devwallet"
	"github.com/vigil-trading/vigil/internal/discovery"
	"github.com/vigil-trading/vigil/internal/engine"
	"github.com/vigil-trading/vigil/internal/observability"
	"github.com/vigil-trading/vigil/internal/providers"
	"github.com/vigil-trading/vigil/internal/providers/stub"
	"github.com/vigil-trading/vigil/internal/safeguard"
	"github.com/vigil-trading/vigil/internal/storage"
	"github.com/vigil-trading/vigil/internal/storage/clickhouse"
	"github.com/vigil-trading/vigil/internal/storage/memory"
	"github.com/vigil-trading/vigil/internal/storage/postgres"
	"github.com/vigil-trading/vigil/internal/watchlist"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "Path to configuration file")
	stubMode := flag.Bool("stub", false, "Use in-process stub providers (no network calls)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load config from %s: %v\n", *configPath, err)
		os.Exit(1)
	}

	setupLogging(cfg.General)

	log.Info().Msg("=============================================")
	log.Info().Msg("VIGIL Token Lifecycle Engine - Starting")
	log.Info().Msg("DISCOVER -> SCORE -> WATCH -> QUALIFY")
	log.Info().Msg("SAFETY > PROFIT > SPEED")
	log.Info().Msg("=============================================")

	log.Info().
		Str("instance_id", cfg.General.InstanceID).
		Str("environment", cfg.General.Environment).
		Bool("stub_mode", *stubMode).
		Dur("cycle_interval", cfg.Engine.CycleInterval).
		Int("max_tokens_per_cycle", cfg.Engine.MaxTokensPerCycle).
		Float64("qualify_threshold", cfg.Scoring.QualifyThreshold).
		Int("daily_buy_cap", cfg.Safeguard.DailyBuyCap).
		Int("max_active_watchdogs", cfg.Safeguard.MaxActiveWatchdogs).
		Str("storage_backend", cfg.Storage.Backend).
		Msg("Configuration loaded")

	// Stub mode swaps every upstream for in-process fakes, so the provider
	// endpoint checks do not apply.
	if !*stubMode {
		if err := cfg.Validate(); err != nil {
			log.Fatal().Err(err).Msg("Configuration validation failed")
		}
	} else if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "memory"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Warn().Str("signal", sig.String()).Msg("Shutdown signal received")
		cancel()
	}()

	// Storage.
	var (
		watchStore storage.WatchlistStore
		guardStore storage.SafeguardStore
		pgPool     *postgres.Pool
	)
	switch cfg.Storage.Backend {
	case "postgres":
		pgPool, err = postgres.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("Postgres connection failed")
		}
		defer pgPool.Close()
		if err := postgres.Migrate(ctx, pgPool); err != nil {
			log.Fatal().Err(err).Msg("Postgres migration failed")
		}
		watchStore = postgres.NewWatchlistStore(pgPool)
		guardStore = postgres.NewSafeguardStore(pgPool)
		log.Info().Msg("Storage: PostgreSQL")
	default:
		watchStore = memory.NewWatchlistStore()
		guardStore = memory.NewSafeguardStore()
		log.Info().Msg("Storage: in-memory (state is lost on restart)")
	}

	var wg sync.WaitGroup

	// Score history sink (optional).
	var snapshots storage.SnapshotStore
	var chClient *clickhouse.Client
	if cfg.Storage.ClickHouseDSN != "" {
		chClient, err = clickhouse.NewClient(cfg.Storage.ClickHouseDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("ClickHouse connection failed")
		}
		if err := chClient.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("ClickHouse migration failed")
		}
		writer := clickhouse.NewSnapshotWriter(chClient, 0, 0)
		snapshots = writer
		wg.Add(1)
		go func() {
			defer wg.Done()
			writer.Start(ctx)
		}()
		defer writer.Close()
		log.Info().Msg("Score history: ClickHouse")
	}

	// Providers.
	var (
		metricsSrc providers.MetricsSource
		safetySrc  providers.SafetySource
		walletSrc  providers.WalletHistorySource
		launchSrc  providers.LaunchSource
	)
	if *stubMode {
		stubProviders := stub.New()
		metricsSrc = stubProviders
		safetySrc = stubProviders
		walletSrc = stubProviders
		launchSrc = stubProviders
		log.Info().Msg("Providers: STUB mode")
	} else {
		timeout := cfg.Engine.CallTimeout
		marketSources := make([]providers.MetricsSource, 0, len(cfg.Providers.Market))
		for _, p := range cfg.Providers.Market {
			marketSources = append(marketSources,
				providers.NewHTTPMetricsSource(p.Name, p.BaseURL, p.APIKey, p.RateLimitRPS, timeout))
			log.Info().Str("provider", p.Name).Str("base_url", p.BaseURL).Msg("Market provider registered")
		}
		metricsSrc = providers.NewFallbackMetricsSource(marketSources...)
		safetySrc = providers.NewHTTPSafetySource(
			cfg.Providers.Safety.Name, cfg.Providers.Safety.BaseURL,
			cfg.Providers.Safety.APIKey, cfg.Providers.Safety.RateLimitRPS, timeout)
		walletSrc = providers.NewHTTPWalletHistorySource(
			cfg.Providers.Wallet.Name, cfg.Providers.Wallet.BaseURL,
			cfg.Providers.Wallet.APIKey, cfg.Providers.Wallet.RateLimitRPS, timeout)
		launchSrc = providers.NewHTTPLaunchSource(
			"launch", cfg.Providers.Launch.RESTURL, "", 5, timeout)
	}

	// Safeguard controller with persisted state.
	guard := safeguard.New(safeguard.Config{
		DailyBuyCap:        cfg.Safeguard.DailyBuyCap,
		MaxActiveWatchdogs: cfg.Safeguard.MaxActiveWatchdogs,
		WinRateWindow:      cfg.Safeguard.WinRateWindow,
		MinWinRate:         cfg.Safeguard.MinWinRate,
		WinRateKillCoupled: cfg.Safeguard.WinRateKillCoupled,
		PriorityHalfLife:   cfg.Safeguard.PriorityHalfLife,
	}, guardStore)
	if err := guard.Restore(ctx); err != nil {
		log.Warn().Err(err).Msg("Safeguard state restore failed (starting with defaults)")
	}

	// Metrics registry.
	obs := observability.NewMetrics("vigil", prometheus.DefaultRegisterer)

	eng := engine.New(*cfg, engine.Deps{
		Store:     watchStore,
		Snapshots: snapshots,
		Machine:   watchlist.NewMachine(cfg.Engine.RetriageCooldown),
		Metrics:   metricsSrc,
		Safety:    safetySrc,
		DevMon:    devwallet.New(cfg.DevWallet, walletSrc),
		Guard:     guard,
		Obs:       obs,
	})

	// Discovery feed.
	feed := discovery.NewFeed(cfg.Providers.Launch, launchSrc, obs)
	launches := feed.Start(ctx)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for l := range launches {
			eng.AddLaunch(l)
		}
	}()

	// Health checks.
	health := observability.NewHealthMonitor()
	health.Register("launch_feed", func(_ context.Context) observability.ComponentHealth {
		stats := feed.SnapshotStats()
		status := observability.StatusHealthy
		msg := ""
		if !feed.Connected() {
			status = observability.StatusDegraded
			msg = "websocket down, polling fallback active"
		}
		return observability.ComponentHealth{
			Status:  status,
			Message: msg,
			Details: map[string]any{
				"launches_seen": stats.LaunchesSeen,
				"dropped":    stats.Dropped,
				"reconnects": stats.Reconnects,
			},
		}
	})
	health.Register("engine", func(_ context.Context) observability.ComponentHealth {
		summary := eng.LastSummary()
		if summary == nil {
			return observability.ComponentHealth{
				Status:  observability.StatusDegraded,
				Message: "no cycle completed yet",
			}
		}
		status := observability.StatusHealthy
		msg := ""
		if age := time.Since(summary.StartedAt); age > 3*cfg.Engine.CycleInterval {
			status = observability.StatusDegraded
			msg = fmt.Sprintf("last cycle started %s ago", age.Round(time.Second))
		}
		return observability.ComponentHealth{
			Status:  status,
			Message: msg,
			Details: map[string]any{
				"scanned":   summary.Scanned,
				"qualified": summary.Qualified,
				"errors":    summary.Errors,
			},
		}
	})
	if pgPool != nil {
		health.Register("postgres", func(ctx context.Context) observability.ComponentHealth {
			if err := pgPool.Ping(ctx); err != nil {
				return observability.ComponentHealth{
					Status:  observability.StatusUnhealthy,
					Message: err.Error(),
				}
			}
			return observability.ComponentHealth{Status: observability.StatusHealthy}
		})
	}
	if chClient != nil {
		health.Register("clickhouse", func(ctx context.Context) observability.ComponentHealth {
			if err := chClient.Ping(ctx); err != nil {
				return observability.ComponentHealth{
					Status:  observability.StatusDegraded,
					Message: err.Error(),
				}
			}
			return observability.ComponentHealth{Status: observability.StatusHealthy}
		})
	}

	// Ops HTTP server: health, Prometheus metrics, admin surface.
	if cfg.Metrics.Enabled {
		mux := observability.NewMux(health, prometheus.DefaultGatherer, eng.AdminHandler())
		addr := fmt.Sprintf(":%d", cfg.Metrics.ListenPort)
		server := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Info().Str("addr", addr).Msg("Ops HTTP server started (health + metrics + admin)")
			if srvErr := server.ListenAndServe(); srvErr != nil && !errors.Is(srvErr, http.ErrServerClosed) {
				log.Error().Err(srvErr).Msg("HTTP server error")
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			server.Shutdown(shutdownCtx)
		}()
	}

	// Cycle scheduler. The first cycle runs immediately so a restart does
	// not wait out a full interval before rechecking the watchlist.
	wg.Add(1)
	go func() {
		defer wg.Done()
		runCycle(ctx, eng)
		ticker := time.NewTicker(cfg.Engine.CycleInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runCycle(ctx, eng)
			}
		}
	}()

	log.Info().Msg("VIGIL Token Lifecycle Engine - Running")
	log.Info().Msg("Pipeline: Launch Feed -> Triage -> Scorer -> Watchlist -> Safeguard -> Candidates")

	<-ctx.Done()

	log.Info().Msg("Shutting down...")
	wg.Wait()

	if summary := eng.LastSummary(); summary != nil {
		log.Info().
			Str("cycle_id", summary.CycleID).
			Int("scanned", summary.Scanned).
			Int("qualified", summary.Qualified).
			Int("removed", summary.Removed).
			Msg("Final cycle summary")
	}
	log.Info().Msg("VIGIL Token Lifecycle Engine - Stopped")
}

func runCycle(ctx context.Context, eng *engine.Engine) {
	summary, err := eng.RunCycle(ctx)
	switch {
	case errors.Is(err, engine.ErrCycleInFlight):
		log.Warn().Msg("Cycle tick skipped: previous cycle still in flight")
	case err != nil && !errors.Is(err, context.Canceled):
		log.Error().Err(err).Msg("Cycle failed")
	default:
		log.Info().
			Str("cycle_id", summary.CycleID).
			Int("scanned", summary.Scanned).
			Int("added", summary.Added).
			Int("qualified", summary.Qualified).
			Int("removed", summary.Removed).
			Int("errors", summary.Errors).
			Bool("aborted", summary.Aborted).
			Dur("duration", summary.Duration).
			Msg("Cycle complete")
	}
}

func setupLogging(general config.GeneralConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMicro
	level, err := zerolog.ParseLevel(general.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if general.LogFormat == "console" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Str("service", "vigil-engine").
			Str("instance", general.InstanceID).Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).
			With().Timestamp().Str("service", "vigil-engine").
			Str("instance", general.InstanceID).Logger()
	}
}
