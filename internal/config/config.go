package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vigil-trading/vigil/internal/retry"
)

// Config is the root configuration structure for VIGIL.
type Config struct {
	General   GeneralConfig   `yaml:"general"`
	Engine    EngineConfig    `yaml:"engine"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Safeguard SafeguardConfig `yaml:"safeguard"`
	DevWallet DevWalletConfig `yaml:"devwallet"`
	Providers ProvidersConfig `yaml:"providers"`
	Storage   StorageConfig   `yaml:"storage"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type GeneralConfig struct {
	InstanceID  string `yaml:"instance_id"`
	Environment string `yaml:"environment"` // production|staging|development
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"` // json|console
}

// EngineConfig tunes the polling orchestrator.
type EngineConfig struct {
	CycleInterval     time.Duration `yaml:"cycle_interval"`      // scheduler tick
	RecheckInterval   time.Duration `yaml:"recheck_interval"`    // min age before a token is due again
	MaxTokensPerCycle int           `yaml:"max_tokens_per_cycle"`
	BatchSize         int           `yaml:"batch_size"`
	BatchDelay        time.Duration `yaml:"batch_delay"`
	CallTimeout       time.Duration `yaml:"call_timeout"` // per external call
	Retry             retry.Policy  `yaml:"retry"`

	// Death / collapse detection.
	MinAliveHolders  int           `yaml:"min_alive_holders"`
	MinAliveVolume   float64       `yaml:"min_alive_volume_usd"`
	DeadGracePeriod  time.Duration `yaml:"dead_grace_period"`
	BombDropPct      float64       `yaml:"bomb_drop_pct"`      // single-step collapse threshold
	RetriageCooldown time.Duration `yaml:"retriage_cooldown"`  // soft-reject re-entry delay
}

// ScoringConfig tunes the qualification scorer.
//
// QualifyThreshold is deliberately a single explicit value rather than a
// compiled-in constant. 70 is the default; operators override in config.
type ScoringConfig struct {
	QualifyThreshold float64 `yaml:"qualify_threshold"`
}

type SafeguardConfig struct {
	DailyBuyCap        int           `yaml:"daily_buy_cap"`
	MaxActiveWatchdogs int           `yaml:"max_active_watchdogs"`
	WinRateWindow      int           `yaml:"win_rate_window"`       // trailing resolved candidates
	MinWinRate         float64       `yaml:"min_win_rate"`          // warning threshold, 0-1
	WinRateKillCoupled bool          `yaml:"win_rate_kill_coupled"` // low win-rate auto-activates kill switch
	PriorityHalfLife   time.Duration `yaml:"priority_half_life"`    // recency weighting for pruning
}

type DevWalletConfig struct {
	YoungTokenWindow time.Duration `yaml:"young_token_window"` // full exit inside this window = permanent reject
	FullExitEpsilon  float64       `yaml:"full_exit_epsilon"`  // holding pct below this counts as zero
	SwapScanDepth    int           `yaml:"swap_scan_depth"`
}

type ProvidersConfig struct {
	Market  []ProviderEndpoint `yaml:"market"` // precedence order
	Safety  ProviderEndpoint   `yaml:"safety"`
	Wallet  ProviderEndpoint   `yaml:"wallet"`
	Launch  LaunchFeedConfig   `yaml:"launch"`
}

// ProviderEndpoint configures one upstream HTTP data provider.
type ProviderEndpoint struct {
	Name         string  `yaml:"name"`
	BaseURL      string  `yaml:"base_url"`
	APIKey       string  `yaml:"api_key"`
	RateLimitRPS float64 `yaml:"rate_limit_rps"`
}

// LaunchFeedConfig configures the new-token launch feed.
type LaunchFeedConfig struct {
	WSURL        string        `yaml:"ws_url"`
	RESTURL      string        `yaml:"rest_url"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

type StorageConfig struct {
	Backend       string `yaml:"backend"` // memory|postgres
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickHouseDSN string `yaml:"clickhouse_dsn"` // empty disables snapshot history
}

type MetricsConfig struct {
	Enabled    bool `yaml:"enabled"`
	ListenPort int  `yaml:"listen_port"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(cfg)
	return cfg, nil
}

// Validate hard-fails on missing required settings. A cycle run with a
// half-configured provider stack would produce scores that cannot be
// compared across tokens, so this is fatal rather than degraded.
func (c *Config) Validate() error {
	if c.Storage.Backend != "memory" && c.Storage.Backend != "postgres" {
		return fmt.Errorf("storage.backend must be memory or postgres, got %q", c.Storage.Backend)
	}
	if c.Storage.Backend == "postgres" && c.Storage.PostgresDSN == "" {
		return fmt.Errorf("storage.postgres_dsn is required with the postgres backend")
	}
	if len(c.Providers.Market) == 0 {
		return fmt.Errorf("providers.market: at least one market-data provider is required")
	}
	for i, p := range c.Providers.Market {
		if p.BaseURL == "" {
			return fmt.Errorf("providers.market[%d] (%s): base_url is required", i, p.Name)
		}
	}
	if c.Providers.Safety.BaseURL == "" {
		return fmt.Errorf("providers.safety.base_url is required")
	}
	if c.Providers.Wallet.BaseURL == "" {
		return fmt.Errorf("providers.wallet.base_url is required")
	}
	if c.Providers.Launch.WSURL == "" && c.Providers.Launch.RESTURL == "" {
		return fmt.Errorf("providers.launch: at least one of ws_url or rest_url is required")
	}
	if c.Scoring.QualifyThreshold <= 0 || c.Scoring.QualifyThreshold > 100 {
		return fmt.Errorf("scoring.qualify_threshold must be in (0, 100], got %v", c.Scoring.QualifyThreshold)
	}
	if c.Safeguard.MinWinRate < 0 || c.Safeguard.MinWinRate > 1 {
		return fmt.Errorf("safeguard.min_win_rate must be in [0, 1], got %v", c.Safeguard.MinWinRate)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.General.InstanceID == "" {
		cfg.General.InstanceID = "vigil-1"
	}
	if cfg.General.Environment == "" {
		cfg.General.Environment = "development"
	}
	if cfg.General.LogLevel == "" {
		cfg.General.LogLevel = "info"
	}
	if cfg.General.LogFormat == "" {
		cfg.General.LogFormat = "json"
	}

	if cfg.Engine.CycleInterval == 0 {
		cfg.Engine.CycleInterval = 60 * time.Second
	}
	if cfg.Engine.RecheckInterval == 0 {
		cfg.Engine.RecheckInterval = 5 * time.Minute
	}
	if cfg.Engine.MaxTokensPerCycle == 0 {
		cfg.Engine.MaxTokensPerCycle = 100
	}
	if cfg.Engine.BatchSize == 0 {
		cfg.Engine.BatchSize = 10
	}
	if cfg.Engine.BatchDelay == 0 {
		cfg.Engine.BatchDelay = 2 * time.Second
	}
	if cfg.Engine.CallTimeout == 0 {
		cfg.Engine.CallTimeout = 8 * time.Second
	}
	if cfg.Engine.Retry.MaxAttempts == 0 {
		cfg.Engine.Retry = retry.DefaultPolicy()
	}
	if cfg.Engine.MinAliveHolders == 0 {
		cfg.Engine.MinAliveHolders = 10
	}
	if cfg.Engine.MinAliveVolume == 0 {
		cfg.Engine.MinAliveVolume = 50
	}
	if cfg.Engine.DeadGracePeriod == 0 {
		cfg.Engine.DeadGracePeriod = 30 * time.Minute
	}
	if cfg.Engine.BombDropPct == 0 {
		cfg.Engine.BombDropPct = 70
	}
	if cfg.Engine.RetriageCooldown == 0 {
		cfg.Engine.RetriageCooldown = 10 * time.Minute
	}

	if cfg.Scoring.QualifyThreshold == 0 {
		cfg.Scoring.QualifyThreshold = 70
	}

	if cfg.Safeguard.DailyBuyCap == 0 {
		cfg.Safeguard.DailyBuyCap = 20
	}
	if cfg.Safeguard.MaxActiveWatchdogs == 0 {
		cfg.Safeguard.MaxActiveWatchdogs = 50
	}
	if cfg.Safeguard.WinRateWindow == 0 {
		cfg.Safeguard.WinRateWindow = 20
	}
	if cfg.Safeguard.MinWinRate == 0 {
		cfg.Safeguard.MinWinRate = 0.35
	}
	if cfg.Safeguard.PriorityHalfLife == 0 {
		cfg.Safeguard.PriorityHalfLife = 30 * time.Minute
	}

	if cfg.DevWallet.YoungTokenWindow == 0 {
		cfg.DevWallet.YoungTokenWindow = time.Hour
	}
	if cfg.DevWallet.FullExitEpsilon == 0 {
		cfg.DevWallet.FullExitEpsilon = 0.1
	}
	if cfg.DevWallet.SwapScanDepth == 0 {
		cfg.DevWallet.SwapScanDepth = 200
	}

	for i := range cfg.Providers.Market {
		if cfg.Providers.Market[i].RateLimitRPS == 0 {
			cfg.Providers.Market[i].RateLimitRPS = 5
		}
	}
	if cfg.Providers.Safety.RateLimitRPS == 0 {
		cfg.Providers.Safety.RateLimitRPS = 5
	}
	if cfg.Providers.Wallet.RateLimitRPS == 0 {
		cfg.Providers.Wallet.RateLimitRPS = 5
	}
	if cfg.Providers.Launch.PollInterval == 0 {
		cfg.Providers.Launch.PollInterval = 5 * time.Second
	}

	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "memory"
	}

	if cfg.Metrics.ListenPort == 0 {
		cfg.Metrics.ListenPort = 9100
	}
}
