package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp(t.TempDir(), "vigil-config-*.yaml")
	require.NoError(t, err)
	_, err = tmpFile.WriteString(body)
	require.NoError(t, err)
	tmpFile.Close()
	return tmpFile.Name()
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
general:
  instance_id: "test-node"
  environment: "development"
  log_level: "debug"

engine:
  batch_size: 5
  batch_delay: 1s
  max_tokens_per_cycle: 40

scoring:
  qualify_threshold: 65

safeguard:
  daily_buy_cap: 10
  max_active_watchdogs: 25

providers:
  market:
    - name: "dexventory"
      base_url: "https://api.dexventory.example"
  safety:
    base_url: "https://api.rugscan.example"
  wallet:
    base_url: "https://api.txhistory.example"
  launch:
    rest_url: "https://api.launchpad.example"

storage:
  backend: memory
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "test-node", cfg.General.InstanceID)
	assert.Equal(t, 5, cfg.Engine.BatchSize)
	assert.Equal(t, time.Second, cfg.Engine.BatchDelay)
	assert.Equal(t, 40, cfg.Engine.MaxTokensPerCycle)
	assert.Equal(t, 65.0, cfg.Scoring.QualifyThreshold)
	assert.Equal(t, 10, cfg.Safeguard.DailyBuyCap)
	assert.Equal(t, "dexventory", cfg.Providers.Market[0].Name)
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, `
providers:
  market:
    - name: "primary"
      base_url: "https://api.primary.example"
  safety:
    base_url: "https://api.safety.example"
  wallet:
    base_url: "https://api.wallet.example"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 70.0, cfg.Scoring.QualifyThreshold)
	assert.Equal(t, 10, cfg.Engine.BatchSize)
	assert.Equal(t, 8*time.Second, cfg.Engine.CallTimeout)
	assert.Equal(t, 3, cfg.Engine.Retry.MaxAttempts)
	assert.Equal(t, 50, cfg.Safeguard.MaxActiveWatchdogs)
	assert.False(t, cfg.Safeguard.WinRateKillCoupled)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, 5.0, cfg.Providers.Market[0].RateLimitRPS)
}

func TestLoadConfig_EnvExpansion(t *testing.T) {
	t.Setenv("VIGIL_TEST_KEY", "sekrit")
	path := writeConfig(t, `
providers:
  market:
    - name: "primary"
      base_url: "https://api.primary.example"
      api_key: "${VIGIL_TEST_KEY}"
  safety:
    base_url: "https://api.safety.example"
  wallet:
    base_url: "https://api.wallet.example"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sekrit", cfg.Providers.Market[0].APIKey)
}

func TestValidate_MissingProviderIsFatal(t *testing.T) {
	path := writeConfig(t, `
providers:
  safety:
    base_url: "https://api.safety.example"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "market")
}

func TestValidate_ThresholdBounds(t *testing.T) {
	path := writeConfig(t, `
scoring:
  qualify_threshold: 140
providers:
  market:
    - name: "primary"
      base_url: "https://api.primary.example"
  safety:
    base_url: "https://api.safety.example"
  wallet:
    base_url: "https://api.wallet.example"
  launch:
    rest_url: "https://api.launch.example"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "qualify_threshold")
}

func TestValidate_MissingLaunchFeedIsFatal(t *testing.T) {
	path := writeConfig(t, `
providers:
  market:
    - name: "primary"
      base_url: "https://api.primary.example"
  safety:
    base_url: "https://api.safety.example"
  wallet:
    base_url: "https://api.wallet.example"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "providers.launch")

	cfg.Providers.Launch.WSURL = "wss://feed.launch.example/ws"
	assert.NoError(t, cfg.Validate())
}
