package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ModeSync, cfg.Mode)
	assert.NotEqual(t, "", cfg.AssetAddress().Hex())

	funding, err := cfg.InitialFundingWei()
	require.NoError(t, err)
	assert.Positive(t, funding.Sign())
}

func TestValidateCollectsProblems(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = "yolo"
	cfg.Owner = "not-an-address"
	cfg.InitialFunding = "-5"
	cfg.Scenario.RoundsPerSecond = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mode")
	assert.Contains(t, err.Error(), "owner")
	assert.Contains(t, err.Error(), "initial_funding")
	assert.Contains(t, err.Error(), "rounds_per_second")
}

func TestLoadConfigJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flashlend.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"mode": "deposit",
		"fee_bps": 25
	}`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ModeDeposit, cfg.Mode)
	assert.Equal(t, uint64(25), cfg.FeeBps)
	// Unset fields keep their defaults.
	assert.Equal(t, DefaultConfig().Asset, cfg.Asset)
}

func TestLoadConfigYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flashlend.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"mode: sync\nfee_bps: 50\nscenario:\n  rounds: 3\n  round_amount: \"7\"\n  rounds_per_second: 1\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), cfg.FeeBps)
	assert.Equal(t, 3, cfg.Scenario.Rounds)

	amount, err := cfg.RoundAmountWei()
	require.NoError(t, err)
	assert.Equal(t, int64(7), amount.Int64())
}

func TestLoadConfigRejectsUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flashlend.toml")
	require.NoError(t, os.WriteFile(path, []byte("mode = \"sync\""), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvMode, "deposit")
	t.Setenv(EnvFeeBps, "99")
	t.Setenv(EnvDebug, "true")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, ModeDeposit, cfg.Mode)
	assert.Equal(t, uint64(99), cfg.FeeBps)
	assert.True(t, cfg.Debug)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.json")
	cfg := DefaultConfig()
	cfg.FeeBps = 77

	require.NoError(t, SaveConfig(cfg, path))
	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(77), loaded.FeeBps)
}
