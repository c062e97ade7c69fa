// Package config loads the custodian service configuration from JSON or
// YAML files, with environment overrides on top.
package config

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	yaml "gopkg.in/yaml.v2"

	"github.com/basisfi/flashlend/utils/math"
)

// Funding modes accepted in config files.
const (
	ModeSync    = "sync"
	ModeDeposit = "deposit"
)

// Return conventions the demo token can be configured with.
const (
	ReturnBool   = "bool"
	ReturnSilent = "silent"
)

// Config describes one custodian deployment. Addresses and amounts stay
// strings here; Validate checks them and the typed accessors parse them.
type Config struct {
	// Mode selects the funding variant: "sync" or "deposit".
	Mode string `json:"mode" yaml:"mode"`

	// Asset, Custodian, and Owner are hex addresses.
	Asset     string `json:"asset" yaml:"asset"`
	Custodian string `json:"custodian" yaml:"custodian"`
	Owner     string `json:"owner" yaml:"owner"`

	// FeeBps prices loans in basis points.
	FeeBps uint64 `json:"fee_bps" yaml:"fee_bps"`

	// InitialFunding is minted to the custodian (sync mode) or the
	// depositor (deposit mode) at startup, in wei.
	InitialFunding string `json:"initial_funding" yaml:"initial_funding"`

	// ReturnConvention configures the demo token: "bool" or "silent".
	ReturnConvention string `json:"return_convention" yaml:"return_convention"`

	// Scenario drives the scripted settlement rounds of the demo
	// service.
	Scenario ScenarioConfig `json:"scenario" yaml:"scenario"`

	MetricsEnabled bool   `json:"metrics_enabled" yaml:"metrics_enabled"`
	MetricsAddr    string `json:"metrics_addr" yaml:"metrics_addr"`

	Debug bool `json:"debug" yaml:"debug"`
}

// ScenarioConfig paces the demo settlement rounds.
type ScenarioConfig struct {
	Rounds          int     `json:"rounds" yaml:"rounds"`
	RoundAmount     string  `json:"round_amount" yaml:"round_amount"`
	RoundsPerSecond float64 `json:"rounds_per_second" yaml:"rounds_per_second"`
}

// DefaultConfig is a runnable sync-mode deployment backed by the demo
// token.
func DefaultConfig() *Config {
	return &Config{
		Mode:             ModeSync,
		Asset:            "0x00000000000000000000000000000000000a55e7",
		Custodian:        "0x000000000000000000000000000000000000c0de",
		Owner:            "0x0000000000000000000000000000000000000b05",
		FeeBps:           10,
		InitialFunding:   "1000000000000000000000", // 1000 ether
		ReturnConvention: ReturnBool,
		Scenario: ScenarioConfig{
			Rounds:          10,
			RoundAmount:     "1000000000000000000", // 1 ether
			RoundsPerSecond: 2,
		},
		MetricsEnabled: false,
		MetricsAddr:    ":9090",
	}
}

// LoadConfig reads path (JSON or YAML by extension) over the defaults,
// then applies environment overrides. An empty path loads defaults plus
// environment only.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		switch ext := filepath.Ext(path); ext {
		case ".json":
			if err := json.Unmarshal(raw, cfg); err != nil {
				return nil, fmt.Errorf("failed to decode config file: %w", err)
			}
		case ".yaml", ".yml":
			if err := yaml.Unmarshal(raw, cfg); err != nil {
				return nil, fmt.Errorf("failed to decode config file: %w", err)
			}
		default:
			return nil, fmt.Errorf("unsupported config extension %q", ext)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig writes cfg to path as indented JSON.
func SaveConfig(cfg *Config, path string) error {
	raw, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

// applyEnv layers FLASHLEND_* environment variables over the config.
func (c *Config) applyEnv() {
	c.Mode = GetEnvWithDefault(EnvMode, c.Mode)
	c.Asset = GetEnvWithDefault(EnvAsset, c.Asset)
	c.Custodian = GetEnvWithDefault(EnvCustodian, c.Custodian)
	c.Owner = GetEnvWithDefault(EnvOwner, c.Owner)
	c.MetricsAddr = GetEnvWithDefault(EnvMetricsAddr, c.MetricsAddr)

	if v := os.Getenv(EnvFeeBps); v != "" {
		if bps, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.FeeBps = bps
		}
	}
	if v := os.Getenv(EnvDebug); v != "" {
		c.Debug = v == "1" || strings.EqualFold(v, "true")
	}
}

// Validate collects every problem rather than stopping at the first.
func (c *Config) Validate() error {
	var problems []string

	if c.Mode != ModeSync && c.Mode != ModeDeposit {
		problems = append(problems, fmt.Sprintf("mode must be %q or %q, got %q", ModeSync, ModeDeposit, c.Mode))
	}
	for name, addr := range map[string]string{
		"asset":     c.Asset,
		"custodian": c.Custodian,
		"owner":     c.Owner,
	} {
		if !common.IsHexAddress(addr) {
			problems = append(problems, fmt.Sprintf("%s must be a hex address, got %q", name, addr))
		}
	}
	if c.ReturnConvention != ReturnBool && c.ReturnConvention != ReturnSilent {
		problems = append(problems, fmt.Sprintf("return_convention must be %q or %q, got %q", ReturnBool, ReturnSilent, c.ReturnConvention))
	}
	if _, err := math.ParseAmount(c.InitialFunding); err != nil {
		problems = append(problems, fmt.Sprintf("initial_funding: %v", err))
	}
	if c.Scenario.Rounds < 0 {
		problems = append(problems, "scenario.rounds must not be negative")
	}
	if _, err := math.ParseAmount(c.Scenario.RoundAmount); err != nil {
		problems = append(problems, fmt.Sprintf("scenario.round_amount: %v", err))
	}
	if c.Scenario.RoundsPerSecond <= 0 {
		problems = append(problems, "scenario.rounds_per_second must be positive")
	}
	if c.MetricsEnabled && c.MetricsAddr == "" {
		problems = append(problems, "metrics_addr must be set when metrics are enabled")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(problems, "; "))
	}
	return nil
}

// AssetAddress returns the parsed asset address. Call Validate first.
func (c *Config) AssetAddress() common.Address {
	return common.HexToAddress(c.Asset)
}

// CustodianAddress returns the parsed custodian address.
func (c *Config) CustodianAddress() common.Address {
	return common.HexToAddress(c.Custodian)
}

// OwnerAddress returns the parsed owner address.
func (c *Config) OwnerAddress() common.Address {
	return common.HexToAddress(c.Owner)
}

// InitialFundingWei returns the parsed startup funding.
func (c *Config) InitialFundingWei() (*big.Int, error) {
	return math.ParseAmount(c.InitialFunding)
}

// RoundAmountWei returns the parsed per-round principal.
func (c *Config) RoundAmountWei() (*big.Int, error) {
	return math.ParseAmount(c.Scenario.RoundAmount)
}
