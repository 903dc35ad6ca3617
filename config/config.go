// Package config loads the immutable pool parameters the wire contract
// fixes at initialize time, mirroring the teacher's config.Load /
// EnsureDefaults split: decode whatever the TOML file supplies, then fill in
// the documented reference defaults for anything left unset.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// AssetPair names the two assets a pool governs: the asset borrowers draw
// and the asset suppliers of risk lock as collateral.
type AssetPair struct {
	CollateralAsset string `toml:"CollateralAsset"`
	BorrowAsset     string `toml:"BorrowAsset"`
}

// RiskParameters captures the governance-frozen safety limits, expressed in
// scale-S units (so 7_500_000 means 75%), matching spec §3's Global config.
type RiskParameters struct {
	LTVBps                  int64 `toml:"LTV"`
	LiquidationThresholdBps int64 `toml:"LiquidationThreshold"`
	LiquidationBonusBps     int64 `toml:"LiquidationBonus"`
	CloseFactorBps          int64 `toml:"CloseFactor"`
	ReserveFactorBps        int64 `toml:"ReserveFactor"`
}

// RateParameters seeds the kinked interest rate model, expressed in scale-S
// units per spec §6's wire contract constants.
type RateParameters struct {
	RMin  int64 `toml:"RMin"`
	Slope1 int64 `toml:"Slope1"`
	Slope2 int64 `toml:"Slope2"`
	UStar int64 `toml:"UStar"`
}

// PoolConfig is the immutable configuration a single pool is initialized
// with; it never changes after Engine.Initialize, matching Design Note
// "Global configuration as immutable struct".
type PoolConfig struct {
	PoolID      string          `toml:"PoolID"`
	Admin       string          `toml:"Admin"`
	Assets      AssetPair       `toml:"assets"`
	Risk        RiskParameters  `toml:"risk"`
	Rate        RateParameters  `toml:"rate"`
}

// EnsureDefaults fills any zero-valued field with the reference deployment's
// constants from spec §6, the same "backfill after decode" pass the
// teacher's native/lending.Config.EnsureDefaults performs for its breaker
// thresholds.
func (c *PoolConfig) EnsureDefaults() {
	if c.Risk.LTVBps == 0 {
		c.Risk.LTVBps = 7_500_000
	}
	if c.Risk.LiquidationThresholdBps == 0 {
		c.Risk.LiquidationThresholdBps = 8_000_000
	}
	if c.Risk.LiquidationBonusBps == 0 {
		c.Risk.LiquidationBonusBps = 500_000
	}
	if c.Risk.CloseFactorBps == 0 {
		c.Risk.CloseFactorBps = 5_000_000
	}
	if c.Risk.ReserveFactorBps == 0 {
		c.Risk.ReserveFactorBps = 1_000_000
	}
	if c.Rate.Slope1 == 0 {
		c.Rate.Slope1 = 400_000
	}
	if c.Rate.Slope2 == 0 {
		c.Rate.Slope2 = 7_500_000
	}
	if c.Rate.UStar == 0 {
		c.Rate.UStar = 8_000_000
	}
}

// Load decodes a pool configuration from a TOML file and backfills defaults.
// A missing file is not an error: Load returns the reference deployment's
// defaults, matching config.Load's "create default when absent" behavior in
// the teacher.
func Load(path string) (*PoolConfig, error) {
	cfg := &PoolConfig{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg.EnsureDefaults()
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	cfg.EnsureDefaults()
	return cfg, nil
}
