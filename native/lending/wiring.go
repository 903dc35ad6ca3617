package lending

import (
	"lendingpool/address"
	"lendingpool/config"
	"lendingpool/fixedpoint"
	"lendingpool/ratemodel"
)

// GlobalConfigFromPoolConfig translates a decoded config.PoolConfig into the
// engine's GlobalConfig. The admin address is supplied by the caller;
// pc.Admin is not read or decoded here. This is the seam between the TOML-facing config package
// and the engine's native types, matching the teacher's own pattern of
// keeping wire-format config structs separate from the types business logic
// operates on.
func GlobalConfigFromPoolConfig(admin address.Address, pc *config.PoolConfig) GlobalConfig {
	return GlobalConfig{
		Admin:                admin,
		CollateralAsset:      pc.Assets.CollateralAsset,
		BorrowAsset:          pc.Assets.BorrowAsset,
		LTV:                  fixedpoint.FromUnits(pc.Risk.LTVBps),
		LiquidationThreshold: fixedpoint.FromUnits(pc.Risk.LiquidationThresholdBps),
		LiquidationBonus:     fixedpoint.FromUnits(pc.Risk.LiquidationBonusBps),
		CloseFactor:          fixedpoint.FromUnits(pc.Risk.CloseFactorBps),
		ReserveFactor:        fixedpoint.FromUnits(pc.Risk.ReserveFactorBps),
	}
}

// RateModelFromPoolConfig builds the kinked interest rate model a pool's
// configuration describes. Slope1 is r_opt, the rate at the kink; Slope2 is
// the additional rise from r_opt up to r_max, matching the teacher's
// two-slope naming even though the spec's curve above the kink is no longer
// a single further slope but six weighted sub-segments.
func RateModelFromPoolConfig(pc *config.PoolConfig) (*ratemodel.Model, error) {
	rOpt := fixedpoint.FromUnits(pc.Rate.Slope1)
	rMax, err := fixedpoint.Add(rOpt, fixedpoint.FromUnits(pc.Rate.Slope2))
	if err != nil {
		return nil, err
	}
	return ratemodel.New(
		fixedpoint.FromUnits(pc.Rate.RMin),
		rOpt,
		rMax,
		fixedpoint.FromUnits(pc.Rate.UStar),
	)
}
