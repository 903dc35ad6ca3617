// Package lending implements the Accrual Engine and Pool State Machine: the
// two most tightly coupled pieces of the engine. It is grounded directly on
// the teacher's native/lending package (Engine/Market/UserAccount shape,
// engineState storage interface, accrue-before-mutate discipline) but
// replaces the teacher's two-fixed-asset (NHB/ZNHB) accounting with the
// spec's scale-S fixedpoint.Fp domain and its single-borrow-asset,
// single-collateral-asset pool, and generalizes the teacher's hardcoded
// PoolID indirection so many independently configured pools can coexist.
package lending

import (
	"lendingpool/address"
	"lendingpool/fixedpoint"
)

// Reserve is the per-pool accounting ledger for the borrow asset, matching
// spec §3's Reserve record.
type Reserve struct {
	TotalLiquidity  fixedpoint.Fp
	TotalDebt       fixedpoint.Fp
	TotalShares     fixedpoint.Fp
	BorrowIndex     fixedpoint.Fp
	SupplyIndex     fixedpoint.Fp
	LastUpdateTime  int64
	ReserveBalance  fixedpoint.Fp
}

// NewReserve constructs a Reserve at its lifecycle-start values: both
// indices at S (1.0), every balance at zero.
func NewReserve() *Reserve {
	return &Reserve{
		TotalLiquidity: fixedpoint.Zero(),
		TotalDebt:      fixedpoint.Zero(),
		TotalShares:    fixedpoint.Zero(),
		BorrowIndex:    fixedpoint.One(),
		SupplyIndex:    fixedpoint.One(),
		ReserveBalance: fixedpoint.Zero(),
	}
}

// UnderlyingSupplied returns the virtual underlying value suppliers
// collectively hold a claim on: total_shares * supply_index / S. This grows
// as interest accrues even though the reserve's actual cash
// (TotalLiquidity) does not change until a borrower repays, which is what
// lets share value rise between accruals without moving tokens.
func (r *Reserve) UnderlyingSupplied() (fixedpoint.Fp, error) {
	if r.TotalShares.Sign() == 0 {
		return fixedpoint.Zero(), nil
	}
	return fixedpoint.MulDivDown(r.TotalShares, r.SupplyIndex, fixedpoint.One())
}

// UserPosition is the per-(user, pool) ledger entry, matching spec §3's
// UserPosition record. CollateralAmount tracks the pool's single designated
// collateral asset; Shares and DebtPrincipal track the pool's single
// borrow-asset reserve.
type UserPosition struct {
	Owner            address.Address
	Shares           fixedpoint.Fp
	DebtPrincipal    fixedpoint.Fp
	CollateralAmount fixedpoint.Fp
}

// NewUserPosition returns a fresh, all-zero position for owner.
func NewUserPosition(owner address.Address) *UserPosition {
	return &UserPosition{
		Owner:            owner,
		Shares:           fixedpoint.Zero(),
		DebtPrincipal:    fixedpoint.Zero(),
		CollateralAmount: fixedpoint.Zero(),
	}
}

// GlobalConfig is the immutable configuration frozen at Initialize, matching
// spec §3's Global config record. Apart from Paused, which the admin toggles
// through Engine.SetPaused, nothing here changes after Initialize; any other
// change requires re-initializing a new pool (Design Note "Global
// configuration as immutable struct").
type GlobalConfig struct {
	Admin                address.Address
	CollateralAsset      string
	BorrowAsset          string
	LTV                  fixedpoint.Fp
	LiquidationThreshold fixedpoint.Fp
	LiquidationBonus     fixedpoint.Fp
	CloseFactor          fixedpoint.Fp
	ReserveFactor        fixedpoint.Fp
	// Paused halts every mutating operation against this pool until the
	// admin named by Admin flips it back (Engine.SetPaused). Scoped to this
	// pool rather than a host-wide switch, since each pool here is
	// independently administered.
	Paused bool
}

// DefaultGlobalConfig returns the reference deployment's risk parameters
// from spec §6's wire contract constants, with admin/assets left for the
// caller to fill in.
func DefaultGlobalConfig(admin address.Address, collateralAsset, borrowAsset string) GlobalConfig {
	return GlobalConfig{
		Admin:                admin,
		CollateralAsset:      collateralAsset,
		BorrowAsset:          borrowAsset,
		LTV:                  fixedpoint.FromUnits(7_500_000),
		LiquidationThreshold: fixedpoint.FromUnits(8_000_000),
		LiquidationBonus:     fixedpoint.FromUnits(500_000),
		CloseFactor:          fixedpoint.FromUnits(5_000_000),
		ReserveFactor:        fixedpoint.FromUnits(1_000_000),
	}
}
