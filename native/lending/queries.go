package lending

import (
	"lendingpool/address"
	"lendingpool/fixedpoint"
)

// projectedReserve returns a clone of the pool's persisted reserve advanced
// to the engine's current time, without writing anything back to state —
// the read path spec §6 describes as "view functions that never mutate".
func (e *Engine) projectedReserve() (*Reserve, *GlobalConfig, error) {
	cfg, err := e.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	reserve, err := e.ensureReserve()
	if err != nil {
		return nil, nil, err
	}
	projected := reserve.Clone()
	if err := e.accrue(projected, cfg); err != nil {
		return nil, nil, err
	}
	return projected, cfg, nil
}

// GetUserCollateral returns user's locked collateral balance.
func (e *Engine) GetUserCollateral(user address.Address) (fixedpoint.Fp, error) {
	if _, err := e.ensureConfig(); err != nil {
		return fixedpoint.Fp{}, err
	}
	pos, err := e.ensurePosition(user)
	if err != nil {
		return fixedpoint.Fp{}, err
	}
	return pos.CollateralAmount, nil
}

// GetUserShares returns user's supplier share balance.
func (e *Engine) GetUserShares(user address.Address) (fixedpoint.Fp, error) {
	if _, err := e.ensureConfig(); err != nil {
		return fixedpoint.Fp{}, err
	}
	pos, err := e.ensurePosition(user)
	if err != nil {
		return fixedpoint.Fp{}, err
	}
	return pos.Shares, nil
}

// GetUserDebt returns user's currently owed amount, including interest
// projected up to the engine's current time.
func (e *Engine) GetUserDebt(user address.Address) (fixedpoint.Fp, error) {
	reserve, _, err := e.projectedReserve()
	if err != nil {
		return fixedpoint.Fp{}, err
	}
	pos, err := e.ensurePosition(user)
	if err != nil {
		return fixedpoint.Fp{}, err
	}
	return owed(pos, reserve)
}

// GetTotalSupply returns the pool's total supplier claim on the underlying
// asset, projected to the current time.
func (e *Engine) GetTotalSupply() (fixedpoint.Fp, error) {
	reserve, _, err := e.projectedReserve()
	if err != nil {
		return fixedpoint.Fp{}, err
	}
	return reserve.UnderlyingSupplied()
}

// GetTotalBorrow returns the pool's total outstanding debt, projected to
// the current time.
func (e *Engine) GetTotalBorrow() (fixedpoint.Fp, error) {
	reserve, _, err := e.projectedReserve()
	if err != nil {
		return fixedpoint.Fp{}, err
	}
	return reserve.TotalDebt, nil
}

// GetUtilizationRate returns total_debt * S / (total_liquidity +
// total_debt), or zero if the reserve is empty.
func (e *Engine) GetUtilizationRate() (fixedpoint.Fp, error) {
	reserve, _, err := e.projectedReserve()
	if err != nil {
		return fixedpoint.Fp{}, err
	}
	return utilization(reserve)
}

func utilization(reserve *Reserve) (fixedpoint.Fp, error) {
	denom, err := fixedpoint.Add(reserve.TotalLiquidity, reserve.TotalDebt)
	if err != nil {
		return fixedpoint.Fp{}, err
	}
	if denom.Sign() == 0 {
		return fixedpoint.Zero(), nil
	}
	return fixedpoint.MulDivDown(reserve.TotalDebt, fixedpoint.One(), denom)
}

// GetBorrowRate returns the instantaneous per-annum borrow rate at the
// pool's current utilization.
func (e *Engine) GetBorrowRate() (fixedpoint.Fp, error) {
	if e.rateModel == nil {
		return fixedpoint.Zero(), nil
	}
	reserve, _, err := e.projectedReserve()
	if err != nil {
		return fixedpoint.Fp{}, err
	}
	u, err := utilization(reserve)
	if err != nil {
		return fixedpoint.Fp{}, err
	}
	return e.rateModel.BorrowRate(u)
}

// GetSupplyRate returns the instantaneous per-annum supply rate at the
// pool's current utilization, net of the reserve factor.
func (e *Engine) GetSupplyRate() (fixedpoint.Fp, error) {
	if e.rateModel == nil {
		return fixedpoint.Zero(), nil
	}
	reserve, cfg, err := e.projectedReserve()
	if err != nil {
		return fixedpoint.Fp{}, err
	}
	u, err := utilization(reserve)
	if err != nil {
		return fixedpoint.Fp{}, err
	}
	return e.rateModel.SupplyRate(u, cfg.ReserveFactor)
}
