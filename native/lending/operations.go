package lending

import (
	"lendingpool/address"
	"lendingpool/fixedpoint"
)

// Supply transfers amount of the borrow asset from user into the pool and
// mints supplier shares against the current underlying-per-share ratio
// (spec §4.5's supply operation). The first depositor mints 1:1.
func (e *Engine) doSupply(user address.Address, amount fixedpoint.Fp) (fixedpoint.Fp, error) {
	if amount.Sign() <= 0 {
		return fixedpoint.Fp{}, ErrInvalidArgument
	}
	cfg, err := e.ensureConfig()
	if err != nil {
		return fixedpoint.Fp{}, err
	}
	if cfg.Paused {
		return fixedpoint.Fp{}, ErrPoolPaused
	}
	reserve, err := e.ensureReserve()
	if err != nil {
		return fixedpoint.Fp{}, err
	}
	if err := e.accrue(reserve, cfg); err != nil {
		return fixedpoint.Fp{}, err
	}

	underlying, err := reserve.UnderlyingSupplied()
	if err != nil {
		return fixedpoint.Fp{}, err
	}

	var mintedShares fixedpoint.Fp
	if reserve.TotalShares.Sign() == 0 {
		mintedShares = amount
	} else {
		mintedShares, err = fixedpoint.MulDivDown(amount, reserve.TotalShares, underlying)
		if err != nil {
			return fixedpoint.Fp{}, err
		}
	}

	if err := e.tokens.Transfer(cfg.BorrowAsset, user, e.poolAddress, amount); err != nil {
		return fixedpoint.Fp{}, err
	}

	pos, err := e.ensurePosition(user)
	if err != nil {
		return fixedpoint.Fp{}, err
	}
	if pos.Shares, err = fixedpoint.Add(pos.Shares, mintedShares); err != nil {
		return fixedpoint.Fp{}, err
	}

	if reserve.TotalLiquidity, err = fixedpoint.Add(reserve.TotalLiquidity, amount); err != nil {
		return fixedpoint.Fp{}, err
	}
	if reserve.TotalShares, err = fixedpoint.Add(reserve.TotalShares, mintedShares); err != nil {
		return fixedpoint.Fp{}, err
	}

	if err := e.state.PutReserve(e.poolID, reserve); err != nil {
		return fixedpoint.Fp{}, err
	}
	if err := e.state.PutPosition(e.poolID, pos); err != nil {
		return fixedpoint.Fp{}, err
	}
	return mintedShares, nil
}

// Withdraw burns shares_in = ceil(amount * total_shares / underlying) and
// transfers amount back to the supplier, failing InsufficientBalance if the
// user does not hold enough shares or InsufficientLiquidity if the pool
// lacks the cash (spec §4.5's withdraw operation).
func (e *Engine) doWithdraw(user address.Address, amount fixedpoint.Fp) (fixedpoint.Fp, error) {
	if amount.Sign() <= 0 {
		return fixedpoint.Fp{}, ErrInvalidArgument
	}
	cfg, err := e.ensureConfig()
	if err != nil {
		return fixedpoint.Fp{}, err
	}
	if cfg.Paused {
		return fixedpoint.Fp{}, ErrPoolPaused
	}
	reserve, err := e.ensureReserve()
	if err != nil {
		return fixedpoint.Fp{}, err
	}
	if err := e.accrue(reserve, cfg); err != nil {
		return fixedpoint.Fp{}, err
	}
	if reserve.TotalShares.Sign() == 0 {
		return fixedpoint.Fp{}, ErrInsufficientLiquidity
	}

	underlying, err := reserve.UnderlyingSupplied()
	if err != nil {
		return fixedpoint.Fp{}, err
	}

	sharesIn, err := fixedpoint.MulDivUp(amount, reserve.TotalShares, underlying)
	if err != nil {
		return fixedpoint.Fp{}, err
	}

	pos, err := e.ensurePosition(user)
	if err != nil {
		return fixedpoint.Fp{}, err
	}
	if pos.Shares.Cmp(sharesIn) < 0 {
		return fixedpoint.Fp{}, ErrInsufficientBalance
	}
	if reserve.TotalLiquidity.Cmp(amount) < 0 {
		return fixedpoint.Fp{}, ErrInsufficientLiquidity
	}

	if err := e.tokens.Transfer(cfg.BorrowAsset, e.poolAddress, user, amount); err != nil {
		return fixedpoint.Fp{}, err
	}

	if pos.Shares, err = fixedpoint.Sub(pos.Shares, sharesIn); err != nil {
		return fixedpoint.Fp{}, err
	}
	if reserve.TotalShares, err = fixedpoint.Sub(reserve.TotalShares, sharesIn); err != nil {
		return fixedpoint.Fp{}, err
	}
	if reserve.TotalLiquidity, err = fixedpoint.Sub(reserve.TotalLiquidity, amount); err != nil {
		return fixedpoint.Fp{}, err
	}

	if err := e.state.PutReserve(e.poolID, reserve); err != nil {
		return fixedpoint.Fp{}, err
	}
	if err := e.state.PutPosition(e.poolID, pos); err != nil {
		return fixedpoint.Fp{}, err
	}
	return amount, nil
}

// DepositCollateral locks amount of the pool's collateral asset for user.
// It never re-checks health, since adding collateral can only improve it.
func (e *Engine) doDepositCollateral(user address.Address, amount fixedpoint.Fp) error {
	if amount.Sign() <= 0 {
		return ErrInvalidArgument
	}
	cfg, err := e.ensureConfig()
	if err != nil {
		return err
	}
	if cfg.Paused {
		return ErrPoolPaused
	}
	if err := e.tokens.Transfer(cfg.CollateralAsset, user, e.collateralAddress, amount); err != nil {
		return err
	}
	pos, err := e.ensurePosition(user)
	if err != nil {
		return err
	}
	if pos.CollateralAmount, err = fixedpoint.Add(pos.CollateralAmount, amount); err != nil {
		return err
	}
	return e.state.PutPosition(e.poolID, pos)
}

// WithdrawCollateral releases amount of collateral back to user, then
// enforces health_factor(user) >= S (spec §4.5's withdraw_collateral
// operation).
func (e *Engine) doWithdrawCollateral(user address.Address, amount fixedpoint.Fp) error {
	if amount.Sign() <= 0 {
		return ErrInvalidArgument
	}
	cfg, err := e.ensureConfig()
	if err != nil {
		return err
	}
	if cfg.Paused {
		return ErrPoolPaused
	}
	reserve, err := e.ensureReserve()
	if err != nil {
		return err
	}
	if err := e.accrue(reserve, cfg); err != nil {
		return err
	}
	pos, err := e.ensurePosition(user)
	if err != nil {
		return err
	}
	if pos.CollateralAmount.Cmp(amount) < 0 {
		return ErrInsufficientCollateral
	}

	remaining, err := fixedpoint.Sub(pos.CollateralAmount, amount)
	if err != nil {
		return err
	}
	projected := &UserPosition{Owner: pos.Owner, Shares: pos.Shares, DebtPrincipal: pos.DebtPrincipal, CollateralAmount: remaining}
	hf, err := e.healthFactor(projected, reserve, cfg)
	if err != nil {
		return err
	}
	if !isHealthy(hf) {
		return ErrHealthFactorViolation
	}

	if err := e.tokens.Transfer(cfg.CollateralAsset, e.collateralAddress, user, amount); err != nil {
		return err
	}
	pos.CollateralAmount = remaining
	if err := e.state.PutReserve(e.poolID, reserve); err != nil {
		return err
	}
	return e.state.PutPosition(e.poolID, pos)
}

// Borrow draws amount of the borrow asset against user's collateral,
// failing InsufficientLiquidity if the pool lacks the cash or LtvExceeded
// if the resulting debt would exceed ltv * collateral_value (spec §4.5's
// borrow operation).
func (e *Engine) doBorrow(user address.Address, amount fixedpoint.Fp) error {
	if amount.Sign() <= 0 {
		return ErrInvalidArgument
	}
	cfg, err := e.ensureConfig()
	if err != nil {
		return err
	}
	if cfg.Paused {
		return ErrPoolPaused
	}
	reserve, err := e.ensureReserve()
	if err != nil {
		return err
	}
	if err := e.accrue(reserve, cfg); err != nil {
		return err
	}
	if reserve.TotalLiquidity.Cmp(amount) < 0 {
		return ErrInsufficientLiquidity
	}

	pos, err := e.ensurePosition(user)
	if err != nil {
		return err
	}

	scaledIncrement, err := fixedpoint.MulDivUp(amount, fixedpoint.One(), reserve.BorrowIndex)
	if err != nil {
		return err
	}
	projectedPrincipal, err := fixedpoint.Add(pos.DebtPrincipal, scaledIncrement)
	if err != nil {
		return err
	}
	projected := &UserPosition{Owner: pos.Owner, Shares: pos.Shares, DebtPrincipal: projectedPrincipal, CollateralAmount: pos.CollateralAmount}

	collateralPrice, err := e.prices.GetPrice(cfg.CollateralAsset)
	if err != nil {
		return ErrPriceMissing
	}
	borrowPrice, err := e.prices.GetPrice(cfg.BorrowAsset)
	if err != nil {
		return ErrPriceMissing
	}
	projectedOwed, err := owed(projected, reserve)
	if err != nil {
		return err
	}
	debtValue, err := fixedpoint.Mul(projectedOwed, borrowPrice)
	if err != nil {
		return err
	}
	collateralValue, err := fixedpoint.Mul(pos.CollateralAmount, collateralPrice)
	if err != nil {
		return err
	}
	ceiling, err := fixedpoint.Mul(cfg.LTV, collateralValue)
	if err != nil {
		return err
	}
	if debtValue.Cmp(ceiling) > 0 {
		return ErrLtvExceeded
	}

	if err := e.tokens.Transfer(cfg.BorrowAsset, e.poolAddress, user, amount); err != nil {
		return err
	}

	pos.DebtPrincipal = projectedPrincipal
	if reserve.TotalDebt, err = fixedpoint.Add(reserve.TotalDebt, amount); err != nil {
		return err
	}
	if reserve.TotalLiquidity, err = fixedpoint.Sub(reserve.TotalLiquidity, amount); err != nil {
		return err
	}

	if err := e.state.PutReserve(e.poolID, reserve); err != nil {
		return err
	}
	return e.state.PutPosition(e.poolID, pos)
}

// Repay transfers min(amount, owed(user)) from user to the pool and reduces
// their debt by the same amount; the surplus above owed is never taken
// (spec §4.5's repay operation). It returns the amount actually repaid.
func (e *Engine) doRepay(user address.Address, amount fixedpoint.Fp) (fixedpoint.Fp, error) {
	if amount.Sign() <= 0 {
		return fixedpoint.Fp{}, ErrInvalidArgument
	}
	cfg, err := e.ensureConfig()
	if err != nil {
		return fixedpoint.Fp{}, err
	}
	if cfg.Paused {
		return fixedpoint.Fp{}, ErrPoolPaused
	}
	reserve, err := e.ensureReserve()
	if err != nil {
		return fixedpoint.Fp{}, err
	}
	if err := e.accrue(reserve, cfg); err != nil {
		return fixedpoint.Fp{}, err
	}
	pos, err := e.ensurePosition(user)
	if err != nil {
		return fixedpoint.Fp{}, err
	}

	owedAmount, err := owed(pos, reserve)
	if err != nil {
		return fixedpoint.Fp{}, err
	}
	actual := fixedpoint.Min(amount, owedAmount)

	if err := e.applyRepay(reserve, pos, actual); err != nil {
		return fixedpoint.Fp{}, err
	}

	if err := e.tokens.Transfer(cfg.BorrowAsset, user, e.poolAddress, actual); err != nil {
		return fixedpoint.Fp{}, err
	}

	if err := e.state.PutReserve(e.poolID, reserve); err != nil {
		return fixedpoint.Fp{}, err
	}
	if err := e.state.PutPosition(e.poolID, pos); err != nil {
		return fixedpoint.Fp{}, err
	}
	return actual, nil
}

// applyRepay decrements reserve.TotalDebt and pos.DebtPrincipal for a
// principal repayment of actual, rounding the principal burn down so any
// rounding dust favors the pool over the borrower.
func (e *Engine) applyRepay(reserve *Reserve, pos *UserPosition, actual fixedpoint.Fp) error {
	if actual.Sign() == 0 {
		return nil
	}
	principalBurn, err := fixedpoint.MulDivDown(actual, fixedpoint.One(), reserve.BorrowIndex)
	if err != nil {
		return err
	}
	if principalBurn.Cmp(pos.DebtPrincipal) > 0 {
		principalBurn = pos.DebtPrincipal
	}
	if pos.DebtPrincipal, err = fixedpoint.Sub(pos.DebtPrincipal, principalBurn); err != nil {
		return err
	}
	if reserve.TotalDebt, err = fixedpoint.Sub(reserve.TotalDebt, actual); err != nil {
		return err
	}
	if reserve.TotalDebt.Sign() < 0 {
		reserve.TotalDebt = fixedpoint.Zero()
	}
	return nil
}

// Liquidate allows liquidator to repay up to close_factor * owed(borrower)
// of the borrower's debt in exchange for discounted collateral, following
// spec §4.5's liquidate operation and its cap-and-back-solve seizure rule
// (Design Note iii): seizure is capped at the borrower's remaining
// collateral and actual_repay is solved downward rather than silently
// dropping the liquidation bonus.
func (e *Engine) doLiquidate(liquidator, borrower address.Address, repayAmount fixedpoint.Fp) (fixedpoint.Fp, fixedpoint.Fp, error) {
	if repayAmount.Sign() <= 0 {
		return fixedpoint.Fp{}, fixedpoint.Fp{}, ErrInvalidArgument
	}
	cfg, err := e.ensureConfig()
	if err != nil {
		return fixedpoint.Fp{}, fixedpoint.Fp{}, err
	}
	if cfg.Paused {
		return fixedpoint.Fp{}, fixedpoint.Fp{}, ErrPoolPaused
	}
	reserve, err := e.ensureReserve()
	if err != nil {
		return fixedpoint.Fp{}, fixedpoint.Fp{}, err
	}
	if err := e.accrue(reserve, cfg); err != nil {
		return fixedpoint.Fp{}, fixedpoint.Fp{}, err
	}
	pos, err := e.ensurePosition(borrower)
	if err != nil {
		return fixedpoint.Fp{}, fixedpoint.Fp{}, err
	}

	hf, err := e.healthFactor(pos, reserve, cfg)
	if err != nil {
		return fixedpoint.Fp{}, fixedpoint.Fp{}, err
	}
	if isHealthy(hf) {
		return fixedpoint.Fp{}, fixedpoint.Fp{}, ErrPositionHealthy
	}

	owedAmount, err := owed(pos, reserve)
	if err != nil {
		return fixedpoint.Fp{}, fixedpoint.Fp{}, err
	}
	maxRepay, err := fixedpoint.Mul(cfg.CloseFactor, owedAmount)
	if err != nil {
		return fixedpoint.Fp{}, fixedpoint.Fp{}, err
	}
	actualRepay := fixedpoint.Min(repayAmount, maxRepay)

	collateralPrice, err := e.prices.GetPrice(cfg.CollateralAsset)
	if err != nil {
		return fixedpoint.Fp{}, fixedpoint.Fp{}, ErrPriceMissing
	}
	borrowPrice, err := e.prices.GetPrice(cfg.BorrowAsset)
	if err != nil {
		return fixedpoint.Fp{}, fixedpoint.Fp{}, ErrPriceMissing
	}

	bonusFactor, err := fixedpoint.Add(fixedpoint.One(), cfg.LiquidationBonus)
	if err != nil {
		return fixedpoint.Fp{}, fixedpoint.Fp{}, err
	}

	seized, err := seizeAmount(actualRepay, borrowPrice, bonusFactor, collateralPrice)
	if err != nil {
		return fixedpoint.Fp{}, fixedpoint.Fp{}, err
	}

	if seized.Cmp(pos.CollateralAmount) > 0 {
		// Cap the seizure at the borrower's remaining collateral and
		// back-solve actual_repay downward so the bonus is honored exactly
		// rather than silently dropped (Design Note iii).
		seized = pos.CollateralAmount
		actualRepay, err = backSolveRepay(seized, collateralPrice, bonusFactor, borrowPrice)
		if err != nil {
			return fixedpoint.Fp{}, fixedpoint.Fp{}, err
		}
		if actualRepay.Cmp(owedAmount) > 0 {
			actualRepay = owedAmount
		}
	}

	if err := e.applyRepay(reserve, pos, actualRepay); err != nil {
		return fixedpoint.Fp{}, fixedpoint.Fp{}, err
	}
	if pos.CollateralAmount, err = fixedpoint.Sub(pos.CollateralAmount, seized); err != nil {
		return fixedpoint.Fp{}, fixedpoint.Fp{}, err
	}

	if err := e.tokens.Transfer(cfg.BorrowAsset, liquidator, e.poolAddress, actualRepay); err != nil {
		return fixedpoint.Fp{}, fixedpoint.Fp{}, err
	}
	if err := e.tokens.Transfer(cfg.CollateralAsset, e.collateralAddress, liquidator, seized); err != nil {
		return fixedpoint.Fp{}, fixedpoint.Fp{}, err
	}

	if err := e.state.PutReserve(e.poolID, reserve); err != nil {
		return fixedpoint.Fp{}, fixedpoint.Fp{}, err
	}
	if err := e.state.PutPosition(e.poolID, pos); err != nil {
		return fixedpoint.Fp{}, fixedpoint.Fp{}, err
	}
	return actualRepay, seized, nil
}

// seizeAmount computes ceil(repay * repayPrice * bonusFactor /
// (collateralPrice * S)), rounded up for the liquidator's benefit per spec
// §4.5 step 3.
func seizeAmount(repay, repayPrice, bonusFactor, collateralPrice fixedpoint.Fp) (fixedpoint.Fp, error) {
	numerator, err := fixedpoint.MulUp(repay, repayPrice)
	if err != nil {
		return fixedpoint.Fp{}, err
	}
	numerator, err = fixedpoint.MulUp(numerator, bonusFactor)
	if err != nil {
		return fixedpoint.Fp{}, err
	}
	return fixedpoint.DivUp(numerator, collateralPrice)
}

// backSolveRepay inverts seizeAmount to find the actual_repay that exhausts
// the available collateral seizure. It uses the rounding-down Mul/Div
// helpers throughout, so any rounding dust lowers the repay the liquidator
// pays for the capped seizure rather than raising it.
func backSolveRepay(seized, collateralPrice, bonusFactor, repayPrice fixedpoint.Fp) (fixedpoint.Fp, error) {
	numerator, err := fixedpoint.Mul(seized, collateralPrice)
	if err != nil {
		return fixedpoint.Fp{}, err
	}
	denom, err := fixedpoint.Mul(bonusFactor, repayPrice)
	if err != nil {
		return fixedpoint.Fp{}, err
	}
	return fixedpoint.Div(numerator, denom)
}

// doSetPaused flips the pool's circuit breaker. Only the address named as
// cfg.Admin at Initialize may call it.
func (e *Engine) doSetPaused(caller address.Address, paused bool) error {
	cfg, err := e.ensureConfig()
	if err != nil {
		return err
	}
	if !caller.Equal(cfg.Admin) {
		return ErrUnauthorized
	}
	cfg.Paused = paused
	return e.state.PutConfig(e.poolID, cfg)
}

// SetPaused is the public entry point for the admin circuit breaker: it
// halts (or resumes) every other mutating operation against this pool.
func (e *Engine) SetPaused(caller address.Address, paused bool) error {
	err := e.doSetPaused(caller, paused)
	e.observe("set_paused", caller, err)
	return err
}

// Supply is the public entry point for the supply operation; it records the
// outcome to the engine's logger and metrics sink around doSupply.
func (e *Engine) Supply(user address.Address, amount fixedpoint.Fp) (fixedpoint.Fp, error) {
	shares, err := e.doSupply(user, amount)
	e.observe("supply", user, err)
	return shares, err
}

// Withdraw is the public entry point for the withdraw operation.
func (e *Engine) Withdraw(user address.Address, amount fixedpoint.Fp) (fixedpoint.Fp, error) {
	out, err := e.doWithdraw(user, amount)
	e.observe("withdraw", user, err)
	return out, err
}

// DepositCollateral is the public entry point for the deposit_collateral
// operation.
func (e *Engine) DepositCollateral(user address.Address, amount fixedpoint.Fp) error {
	err := e.doDepositCollateral(user, amount)
	e.observe("deposit_collateral", user, err)
	return err
}

// WithdrawCollateral is the public entry point for the withdraw_collateral
// operation.
func (e *Engine) WithdrawCollateral(user address.Address, amount fixedpoint.Fp) error {
	err := e.doWithdrawCollateral(user, amount)
	e.observe("withdraw_collateral", user, err)
	return err
}

// Borrow is the public entry point for the borrow operation.
func (e *Engine) Borrow(user address.Address, amount fixedpoint.Fp) error {
	err := e.doBorrow(user, amount)
	e.observe("borrow", user, err)
	return err
}

// Repay is the public entry point for the repay operation.
func (e *Engine) Repay(user address.Address, amount fixedpoint.Fp) (fixedpoint.Fp, error) {
	out, err := e.doRepay(user, amount)
	e.observe("repay", user, err)
	return out, err
}

// Liquidate is the public entry point for the liquidate operation. Logging
// and metrics are attributed to the borrower, the account the operation
// acts on; the liquidator is an implicit caller, not the subject.
func (e *Engine) Liquidate(liquidator, borrower address.Address, repayAmount fixedpoint.Fp) (fixedpoint.Fp, fixedpoint.Fp, error) {
	actualRepay, seized, err := e.doLiquidate(liquidator, borrower, repayAmount)
	e.observe("liquidate", borrower, err)
	return actualRepay, seized, err
}
