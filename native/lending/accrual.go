package lending

import (
	"lendingpool/fixedpoint"
	"lendingpool/ratemodel"
)

// SecondsPerYear is the simple-interest denominator spec §4.4 fixes.
// Simple interest over compounding is a deliberate determinism/cost
// trade-off (Design Note ii): callers comparing against a compounding model
// will see small, expected discrepancies.
const SecondsPerYear = 31_536_000

// Accrue advances r's indices from r.LastUpdateTime to now, following spec
// §4.4 step by step. It is idempotent at a fixed timestamp: calling it twice
// with the same now is a no-op the second time because Δt collapses to zero.
func Accrue(r *Reserve, now int64, model *ratemodel.Model, reserveFactor fixedpoint.Fp) error {
	if now < r.LastUpdateTime {
		now = r.LastUpdateTime
	}
	deltaT := now - r.LastUpdateTime
	if deltaT == 0 || r.TotalDebt.Sign() == 0 {
		r.LastUpdateTime = now
		return nil
	}

	denom, err := fixedpoint.Add(r.TotalLiquidity, r.TotalDebt)
	if err != nil {
		return err
	}
	if denom.Sign() == 0 {
		r.LastUpdateTime = now
		return nil
	}

	scaleFp := fixedpoint.FromUnits(fixedpoint.Scale)

	// 1. U := total_debt * S / (total_liquidity + total_debt).
	utilization, err := fixedpoint.MulDivDown(r.TotalDebt, scaleFp, denom)
	if err != nil {
		return err
	}

	// 2. R_b := borrow_rate(U).
	borrowRate, err := model.BorrowRate(utilization)
	if err != nil {
		return err
	}

	// 3. factor := S + R_b * Δt / SECONDS_PER_YEAR, rounded up (debt side).
	rateOverInterval, err := fixedpoint.MulDivUp(borrowRate, fixedpoint.FromUnits(deltaT), fixedpoint.FromUnits(SecondsPerYear))
	if err != nil {
		return err
	}
	factor, err := fixedpoint.Add(scaleFp, rateOverInterval)
	if err != nil {
		return err
	}

	// 4. new_borrow_index := borrow_index * factor / S, rounded up.
	newBorrowIndex, err := fixedpoint.MulDivUp(r.BorrowIndex, factor, scaleFp)
	if err != nil {
		return err
	}

	// 5. interest := total_debt * (new_borrow_index - borrow_index) /
	//    borrow_index, rounded up.
	indexDelta, err := fixedpoint.Sub(newBorrowIndex, r.BorrowIndex)
	if err != nil {
		return err
	}
	interest, err := fixedpoint.MulDivUp(r.TotalDebt, indexDelta, r.BorrowIndex)
	if err != nil {
		return err
	}

	r.BorrowIndex = newBorrowIndex

	if interest.Sign() > 0 {
		// 6. reserve_cut := interest * reserve_factor / S, rounded down.
		reserveCut, err := fixedpoint.MulDivDown(interest, reserveFactor, scaleFp)
		if err != nil {
			return err
		}

		// 7. total_debt += interest.
		newTotalDebt, err := fixedpoint.Add(r.TotalDebt, interest)
		if err != nil {
			return err
		}

		// 8. reserve_balance += reserve_cut.
		newReserveBalance, err := fixedpoint.Add(r.ReserveBalance, reserveCut)
		if err != nil {
			return err
		}

		// 9. supplier_gain := interest - reserve_cut; fold into
		//    supply_index so that shares * supply_index / S reflects the
		//    updated per-share underlying value.
		supplierGain, err := fixedpoint.Sub(interest, reserveCut)
		if err != nil {
			return err
		}

		newDenom, err := fixedpoint.Add(r.TotalLiquidity, newTotalDebt)
		if err != nil {
			return err
		}
		if supplierGain.Sign() > 0 && r.TotalShares.Sign() > 0 {
			oldDenom, err := fixedpoint.Sub(newDenom, supplierGain)
			if err != nil {
				return err
			}
			if oldDenom.Sign() > 0 {
				newSupplyIndex, err := fixedpoint.MulDivDown(r.SupplyIndex, newDenom, oldDenom)
				if err != nil {
					return err
				}
				r.SupplyIndex = newSupplyIndex
			}
		}

		r.TotalDebt = newTotalDebt
		r.ReserveBalance = newReserveBalance
	}

	r.LastUpdateTime = now
	return nil
}

// Clone returns a shallow copy of r, used by the engine's read-only query
// methods to run a projected accrual without mutating persisted state. The
// Fp fields share their underlying values with r; this is safe because Accrue
// assigns fresh Fp results and never modifies an existing value in place.
func (r *Reserve) Clone() *Reserve {
	if r == nil {
		return nil
	}
	clone := *r
	return &clone
}
