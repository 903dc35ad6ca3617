package lending

import (
	"testing"

	"lendingpool/address"
	"lendingpool/fixedpoint"
)

func setUpBorrowerAtPrices(t *testing.T, collateralPrice, borrowPrice fixedpoint.Fp) (*testHarness, address.Address) {
	t.Helper()
	admin := makeAddress(address.UserPrefix, 0x12)
	h := newTestHarness(t, defaultTestConfig(admin))
	h.prices.Set(testCollateralAsset, fixedpoint.One())
	h.prices.Set(testBorrowAsset, fixedpoint.One())

	supplier := makeAddress(address.UserPrefix, 0x22)
	h.tokens.Fund(testBorrowAsset, supplier, fixedpoint.FromInt64(1000))
	h.engine.SetTime(0)
	if _, err := h.engine.Supply(supplier, fixedpoint.FromInt64(1000)); err != nil {
		t.Fatalf("Supply: %v", err)
	}

	borrower := makeAddress(address.UserPrefix, 0x32)
	h.tokens.Fund(testCollateralAsset, borrower, fixedpoint.FromInt64(100))
	if err := h.engine.DepositCollateral(borrower, fixedpoint.FromInt64(100)); err != nil {
		t.Fatalf("DepositCollateral: %v", err)
	}
	if err := h.engine.Borrow(borrower, fixedpoint.FromInt64(75)); err != nil {
		t.Fatalf("Borrow: %v", err)
	}

	// Collapse the collateral price after the borrow to push the position
	// underwater without touching the debt side.
	h.prices.Set(testCollateralAsset, collateralPrice)
	h.prices.Set(testBorrowAsset, borrowPrice)
	return h, borrower
}

func TestLiquidateRejectsHealthyPosition(t *testing.T) {
	admin := makeAddress(address.UserPrefix, 0x13)
	h := newTestHarness(t, defaultTestConfig(admin))
	h.prices.Set(testCollateralAsset, fixedpoint.One())
	h.prices.Set(testBorrowAsset, fixedpoint.One())

	supplier := makeAddress(address.UserPrefix, 0x23)
	h.tokens.Fund(testBorrowAsset, supplier, fixedpoint.FromInt64(1000))
	h.engine.SetTime(0)
	if _, err := h.engine.Supply(supplier, fixedpoint.FromInt64(1000)); err != nil {
		t.Fatalf("Supply: %v", err)
	}

	borrower := makeAddress(address.UserPrefix, 0x33)
	h.tokens.Fund(testCollateralAsset, borrower, fixedpoint.FromInt64(100))
	if err := h.engine.DepositCollateral(borrower, fixedpoint.FromInt64(100)); err != nil {
		t.Fatalf("DepositCollateral: %v", err)
	}
	if err := h.engine.Borrow(borrower, fixedpoint.FromInt64(50)); err != nil {
		t.Fatalf("Borrow: %v", err)
	}

	liquidator := makeAddress(address.UserPrefix, 0x43)
	h.tokens.Fund(testBorrowAsset, liquidator, fixedpoint.FromInt64(100))
	if _, _, err := h.engine.Liquidate(liquidator, borrower, fixedpoint.FromInt64(10)); err == nil {
		t.Fatalf("expected ErrPositionHealthy")
	}
}

func TestLiquidateSeizesDiscountedCollateralUpToCloseFactor(t *testing.T) {
	h, borrower := setUpBorrowerAtPrices(t, fixedpoint.FromUnits(7_000_000), fixedpoint.One())

	hf, err := h.engine.HealthFactor(borrower)
	if err != nil {
		t.Fatalf("HealthFactor: %v", err)
	}
	if isHealthy(hf) {
		t.Fatalf("expected position to be underwater after the collateral price drop, hf=%s", hf)
	}

	liquidator := makeAddress(address.UserPrefix, 0x44)
	h.tokens.Fund(testBorrowAsset, liquidator, fixedpoint.FromInt64(100))

	actualRepay, seized, err := h.engine.Liquidate(liquidator, borrower, fixedpoint.FromInt64(100))
	if err != nil {
		t.Fatalf("Liquidate: %v", err)
	}

	// close_factor is 50%, so at most half of the 75-unit debt (37.5) can be
	// repaid in one call regardless of how much the liquidator offers.
	maxRepay := fixedpoint.FromUnits(375_000_000)
	if actualRepay.Cmp(maxRepay) > 0 {
		t.Fatalf("expected actual_repay to respect the close factor cap, got %s", actualRepay)
	}
	if seized.Sign() <= 0 {
		t.Fatalf("expected a positive seizure amount")
	}

	remaining, err := h.engine.GetUserCollateral(borrower)
	if err != nil {
		t.Fatalf("GetUserCollateral: %v", err)
	}
	if remaining.Cmp(fixedpoint.FromInt64(100)) >= 0 {
		t.Fatalf("expected collateral to shrink after seizure, got %s", remaining)
	}
}

func TestLiquidateCapsSeizureAtAvailableCollateralAndBackSolvesRepay(t *testing.T) {
	// A severe enough collateral collapse makes the bonus-inflated seizure
	// exceed what the borrower has left; the engine must cap the seizure at
	// the borrower's full collateral balance and solve actual_repay downward
	// rather than seizing more than exists.
	h, borrower := setUpBorrowerAtPrices(t, fixedpoint.FromUnits(1_000_000), fixedpoint.One())

	liquidator := makeAddress(address.UserPrefix, 0x45)
	h.tokens.Fund(testBorrowAsset, liquidator, fixedpoint.FromInt64(100))

	actualRepay, seized, err := h.engine.Liquidate(liquidator, borrower, fixedpoint.FromInt64(100))
	if err != nil {
		t.Fatalf("Liquidate: %v", err)
	}

	remaining, err := h.engine.GetUserCollateral(borrower)
	if err != nil {
		t.Fatalf("GetUserCollateral: %v", err)
	}
	if remaining.Sign() != 0 {
		t.Fatalf("expected the full collateral balance to be seized, %s left", remaining)
	}
	if seized.Cmp(fixedpoint.FromInt64(100)) != 0 {
		t.Fatalf("expected seized to equal the borrower's entire collateral balance, got %s", seized)
	}
	if actualRepay.Sign() <= 0 {
		t.Fatalf("expected a positive back-solved repay amount")
	}
}
