package lending

import (
	"testing"

	"lendingpool/address"
	"lendingpool/fixedpoint"
)

type mockEngineState struct {
	configs   map[string]*GlobalConfig
	reserves  map[string]*Reserve
	positions map[string]*UserPosition
}

func newMockEngineState() *mockEngineState {
	return &mockEngineState{
		configs:   make(map[string]*GlobalConfig),
		reserves:  make(map[string]*Reserve),
		positions: make(map[string]*UserPosition),
	}
}

func (m *mockEngineState) key(poolID string, who address.Address) string {
	return poolID + "/" + who.String()
}

func (m *mockEngineState) GetConfig(poolID string) (*GlobalConfig, error) {
	return m.configs[poolID], nil
}

func (m *mockEngineState) PutConfig(poolID string, cfg *GlobalConfig) error {
	m.configs[poolID] = cfg
	return nil
}

func (m *mockEngineState) GetReserve(poolID string) (*Reserve, error) {
	return m.reserves[poolID], nil
}

func (m *mockEngineState) PutReserve(poolID string, r *Reserve) error {
	m.reserves[poolID] = r
	return nil
}

func (m *mockEngineState) GetPosition(poolID string, who address.Address) (*UserPosition, error) {
	return m.positions[m.key(poolID, who)], nil
}

func (m *mockEngineState) PutPosition(poolID string, pos *UserPosition) error {
	m.positions[m.key(poolID, pos.Owner)] = pos
	return nil
}

type mockTokenLedger struct {
	balances map[string]map[string]fixedpoint.Fp
}

func newMockTokenLedger() *mockTokenLedger {
	return &mockTokenLedger{balances: make(map[string]map[string]fixedpoint.Fp)}
}

func (m *mockTokenLedger) Fund(asset string, who address.Address, amount fixedpoint.Fp) {
	assetBalances, ok := m.balances[asset]
	if !ok {
		assetBalances = make(map[string]fixedpoint.Fp)
		m.balances[asset] = assetBalances
	}
	assetBalances[who.String()] = amount
}

func (m *mockTokenLedger) Balance(asset string, who address.Address) (fixedpoint.Fp, error) {
	assetBalances, ok := m.balances[asset]
	if !ok {
		return fixedpoint.Zero(), nil
	}
	bal, ok := assetBalances[who.String()]
	if !ok {
		return fixedpoint.Zero(), nil
	}
	return bal, nil
}

func (m *mockTokenLedger) Transfer(asset string, from, to address.Address, amount fixedpoint.Fp) error {
	fromBal, err := m.Balance(asset, from)
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	toBal, err := m.Balance(asset, to)
	if err != nil {
		return err
	}
	newFrom, err := fixedpoint.Sub(fromBal, amount)
	if err != nil {
		return err
	}
	newTo, err := fixedpoint.Add(toBal, amount)
	if err != nil {
		return err
	}
	m.Fund(asset, from, newFrom)
	m.Fund(asset, to, newTo)
	return nil
}

type mockPriceSource struct {
	prices map[string]fixedpoint.Fp
}

func newMockPriceSource() *mockPriceSource {
	return &mockPriceSource{prices: make(map[string]fixedpoint.Fp)}
}

func (m *mockPriceSource) Set(asset string, price fixedpoint.Fp) { m.prices[asset] = price }

func (m *mockPriceSource) GetPrice(asset string) (fixedpoint.Fp, error) {
	price, ok := m.prices[asset]
	if !ok {
		return fixedpoint.Fp{}, ErrPriceMissing
	}
	return price, nil
}

func makeAddress(prefix address.Prefix, suffix byte) address.Address {
	raw := make([]byte, 20)
	raw[19] = suffix
	addr, err := address.New(prefix, raw)
	if err != nil {
		panic(err)
	}
	return addr
}

const (
	testCollateralAsset = "XLM"
	testBorrowAsset     = "USDX"
)

type testHarness struct {
	engine *Engine
	state  *mockEngineState
	tokens *mockTokenLedger
	prices *mockPriceSource
}

func newTestHarness(t *testing.T, cfg GlobalConfig) *testHarness {
	t.Helper()
	poolAddr := makeAddress(address.ModulePrefix, 0x01)
	collateralAddr := makeAddress(address.ModulePrefix, 0x02)

	engine := NewEngine(poolAddr, collateralAddr)
	state := newMockEngineState()
	tokens := newMockTokenLedger()
	prices := newMockPriceSource()

	engine.SetState(state)
	engine.SetTokens(tokens)
	engine.SetPriceSource(prices)
	engine.SetPoolID("default")

	if err := engine.Initialize(cfg); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return &testHarness{engine: engine, state: state, tokens: tokens, prices: prices}
}

func defaultTestConfig(admin address.Address) GlobalConfig {
	return DefaultGlobalConfig(admin, testCollateralAsset, testBorrowAsset)
}

func TestInitializeRejectsDoubleInitialization(t *testing.T) {
	admin := makeAddress(address.UserPrefix, 0x10)
	h := newTestHarness(t, defaultTestConfig(admin))

	if err := h.engine.Initialize(defaultTestConfig(admin)); err == nil {
		t.Fatalf("expected ErrAlreadyInitialized")
	}
}

func TestSupplyFirstDepositorMintsOneToOne(t *testing.T) {
	admin := makeAddress(address.UserPrefix, 0x10)
	h := newTestHarness(t, defaultTestConfig(admin))
	supplier := makeAddress(address.UserPrefix, 0x20)
	h.tokens.Fund(testBorrowAsset, supplier, fixedpoint.FromInt64(1000))

	h.engine.SetTime(1_000)
	shares, err := h.engine.Supply(supplier, fixedpoint.FromInt64(100))
	if err != nil {
		t.Fatalf("Supply: %v", err)
	}
	if shares.Cmp(fixedpoint.FromInt64(100)) != 0 {
		t.Fatalf("expected 1:1 shares on first deposit, got %s", shares)
	}
}

func TestBorrowBlockedByLtvCeiling(t *testing.T) {
	admin := makeAddress(address.UserPrefix, 0x10)
	h := newTestHarness(t, defaultTestConfig(admin))
	h.prices.Set(testCollateralAsset, fixedpoint.One())
	h.prices.Set(testBorrowAsset, fixedpoint.One())

	supplier := makeAddress(address.UserPrefix, 0x20)
	h.tokens.Fund(testBorrowAsset, supplier, fixedpoint.FromInt64(1000))
	h.engine.SetTime(1_000)
	if _, err := h.engine.Supply(supplier, fixedpoint.FromInt64(1000)); err != nil {
		t.Fatalf("Supply: %v", err)
	}

	borrower := makeAddress(address.UserPrefix, 0x30)
	h.tokens.Fund(testCollateralAsset, borrower, fixedpoint.FromInt64(100))
	if err := h.engine.DepositCollateral(borrower, fixedpoint.FromInt64(100)); err != nil {
		t.Fatalf("DepositCollateral: %v", err)
	}

	// LTV is 75%, so borrowing more than 75 units against 100 units of
	// collateral at parity prices must fail.
	if err := h.engine.Borrow(borrower, fixedpoint.FromInt64(76)); err == nil {
		t.Fatalf("expected ErrLtvExceeded")
	}
	if err := h.engine.Borrow(borrower, fixedpoint.FromInt64(75)); err != nil {
		t.Fatalf("expected borrow at exactly the LTV ceiling to succeed, got %v", err)
	}
}

func TestHealthFactorInfiniteWithoutDebt(t *testing.T) {
	admin := makeAddress(address.UserPrefix, 0x10)
	h := newTestHarness(t, defaultTestConfig(admin))
	user := makeAddress(address.UserPrefix, 0x40)

	hf, err := h.engine.HealthFactor(user)
	if err != nil {
		t.Fatalf("HealthFactor: %v", err)
	}
	if hf.Cmp(fixedpoint.Infinity()) != 0 {
		t.Fatalf("expected +infinity sentinel, got %s", hf)
	}
}

func TestWithdrawCollateralBlockedByHealthFactorViolation(t *testing.T) {
	admin := makeAddress(address.UserPrefix, 0x10)
	h := newTestHarness(t, defaultTestConfig(admin))
	h.prices.Set(testCollateralAsset, fixedpoint.One())
	h.prices.Set(testBorrowAsset, fixedpoint.One())

	supplier := makeAddress(address.UserPrefix, 0x20)
	h.tokens.Fund(testBorrowAsset, supplier, fixedpoint.FromInt64(1000))
	h.engine.SetTime(1_000)
	if _, err := h.engine.Supply(supplier, fixedpoint.FromInt64(1000)); err != nil {
		t.Fatalf("Supply: %v", err)
	}

	borrower := makeAddress(address.UserPrefix, 0x30)
	h.tokens.Fund(testCollateralAsset, borrower, fixedpoint.FromInt64(100))
	if err := h.engine.DepositCollateral(borrower, fixedpoint.FromInt64(100)); err != nil {
		t.Fatalf("DepositCollateral: %v", err)
	}
	if err := h.engine.Borrow(borrower, fixedpoint.FromInt64(70)); err != nil {
		t.Fatalf("Borrow: %v", err)
	}

	if err := h.engine.WithdrawCollateral(borrower, fixedpoint.FromInt64(20)); err == nil {
		t.Fatalf("expected ErrHealthFactorViolation")
	}
}
