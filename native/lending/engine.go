package lending

import (
	"log/slog"
	"strings"
	"time"

	"lendingpool/address"
	"lendingpool/fixedpoint"
	"lendingpool/observability"
	"lendingpool/ratemodel"
)

// StateStore is the persistence boundary the engine writes through. It
// stands in for the host ledger's key-value storage (spec §1's explicit
// out-of-scope collaborator): point lookups keyed by pool id and, within a
// pool, by user address, with no iteration required (Design Note "Per-user
// state replacing dynamic collections").
type StateStore interface {
	GetConfig(poolID string) (*GlobalConfig, error)
	PutConfig(poolID string, cfg *GlobalConfig) error
	GetReserve(poolID string) (*Reserve, error)
	PutReserve(poolID string, r *Reserve) error
	GetPosition(poolID string, user address.Address) (*UserPosition, error)
	PutPosition(poolID string, pos *UserPosition) error
}

// TokenLedger is the host ledger's token transfer primitive (spec §6's
// Token collaborator): atomic transfer and a read-only balance check.
type TokenLedger interface {
	Transfer(asset string, from, to address.Address, amount fixedpoint.Fp) error
	Balance(asset string, who address.Address) (fixedpoint.Fp, error)
}

// PriceSource is the collaborator interface the engine reads through; the
// concrete implementation is native/oracle.Oracle but the engine never
// references that package directly, matching Design Note "one-way
// references stored at init".
type PriceSource interface {
	GetPrice(asset string) (fixedpoint.Fp, error)
}

// Engine is the Pool State Machine: it owns no state of its own beyond its
// collaborator references, reading and writing everything through state.
type Engine struct {
	state StateStore
	tokens TokenLedger
	prices PriceSource
	rateModel *ratemodel.Model

	poolAddress       address.Address
	collateralAddress address.Address

	poolID string
	now    int64

	log     *slog.Logger
	metrics *observability.PoolMetrics
}

// NewEngine constructs an engine bound to the pool's two treasury
// addresses: where supplied liquidity (and outbound borrows) settle, and
// where locked collateral escrows.
func NewEngine(poolAddress, collateralAddress address.Address) *Engine {
	return &Engine{poolAddress: poolAddress, collateralAddress: collateralAddress}
}

// SetState wires the engine to its persistence layer.
func (e *Engine) SetState(state StateStore) { e.state = state }

// SetTokens wires the engine to the host ledger's transfer primitive.
func (e *Engine) SetTokens(tokens TokenLedger) { e.tokens = tokens }

// SetPriceSource wires the engine to the price oracle collaborator.
func (e *Engine) SetPriceSource(prices PriceSource) { e.prices = prices }

// SetRateModel wires the engine to the interest rate model collaborator.
func (e *Engine) SetRateModel(model *ratemodel.Model) { e.rateModel = model }

// SetLogger wires a structured logger; operations log at Info on success and
// Warn on failure. A nil logger silently disables operation logging.
func (e *Engine) SetLogger(log *slog.Logger) { e.log = log }

// SetMetrics wires a Prometheus metrics sink; a nil sink silently disables
// metrics recording.
func (e *Engine) SetMetrics(m *observability.PoolMetrics) { e.metrics = m }

// observe records one state-changing operation's outcome to both the
// structured logger and the metrics sink, matching SPEC_FULL.md's ambient
// logging/metrics requirement for every mutating call.
func (e *Engine) observe(operation string, user address.Address, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	if e.metrics != nil {
		e.metrics.ObserveOperation(e.poolID, operation, outcome)
		if err != nil {
			e.metrics.ObserveError(e.poolID, operation, errorKind(err))
		}
	}
	if e.log == nil {
		return
	}
	attrs := []any{"pool_id", e.poolID, "operation", operation, "user", user.String()}
	if err != nil {
		e.log.Warn("lending operation failed", append(attrs, "error", err.Error())...)
		return
	}
	e.log.Info("lending operation succeeded", attrs...)
}

// SetPoolID selects which pool subsequent operations act against.
func (e *Engine) SetPoolID(poolID string) { e.poolID = strings.TrimSpace(poolID) }

// PoolID returns the currently selected pool identifier.
func (e *Engine) PoolID() string { return e.poolID }

// SetTime advances the engine's notion of "now" (seconds since epoch), used
// as the accrual clock. The host ledger is the authority on block/ledger
// time in production; tests drive it directly.
func (e *Engine) SetTime(now int64) { e.now = now }

// Initialize creates a fresh pool configuration. It fails ErrAlreadyInitialized
// if the pool id has already been configured, matching the original
// contract's storage-flag guard.
func (e *Engine) Initialize(cfg GlobalConfig) error {
	if e.state == nil {
		return ErrNotInitialized
	}
	if strings.TrimSpace(e.poolID) == "" {
		return ErrInvalidArgument
	}
	existing, err := e.state.GetConfig(e.poolID)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrAlreadyInitialized
	}
	if strings.TrimSpace(cfg.CollateralAsset) == "" || strings.TrimSpace(cfg.BorrowAsset) == "" {
		return ErrInvalidArgument
	}
	if err := e.state.PutConfig(e.poolID, &cfg); err != nil {
		return err
	}
	return e.state.PutReserve(e.poolID, NewReserve())
}

func (e *Engine) ensureConfig() (*GlobalConfig, error) {
	if e.state == nil {
		return nil, ErrNotInitialized
	}
	if strings.TrimSpace(e.poolID) == "" {
		return nil, ErrInvalidArgument
	}
	cfg, err := e.state.GetConfig(e.poolID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, ErrNotInitialized
	}
	return cfg, nil
}

func (e *Engine) ensureReserve() (*Reserve, error) {
	reserve, err := e.state.GetReserve(e.poolID)
	if err != nil {
		return nil, err
	}
	if reserve == nil {
		return nil, ErrNotInitialized
	}
	return reserve, nil
}

func (e *Engine) ensurePosition(user address.Address) (*UserPosition, error) {
	pos, err := e.state.GetPosition(e.poolID, user)
	if err != nil {
		return nil, err
	}
	if pos == nil {
		pos = NewUserPosition(user)
	}
	return pos, nil
}

func (e *Engine) accrue(reserve *Reserve, cfg *GlobalConfig) error {
	if e.rateModel == nil {
		reserve.LastUpdateTime = e.now
		return nil
	}
	started := time.Now()
	err := Accrue(reserve, e.now, e.rateModel, cfg.ReserveFactor)
	if e.metrics != nil {
		e.metrics.ObserveAccrual(e.poolID, time.Since(started))
	}
	return err
}

// owed returns ceil(pos.DebtPrincipal * reserve.BorrowIndex / S), the
// currently-owed amount including all accrued interest (spec §4.5: debt
// side rounds up).
func owed(pos *UserPosition, reserve *Reserve) (fixedpoint.Fp, error) {
	if pos.DebtPrincipal.Sign() == 0 {
		return fixedpoint.Zero(), nil
	}
	return fixedpoint.MulDivUp(pos.DebtPrincipal, reserve.BorrowIndex, fixedpoint.One())
}

// HealthFactor computes collateral_value * liquidation_threshold /
// (debt_value * S), returning the saturating maximum when the user carries
// no debt (spec §4.5's "+infinity" case).
func (e *Engine) HealthFactor(user address.Address) (fixedpoint.Fp, error) {
	reserve, cfg, err := e.projectedReserve()
	if err != nil {
		return fixedpoint.Fp{}, err
	}
	pos, err := e.ensurePosition(user)
	if err != nil {
		return fixedpoint.Fp{}, err
	}
	return e.healthFactor(pos, reserve, cfg)
}

func (e *Engine) healthFactor(pos *UserPosition, reserve *Reserve, cfg *GlobalConfig) (fixedpoint.Fp, error) {
	owedAmount, err := owed(pos, reserve)
	if err != nil {
		return fixedpoint.Fp{}, err
	}
	if owedAmount.Sign() == 0 {
		return fixedpoint.Infinity(), nil
	}
	collateralPrice, err := e.prices.GetPrice(cfg.CollateralAsset)
	if err != nil {
		return fixedpoint.Fp{}, ErrPriceMissing
	}
	borrowPrice, err := e.prices.GetPrice(cfg.BorrowAsset)
	if err != nil {
		return fixedpoint.Fp{}, ErrPriceMissing
	}
	collateralValue, err := fixedpoint.Mul(pos.CollateralAmount, collateralPrice)
	if err != nil {
		return fixedpoint.Fp{}, err
	}
	debtValue, err := fixedpoint.Mul(owedAmount, borrowPrice)
	if err != nil {
		return fixedpoint.Fp{}, err
	}
	if debtValue.Sign() == 0 {
		return fixedpoint.Infinity(), nil
	}
	numerator, err := fixedpoint.Mul(collateralValue, cfg.LiquidationThreshold)
	if err != nil {
		return fixedpoint.Fp{}, err
	}
	return fixedpoint.Div(numerator, debtValue)
}

func isHealthy(hf fixedpoint.Fp) bool {
	return hf.Cmp(fixedpoint.One()) >= 0
}
