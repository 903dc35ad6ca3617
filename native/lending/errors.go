package lending

import (
	"errors"

	"lendingpool/fixedpoint"
)

// Error kinds from spec §7. Every fallible operation returns one of these
// (wrapped with errors.Is-compatible sentinels), never a bare string or a
// panic — the same discipline the teacher's native/loyalty package uses.
var (
	ErrNotInitialized      = errors.New("lending: pool not initialized")
	ErrAlreadyInitialized  = errors.New("lending: pool already initialized")
	ErrUnauthorized        = errors.New("lending: unauthorized")
	ErrInvalidArgument     = errors.New("lending: invalid argument")
	ErrInsufficientBalance = errors.New("lending: insufficient balance")
	ErrInsufficientLiquidity = errors.New("lending: insufficient liquidity")
	ErrInsufficientCollateral = errors.New("lending: insufficient collateral")
	ErrLtvExceeded         = errors.New("lending: loan-to-value ceiling exceeded")
	ErrHealthFactorViolation = errors.New("lending: health factor would drop below 1")
	ErrPositionHealthy     = errors.New("lending: position is healthy, not liquidatable")
	ErrPriceMissing        = errors.New("lending: oracle has no price for asset")
	ErrMathOverflow        = fixedpoint.ErrMathOverflow
	ErrPoolPaused          = errors.New("lending: pool is paused")
)

// errorKind maps a sentinel error to a short label for metrics cardinality,
// matching the teacher's practice of never emitting raw error strings as a
// label value.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrNotInitialized):
		return "not_initialized"
	case errors.Is(err, ErrAlreadyInitialized):
		return "already_initialized"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrInsufficientLiquidity):
		return "insufficient_liquidity"
	case errors.Is(err, ErrInsufficientCollateral):
		return "insufficient_collateral"
	case errors.Is(err, ErrLtvExceeded):
		return "ltv_exceeded"
	case errors.Is(err, ErrHealthFactorViolation):
		return "health_factor_violation"
	case errors.Is(err, ErrPositionHealthy):
		return "position_healthy"
	case errors.Is(err, ErrPriceMissing):
		return "price_missing"
	case errors.Is(err, ErrMathOverflow):
		return "math_overflow"
	case errors.Is(err, ErrPoolPaused):
		return "pool_paused"
	default:
		return "unknown"
	}
}
