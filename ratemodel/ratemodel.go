// Package ratemodel implements the pure utilization-to-rate function the
// pool calls synchronously on every accrual. It generalizes the teacher's
// two-slope InterestModel (native/lending/interest.go) into the spec's
// seven-segment kinked curve: one linear region below the kink, and six
// weighted sub-segments above it that together span the high-utilization
// regime up to r_max.
package ratemodel

import (
	"errors"

	"lendingpool/fixedpoint"
)

// ErrInvalidParameters is returned when a Model is constructed with
// parameters that cannot define a sensible curve (e.g. r_max < r_opt, or
// U_star outside (0, S)).
var ErrInvalidParameters = errors.New("ratemodel: invalid parameters")

// segment describes one of the six weighted sub-ranges above the kink. low
// and high bound the utilization range (low, high]; weight is the segment's
// share of the 1000 basis-weight units spanning delta-R; prevWeight is the
// cumulative weight of every earlier segment.
type segment struct {
	low, high  fixedpoint.Fp
	weight     int64
	prevWeight int64
}

const totalWeightUnits = 1000

// Model is the immutable, pure borrow/supply rate function for one pool.
// U_star is a constructor parameter (the reference curve uses 80%); the six
// sub-segments above it always split the range (U_star, S] in the fixed
// proportions set in New, and those proportions are not configurable.
type Model struct {
	rMin, rOpt, rMax fixedpoint.Fp
	uStar            fixedpoint.Fp
	segments         [6]segment
}

// New constructs a Model from the annualized scale-S parameters r_min,
// r_opt (== slope1 at the kink), r_max, and u_star.
func New(rMin, rOpt, rMax, uStar fixedpoint.Fp) (*Model, error) {
	if rMax.Cmp(rOpt) < 0 {
		return nil, ErrInvalidParameters
	}
	if uStar.Sign() <= 0 || uStar.Cmp(fixedpoint.FromUnits(fixedpoint.Scale)) >= 0 {
		return nil, ErrInvalidParameters
	}

	m := &Model{rMin: rMin, rOpt: rOpt, rMax: rMax, uStar: uStar}

	scaleFp := fixedpoint.FromUnits(fixedpoint.Scale)
	remaining, err := fixedpoint.Sub(scaleFp, uStar)
	if err != nil {
		return nil, err
	}

	// Absolute sub-range widths above the kink, expressed as fractions
	// (numerator over 1000) of the total post-kink range (spec table:
	// 85/90/95/99/99.5/100%, i.e. 25%/25%/25%/20%/2.5%/2.5%). These
	// fractions are part of the wire contract, not a tunable parameter.
	widthNumer := [6]int64{250, 250, 250, 200, 25, 25} // sums to 1000
	weights := [6]int64{50, 100, 150, 200, 250, 250}

	low := uStar
	prevWeight := int64(0)
	for i := 0; i < 6; i++ {
		widthFrac, err := fixedpoint.MulDivDown(remaining, fixedpoint.FromUnits(widthNumer[i]), fixedpoint.FromUnits(1000))
		if err != nil {
			return nil, err
		}
		high, err := fixedpoint.Add(low, widthFrac)
		if err != nil {
			return nil, err
		}
		if i == 5 {
			// Force the final boundary to land exactly on S, absorbing any
			// rounding dust from the fractional widths above.
			high = scaleFp
		}
		m.segments[i] = segment{low: low, high: high, weight: weights[i], prevWeight: prevWeight}
		prevWeight += weights[i]
		low = high
	}

	return m, nil
}

// Default returns the reference deployment's curve: r_min=0, r_opt=4%
// (slope1), r_max=79% (r_opt+slope2), U_star=80%, matching spec §6's wire
// contract constants.
func Default() *Model {
	m, err := New(
		fixedpoint.FromUnits(0),
		fixedpoint.FromUnits(400_000),
		fixedpoint.FromUnits(7_900_000),
		fixedpoint.FromUnits(8_000_000),
	)
	if err != nil {
		panic(err)
	}
	return m
}

// BorrowRate computes the annualized borrow rate for a given utilization U,
// clamping U to [0, S] first per spec §4.3's edge cases.
func (m *Model) BorrowRate(u fixedpoint.Fp) (fixedpoint.Fp, error) {
	scaleFp := fixedpoint.FromUnits(fixedpoint.Scale)
	u = fixedpoint.Clamp(u, fixedpoint.Zero(), scaleFp)

	if u.Cmp(m.uStar) <= 0 {
		if u.Sign() == 0 {
			return fixedpoint.Max(m.rMin, fixedpoint.Zero()), nil
		}
		linear, err := fixedpoint.MulDivDown(m.rOpt, u, m.uStar)
		if err != nil {
			return fixedpoint.Fp{}, err
		}
		return fixedpoint.Max(m.rMin, linear), nil
	}

	deltaR, err := fixedpoint.Sub(m.rMax, m.rOpt)
	if err != nil {
		return fixedpoint.Fp{}, err
	}

	for _, seg := range m.segments {
		if u.Cmp(seg.high) > 0 {
			continue
		}
		width, err := fixedpoint.Sub(seg.high, seg.low)
		if err != nil {
			return fixedpoint.Fp{}, err
		}
		offset, err := fixedpoint.Sub(u, seg.low)
		if err != nil {
			return fixedpoint.Fp{}, err
		}
		weighted, err := fixedpoint.MulDivDown(fixedpoint.FromUnits(seg.weight), offset, width)
		if err != nil {
			return fixedpoint.Fp{}, err
		}
		cumulative, err := fixedpoint.Add(fixedpoint.FromUnits(seg.prevWeight), weighted)
		if err != nil {
			return fixedpoint.Fp{}, err
		}
		contribution, err := fixedpoint.MulDivDown(deltaR, cumulative, fixedpoint.FromUnits(totalWeightUnits))
		if err != nil {
			return fixedpoint.Fp{}, err
		}
		return fixedpoint.Add(m.rOpt, contribution)
	}

	// Not reached in practice: u is clamped to S and the last segment ends
	// exactly at S, so u == S is evaluated inside the loop above.
	return m.rMax, nil
}

// SupplyRate computes supply_rate(U) = borrow_rate(U) * U * (1 -
// reserve_factor), rounded down, per spec §4.3.
func (m *Model) SupplyRate(u, reserveFactor fixedpoint.Fp) (fixedpoint.Fp, error) {
	borrow, err := m.BorrowRate(u)
	if err != nil {
		return fixedpoint.Fp{}, err
	}
	oneMinusReserve, err := fixedpoint.Sub(fixedpoint.One(), reserveFactor)
	if err != nil {
		return fixedpoint.Fp{}, err
	}
	if oneMinusReserve.Sign() < 0 {
		oneMinusReserve = fixedpoint.Zero()
	}
	scaleFp := fixedpoint.FromUnits(fixedpoint.Scale)
	u = fixedpoint.Clamp(u, fixedpoint.Zero(), scaleFp)

	withUtil, err := fixedpoint.Mul(borrow, u)
	if err != nil {
		return fixedpoint.Fp{}, err
	}
	return fixedpoint.Mul(withUtil, oneMinusReserve)
}
