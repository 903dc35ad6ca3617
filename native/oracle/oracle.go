// Package oracle implements the authenticated price feed the pool reads when
// it values collateral and debt (borrow, health checks, liquidation): a minimal, synchronous key-value store from
// asset symbol to scale-S USD price, guarded by a single admin identity. It
// carries no staleness or deviation tracking — the spec treats the writer as
// a trusted collaborator, and native/loyalty's admin-gate idiom in the
// teacher is the closest analogue for that trust boundary.
package oracle

import (
	"errors"
	"strings"

	"lendingpool/address"
	"lendingpool/fixedpoint"
)

var (
	// ErrAlreadyInitialized is returned by Initialize once an admin has
	// already been set.
	ErrAlreadyInitialized = errors.New("oracle: already initialized")
	// ErrNotInitialized is returned by any operation invoked before
	// Initialize.
	ErrNotInitialized = errors.New("oracle: not initialized")
	// ErrUnauthorized is returned when the caller does not match the
	// configured admin.
	ErrUnauthorized = errors.New("oracle: unauthorized")
	// ErrInvalidPrice is returned when SetPrice is called with a
	// non-positive price.
	ErrInvalidPrice = errors.New("oracle: price must be positive")
	// ErrPriceMissing is returned by GetPrice when no price has ever been
	// written for the requested asset.
	ErrPriceMissing = errors.New("oracle: price missing")
	// ErrUnknownAsset is returned when the asset symbol is empty.
	ErrUnknownAsset = errors.New("oracle: unknown asset symbol")
)

// Oracle is an authenticated, synchronous asset -> price store. The zero
// value is usable only after Initialize.
type Oracle struct {
	admin       address.Address
	initialized bool
	prices      map[string]fixedpoint.Fp
}

// New constructs an uninitialized Oracle.
func New() *Oracle {
	return &Oracle{prices: make(map[string]fixedpoint.Fp)}
}

// Initialize sets the admin authorized to write prices. It is idempotent
// per-process but fails ErrAlreadyInitialized if called a second time,
// mirroring the original contract's storage-flag guard.
func (o *Oracle) Initialize(admin address.Address) error {
	if o.initialized {
		return ErrAlreadyInitialized
	}
	o.admin = admin
	o.initialized = true
	if o.prices == nil {
		o.prices = make(map[string]fixedpoint.Fp)
	}
	return nil
}

// SetPrice authenticates caller against the configured admin and writes the
// scale-S USD price for asset. There is no staleness tracking: each call
// simply overwrites the prior entry.
func (o *Oracle) SetPrice(caller address.Address, asset string, price fixedpoint.Fp) error {
	if !o.initialized {
		return ErrNotInitialized
	}
	if !caller.Equal(o.admin) {
		return ErrUnauthorized
	}
	asset = strings.TrimSpace(asset)
	if asset == "" {
		return ErrUnknownAsset
	}
	if price.Sign() <= 0 {
		return ErrInvalidPrice
	}
	o.prices[asset] = price
	return nil
}

// GetPrice returns the last price written for asset, failing ErrPriceMissing
// if none was ever set.
func (o *Oracle) GetPrice(asset string) (fixedpoint.Fp, error) {
	if !o.initialized {
		return fixedpoint.Fp{}, ErrNotInitialized
	}
	asset = strings.TrimSpace(asset)
	price, ok := o.prices[asset]
	if !ok {
		return fixedpoint.Fp{}, ErrPriceMissing
	}
	return price, nil
}

// Admin returns the configured admin address.
func (o *Oracle) Admin() address.Address { return o.admin }
