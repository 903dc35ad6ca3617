// Package address implements the bech32-encoded account identifiers used to
// name callers, pools, and collaborators at the engine's boundary. The host
// ledger is the authority on what bytes an address decodes to and on which
// signatures authenticate it; this package only knows how to encode, decode,
// and compare the identifier itself.
package address

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
)

// Prefix distinguishes the human-readable namespace an address belongs to.
type Prefix string

const (
	// UserPrefix identifies supplier/borrower/liquidator accounts.
	UserPrefix Prefix = "usr"
	// ModulePrefix identifies pool-owned treasury accounts (liquidity and
	// collateral escrow).
	ModulePrefix Prefix = "mod"
)

// ErrInvalidLength is returned when decoding bytes that are not exactly 20
// long; the engine never accepts a shorter or longer identifier.
var ErrInvalidLength = errors.New("address: identifier must be 20 bytes")

// Address is a 20-byte account identifier tagged with a human-readable
// prefix. The zero value is the sentinel "no address" used where a
// collaborator is unconfigured.
type Address struct {
	prefix Prefix
	bytes  []byte
}

// New constructs an Address from a prefix and exactly 20 raw bytes.
func New(prefix Prefix, raw []byte) (Address, error) {
	if len(raw) != 20 {
		return Address{}, ErrInvalidLength
	}
	return Address{prefix: prefix, bytes: append([]byte(nil), raw...)}, nil
}

// IsZero reports whether a represents the unconfigured sentinel address.
func (a Address) IsZero() bool {
	if len(a.bytes) == 0 {
		return true
	}
	for _, b := range a.bytes {
		if b != 0 {
			return false
		}
	}
	return true
}

// Bytes returns the raw 20-byte identifier.
func (a Address) Bytes() []byte { return a.bytes }

// Prefix returns the address's human-readable namespace.
func (a Address) Prefix() Prefix { return a.prefix }

// Equal reports whether two addresses name the same account.
func (a Address) Equal(b Address) bool {
	if len(a.bytes) != len(b.bytes) {
		return false
	}
	for i := range a.bytes {
		if a.bytes[i] != b.bytes[i] {
			return false
		}
	}
	return true
}

// String renders the address in bech32 form, e.g. "usr1...".
func (a Address) String() string {
	if len(a.bytes) == 0 {
		return ""
	}
	conv, err := bech32.ConvertBits(a.bytes, 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(string(a.prefix), conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

// Decode parses a bech32-encoded address string.
func Decode(s string) (Address, error) {
	prefix, decoded, err := bech32.Decode(s)
	if err != nil {
		return Address{}, fmt.Errorf("address: invalid bech32 string: %w", err)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("address: invalid bech32 payload: %w", err)
	}
	return New(Prefix(prefix), conv)
}
