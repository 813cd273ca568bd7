// Package felt implements StarkNet field elements and the numeric
// conversions between raw chain words and token amounts.
package felt

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

func init() {
	// Quotients feed USD figures that get divided again downstream,
	// so keep more digits than the package default of 16.
	decimal.DivisionPrecision = 28
}

// Felt is a single 252-bit field element, stored big-endian in 32 bytes.
type Felt [32]byte

// Zero is the zero field element, also the burn address on StarkNet.
var Zero Felt

// Parse decodes a hex string into a Felt. The 0x prefix is optional and
// odd-length or zero-padded input is accepted, matching what RPC nodes
// and stream servers emit.
func Parse(s string) (Felt, error) {
	var f Felt
	h := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if h == "" {
		return f, fmt.Errorf("parse felt %q: empty", s)
	}
	if len(h) > 64 {
		return f, fmt.Errorf("parse felt %q: too long", s)
	}
	if len(h)%2 == 1 {
		h = "0" + h
	}
	b, err := hex.DecodeString(h)
	if err != nil {
		return f, fmt.Errorf("parse felt %q: %w", s, err)
	}
	copy(f[32-len(b):], b)
	return f, nil
}

// MustParse is Parse for compile-time constants. It panics on bad input.
func MustParse(s string) Felt {
	f, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return f
}

// FromUint64 returns the felt holding v.
func FromUint64(v uint64) Felt {
	var f Felt
	u := uint256.NewInt(v)
	b := u.Bytes32()
	copy(f[:], b[:])
	return f
}

// FromBig returns the felt holding v, which must fit in 256 bits.
func FromBig(v *big.Int) (Felt, error) {
	var f Felt
	u, overflow := uint256.FromBig(v)
	if overflow {
		return f, fmt.Errorf("felt overflow: %s", v)
	}
	b := u.Bytes32()
	copy(f[:], b[:])
	return f, nil
}

// Int returns f as an unsigned 256-bit integer.
func (f Felt) Int() *uint256.Int {
	return new(uint256.Int).SetBytes(f[:])
}

// Big returns f as a big.Int.
func (f Felt) Big() *big.Int {
	return f.Int().ToBig()
}

// Uint64 returns the low 64 bits of f.
func (f Felt) Uint64() uint64 {
	return f.Int().Uint64()
}

// IsZero reports whether f is the zero element.
func (f Felt) IsZero() bool {
	return f == Zero
}

// Hex formats f as a minimal lowercase hex string with a 0x prefix.
// This is the canonical form used for every document id in Mongo.
func (f Felt) Hex() string {
	return f.Int().Hex()
}

func (f Felt) String() string {
	return f.Hex()
}

// ShortString decodes f as a Cairo short string, the packed ASCII
// encoding ERC-20 contracts use for name and symbol.
func (f Felt) ShortString() string {
	return string(bytes.Trim(f[:], "\x00"))
}

// MarshalText implements encoding.TextMarshaler.
func (f Felt) MarshalText() ([]byte, error) {
	return []byte(f.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, so felts can sit
// directly in YAML and JSON documents.
func (f *Felt) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// U256 recomposes a Uint256 from its low and high felt halves.
func U256(low, high Felt) *uint256.Int {
	v := new(uint256.Int).Lsh(high.Int(), 128)
	return v.Add(v, low.Int())
}

// ToDecimal scales a raw integer amount down by the token's decimals.
func ToDecimal(n *uint256.Int, decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(n.ToBig(), -decimals)
}

// Ratio returns a/b, or zero when b is zero. Pool maths treats an
// empty reserve as a zero price rather than an error.
func Ratio(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.Div(b)
}
