package math

import (
	"fmt"
	"math/big"
)

// Fee rates are expressed in basis points: 1 bp = 0.01%.
var basisPoints = big.NewInt(10_000)

// FeeOf returns floor(amount * rateBps / 10_000) as a fresh value.
// Truncation is toward zero, so the fee is zero whenever
// amount * rateBps < 10_000.
func FeeOf(amount *big.Int, rateBps uint64) *big.Int {
	if amount == nil || amount.Sign() <= 0 {
		return new(big.Int)
	}

	fee := new(big.Int).Mul(amount, new(big.Int).SetUint64(rateBps))
	return fee.Div(fee, basisPoints)
}

// SubClamped returns max(x - y, 0) as a fresh value.
func SubClamped(x, y *big.Int) *big.Int {
	d := new(big.Int).Sub(x, y)
	if d.Sign() < 0 {
		d.SetInt64(0)
	}
	return d
}

// Copy returns a fresh value equal to x, or zero when x is nil. Exported
// amounts must never alias internal ledger state.
func Copy(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(x)
}

// ParseAmount parses a base-10 unsigned integer amount (wei-style, no
// decimals) from a config or CLI string.
func ParseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("amount %q is negative", s)
	}
	return v, nil
}
