// Package token defines the caller-side surface of the managed asset and
// the guarded transfer/balance paths every custody move goes through.
package token

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Result models the two return conventions asset contracts use for
// transfer calls: some return an explicit boolean, others return nothing
// at all on success.
type Result struct {
	HasValue bool
	Value    bool
}

// OK reports success under the dual convention: no return value, or an
// explicit true.
func (r Result) OK() bool {
	return !r.HasValue || r.Value
}

// Bool is the Result of a call that returned an explicit boolean.
func Bool(v bool) Result {
	return Result{HasValue: true, Value: v}
}

// Silent is the Result of a call that returned no data.
func Silent() Result {
	return Result{}
}

// Asset is the external asset contract as seen by a caller. There is no
// ambient message sender in-process, so the calling principal is always an
// explicit argument. A non-nil error means the call itself failed; a
// Result carries the asset's reported outcome.
type Asset interface {
	Address() common.Address
	BalanceOf(holder common.Address) (*big.Int, error)
	Transfer(caller, to common.Address, amount *big.Int) (Result, error)
	TransferFrom(caller, from, to common.Address, amount *big.Int) (Result, error)
}

// CodeReader answers whether an address hosts executable code.
type CodeReader interface {
	IsContract(addr common.Address) bool
}
