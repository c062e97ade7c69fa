package lender

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// MethodToken identifies which function a Callback targets on its handler,
// the in-process form of a 4-byte selector.
type MethodToken [4]byte

func (m MethodToken) String() string {
	return fmt.Sprintf("0x%x", m[:])
}

// Loan describes a disbursed flash loan as presented to the borrower
// callback.
type Loan struct {
	// Initiator is the principal that called flash.
	Initiator common.Address
	// Custodian is the lender's own address, where repayment must arrive.
	Custodian common.Address
	Asset     common.Address
	Amount    *big.Int
	Fee       *big.Int
	Data      []byte
}

// Repayment is the principal plus fee the borrower owes, as a fresh value.
func (l *Loan) Repayment() *big.Int {
	return new(big.Int).Add(l.Amount, l.Fee)
}

// Handler services flash-loan callbacks. A handler may expose several
// entry points and dispatch on the method token, the way a contract
// dispatches on a selector. Returning an error aborts the settlement; the
// payload is handed back to the initiator verbatim.
type Handler interface {
	OnFlashCall(method MethodToken, loan *Loan) ([]byte, error)
}

// Callback designates the borrower entry point for a flash call: a handler
// reference plus the method token to invoke it with. The settlement core
// treats the pair opaquely.
type Callback struct {
	Target Handler
	Method MethodToken
}

// invoke runs the callback, converting a missing target or a panicking
// handler into an ordinary call failure. A crashing borrower must not take
// down the custodian.
func (cb Callback) invoke(loan *Loan) (payload []byte, err error) {
	if cb.Target == nil {
		return nil, errors.New("no callback target")
	}
	defer func() {
		if r := recover(); r != nil {
			payload, err = nil, fmt.Errorf("callback panic: %v", r)
		}
	}()
	return cb.Target.OnFlashCall(cb.Method, loan)
}
