// Package borrower provides reference flash-loan receivers: handlers
// that repay, underpay, refuse, or re-enter. Tests and the demo service
// use them; they are also the template for writing a real borrower.
package borrower

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/basisfi/flashlend/lender"
	"github.com/basisfi/flashlend/token"
)

// ErrWrongMethod rejects a callback arriving under an unexpected method
// token, the way a contract rejects an unknown selector.
var ErrWrongMethod = errors.New("borrower: unexpected callback method")

// Treasury is a passive contract: it holds funds and answers no calls.
// Registered at the owner's address so sweeps have a contract to land on.
type Treasury struct{}

// Repayer borrows and pays back principal plus fee before returning. Its
// payload is echoed back through the settlement.
type Repayer struct {
	// Addr is the borrower's own account, where the principal lands and
	// the repayment is paid from.
	Addr   common.Address
	Asset  token.Asset
	Method lender.MethodToken
	// Payload is returned to the flash initiator verbatim.
	Payload []byte
	Logger  *zap.Logger
}

// OnFlashCall implements lender.Handler.
func (r *Repayer) OnFlashCall(method lender.MethodToken, loan *lender.Loan) ([]byte, error) {
	if method != r.Method {
		return nil, fmt.Errorf("%w: %s", ErrWrongMethod, method)
	}
	if err := repay(r.Asset, r.Addr, loan, loan.Repayment()); err != nil {
		return nil, err
	}
	if r.Logger != nil {
		r.Logger.Debug("loan repaid",
			zap.String("amount", loan.Amount.String()),
			zap.String("fee", loan.Fee.String()))
	}
	return r.Payload, nil
}

// Underpayer repays Short less than it owes. Its settlements must be
// rejected at reconciliation.
type Underpayer struct {
	Addr   common.Address
	Asset  token.Asset
	Method lender.MethodToken
	// Short is how much of the debt goes unpaid.
	Short *big.Int
}

// OnFlashCall implements lender.Handler.
func (u *Underpayer) OnFlashCall(method lender.MethodToken, loan *lender.Loan) ([]byte, error) {
	if method != u.Method {
		return nil, fmt.Errorf("%w: %s", ErrWrongMethod, method)
	}
	owed := loan.Repayment()
	paid := new(big.Int).Sub(owed, u.Short)
	if paid.Sign() < 0 {
		paid.SetInt64(0)
	}
	if err := repay(u.Asset, u.Addr, loan, paid); err != nil {
		return nil, err
	}
	return nil, nil
}

// Refuser errors out of every callback without touching the funds.
type Refuser struct {
	Err error
}

// OnFlashCall implements lender.Handler.
func (f *Refuser) OnFlashCall(lender.MethodToken, *lender.Loan) ([]byte, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return nil, errors.New("borrower: loan refused")
}

// Reentrant issues a nested flash from inside its callback, then repays
// each loan at its own level. Both fees end up paid cumulatively, which
// is exactly what per-call reconciliation requires of recursive
// borrowing.
type Reentrant struct {
	Addr   common.Address
	Asset  token.Asset
	Lender lender.FlashLender
	Method lender.MethodToken
	// NestedAmount is the principal of the inner loan, issued once per
	// top-level flash.
	NestedAmount *big.Int
	Logger       *zap.Logger

	depth int
}

// OnFlashCall implements lender.Handler.
func (b *Reentrant) OnFlashCall(method lender.MethodToken, loan *lender.Loan) ([]byte, error) {
	if method != b.Method {
		return nil, fmt.Errorf("%w: %s", ErrWrongMethod, method)
	}

	b.depth++
	defer func() { b.depth-- }()

	if b.depth == 1 {
		if b.Logger != nil {
			b.Logger.Debug("re-entering flash",
				zap.String("nested", b.NestedAmount.String()))
		}
		_, err := b.Lender.Flash(b.Addr, b.Addr, loan.Asset, b.NestedAmount, nil,
			lender.Callback{Target: b, Method: b.Method})
		if err != nil {
			return nil, fmt.Errorf("nested flash: %w", err)
		}
	}
	if err := repay(b.Asset, b.Addr, loan, loan.Repayment()); err != nil {
		return nil, err
	}
	return nil, nil
}

// repay moves amount from the borrower back to the custodian, applying
// the same dual-success reading the lender's guard applies.
func repay(asset token.Asset, from common.Address, loan *lender.Loan, amount *big.Int) error {
	if asset == nil {
		return errors.New("borrower: no asset to repay with")
	}
	res, err := asset.Transfer(from, loan.Custodian, amount)
	if err != nil {
		return fmt.Errorf("repayment transfer: %w", err)
	}
	if !res.OK() {
		return fmt.Errorf("repayment transfer of %s returned false", amount)
	}
	return nil
}
