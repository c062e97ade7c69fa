package borrower_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/basisfi/flashlend/borrower"
	"github.com/basisfi/flashlend/lender"
	"github.com/basisfi/flashlend/token"
)

var (
	assetAddr     = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	custodianAddr = common.HexToAddress("0x00000000000000000000000000000000000000cc")
	borrowerAddr  = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	method        = lender.MethodToken{0x11, 0x22, 0x33, 0x44}
)

func newLoan(amount, fee int64) *lender.Loan {
	return &lender.Loan{
		Custodian: custodianAddr,
		Asset:     assetAddr,
		Amount:    big.NewInt(amount),
		Fee:       big.NewInt(fee),
	}
}

func fundedToken(t *testing.T, balance int64) *token.Memory {
	t.Helper()
	tok := token.NewMemory(assetAddr, token.ReturnBool, zaptest.NewLogger(t))
	require.NoError(t, tok.Mint(borrowerAddr, big.NewInt(balance)))
	return tok
}

func TestRepayerPaysPrincipalPlusFee(t *testing.T) {
	tok := fundedToken(t, 100)
	r := &borrower.Repayer{Addr: borrowerAddr, Asset: tok, Method: method, Payload: []byte("hi")}

	payload, err := r.OnFlashCall(method, newLoan(40, 2))
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), payload)

	bal, err := tok.BalanceOf(custodianAddr)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(42), bal)
}

func TestRepayerRejectsWrongMethod(t *testing.T) {
	tok := fundedToken(t, 100)
	r := &borrower.Repayer{Addr: borrowerAddr, Asset: tok, Method: method}

	_, err := r.OnFlashCall(lender.MethodToken{0xff, 0xff, 0xff, 0xff}, newLoan(1, 0))
	assert.ErrorIs(t, err, borrower.ErrWrongMethod)

	bal, err := tok.BalanceOf(custodianAddr)
	require.NoError(t, err)
	assert.Equal(t, new(big.Int), bal)
}

func TestRepayerWithoutFundsFails(t *testing.T) {
	tok := fundedToken(t, 5)
	r := &borrower.Repayer{Addr: borrowerAddr, Asset: tok, Method: method}

	_, err := r.OnFlashCall(method, newLoan(40, 2))
	assert.Error(t, err)
}

func TestUnderpayerShortsTheDebt(t *testing.T) {
	tok := fundedToken(t, 100)
	u := &borrower.Underpayer{Addr: borrowerAddr, Asset: tok, Method: method, Short: big.NewInt(3)}

	_, err := u.OnFlashCall(method, newLoan(40, 2))
	require.NoError(t, err)

	bal, err := tok.BalanceOf(custodianAddr)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(39), bal)
}

func TestRefuser(t *testing.T) {
	boom := errors.New("boom")
	_, err := (&borrower.Refuser{Err: boom}).OnFlashCall(method, newLoan(1, 0))
	assert.ErrorIs(t, err, boom)

	_, err = (&borrower.Refuser{}).OnFlashCall(method, newLoan(1, 0))
	assert.Error(t, err)
}
