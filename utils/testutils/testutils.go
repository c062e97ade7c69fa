// Package testutils builds the shared fixtures the package tests run
// against: a world with a memory token and a custodian wired in.
package testutils

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/basisfi/flashlend/borrower"
	"github.com/basisfi/flashlend/lender"
	"github.com/basisfi/flashlend/token"
	"github.com/basisfi/flashlend/world"
)

// Well-known fixture addresses.
var (
	AssetAddr     = common.HexToAddress("0x00000000000000000000000000000000000a55e7")
	CustodianAddr = common.HexToAddress("0x000000000000000000000000000000000000c0de")
	OwnerAddr     = common.HexToAddress("0x0000000000000000000000000000000000000b05")
	BorrowerAddr  = common.HexToAddress("0x00000000000000000000000000000000000b0770")
)

// Method is the fixture callback method token.
var Method = lender.MethodToken{0xde, 0xad, 0xbe, 0xef}

// Fixture is a world with a memory token registered at AssetAddr and a
// treasury at OwnerAddr, ready for a lender to be attached.
type Fixture struct {
	World *world.World
	Token *token.Memory
}

// NewFixture builds the base environment.
func NewFixture(t testing.TB, mode token.ReturnMode) *Fixture {
	t.Helper()
	log := zaptest.NewLogger(t)

	w := world.New(log)
	tok := token.NewMemory(AssetAddr, mode, log)
	require.NoError(t, w.Register(AssetAddr, tok))
	require.NoError(t, w.Register(OwnerAddr, &borrower.Treasury{}))

	return &Fixture{World: w, Token: tok}
}

// NewSyncLender attaches a sync/defund custodian at CustodianAddr.
func (f *Fixture) NewSyncLender(t testing.TB, feeBps uint64) *lender.SyncLender {
	t.Helper()
	l, err := lender.NewSyncLender(f.World, f.Token, lender.Config{
		Address: CustodianAddr,
		Owner:   OwnerAddr,
		FeeBps:  feeBps,
	})
	require.NoError(t, err)
	require.NoError(t, f.World.Register(CustodianAddr, l))
	return l
}

// NewDepositLender attaches a deposit/end custodian at CustodianAddr.
func (f *Fixture) NewDepositLender(t testing.TB, feeBps uint64) *lender.DepositLender {
	t.Helper()
	l, err := lender.NewDepositLender(f.World, f.Token, lender.Config{
		Address: CustodianAddr,
		Owner:   OwnerAddr,
		FeeBps:  feeBps,
	})
	require.NoError(t, err)
	require.NoError(t, f.World.Register(CustodianAddr, l))
	return l
}

// Fund mints amount to addr.
func (f *Fixture) Fund(t testing.TB, addr common.Address, amount *big.Int) {
	t.Helper()
	require.NoError(t, f.Token.Mint(addr, amount))
}

// NewRepayer registers a repaying borrower at BorrowerAddr.
func (f *Fixture) NewRepayer(t testing.TB, payload []byte) *borrower.Repayer {
	t.Helper()
	b := &borrower.Repayer{
		Addr:    BorrowerAddr,
		Asset:   f.Token,
		Method:  Method,
		Payload: payload,
	}
	require.NoError(t, f.World.Register(BorrowerAddr, b))
	return b
}

// Balance reads addr's token balance, failing the test on error.
func (f *Fixture) Balance(t testing.TB, addr common.Address) *big.Int {
	t.Helper()
	bal, err := f.Token.BalanceOf(addr)
	require.NoError(t, err)
	return bal
}

// Ether returns n * 10^18.
func Ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

// Wei parses a base-10 amount, failing the test on a bad literal.
func Wei(t testing.TB, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 10)
	require.True(t, ok, "bad amount literal %q", s)
	return v
}
