package token

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	assetAddr = common.HexToAddress("0x0000000000000000000000000000000000000a55")
	custodian = common.HexToAddress("0x00000000000000000000000000000000000000c5")
	recipient = common.HexToAddress("0x0000000000000000000000000000000000000d0d")
	depositor = common.HexToAddress("0x0000000000000000000000000000000000000d00")
)

// codeSet is a CodeReader over a fixed set of contract addresses.
type codeSet map[common.Address]bool

func (c codeSet) IsContract(addr common.Address) bool { return c[addr] }

// stubAsset lets each test pick the outcome of the next asset call.
type stubAsset struct {
	addr    common.Address
	res     Result
	err     error
	balance *big.Int
	balErr  error
}

func (s *stubAsset) Address() common.Address { return s.addr }

func (s *stubAsset) BalanceOf(common.Address) (*big.Int, error) {
	return s.balance, s.balErr
}

func (s *stubAsset) Transfer(_, _ common.Address, _ *big.Int) (Result, error) {
	return s.res, s.err
}

func (s *stubAsset) TransferFrom(_, _, _ common.Address, _ *big.Int) (Result, error) {
	return s.res, s.err
}

func TestNewGuard(t *testing.T) {
	_, err := NewGuard(nil, codeSet{})
	assert.Error(t, err)

	_, err = NewGuard(&stubAsset{addr: assetAddr}, nil)
	assert.Error(t, err)

	g, err := NewGuard(&stubAsset{addr: assetAddr}, codeSet{assetAddr: true})
	require.NoError(t, err)
	assert.Equal(t, assetAddr, g.AssetAddress())
}

func TestGuardBalance(t *testing.T) {
	t.Run("reads_balance", func(t *testing.T) {
		asset := &stubAsset{addr: assetAddr, balance: big.NewInt(1234)}
		g, err := NewGuard(asset, codeSet{assetAddr: true})
		require.NoError(t, err)

		bal, err := g.Balance(custodian)
		require.NoError(t, err)
		assert.Equal(t, "1234", bal.String())
	})

	t.Run("asset_without_code", func(t *testing.T) {
		g, err := NewGuard(&stubAsset{addr: assetAddr}, codeSet{})
		require.NoError(t, err)

		_, err = g.Balance(custodian)
		assert.ErrorIs(t, err, ErrNotAContract)
	})

	t.Run("query_failure", func(t *testing.T) {
		asset := &stubAsset{addr: assetAddr, balErr: errors.New("boom")}
		g, err := NewGuard(asset, codeSet{assetAddr: true})
		require.NoError(t, err)

		_, err = g.Balance(custodian)
		assert.ErrorIs(t, err, ErrAssetCallFailed)
	})
}

func TestGuardTransferConventions(t *testing.T) {
	code := codeSet{assetAddr: true, recipient: true}

	tests := []struct {
		name    string
		res     Result
		callErr error
		wantErr error
	}{
		{name: "silent_success", res: Silent()},
		{name: "boolean_true", res: Bool(true)},
		{name: "boolean_false", res: Bool(false), wantErr: ErrTransferFailed},
		{name: "call_reverts", callErr: errors.New("insufficient balance"), wantErr: ErrTransferFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asset := &stubAsset{addr: assetAddr, res: tt.res, err: tt.callErr}
			g, err := NewGuard(asset, code)
			require.NoError(t, err)

			err = g.Transfer(custodian, recipient, big.NewInt(5))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGuardTransferPreconditions(t *testing.T) {
	asset := &stubAsset{addr: assetAddr, res: Bool(true)}

	t.Run("recipient_without_code", func(t *testing.T) {
		g, err := NewGuard(asset, codeSet{assetAddr: true})
		require.NoError(t, err)

		err = g.Transfer(custodian, recipient, big.NewInt(5))
		assert.ErrorIs(t, err, ErrNotAContract)
	})

	t.Run("transfer_from_requires_asset_code", func(t *testing.T) {
		g, err := NewGuard(asset, codeSet{recipient: true})
		require.NoError(t, err)

		err = g.TransferFrom(custodian, depositor, recipient, big.NewInt(5))
		assert.ErrorIs(t, err, ErrNotAContract)
	})

	t.Run("transfer_from_requires_recipient_code", func(t *testing.T) {
		g, err := NewGuard(asset, codeSet{assetAddr: true})
		require.NoError(t, err)

		err = g.TransferFrom(custodian, depositor, recipient, big.NewInt(5))
		assert.ErrorIs(t, err, ErrNotAContract)
	})
}

func TestGuardTransferFrom(t *testing.T) {
	code := codeSet{assetAddr: true, recipient: true}

	t.Run("pull_succeeds", func(t *testing.T) {
		asset := &stubAsset{addr: assetAddr, res: Silent()}
		g, err := NewGuard(asset, code)
		require.NoError(t, err)

		assert.NoError(t, g.TransferFrom(custodian, depositor, recipient, big.NewInt(5)))
	})

	t.Run("pull_returns_false", func(t *testing.T) {
		asset := &stubAsset{addr: assetAddr, res: Bool(false)}
		g, err := NewGuard(asset, code)
		require.NoError(t, err)

		err = g.TransferFrom(custodian, depositor, recipient, big.NewInt(5))
		assert.ErrorIs(t, err, ErrTransferFailed)
	})
}
