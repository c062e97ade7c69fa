package token

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Guard wraps an Asset with the checks every custody move requires:
// contract-existence preconditions and the dual-success rule. Custody of
// the managed asset changes only through a Guard.
type Guard struct {
	asset Asset
	code  CodeReader
}

// NewGuard binds an asset to the code reader used for existence checks.
func NewGuard(asset Asset, code CodeReader) (*Guard, error) {
	if asset == nil {
		return nil, errors.New("token: asset is required")
	}
	if code == nil {
		return nil, errors.New("token: code reader is required")
	}
	return &Guard{asset: asset, code: code}, nil
}

// AssetAddress returns the identifier of the guarded asset.
func (g *Guard) AssetAddress() common.Address {
	return g.asset.Address()
}

// Balance reads holder's balance of the managed asset. It fails with
// ErrNotAContract when the asset identifier has no code behind it, which
// guards against a misconfigured or non-existent asset.
func (g *Guard) Balance(holder common.Address) (*big.Int, error) {
	assetAddr := g.asset.Address()
	if !g.code.IsContract(assetAddr) {
		return nil, fmt.Errorf("%w: asset %s", ErrNotAContract, assetAddr.Hex())
	}

	bal, err := g.asset.BalanceOf(holder)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAssetCallFailed, err)
	}
	if bal == nil {
		return nil, fmt.Errorf("%w: asset returned no balance", ErrAssetCallFailed)
	}
	return bal, nil
}

// Transfer moves amount from the custodian to the recipient. The recipient
// must be a contract.
func (g *Guard) Transfer(from, to common.Address, amount *big.Int) error {
	if !g.code.IsContract(to) {
		return fmt.Errorf("%w: recipient %s", ErrNotAContract, to.Hex())
	}

	res, err := g.asset.Transfer(from, to, amount)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	if !res.OK() {
		return fmt.Errorf("%w: asset returned false transferring %s to %s",
			ErrTransferFailed, amount, to.Hex())
	}
	return nil
}

// TransferFrom pulls amount from a depositor into the recipient on the
// caller's authority. Both the recipient and the asset itself must be
// contracts.
func (g *Guard) TransferFrom(caller, from, to common.Address, amount *big.Int) error {
	if !g.code.IsContract(to) {
		return fmt.Errorf("%w: recipient %s", ErrNotAContract, to.Hex())
	}
	assetAddr := g.asset.Address()
	if !g.code.IsContract(assetAddr) {
		return fmt.Errorf("%w: asset %s", ErrNotAContract, assetAddr.Hex())
	}

	res, err := g.asset.TransferFrom(caller, from, to, amount)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	if !res.OK() {
		return fmt.Errorf("%w: asset returned false pulling %s from %s",
			ErrTransferFailed, amount, from.Hex())
	}
	return nil
}
