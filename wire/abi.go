// Package wire is the transport boundary: the custodian's function
// surface as an ABI, a codec for calldata and results, and a dispatcher
// resolving selectors to lender operations. The settlement core never
// sees wire encoding; everything is decoded before it runs.
package wire

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/basisfi/flashlend/lender"
)

// LenderABI is the custodian's callable surface. Selectors:
//
//	0x... flash(address,address,uint256,bytes,bytes24)
//	0x... maxFlashLoan(address)
//	0x... flashFee(address,uint256)
//	0x... sync()
//	0x... defund()
//	0x... deposit(uint256)
//	0x... end()
//
// The bytes24 argument is the packed callback descriptor: a 20-byte
// target address followed by a 4-byte selector.
const LenderABI = `[
	{"inputs":[{"internalType":"address","name":"receiver","type":"address"},{"internalType":"address","name":"token","type":"address"},{"internalType":"uint256","name":"amount","type":"uint256"},{"internalType":"bytes","name":"data","type":"bytes"},{"internalType":"bytes24","name":"callback","type":"bytes24"}],"name":"flash","outputs":[{"internalType":"bytes","name":"result","type":"bytes"}],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"internalType":"address","name":"token","type":"address"}],"name":"maxFlashLoan","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"address","name":"token","type":"address"},{"internalType":"uint256","name":"amount","type":"uint256"}],"name":"flashFee","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"sync","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[],"name":"defund","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"internalType":"uint256","name":"amount","type":"uint256"}],"name":"deposit","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[],"name":"end","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

// Codec packs and unpacks calldata and results for the lender surface.
type Codec struct {
	abi abi.ABI
}

// NewCodec parses the lender ABI.
func NewCodec() (*Codec, error) {
	parsed, err := abi.JSON(strings.NewReader(LenderABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse lender ABI: %w", err)
	}
	return &Codec{abi: parsed}, nil
}

// PackCallback packs a callback descriptor: target address then selector.
func PackCallback(target common.Address, method lender.MethodToken) [24]byte {
	var out [24]byte
	copy(out[:20], target.Bytes())
	copy(out[20:], method[:])
	return out
}

// UnpackCallback splits a packed descriptor back into its two fields.
func UnpackCallback(desc [24]byte) (common.Address, lender.MethodToken) {
	var method lender.MethodToken
	copy(method[:], desc[20:])
	return common.BytesToAddress(desc[:20]), method
}

// EncodeFlash builds flash calldata.
func (c *Codec) EncodeFlash(receiver, asset common.Address, amount *big.Int, data []byte, target common.Address, method lender.MethodToken) ([]byte, error) {
	return c.abi.Pack("flash", receiver, asset, amount, data, PackCallback(target, method))
}

// EncodeMaxFlashLoan builds maxFlashLoan calldata.
func (c *Codec) EncodeMaxFlashLoan(asset common.Address) ([]byte, error) {
	return c.abi.Pack("maxFlashLoan", asset)
}

// EncodeFlashFee builds flashFee calldata.
func (c *Codec) EncodeFlashFee(asset common.Address, amount *big.Int) ([]byte, error) {
	return c.abi.Pack("flashFee", asset, amount)
}

// EncodeSync builds sync calldata.
func (c *Codec) EncodeSync() ([]byte, error) {
	return c.abi.Pack("sync")
}

// EncodeDefund builds defund calldata.
func (c *Codec) EncodeDefund() ([]byte, error) {
	return c.abi.Pack("defund")
}

// EncodeDeposit builds deposit calldata.
func (c *Codec) EncodeDeposit(amount *big.Int) ([]byte, error) {
	return c.abi.Pack("deposit", amount)
}

// EncodeEnd builds end calldata.
func (c *Codec) EncodeEnd() ([]byte, error) {
	return c.abi.Pack("end")
}

// DecodePayload unpacks a flash result back into the raw callback
// payload.
func (c *Codec) DecodePayload(ret []byte) ([]byte, error) {
	out, err := c.abi.Unpack("flash", ret)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack flash result: %w", err)
	}
	payload, ok := out[0].([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected flash result type %T", out[0])
	}
	return payload, nil
}

// DecodeAmount unpacks a maxFlashLoan or flashFee result.
func (c *Codec) DecodeAmount(name string, ret []byte) (*big.Int, error) {
	out, err := c.abi.Unpack(name, ret)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s result: %w", name, err)
	}
	amount, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected %s result type %T", name, out[0])
	}
	return amount, nil
}
