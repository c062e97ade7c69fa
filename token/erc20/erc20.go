// Package erc20 adapts a real ERC-20 contract to token.Asset: external
// calls through a narrow backend, the dual return convention honored on
// the way back, and code-existence lookups cached.
package erc20

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	"github.com/basisfi/flashlend/token"
)

// ERC20ABI is the slice of the standard token surface the adapter calls.
// Selectors: balanceOf 0x70a08231, transfer 0xa9059cbb,
// transferFrom 0x23b872dd.
const ERC20ABI = `[
	{"inputs":[{"internalType":"address","name":"account","type":"address"}],"name":"balanceOf","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"address","name":"to","type":"address"},{"internalType":"uint256","name":"amount","type":"uint256"}],"name":"transfer","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"internalType":"address","name":"from","type":"address"},{"internalType":"address","name":"to","type":"address"},{"internalType":"uint256","name":"amount","type":"uint256"}],"name":"transferFrom","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}
]`

const (
	defaultCallTimeout = 5 * time.Second
	codeCacheSize      = 1024
)

// Backend executes calls against the chain hosting the asset. It is the
// narrow slice of an RPC client the adapter needs, small enough for tests
// to fake.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
}

// Token is a token.Asset over a deployed ERC-20. It also serves as a
// token.CodeReader, answering contract-existence queries from the same
// backend.
type Token struct {
	addr    common.Address
	backend Backend
	abi     abi.ABI
	code    *lru.Cache
	timeout time.Duration
	logger  *zap.Logger
}

// New binds the adapter to the token deployed at addr.
func New(addr common.Address, backend Backend, logger *zap.Logger) (*Token, error) {
	if backend == nil {
		return nil, errors.New("erc20: backend is required")
	}
	if addr == (common.Address{}) {
		return nil, errors.New("erc20: token address is zero")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	parsed, err := abi.JSON(strings.NewReader(ERC20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC-20 ABI: %w", err)
	}
	cache, err := lru.New(codeCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create code cache: %w", err)
	}

	return &Token{
		addr:    addr,
		backend: backend,
		abi:     parsed,
		code:    cache,
		timeout: defaultCallTimeout,
		logger:  logger,
	}, nil
}

// Address implements token.Asset.
func (t *Token) Address() common.Address {
	return t.addr
}

// BalanceOf implements token.Asset.
func (t *Token) BalanceOf(holder common.Address) (*big.Int, error) {
	input, err := t.abi.Pack("balanceOf", holder)
	if err != nil {
		return nil, fmt.Errorf("failed to pack balanceOf: %w", err)
	}
	ret, err := t.call(common.Address{}, input)
	if err != nil {
		return nil, err
	}
	out, err := t.abi.Unpack("balanceOf", ret)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack balanceOf: %w", err)
	}
	bal, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf result type %T", out[0])
	}
	return bal, nil
}

// Transfer implements token.Asset. An empty return is reported as-is;
// the guard decides what it means.
func (t *Token) Transfer(caller, to common.Address, amount *big.Int) (token.Result, error) {
	input, err := t.abi.Pack("transfer", to, amount)
	if err != nil {
		return token.Result{}, fmt.Errorf("failed to pack transfer: %w", err)
	}
	ret, err := t.call(caller, input)
	if err != nil {
		return token.Result{}, err
	}
	return t.transferResult("transfer", ret)
}

// TransferFrom implements token.Asset.
func (t *Token) TransferFrom(caller, from, to common.Address, amount *big.Int) (token.Result, error) {
	input, err := t.abi.Pack("transferFrom", from, to, amount)
	if err != nil {
		return token.Result{}, fmt.Errorf("failed to pack transferFrom: %w", err)
	}
	ret, err := t.call(caller, input)
	if err != nil {
		return token.Result{}, err
	}
	return t.transferResult("transferFrom", ret)
}

// IsContract implements token.CodeReader. Lookups hit the backend once
// per address and are cached after that.
func (t *Token) IsContract(addr common.Address) bool {
	if cached, ok := t.code.Get(addr); ok {
		return cached.(bool)
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()

	code, err := t.backend.CodeAt(ctx, addr, nil)
	if err != nil {
		t.logger.Warn("code lookup failed",
			zap.String("address", addr.Hex()),
			zap.Error(err))
		return false
	}
	isContract := len(code) > 0
	t.code.Add(addr, isContract)
	return isContract
}

func (t *Token) call(from common.Address, input []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()

	to := t.addr
	return t.backend.CallContract(ctx, ethereum.CallMsg{
		From: from,
		To:   &to,
		Data: input,
	}, nil)
}

// transferResult reads a transfer-style return under the dual
// convention: no data at all, or one ABI-encoded boolean.
func (t *Token) transferResult(name string, ret []byte) (token.Result, error) {
	if len(ret) == 0 {
		return token.Silent(), nil
	}
	out, err := t.abi.Unpack(name, ret)
	if err != nil {
		return token.Result{}, fmt.Errorf("failed to unpack %s: %w", name, err)
	}
	v, ok := out[0].(bool)
	if !ok {
		return token.Result{}, fmt.Errorf("unexpected %s result type %T", name, out[0])
	}
	return token.Bool(v), nil
}
