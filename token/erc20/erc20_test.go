package erc20

import (
	"context"
	"errors"
	"math/big"
	"testing"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var (
	tokenAddr  = common.HexToAddress("0x000000000000000000000000000000000000a55e")
	holderAddr = common.HexToAddress("0x0000000000000000000000000000000000001001")
	destAddr   = common.HexToAddress("0x0000000000000000000000000000000000002002")
)

// mockBackend replays canned responses and records what it was asked.
type mockBackend struct {
	ret     []byte
	callErr error
	calls   []ethereum.CallMsg

	code     map[common.Address][]byte
	codeErr  error
	codeHits int
}

func (m *mockBackend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	m.calls = append(m.calls, msg)
	return m.ret, m.callErr
}

func (m *mockBackend) CodeAt(_ context.Context, account common.Address, _ *big.Int) ([]byte, error) {
	m.codeHits++
	return m.code[account], m.codeErr
}

func newToken(t *testing.T, backend *mockBackend) *Token {
	t.Helper()
	tok, err := New(tokenAddr, backend, zaptest.NewLogger(t))
	require.NoError(t, err)
	return tok
}

func encodedBool(v bool) []byte {
	out := make([]byte, 32)
	if v {
		out[31] = 1
	}
	return out
}

func TestNewValidation(t *testing.T) {
	_, err := New(tokenAddr, nil, nil)
	assert.Error(t, err)

	_, err = New(common.Address{}, &mockBackend{}, nil)
	assert.Error(t, err)
}

func TestBalanceOf(t *testing.T) {
	backend := &mockBackend{ret: common.LeftPadBytes(big.NewInt(12345).Bytes(), 32)}
	tok := newToken(t, backend)

	bal, err := tok.BalanceOf(holderAddr)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(12345), bal)

	require.Len(t, backend.calls, 1)
	assert.Equal(t, tokenAddr, *backend.calls[0].To)
	// balanceOf selector then the padded holder address.
	assert.Equal(t, []byte{0x70, 0xa0, 0x82, 0x31}, backend.calls[0].Data[:4])
}

func TestTransferConventions(t *testing.T) {
	cases := []struct {
		name     string
		ret      []byte
		hasValue bool
		value    bool
	}{
		{"explicit true", encodedBool(true), true, true},
		{"explicit false", encodedBool(false), true, false},
		{"no return data", nil, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			backend := &mockBackend{ret: tc.ret}
			tok := newToken(t, backend)

			res, err := tok.Transfer(holderAddr, destAddr, big.NewInt(5))
			require.NoError(t, err)
			assert.Equal(t, tc.hasValue, res.HasValue)
			assert.Equal(t, tc.value, res.Value)

			require.Len(t, backend.calls, 1)
			assert.Equal(t, holderAddr, backend.calls[0].From)
			assert.Equal(t, []byte{0xa9, 0x05, 0x9c, 0xbb}, backend.calls[0].Data[:4])
		})
	}

	t.Run("call failure surfaces", func(t *testing.T) {
		backend := &mockBackend{callErr: errors.New("execution reverted")}
		tok := newToken(t, backend)

		_, err := tok.Transfer(holderAddr, destAddr, big.NewInt(5))
		assert.Error(t, err)
	})
}

func TestTransferFrom(t *testing.T) {
	backend := &mockBackend{ret: encodedBool(true)}
	tok := newToken(t, backend)

	res, err := tok.TransferFrom(tokenAddr, holderAddr, destAddr, big.NewInt(9))
	require.NoError(t, err)
	assert.True(t, res.OK())

	require.Len(t, backend.calls, 1)
	assert.Equal(t, []byte{0x23, 0xb8, 0x72, 0xdd}, backend.calls[0].Data[:4])
}

func TestIsContractCaches(t *testing.T) {
	backend := &mockBackend{code: map[common.Address][]byte{
		tokenAddr: {0x60, 0x60},
	}}
	tok := newToken(t, backend)

	assert.True(t, tok.IsContract(tokenAddr))
	assert.True(t, tok.IsContract(tokenAddr))
	assert.Equal(t, 1, backend.codeHits, "second lookup must come from the cache")

	assert.False(t, tok.IsContract(holderAddr))

	t.Run("backend errors read as no code and stay uncached", func(t *testing.T) {
		failing := &mockBackend{codeErr: errors.New("connection refused")}
		tok := newToken(t, failing)

		assert.False(t, tok.IsContract(tokenAddr))
		assert.False(t, tok.IsContract(tokenAddr))
		assert.Equal(t, 2, failing.codeHits)
	})
}
