package wire

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basisfi/flashlend/lender"
)

// Selectors must match keccak-derived 4-byte ids for the canonical
// signatures, or no external caller could ever reach us.
func TestSelectorsMatchSignatures(t *testing.T) {
	codec, err := NewCodec()
	require.NoError(t, err)

	sigs := map[string]string{
		"flash":        "flash(address,address,uint256,bytes,bytes24)",
		"maxFlashLoan": "maxFlashLoan(address)",
		"flashFee":     "flashFee(address,uint256)",
		"sync":         "sync()",
		"defund":       "defund()",
		"deposit":      "deposit(uint256)",
		"end":          "end()",
	}
	for name, sig := range sigs {
		method, ok := codec.abi.Methods[name]
		require.True(t, ok, "method %s missing from ABI", name)
		assert.Equal(t, sig, method.Sig)
		assert.Equal(t, crypto.Keccak256([]byte(sig))[:4], method.ID, "selector mismatch for %s", name)
	}
	assert.Len(t, codec.abi.Methods, len(sigs))
}

func TestCallbackPacking(t *testing.T) {
	target := common.HexToAddress("0x00000000000000000000000000000000deadbeef")
	method := lender.MethodToken{0x01, 0x02, 0x03, 0x04}

	desc := PackCallback(target, method)
	gotTarget, gotMethod := UnpackCallback(desc)
	assert.Equal(t, target, gotTarget)
	assert.Equal(t, method, gotMethod)
}
