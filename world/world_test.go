package world

import (
	"encoding/binary"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// counter is a minimal stateful contract for exercising rollback.
type counter struct {
	n uint64
}

func (c *counter) SnapshotState() any { return c.n }

func (c *counter) RestoreState(state any) { c.n = state.(uint64) }

func (c *counter) StateDigest() []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], c.n)
	return buf[:]
}

var (
	addrA = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	addrB = common.HexToAddress("0x00000000000000000000000000000000000000bb")
)

func TestRegister(t *testing.T) {
	w := New(zaptest.NewLogger(t))

	require.NoError(t, w.Register(addrA, &counter{}))

	err := w.Register(addrA, &counter{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAddressInUse)

	assert.ErrorIs(t, w.Register(common.Address{}, &counter{}), ErrZeroAddress)
	assert.Error(t, w.Register(addrB, nil))

	assert.True(t, w.IsContract(addrA))
	assert.False(t, w.IsContract(addrB))
	assert.False(t, w.IsContract(common.Address{}))

	c, ok := w.ContractAt(addrA)
	require.True(t, ok)
	assert.IsType(t, &counter{}, c)
}

func TestSnapshotRevert(t *testing.T) {
	w := New(zaptest.NewLogger(t))
	c := &counter{n: 1}
	require.NoError(t, w.Register(addrA, c))

	id := w.Snapshot()
	c.n = 99
	w.RevertToSnapshot(id)
	assert.Equal(t, uint64(1), c.n)
}

func TestNestedSnapshots(t *testing.T) {
	w := New(zaptest.NewLogger(t))
	c := &counter{n: 1}
	require.NoError(t, w.Register(addrA, c))

	outer := w.Snapshot()
	c.n = 2

	inner := w.Snapshot()
	c.n = 3
	w.ReleaseSnapshot(inner) // inner operation commits

	// Outer failure still rolls back the committed inner change.
	w.RevertToSnapshot(outer)
	assert.Equal(t, uint64(1), c.n)
}

func TestRevertInvalidatesDeeperRevisions(t *testing.T) {
	w := New(zaptest.NewLogger(t))
	c := &counter{n: 1}
	require.NoError(t, w.Register(addrA, c))

	outer := w.Snapshot()
	inner := w.Snapshot()

	w.RevertToSnapshot(outer)

	assert.Panics(t, func() { w.RevertToSnapshot(inner) })
	assert.Panics(t, func() { w.ReleaseSnapshot(inner) })
	assert.Panics(t, func() { w.RevertToSnapshot(12345) })
}

func TestFingerprint(t *testing.T) {
	w := New(zaptest.NewLogger(t))
	c := &counter{n: 7}
	require.NoError(t, w.Register(addrA, c))
	require.NoError(t, w.Register(addrB, &counter{n: 8}))

	before := w.Fingerprint()

	id := w.Snapshot()
	c.n = 1000
	assert.NotEqual(t, before, w.Fingerprint(), "state change must move the fingerprint")

	w.RevertToSnapshot(id)
	assert.Equal(t, before, w.Fingerprint(), "rollback must restore the fingerprint exactly")
}
