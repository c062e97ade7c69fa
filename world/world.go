// Package world provides the in-memory execution environment the custodian
// runs against: a registry of contracts keyed by address, with stacked
// snapshots over their state so a failed settlement can be undone in one
// step.
package world

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

var (
	ErrZeroAddress  = errors.New("world: cannot register the zero address")
	ErrAddressInUse = errors.New("world: address already registered")
)

// Stateful contracts take part in snapshot and rollback. SnapshotState
// must return a self-contained copy; neither method may call back into the
// World.
type Stateful interface {
	SnapshotState() any
	RestoreState(state any)
}

// Digester contracts contribute to the world fingerprint. The digest must
// be deterministic for a given state.
type Digester interface {
	StateDigest() []byte
}

// World is a registry of contracts plus a stack of state snapshots.
// Registrations are not journaled: contracts are expected to be registered
// during setup, before any snapshot is taken.
type World struct {
	mu        sync.RWMutex
	contracts map[common.Address]any
	snaps     []snapshot
	nextID    int
	logger    *zap.Logger
}

type snapshot struct {
	id     int
	states map[common.Address]any
}

// New creates an empty world. A nil logger disables logging.
func New(logger *zap.Logger) *World {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &World{
		contracts: make(map[common.Address]any),
		logger:    logger,
	}
}

// Register binds a contract to an address.
func (w *World) Register(addr common.Address, contract any) error {
	if addr == (common.Address{}) {
		return ErrZeroAddress
	}
	if contract == nil {
		return fmt.Errorf("world: nil contract for %s", addr.Hex())
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.contracts[addr]; exists {
		return fmt.Errorf("%w: %s", ErrAddressInUse, addr.Hex())
	}
	w.contracts[addr] = contract

	w.logger.Debug("contract registered",
		zap.String("address", addr.Hex()),
		zap.Int("contracts", len(w.contracts)))
	return nil
}

// ContractAt returns the contract registered at addr.
func (w *World) ContractAt(addr common.Address) (any, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	c, ok := w.contracts[addr]
	return c, ok
}

// IsContract reports whether addr has a registered contract. Unregistered
// addresses behave like externally owned accounts: they can hold token
// balances but expose no code.
func (w *World) IsContract(addr common.Address) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	_, ok := w.contracts[addr]
	return ok
}

// Snapshot captures the state of every Stateful contract and returns a
// revision id. Snapshots nest: a nested operation takes its own snapshot
// and must release or revert it before the enclosing one is resolved.
func (w *World) Snapshot() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	states := make(map[common.Address]any)
	for addr, c := range w.contracts {
		if s, ok := c.(Stateful); ok {
			states[addr] = s.SnapshotState()
		}
	}

	id := w.nextID
	w.nextID++
	w.snaps = append(w.snaps, snapshot{id: id, states: states})

	w.logger.Debug("snapshot taken", zap.Int("id", id), zap.Int("depth", len(w.snaps)))
	return id
}

// RevertToSnapshot restores every Stateful contract to the given revision
// and invalidates it along with any deeper revisions. An unknown id is a
// caller bug and panics, matching the StateDB contract.
func (w *World) RevertToSnapshot(id int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	idx := w.findSnapshot(id)
	if idx < 0 {
		panic(fmt.Errorf("world: revision id %d cannot be reverted", id))
	}

	for addr, state := range w.snaps[idx].states {
		if s, ok := w.contracts[addr].(Stateful); ok {
			s.RestoreState(state)
		}
	}
	w.snaps = w.snaps[:idx]

	w.logger.Debug("state reverted", zap.Int("id", id), zap.Int("depth", len(w.snaps)))
}

// ReleaseSnapshot discards the given revision and any deeper ones without
// restoring state. Called when the operation that took the snapshot
// commits. An unknown id panics.
func (w *World) ReleaseSnapshot(id int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	idx := w.findSnapshot(id)
	if idx < 0 {
		panic(fmt.Errorf("world: revision id %d cannot be released", id))
	}
	w.snaps = w.snaps[:idx]
}

func (w *World) findSnapshot(id int) int {
	for i := len(w.snaps) - 1; i >= 0; i-- {
		if w.snaps[i].id == id {
			return i
		}
	}
	return -1
}

// Fingerprint hashes the registry layout and every Digester contract's
// state digest into a single value. Two worlds with the same contracts and
// state fingerprint identically, which is what rollback tests assert.
func (w *World) Fingerprint() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()

	addrs := make([]common.Address, 0, len(w.contracts))
	for addr := range w.contracts {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool {
		return addrs[i].Cmp(addrs[j]) < 0
	})

	h := xxhash.New()
	for _, addr := range addrs {
		_, _ = h.Write(addr.Bytes())
		if d, ok := w.contracts[addr].(Digester); ok {
			_, _ = h.Write(d.StateDigest())
		}
	}
	return h.Sum64()
}
