package token

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// ReturnMode selects which transfer return convention a Memory token
// follows. Real assets differ here, which is why the dual-success rule
// exists at all.
type ReturnMode int

const (
	// ReturnBool reports transfer outcomes with an explicit boolean.
	ReturnBool ReturnMode = iota
	// ReturnNothing reports success by returning no value at all.
	ReturnNothing
)

// Memory is an in-memory fungible token: balances, allowances, and a mint
// for setup. It implements Asset and takes part in world snapshots, so a
// reverted settlement restores every balance it touched.
type Memory struct {
	mu         sync.RWMutex
	addr       common.Address
	mode       ReturnMode
	balances   map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int
	supply     *big.Int
	logger     *zap.Logger
}

// NewMemory creates an empty token ledger bound to addr.
func NewMemory(addr common.Address, mode ReturnMode, logger *zap.Logger) *Memory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Memory{
		addr:       addr,
		mode:       mode,
		balances:   make(map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[common.Address]*big.Int),
		supply:     new(big.Int),
		logger:     logger,
	}
}

// Address implements Asset.
func (m *Memory) Address() common.Address {
	return m.addr
}

// TotalSupply returns the minted supply.
func (m *Memory) TotalSupply() *big.Int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return new(big.Int).Set(m.supply)
}

// Mint credits amount to the holder. Setup only; there is no burn.
func (m *Memory) Mint(to common.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.credit(to, amount)
	m.supply.Add(m.supply, amount)

	m.logger.Debug("minted",
		zap.String("to", to.Hex()),
		zap.String("amount", amount.String()))
	return nil
}

// BalanceOf implements Asset. Unknown holders have a zero balance.
func (m *Memory) BalanceOf(holder common.Address) (*big.Int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if bal, ok := m.balances[holder]; ok {
		return new(big.Int).Set(bal), nil
	}
	return new(big.Int), nil
}

// Approve lets spender move up to amount on owner's behalf.
func (m *Memory) Approve(owner, spender common.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.allowances[owner]
	if !ok {
		row = make(map[common.Address]*big.Int)
		m.allowances[owner] = row
	}
	row[spender] = new(big.Int).Set(amount)
	return nil
}

// Allowance returns what spender may still move on owner's behalf.
func (m *Memory) Allowance(owner, spender common.Address) *big.Int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if row, ok := m.allowances[owner]; ok {
		if a, ok := row[spender]; ok {
			return new(big.Int).Set(a)
		}
	}
	return new(big.Int)
}

// Transfer implements Asset.
func (m *Memory) Transfer(caller, to common.Address, amount *big.Int) (Result, error) {
	if err := checkAmount(amount); err != nil {
		return Result{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.debit(caller, amount); err != nil {
		return Result{}, err
	}
	m.credit(to, amount)
	return m.result(), nil
}

// TransferFrom implements Asset. The caller spends its allowance from the
// owner; there is no self-transfer shortcut.
func (m *Memory) TransferFrom(caller, from, to common.Address, amount *big.Int) (Result, error) {
	if err := checkAmount(amount); err != nil {
		return Result{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	row := m.allowances[from]
	granted := row[caller]
	if granted == nil || granted.Cmp(amount) < 0 {
		return Result{}, fmt.Errorf("memory token: allowance of %s for %s below %s",
			from.Hex(), caller.Hex(), amount)
	}
	if err := m.debit(from, amount); err != nil {
		return Result{}, err
	}
	granted.Sub(granted, amount)
	m.credit(to, amount)
	return m.result(), nil
}

func (m *Memory) result() Result {
	if m.mode == ReturnNothing {
		return Silent()
	}
	return Bool(true)
}

func (m *Memory) debit(holder common.Address, amount *big.Int) error {
	bal := m.balances[holder]
	if bal == nil && amount.Sign() == 0 {
		return nil
	}
	if bal == nil || bal.Cmp(amount) < 0 {
		return fmt.Errorf("memory token: balance of %s below %s", holder.Hex(), amount)
	}
	bal.Sub(bal, amount)
	return nil
}

func (m *Memory) credit(holder common.Address, amount *big.Int) {
	if bal, ok := m.balances[holder]; ok {
		bal.Add(bal, amount)
		return
	}
	m.balances[holder] = new(big.Int).Set(amount)
}

func checkAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return errors.New("memory token: invalid amount")
	}
	return nil
}

// memoryState is a deep copy of the ledger for snapshotting.
type memoryState struct {
	balances   map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int
	supply     *big.Int
}

// SnapshotState implements world.Stateful.
func (m *Memory) SnapshotState() any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := memoryState{
		balances:   make(map[common.Address]*big.Int, len(m.balances)),
		allowances: make(map[common.Address]map[common.Address]*big.Int, len(m.allowances)),
		supply:     new(big.Int).Set(m.supply),
	}
	for holder, bal := range m.balances {
		st.balances[holder] = new(big.Int).Set(bal)
	}
	for owner, row := range m.allowances {
		copied := make(map[common.Address]*big.Int, len(row))
		for spender, a := range row {
			copied[spender] = new(big.Int).Set(a)
		}
		st.allowances[owner] = copied
	}
	return st
}

// RestoreState implements world.Stateful.
func (m *Memory) RestoreState(state any) {
	st := state.(memoryState)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.balances = make(map[common.Address]*big.Int, len(st.balances))
	for holder, bal := range st.balances {
		m.balances[holder] = new(big.Int).Set(bal)
	}
	m.allowances = make(map[common.Address]map[common.Address]*big.Int, len(st.allowances))
	for owner, row := range st.allowances {
		copied := make(map[common.Address]*big.Int, len(row))
		for spender, a := range row {
			copied[spender] = new(big.Int).Set(a)
		}
		m.allowances[owner] = copied
	}
	m.supply = new(big.Int).Set(st.supply)
}

// StateDigest implements world.Digester. Holders and owners are visited in
// address order so the digest is deterministic.
func (m *Memory) StateDigest() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]byte, 0, 64*(len(m.balances)+1))
	out = append(out, m.supply.Bytes()...)

	for _, holder := range sortedKeys(m.balances) {
		out = append(out, holder.Bytes()...)
		out = append(out, m.balances[holder].Bytes()...)
	}
	for _, owner := range sortedKeys(m.allowances) {
		out = append(out, owner.Bytes()...)
		row := m.allowances[owner]
		for _, spender := range sortedKeys(row) {
			out = append(out, spender.Bytes()...)
			out = append(out, row[spender].Bytes()...)
		}
	}
	return out
}

func sortedKeys[V any](m map[common.Address]V) []common.Address {
	keys := make([]common.Address, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Cmp(keys[j]) < 0
	})
	return keys
}
