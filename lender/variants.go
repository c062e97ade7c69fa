package lender

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/basisfi/flashlend/token"
	"github.com/basisfi/flashlend/utils/math"
)

// FundingMode names the strategy a custodian uses to bring reserves in.
type FundingMode string

const (
	// ModeSync reconciles reserves from the ambient asset balance on
	// demand; the owner drains with Defund.
	ModeSync FundingMode = "sync"
	// ModeDeposit grows reserves only through explicit deposits; the
	// owner drains with End.
	ModeDeposit FundingMode = "deposit"
)

// FlashLender is the settlement surface shared by both variants.
type FlashLender interface {
	Flash(caller, receiver, asset common.Address, amount *big.Int, data []byte, cb Callback) ([]byte, error)
	MaxFlashLoan(asset common.Address) (*big.Int, error)
	FlashFee(asset common.Address, amount *big.Int) (*big.Int, error)
	Reserves() *big.Int
	Asset() common.Address
	Owner() common.Address
	Mode() FundingMode
}

// SyncLender is the custodial variant: anyone may reconcile the ledger
// with the actual balance, and only the owner may drain it.
type SyncLender struct {
	core
}

// NewSyncLender builds a sync/defund custodian. The returned lender must
// be registered in the environment at cfg.Address before use.
func NewSyncLender(env Environment, asset token.Asset, cfg Config) (*SyncLender, error) {
	c, err := newCore(env, asset, cfg, ModeSync)
	if err != nil {
		return nil, err
	}
	return &SyncLender{core: c}, nil
}

// Sync sets the ledger to the actual balance. Callable by anyone; it is
// how funds that arrived by direct transfer become lendable.
func (s *SyncLender) Sync() error {
	bal, err := s.guard.Balance(s.addr)
	if err != nil {
		return s.fail(OpSync, err)
	}
	s.reserves = math.Copy(bal)

	s.log.Info("reserves synced", zap.String("reserves", bal.String()))
	s.record(ReserveChange{Op: OpSync, Reserves: math.Copy(bal)})
	return nil
}

// Defund zeroes the ledger and transfers the entire balance to the owner.
// Owner only.
func (s *SyncLender) Defund(caller common.Address) error {
	if err := s.requireOwner(caller); err != nil {
		return s.fail(OpDefund, err)
	}

	snap := s.env.Snapshot()
	s.reserves = new(big.Int)
	swept, err := s.sweep()
	if err != nil {
		s.env.RevertToSnapshot(snap)
		return s.fail(OpDefund, err)
	}
	s.env.ReleaseSnapshot(snap)

	s.log.Info("custodian defunded",
		zap.String("owner", s.owner.Hex()),
		zap.String("swept", swept.String()))
	s.record(ReserveChange{
		Op:           OpDefund,
		Counterparty: s.owner,
		Amount:       swept,
		Reserves:     new(big.Int),
	})
	return nil
}

// DepositLender is the depositor-tracked variant: reserves grow only
// through Deposit, and the owner drains with End.
type DepositLender struct {
	core
}

// NewDepositLender builds a deposit/end custodian. The returned lender
// must be registered in the environment at cfg.Address before use.
func NewDepositLender(env Environment, asset token.Asset, cfg Config) (*DepositLender, error) {
	c, err := newCore(env, asset, cfg, ModeDeposit)
	if err != nil {
		return nil, err
	}
	return &DepositLender{core: c}, nil
}

// Deposit pulls amount from the caller into custody and credits the
// ledger. Callable by anyone with a sufficient allowance for the
// custodian.
func (d *DepositLender) Deposit(caller common.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return d.fail(OpDeposit, err)
	}

	snap := d.env.Snapshot()
	if err := d.guard.TransferFrom(d.addr, caller, d.addr, amount); err != nil {
		d.env.RevertToSnapshot(snap)
		return d.fail(OpDeposit, err)
	}
	d.reserves = new(big.Int).Add(d.reserves, amount)
	d.env.ReleaseSnapshot(snap)

	d.log.Info("deposit accepted",
		zap.String("from", caller.Hex()),
		zap.String("amount", amount.String()))
	d.record(ReserveChange{
		Op:           OpDeposit,
		Counterparty: caller,
		Amount:       math.Copy(amount),
		Reserves:     math.Copy(d.reserves),
	})
	return nil
}

// End transfers the entire balance to the owner. Owner only.
//
// The ledger is deliberately left as-is, matching the original protocol:
// after End, Reserves overstates the true balance until the next Deposit
// brings funds back in, and any flash attempted in between fails at
// disbursement or reconciliation.
func (d *DepositLender) End(caller common.Address) error {
	if err := d.requireOwner(caller); err != nil {
		return d.fail(OpEnd, err)
	}

	snap := d.env.Snapshot()
	swept, err := d.sweep()
	if err != nil {
		d.env.RevertToSnapshot(snap)
		return d.fail(OpEnd, err)
	}
	d.env.ReleaseSnapshot(snap)

	d.log.Info("custodian ended",
		zap.String("owner", d.owner.Hex()),
		zap.String("swept", swept.String()))
	d.record(ReserveChange{
		Op:           OpEnd,
		Counterparty: d.owner,
		Amount:       swept,
		Reserves:     math.Copy(d.reserves),
	})
	return nil
}
