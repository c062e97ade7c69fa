// Package lender implements a single-asset flash-loan custodian: it holds
// reserves of one fungible asset and lends any portion of them for the
// duration of a borrower callback, accepting the loan only if principal
// plus fee is back in custody by the time the callback returns.
//
// Execution is synchronous and single-threaded per invocation; nothing
// here locks around the ledger. Re-entrant calls are deliberately allowed
// and are kept honest by per-call reconciliation, not by mutual exclusion.
package lender

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/basisfi/flashlend/token"
	"github.com/basisfi/flashlend/utils/math"
)

// Environment is what a custodian requires from its execution context:
// code-existence queries and transactional state control. Every mutating
// operation runs inside a snapshot and either releases it on success or
// reverts to it on failure, so a fault undoes the operation and any nested
// re-entrant operations it triggered.
type Environment interface {
	token.CodeReader
	Snapshot() int
	RevertToSnapshot(id int)
	ReleaseSnapshot(id int)
}

// Config fixes a custodian's immutable parameters.
type Config struct {
	// Address is the custodian's own account, the holder of reserves. It
	// must be registered in the environment before use so the ledger takes
	// part in rollbacks.
	Address common.Address
	// Owner is the only principal allowed to drain the custodian.
	Owner common.Address
	// FeeBps prices loans in basis points of the principal.
	FeeBps uint64
	// Logger and Recorder are optional; nil disables them.
	Logger   *zap.Logger
	Recorder Recorder
}

// core is the settlement state machine shared by both lender variants.
type core struct {
	addr   common.Address
	owner  common.Address
	asset  common.Address
	feeBps uint64
	mode   FundingMode

	guard *token.Guard
	env   Environment

	// reserves is the sole piece of mutable protocol state: funds believed
	// available to lend, never observed above the actual balance after a
	// successful operation.
	reserves *big.Int
	depth    int

	log *zap.Logger
	rec Recorder
}

func newCore(env Environment, asset token.Asset, cfg Config, mode FundingMode) (core, error) {
	if env == nil {
		return core{}, errors.New("lender: environment is required")
	}
	if asset == nil {
		return core{}, errors.New("lender: asset is required")
	}
	if asset.Address() == (common.Address{}) {
		return core{}, errors.New("lender: asset address is zero")
	}
	if cfg.Address == (common.Address{}) {
		return core{}, errors.New("lender: custodian address is zero")
	}
	if cfg.Owner == (common.Address{}) {
		return core{}, errors.New("lender: owner address is zero")
	}

	guard, err := token.NewGuard(asset, env)
	if err != nil {
		return core{}, err
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	rec := cfg.Recorder
	if rec == nil {
		rec = nopRecorder{}
	}

	return core{
		addr:     cfg.Address,
		owner:    cfg.Owner,
		asset:    asset.Address(),
		feeBps:   cfg.FeeBps,
		mode:     mode,
		guard:    guard,
		env:      env,
		reserves: new(big.Int),
		log:      log,
		rec:      rec,
	}, nil
}

// Flash lends amount to receiver for the duration of the callback and
// accepts the loan only if the custodian's balance afterward covers the
// reserves at entry plus the quoted fee. Any failure restores balances and
// ledger exactly as they were. The callback's payload is returned
// verbatim.
func (c *core) Flash(caller, receiver, asset common.Address, amount *big.Int, data []byte, cb Callback) ([]byte, error) {
	if err := c.checkAsset(asset); err != nil {
		return nil, c.fail(OpFlash, err)
	}
	if err := checkAmount(amount); err != nil {
		return nil, c.fail(OpFlash, err)
	}

	// Quote. An amount beyond reserves is not rejected here: it draws the
	// Unavailable sentinel as its fee and dies at reconciliation.
	fee := c.quoteFee(amount)
	entry := math.Copy(c.reserves)

	snap := c.env.Snapshot()
	committed := false
	defer func() {
		if committed {
			c.env.ReleaseSnapshot(snap)
		} else {
			c.env.RevertToSnapshot(snap)
		}
	}()

	c.depth++
	defer func() { c.depth-- }()

	c.log.Debug("flash disbursing",
		zap.String("receiver", receiver.Hex()),
		zap.String("amount", amount.String()),
		zap.String("fee", fee.String()),
		zap.Int("depth", c.depth))

	// Disburse. The ledger drops before the transfer so a re-entrant
	// callback sees reduced availability; it is clamped at zero because
	// the counter is unsigned.
	c.reserves = math.SubClamped(c.reserves, amount)
	if err := c.guard.Transfer(c.addr, receiver, amount); err != nil {
		return nil, c.fail(OpFlash, err)
	}

	loan := &Loan{
		Initiator: caller,
		Custodian: c.addr,
		Asset:     asset,
		Amount:    math.Copy(amount),
		Fee:       math.Copy(fee),
		Data:      data,
	}
	payload, err := cb.invoke(loan)
	if err != nil {
		return nil, c.fail(OpFlash, fmt.Errorf("%w: %v", ErrCallbackFailed, err))
	}

	// Reconcile. Repayment is expected to have arrived as a side effect of
	// the callback; only the resulting balance is observed.
	actual, err := c.guard.Balance(c.addr)
	if err != nil {
		return nil, c.fail(OpFlash, err)
	}
	expected := new(big.Int).Add(entry, fee)
	if actual.Cmp(expected) < 0 {
		return nil, c.fail(OpFlash, fmt.Errorf("%w: expected %s, actual %s",
			ErrInsufficientRepayment, expected, actual))
	}
	c.reserves = math.Copy(actual)
	committed = true

	c.log.Info("flash settled",
		zap.String("asset", asset.Hex()),
		zap.String("amount", amount.String()),
		zap.String("fee", fee.String()),
		zap.Int("depth", c.depth))
	c.rec.RecordSettlement(Settlement{
		Asset:  asset,
		Amount: math.Copy(amount),
		Fee:    math.Copy(fee),
		Depth:  c.depth,
	})
	return payload, nil
}

// MaxFlashLoan returns the funds currently available to lend.
func (c *core) MaxFlashLoan(asset common.Address) (*big.Int, error) {
	if err := c.checkAsset(asset); err != nil {
		return nil, err
	}
	return math.Copy(c.reserves), nil
}

// FlashFee quotes the fee for borrowing amount, or Unavailable when the
// amount exceeds current reserves.
func (c *core) FlashFee(asset common.Address, amount *big.Int) (*big.Int, error) {
	if err := c.checkAsset(asset); err != nil {
		return nil, err
	}
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	return c.quoteFee(amount), nil
}

// Reserves returns the current ledger value.
func (c *core) Reserves() *big.Int {
	return math.Copy(c.reserves)
}

// Depth reports the current settlement nesting level; 0 outside a flash.
// For observing re-entrant flows, not for blocking them.
func (c *core) Depth() int {
	return c.depth
}

// Address returns the custodian's own account.
func (c *core) Address() common.Address {
	return c.addr
}

// Owner returns the privileged principal.
func (c *core) Owner() common.Address {
	return c.owner
}

// Asset returns the managed asset identifier.
func (c *core) Asset() common.Address {
	return c.asset
}

// FeeBps returns the configured fee rate in basis points.
func (c *core) FeeBps() uint64 {
	return c.feeBps
}

// Mode returns the funding strategy this custodian was built with.
func (c *core) Mode() FundingMode {
	return c.mode
}

// sweep moves the custodian's entire balance to the owner and returns the
// amount moved.
func (c *core) sweep() (*big.Int, error) {
	bal, err := c.guard.Balance(c.addr)
	if err != nil {
		return nil, err
	}
	if err := c.guard.Transfer(c.addr, c.owner, bal); err != nil {
		return nil, err
	}
	return bal, nil
}

func (c *core) checkAsset(asset common.Address) error {
	if asset != c.asset {
		return fmt.Errorf("%w: %s", ErrUnsupportedAsset, asset.Hex())
	}
	return nil
}

func (c *core) requireOwner(caller common.Address) error {
	if caller != c.owner {
		return fmt.Errorf("%w: %s", ErrNotOwner, caller.Hex())
	}
	return nil
}

// fail logs and records an aborted operation and hands the fault back
// unchanged.
func (c *core) fail(op Op, err error) error {
	c.log.Warn("operation aborted",
		zap.String("op", string(op)),
		zap.Error(err))
	c.rec.RecordFault(op, err)
	return err
}

func (c *core) record(rc ReserveChange) {
	c.rec.RecordReserveChange(rc)
}

func checkAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	return nil
}

// SnapshotState implements world.Stateful; the reserve ledger is the only
// mutable state.
func (c *core) SnapshotState() any {
	return math.Copy(c.reserves)
}

// RestoreState implements world.Stateful.
func (c *core) RestoreState(state any) {
	c.reserves = math.Copy(state.(*big.Int))
}

// StateDigest implements world.Digester.
func (c *core) StateDigest() []byte {
	return c.reserves.Bytes()
}
