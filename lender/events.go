package lender

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Op names a ledger-touching operation in records, logs, and metrics.
type Op string

const (
	OpFlash   Op = "flash"
	OpSync    Op = "sync"
	OpDefund  Op = "defund"
	OpDeposit Op = "deposit"
	OpEnd     Op = "end"
)

// Settlement is the record emitted after a successful flash.
type Settlement struct {
	Asset  common.Address
	Amount *big.Int
	Fee    *big.Int
	// Depth is the settlement nesting level, 1 for a top-level flash.
	Depth int
}

// ReserveChange is the record emitted by funding and sweep operations.
type ReserveChange struct {
	Op Op
	// Counterparty is the depositor or sweep recipient; zero for sync.
	Counterparty common.Address
	// Amount moved, nil for sync.
	Amount *big.Int
	// Reserves is the ledger value after the operation.
	Reserves *big.Int
}

// Recorder observes settlement activity. Implementations run inside the
// settlement path and must not fail or block.
type Recorder interface {
	RecordSettlement(s Settlement)
	RecordReserveChange(rc ReserveChange)
	RecordFault(op Op, err error)
}

type nopRecorder struct{}

func (nopRecorder) RecordSettlement(Settlement)       {}
func (nopRecorder) RecordReserveChange(ReserveChange) {}
func (nopRecorder) RecordFault(Op, error)             {}
