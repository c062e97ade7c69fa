package lender

import "errors"

var (
	// ErrUnsupportedAsset rejects any asset identifier other than the one
	// fixed at construction.
	ErrUnsupportedAsset = errors.New("lender: unsupported asset")

	// ErrNotOwner rejects a privileged operation from a caller that is not
	// the configured owner.
	ErrNotOwner = errors.New("lender: caller is not the owner")

	// ErrInvalidAmount rejects nil or negative amounts, which the wire
	// format cannot express but an in-process caller can.
	ErrInvalidAmount = errors.New("lender: invalid amount")

	// ErrCallbackFailed reports a borrower callback that failed or
	// panicked.
	ErrCallbackFailed = errors.New("lender: borrower callback failed")

	// ErrInsufficientRepayment reports a post-callback balance below the
	// expected principal plus fee.
	ErrInsufficientRepayment = errors.New("lender: insufficient repayment")
)
