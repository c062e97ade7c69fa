package token

import "errors"

var (
	// ErrNotAContract rejects a counterparty address with no executable
	// code behind it.
	ErrNotAContract = errors.New("token: address has no contract code")

	// ErrAssetCallFailed reports a balance query that did not succeed.
	ErrAssetCallFailed = errors.New("token: asset balance query failed")

	// ErrTransferFailed reports a transfer call that failed outright or
	// returned an explicit false.
	ErrTransferFailed = errors.New("token: transfer did not succeed")
)
