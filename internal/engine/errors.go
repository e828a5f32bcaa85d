package engine

import "errors"

// Sentinel errors for user-triggered operation failures. All of them are
// handled at the operation boundary: reported, operation aborted, no partial
// mutation, process continues.
var (
	ErrNotLoggedIn       = errors.New("no active session")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInsufficientFunds = errors.New("insufficient balance")
	ErrInvalidTransfer   = errors.New("transfer failed")
	ErrAuthentication    = errors.New("too many PIN attempts")
)
