package ledger

import "errors"

// Sentinel errors for ledger record operations
var (
	// ErrDuplicateAccount is an internal precondition violation: callers must
	// check existence before creating. It should not surface to the user
	// under normal command flow.
	ErrDuplicateAccount = errors.New("account already exists")

	// ErrNumberSpaceExhausted means the generator hit its retry cap without
	// drawing a unique account number. Unreachable at realistic account
	// counts; the cap exists so the loop has a hard bound.
	ErrNumberSpaceExhausted = errors.New("unable to generate unique account number")
)
