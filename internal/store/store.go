package store

import (
	"context"
	"errors"

	"atm-ledger-go/internal/models"
)

// Sentinel errors shared across all backend implementations.
var (
	// ErrCorruptState means the persisted ledger exists but cannot be decoded
	// into the expected record schema. Fatal at startup: the engine must not
	// proceed with a partially parsed ledger.
	ErrCorruptState = errors.New("corrupt ledger state")

	// ErrPersistence means a snapshot write failed. The in-memory ledger
	// remains authoritative for the rest of the process lifetime, but the
	// failure must be surfaced to the user, not swallowed.
	ErrPersistence = errors.New("unable to persist ledger")
)

// LedgerStore defines the contract that every backend (JSON file, SQLite, ...)
// must satisfy. The persistence model is whole-snapshot: the full ledger is
// read once at startup and overwritten in full after every mutating
// operation. A reader that loads before or after a Save observes a complete
// consistent snapshot, never a partial one.
type LedgerStore interface {
	// Load reads the persisted ledger. A missing snapshot is not an error:
	// it yields an empty ledger. Decode failures wrap ErrCorruptState.
	Load(ctx context.Context) (models.Ledger, error)

	// Save replaces the persisted snapshot with the given ledger. Failures
	// wrap ErrPersistence.
	Save(ctx context.Context, ledger models.Ledger) error

	// Close releases backend resources.
	Close()
}
