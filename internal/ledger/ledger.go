// Package ledger owns account records: creation, lookup, and account number
// generation. Persistence lives behind store.LedgerStore; session handling
// lives in the engine.
package ledger

import (
	"fmt"
	"math/rand/v2"

	"atm-ledger-go/internal/models"

	"go.uber.org/zap"
)

const (
	// AccountNumberDigits is the width of generated account numbers.
	AccountNumberDigits = 10

	// maxNumberAttempts bounds the retry-until-unique loop. The numeric space
	// (10^10) is far larger than any expected account count, so the cap is
	// never hit in practice.
	maxNumberAttempts = 10000
)

// Exists reports whether name has a record in the ledger.
func Exists(l models.Ledger, name string) bool {
	_, ok := l[name]
	return ok
}

// CreateAccount constructs a record with zero balance and empty
// maps/sequences, generates a unique account number when enabled, and inserts
// it into the ledger under name.
func CreateAccount(l models.Ledger, name, pin string, cfg models.EngineConfig) (*models.Account, error) {
	if Exists(l, name) {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateAccount, name)
	}

	account := &models.Account{Pin: pin}
	account.Normalize()

	if cfg.AccountNumbers {
		number, err := GenerateAccountNumber(l, AccountNumberDigits)
		if err != nil {
			return nil, err
		}
		account.AccountNumber = number
	}

	l[name] = account
	zap.L().Info("Account created",
		zap.String("name", name),
		zap.String("account_number", account.AccountNumber))
	return account, nil
}

// GenerateAccountNumber draws a random numeric string of the given width and
// rejects collisions against every existing record's number. Uniqueness is
// checked against an indexed set, not a per-draw scan.
func GenerateAccountNumber(l models.Ledger, digits int) (string, error) {
	if digits <= 0 || digits > 18 {
		return "", fmt.Errorf("account number width out of range: %d", digits)
	}

	taken := make(map[string]struct{}, len(l))
	for _, account := range l {
		if account.AccountNumber != "" {
			taken[account.AccountNumber] = struct{}{}
		}
	}

	space := int64(1)
	for i := 0; i < digits; i++ {
		space *= 10
	}

	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		number := fmt.Sprintf("%0*d", digits, rand.Int64N(space))
		if _, collision := taken[number]; !collision {
			return number, nil
		}
	}
	return "", ErrNumberSpaceExhausted
}
