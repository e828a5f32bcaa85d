/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"database/sql"
	"fmt"

	"atm-ledger-go/internal/models"
	"atm-ledger-go/internal/store"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.LedgerStore.
var _ store.LedgerStore = (*Service)(nil)

// Service is the SQLite snapshot backend. It satisfies the same
// whole-snapshot contract as the JSON file store: Save replaces every row in
// one transaction, Load reads the full record set back into a ledger.
type Service struct {
	db *sql.DB
}

func NewService(ctx context.Context, cfg models.StoreConfig) (*Service, error) {
	// Validate configuration
	if cfg.DatabasePath == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.DatabasePath))
	db, err := sql.Open("sqlite3", cfg.DatabasePath+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	// Single-process, single-writer model: one connection is all we need, and
	// it keeps ":memory:" databases coherent in tests.
	db.SetMaxOpenConns(1)

	// Test connection with timeout
	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := &Service{db: db}
	if err := service.initSchema(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

func (s *Service) initSchema() error {
	schema := `
	-- Account records
	CREATE TABLE IF NOT EXISTS accounts (
		name TEXT PRIMARY KEY,
		pin TEXT NOT NULL,
		account_number TEXT,
		balance INTEGER NOT NULL DEFAULT 0
	);

	-- Generated account numbers are unique across the record set
	CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_number
		ON accounts(account_number) WHERE account_number IS NOT NULL;

	-- Externally populated debt rows (owed_to / owed_from)
	CREATE TABLE IF NOT EXISTS debts (
		id TEXT PRIMARY KEY,
		account TEXT NOT NULL REFERENCES accounts(name) ON DELETE CASCADE,
		counterparty TEXT NOT NULL,
		direction TEXT NOT NULL CHECK (direction IN ('owed_to', 'owed_from')),
		amount INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_debts_account ON debts(account);

	-- Pending transfer notifications, drained at login
	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		account TEXT NOT NULL REFERENCES accounts(name) ON DELETE CASCADE,
		from_account TEXT NOT NULL,
		amount INTEGER NOT NULL,
		position INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_notifications_account ON notifications(account, position);

	-- Append-only transaction history
	CREATE TABLE IF NOT EXISTS history (
		id TEXT PRIMARY KEY,
		account TEXT NOT NULL REFERENCES accounts(name) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		entry TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_history_account ON history(account, position);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Load reads the full record set back into a ledger. An empty database yields
// an empty ledger.
func (s *Service) Load(ctx context.Context) (models.Ledger, error) {
	ledger := models.Ledger{}

	rows, err := s.db.QueryContext(ctx, queryGetAccounts)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to query accounts: %v", store.ErrCorruptState, err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	for rows.Next() {
		var (
			name   string
			pin    string
			number sql.NullString
			bal    int64
		)
		if err := rows.Scan(&name, &pin, &number, &bal); err != nil {
			return nil, fmt.Errorf("%w: unable to scan account row: %v", store.ErrCorruptState, err)
		}
		account := &models.Account{Pin: pin, AccountNumber: number.String, Balance: bal}
		account.Normalize()
		ledger[name] = account
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating account rows: %v", store.ErrCorruptState, err)
	}

	if err := s.loadDebts(ctx, ledger); err != nil {
		return nil, err
	}
	if err := s.loadNotifications(ctx, ledger); err != nil {
		return nil, err
	}
	if err := s.loadHistory(ctx, ledger); err != nil {
		return nil, err
	}

	zap.L().Info("Ledger loaded from database", zap.Int("accounts", len(ledger)))
	return ledger, nil
}

func (s *Service) loadDebts(ctx context.Context, ledger models.Ledger) error {
	rows, err := s.db.QueryContext(ctx, queryGetDebts)
	if err != nil {
		return fmt.Errorf("%w: unable to query debts: %v", store.ErrCorruptState, err)
	}
	defer rows.Close()

	for rows.Next() {
		var account, counterparty, direction string
		var amount int64
		if err := rows.Scan(&account, &counterparty, &direction, &amount); err != nil {
			return fmt.Errorf("%w: unable to scan debt row: %v", store.ErrCorruptState, err)
		}
		record, ok := ledger[account]
		if !ok {
			return fmt.Errorf("%w: debt row references unknown account %s", store.ErrCorruptState, account)
		}
		switch direction {
		case "owed_to":
			record.OwedTo[counterparty] = amount
		case "owed_from":
			record.OwedFrom[counterparty] = amount
		default:
			return fmt.Errorf("%w: unknown debt direction %q", store.ErrCorruptState, direction)
		}
	}
	return rows.Err()
}

func (s *Service) loadNotifications(ctx context.Context, ledger models.Ledger) error {
	rows, err := s.db.QueryContext(ctx, queryGetNotifications)
	if err != nil {
		return fmt.Errorf("%w: unable to query notifications: %v", store.ErrCorruptState, err)
	}
	defer rows.Close()

	for rows.Next() {
		var account, from string
		var amount int64
		if err := rows.Scan(&account, &from, &amount); err != nil {
			return fmt.Errorf("%w: unable to scan notification row: %v", store.ErrCorruptState, err)
		}
		record, ok := ledger[account]
		if !ok {
			return fmt.Errorf("%w: notification row references unknown account %s", store.ErrCorruptState, account)
		}
		record.Notifications = append(record.Notifications, models.Notification{From: from, Amount: amount})
	}
	return rows.Err()
}

func (s *Service) loadHistory(ctx context.Context, ledger models.Ledger) error {
	rows, err := s.db.QueryContext(ctx, queryGetHistory)
	if err != nil {
		return fmt.Errorf("%w: unable to query history: %v", store.ErrCorruptState, err)
	}
	defer rows.Close()

	for rows.Next() {
		var account, entry string
		if err := rows.Scan(&account, &entry); err != nil {
			return fmt.Errorf("%w: unable to scan history row: %v", store.ErrCorruptState, err)
		}
		record, ok := ledger[account]
		if !ok {
			return fmt.Errorf("%w: history row references unknown account %s", store.ErrCorruptState, account)
		}
		record.History = append(record.History, entry)
	}
	return rows.Err()
}

// Save replaces the full snapshot in one transaction: a reader that loads
// before or after observes a complete ledger, never a partial one.
func (s *Service) Save(ctx context.Context, ledger models.Ledger) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: unable to begin transaction: %v", store.ErrPersistence, err)
	}

	if err := s.writeSnapshot(ctx, tx, ledger); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			zap.L().Warn("Failed to roll back snapshot transaction", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: unable to commit snapshot: %v", store.ErrPersistence, err)
	}

	zap.L().Debug("Ledger snapshot written to database", zap.Int("accounts", len(ledger)))
	return nil
}

func (s *Service) writeSnapshot(ctx context.Context, tx *sql.Tx, ledger models.Ledger) error {
	// Delete children before accounts; the schema has ON DELETE CASCADE but
	// foreign keys are not enforced unless the pragma is on, so be explicit.
	for _, query := range []string{queryDeleteHistory, queryDeleteNotifications, queryDeleteDebts, queryDeleteAccounts} {
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("%w: unable to clear snapshot: %v", store.ErrPersistence, err)
		}
	}

	for name, account := range ledger {
		number := sql.NullString{String: account.AccountNumber, Valid: account.AccountNumber != ""}
		if _, err := tx.ExecContext(ctx, queryInsertAccount, name, account.Pin, number, account.Balance); err != nil {
			return fmt.Errorf("%w: unable to insert account %s: %v", store.ErrPersistence, name, err)
		}

		for counterparty, amount := range account.OwedTo {
			if _, err := tx.ExecContext(ctx, queryInsertDebt, uuid.New().String(), name, counterparty, "owed_to", amount); err != nil {
				return fmt.Errorf("%w: unable to insert debt row: %v", store.ErrPersistence, err)
			}
		}
		for counterparty, amount := range account.OwedFrom {
			if _, err := tx.ExecContext(ctx, queryInsertDebt, uuid.New().String(), name, counterparty, "owed_from", amount); err != nil {
				return fmt.Errorf("%w: unable to insert debt row: %v", store.ErrPersistence, err)
			}
		}
		for position, notification := range account.Notifications {
			if _, err := tx.ExecContext(ctx, queryInsertNotification,
				uuid.New().String(), name, notification.From, notification.Amount, position); err != nil {
				return fmt.Errorf("%w: unable to insert notification row: %v", store.ErrPersistence, err)
			}
		}
		for position, entry := range account.History {
			if _, err := tx.ExecContext(ctx, queryInsertHistory, uuid.New().String(), name, position, entry); err != nil {
				return fmt.Errorf("%w: unable to insert history row: %v", store.ErrPersistence, err)
			}
		}
	}
	return nil
}
