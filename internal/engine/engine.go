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

package engine

import (
	"context"
	"fmt"
	"sort"

	"atm-ledger-go/internal/common"
	"atm-ledger-go/internal/ledger"
	"atm-ledger-go/internal/models"
	"atm-ledger-go/internal/store"

	"go.uber.org/zap"
)

// Prompter supplies interactive input mid-operation: PIN entry during login
// and account creation, and yes/no confirmation before a transfer. The CLI
// implements it against the terminal; tests script it.
type Prompter interface {
	PromptPIN(label string) (string, error)
	Confirm(question string) (bool, error)
}

// Engine is the session and transaction engine. It holds the in-memory
// ledger, the single session slot, and persists the full snapshot after every
// mutating operation.
//
// Persist-failure convention: when an operation mutated the ledger but the
// snapshot write failed, the operation returns its result AND an error
// wrapping store.ErrPersistence. The in-memory ledger stays authoritative;
// the caller warns the user that disk has diverged and the process continues.
type Engine struct {
	ledger  models.Ledger
	store   store.LedgerStore
	prompts Prompter
	cfg     models.EngineConfig

	// session is the name of the authenticated account, empty when logged
	// out. At most one session at a time; never persisted.
	session string
}

// New loads the persisted ledger once and returns a ready engine. A corrupt
// snapshot (store.ErrCorruptState) is fatal to the caller: the engine must
// not proceed with unknown ledger state.
func New(ctx context.Context, st store.LedgerStore, prompts Prompter, cfg models.EngineConfig) (*Engine, error) {
	if cfg.PinAttempts <= 0 {
		return nil, fmt.Errorf("pin attempts must be positive, got %d", cfg.PinAttempts)
	}

	l, err := st.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load ledger: %w", err)
	}
	if l == nil {
		l = models.Ledger{}
	}

	return &Engine{ledger: l, store: st, prompts: prompts, cfg: cfg}, nil
}

// CurrentUser returns the active account name, or "" when logged out.
func (e *Engine) CurrentUser() string {
	return e.session
}

// BalanceRow is one (label, amount) line of the balance summary.
type BalanceRow struct {
	Label  string
	Amount int64
}

// BalanceSummary is the read-only account overview: balance plus the
// externally populated owed_to / owed_from entries.
type BalanceSummary struct {
	Account       string
	AccountNumber string
	Balance       int64
	Rows          []BalanceRow
}

// LoginResult reports a completed login: whether the account was created, the
// notifications drained by this login, and the balance summary.
type LoginResult struct {
	Account       string
	Created       bool
	AccountNumber string
	Notifications []models.Notification
	Summary       BalanceSummary
}

// LogoutResult reports the account that was logged out, empty if none was.
type LogoutResult struct {
	Account string
}

// TxResult reports a completed deposit or withdrawal.
type TxResult struct {
	Amount  int64
	Summary BalanceSummary
}

// TransferResult reports a transfer. Aborted is set when the user declined
// the confirmation prompt; nothing was mutated or persisted in that case.
type TransferResult struct {
	Target        string
	TargetCreated bool
	Amount        int64
	Aborted       bool
	Summary       BalanceSummary
}

// Login authenticates name, creating the account on first reference. Known
// accounts get up to cfg.PinAttempts tries; exhaustion yields
// ErrAuthentication and the session stays logged out, with no lockout beyond
// this attempt sequence. Entering the session drains the account's pending
// notifications exactly once.
func (e *Engine) Login(ctx context.Context, name string) (*LoginResult, error) {
	account, known := e.ledger[name]
	created := false

	if !known {
		pin, err := e.prompts.PromptPIN(fmt.Sprintf("Create a new PIN for %s", name))
		if err != nil {
			return nil, err
		}
		account, err = ledger.CreateAccount(e.ledger, name, pin, e.cfg)
		if err != nil {
			return nil, err
		}
		created = true
	} else {
		if err := e.authenticate(name, account); err != nil {
			return nil, err
		}
	}

	e.session = name
	zap.L().Info("Session opened", zap.String("account", name), zap.Bool("created", created))

	// Drain pending notifications: consumed exactly once, queue cleared
	// before the snapshot is written.
	drained := account.Notifications
	account.Notifications = []models.Notification{}

	result := &LoginResult{
		Account:       name,
		Created:       created,
		AccountNumber: account.AccountNumber,
		Notifications: drained,
		Summary:       e.summary(name, account),
	}
	return result, e.persist(ctx)
}

func (e *Engine) authenticate(name string, account *models.Account) error {
	label := "Enter PIN"
	for attempt := 0; attempt < e.cfg.PinAttempts; attempt++ {
		pin, err := e.prompts.PromptPIN(label)
		if err != nil {
			return err
		}
		if pin == account.Pin {
			return nil
		}
		label = "Wrong PIN, try again"
	}
	zap.L().Warn("Login failed, PIN attempts exhausted", zap.String("account", name))
	return ErrAuthentication
}

// Logout clears the session and persists unconditionally. This is the only
// operation guaranteed to persist even when nothing was mutated during the
// session.
func (e *Engine) Logout(ctx context.Context) (*LogoutResult, error) {
	result := &LogoutResult{Account: e.session}
	if e.session != "" {
		zap.L().Info("Session closed", zap.String("account", e.session))
		e.session = ""
	}
	return result, e.persist(ctx)
}

// Deposit increases the active account's balance and appends a history entry.
func (e *Engine) Deposit(ctx context.Context, amountInput string) (*TxResult, error) {
	account, err := e.active()
	if err != nil {
		return nil, err
	}
	amount, err := ValidateAmount(amountInput)
	if err != nil {
		return nil, err
	}

	account.Balance += amount
	account.History = append(account.History, fmt.Sprintf("Deposit %s", common.FormatRupiah(amount)))

	zap.L().Info("Deposit recorded",
		zap.String("account", e.session),
		zap.Int64("amount", amount),
		zap.Int64("balance", account.Balance))

	result := &TxResult{Amount: amount, Summary: e.summary(e.session, account)}
	return result, e.persist(ctx)
}

// Withdraw decreases the active account's balance, rejecting (not clamping)
// any amount above the balance.
func (e *Engine) Withdraw(ctx context.Context, amountInput string) (*TxResult, error) {
	account, err := e.active()
	if err != nil {
		return nil, err
	}
	amount, err := ValidateAmount(amountInput)
	if err != nil {
		return nil, err
	}
	if account.Balance < amount {
		return nil, ErrInsufficientFunds
	}

	account.Balance -= amount
	account.History = append(account.History, fmt.Sprintf("Withdraw %s", common.FormatRupiah(amount)))

	zap.L().Info("Withdrawal recorded",
		zap.String("account", e.session),
		zap.Int64("amount", amount),
		zap.Int64("balance", account.Balance))

	result := &TxResult{Amount: amount, Summary: e.summary(e.session, account)}
	return result, e.persist(ctx)
}

// Transfer moves funds from the active account to target, creating the
// target account first when it has no record. Debit, credit, both history
// entries, and the recipient notification land in the same snapshot.
func (e *Engine) Transfer(ctx context.Context, target, amountInput string) (*TransferResult, error) {
	sender, err := e.active()
	if err != nil {
		return nil, err
	}

	// Invalid amount and self-transfer are reported generically, distinct
	// from the insufficient-funds case.
	amount, err := ValidateAmount(amountInput)
	if err != nil || target == e.session {
		return nil, ErrInvalidTransfer
	}
	if sender.Balance < amount {
		return nil, ErrInsufficientFunds
	}

	if e.cfg.ConfirmTransfers {
		ok, err := e.prompts.Confirm(fmt.Sprintf("Transfer %s to %s?", common.FormatRupiah(amount), target))
		if err != nil {
			return nil, err
		}
		if !ok {
			zap.L().Info("Transfer aborted at confirmation",
				zap.String("account", e.session),
				zap.String("target", target))
			return &TransferResult{Target: target, Amount: amount, Aborted: true}, nil
		}
	}

	recipient, known := e.ledger[target]
	targetCreated := false
	if !known {
		pin, err := e.prompts.PromptPIN(fmt.Sprintf("Create a new PIN for %s", target))
		if err != nil {
			return nil, err
		}
		recipient, err = ledger.CreateAccount(e.ledger, target, pin, e.cfg)
		if err != nil {
			return nil, err
		}
		targetCreated = true
	}

	sender.Balance -= amount
	recipient.Balance += amount
	sender.History = append(sender.History,
		fmt.Sprintf("Transfer to %s %s", target, common.FormatRupiah(amount)))
	recipient.History = append(recipient.History,
		fmt.Sprintf("Received from %s %s", e.session, common.FormatRupiah(amount)))
	recipient.Notifications = append(recipient.Notifications,
		models.Notification{From: e.session, Amount: amount})

	zap.L().Info("Transfer recorded",
		zap.String("from", e.session),
		zap.String("to", target),
		zap.Int64("amount", amount),
		zap.Bool("target_created", targetCreated))

	result := &TransferResult{
		Target:        target,
		TargetCreated: targetCreated,
		Amount:        amount,
		Summary:       e.summary(e.session, sender),
	}
	return result, e.persist(ctx)
}

// Balance returns the active account's summary. Read-only: never mutates or
// persists.
func (e *Engine) Balance() (*BalanceSummary, error) {
	account, err := e.active()
	if err != nil {
		return nil, err
	}
	summary := e.summary(e.session, account)
	return &summary, nil
}

// History returns the active account's history in insertion order. Read-only.
func (e *Engine) History() ([]string, error) {
	account, err := e.active()
	if err != nil {
		return nil, err
	}
	entries := make([]string, len(account.History))
	copy(entries, account.History)
	return entries, nil
}

func (e *Engine) active() (*models.Account, error) {
	if e.session == "" {
		return nil, ErrNotLoggedIn
	}
	account, ok := e.ledger[e.session]
	if !ok {
		// Records are never deleted, so a dangling session cannot happen
		// through engine operations.
		return nil, fmt.Errorf("session account %q has no record", e.session)
	}
	return account, nil
}

func (e *Engine) summary(name string, account *models.Account) BalanceSummary {
	summary := BalanceSummary{
		Account:       name,
		AccountNumber: account.AccountNumber,
		Balance:       account.Balance,
	}
	for _, counterparty := range sortedKeys(account.OwedTo) {
		summary.Rows = append(summary.Rows, BalanceRow{
			Label:  fmt.Sprintf("Debt to %s", counterparty),
			Amount: account.OwedTo[counterparty],
		})
	}
	for _, counterparty := range sortedKeys(account.OwedFrom) {
		summary.Rows = append(summary.Rows, BalanceRow{
			Label:  fmt.Sprintf("Receivable from %s", counterparty),
			Amount: account.OwedFrom[counterparty],
		})
	}
	return summary
}

func (e *Engine) persist(ctx context.Context) error {
	if err := e.store.Save(ctx, e.ledger); err != nil {
		zap.L().Error("Failed to persist ledger, in-memory state diverges from disk", zap.Error(err))
		return err
	}
	return nil
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
