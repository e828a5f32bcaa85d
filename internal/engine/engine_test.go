package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"atm-ledger-go/internal/jsonstore"
	"atm-ledger-go/internal/models"
	"atm-ledger-go/internal/store"
)

var testCfg = models.EngineConfig{PinAttempts: 3, AccountNumbers: true, ConfirmTransfers: true}

// scriptPrompter replays scripted answers; it fails the operation when the
// engine asks for more input than the test expected.
type scriptPrompter struct {
	pins     []string
	confirms []bool
}

func (p *scriptPrompter) PromptPIN(string) (string, error) {
	if len(p.pins) == 0 {
		return "", fmt.Errorf("unexpected PIN prompt")
	}
	pin := p.pins[0]
	p.pins = p.pins[1:]
	return pin, nil
}

func (p *scriptPrompter) Confirm(string) (bool, error) {
	if len(p.confirms) == 0 {
		return false, fmt.Errorf("unexpected confirmation prompt")
	}
	answer := p.confirms[0]
	p.confirms = p.confirms[1:]
	return answer, nil
}

func setupEngine(t *testing.T, prompts Prompter) (*Engine, store.LedgerStore) {
	t.Helper()
	st, err := jsonstore.NewStore(filepath.Join(t.TempDir(), "data.json"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	eng, err := New(context.Background(), st, prompts, testCfg)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	return eng, st
}

func TestLoginCreatesAccount(t *testing.T) {
	prompts := &scriptPrompter{pins: []string{"1234"}}
	eng, _ := setupEngine(t, prompts)

	result, err := eng.Login(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if !result.Created {
		t.Error("Expected account creation on first login")
	}
	if len(result.AccountNumber) != 10 {
		t.Errorf("Expected 10-digit account number, got %q", result.AccountNumber)
	}
	if result.Summary.Balance != 0 {
		t.Errorf("Expected zero balance, got %d", result.Summary.Balance)
	}
	if eng.CurrentUser() != "alice" {
		t.Errorf("Expected active session for alice, got %q", eng.CurrentUser())
	}
}

func TestDepositWithdrawBalanceArithmetic(t *testing.T) {
	prompts := &scriptPrompter{pins: []string{"1234"}}
	eng, _ := setupEngine(t, prompts)
	ctx := context.Background()

	if _, err := eng.Login(ctx, "alice"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	result, err := eng.Deposit(ctx, "500")
	if err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}
	if result.Summary.Balance != 500 {
		t.Errorf("Expected balance 500, got %d", result.Summary.Balance)
	}

	// Withdrawing more than the balance is rejected, not clamped.
	if _, err := eng.Withdraw(ctx, "600"); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("Expected ErrInsufficientFunds, got %v", err)
	}
	summary, err := eng.Balance()
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if summary.Balance != 500 {
		t.Errorf("Balance changed after rejected withdrawal: %d", summary.Balance)
	}

	if _, err := eng.Withdraw(ctx, "200"); err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}
	summary, _ = eng.Balance()
	if summary.Balance != 300 {
		t.Errorf("Expected balance 300, got %d", summary.Balance)
	}

	history, err := eng.History()
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("Expected 2 history entries, got %v", history)
	}
	if history[0] != "Deposit Rp500" || history[1] != "Withdraw Rp200" {
		t.Errorf("Unexpected history entries: %v", history)
	}
}

func TestDepositInvalidAmount(t *testing.T) {
	prompts := &scriptPrompter{pins: []string{"1234"}}
	eng, _ := setupEngine(t, prompts)
	ctx := context.Background()

	if _, err := eng.Login(ctx, "alice"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	for _, input := range []string{"abc", "0", "-5", "12.5"} {
		if _, err := eng.Deposit(ctx, input); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("Deposit(%q): expected ErrInvalidAmount, got %v", input, err)
		}
	}
	summary, _ := eng.Balance()
	if summary.Balance != 0 {
		t.Errorf("Balance mutated by invalid deposits: %d", summary.Balance)
	}
	history, _ := eng.History()
	if len(history) != 0 {
		t.Errorf("History mutated by invalid deposits: %v", history)
	}
}

func TestTransferCreatesRecipientAndNotifies(t *testing.T) {
	prompts := &scriptPrompter{
		pins:     []string{"1234", "9999", "9999", "9999"},
		confirms: []bool{true},
	}
	eng, _ := setupEngine(t, prompts)
	ctx := context.Background()

	if _, err := eng.Login(ctx, "alice"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if _, err := eng.Deposit(ctx, "1000"); err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}

	result, err := eng.Transfer(ctx, "bob", "300")
	if err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}
	if !result.TargetCreated {
		t.Error("Expected bob to be created by the transfer")
	}
	if result.Summary.Balance != 700 {
		t.Errorf("Expected sender balance 700, got %d", result.Summary.Balance)
	}

	// Transfer conserves total system balance.
	bob := eng.ledger["bob"]
	if bob == nil {
		t.Fatal("bob missing from ledger")
	}
	alice := eng.ledger["alice"]
	if alice.Balance+bob.Balance != 1000 {
		t.Errorf("Balance not conserved: alice=%d bob=%d", alice.Balance, bob.Balance)
	}
	if len(bob.Notifications) != 1 || bob.Notifications[0].From != "alice" || bob.Notifications[0].Amount != 300 {
		t.Errorf("Expected one pending notification for bob, got %v", bob.Notifications)
	}
	if len(alice.History) != 2 || alice.History[1] != "Transfer to bob Rp300" {
		t.Errorf("Unexpected sender history: %v", alice.History)
	}
	if len(bob.History) != 1 || bob.History[0] != "Received from alice Rp300" {
		t.Errorf("Unexpected recipient history: %v", bob.History)
	}

	// Bob's login drains the notification queue exactly once.
	if _, err := eng.Logout(ctx); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	login, err := eng.Login(ctx, "bob")
	if err != nil {
		t.Fatalf("bob login failed: %v", err)
	}
	if len(login.Notifications) != 1 || login.Notifications[0].From != "alice" {
		t.Errorf("Expected drained notification from alice, got %v", login.Notifications)
	}
	if len(bob.Notifications) != 0 {
		t.Errorf("Notification queue not cleared: %v", bob.Notifications)
	}

	if _, err := eng.Logout(ctx); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	login, err = eng.Login(ctx, "bob")
	if err != nil {
		t.Fatalf("second bob login failed: %v", err)
	}
	if len(login.Notifications) != 0 {
		t.Errorf("Notification shown twice: %v", login.Notifications)
	}
}

func TestTransferSelfRejected(t *testing.T) {
	prompts := &scriptPrompter{pins: []string{"1234"}}
	eng, _ := setupEngine(t, prompts)
	ctx := context.Background()

	if _, err := eng.Login(ctx, "alice"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if _, err := eng.Deposit(ctx, "500"); err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}

	if _, err := eng.Transfer(ctx, "alice", "100"); !errors.Is(err, ErrInvalidTransfer) {
		t.Errorf("Expected ErrInvalidTransfer, got %v", err)
	}
	if eng.ledger["alice"].Balance != 500 {
		t.Errorf("Balance mutated by rejected self-transfer: %d", eng.ledger["alice"].Balance)
	}
}

func TestTransferInsufficientFunds(t *testing.T) {
	// No confirmation scripted: the funds check must fire before the prompt.
	prompts := &scriptPrompter{pins: []string{"1234"}}
	eng, _ := setupEngine(t, prompts)
	ctx := context.Background()

	if _, err := eng.Login(ctx, "alice"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if _, err := eng.Transfer(ctx, "bob", "100"); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("Expected ErrInsufficientFunds, got %v", err)
	}
	if _, exists := eng.ledger["bob"]; exists {
		t.Error("bob created by rejected transfer")
	}
}

func TestTransferDeclinedAtConfirmation(t *testing.T) {
	prompts := &scriptPrompter{
		pins:     []string{"1234"},
		confirms: []bool{false},
	}
	eng, _ := setupEngine(t, prompts)
	ctx := context.Background()

	if _, err := eng.Login(ctx, "alice"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if _, err := eng.Deposit(ctx, "500"); err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}

	result, err := eng.Transfer(ctx, "bob", "100")
	if err != nil {
		t.Fatalf("Declined transfer returned error: %v", err)
	}
	if !result.Aborted {
		t.Error("Expected aborted transfer")
	}
	if eng.ledger["alice"].Balance != 500 {
		t.Errorf("Balance mutated by declined transfer: %d", eng.ledger["alice"].Balance)
	}
	if _, exists := eng.ledger["bob"]; exists {
		t.Error("bob created by declined transfer")
	}
}

func TestLoginPinAttemptsExhausted(t *testing.T) {
	prompts := &scriptPrompter{pins: []string{"1111", "0", "1", "2"}}
	eng, _ := setupEngine(t, prompts)
	ctx := context.Background()

	if _, err := eng.Login(ctx, "alice"); err != nil {
		t.Fatalf("Account creation failed: %v", err)
	}
	if _, err := eng.Logout(ctx); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	_, err := eng.Login(ctx, "alice")
	if !errors.Is(err, ErrAuthentication) {
		t.Errorf("Expected ErrAuthentication, got %v", err)
	}
	if eng.CurrentUser() != "" {
		t.Errorf("Session opened despite failed login: %q", eng.CurrentUser())
	}
}

func TestOperationsRequireSession(t *testing.T) {
	eng, _ := setupEngine(t, &scriptPrompter{})
	ctx := context.Background()

	if _, err := eng.Deposit(ctx, "100"); !errors.Is(err, ErrNotLoggedIn) {
		t.Errorf("Deposit: expected ErrNotLoggedIn, got %v", err)
	}
	if _, err := eng.Withdraw(ctx, "100"); !errors.Is(err, ErrNotLoggedIn) {
		t.Errorf("Withdraw: expected ErrNotLoggedIn, got %v", err)
	}
	if _, err := eng.Transfer(ctx, "bob", "100"); !errors.Is(err, ErrNotLoggedIn) {
		t.Errorf("Transfer: expected ErrNotLoggedIn, got %v", err)
	}
	if _, err := eng.Balance(); !errors.Is(err, ErrNotLoggedIn) {
		t.Errorf("Balance: expected ErrNotLoggedIn, got %v", err)
	}
	if _, err := eng.History(); !errors.Is(err, ErrNotLoggedIn) {
		t.Errorf("History: expected ErrNotLoggedIn, got %v", err)
	}
}

func TestStatePersistsAcrossRestart(t *testing.T) {
	prompts := &scriptPrompter{pins: []string{"1234"}}
	st, err := jsonstore.NewStore(filepath.Join(t.TempDir(), "data.json"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	ctx := context.Background()

	eng, err := New(ctx, st, prompts, testCfg)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	if _, err := eng.Login(ctx, "alice"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if _, err := eng.Deposit(ctx, "750"); err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}
	if _, err := eng.Logout(ctx); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	// Simulated restart: a fresh engine over the same store.
	reopened, err := New(ctx, st, &scriptPrompter{pins: []string{"1234"}}, testCfg)
	if err != nil {
		t.Fatalf("Failed to reopen engine: %v", err)
	}
	result, err := reopened.Login(ctx, "alice")
	if err != nil {
		t.Fatalf("Login after restart failed: %v", err)
	}
	if result.Created {
		t.Error("alice recreated after restart")
	}
	if result.Summary.Balance != 750 {
		t.Errorf("Expected balance 750 after restart, got %d", result.Summary.Balance)
	}
}

func TestOwedMapsPreservedAndRendered(t *testing.T) {
	st, err := jsonstore.NewStore(filepath.Join(t.TempDir(), "data.json"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	ctx := context.Background()

	seeded := models.Ledger{
		"alice": {
			Pin:      "1234",
			Balance:  100,
			OwedTo:   map[string]int64{"bob": 40},
			OwedFrom: map[string]int64{"carol": 15},
		},
	}
	if err := st.Save(ctx, seeded); err != nil {
		t.Fatalf("Seed save failed: %v", err)
	}

	eng, err := New(ctx, st, &scriptPrompter{pins: []string{"1234"}}, testCfg)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	if _, err := eng.Login(ctx, "alice"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if _, err := eng.Deposit(ctx, "50"); err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}

	summary, err := eng.Balance()
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if len(summary.Rows) != 2 {
		t.Fatalf("Expected 2 debt rows, got %v", summary.Rows)
	}
	if summary.Rows[0].Label != "Debt to bob" || summary.Rows[0].Amount != 40 {
		t.Errorf("Unexpected owed_to row: %+v", summary.Rows[0])
	}
	if summary.Rows[1].Label != "Receivable from carol" || summary.Rows[1].Amount != 15 {
		t.Errorf("Unexpected owed_from row: %+v", summary.Rows[1])
	}

	// The engine never writes to the debt maps; they survive the persist.
	loaded, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	alice := loaded["alice"]
	if alice.OwedTo["bob"] != 40 || alice.OwedFrom["carol"] != 15 {
		t.Errorf("Debt maps not preserved: %+v", alice)
	}
}

// failingStore accepts loads but refuses every snapshot write.
type failingStore struct{}

func (f *failingStore) Load(context.Context) (models.Ledger, error) {
	return models.Ledger{}, nil
}

func (f *failingStore) Save(context.Context, models.Ledger) error {
	return fmt.Errorf("%w: disk full", store.ErrPersistence)
}

func (f *failingStore) Close() {}

func TestPersistFailureSurfacedNotSwallowed(t *testing.T) {
	ctx := context.Background()
	eng, err := New(ctx, &failingStore{}, &scriptPrompter{pins: []string{"1234"}}, testCfg)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	result, err := eng.Login(ctx, "alice")
	if !errors.Is(err, store.ErrPersistence) {
		t.Errorf("Expected ErrPersistence, got %v", err)
	}
	if result == nil {
		t.Fatal("Expected login result despite persist failure")
	}
	// In-memory state stays authoritative.
	if eng.CurrentUser() != "alice" {
		t.Errorf("Session lost on persist failure: %q", eng.CurrentUser())
	}

	if _, err := eng.Deposit(ctx, "100"); !errors.Is(err, store.ErrPersistence) {
		t.Errorf("Expected ErrPersistence on deposit, got %v", err)
	}
	if eng.ledger["alice"].Balance != 100 {
		t.Errorf("Expected in-memory balance 100, got %d", eng.ledger["alice"].Balance)
	}
}
