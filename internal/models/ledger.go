package models

// Notification is a pending "you received funds" record. It is appended by a
// transfer targeting the account and drained exactly once at the owner's next
// login.
type Notification struct {
	From   string `json:"from"`
	Amount int64  `json:"amount"`
}

// Account is the persisted record for one named party in the ledger.
//
// OwedTo and OwedFrom are populated externally; the engine renders and
// re-serializes them but never writes to them. History is append-only and
// never pruned.
type Account struct {
	Pin           string           `json:"pin"`
	AccountNumber string           `json:"account_number,omitempty"`
	Balance       int64            `json:"balance"`
	OwedTo        map[string]int64 `json:"owed_to"`
	OwedFrom      map[string]int64 `json:"owed_from"`
	Notifications []Notification   `json:"notifications"`
	History       []string         `json:"history"`
}

// Ledger is the complete mapping of account name to account record. Names are
// case-sensitive and unique.
type Ledger map[string]*Account

// Normalize replaces nil maps and slices with empty ones so callers never
// have to nil-check after a load.
func (a *Account) Normalize() {
	if a.OwedTo == nil {
		a.OwedTo = make(map[string]int64)
	}
	if a.OwedFrom == nil {
		a.OwedFrom = make(map[string]int64)
	}
	if a.Notifications == nil {
		a.Notifications = []Notification{}
	}
	if a.History == nil {
		a.History = []string{}
	}
}
