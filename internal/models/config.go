package models

import "time"

// Config represents the application configuration
type Config struct {
	Store  StoreConfig
	Engine EngineConfig
}

// StoreConfig holds ledger persistence settings
type StoreConfig struct {
	Backend      string // "json" or "sqlite"
	DataFile     string
	DatabasePath string
	PingTimeout  time.Duration
}

// EngineConfig holds session and transaction engine settings
type EngineConfig struct {
	PinAttempts      int
	AccountNumbers   bool
	ConfirmTransfers bool
}
