package jsonstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"atm-ledger-go/internal/models"
	"atm-ledger-go/internal/store"

	"go.uber.org/zap"
)

// Compile-time check: *Store must satisfy store.LedgerStore.
var _ store.LedgerStore = (*Store)(nil)

// Store persists the ledger as a single indented JSON file keyed by account
// name. Writes go to a temp file first and replace the snapshot with
// os.Rename, so a crash mid-write never corrupts the previous snapshot.
type Store struct {
	path string
}

func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("data file path cannot be empty")
	}
	return &Store{path: path}, nil
}

func (s *Store) Load(_ context.Context) (models.Ledger, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			zap.L().Info("No ledger snapshot found, starting empty", zap.String("file", s.path))
			return models.Ledger{}, nil
		}
		return nil, fmt.Errorf("unable to open %s: %w", s.path, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			zap.L().Warn("Failed to close snapshot file", zap.Error(err))
		}
	}()

	var ledger models.Ledger
	if err := json.NewDecoder(f).Decode(&ledger); err != nil {
		return nil, fmt.Errorf("%w: unable to decode %s: %v", store.ErrCorruptState, s.path, err)
	}
	// "null" decodes without error but is not a ledger object; the engine
	// must never see a nil map.
	if ledger == nil {
		return nil, fmt.Errorf("%w: %s does not contain a ledger object", store.ErrCorruptState, s.path)
	}
	for _, account := range ledger {
		account.Normalize()
	}

	zap.L().Info("Ledger snapshot loaded", zap.String("file", s.path), zap.Int("accounts", len(ledger)))
	return ledger, nil
}

func (s *Store) Save(_ context.Context, ledger models.Ledger) error {
	tmp := s.path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("%w: unable to create %s: %v", store.ErrPersistence, tmp, err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "    ")
	if err := enc.Encode(ledger); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("%w: unable to encode snapshot: %v", store.ErrPersistence, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: unable to flush %s: %v", store.ErrPersistence, tmp, err)
	}

	// Atomic replace: the previous snapshot stays intact until the new one is
	// fully written.
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: unable to replace %s: %v", store.ErrPersistence, s.path, err)
	}

	zap.L().Debug("Ledger snapshot written", zap.String("file", s.path), zap.Int("accounts", len(ledger)))
	return nil
}

func (s *Store) Close() {}
