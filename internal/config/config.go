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

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"atm-ledger-go/internal/models"

	"gopkg.in/yaml.v2"
)

const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// fileConfig is the optional YAML configuration file. Env vars override it;
// it overrides the built-in defaults.
type fileConfig struct {
	Backend          string `yaml:"backend"`
	DataFile         string `yaml:"data_file"`
	DatabasePath     string `yaml:"database_path"`
	PinAttempts      int    `yaml:"pin_attempts"`
	AccountNumbers   *bool  `yaml:"account_numbers"`
	ConfirmTransfers *bool  `yaml:"confirm_transfers"`
}

// Load builds the configuration from defaults, the optional YAML file named
// by LEDGER_CONFIG_FILE (default "atm.yaml", skipped when absent), and env
// var overrides, in that order.
func Load() (*models.Config, error) {
	cfg := &models.Config{
		Store: models.StoreConfig{
			Backend:      BackendJSON,
			DataFile:     "data.json",
			DatabasePath: "ledger.db",
			PingTimeout:  5 * time.Second,
		},
		Engine: models.EngineConfig{
			PinAttempts:      3,
			AccountNumbers:   true,
			ConfirmTransfers: true,
		},
	}

	if err := applyFile(cfg, getEnvString("LEDGER_CONFIG_FILE", "atm.yaml")); err != nil {
		return nil, err
	}

	cfg.Store.Backend = getEnvString("LEDGER_BACKEND", cfg.Store.Backend)
	cfg.Store.DataFile = getEnvString("LEDGER_DATA_FILE", cfg.Store.DataFile)
	cfg.Store.DatabasePath = getEnvString("LEDGER_DB_PATH", cfg.Store.DatabasePath)
	cfg.Engine.PinAttempts = getEnvInt("LEDGER_PIN_ATTEMPTS", cfg.Engine.PinAttempts)
	cfg.Engine.AccountNumbers = getEnvBool("LEDGER_ACCOUNT_NUMBERS", cfg.Engine.AccountNumbers)
	cfg.Engine.ConfirmTransfers = getEnvBool("LEDGER_CONFIRM_TRANSFERS", cfg.Engine.ConfirmTransfers)

	if cfg.Store.Backend != BackendJSON && cfg.Store.Backend != BackendSQLite {
		return nil, fmt.Errorf("unknown ledger backend %q (want %q or %q)",
			cfg.Store.Backend, BackendJSON, BackendSQLite)
	}
	if cfg.Engine.PinAttempts <= 0 {
		return nil, fmt.Errorf("pin attempts must be positive, got %d", cfg.Engine.PinAttempts)
	}

	return cfg, nil
}

func applyFile(cfg *models.Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("unable to read %s: %w", path, err)
	}

	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("unable to parse %s: %w", path, err)
	}

	if file.Backend != "" {
		cfg.Store.Backend = file.Backend
	}
	if file.DataFile != "" {
		cfg.Store.DataFile = file.DataFile
	}
	if file.DatabasePath != "" {
		cfg.Store.DatabasePath = file.DatabasePath
	}
	if file.PinAttempts != 0 {
		cfg.Engine.PinAttempts = file.PinAttempts
	}
	if file.AccountNumbers != nil {
		cfg.Engine.AccountNumbers = *file.AccountNumbers
	}
	if file.ConfirmTransfers != nil {
		cfg.Engine.ConfirmTransfers = *file.ConfirmTransfers
	}
	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
