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

package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"atm-ledger-go/internal/cli"
	"atm-ledger-go/internal/common"
	"atm-ledger-go/internal/config"
	"atm-ledger-go/internal/database"
	"atm-ledger-go/internal/engine"
	"atm-ledger-go/internal/jsonstore"
	"atm-ledger-go/internal/models"
	"atm-ledger-go/internal/store"

	"go.uber.org/zap"
)

func main() {
	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	dataFlag := flag.String("data", "", "Path to the JSON ledger file (overrides config)")
	backendFlag := flag.String("backend", "", "Ledger backend: json or sqlite (overrides config)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}
	if *dataFlag != "" {
		cfg.Store.DataFile = *dataFlag
	}
	if *backendFlag != "" {
		cfg.Store.Backend = *backendFlag
	}

	// Ctrl-C cancels the context; the command loop observes it between
	// commands, so no mutation is ever cut off mid-save.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ledgerStore, err := newLedgerStore(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize ledger store", zap.Error(err))
	}
	defer ledgerStore.Close()

	in := bufio.NewReader(os.Stdin)
	prompter := cli.NewPrompter(in, os.Stdout)

	eng, err := engine.New(ctx, ledgerStore, prompter, cfg.Engine)
	if err != nil {
		if errors.Is(err, store.ErrCorruptState) {
			logger.Fatal("Ledger state is corrupt, refusing to start", zap.Error(err))
		}
		logger.Fatal("Failed to initialize engine", zap.Error(err))
	}

	app := cli.New(eng, in, os.Stdout)
	if err := app.Run(ctx); err != nil {
		logger.Fatal("Command loop failed", zap.Error(err))
	}
}

func newLedgerStore(ctx context.Context, cfg *models.Config) (store.LedgerStore, error) {
	switch cfg.Store.Backend {
	case config.BackendSQLite:
		return database.NewService(ctx, cfg.Store)
	case config.BackendJSON:
		return jsonstore.NewStore(cfg.Store.DataFile)
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Store.Backend)
	}
}
