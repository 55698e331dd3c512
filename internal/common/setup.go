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

package common

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"gacha-chat-go/internal/auth"
	"gacha-chat-go/internal/blob"
	"gacha-chat-go/internal/chat"
	"gacha-chat-go/internal/database"
	"gacha-chat-go/internal/formance"
	"gacha-chat-go/internal/friends"
	"gacha-chat-go/internal/gacha"
	"gacha-chat-go/internal/identity"
	"gacha-chat-go/internal/inventory"
	"gacha-chat-go/internal/models"
	"gacha-chat-go/internal/store"
	"gacha-chat-go/internal/store/memory"
)

// init loads environment variables from .env file if it exists
func init() {
	// Environment variables can also be set via shell export, docker, etc.
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

// Stores is the tree store plus the economy ledger picked by LEDGER_BACKEND.
// Ledger is nil when the ledger is disabled.
type Stores struct {
	Tree   store.TreeStore
	Ledger store.EconomyLedger
	close  []func()
}

func (s *Stores) Close() {
	for i := len(s.close) - 1; i >= 0; i-- {
		s.close[i]()
	}
	s.close = nil
}

type Services struct {
	*Stores
	Directory *identity.Directory
	Auth      *auth.Service
	Friends   *friends.Service
	Chat      *chat.Service
	Gacha     *gacha.Service
	Inventory *inventory.Service
	Images    *blob.Images
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeStores opens the tree store and the economy ledger only. Useful
// for command-line tools that do not serve traffic.
func InitializeStores(ctx context.Context, cfg *models.Config) (*Stores, error) {
	stores := &Stores{}

	switch cfg.Store.Backend {
	case models.StoreBackendMemory:
		zap.L().Warn("Using in-memory store, data is lost on exit")
		mem := memory.New(cfg.Store.TransactionMaxRetries)
		stores.Tree = mem
		stores.Ledger = mem
		stores.close = append(stores.close, mem.Close)
	default:
		zap.L().Info("Connecting to database", zap.String("path", cfg.Database.Path))
		db, err := database.NewService(ctx, cfg.Database, cfg.Store.TransactionMaxRetries)
		if err != nil {
			return nil, err
		}
		stores.Tree = db
		stores.Ledger = db
		stores.close = append(stores.close, db.Close)
	}

	switch cfg.Ledger.Backend {
	case models.LedgerBackendNone:
		zap.L().Info("Economy ledger disabled")
		stores.Ledger = nil
	case models.LedgerBackendFormance:
		zap.L().Info("Connecting to Formance ledger",
			zap.String("stack_url", cfg.Formance.StackURL),
			zap.String("ledger", cfg.Formance.LedgerName))
		fl, err := formance.NewService(ctx, cfg.Formance)
		if err != nil {
			stores.Close()
			return nil, err
		}
		stores.Ledger = fl
		stores.close = append(stores.close, fl.Close)
	}

	return stores, nil
}

func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	stores, err := InitializeStores(ctx, cfg)
	if err != nil {
		return nil, err
	}

	catalog, err := gacha.LoadCatalog(cfg.Gacha.CatalogFile)
	if err != nil {
		stores.Close()
		return nil, err
	}

	dir := identity.NewDirectory(stores.Tree)
	authService, err := auth.NewService(stores.Tree, dir, cfg.Auth)
	if err != nil {
		stores.Close()
		return nil, err
	}

	services := &Services{
		Stores:    stores,
		Directory: dir,
		Auth:      authService,
		Friends:   friends.NewService(stores.Tree, dir),
		Chat:      chat.NewService(stores.Tree, dir, cfg.Chat.HistoryLimit),
		Gacha:     gacha.NewService(stores.Tree, stores.Ledger, catalog, cfg.Gacha.Cost),
		Inventory: inventory.NewService(stores.Tree, stores.Ledger),
	}

	if cfg.Blob.Bucket != "" {
		storage, err := blob.NewS3Storage(ctx, cfg.Blob)
		if err != nil {
			stores.Close()
			return nil, err
		}
		services.Images = blob.NewImages(storage, cfg.Chat.MaxImageBytes)
		zap.L().Info("Image uploads enabled", zap.String("bucket", cfg.Blob.Bucket))
	} else {
		zap.L().Info("Image uploads disabled, S3_BUCKET not set")
	}

	if cfg.Database.CreateDummyUsers {
		if err := SeedDemoUsers(ctx, authService); err != nil {
			services.Close()
			return nil, err
		}
	}

	return services, nil
}

// DemoPassword is shared by every account SeedDemoUsers creates.
const DemoPassword = "password123"

var demoEmails = []string{"alice@example.com", "bob@example.com", "carol@example.com"}

// SeedDemoUsers registers the demo accounts, skipping those that exist.
func SeedDemoUsers(ctx context.Context, authService *auth.Service) error {
	for _, email := range demoEmails {
		id, err := authService.Register(ctx, email, DemoPassword)
		if errors.Is(err, models.ErrEmailTaken) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to seed %s: %w", email, err)
		}
		zap.L().Info("Demo user created",
			zap.String("user_id", id.Uid),
			zap.String("email", email))
	}
	return nil
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
