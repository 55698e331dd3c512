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
	"testing"
	"time"

	"gacha-chat-go/internal/models"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Gacha.Cost != 1000 {
		t.Errorf("Expected default gacha cost 1000, got %d", cfg.Gacha.Cost)
	}
	if cfg.Chat.HistoryLimit != 50 {
		t.Errorf("Expected default history limit 50, got %d", cfg.Chat.HistoryLimit)
	}
	if cfg.Store.Backend != models.StoreBackendSQLite {
		t.Errorf("Expected sqlite backend, got %s", cfg.Store.Backend)
	}
	if cfg.Store.TransactionMaxRetries != 25 {
		t.Errorf("Expected 25 retries, got %d", cfg.Store.TransactionMaxRetries)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GACHA_COST", "250")
	t.Setenv("STORE_BACKEND", "MEMORY")
	t.Setenv("TOKEN_TTL", "90m")
	t.Setenv("CREATE_DUMMY_USERS", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Gacha.Cost != 250 {
		t.Errorf("Expected cost 250, got %d", cfg.Gacha.Cost)
	}
	if cfg.Store.Backend != models.StoreBackendMemory {
		t.Errorf("Expected memory backend, got %s", cfg.Store.Backend)
	}
	if cfg.Auth.TokenTTL != 90*time.Minute {
		t.Errorf("Expected 90m TTL, got %v", cfg.Auth.TokenTTL)
	}
	if !cfg.Database.CreateDummyUsers {
		t.Error("Expected CreateDummyUsers to be true")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"HTTP_READ_TIMEOUT", "soon"},
		{"STORE_BACKEND", "postgres"},
		{"LEDGER_BACKEND", "paper"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}
