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

package models

import "time"

// Config represents the application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Store    StoreConfig
	Gacha    GachaConfig
	Chat     ChatConfig
	Auth     AuthConfig
	Ledger   LedgerConfig
	Formance FormanceConfig
	Blob     BlobConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path             string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
	ConnMaxIdleTime  time.Duration
	PingTimeout      time.Duration
	BusyTimeout      time.Duration
	CreateDummyUsers bool
}

// StoreConfig selects the tree store backend
type StoreConfig struct {
	Backend               string // "sqlite" or "memory"
	TransactionMaxRetries int
}

type GachaConfig struct {
	CatalogFile string
	Cost        int64
}

type ChatConfig struct {
	HistoryLimit  int
	MaxImageBytes int64
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// LedgerConfig selects where economy ledger entries are recorded
type LedgerConfig struct {
	Backend string // "store", "formance" or "none"
}

// FormanceConfig holds Formance stack credentials for the ledger mirror
type FormanceConfig struct {
	StackURL     string
	ClientID     string
	ClientSecret string
	LedgerName   string
}

// BlobConfig holds S3-compatible object storage settings for chat images
type BlobConfig struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	PublicURL string
}

const (
	StoreBackendSQLite = "sqlite"
	StoreBackendMemory = "memory"

	LedgerBackendStore    = "store"
	LedgerBackendFormance = "formance"
	LedgerBackendNone     = "none"
)
