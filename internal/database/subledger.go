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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gacha-chat-go/internal/models"
	"gacha-chat-go/internal/store"
)

// SubledgerService records economy ledger entries
type SubledgerService struct {
	db *sql.DB
}

func NewSubledgerService(db *sql.DB) *SubledgerService {
	return &SubledgerService{
		db: db,
	}
}

func (s *SubledgerService) InitSchema() error {
	schema := `
	-- Ledger Entries Table (Audit Trail)
	-- Amounts are decimal strings and summed in Go to keep them exact.
	CREATE TABLE IF NOT EXISTS ledger_entries (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		entry_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		balance_before TEXT NOT NULL,
		balance_after TEXT NOT NULL,
		reference TEXT NOT NULL UNIQUE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_entries_user_id ON ledger_entries(user_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_ledger_entries_type ON ledger_entries(entry_type);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Record appends an entry. The reference is unique, so replaying the same
// draw, sale or grant is rejected with store.ErrDuplicateEntry.
func (s *SubledgerService) Record(ctx context.Context, entry models.LedgerEntry) error {
	zap.L().Info("Recording ledger entry",
		zap.String("user_id", entry.UserId),
		zap.String("type", entry.EntryType),
		zap.String("amount", entry.Amount.String()),
		zap.String("reference", entry.Reference))

	var existingId string
	err := s.db.QueryRowContext(ctx, queryCheckDuplicateReference, entry.Reference).Scan(&existingId)
	if err == nil {
		zap.L().Warn("Duplicate ledger reference detected, skipping",
			zap.String("reference", entry.Reference),
			zap.String("existing_entry_id", existingId))
		return fmt.Errorf("%w: %s", store.ErrDuplicateEntry, entry.Reference)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check for duplicate entry: %w", err)
	}

	if entry.Id == "" {
		entry.Id = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx, queryInsertLedgerEntry,
		entry.Id, entry.UserId, entry.EntryType,
		entry.Amount.String(), entry.BalanceBefore.String(), entry.BalanceAfter.String(),
		entry.Reference, entry.CreatedAt)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("%w: %s", store.ErrDuplicateEntry, entry.Reference)
		}
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}
	return nil
}

func (s *SubledgerService) History(ctx context.Context, userId string, limit, offset int) ([]models.LedgerEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, queryGetLedgerHistory, userId, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger history: %w", err)
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		var amountStr, beforeStr, afterStr string
		if err := rows.Scan(&e.Id, &e.UserId, &e.EntryType, &amountStr, &beforeStr, &afterStr, &e.Reference, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		if e.Amount, err = decimal.NewFromString(amountStr); err != nil {
			return nil, fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
		}
		if e.BalanceBefore, err = decimal.NewFromString(beforeStr); err != nil {
			return nil, fmt.Errorf("failed to parse balance_before '%s': %w", beforeStr, err)
		}
		if e.BalanceAfter, err = decimal.NewFromString(afterStr); err != nil {
			return nil, fmt.Errorf("failed to parse balance_after '%s': %w", afterStr, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Sum totals every signed amount recorded for a user.
func (s *SubledgerService) Sum(ctx context.Context, userId string) (decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, queryGetLedgerAmounts, userId)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to query ledger amounts: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var amountStr string
		if err := rows.Scan(&amountStr); err != nil {
			return decimal.Zero, fmt.Errorf("failed to scan amount: %w", err)
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
		}
		total = total.Add(amount)
	}
	return total, rows.Err()
}
