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

package formance

import (
	"context"
	"fmt"
	"strings"

	"gacha-chat-go/internal/models"
	"gacha-chat-go/internal/store"

	v3 "github.com/formancehq/formance-sdk-go/v3"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// Numscript templates. All metadata is set inside the script via
// set_tx_meta() so the Formance transaction is fully self-describing.
// ---------------------------------------------------------------------------

// numscriptDebit moves coins spent on a draw out of the user's account.
const numscriptDebit = `vars {
  asset $asset
  number $amount
  account $user_id
  account $pool
  string $entry_type
  string $entry_id
  string $balance_before
  string $balance_after
}

send [$asset $amount] (
  source = @users:$user_id allowing unbounded overdraft
  destination = @platform:gacha:$pool
)

set_tx_meta("entry_type", $entry_type)
set_tx_meta("entry_id", $entry_id)
set_tx_meta("balance_before", $balance_before)
set_tx_meta("balance_after", $balance_after)
`

// numscriptCredit pays a user from a platform pool (card buyback or admin grant).
const numscriptCredit = `vars {
  asset $asset
  number $amount
  account $user_id
  account $pool
  string $entry_type
  string $entry_id
  string $balance_before
  string $balance_after
}

send [$asset $amount] (
  source = @platform:gacha:$pool allowing unbounded overdraft
  destination = @users:$user_id
)

set_tx_meta("entry_type", $entry_type)
set_tx_meta("entry_id", $entry_id)
set_tx_meta("balance_before", $balance_before)
set_tx_meta("balance_after", $balance_after)
`

// poolFor names the platform account on the other side of an entry.
func poolFor(entryType string) string {
	switch entryType {
	case models.LedgerGachaDraw:
		return "revenue"
	case models.LedgerCardSale:
		return "buyback"
	default:
		return "grants"
	}
}

// scriptFor picks the template by the sign of the amount.
func scriptFor(amount decimal.Decimal) string {
	if amount.IsNegative() {
		return numscriptDebit
	}
	return numscriptCredit
}

// Record posts an entry as a Numscript transaction. The entry reference is the
// Formance transaction reference, so a replay conflicts instead of double posting.
func (s *Service) Record(ctx context.Context, entry models.LedgerEntry) error {
	if entry.Amount.IsZero() {
		return nil
	}

	postTx := shared.V2PostTransaction{
		Reference: strPtr(entry.Reference),
		Script: &shared.V2PostTransactionScript{
			Plain: scriptFor(entry.Amount),
			Vars: map[string]string{
				"asset":          coinAsset,
				"amount":         entry.Amount.Abs().BigInt().String(),
				"user_id":        entry.UserId,
				"pool":           poolFor(entry.EntryType),
				"entry_type":     entry.EntryType,
				"entry_id":       entry.Id,
				"balance_before": entry.BalanceBefore.String(),
				"balance_after":  entry.BalanceAfter.String(),
			},
		},
	}
	if !entry.CreatedAt.IsZero() {
		postTx.Timestamp = &entry.CreatedAt
	}

	_, err := s.client.Ledger.V2.CreateTransaction(ctx, operations.V2CreateTransactionRequest{
		Ledger:            s.ledger,
		V2PostTransaction: postTx,
	})
	if err != nil {
		if isConflictError(err) {
			return fmt.Errorf("%w: %s", store.ErrDuplicateEntry, entry.Reference)
		}
		return fmt.Errorf("error recording ledger entry: %w", err)
	}

	zap.L().Info("Ledger entry recorded in Formance",
		zap.String("user_id", entry.UserId),
		zap.String("type", entry.EntryType),
		zap.String("amount", entry.Amount.String()),
		zap.String("reference", entry.Reference))
	return nil
}

// History returns paginated ledger history for a user, newest first.
func (s *Service) History(ctx context.Context, userId string, limit, offset int) ([]models.LedgerEntry, error) {
	account := userAccount(userId)
	if limit <= 0 {
		limit = 100
	}
	pageSize := int64(limit + offset) // fetch enough to skip offset

	resp, err := s.client.Ledger.V2.ListTransactions(ctx, operations.V2ListTransactionsRequest{
		Ledger:   s.ledger,
		PageSize: &pageSize,
		RequestBody: map[string]any{
			"$or": []any{
				map[string]any{"$match": map[string]any{"source": account}},
				map[string]any{"$match": map[string]any{"destination": account}},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	var result []models.LedgerEntry
	skipped := 0
	for _, tx := range resp.V2TransactionsCursorResponse.Cursor.Data {
		if skipped < offset {
			skipped++
			continue
		}

		// Derive signed amount from postings.
		amt := decimal.Zero
		for _, p := range tx.Postings {
			if p.Asset != coinAsset {
				continue
			}
			pAmt := bigIntToDecimal(p.Amount)
			if strings.EqualFold(p.Source, account) {
				amt = pAmt.Neg()
			} else if strings.EqualFold(p.Destination, account) {
				amt = pAmt
			}
		}

		ref := ""
		if tx.Reference != nil {
			ref = *tx.Reference
		}
		before, _ := decimal.NewFromString(tx.Metadata["balance_before"])
		after, _ := decimal.NewFromString(tx.Metadata["balance_after"])

		result = append(result, models.LedgerEntry{
			Id:            tx.Metadata["entry_id"],
			UserId:        userId,
			EntryType:     tx.Metadata["entry_type"],
			Amount:        amt,
			BalanceBefore: before,
			BalanceAfter:  after,
			Reference:     ref,
			CreatedAt:     tx.Timestamp,
		})

		if len(result) >= limit {
			break
		}
	}
	return result, nil
}

// Sum returns the user's account balance in the ledger.
func (s *Service) Sum(ctx context.Context, userId string) (decimal.Decimal, error) {
	resp, err := s.client.Ledger.V2.GetAccount(ctx, operations.V2GetAccountRequest{
		Ledger:  s.ledger,
		Address: userAccount(userId),
		Expand:  v3.Pointer("volumes"),
	})
	if err != nil {
		if isNotFoundError(err) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("failed to get account volumes: %w", err)
	}
	return bigIntToDecimal(volumeBalance(resp.V2AccountResponse.Data.Volumes, coinAsset)), nil
}
