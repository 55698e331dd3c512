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

// Package inventory lists owned cards and runs the balance-crediting
// operations: selling a card back and admin grants.
package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gacha-chat-go/internal/models"
	"gacha-chat-go/internal/store"
)

type Service struct {
	store  store.TreeStore
	ledger store.EconomyLedger
	now    func() time.Time
}

// NewService wires the inventory. ledger may be nil, in which case no audit
// entries are written.
func NewService(s store.TreeStore, ledger store.EconomyLedger) *Service {
	return &Service{store: s, ledger: ledger, now: time.Now}
}

// List returns every owned card ordered by collection key, which is also
// acquisition order. An empty collection is an empty slice.
func (s *Service) List(ctx context.Context, uid string) ([]models.KeyedCard, error) {
	raw, err := s.store.Get(ctx, store.UserPath(uid))
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", models.ErrUserNotFound, uid)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read user: %w", err)
	}

	var user models.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}

	cards := make([]models.KeyedCard, 0, len(user.Cards))
	for key, card := range user.Cards {
		cards = append(cards, models.KeyedCard{Key: key, OwnedCard: card})
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].Key < cards[j].Key })
	return cards, nil
}

// Sell removes an owned card and credits its stored price. The card is
// looked up inside the transaction, so a concurrent sell of the same key
// makes exactly one of them fail with models.ErrCardNotFound.
func (s *Service) Sell(ctx context.Context, uid, cardKey string) (*models.SellResult, error) {
	if cardKey == "" {
		return nil, fmt.Errorf("%w: cardKey", models.ErrMissingField)
	}
	if !store.ValidKey(cardKey) {
		return nil, fmt.Errorf("%w: cardKey %q", models.ErrInvalidId, cardKey)
	}

	var (
		sold          *models.OwnedCard
		before, after int64
	)
	_, err := s.store.Transaction(ctx, store.UserPath(uid), func(current json.RawMessage) (json.RawMessage, error) {
		wallet, err := DecodeWallet(current)
		if err != nil {
			return nil, err
		}
		card, err := wallet.RemoveCard(cardKey)
		if err != nil {
			return nil, err
		}
		before = wallet.Money
		wallet.Money += card.Price
		after = wallet.Money
		sold = card
		return wallet.Encode()
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Card sold",
		zap.String("user_id", uid),
		zap.String("card_key", cardKey),
		zap.String("card_id", sold.Id),
		zap.Int64("price", sold.Price),
		zap.Int64("new_balance", after))

	RecordEntry(ctx, s.ledger, models.LedgerEntry{
		UserId:        uid,
		EntryType:     models.LedgerCardSale,
		Amount:        decimal.NewFromInt(sold.Price),
		BalanceBefore: decimal.NewFromInt(before),
		BalanceAfter:  decimal.NewFromInt(after),
		Reference:     "sale:" + cardKey,
		CreatedAt:     s.now(),
	})

	return &models.SellResult{
		CardKey:    cardKey,
		Card:       *sold,
		Credited:   sold.Price,
		NewBalance: after,
	}, nil
}

// Grant credits amount to a user's balance and returns the new balance.
func (s *Service) Grant(ctx context.Context, uid string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, models.ErrInvalidAmount
	}

	var before, after int64
	_, err := s.store.Transaction(ctx, store.UserPath(uid), func(current json.RawMessage) (json.RawMessage, error) {
		wallet, err := DecodeWallet(current)
		if err != nil {
			return nil, err
		}
		before = wallet.Money
		wallet.Money += amount
		after = wallet.Money
		return wallet.Encode()
	})
	if err != nil {
		return 0, err
	}

	zap.L().Info("Balance granted",
		zap.String("user_id", uid),
		zap.Int64("amount", amount),
		zap.Int64("new_balance", after))

	RecordEntry(ctx, s.ledger, models.LedgerEntry{
		UserId:        uid,
		EntryType:     models.LedgerGrant,
		Amount:        decimal.NewFromInt(amount),
		BalanceBefore: decimal.NewFromInt(before),
		BalanceAfter:  decimal.NewFromInt(after),
		Reference:     "grant:" + s.store.NewKey(),
		CreatedAt:     s.now(),
	})
	return after, nil
}

// RecordEntry appends to the economy ledger after the balance change has
// already committed. A failure is logged, not returned: the tree store
// holds the authoritative balance and cmd/balances reports any drift.
func RecordEntry(ctx context.Context, ledger store.EconomyLedger, entry models.LedgerEntry) {
	if ledger == nil {
		return
	}
	if err := ledger.Record(ctx, entry); err != nil {
		zap.L().Error("Failed to record ledger entry",
			zap.String("user_id", entry.UserId),
			zap.String("type", entry.EntryType),
			zap.String("reference", entry.Reference),
			zap.Error(err))
	}
}
