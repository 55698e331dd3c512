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

// Package gacha implements the paid card draw: weighted selection over the
// catalog and an atomic debit-and-grant on the user's document.
package gacha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gacha-chat-go/internal/inventory"
	"gacha-chat-go/internal/models"
	"gacha-chat-go/internal/store"
)

const DefaultCost = 1000

type Service struct {
	store   store.TreeStore
	ledger  store.EconomyLedger
	catalog *Catalog
	cost    int64
	rng     Rand
	now     func() time.Time
}

// NewService wires the draw engine. ledger may be nil.
func NewService(s store.TreeStore, ledger store.EconomyLedger, catalog *Catalog, cost int64) *Service {
	if cost <= 0 {
		cost = DefaultCost
	}
	return &Service{
		store:   s,
		ledger:  ledger,
		catalog: catalog,
		cost:    cost,
		rng:     globalRand{},
		now:     time.Now,
	}
}

func (s *Service) Cost() int64 {
	return s.cost
}

func (s *Service) Catalog() []models.CardDefinition {
	return s.catalog.Cards()
}

// Draw charges the draw cost and adds a randomly picked card to the user's
// collection. The balance check before picking is advisory; the one inside
// the transaction decides, so concurrent draws can never overspend.
func (s *Service) Draw(ctx context.Context, uid string) (*models.DrawResult, error) {
	money, err := s.balance(ctx, uid)
	if err != nil {
		return nil, err
	}
	if money < s.cost {
		return nil, fmt.Errorf("%w: balance %d, cost %d", models.ErrInsufficientFunds, money, s.cost)
	}

	def, ok := Pick(s.catalog.Cards(), s.rng)
	if !ok {
		return nil, fmt.Errorf("catalog is empty")
	}
	acquiredAt := s.now()
	card := models.SnapshotCard(def, acquiredAt.UnixMilli())
	key := s.store.NewKey()

	var before, after int64
	_, err = s.store.Transaction(ctx, store.UserPath(uid), func(current json.RawMessage) (json.RawMessage, error) {
		wallet, err := inventory.DecodeWallet(current)
		if err != nil {
			return nil, err
		}
		if wallet.Money < s.cost {
			return nil, fmt.Errorf("%w: balance %d, cost %d", models.ErrInsufficientFunds, wallet.Money, s.cost)
		}
		before = wallet.Money
		wallet.Money -= s.cost
		after = wallet.Money
		if err := wallet.AddCard(key, card); err != nil {
			return nil, err
		}
		return wallet.Encode()
	})
	if err != nil {
		if errors.Is(err, models.ErrInsufficientFunds) {
			zap.L().Info("Draw refused at commit time",
				zap.String("user_id", uid),
				zap.Error(err))
		}
		return nil, err
	}

	zap.L().Info("Gacha draw",
		zap.String("user_id", uid),
		zap.String("card_key", key),
		zap.String("card_id", card.Id),
		zap.Int64("new_balance", after))

	inventory.RecordEntry(ctx, s.ledger, models.LedgerEntry{
		UserId:        uid,
		EntryType:     models.LedgerGachaDraw,
		Amount:        decimal.NewFromInt(-s.cost),
		BalanceBefore: decimal.NewFromInt(before),
		BalanceAfter:  decimal.NewFromInt(after),
		Reference:     "draw:" + key,
		CreatedAt:     acquiredAt,
	})

	return &models.DrawResult{CardKey: key, Card: card, NewBalance: after}, nil
}

func (s *Service) balance(ctx context.Context, uid string) (int64, error) {
	raw, err := s.store.Get(ctx, store.UserPath(uid))
	if errors.Is(err, store.ErrNotFound) {
		return 0, fmt.Errorf("%w: %s", models.ErrUserNotFound, uid)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read user: %w", err)
	}
	wallet, err := inventory.DecodeWallet(raw)
	if err != nil {
		return 0, err
	}
	return wallet.Money, nil
}
