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

package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"gacha-chat-go/internal/models"
	"gacha-chat-go/internal/store"
	"gacha-chat-go/internal/store/memory"
)

func setupService(t *testing.T, money int64, cards map[string]models.OwnedCard) (*Service, *memory.Store) {
	t.Helper()
	s := memory.New(1000)
	t.Cleanup(s.Close)

	user := models.User{DisplayName: "alice", Email: "alice@example.com", Money: money, Cards: cards}
	if err := s.Set(context.Background(), store.UserPath("a"), user); err != nil {
		t.Fatalf("Failed to seed user: %v", err)
	}
	return NewService(s, s), s
}

func TestListEmptyCollection(t *testing.T) {
	svc, _ := setupService(t, 0, nil)
	cards, err := svc.List(context.Background(), "a")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if cards == nil || len(cards) != 0 {
		t.Errorf("Expected empty non-nil slice, got %#v", cards)
	}

	if _, err := svc.List(context.Background(), "ghost"); !errors.Is(err, models.ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
}

func TestListOrdersByKey(t *testing.T) {
	svc, _ := setupService(t, 0, map[string]models.OwnedCard{
		"k2": {Id: "c2", Name: "Second"},
		"k1": {Id: "c1", Name: "First"},
	})
	cards, err := svc.List(context.Background(), "a")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(cards) != 2 || cards[0].Key != "k1" || cards[1].Name != "Second" {
		t.Errorf("Unexpected cards: %+v", cards)
	}
}

func TestSellTwiceFails(t *testing.T) {
	svc, s := setupService(t, 100, map[string]models.OwnedCard{
		"k1": {Id: "c1", Name: "Dragon", Price: 250},
	})
	ctx := context.Background()

	result, err := svc.Sell(ctx, "a", "k1")
	if err != nil {
		t.Fatalf("Sell failed: %v", err)
	}
	if result.NewBalance != 350 || result.Credited != 250 || result.Card.Id != "c1" {
		t.Errorf("Unexpected sell result: %+v", result)
	}

	if _, err := svc.Sell(ctx, "a", "k1"); !errors.Is(err, models.ErrCardNotFound) {
		t.Fatalf("Expected ErrCardNotFound on second sell, got %v", err)
	}

	raw, err := s.Get(ctx, store.UserPath("a", "money"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(raw) != "350" {
		t.Errorf("Expected balance 350 after failed resell, got %s", raw)
	}

	sum, err := s.Sum(ctx, "a")
	if err != nil {
		t.Fatalf("Sum failed: %v", err)
	}
	if !sum.Equal(decimal.NewFromInt(250)) {
		t.Errorf("Expected one ledger credit of 250, got %s", sum)
	}
}

func TestConcurrentSellsOfSameCard(t *testing.T) {
	svc, s := setupService(t, 0, map[string]models.OwnedCard{
		"k1": {Id: "c1", Price: 100},
	})
	ctx := context.Background()

	const sellers = 8
	var wg sync.WaitGroup
	results := make(chan error, sellers)
	for i := 0; i < sellers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Sell(ctx, "a", "k1")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case !errors.Is(err, models.ErrCardNotFound):
			t.Errorf("Unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("Expected exactly one successful sell, got %d", succeeded)
	}

	raw, err := s.Get(ctx, store.UserPath("a", "money"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(raw) != "100" {
		t.Errorf("Expected balance 100, got %s", raw)
	}
}

func TestSellValidation(t *testing.T) {
	svc, _ := setupService(t, 0, nil)
	ctx := context.Background()

	if _, err := svc.Sell(ctx, "a", ""); !errors.Is(err, models.ErrBadRequest) {
		t.Errorf("Expected BadRequest, got %v", err)
	}
	if _, err := svc.Sell(ctx, "a", "k.1"); !errors.Is(err, models.ErrInvalidId) {
		t.Errorf("Expected ErrInvalidId, got %v", err)
	}
	if _, err := svc.Sell(ctx, "ghost", "k1"); !errors.Is(err, models.ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
}

func TestGrant(t *testing.T) {
	svc, s := setupService(t, 100, nil)
	ctx := context.Background()

	balance, err := svc.Grant(ctx, "a", 1400)
	if err != nil {
		t.Fatalf("Grant failed: %v", err)
	}
	if balance != 1500 {
		t.Errorf("Expected 1500, got %d", balance)
	}
	if _, err := svc.Grant(ctx, "a", 0); !errors.Is(err, models.ErrInvalidAmount) {
		t.Errorf("Expected ErrInvalidAmount, got %v", err)
	}

	history, err := s.History(ctx, "a", 10, 0)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 1 || history[0].EntryType != models.LedgerGrant {
		t.Errorf("Expected one grant entry, got %+v", history)
	}
}

func TestWalletKeepsUnknownFields(t *testing.T) {
	w, err := DecodeWallet(json.RawMessage(`{"displayName":"alice","textCount":7,"money":10}`))
	if err != nil {
		t.Fatalf("DecodeWallet failed: %v", err)
	}
	w.Money = 20
	if err := w.AddCard("k1", models.OwnedCard{Id: "c1"}); err != nil {
		t.Fatalf("AddCard failed: %v", err)
	}
	raw, err := w.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if doc["textCount"] != float64(7) || doc["money"] != float64(20) || doc["displayName"] != "alice" {
		t.Errorf("Unexpected document: %v", doc)
	}
	if _, ok := doc["cards"].(map[string]any)["k1"]; !ok {
		t.Errorf("Expected card k1, got %v", doc["cards"])
	}

	if _, err := DecodeWallet(nil); !errors.Is(err, models.ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound for missing document, got %v", err)
	}
}
