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

package gacha

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"gacha-chat-go/internal/identity"
	"gacha-chat-go/internal/models"
	"gacha-chat-go/internal/store"
	"gacha-chat-go/internal/store/memory"
)

func setupService(t *testing.T, money int64) (*Service, *memory.Store) {
	t.Helper()
	s := memory.New(1000)
	t.Cleanup(s.Close)

	if err := s.Set(context.Background(), store.UserPath("a"), models.User{DisplayName: "alice", Money: money}); err != nil {
		t.Fatalf("Failed to seed user: %v", err)
	}

	catalog, err := NewCatalog([]models.CardDefinition{
		{Id: "slime", Name: "Slime", Rate: 50, Price: 100},
		{Id: "dragon", Name: "Dragon", Rate: 1, Price: 5000},
	})
	if err != nil {
		t.Fatalf("NewCatalog failed: %v", err)
	}
	svc := NewService(s, s, catalog, 1000)
	svc.rng = fixedRand{f: 0.99}
	return svc, s
}

func TestDrawThenInsufficientFunds(t *testing.T) {
	svc, s := setupService(t, 1500)
	ctx := context.Background()

	result, err := svc.Draw(ctx, "a")
	if err != nil {
		t.Fatalf("Draw failed: %v", err)
	}
	if result.NewBalance != 500 {
		t.Errorf("Expected balance 500, got %d", result.NewBalance)
	}
	if result.Card.Id != "slime" || result.Card.Price != 100 {
		t.Errorf("Expected slime snapshot, got %+v", result.Card)
	}

	if _, err := svc.Draw(ctx, "a"); !errors.Is(err, models.ErrInsufficientFunds) {
		t.Fatalf("Expected ErrInsufficientFunds, got %v", err)
	}

	user, err := identity.NewDirectory(s).GetUser(ctx, "a")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if user.Money != 500 || len(user.Cards) != 1 {
		t.Errorf("Expected 500 and one card, got %d and %d", user.Money, len(user.Cards))
	}
	if _, ok := user.Cards[result.CardKey]; !ok {
		t.Errorf("Expected card stored under %s", result.CardKey)
	}

	sum, err := s.Sum(ctx, "a")
	if err != nil {
		t.Fatalf("Sum failed: %v", err)
	}
	if !sum.Equal(decimal.NewFromInt(-1000)) {
		t.Errorf("Expected one ledger debit of 1000, got %s", sum)
	}
}

func TestDrawUnknownUser(t *testing.T) {
	svc, _ := setupService(t, 0)
	if _, err := svc.Draw(context.Background(), "ghost"); !errors.Is(err, models.ErrUserNotFound) {
		t.Fatalf("Expected ErrUserNotFound, got %v", err)
	}
}

func TestConcurrentDrawsNeverOverspend(t *testing.T) {
	svc, s := setupService(t, 3500)
	ctx := context.Background()

	const players = 10
	var wg sync.WaitGroup
	results := make(chan error, players)
	for i := 0; i < players; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Draw(ctx, "a")
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
		case !errors.Is(err, models.ErrInsufficientFunds):
			t.Errorf("Unexpected error: %v", err)
		}
	}
	if succeeded != 3 {
		t.Errorf("Expected exactly 3 funded draws, got %d", succeeded)
	}

	user, err := identity.NewDirectory(s).GetUser(ctx, "a")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if user.Money != 500 || len(user.Cards) != 3 {
		t.Errorf("Expected balance 500 and 3 cards, got %d and %d", user.Money, len(user.Cards))
	}
}

func TestOwnedCardIsIndependentOfCatalog(t *testing.T) {
	svc, s := setupService(t, 1000)
	ctx := context.Background()

	result, err := svc.Draw(ctx, "a")
	if err != nil {
		t.Fatalf("Draw failed: %v", err)
	}

	svc.catalog.cards[0].Price = 1
	svc.catalog.cards[0].Name = "Renamed"

	user, err := identity.NewDirectory(s).GetUser(ctx, "a")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	owned := user.Cards[result.CardKey]
	if owned.Price != 100 || owned.Name != "Slime" {
		t.Errorf("Expected snapshot to keep draw-time values, got %+v", owned)
	}
}
