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
	"context"
	"flag"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gacha-chat-go/internal/common"
	"gacha-chat-go/internal/config"
	"gacha-chat-go/internal/models"
	"gacha-chat-go/internal/store"
)

type balanceStats struct {
	totalUsers    int
	totalMoney    int64
	totalCards    int
	reconciled    int
	drifted       int
	ledgerSkipped bool
}

func printCards(cards map[string]models.OwnedCard) {
	keys := make([]string, 0, len(cards))
	for key := range cards {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for i, key := range keys {
		card := cards[key]
		fmt.Printf("%s %-20s %-12s price %8s  (key %s)\n",
			common.BoxPrefix(i == len(keys)-1),
			card.Name,
			card.Id,
			common.FormatCoins(card.Price),
			common.ShortId(key))
	}
}

// reconcile compares the stored balance with the ledger sum. Every account
// starts at zero, so the two agree unless a ledger write was lost.
func reconcile(ctx context.Context, ledger store.EconomyLedger, user common.UserInfo) (decimal.Decimal, bool, error) {
	sum, err := ledger.Sum(ctx, user.Id)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to sum ledger: %w", err)
	}
	return sum, sum.Equal(decimal.NewFromInt(user.User.Money)), nil
}

func processUser(ctx context.Context, user common.UserInfo, ledger store.EconomyLedger, stats *balanceStats, logger *zap.Logger) {
	stats.totalUsers++
	stats.totalMoney += user.User.Money
	stats.totalCards += len(user.User.Cards)

	fmt.Printf("\n┌─ User: %s (%s)\n", user.User.DisplayName, user.User.Email)
	fmt.Printf("│  ID: %s\n", user.Id)
	fmt.Printf("│  Money: %s   Cards: %d   Friends: %d\n",
		common.FormatCoins(user.User.Money), len(user.User.Cards), len(user.User.Friends))

	if ledger != nil {
		sum, ok, err := reconcile(ctx, ledger, user)
		switch {
		case err != nil:
			logger.Error("Failed to reconcile user",
				zap.String("user_id", user.Id),
				zap.Error(err))
			fmt.Printf("│  Ledger: error (%v)\n", err)
		case ok:
			stats.reconciled++
			fmt.Printf("│  Ledger: %s ✓\n", sum.String())
		default:
			stats.drifted++
			logger.Warn("Balance does not match ledger",
				zap.String("user_id", user.Id),
				zap.Int64("money", user.User.Money),
				zap.String("ledger_sum", sum.String()))
			fmt.Printf("│  Ledger: %s ✗ DRIFT %s\n", sum.String(),
				decimal.NewFromInt(user.User.Money).Sub(sum).String())
		}
	}

	if len(user.User.Cards) > 0 {
		common.PrintBoxSeparator(78)
		printCards(user.User.Cards)
	}
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	emailFlag := flag.String("email", "", "Filter by specific user email (optional)")
	flag.Parse()

	logger.Info("Starting balance report")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	stores, err := common.InitializeStores(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize stores", zap.Error(err))
	}
	defer stores.Close()

	users, err := common.InitializeUsers(ctx, stores.Tree, *emailFlag, logger)
	if err != nil {
		logger.Fatal("Failed to initialize users", zap.Error(err))
	}

	common.PrintHeader("USER BALANCE REPORT", common.DefaultWidth)

	stats := balanceStats{ledgerSkipped: stores.Ledger == nil}
	for _, user := range users {
		processUser(ctx, user, stores.Ledger, &stats, logger)
	}

	summary := fmt.Sprintf("SUMMARY: %d users, %s coins, %d cards", stats.totalUsers,
		common.FormatCoins(stats.totalMoney), stats.totalCards)
	if stats.ledgerSkipped {
		summary += " (ledger disabled, no reconciliation)"
	} else {
		summary += fmt.Sprintf(", %d reconciled, %d drifted", stats.reconciled, stats.drifted)
	}
	common.PrintFooter(summary, common.DefaultWidth)

	logger.Info("Balance report completed",
		zap.Int("users", stats.totalUsers),
		zap.Int("reconciled", stats.reconciled),
		zap.Int("drifted", stats.drifted))
}
