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

	"go.uber.org/zap"

	"gacha-chat-go/internal/common"
	"gacha-chat-go/internal/config"
	"gacha-chat-go/internal/inventory"
)

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	userFlag := flag.String("user", "", "User id, email or display name (required)")
	amountFlag := flag.Int64("amount", 0, "Coins to credit, must be positive (required)")
	flag.Parse()

	if *userFlag == "" || *amountFlag <= 0 {
		logger.Fatal("Both flags are required: --user and a positive --amount")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	stores, err := common.InitializeStores(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize stores", zap.Error(err))
	}
	defer stores.Close()

	uid, err := common.ResolveUser(ctx, stores.Tree, *userFlag)
	if err != nil {
		logger.Fatal("Failed to resolve user", zap.String("user", *userFlag), zap.Error(err))
	}

	balance, err := inventory.NewService(stores.Tree, stores.Ledger).Grant(ctx, uid, *amountFlag)
	if err != nil {
		logger.Fatal("Failed to grant coins", zap.String("user_id", uid), zap.Error(err))
	}

	common.PrintHeader("COINS GRANTED", common.DefaultWidth)
	fmt.Printf("User:        %s\n", uid)
	fmt.Printf("Credited:    %s\n", common.FormatCoins(*amountFlag))
	fmt.Printf("New balance: %s\n", common.FormatCoins(balance))
	common.PrintSeparator("=", common.DefaultWidth)
}
