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
	"regexp"

	"go.uber.org/zap"

	"gacha-chat-go/internal/auth"
	"gacha-chat-go/internal/common"
	"gacha-chat-go/internal/config"
	"gacha-chat-go/internal/identity"
	"gacha-chat-go/internal/store"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	emailFlag := flag.String("email", "", "User's email address (required)")
	passwordFlag := flag.String("password", "", "Initial password (required)")
	adminFlag := flag.Bool("admin", false, "Mark the account as an administrator")
	flag.Parse()

	if *emailFlag == "" || *passwordFlag == "" {
		zap.L().Fatal("Both flags are required: --email and --password")
	}
	if err := validateEmail(*emailFlag); err != nil {
		zap.L().Fatal("Invalid email", zap.Error(err))
	}

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	stores, err := common.InitializeStores(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize stores", zap.Error(err))
	}
	defer stores.Close()

	dir := identity.NewDirectory(stores.Tree)
	authService, err := auth.NewService(stores.Tree, dir, cfg.Auth)
	if err != nil {
		zap.L().Fatal("Failed to initialize auth", zap.Error(err))
	}

	zap.L().Info("Starting user creation process", zap.String("email", *emailFlag))

	id, err := authService.Register(ctx, *emailFlag, *passwordFlag)
	if err != nil {
		zap.L().Fatal("Failed to create user", zap.String("email", *emailFlag), zap.Error(err))
	}

	if *adminFlag {
		if err := stores.Tree.Set(ctx, store.UserPath(id.Uid, "isAdmin"), true); err != nil {
			zap.L().Fatal("User created but failed to grant admin", zap.String("user_id", id.Uid), zap.Error(err))
		}
	}

	common.PrintHeader("USER CREATED", common.DefaultWidth)
	fmt.Printf("ID:           %s\n", id.Uid)
	fmt.Printf("Display name: %s\n", id.DisplayName)
	fmt.Printf("Email:        %s\n", id.Email)
	fmt.Printf("Admin:        %t\n", *adminFlag)
	common.PrintSeparator("=", common.DefaultWidth)

	zap.L().Info("User created successfully", zap.String("id", id.Uid))
}
