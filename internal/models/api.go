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

import (
	"time"

	"github.com/shopspring/decimal"
)

// DrawResult represents the outcome of a successful gacha draw
type DrawResult struct {
	CardKey    string    `json:"cardKey"`
	Card       OwnedCard `json:"card"`
	NewBalance int64     `json:"newBalance"`
}

// SellResult represents the outcome of selling an owned card
type SellResult struct {
	CardKey    string    `json:"cardKey"`
	Card       OwnedCard `json:"card"`
	Credited   int64     `json:"credited"`
	NewBalance int64     `json:"newBalance"`
}

// Profile is the public view of the caller's own user document
type Profile struct {
	Uid         string `json:"uid"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	IsAdmin     bool   `json:"isAdmin"`
	Money       int64  `json:"money"`
	CardCount   int    `json:"cardCount"`
	FriendCount int    `json:"friendCount"`
}

// PendingRequests groups both directions of a user's unresolved friend requests
type PendingRequests struct {
	Sent     []FriendRequest `json:"sent"`
	Received []FriendRequest `json:"received"`
}

// LedgerRecord represents an economy ledger entry in a user's history
type LedgerRecord struct {
	Id           string          `json:"id"`
	Type         string          `json:"type"` // "gacha_draw", "card_sale", "grant"
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	Reference    string          `json:"reference"`
	CreatedAt    time.Time       `json:"created_at"`
}
