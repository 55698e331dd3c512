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

// User is the profile document stored at users/{id}.
type User struct {
	DisplayName            string                   `json:"displayName"`
	Email                  string                   `json:"email"`
	CreatedAt              int64                    `json:"createdAt"`
	IsAdmin                bool                     `json:"isAdmin"`
	Money                  int64                    `json:"money"`
	Cards                  map[string]OwnedCard     `json:"cards,omitempty"`
	Friends                map[string]Friend        `json:"friends,omitempty"`
	FriendRequestsSent     map[string]FriendRequest `json:"friend_requests_sent,omitempty"`
	FriendRequestsReceived map[string]FriendRequest `json:"friend_requests_received,omitempty"`
}

// Friend is one side of an accepted friendship, keyed by the counterpart's id.
type Friend struct {
	Username string `json:"username"`
	Uid      string `json:"uid"`
}

// FriendRequest is stored twice: under the sender's friend_requests_sent and the
// target's friend_requests_received, each describing the counterpart.
type FriendRequest struct {
	Username  string `json:"username"`
	Uid       string `json:"uid"`
	Timestamp int64  `json:"timestamp"`
}

// CardDefinition is a read-only catalog entry. Smaller Rate means the card
// weighs more in a draw (weight = 1/Rate).
type CardDefinition struct {
	Id          string  `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	Description string  `json:"description" yaml:"description"`
	Image       string  `json:"image" yaml:"image"`
	Rate        float64 `json:"rate" yaml:"rate"`
	Price       int64   `json:"price" yaml:"price"`
}

// OwnedCard is an independent copy of a catalog entry taken at draw time.
type OwnedCard struct {
	Id          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
	Rate        float64 `json:"rate"`
	Price       int64   `json:"price"`
	AcquiredAt  int64   `json:"acquiredAt"`
}

// SnapshotCard copies every catalog field so later catalog edits never leak
// into cards that are already owned.
func SnapshotCard(def CardDefinition, acquiredAt int64) OwnedCard {
	return OwnedCard{
		Id:          def.Id,
		Name:        def.Name,
		Description: def.Description,
		Image:       def.Image,
		Rate:        def.Rate,
		Price:       def.Price,
		AcquiredAt:  acquiredAt,
	}
}

// KeyedCard pairs an owned card with its collection key.
type KeyedCard struct {
	Key string `json:"key"`
	OwnedCard
}

// ChatMessage is an entry of publicChat/messages. Deletion only flips Deleted
// and replaces Text.
type ChatMessage struct {
	Sender    string    `json:"sender"`
	SenderUid string    `json:"senderUid"`
	Timestamp int64     `json:"timestamp"`
	Text      string    `json:"text"`
	ImageUrl  string    `json:"imageUrl,omitempty"`
	ReplyTo   *ReplyRef `json:"replyTo,omitempty"`
	Deleted   bool      `json:"deleted,omitempty"`
}

// ReplyRef is the snapshot of the replied-to message captured when the reply
// was posted.
type ReplyRef struct {
	Id        string `json:"id"`
	Text      string `json:"text"`
	Sender    string `json:"sender"`
	SenderUid string `json:"senderUid"`
}

// KeyedMessage pairs a chat message with its log key.
type KeyedMessage struct {
	Id string `json:"id"`
	ChatMessage
}

// Report is an entry of reportChat/messages.
type Report struct {
	ReporterUid       string `json:"reporterUid"`
	ReporterEmail     string `json:"reporterEmail"`
	ReportedMessageId string `json:"reportedMessageId"`
	OriginalSender    string `json:"originalSender"`
	OriginalSenderUid string `json:"originalSenderUid"`
	OriginalEmail     string `json:"originalSenderEmail,omitempty"`
	OriginalText      string `json:"originalText"`
	OriginalImageUrl  string `json:"originalImageUrl,omitempty"`
	Reason            string `json:"reason"`
	Timestamp         int64  `json:"timestamp"`
	Status            string `json:"status"`
}

// Credentials is the login record stored at credentials/{id}.
type Credentials struct {
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash"`
	CreatedAt    int64  `json:"createdAt"`
}

// Identity is the authenticated caller resolved from a bearer token.
type Identity struct {
	Uid         string
	DisplayName string
	Email       string
}

const (
	LedgerGachaDraw = "gacha_draw"
	LedgerCardSale  = "card_sale"
	LedgerGrant     = "grant"
)

// LedgerEntry is one currency movement in the economy audit trail.
type LedgerEntry struct {
	Id            string          `db:"id"`
	UserId        string          `db:"user_id"`
	EntryType     string          `db:"entry_type"`
	Amount        decimal.Decimal `db:"amount"`
	BalanceBefore decimal.Decimal `db:"balance_before"`
	BalanceAfter  decimal.Decimal `db:"balance_after"`
	Reference     string          `db:"reference"`
	CreatedAt     time.Time       `db:"created_at"`
}
