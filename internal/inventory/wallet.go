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
	"encoding/json"
	"fmt"

	"gacha-chat-go/internal/models"
)

// Wallet is the economy view of a user document inside a transaction: the
// balance and the owned-card collection. Every other field of the document
// is carried through untouched.
type Wallet struct {
	doc   map[string]json.RawMessage
	Money int64
	cards map[string]json.RawMessage
}

// DecodeWallet reads a users/{id} document. A nil document means the user
// does not exist.
func DecodeWallet(raw json.RawMessage) (*Wallet, error) {
	if raw == nil {
		return nil, models.ErrUserNotFound
	}

	w := &Wallet{cards: make(map[string]json.RawMessage)}
	if err := json.Unmarshal(raw, &w.doc); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	if money, ok := w.doc["money"]; ok {
		if err := json.Unmarshal(money, &w.Money); err != nil {
			return nil, fmt.Errorf("failed to decode money: %w", err)
		}
	}
	if cards, ok := w.doc["cards"]; ok {
		if err := json.Unmarshal(cards, &w.cards); err != nil {
			return nil, fmt.Errorf("failed to decode cards: %w", err)
		}
	}
	return w, nil
}

func (w *Wallet) AddCard(key string, card models.OwnedCard) error {
	raw, err := json.Marshal(card)
	if err != nil {
		return err
	}
	w.cards[key] = raw
	return nil
}

// RemoveCard deletes the card under key and returns it.
func (w *Wallet) RemoveCard(key string) (*models.OwnedCard, error) {
	raw, ok := w.cards[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrCardNotFound, key)
	}
	var card models.OwnedCard
	if err := json.Unmarshal(raw, &card); err != nil {
		return nil, fmt.Errorf("failed to decode card %s: %w", key, err)
	}
	delete(w.cards, key)
	return &card, nil
}

func (w *Wallet) Encode() (json.RawMessage, error) {
	money, err := json.Marshal(w.Money)
	if err != nil {
		return nil, err
	}
	w.doc["money"] = money

	if len(w.cards) == 0 {
		delete(w.doc, "cards")
	} else {
		cards, err := json.Marshal(w.cards)
		if err != nil {
			return nil, err
		}
		w.doc["cards"] = cards
	}
	return json.Marshal(w.doc)
}
