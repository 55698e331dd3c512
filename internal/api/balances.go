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

package api

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"gacha-chat-go/internal/models"
)

// GetProfile returns the caller's own profile with collection counts
func (s *Server) GetProfile(ctx context.Context, uid string) (*models.Profile, error) {
	user, err := s.dir.GetUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	return &models.Profile{
		Uid:         uid,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		IsAdmin:     user.IsAdmin,
		Money:       user.Money,
		CardCount:   len(user.Cards),
		FriendCount: len(user.Friends),
	}, nil
}

// GetLedgerHistory returns paginated economy history for a user, newest first
func (s *Server) GetLedgerHistory(ctx context.Context, uid string, limit, offset int) ([]models.LedgerRecord, error) {
	if uid == "" {
		return nil, models.ErrMissingField
	}

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	entries, err := s.ledger.History(ctx, uid, limit, offset)
	if err != nil {
		zap.L().Error("Failed to get ledger history",
			zap.String("user_id", uid),
			zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve ledger history: %w", err)
	}

	result := make([]models.LedgerRecord, len(entries))
	for i, entry := range entries {
		result[i] = models.LedgerRecord{
			Id:           entry.Id,
			Type:         entry.EntryType,
			Amount:       entry.Amount,
			BalanceAfter: entry.BalanceAfter,
			Reference:    entry.Reference,
			CreatedAt:    entry.CreatedAt,
		}
	}

	return result, nil
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.GetProfile(r.Context(), caller(r).Uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "OK", "profile": profile})
}

func (s *Server) handleLedgerHistory(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		writeMessage(w, http.StatusServiceUnavailable, "Ledger is not configured.")
		return
	}

	limit, err := queryInt(r, "limit", 20)
	if err != nil {
		writeError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}

	records, err := s.GetLedgerHistory(r.Context(), caller(r).Uid, limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "OK", "entries": records})
}
