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

package common

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"gacha-chat-go/internal/models"
	"gacha-chat-go/internal/store"
)

// UserInfo is one user document as the command-line tools see it.
type UserInfo struct {
	Id   string
	User models.User
}

// InitializeUsers retrieves users based on an optional email filter.
// If emailFilter is provided, returns the users with that email.
// If emailFilter is empty, returns all users ordered by id.
func InitializeUsers(ctx context.Context, s store.TreeStore, emailFilter string, logger *zap.Logger) ([]UserInfo, error) {
	q := store.Query{}
	if emailFilter != "" {
		logger.Info("Looking up user by email", zap.String("email", emailFilter))
		q = store.Query{OrderByChild: "email", EqualTo: strings.ToLower(strings.TrimSpace(emailFilter))}
	}

	snaps, err := s.Query(ctx, store.UsersRoot, q)
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	if emailFilter != "" && len(snaps) == 0 {
		return nil, fmt.Errorf("user not found: %w", models.ErrUserNotFound)
	}

	users := make([]UserInfo, 0, len(snaps))
	for _, snap := range snaps {
		var u models.User
		if err := json.Unmarshal(snap.Value, &u); err != nil {
			logger.Warn("Skipping undecodable user", zap.String("user_id", snap.Key), zap.Error(err))
			continue
		}
		users = append(users, UserInfo{Id: snap.Key, User: u})
	}

	logger.Info("Retrieved users", zap.Int("count", len(users)))
	return users, nil
}

// ResolveUser accepts a user id, an email or a display name.
func ResolveUser(ctx context.Context, s store.TreeStore, ref string) (string, error) {
	if ref == "" {
		return "", models.ErrMissingField
	}
	if _, err := s.Get(ctx, store.UserPath(ref)); err == nil {
		return ref, nil
	}

	field := "displayName"
	if strings.Contains(ref, "@") {
		field = "email"
		ref = strings.ToLower(ref)
	}
	snaps, err := s.Query(ctx, store.UsersRoot, store.Query{OrderByChild: field, EqualTo: ref, LimitToFirst: 2})
	if err != nil {
		return "", fmt.Errorf("failed to look up user: %w", err)
	}
	switch len(snaps) {
	case 0:
		return "", fmt.Errorf("%w: %s", models.ErrUserNotFound, ref)
	case 1:
		return snaps[0].Key, nil
	default:
		return "", fmt.Errorf("%w: %s", models.ErrAmbiguousDisplayName, ref)
	}
}
