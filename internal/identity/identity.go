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

// Package identity resolves between user ids and display names.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"gacha-chat-go/internal/models"
	"gacha-chat-go/internal/store"
)

type Directory struct {
	store store.TreeStore
}

func NewDirectory(s store.TreeStore) *Directory {
	return &Directory{store: s}
}

// ResolveIDByName looks a display name up through the displayName index.
// Names are not unique at write time; more than one match is reported as
// models.ErrAmbiguousDisplayName rather than picking one.
func (d *Directory) ResolveIDByName(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", models.ErrMissingField
	}

	snaps, err := d.store.Query(ctx, store.UsersRoot, store.Query{
		OrderByChild: "displayName",
		EqualTo:      name,
		LimitToFirst: 2,
	})
	if err != nil {
		return "", fmt.Errorf("failed to look up display name: %w", err)
	}

	switch len(snaps) {
	case 0:
		return "", fmt.Errorf("%w: %s", models.ErrUserNotFound, name)
	case 1:
		return snaps[0].Key, nil
	default:
		zap.L().Warn("Display name resolves to several users",
			zap.String("display_name", name),
			zap.String("first_user_id", snaps[0].Key),
			zap.String("second_user_id", snaps[1].Key))
		return "", fmt.Errorf("%w: %s", models.ErrAmbiguousDisplayName, name)
	}
}

func (d *Directory) ResolveNameByID(ctx context.Context, uid string) (string, error) {
	if uid == "" {
		return "", models.ErrMissingField
	}
	raw, err := d.store.Get(ctx, store.UserPath(uid, "displayName"))
	if errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("%w: %s", models.ErrUserNotFound, uid)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read display name: %w", err)
	}

	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return "", fmt.Errorf("failed to decode display name: %w", err)
	}
	return name, nil
}

// GetUser loads the full profile document.
func (d *Directory) GetUser(ctx context.Context, uid string) (*models.User, error) {
	raw, err := d.store.Get(ctx, store.UserPath(uid))
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", models.ErrUserNotFound, uid)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read user: %w", err)
	}

	var user models.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	return &user, nil
}

// EnsureProfile creates the profile on first authentication. An existing
// profile is left untouched, including one created by a concurrent caller
// between the read and the transaction.
func (d *Directory) EnsureProfile(ctx context.Context, uid, email string) (*models.User, error) {
	if uid == "" || email == "" {
		return nil, models.ErrMissingField
	}

	if user, err := d.GetUser(ctx, uid); err == nil {
		return user, nil
	} else if !errors.Is(err, models.ErrUserNotFound) {
		return nil, err
	}

	raw, err := d.store.Transaction(ctx, store.UserPath(uid), func(current json.RawMessage) (json.RawMessage, error) {
		if current != nil {
			return current, nil
		}
		return json.Marshal(models.User{
			DisplayName: DisplayNameFromEmail(email),
			Email:       email,
			CreatedAt:   time.Now().UnixMilli(),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ensure profile: %w", err)
	}

	var user models.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	return &user, nil
}

// DisplayNameFromEmail derives the default display name: the local part of
// the address.
func DisplayNameFromEmail(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}
