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

// Package auth registers accounts and issues the bearer tokens every
// authenticated route checks.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"gacha-chat-go/internal/identity"
	"gacha-chat-go/internal/models"
	"gacha-chat-go/internal/store"
)

const (
	DefaultTokenTTL   = 24 * time.Hour
	MinPasswordLength = 6
)

type Service struct {
	store  store.TreeStore
	dir    *identity.Directory
	secret []byte
	ttl    time.Duration
	cost   int
	now    func() time.Time
}

func NewService(s store.TreeStore, dir *identity.Directory, cfg models.AuthConfig) (*Service, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret cannot be empty")
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Service{
		store:  s,
		dir:    dir,
		secret: []byte(cfg.JWTSecret),
		ttl:    ttl,
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
	}, nil
}

// Register creates the credentials record and the matching profile in one
// update. Email and display name uniqueness are checked before the write.
func (s *Service) Register(ctx context.Context, email, password string) (*models.Identity, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, models.ErrMissingField
	}
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: malformed email", models.ErrBadRequest)
	}
	if len(password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", models.ErrBadRequest, MinPasswordLength)
	}

	if _, _, err := s.findCredentials(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: %s", models.ErrEmailTaken, email)
	} else if !errors.Is(err, models.ErrInvalidCredentials) {
		return nil, err
	}

	displayName := identity.DisplayNameFromEmail(email)
	taken, err := s.store.Query(ctx, store.UsersRoot, store.Query{
		OrderByChild: "displayName",
		EqualTo:      displayName,
		LimitToFirst: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to check display name: %w", err)
	}
	if len(taken) > 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrDisplayNameTaken, displayName)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	uid := s.store.NewKey()
	createdAt := s.now().UnixMilli()
	err = s.store.Update(ctx, map[string]any{
		store.CredentialsPath(uid): models.Credentials{
			Email:        email,
			PasswordHash: string(hash),
			CreatedAt:    createdAt,
		},
		store.UserPath(uid): models.User{
			DisplayName: displayName,
			Email:       email,
			CreatedAt:   createdAt,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	zap.L().Info("Account registered",
		zap.String("user_id", uid),
		zap.String("display_name", displayName))

	return &models.Identity{Uid: uid, DisplayName: displayName, Email: email}, nil
}

// Login checks the password and returns a signed token for the account.
func (s *Service) Login(ctx context.Context, email, password string) (string, *models.Identity, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return "", nil, models.ErrMissingField
	}

	uid, creds, err := s.findCredentials(ctx, email)
	if err != nil {
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(password)); err != nil {
		return "", nil, models.ErrInvalidCredentials
	}

	user, err := s.dir.EnsureProfile(ctx, uid, email)
	if err != nil {
		return "", nil, err
	}

	token, err := s.Issue(uid, email)
	if err != nil {
		return "", nil, err
	}

	zap.L().Info("Login", zap.String("user_id", uid))
	return token, &models.Identity{Uid: uid, DisplayName: user.DisplayName, Email: email}, nil
}

// Issue signs an HS256 token carrying the user id as subject.
func (s *Service) Issue(uid, email string) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":   uid,
		"email": email,
		"iat":   now.Unix(),
		"exp":   now.Add(s.ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a bearer token and resolves the caller, creating the profile
// if the account has none yet.
func (s *Service) Verify(ctx context.Context, tokenStr string) (*models.Identity, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected claims", models.ErrInvalidToken)
	}
	uid, err := claims.GetSubject()
	if err != nil || uid == "" {
		return nil, fmt.Errorf("%w: missing subject", models.ErrInvalidToken)
	}
	email, _ := claims["email"].(string)

	user, err := s.dir.EnsureProfile(ctx, uid, email)
	if errors.Is(err, models.ErrMissingField) {
		return nil, fmt.Errorf("%w: missing email", models.ErrInvalidToken)
	}
	if err != nil {
		return nil, err
	}

	return &models.Identity{Uid: uid, DisplayName: user.DisplayName, Email: user.Email}, nil
}

func (s *Service) findCredentials(ctx context.Context, email string) (string, *models.Credentials, error) {
	snaps, err := s.store.Query(ctx, store.CredentialsRoot, store.Query{
		OrderByChild: "email",
		EqualTo:      email,
		LimitToFirst: 1,
	})
	if err != nil {
		return "", nil, fmt.Errorf("failed to look up credentials: %w", err)
	}
	if len(snaps) == 0 {
		return "", nil, models.ErrInvalidCredentials
	}

	var creds models.Credentials
	if err := json.Unmarshal(snaps[0].Value, &creds); err != nil {
		return "", nil, fmt.Errorf("failed to decode credentials: %w", err)
	}
	return snaps[0].Key, &creds, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
