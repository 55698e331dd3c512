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

package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"gacha-chat-go/internal/identity"
	"gacha-chat-go/internal/models"
	"gacha-chat-go/internal/store/memory"
)

func setupAuth(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	s := memory.New(0)
	t.Cleanup(s.Close)

	svc, err := NewService(s, identity.NewDirectory(s), models.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	svc.cost = bcrypt.MinCost
	return svc, s
}

func TestNewServiceRequiresSecret(t *testing.T) {
	s := memory.New(0)
	defer s.Close()
	if _, err := NewService(s, identity.NewDirectory(s), models.AuthConfig{}); err == nil {
		t.Fatal("Expected error for empty secret")
	}
}

func TestRegisterLoginVerify(t *testing.T) {
	svc, s := setupAuth(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, " Alice@Example.com ", "password123")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if registered.DisplayName != "alice" || registered.Email != "alice@example.com" {
		t.Errorf("Unexpected identity %+v", registered)
	}

	user, err := identity.NewDirectory(s).GetUser(ctx, registered.Uid)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if user.Money != 0 || user.IsAdmin || user.DisplayName != "alice" {
		t.Errorf("Unexpected profile %+v", user)
	}

	token, loggedIn, err := svc.Login(ctx, "alice@example.com", "password123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if loggedIn.Uid != registered.Uid {
		t.Errorf("Expected uid %s, got %s", registered.Uid, loggedIn.Uid)
	}

	verified, err := svc.Verify(ctx, token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if verified.Uid != registered.Uid || verified.DisplayName != "alice" {
		t.Errorf("Unexpected verified identity %+v", verified)
	}
}

func TestRegisterRejections(t *testing.T) {
	svc, _ := setupAuth(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "bob@example.com", "password123"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{"missing email", "", "password123", models.ErrMissingField},
		{"malformed email", "bob", "password123", models.ErrBadRequest},
		{"short password", "carol@example.com", "abc", models.ErrBadRequest},
		{"email taken", "BOB@example.com", "password123", models.ErrEmailTaken},
		{"display name taken", "bob@other.org", "password123", models.ErrDisplayNameTaken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.email, tt.password)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestLoginRejections(t *testing.T) {
	svc, _ := setupAuth(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "dave@example.com", "password123"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if _, _, err := svc.Login(ctx, "dave@example.com", "wrong-password"); !errors.Is(err, models.ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "nobody@example.com", "password123"); !errors.Is(err, models.ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials for unknown email, got %v", err)
	}
	if !errors.Is(models.ErrInvalidCredentials, models.ErrUnauthorized) {
		t.Error("Expected invalid credentials to be an unauthorized error")
	}
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	svc, _ := setupAuth(t)
	ctx := context.Background()

	valid, err := svc.Issue("uid-1", "eve@example.com")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	other, err := NewService(svc.store, svc.dir, models.AuthConfig{JWTSecret: "other-secret"})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	foreign, err := other.Issue("uid-1", "eve@example.com")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	expiring, err := NewService(svc.store, svc.dir, models.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Minute})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	expiring.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, err := expiring.Issue("uid-1", "eve@example.com")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	tests := map[string]string{
		"garbage":      "not-a-token",
		"tampered":     valid + "x",
		"wrong secret": foreign,
		"expired":      expired,
	}
	for name, token := range tests {
		if _, err := svc.Verify(ctx, token); !errors.Is(err, models.ErrInvalidToken) {
			t.Errorf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}

func TestVerifyCreatesMissingProfile(t *testing.T) {
	svc, s := setupAuth(t)
	ctx := context.Background()

	token, err := svc.Issue("uid-2", "frank@example.com")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	id, err := svc.Verify(ctx, token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if id.DisplayName != "frank" {
		t.Errorf("Expected display name frank, got %s", id.DisplayName)
	}
	if _, err := identity.NewDirectory(s).GetUser(ctx, "uid-2"); err != nil {
		t.Errorf("Expected profile to exist, got %v", err)
	}
}
