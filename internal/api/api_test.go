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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gacha-chat-go/internal/auth"
	"gacha-chat-go/internal/blob"
	"gacha-chat-go/internal/chat"
	"gacha-chat-go/internal/friends"
	"gacha-chat-go/internal/gacha"
	"gacha-chat-go/internal/identity"
	"gacha-chat-go/internal/inventory"
	"gacha-chat-go/internal/models"
	"gacha-chat-go/internal/store"
	"gacha-chat-go/internal/store/memory"
)

type testEnv struct {
	handler http.Handler
	server  *Server
	store   *memory.Store
	tokens  map[string]string
}

// setupTestEnv seeds alice (1500 coins), bob and carol and issues a token
// for each. images may be nil.
func setupTestEnv(t *testing.T, storage blob.Storage) *testEnv {
	t.Helper()
	s := memory.New(0)
	t.Cleanup(s.Close)
	ctx := context.Background()

	users := map[string]models.User{
		"uid-alice": {DisplayName: "alice", Email: "alice@example.com", Money: 1500},
		"uid-bob":   {DisplayName: "bob", Email: "bob@example.com"},
		"uid-carol": {DisplayName: "carol", Email: "carol@example.com"},
	}
	for uid, u := range users {
		if err := s.Set(ctx, store.UserPath(uid), u); err != nil {
			t.Fatalf("Failed to seed %s: %v", uid, err)
		}
	}

	dir := identity.NewDirectory(s)
	authSvc, err := auth.NewService(s, dir, models.AuthConfig{JWTSecret: "api-test-secret", TokenTTL: time.Hour})
	if err != nil {
		t.Fatalf("auth.NewService failed: %v", err)
	}
	catalog, err := gacha.NewCatalog([]models.CardDefinition{
		{Id: "slime", Name: "Slime", Rate: 1, Price: 100},
	})
	if err != nil {
		t.Fatalf("NewCatalog failed: %v", err)
	}

	deps := Dependencies{
		Store:     s,
		Auth:      authSvc,
		Directory: dir,
		Friends:   friends.NewService(s, dir),
		Chat:      chat.NewService(s, dir, 0),
		Gacha:     gacha.NewService(s, s, catalog, 1000),
		Inventory: inventory.NewService(s, s),
		Ledger:    s,
	}
	if storage != nil {
		deps.Images = blob.NewImages(storage, 1024)
	}
	server := NewServer(deps)

	tokens := make(map[string]string)
	for uid, u := range users {
		token, err := authSvc.Issue(uid, u.Email)
		if err != nil {
			t.Fatalf("Issue failed: %v", err)
		}
		tokens[u.DisplayName] = token
	}

	return &testEnv{handler: server.Routes(), server: server, store: s, tokens: tokens}
}

func (e *testEnv) do(t *testing.T, method, path, user string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+e.tokens[user])
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("%s %s: response is not JSON: %q", method, path, rec.Body.String())
		}
	}
	return rec.Code, out
}

func expectStatus(t *testing.T, got, want int, body map[string]any) {
	t.Helper()
	if got != want {
		t.Fatalf("Expected status %d, got %d: %v", want, got, body)
	}
}

func TestAuthenticationRules(t *testing.T) {
	env := setupTestEnv(t, nil)

	code, body := env.do(t, http.MethodGet, "/sendFriendRequest", "", nil)
	expectStatus(t, code, http.StatusMethodNotAllowed, body)
	if body["message"] != "Method Not Allowed" {
		t.Errorf("Unexpected 405 body %v", body)
	}

	code, body = env.do(t, http.MethodPost, "/sendFriendRequest", "", map[string]string{"targetUsername": "bob"})
	expectStatus(t, code, http.StatusForbidden, body)
	if body["message"] != "Unauthorized: No token provided." {
		t.Errorf("Unexpected 403 body %v", body)
	}

	req := httptest.NewRequest(http.MethodPost, "/sendFriendRequest", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401 for invalid token, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Basic abc")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("Expected 403 for non-bearer scheme, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	env := setupTestEnv(t, nil)
	code, body := env.do(t, http.MethodGet, "/health", "", nil)
	expectStatus(t, code, http.StatusOK, body)
}

func TestRegisterAndLogin(t *testing.T) {
	env := setupTestEnv(t, nil)

	code, body := env.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email": "dave@example.com", "password": "password123",
	})
	expectStatus(t, code, http.StatusOK, body)
	if body["displayName"] != "dave" || body["token"] == "" {
		t.Errorf("Unexpected register body %v", body)
	}

	code, body = env.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email": "dave@example.com", "password": "password123",
	})
	expectStatus(t, code, http.StatusBadRequest, body)

	code, body = env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "dave@example.com", "password": "wrong-password",
	})
	expectStatus(t, code, http.StatusUnauthorized, body)

	code, body = env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "dave@example.com", "password": "password123",
	})
	expectStatus(t, code, http.StatusOK, body)
	token, _ := body["token"].(string)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected /me to accept login token, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestFriendRequestFlow(t *testing.T) {
	env := setupTestEnv(t, nil)

	code, body := env.do(t, http.MethodPost, "/sendFriendRequest", "alice", map[string]string{"targetUsername": "bob"})
	expectStatus(t, code, http.StatusOK, body)
	if body["message"] != "Friend request sent to bob." {
		t.Errorf("Unexpected message %v", body["message"])
	}

	code, body = env.do(t, http.MethodPost, "/sendFriendRequest", "alice", map[string]string{"targetUsername": "bob"})
	expectStatus(t, code, http.StatusBadRequest, body)

	code, body = env.do(t, http.MethodPost, "/sendFriendRequest", "bob", map[string]string{"targetUsername": "alice"})
	expectStatus(t, code, http.StatusBadRequest, body)

	code, body = env.do(t, http.MethodGet, "/friends/requests", "bob", nil)
	expectStatus(t, code, http.StatusOK, body)
	if received, _ := body["received"].([]any); len(received) != 1 {
		t.Errorf("Expected one received request, got %v", body["received"])
	}

	code, body = env.do(t, http.MethodPost, "/acceptFriendRequest", "bob", map[string]string{"senderUid": "uid-alice"})
	expectStatus(t, code, http.StatusOK, body)
	if body["message"] != "You are now friends with alice!" {
		t.Errorf("Unexpected message %v", body["message"])
	}

	code, body = env.do(t, http.MethodPost, "/acceptFriendRequest", "bob", map[string]string{"senderUid": "uid-alice"})
	expectStatus(t, code, http.StatusNotFound, body)

	code, body = env.do(t, http.MethodGet, "/friends", "alice", nil)
	expectStatus(t, code, http.StatusOK, body)
	list, _ := body["friends"].([]any)
	if len(list) != 1 {
		t.Fatalf("Expected one friend, got %v", body["friends"])
	}
	if friend, _ := list[0].(map[string]any); friend["uid"] != "uid-bob" {
		t.Errorf("Expected bob as friend, got %v", list[0])
	}
}

func TestFriendRequestErrors(t *testing.T) {
	env := setupTestEnv(t, nil)

	tests := []struct {
		name string
		path string
		body any
		want int
	}{
		{"missing target", "/sendFriendRequest", map[string]string{}, http.StatusBadRequest},
		{"empty body", "/sendFriendRequest", nil, http.StatusBadRequest},
		{"malformed body", "/sendFriendRequest", "{", http.StatusBadRequest},
		{"self by name", "/sendFriendRequest", map[string]string{"targetUsername": "alice"}, http.StatusBadRequest},
		{"unknown target", "/sendFriendRequest", map[string]string{"targetUsername": "zed"}, http.StatusNotFound},
		{"accept missing sender", "/acceptFriendRequest", map[string]string{}, http.StatusBadRequest},
		{"accept without request", "/acceptFriendRequest", map[string]string{"senderUid": "uid-carol"}, http.StatusNotFound},
		{"decline missing sender", "/declineFriendRequest", map[string]string{}, http.StatusBadRequest},
		{"decline without request", "/declineFriendRequest", map[string]string{"senderUid": "uid-carol"}, http.StatusOK},
		{"accept invalid sender", "/acceptFriendRequest", map[string]string{"senderUid": "a.b"}, http.StatusBadRequest},
		{"decline invalid sender", "/declineFriendRequest", map[string]string{"senderUid": "a.b"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := env.do(t, http.MethodPost, tt.path, "alice", tt.body)
			expectStatus(t, code, tt.want, body)
			if _, ok := body["message"]; !ok {
				t.Errorf("Expected message in body %v", body)
			}
		})
	}
}

func TestDrawSellAndLedger(t *testing.T) {
	env := setupTestEnv(t, nil)

	code, body := env.do(t, http.MethodGet, "/gacha/catalog", "alice", nil)
	expectStatus(t, code, http.StatusOK, body)
	if body["cost"] != float64(1000) {
		t.Errorf("Expected cost 1000, got %v", body["cost"])
	}

	code, body = env.do(t, http.MethodPost, "/gacha/draw", "alice", nil)
	expectStatus(t, code, http.StatusOK, body)
	result, _ := body["result"].(map[string]any)
	if result["newBalance"] != float64(500) {
		t.Errorf("Expected balance 500, got %v", result["newBalance"])
	}
	cardKey, _ := result["cardKey"].(string)

	code, body = env.do(t, http.MethodPost, "/gacha/draw", "alice", nil)
	expectStatus(t, code, http.StatusBadRequest, body)

	code, body = env.do(t, http.MethodGet, "/inventory", "alice", nil)
	expectStatus(t, code, http.StatusOK, body)
	if cards, _ := body["cards"].([]any); len(cards) != 1 {
		t.Fatalf("Expected one card, got %v", body["cards"])
	}

	code, body = env.do(t, http.MethodPost, "/inventory/sell", "alice", map[string]string{"cardKey": cardKey})
	expectStatus(t, code, http.StatusOK, body)
	if body["message"] != "Sold Slime for 100." {
		t.Errorf("Unexpected message %v", body["message"])
	}

	code, body = env.do(t, http.MethodPost, "/inventory/sell", "alice", map[string]string{"cardKey": cardKey})
	expectStatus(t, code, http.StatusNotFound, body)

	code, body = env.do(t, http.MethodGet, "/me", "alice", nil)
	expectStatus(t, code, http.StatusOK, body)
	profile, _ := body["profile"].(map[string]any)
	if profile["money"] != float64(600) || profile["cardCount"] != float64(0) {
		t.Errorf("Unexpected profile %v", profile)
	}

	code, body = env.do(t, http.MethodGet, "/me/ledger", "alice", nil)
	expectStatus(t, code, http.StatusOK, body)
	entries, _ := body["entries"].([]any)
	if len(entries) != 2 {
		t.Fatalf("Expected 2 ledger entries, got %v", body["entries"])
	}
	if newest, _ := entries[0].(map[string]any); newest["type"] != models.LedgerCardSale {
		t.Errorf("Expected newest entry to be the sale, got %v", newest)
	}

	code, body = env.do(t, http.MethodGet, "/me/ledger?limit=x", "alice", nil)
	expectStatus(t, code, http.StatusBadRequest, body)
}

func TestChatPostDeleteReport(t *testing.T) {
	env := setupTestEnv(t, nil)

	code, body := env.do(t, http.MethodPost, "/chat/messages", "alice", map[string]string{"text": "hello"})
	expectStatus(t, code, http.StatusOK, body)
	posted, _ := body["chatMessage"].(map[string]any)
	id, _ := posted["id"].(string)
	if id == "" || posted["sender"] != "alice" {
		t.Fatalf("Unexpected posted message %v", posted)
	}

	code, body = env.do(t, http.MethodPost, "/chat/messages", "bob", map[string]string{"text": "hi", "replyTo": id})
	expectStatus(t, code, http.StatusOK, body)

	code, body = env.do(t, http.MethodPost, "/chat/messages", "bob", map[string]string{"text": "  "})
	expectStatus(t, code, http.StatusBadRequest, body)

	code, body = env.do(t, http.MethodDelete, "/chat/messages/"+id, "bob", nil)
	expectStatus(t, code, http.StatusForbidden, body)

	code, body = env.do(t, http.MethodDelete, "/chat/messages/"+id, "alice", nil)
	expectStatus(t, code, http.StatusOK, body)
	deleted, _ := body["chatMessage"].(map[string]any)
	if deleted["text"] != chat.DeletedPlaceholder || deleted["deleted"] != true {
		t.Errorf("Unexpected deleted message %v", deleted)
	}

	code, body = env.do(t, http.MethodDelete, "/chat/messages/missing", "alice", nil)
	expectStatus(t, code, http.StatusNotFound, body)

	code, body = env.do(t, http.MethodGet, "/chat/messages?limit=1", "carol", nil)
	expectStatus(t, code, http.StatusOK, body)
	if messages, _ := body["messages"].([]any); len(messages) != 1 {
		t.Errorf("Expected one message, got %v", body["messages"])
	}

	code, body = env.do(t, http.MethodPost, "/chat/reports", "carol", map[string]string{"messageId": id, "reason": "spam"})
	expectStatus(t, code, http.StatusOK, body)
	reportId, _ := body["reportId"].(string)
	if _, err := env.store.Get(context.Background(), store.ReportPath(reportId)); err != nil {
		t.Errorf("Expected report to be stored: %v", err)
	}

	code, body = env.do(t, http.MethodPost, "/chat/reports", "carol", map[string]string{})
	expectStatus(t, code, http.StatusBadRequest, body)
}

func TestChatRejectsInvalidIds(t *testing.T) {
	env := setupTestEnv(t, nil)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{"reply to invalid id", http.MethodPost, "/chat/messages", map[string]string{"text": "hi", "replyTo": "x.y"}},
		{"report invalid id", http.MethodPost, "/chat/reports", map[string]string{"messageId": "x$y"}},
		{"delete invalid id", http.MethodDelete, "/chat/messages/a.b", nil},
		{"sell invalid key", http.MethodPost, "/inventory/sell", map[string]string{"cardKey": "k#1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := env.do(t, tt.method, tt.path, "alice", tt.body)
			expectStatus(t, code, http.StatusBadRequest, body)
			if msg, _ := body["message"].(string); !strings.HasPrefix(msg, "Invalid id") {
				t.Errorf("Unexpected message %q", msg)
			}
			if _, ok := body["error"]; ok {
				t.Errorf("Expected no internal error detail, got %v", body)
			}
		})
	}
}

func TestWriteErrorHidesInvalidPaths(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	writeError(rec, req, fmt.Errorf("failed to read: %w", store.ErrInvalidPath))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body["message"] != "Invalid id." {
		t.Errorf("Unexpected body %v", body)
	}
}

func TestUploadWithoutStorage(t *testing.T) {
	env := setupTestEnv(t, nil)
	code, body := env.do(t, http.MethodPost, "/chat/images", "alice", nil)
	expectStatus(t, code, http.StatusServiceUnavailable, body)
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{models.ErrSelfRequest, "Cannot send a friend request to yourself."},
		{models.ErrAlreadyFriends, "Already friends."},
		{models.ErrInsufficientFunds, "Insufficient funds."},
	}
	for _, tt := range tests {
		if got := userMessage(tt.err); got != tt.want {
			t.Errorf("userMessage(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
