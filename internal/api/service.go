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

// Package api exposes the chat, friends, gacha and inventory services over
// HTTP, plus a websocket stream of the public chat.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"gacha-chat-go/internal/auth"
	"gacha-chat-go/internal/blob"
	"gacha-chat-go/internal/chat"
	"gacha-chat-go/internal/friends"
	"gacha-chat-go/internal/gacha"
	"gacha-chat-go/internal/identity"
	"gacha-chat-go/internal/inventory"
	"gacha-chat-go/internal/store"
)

// Dependencies are the services the router dispatches to. Images and Ledger
// may be nil, which disables uploads and ledger history.
type Dependencies struct {
	Store     store.TreeStore
	Auth      *auth.Service
	Directory *identity.Directory
	Friends   *friends.Service
	Chat      *chat.Service
	Gacha     *gacha.Service
	Inventory *inventory.Service
	Images    *blob.Images
	Ledger    store.EconomyLedger
}

type Server struct {
	store     store.TreeStore
	auth      *auth.Service
	dir       *identity.Directory
	friends   *friends.Service
	chat      *chat.Service
	gacha     *gacha.Service
	inventory *inventory.Service
	images    *blob.Images
	ledger    store.EconomyLedger
	upgrader  websocket.Upgrader
}

func NewServer(deps Dependencies) *Server {
	return &Server{
		store:     deps.Store,
		auth:      deps.Auth,
		dir:       deps.Directory,
		friends:   deps.Friends,
		chat:      deps.Chat,
		gacha:     deps.Gacha,
		inventory: deps.Inventory,
		images:    deps.Images,
		ledger:    deps.Ledger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

// Routes builds the router. Unknown methods on a known path answer 405
// before authentication runs.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	r.MethodNotAllowed(methodNotAllowed)
	r.NotFound(notFound)

	r.Get("/health", s.handleHealth)
	r.Post("/auth/register", s.handleRegister)
	r.Post("/auth/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Post("/sendFriendRequest", s.handleSendFriendRequest)
		r.Post("/acceptFriendRequest", s.handleAcceptFriendRequest)
		r.Post("/declineFriendRequest", s.handleDeclineFriendRequest)
		r.Get("/friends", s.handleListFriends)
		r.Get("/friends/requests", s.handleListRequests)

		r.Get("/me", s.handleProfile)
		r.Get("/me/ledger", s.handleLedgerHistory)

		r.Get("/chat/messages", s.handleRecentMessages)
		r.Post("/chat/messages", s.handlePostMessage)
		r.Delete("/chat/messages/{id}", s.handleDeleteMessage)
		r.Post("/chat/reports", s.handleReportMessage)
		r.Post("/chat/images", s.handleUploadImage)
		r.Get("/chat/stream", s.handleChatStream)

		r.Get("/gacha/catalog", s.handleCatalog)
		r.Post("/gacha/draw", s.handleDraw)
		r.Get("/inventory", s.handleInventory)
		r.Post("/inventory/sell", s.handleSell)
	})

	return r
}

func (s *Server) HealthCheck(ctx context.Context) error {
	_, err := s.store.Query(ctx, store.UsersRoot, store.Query{LimitToFirst: 1})
	if err != nil {
		return fmt.Errorf("store health check failed: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.HealthCheck(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"message": "unhealthy", "error": err.Error()})
		return
	}
	writeMessage(w, http.StatusOK, "ok")
}
