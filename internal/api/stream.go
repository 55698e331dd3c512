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
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"gacha-chat-go/internal/chat"
	"gacha-chat-go/internal/store"
)

const (
	streamBuffer       = 16
	streamWriteTimeout = 10 * time.Second
	streamReadLimit    = 4 * 1024
)

type streamClient struct {
	conn *websocket.Conn
	uid  string
	send chan []byte
}

// handleChatStream sends the recent window as "added" updates and then every
// added or changed message. A client that falls behind is disconnected.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	id := caller(r)
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	updates, err := s.chat.Subscribe(ctx)
	if err != nil {
		zap.L().Error("Failed to subscribe to chat", zap.Error(err))
		conn.Close()
		return
	}
	recent, err := s.chat.Recent(ctx, 0)
	if err != nil {
		zap.L().Error("Failed to load chat window", zap.Error(err))
		conn.Close()
		return
	}

	c := &streamClient{conn: conn, uid: id.Uid, send: make(chan []byte, streamBuffer)}
	zap.L().Debug("Chat stream opened", zap.String("user_id", c.uid))

	window := make([]chat.Update, len(recent))
	for i, msg := range recent {
		window[i] = chat.Update{Type: store.EventAdded, Message: msg}
	}

	go c.forward(ctx, window, updates)
	go c.writeLoop()
	c.readLoop()
	cancel()

	zap.L().Debug("Chat stream closed", zap.String("user_id", c.uid))
}

// forward is the only writer to send and closes it on return.
func (c *streamClient) forward(ctx context.Context, window []chat.Update, updates <-chan chat.Update) {
	defer close(c.send)

	for _, u := range window {
		payload, err := json.Marshal(u)
		if err != nil {
			continue
		}
		select {
		case c.send <- payload:
		case <-ctx.Done():
			return
		}
	}

	for {
		select {
		case u, ok := <-updates:
			if !ok {
				return
			}
			payload, err := json.Marshal(u)
			if err != nil {
				continue
			}
			select {
			case c.send <- payload:
			default:
				zap.L().Warn("Dropping slow chat stream client", zap.String("user_id", c.uid))
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (c *streamClient) writeLoop() {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
		time.Now().Add(time.Second))
}

// readLoop discards client frames and returns once the connection closes.
func (c *streamClient) readLoop() {
	defer c.conn.Close()
	c.conn.SetReadLimit(streamReadLimit)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
