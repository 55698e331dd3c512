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

package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"
)

type EventType string

const (
	EventAdded   EventType = "added"
	EventChanged EventType = "changed"
	EventRemoved EventType = "removed"
)

// Event describes one committed change to a document of a watched collection.
type Event struct {
	Type  EventType       `json:"type"`
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value,omitempty"`
}

var ErrHubClosed = errors.New("event hub closed")

type subscriber struct {
	collection string
	send       chan Event
}

// Hub fans committed changes out to collection watchers. A watcher whose
// buffer is full is dropped and its channel closed.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[*subscriber]struct{}
	buffer int
	closed bool
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{
		subs:   make(map[string]map[*subscriber]struct{}),
		buffer: buffer,
	}
}

// Subscribe registers a watcher until ctx is done.
func (h *Hub) Subscribe(ctx context.Context, collection string) (<-chan Event, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrHubClosed
	}

	s := &subscriber{collection: collection, send: make(chan Event, h.buffer)}
	set := h.subs[collection]
	if set == nil {
		set = make(map[*subscriber]struct{})
		h.subs[collection] = set
	}
	set[s] = struct{}{}

	go func() {
		<-ctx.Done()
		h.unsubscribe(s)
	}()
	return s.send, nil
}

func (h *Hub) unsubscribe(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(s)
}

// removeLocked closes the channel only if s is still registered, so drop and
// unsubscribe never double close.
func (h *Hub) removeLocked(s *subscriber) {
	set, ok := h.subs[s.collection]
	if !ok {
		return
	}
	if _, ok := set[s]; !ok {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(h.subs, s.collection)
	}
	close(s.send)
}

func (h *Hub) Publish(collection string, ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs[collection] {
		select {
		case s.send <- ev:
		default:
			zap.L().Warn("Dropping slow watcher",
				zap.String("collection", collection),
				zap.String("key", ev.Key))
			h.removeLocked(s)
		}
	}
}

func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, set := range h.subs {
		for s := range set {
			h.removeLocked(s)
		}
	}
	h.closed = true
}
