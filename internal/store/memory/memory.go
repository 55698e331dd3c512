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

// Package memory provides an in-process TreeStore and EconomyLedger for tests
// and single-node demos.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gacha-chat-go/internal/models"
	"gacha-chat-go/internal/store"
)

type Store struct {
	*store.Tree
	backend *backend
}

var (
	_ store.TreeStore     = (*Store)(nil)
	_ store.EconomyLedger = (*Store)(nil)
)

func New(maxRetries int) *Store {
	b := &backend{docs: make(map[string]store.Document)}
	return &Store{
		Tree:    store.NewTree(b, maxRetries),
		backend: b,
	}
}

type backend struct {
	mu      sync.RWMutex
	docs    map[string]store.Document
	entries []models.LedgerEntry
}

func (b *backend) LoadDocument(_ context.Context, path string) (store.Document, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	doc, ok := b.docs[path]
	if !ok {
		return store.Document{}, store.ErrNotFound
	}
	return doc, nil
}

func (b *backend) ListDocuments(_ context.Context, prefix string) ([]store.Document, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []store.Document
	for path, doc := range b.docs {
		if strings.HasPrefix(path, prefix+"/") {
			out = append(out, doc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (b *backend) CommitDocuments(_ context.Context, writes []store.DocumentWrite) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, w := range writes {
		if b.docs[w.Path].Version != w.ExpectedVersion {
			return store.ErrConcurrentModification
		}
	}
	for _, w := range writes {
		if w.Value == nil {
			delete(b.docs, w.Path)
			continue
		}
		value := make([]byte, len(w.Value))
		copy(value, w.Value)
		b.docs[w.Path] = store.Document{
			Path:    w.Path,
			Value:   value,
			Version: w.ExpectedVersion + 1,
		}
	}
	return nil
}

func (b *backend) Close() {}

func (s *Store) Record(_ context.Context, entry models.LedgerEntry) error {
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.entries {
		if entry.Reference != "" && e.Reference == entry.Reference {
			return fmt.Errorf("%w: %s", store.ErrDuplicateEntry, entry.Reference)
		}
	}
	if entry.Id == "" {
		entry.Id = uuid.New().String()
	}
	b.entries = append(b.entries, entry)
	return nil
}

// History returns a user's entries newest first.
func (s *Store) History(_ context.Context, userId string, limit, offset int) ([]models.LedgerEntry, error) {
	b := s.backend
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []models.LedgerEntry
	for i := len(b.entries) - 1; i >= 0; i-- {
		if b.entries[i].UserId == userId {
			out = append(out, b.entries[i])
		}
	}
	if offset >= len(out) {
		return []models.LedgerEntry{}, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) Sum(_ context.Context, userId string) (decimal.Decimal, error) {
	b := s.backend
	b.mu.RLock()
	defer b.mu.RUnlock()
	total := decimal.Zero
	for _, e := range b.entries {
		if e.UserId == userId {
			total = total.Add(e.Amount)
		}
	}
	return total, nil
}
