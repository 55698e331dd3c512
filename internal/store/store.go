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

	"github.com/shopspring/decimal"

	"gacha-chat-go/internal/models"
)

var (
	ErrNotFound               = errors.New("no value at path")
	ErrAbortTransaction       = errors.New("transaction aborted")
	ErrConcurrentModification = errors.New("concurrent modification detected, retry")
	ErrTooManyRetries         = errors.New("transaction retry limit reached")
	ErrInvalidPath            = errors.New("invalid path")
	ErrDuplicateEntry         = errors.New("ledger entry already recorded for reference")
)

// Query selects the documents of a collection. Results are ordered by key, or
// by OrderByChild and then key when a child is named.
type Query struct {
	OrderByChild string
	EqualTo      any
	LimitToFirst int
	LimitToLast  int
}

// Snapshot is one document returned by a Query.
type Snapshot struct {
	Key   string
	Value json.RawMessage
}

// TransactionFunc receives the current JSON at the transaction path (nil when
// absent) and returns the replacement (nil deletes). Returning an error aborts
// the transaction without writing anything.
type TransactionFunc func(current json.RawMessage) (json.RawMessage, error)

// TreeStore is the shared key-value tree every component reads and writes.
type TreeStore interface {
	Get(ctx context.Context, path string) (json.RawMessage, error)
	Set(ctx context.Context, path string, value any) error
	Update(ctx context.Context, updates map[string]any) error
	Push(ctx context.Context, collection string, value any) (string, error)
	NewKey() string
	Transaction(ctx context.Context, path string, fn TransactionFunc) (json.RawMessage, error)
	Query(ctx context.Context, collection string, q Query) ([]Snapshot, error)
	Watch(ctx context.Context, collection string) (<-chan Event, error)
	Close()
}

// EconomyLedger is the append-only audit trail of currency movements.
type EconomyLedger interface {
	Record(ctx context.Context, entry models.LedgerEntry) error
	History(ctx context.Context, userId string, limit, offset int) ([]models.LedgerEntry, error)
	Sum(ctx context.Context, userId string) (decimal.Decimal, error)
}

// Document is a versioned JSON document as held by a Backend.
type Document struct {
	Path    string
	Value   json.RawMessage
	Version int64
}

// DocumentWrite replaces (or, with a nil Value, deletes) one document. The
// write only applies if the stored version still equals ExpectedVersion; zero
// means the document must not exist.
type DocumentWrite struct {
	Path            string
	Value           json.RawMessage
	ExpectedVersion int64
}

// Backend is the versioned document storage a Tree is built on.
type Backend interface {
	LoadDocument(ctx context.Context, path string) (Document, error)
	// ListDocuments returns every document below prefix ordered by path.
	ListDocuments(ctx context.Context, prefix string) ([]Document, error)
	// CommitDocuments applies all writes or none, returning
	// ErrConcurrentModification when any expected version is stale.
	CommitDocuments(ctx context.Context, writes []DocumentWrite) error
	Close()
}

// ChildIndex is implemented by backends that can filter a collection on a
// child equality without scanning it.
type ChildIndex interface {
	ListDocumentsByChild(ctx context.Context, parent, child string, equalTo any) ([]Document, error)
}
