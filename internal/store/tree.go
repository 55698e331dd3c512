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
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultTransactionMaxRetries = 25

// Tree implements TreeStore on top of a versioned document Backend. Writes
// are optimistic: documents are read with their version, modified, and
// committed only if no other writer got there first.
type Tree struct {
	backend    Backend
	hub        *Hub
	maxRetries int

	// commitMu orders event publication with commits.
	commitMu sync.Mutex
}

var _ TreeStore = (*Tree)(nil)

func NewTree(backend Backend, maxRetries int) *Tree {
	if maxRetries <= 0 {
		maxRetries = DefaultTransactionMaxRetries
	}
	return &Tree{
		backend:    backend,
		hub:        NewHub(0),
		maxRetries: maxRetries,
	}
}

// NewKey returns a time ordered key; keys generated later sort after earlier ones.
func (t *Tree) NewKey() string {
	return uuid.Must(uuid.NewV7()).String()
}

func (t *Tree) Get(ctx context.Context, path string) (json.RawMessage, error) {
	loc, err := Locate(path)
	if err != nil {
		return nil, err
	}

	if !loc.IsDocument() {
		prefix := Join(loc.Segments...)
		docs, err := t.backend.ListDocuments(ctx, prefix)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
		}
		v, err := assemble(prefix, docs)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return encodeValue(v)
	}

	_, current, err := t.load(ctx, loc.Document)
	if err != nil {
		return nil, err
	}
	v, ok := getIn(current, loc.Field)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return encodeValue(v)
}

func (t *Tree) Set(ctx context.Context, path string, value any) error {
	return t.Update(ctx, map[string]any{path: value})
}

// Update applies every path in one all-or-nothing commit. Paths are applied
// in lexical order, so a parent is written before its children.
func (t *Tree) Update(ctx context.Context, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}

	type pendingSet struct {
		loc Location
		raw json.RawMessage
	}

	paths := make([]string, 0, len(updates))
	for p := range updates {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	sets := make([]pendingSet, 0, len(paths))
	for _, p := range paths {
		loc, err := Locate(p)
		if err != nil {
			return err
		}
		if !loc.IsDocument() {
			return fmt.Errorf("%w: %s is above document level", ErrInvalidPath, p)
		}
		v, err := normalize(updates[p])
		if err != nil {
			return err
		}
		raw, err := encodeValue(v)
		if err != nil {
			return err
		}
		sets = append(sets, pendingSet{loc: loc, raw: raw})
	}

	return t.retry(ctx, "update", func() error {
		var order []string
		versions := make(map[string]int64)
		docs := make(map[string]any)
		for _, s := range sets {
			if _, ok := versions[s.loc.Document]; !ok {
				version, current, err := t.load(ctx, s.loc.Document)
				if err != nil && !errors.Is(err, ErrNotFound) {
					return err
				}
				versions[s.loc.Document] = version
				docs[s.loc.Document] = current
				order = append(order, s.loc.Document)
			}
			v, err := DecodeValue(s.raw)
			if err != nil {
				return err
			}
			docs[s.loc.Document] = setIn(docs[s.loc.Document], s.loc.Field, v)
		}
		return t.commit(ctx, order, versions, docs)
	})
}

func (t *Tree) Push(ctx context.Context, collection string, value any) (string, error) {
	key := t.NewKey()
	path := Join(strings.Trim(collection, "/"), key)
	loc, err := Locate(path)
	if err != nil {
		return "", err
	}
	if !loc.IsDocument() {
		return "", fmt.Errorf("%w: cannot push into %s", ErrInvalidPath, collection)
	}
	if err := t.Set(ctx, path, value); err != nil {
		return "", err
	}
	return key, nil
}

// Transaction runs fn against the current value at path and commits its
// result if the enclosing document was not modified meanwhile; otherwise fn
// runs again with the fresh value. An error from fn is returned unchanged.
func (t *Tree) Transaction(ctx context.Context, path string, fn TransactionFunc) (json.RawMessage, error) {
	loc, err := Locate(path)
	if err != nil {
		return nil, err
	}
	if !loc.IsDocument() {
		return nil, fmt.Errorf("%w: transaction on %s is above document level", ErrInvalidPath, path)
	}

	var result json.RawMessage
	err = t.retry(ctx, "transaction", func() error {
		version, current, err := t.load(ctx, loc.Document)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}

		var currentRaw json.RawMessage
		if v, ok := getIn(current, loc.Field); ok {
			if currentRaw, err = encodeValue(v); err != nil {
				return err
			}
		}

		next, err := fn(currentRaw)
		if err != nil {
			return err
		}
		nv, err := DecodeValue(next)
		if err != nil {
			return err
		}

		doc := setIn(current, loc.Field, nv)
		err = t.commit(ctx, []string{loc.Document},
			map[string]int64{loc.Document: version},
			map[string]any{loc.Document: doc})
		if err != nil {
			return err
		}
		result, err = encodeValue(nv)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (t *Tree) Query(ctx context.Context, collection string, q Query) ([]Snapshot, error) {
	loc, err := Locate(collection)
	if err != nil {
		return nil, err
	}
	if !loc.IsCollection() {
		return nil, fmt.Errorf("%w: %s is not a collection", ErrInvalidPath, collection)
	}
	prefix := Join(loc.Segments...)

	eq, err := normalize(q.EqualTo)
	if err != nil {
		return nil, err
	}

	var docs []Document
	if ix, ok := t.backend.(ChildIndex); ok && q.OrderByChild != "" && eq != nil {
		docs, err = ix.ListDocumentsByChild(ctx, prefix, q.OrderByChild, eq)
	} else {
		docs, err = t.backend.ListDocuments(ctx, prefix)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", prefix, err)
	}

	var child []string
	if q.OrderByChild != "" {
		child = strings.Split(strings.Trim(q.OrderByChild, "/"), "/")
	}

	snaps := make([]Snapshot, 0, len(docs))
	values := make(map[string]any, len(docs))
	for _, d := range docs {
		key := strings.TrimPrefix(d.Path, prefix+"/")
		if child != nil {
			v, err := DecodeValue(d.Value)
			if err != nil {
				return nil, err
			}
			cv, _ := getIn(v, child)
			if eq != nil && compareValues(cv, eq) != 0 {
				continue
			}
			values[key] = cv
		}
		snaps = append(snaps, Snapshot{Key: key, Value: d.Value})
	}
	sortSnapshots(snaps, q.OrderByChild, values)

	if q.LimitToFirst > 0 && len(snaps) > q.LimitToFirst {
		snaps = snaps[:q.LimitToFirst]
	}
	if q.LimitToLast > 0 && len(snaps) > q.LimitToLast {
		snaps = snaps[len(snaps)-q.LimitToLast:]
	}
	return snaps, nil
}

// Watch streams changes to the documents of collection until ctx is done.
func (t *Tree) Watch(ctx context.Context, collection string) (<-chan Event, error) {
	loc, err := Locate(collection)
	if err != nil {
		return nil, err
	}
	if !loc.IsCollection() {
		return nil, fmt.Errorf("%w: %s is not a collection", ErrInvalidPath, collection)
	}
	return t.hub.Subscribe(ctx, Join(loc.Segments...))
}

func (t *Tree) Close() {
	t.hub.Close()
	t.backend.Close()
}

// load returns the document's version and decoded value. A missing document
// has version zero and is reported as ErrNotFound.
func (t *Tree) load(ctx context.Context, path string) (int64, any, error) {
	doc, err := t.backend.LoadDocument(ctx, path)
	if errors.Is(err, ErrNotFound) {
		return 0, nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return 0, nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	v, err := DecodeValue(doc.Value)
	if err != nil {
		return 0, nil, err
	}
	return doc.Version, v, nil
}

func (t *Tree) commit(ctx context.Context, order []string, versions map[string]int64, docs map[string]any) error {
	writes := make([]DocumentWrite, 0, len(order))
	for _, path := range order {
		raw, err := encodeValue(docs[path])
		if err != nil {
			return err
		}
		if raw == nil && versions[path] == 0 {
			continue
		}
		writes = append(writes, DocumentWrite{
			Path:            path,
			Value:           raw,
			ExpectedVersion: versions[path],
		})
	}
	if len(writes) == 0 {
		return nil
	}

	t.commitMu.Lock()
	defer t.commitMu.Unlock()
	if err := t.backend.CommitDocuments(ctx, writes); err != nil {
		return err
	}

	for _, w := range writes {
		zap.L().Debug("Committed document",
			zap.String("path", w.Path),
			zap.Int64("previous_version", w.ExpectedVersion),
			zap.Bool("deleted", w.Value == nil))
		t.publish(w)
	}
	return nil
}

func (t *Tree) publish(w DocumentWrite) {
	i := strings.LastIndex(w.Path, "/")
	ev := Event{Key: w.Path[i+1:], Value: w.Value}
	switch {
	case w.Value == nil:
		ev.Type = EventRemoved
	case w.ExpectedVersion == 0:
		ev.Type = EventAdded
	default:
		ev.Type = EventChanged
	}
	t.hub.Publish(w.Path[:i], ev)
}

func (t *Tree) retry(ctx context.Context, op string, attempt func() error) error {
	for i := 0; i < t.maxRetries; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := attempt()
		if !errors.Is(err, ErrConcurrentModification) {
			return err
		}
		zap.L().Debug("Retrying after concurrent modification",
			zap.String("operation", op),
			zap.Int("attempt", i+1))
	}
	return fmt.Errorf("%w: %s after %d attempts", ErrTooManyRetries, op, t.maxRetries)
}
