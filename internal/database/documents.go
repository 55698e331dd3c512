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

package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gacha-chat-go/internal/store"
)

// DocumentStore keeps one row per tree document with a version counter used
// for optimistic locking.
type DocumentStore struct {
	db *sql.DB
}

var (
	_ store.Backend    = (*DocumentStore)(nil)
	_ store.ChildIndex = (*DocumentStore)(nil)
)

func NewDocumentStore(db *sql.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

func (d *DocumentStore) InitSchema() error {
	schema := `
	-- One row per document of the tree
	CREATE TABLE IF NOT EXISTS documents (
		path TEXT PRIMARY KEY,
		parent TEXT NOT NULL,
		value TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Collection scans
	CREATE INDEX IF NOT EXISTS idx_documents_parent ON documents(parent, path);
	-- Display name lookups
	CREATE INDEX IF NOT EXISTS idx_documents_display_name
		ON documents(parent, json_extract(value, '$.displayName'));
	`

	_, err := d.db.Exec(schema)
	return err
}

func (d *DocumentStore) LoadDocument(ctx context.Context, path string) (store.Document, error) {
	var doc store.Document
	var value string
	err := d.db.QueryRowContext(ctx, queryGetDocument, path).Scan(&doc.Path, &value, &doc.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Document{}, store.ErrNotFound
	}
	if err != nil {
		return store.Document{}, fmt.Errorf("failed to load document: %w", err)
	}
	doc.Value = json.RawMessage(value)
	return doc, nil
}

func (d *DocumentStore) ListDocuments(ctx context.Context, prefix string) ([]store.Document, error) {
	// '0' is the byte after '/', so this range covers every path under prefix.
	return d.queryDocuments(ctx, queryListDocuments, prefix+"/", prefix+"0")
}

var childSegment = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

func (d *DocumentStore) ListDocumentsByChild(ctx context.Context, parent, child string, equalTo any) ([]store.Document, error) {
	segments := strings.Split(strings.Trim(child, "/"), "/")
	for _, s := range segments {
		if !childSegment.MatchString(s) {
			return d.ListDocuments(ctx, parent)
		}
	}

	var arg any
	switch v := equalTo.(type) {
	case string:
		arg = v
	case bool:
		arg = 0
		if v {
			arg = 1
		}
	case json.Number:
		if n, err := v.Int64(); err == nil {
			arg = n
		} else if f, err := v.Float64(); err == nil {
			arg = f
		}
	}
	if arg == nil {
		return d.ListDocuments(ctx, parent)
	}

	query := fmt.Sprintf(queryListDocumentsByChildFmt, "$."+strings.Join(segments, "."))
	return d.queryDocuments(ctx, query, parent, arg)
}

func (d *DocumentStore) queryDocuments(ctx context.Context, query string, args ...any) ([]store.Document, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []store.Document
	for rows.Next() {
		var doc store.Document
		var value string
		if err := rows.Scan(&doc.Path, &value, &doc.Version); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		doc.Value = json.RawMessage(value)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// CommitDocuments writes every document in one SQL transaction. Any row whose
// version moved since it was read rolls the whole batch back.
func (d *DocumentStore) CommitDocuments(ctx context.Context, writes []store.DocumentWrite) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, w := range writes {
		var result sql.Result
		switch {
		case w.ExpectedVersion == 0:
			result, err = tx.ExecContext(ctx, queryInsertDocument, w.Path, parentOf(w.Path), string(w.Value))
		case w.Value == nil:
			result, err = tx.ExecContext(ctx, queryDeleteDocument, w.Path, w.ExpectedVersion)
		default:
			result, err = tx.ExecContext(ctx, queryUpdateDocument, string(w.Value), w.Path, w.ExpectedVersion)
		}
		if err != nil {
			return fmt.Errorf("failed to write document %s: %w", w.Path, err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return store.ErrConcurrentModification
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit documents: %w", err)
	}
	return nil
}

func (d *DocumentStore) Close() {}

func parentOf(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[:i]
	}
	return ""
}
