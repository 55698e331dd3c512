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

const (
	// Document queries
	queryGetDocument = `
		SELECT path, value, version
		FROM documents
		WHERE path = ?`

	queryListDocuments = `
		SELECT path, value, version
		FROM documents
		WHERE path > ? AND path < ?
		ORDER BY path`

	// The JSON path is formatted in so SQLite can match it against expression
	// indexes; callers only pass validated identifiers.
	queryListDocumentsByChildFmt = `
		SELECT path, value, version
		FROM documents
		WHERE parent = ? AND json_extract(value, '%s') = ?
		ORDER BY path`

	queryInsertDocument = `
		INSERT INTO documents (path, parent, value, version)
		VALUES (?, ?, ?, 1)
		ON CONFLICT(path) DO NOTHING`

	queryUpdateDocument = `
		UPDATE documents
		SET value = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE path = ? AND version = ?`

	queryDeleteDocument = `
		DELETE FROM documents
		WHERE path = ? AND version = ?`

	// Ledger queries
	queryCheckDuplicateReference = `
		SELECT id FROM ledger_entries WHERE reference = ? LIMIT 1`

	queryInsertLedgerEntry = `
		INSERT INTO ledger_entries (
			id, user_id, entry_type, amount, balance_before, balance_after, reference, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetLedgerHistory = `
		SELECT id, user_id, entry_type, amount, balance_before, balance_after, reference, created_at
		FROM ledger_entries
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`

	queryGetLedgerAmounts = `
		SELECT amount
		FROM ledger_entries
		WHERE user_id = ?`
)
