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
	"fmt"
	"strings"
)

const (
	UsersRoot          = "users"
	CredentialsRoot    = "credentials"
	PublicChatMessages = "publicChat/messages"
	ReportChatMessages = "reportChat/messages"
)

// documentDepth maps a root segment to the number of segments that address a
// whole document below it.
var documentDepth = map[string]int{
	"users":       2,
	"credentials": 2,
	"publicChat":  3,
	"reportChat":  3,
}

// Location is a parsed path: either a document (plus an optional field path
// inside it) or a prefix shallower than any document.
type Location struct {
	Segments []string
	Depth    int
	Document string
	Field    []string
}

// IsDocument reports whether the location addresses a document or a field in one.
func (l Location) IsDocument() bool {
	return l.Document != ""
}

// IsCollection reports whether the location is the direct parent of documents.
func (l Location) IsCollection() bool {
	return len(l.Segments) == l.Depth-1
}

// Collection returns the path of the collection holding the document.
func (l Location) Collection() string {
	i := strings.LastIndex(l.Document, "/")
	return l.Document[:i]
}

// Key returns the document's own key.
func (l Location) Key() string {
	i := strings.LastIndex(l.Document, "/")
	return l.Document[i+1:]
}

// Locate parses and validates a slash separated path.
func Locate(path string) (Location, error) {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return Location{}, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	segments := strings.Split(trimmed, "/")
	for _, s := range segments {
		if s == "" || strings.ContainsAny(s, ".$#[]") {
			return Location{}, fmt.Errorf("%w: bad segment %q in %q", ErrInvalidPath, s, path)
		}
	}
	depth, ok := documentDepth[segments[0]]
	if !ok {
		return Location{}, fmt.Errorf("%w: unknown root %q", ErrInvalidPath, segments[0])
	}
	loc := Location{Segments: segments, Depth: depth}
	if len(segments) >= depth {
		loc.Document = strings.Join(segments[:depth], "/")
		loc.Field = segments[depth:]
	}
	return loc, nil
}

// ValidKey reports whether key can be used as a single path segment.
func ValidKey(key string) bool {
	return key != "" && !strings.ContainsAny(key, "/.$#[]")
}

// Join builds a path from segments.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

func UserPath(uid string, fields ...string) string {
	return Join(append([]string{UsersRoot, uid}, fields...)...)
}

func CredentialsPath(uid string) string {
	return Join(CredentialsRoot, uid)
}

func ChatMessagePath(id string, fields ...string) string {
	return Join(append([]string{PublicChatMessages, id}, fields...)...)
}

func ReportPath(id string) string {
	return Join(ReportChatMessages, id)
}
