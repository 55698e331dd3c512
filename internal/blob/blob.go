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

// Package blob stores chat image uploads in an S3 compatible bucket.
package blob

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"gacha-chat-go/internal/models"
)

//go:generate mockgen -destination=mock/storage.go -package=mock gacha-chat-go/internal/blob Storage

// Storage persists an object and returns the URL it can be fetched from.
type Storage interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
}

const DefaultMaxImageBytes = 5 << 20

// ImageKey places an upload under images/{uid}/{unixMillis}_{filename}.
func ImageKey(uid, filename string, at time.Time) string {
	return fmt.Sprintf("images/%s/%d_%s", uid, at.UnixMilli(), sanitizeFilename(filename))
}

func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if name == "" || name == "." || name == "/" {
		return "upload"
	}
	return name
}

// Images validates and stores chat images.
type Images struct {
	storage  Storage
	maxBytes int64
	now      func() time.Time
}

func NewImages(storage Storage, maxBytes int64) *Images {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	return &Images{storage: storage, maxBytes: maxBytes, now: time.Now}
}

func (i *Images) MaxBytes() int64 {
	return i.maxBytes
}

// Upload stores one image for uid and returns its public URL.
func (i *Images) Upload(ctx context.Context, uid, filename, contentType string, body io.Reader, size int64) (string, error) {
	if uid == "" || filename == "" {
		return "", models.ErrMissingField
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("%w: content type %q is not an image", models.ErrBadRequest, contentType)
	}
	if size <= 0 || size > i.maxBytes {
		return "", fmt.Errorf("%w: image size %d outside 1..%d bytes", models.ErrBadRequest, size, i.maxBytes)
	}

	key := ImageKey(uid, filename, i.now())
	url, err := i.storage.Put(ctx, key, io.LimitReader(body, size), size, contentType)
	if err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}

	zap.L().Info("Image uploaded",
		zap.String("user_id", uid),
		zap.String("key", key),
		zap.Int64("bytes", size))
	return url, nil
}
