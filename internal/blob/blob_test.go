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

package blob_test

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"gacha-chat-go/internal/blob"
	"gacha-chat-go/internal/blob/mock"
	"gacha-chat-go/internal/models"
)

type keyMatcher struct {
	pattern *regexp.Regexp
}

func (m keyMatcher) Matches(x any) bool {
	key, ok := x.(string)
	return ok && m.pattern.MatchString(key)
}

func (m keyMatcher) String() string {
	return "matches " + m.pattern.String()
}

func TestImageKey(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	tests := []struct {
		filename string
		want     string
	}{
		{"cat.png", "images/u1/1700000000123_cat.png"},
		{"../../etc/passwd", "images/u1/1700000000123_passwd"},
		{"my photo (1).jpg", "images/u1/1700000000123_my_photo__1_.jpg"},
		{"C:\\Users\\me\\pic.gif", "images/u1/1700000000123_pic.gif"},
	}
	for _, tt := range tests {
		if got := blob.ImageKey("u1", tt.filename, at); got != tt.want {
			t.Errorf("ImageKey(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}

func TestUploadStoresUnderUserPrefix(t *testing.T) {
	storage := mock.NewMockStorage(gomock.NewController(t))
	images := blob.NewImages(storage, 1024)

	keyPattern := regexp.MustCompile(`^images/u1/\d+_cat\.png$`)
	storage.EXPECT().
		Put(gomock.Any(), keyMatcher{keyPattern}, gomock.Any(), int64(4), "image/png").
		Return("https://cdn.example.com/images/u1/1_cat.png", nil)

	url, err := images.Upload(context.Background(), "u1", "cat.png", "image/png", strings.NewReader("data"), 4)
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if url != "https://cdn.example.com/images/u1/1_cat.png" {
		t.Errorf("Unexpected url %s", url)
	}
}

func TestUploadValidation(t *testing.T) {
	storage := mock.NewMockStorage(gomock.NewController(t))
	images := blob.NewImages(storage, 10)
	ctx := context.Background()

	tests := []struct {
		name        string
		uid         string
		filename    string
		contentType string
		size        int64
	}{
		{"missing uid", "", "a.png", "image/png", 1},
		{"not an image", "u1", "a.txt", "text/plain", 1},
		{"empty", "u1", "a.png", "image/png", 0},
		{"too large", "u1", "a.png", "image/png", 11},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := images.Upload(ctx, tt.uid, tt.filename, tt.contentType, strings.NewReader("x"), tt.size)
			if !errors.Is(err, models.ErrBadRequest) {
				t.Errorf("Expected ErrBadRequest, got %v", err)
			}
		})
	}
}

func TestUploadStorageFailure(t *testing.T) {
	storage := mock.NewMockStorage(gomock.NewController(t))
	images := blob.NewImages(storage, 0)

	storage.EXPECT().
		Put(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return("", errors.New("bucket unavailable"))

	_, err := images.Upload(context.Background(), "u1", "a.png", "image/png", strings.NewReader("x"), 1)
	if err == nil || errors.Is(err, models.ErrBadRequest) {
		t.Fatalf("Expected internal storage error, got %v", err)
	}
	if images.MaxBytes() != blob.DefaultMaxImageBytes {
		t.Errorf("Expected default max bytes, got %d", images.MaxBytes())
	}
}
