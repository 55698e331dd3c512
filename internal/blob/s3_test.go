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

package blob

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"gacha-chat-go/internal/models"
)

type recordingClient struct {
	input *s3.PutObjectInput
	body  []byte
}

func (c *recordingClient) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	c.input = params
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	c.body = body
	return &s3.PutObjectOutput{}, nil
}

func TestS3StoragePut(t *testing.T) {
	client := &recordingClient{}
	storage := newS3Storage(client, models.BlobConfig{Bucket: "chat", Region: "us-east-1"})

	url, err := storage.Put(context.Background(), "images/u1/1_a b.png", strings.NewReader("png"), 3, "image/png")
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if url != "https://chat.s3.us-east-1.amazonaws.com/images/u1/1_a%20b.png" {
		t.Errorf("Unexpected url %s", url)
	}
	if aws.ToString(client.input.Bucket) != "chat" || aws.ToString(client.input.ContentType) != "image/png" {
		t.Errorf("Unexpected input %+v", client.input)
	}
	if string(client.body) != "png" {
		t.Errorf("Expected body png, got %q", client.body)
	}
}

func TestPublicBaseURL(t *testing.T) {
	tests := []struct {
		cfg  models.BlobConfig
		want string
	}{
		{models.BlobConfig{Bucket: "b", Region: "r", PublicURL: "https://cdn.example.com/"}, "https://cdn.example.com"},
		{models.BlobConfig{Bucket: "b", Region: "r", Endpoint: "http://localhost:9000"}, "http://localhost:9000/b"},
		{models.BlobConfig{Bucket: "b", Region: "eu-west-1"}, "https://b.s3.eu-west-1.amazonaws.com"},
	}
	for _, tt := range tests {
		if got := publicBaseURL(tt.cfg); got != tt.want {
			t.Errorf("publicBaseURL(%+v) = %q, want %q", tt.cfg, got, tt.want)
		}
	}
}

func TestNewS3StorageValidation(t *testing.T) {
	if _, err := NewS3Storage(context.Background(), models.BlobConfig{Region: "r"}); err == nil {
		t.Error("Expected error for missing bucket")
	}
	if _, err := NewS3Storage(context.Background(), models.BlobConfig{Bucket: "b"}); err == nil {
		t.Error("Expected error for missing region")
	}
}
