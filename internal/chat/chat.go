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

// Package chat implements the public chat log: append-only messages with
// threaded reply snapshots, soft delete and moderation reports.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"gacha-chat-go/internal/identity"
	"gacha-chat-go/internal/models"
	"gacha-chat-go/internal/store"
)

// DeletedPlaceholder replaces the text of a soft-deleted message.
const DeletedPlaceholder = "This message has been deleted."

const DefaultHistoryLimit = 50

const reportStatusPending = "pending"

type PostInput struct {
	Text     string `json:"text"`
	ImageUrl string `json:"imageUrl"`
	ReplyTo  string `json:"replyTo"`
}

// Update is a change to the chat log delivered to subscribers.
type Update struct {
	Type    store.EventType     `json:"type"`
	Message models.KeyedMessage `json:"message"`
}

type Service struct {
	store        store.TreeStore
	dir          *identity.Directory
	historyLimit int
	now          func() time.Time

	mu            sync.Mutex
	lastTimestamp int64
}

func NewService(s store.TreeStore, dir *identity.Directory, historyLimit int) *Service {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &Service{store: s, dir: dir, historyLimit: historyLimit, now: time.Now}
}

// Post appends a message to the log. Reply targets are copied into the new
// message so later edits or deletes of the target never change the reply.
func (s *Service) Post(ctx context.Context, senderUid string, in PostInput) (*models.KeyedMessage, error) {
	text := strings.TrimSpace(in.Text)
	imageUrl := strings.TrimSpace(in.ImageUrl)
	if text == "" && imageUrl == "" {
		return nil, models.ErrEmptyMessage
	}

	senderName, err := s.dir.ResolveNameByID(ctx, senderUid)
	if err != nil {
		return nil, fmt.Errorf("sender profile: %w", err)
	}

	msg := models.ChatMessage{
		Sender:    senderName,
		SenderUid: senderUid,
		Text:      text,
		ImageUrl:  imageUrl,
	}

	if in.ReplyTo != "" {
		if !store.ValidKey(in.ReplyTo) {
			return nil, fmt.Errorf("%w: replyTo %q", models.ErrInvalidId, in.ReplyTo)
		}
		target, err := s.get(ctx, in.ReplyTo)
		if err != nil {
			return nil, err
		}
		if target.Deleted {
			return nil, models.ErrReplyToDeleted
		}
		msg.ReplyTo = &models.ReplyRef{
			Id:        in.ReplyTo,
			Text:      target.Text,
			Sender:    target.Sender,
			SenderUid: target.SenderUid,
		}
	}

	msg.Timestamp = s.nextTimestamp()
	key, err := s.store.Push(ctx, store.PublicChatMessages, msg)
	if err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}

	zap.L().Info("Chat message posted",
		zap.String("message_id", key),
		zap.String("sender_id", senderUid),
		zap.Bool("has_image", imageUrl != ""),
		zap.Bool("is_reply", msg.ReplyTo != nil))
	return &models.KeyedMessage{Id: key, ChatMessage: msg}, nil
}

// SoftDelete flags a message as deleted and replaces its text. Only the
// original sender may delete; the record keeps its id and position.
func (s *Service) SoftDelete(ctx context.Context, messageId, requesterUid string) (*models.KeyedMessage, error) {
	if err := checkMessageId(messageId); err != nil {
		return nil, err
	}

	raw, err := s.store.Transaction(ctx, store.ChatMessagePath(messageId), func(current json.RawMessage) (json.RawMessage, error) {
		if current == nil {
			return nil, fmt.Errorf("%w: %s", models.ErrMessageNotFound, messageId)
		}
		var msg models.ChatMessage
		if err := json.Unmarshal(current, &msg); err != nil {
			return nil, err
		}
		if msg.SenderUid != requesterUid {
			return nil, models.ErrNotMessageOwner
		}
		msg.Deleted = true
		msg.Text = DeletedPlaceholder
		return json.Marshal(msg)
	})
	if err != nil {
		return nil, err
	}

	var msg models.ChatMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode message: %w", err)
	}

	zap.L().Info("Chat message deleted",
		zap.String("message_id", messageId),
		zap.String("sender_id", requesterUid))
	return &models.KeyedMessage{Id: messageId, ChatMessage: msg}, nil
}

// Recent returns the last limit messages in log order.
func (s *Service) Recent(ctx context.Context, limit int) ([]models.KeyedMessage, error) {
	if limit <= 0 {
		limit = s.historyLimit
	}
	snaps, err := s.store.Query(ctx, store.PublicChatMessages, store.Query{LimitToLast: limit})
	if err != nil {
		return nil, fmt.Errorf("failed to read chat history: %w", err)
	}

	messages := make([]models.KeyedMessage, 0, len(snaps))
	for _, snap := range snaps {
		var msg models.ChatMessage
		if err := json.Unmarshal(snap.Value, &msg); err != nil {
			zap.L().Warn("Skipping undecodable chat message",
				zap.String("message_id", snap.Key), zap.Error(err))
			continue
		}
		messages = append(messages, models.KeyedMessage{Id: snap.Key, ChatMessage: msg})
	}
	return messages, nil
}

// Report files a moderation report holding a copy of the message as it is now.
func (s *Service) Report(ctx context.Context, reporter models.Identity, messageId, reason string) (string, error) {
	if err := checkMessageId(messageId); err != nil {
		return "", err
	}

	msg, err := s.get(ctx, messageId)
	if err != nil {
		return "", err
	}

	var senderEmail string
	if sender, err := s.dir.GetUser(ctx, msg.SenderUid); err == nil {
		senderEmail = sender.Email
	}

	report := models.Report{
		ReporterUid:       reporter.Uid,
		ReporterEmail:     reporter.Email,
		ReportedMessageId: messageId,
		OriginalSender:    msg.Sender,
		OriginalSenderUid: msg.SenderUid,
		OriginalEmail:     senderEmail,
		OriginalText:      msg.Text,
		OriginalImageUrl:  msg.ImageUrl,
		Reason:            strings.TrimSpace(reason),
		Timestamp:         s.now().UnixMilli(),
		Status:            reportStatusPending,
	}
	key, err := s.store.Push(ctx, store.ReportChatMessages, report)
	if err != nil {
		return "", fmt.Errorf("failed to file report: %w", err)
	}

	zap.L().Info("Chat message reported",
		zap.String("report_id", key),
		zap.String("message_id", messageId),
		zap.String("reporter_id", reporter.Uid))
	return key, nil
}

// Subscribe streams added and changed messages until ctx is done.
func (s *Service) Subscribe(ctx context.Context) (<-chan Update, error) {
	events, err := s.store.Watch(ctx, store.PublicChatMessages)
	if err != nil {
		return nil, fmt.Errorf("failed to watch chat: %w", err)
	}

	updates := make(chan Update)
	go func() {
		defer close(updates)
		for ev := range events {
			if ev.Type == store.EventRemoved {
				continue
			}
			var msg models.ChatMessage
			if err := json.Unmarshal(ev.Value, &msg); err != nil {
				continue
			}
			select {
			case updates <- Update{Type: ev.Type, Message: models.KeyedMessage{Id: ev.Key, ChatMessage: msg}}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return updates, nil
}

func (s *Service) get(ctx context.Context, messageId string) (*models.ChatMessage, error) {
	raw, err := s.store.Get(ctx, store.ChatMessagePath(messageId))
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", models.ErrMessageNotFound, messageId)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read message: %w", err)
	}
	var msg models.ChatMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode message: %w", err)
	}
	return &msg, nil
}

func checkMessageId(messageId string) error {
	if messageId == "" {
		return fmt.Errorf("%w: messageId", models.ErrMissingField)
	}
	if !store.ValidKey(messageId) {
		return fmt.Errorf("%w: messageId %q", models.ErrInvalidId, messageId)
	}
	return nil
}

// nextTimestamp returns the current time in milliseconds, never earlier than
// the previous message posted through this service.
func (s *Service) nextTimestamp() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts := s.now().UnixMilli()
	if ts < s.lastTimestamp {
		ts = s.lastTimestamp
	}
	s.lastTimestamp = ts
	return ts
}
