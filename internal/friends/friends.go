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

// Package friends implements the friend-request workflow: send, accept and
// decline over the symmetric per-user request lists.
package friends

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"gacha-chat-go/internal/identity"
	"gacha-chat-go/internal/models"
	"gacha-chat-go/internal/store"
)

type Service struct {
	store store.TreeStore
	dir   *identity.Directory
	now   func() time.Time
}

func NewService(s store.TreeStore, dir *identity.Directory) *Service {
	return &Service{store: s, dir: dir, now: time.Now}
}

// Send records a pending request from senderUid to the user named targetName.
// Checks run in a fixed order so the first failing precondition decides the
// error. Both request records are written in one multi-path update.
func (s *Service) Send(ctx context.Context, senderUid, targetName string) (*models.FriendRequest, error) {
	senderName, err := s.dir.ResolveNameByID(ctx, senderUid)
	if err != nil {
		return nil, fmt.Errorf("sender profile: %w", err)
	}

	targetName = strings.TrimSpace(targetName)
	if targetName == "" {
		return nil, fmt.Errorf("%w: targetUsername", models.ErrMissingField)
	}
	if targetName == senderName {
		return nil, models.ErrSelfRequest
	}

	targetUid, err := s.dir.ResolveIDByName(ctx, targetName)
	if err != nil {
		return nil, err
	}
	if targetUid == senderUid {
		return nil, models.ErrSelfRequest
	}

	sender, err := s.dir.GetUser(ctx, senderUid)
	if err != nil {
		return nil, err
	}
	target, err := s.dir.GetUser(ctx, targetUid)
	if err != nil {
		return nil, err
	}
	if err := pendingConflict(sender, target, senderUid, targetUid); err != nil {
		return nil, err
	}

	timestamp := s.now().UnixMilli()
	sent := models.FriendRequest{Username: targetName, Uid: targetUid, Timestamp: timestamp}
	received := models.FriendRequest{Username: senderName, Uid: senderUid, Timestamp: timestamp}

	err = s.store.Update(ctx, map[string]any{
		store.UserPath(targetUid, "friend_requests_received", senderUid): received,
		store.UserPath(senderUid, "friend_requests_sent", targetUid):     sent,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to write friend request: %w", err)
	}

	zap.L().Info("Friend request sent",
		zap.String("sender_id", senderUid),
		zap.String("target_id", targetUid))
	return &sent, nil
}

// Accept turns a pending request into a friendship. Adding both friend
// entries and removing both request records happens in one atomic update.
func (s *Service) Accept(ctx context.Context, acceptorUid, senderUid string) (*models.Friend, error) {
	if err := checkSenderUid(senderUid); err != nil {
		return nil, err
	}

	acceptorName, err := s.dir.ResolveNameByID(ctx, acceptorUid)
	if err != nil {
		return nil, fmt.Errorf("acceptor profile: %w", err)
	}
	senderName, err := s.dir.ResolveNameByID(ctx, senderUid)
	if err != nil {
		return nil, fmt.Errorf("sender profile: %w", err)
	}

	if _, err := s.receivedRequest(ctx, acceptorUid, senderUid); err != nil {
		return nil, err
	}

	friend := models.Friend{Username: senderName, Uid: senderUid}
	err = s.store.Update(ctx, map[string]any{
		store.UserPath(acceptorUid, "friends", senderUid):                  friend,
		store.UserPath(senderUid, "friends", acceptorUid):                  models.Friend{Username: acceptorName, Uid: acceptorUid},
		store.UserPath(acceptorUid, "friend_requests_received", senderUid): nil,
		store.UserPath(senderUid, "friend_requests_sent", acceptorUid):     nil,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to accept friend request: %w", err)
	}

	zap.L().Info("Friend request accepted",
		zap.String("acceptor_id", acceptorUid),
		zap.String("sender_id", senderUid))
	return &friend, nil
}

// Decline removes both request records. Missing records are not an error.
func (s *Service) Decline(ctx context.Context, acceptorUid, senderUid string) error {
	if err := checkSenderUid(senderUid); err != nil {
		return err
	}

	err := s.store.Update(ctx, map[string]any{
		store.UserPath(acceptorUid, "friend_requests_received", senderUid): nil,
		store.UserPath(senderUid, "friend_requests_sent", acceptorUid):     nil,
	})
	if err != nil {
		return fmt.Errorf("failed to decline friend request: %w", err)
	}

	zap.L().Info("Friend request declined",
		zap.String("acceptor_id", acceptorUid),
		zap.String("sender_id", senderUid))
	return nil
}

// ListFriends returns the user's friends ordered by display name.
func (s *Service) ListFriends(ctx context.Context, uid string) ([]models.Friend, error) {
	user, err := s.dir.GetUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	friends := make([]models.Friend, 0, len(user.Friends))
	for _, f := range user.Friends {
		friends = append(friends, f)
	}
	sort.Slice(friends, func(i, j int) bool {
		if friends[i].Username != friends[j].Username {
			return friends[i].Username < friends[j].Username
		}
		return friends[i].Uid < friends[j].Uid
	})
	return friends, nil
}

// ListRequests returns both directions of pending requests, oldest first.
func (s *Service) ListRequests(ctx context.Context, uid string) (*models.PendingRequests, error) {
	user, err := s.dir.GetUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	return &models.PendingRequests{
		Sent:     sortedRequests(user.FriendRequestsSent),
		Received: sortedRequests(user.FriendRequestsReceived),
	}, nil
}

func (s *Service) receivedRequest(ctx context.Context, acceptorUid, senderUid string) (*models.FriendRequest, error) {
	user, err := s.dir.GetUser(ctx, acceptorUid)
	if err != nil {
		return nil, err
	}
	request, ok := user.FriendRequestsReceived[senderUid]
	if !ok {
		return nil, fmt.Errorf("%w: from %s", models.ErrRequestNotFound, senderUid)
	}
	return &request, nil
}

func sortedRequests(m map[string]models.FriendRequest) []models.FriendRequest {
	out := make([]models.FriendRequest, 0, len(m))
	for _, r := range m {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp < out[j].Timestamp
		}
		return out[i].Uid < out[j].Uid
	})
	return out
}


// pendingConflict checks both users' documents, so a record left on only one
// side still blocks a new request.
func pendingConflict(sender, target *models.User, senderUid, targetUid string) error {
	if _, ok := sender.Friends[targetUid]; ok {
		return models.ErrAlreadyFriends
	}
	if _, ok := target.Friends[senderUid]; ok {
		return models.ErrAlreadyFriends
	}
	if _, ok := sender.FriendRequestsSent[targetUid]; ok {
		return models.ErrDuplicatePending
	}
	if _, ok := target.FriendRequestsReceived[senderUid]; ok {
		return models.ErrDuplicatePending
	}
	if _, ok := sender.FriendRequestsReceived[targetUid]; ok {
		return models.ErrAlreadyReceivedFromTarget
	}
	if _, ok := target.FriendRequestsSent[senderUid]; ok {
		return models.ErrAlreadyReceivedFromTarget
	}
	return nil
}

func checkSenderUid(senderUid string) error {
	if senderUid == "" {
		return fmt.Errorf("%w: senderUid", models.ErrMissingField)
	}
	if !store.ValidKey(senderUid) {
		return fmt.Errorf("%w: senderUid %q", models.ErrInvalidId, senderUid)
	}
	return nil
}
