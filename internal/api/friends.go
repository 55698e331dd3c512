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

package api

import (
	"fmt"
	"net/http"
)

func (s *Server) handleSendFriendRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TargetUsername string `json:"targetUsername"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	sent, err := s.friends.Send(r.Context(), caller(r).Uid, req.TargetUsername)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("Friend request sent to %s.", sent.Username),
		"request": sent,
	})
}

func (s *Server) handleAcceptFriendRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SenderUid string `json:"senderUid"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	friend, err := s.friends.Accept(r.Context(), caller(r).Uid, req.SenderUid)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("You are now friends with %s!", friend.Username),
		"friend":  friend,
	})
}

func (s *Server) handleDeclineFriendRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SenderUid string `json:"senderUid"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.friends.Decline(r.Context(), caller(r).Uid, req.SenderUid); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Friend request declined.")
}

func (s *Server) handleListFriends(w http.ResponseWriter, r *http.Request) {
	list, err := s.friends.ListFriends(r.Context(), caller(r).Uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "OK", "friends": list})
}

func (s *Server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	pending, err := s.friends.ListRequests(r.Context(), caller(r).Uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "OK",
		"sent":     pending.Sent,
		"received": pending.Received,
	})
}
