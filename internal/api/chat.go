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
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"gacha-chat-go/internal/chat"
	"gacha-chat-go/internal/models"
)

func (s *Server) handleRecentMessages(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}

	messages, err := s.chat.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "OK", "messages": messages})
}

func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	var in chat.PostInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	msg, err := s.chat.Post(r.Context(), caller(r).Uid, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Message sent.", "chatMessage": msg})
}

func (s *Server) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	msg, err := s.chat.SoftDelete(r.Context(), chi.URLParam(r, "id"), caller(r).Uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Message deleted.", "chatMessage": msg})
}

func (s *Server) handleReportMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MessageId string `json:"messageId"`
		Reason    string `json:"reason"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	reportId, err := s.chat.Report(r.Context(), *caller(r), req.MessageId, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Report submitted.", "reportId": reportId})
}

// handleUploadImage accepts a multipart form with the file under "image".
func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	if s.images == nil {
		writeMessage(w, http.StatusServiceUnavailable, "Image upload is not configured.")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.images.MaxBytes()+maxBodyBytes)
	file, header, err := r.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeMessage(w, http.StatusBadRequest, "Image is too large.")
			return
		}
		writeError(w, r, models.ErrMissingField)
		return
	}
	defer file.Close()

	url, err := s.images.Upload(r.Context(), caller(r).Uid, header.Filename,
		header.Header.Get("Content-Type"), file, header.Size)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Image uploaded.", "imageUrl": url})
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, models.ErrInvalidQuery
	}
	return v, nil
}
