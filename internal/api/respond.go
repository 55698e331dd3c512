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
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"gacha-chat-go/internal/models"
	"gacha-chat-go/internal/store"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Error("Failed to encode response", zap.Error(err))
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"message": message})
}

// writeError maps a domain error onto its status code. Anything outside the
// taxonomy is a 500 and gets logged.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrInvalidPath) {
		err = models.ErrInvalidId
	}
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		zap.L().Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeJSON(w, status, map[string]any{"message": "Internal server error.", "error": err.Error()})
		return
	}
	if status == http.StatusUnauthorized && errors.Is(err, models.ErrInvalidToken) {
		writeJSON(w, status, map[string]any{"message": "Unauthorized: Invalid or expired token.", "error": err.Error()})
		return
	}
	writeMessage(w, status, userMessage(err))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrBadRequest),
		errors.Is(err, models.ErrConflict),
		errors.Is(err, models.ErrInsufficientFunds):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// userMessage drops the category prefix ("not found: ") from an error.
func userMessage(err error) string {
	msg := err.Error()
	for _, category := range []error{
		models.ErrUnauthorized,
		models.ErrBadRequest,
		models.ErrNotFound,
		models.ErrConflict,
		models.ErrPermissionDenied,
	} {
		if trimmed, ok := strings.CutPrefix(msg, category.Error()+": "); ok {
			msg = trimmed
			break
		}
	}
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:] + "."
}

// decodeBody reads a JSON object into v. An empty body leaves v zero so the
// handler's required-field checks answer instead.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return models.ErrBadRequestBody
	}
	return nil
}
