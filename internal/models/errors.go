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

package models

import (
	"errors"
	"fmt"
)

// Error categories. Every domain error wraps exactly one of these so the HTTP
// layer can map it with errors.Is.
var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrBadRequest        = errors.New("bad request")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrPermissionDenied  = errors.New("permission denied")
)

var (
	ErrMissingField              = fmt.Errorf("%w: missing required field", ErrBadRequest)
	ErrBadRequestBody            = fmt.Errorf("%w: request body is not valid JSON", ErrBadRequest)
	ErrInvalidQuery              = fmt.Errorf("%w: query parameter must be a non-negative integer", ErrBadRequest)
	ErrInvalidId                 = fmt.Errorf("%w: invalid id", ErrBadRequest)
	ErrSelfRequest               = fmt.Errorf("%w: cannot send a friend request to yourself", ErrBadRequest)
	ErrEmptyMessage              = fmt.Errorf("%w: message must have text or an image", ErrBadRequest)
	ErrReplyToDeleted            = fmt.Errorf("%w: cannot reply to a deleted message", ErrBadRequest)
	ErrInvalidAmount             = fmt.Errorf("%w: amount must be positive", ErrBadRequest)
	ErrUserNotFound              = fmt.Errorf("%w: user", ErrNotFound)
	ErrRequestNotFound           = fmt.Errorf("%w: friend request", ErrNotFound)
	ErrCardNotFound              = fmt.Errorf("%w: card", ErrNotFound)
	ErrMessageNotFound           = fmt.Errorf("%w: message", ErrNotFound)
	ErrAlreadyFriends            = fmt.Errorf("%w: already friends", ErrConflict)
	ErrDuplicatePending          = fmt.Errorf("%w: friend request already sent", ErrConflict)
	ErrAlreadyReceivedFromTarget = fmt.Errorf("%w: friend request already received from target", ErrConflict)
	ErrAmbiguousDisplayName      = fmt.Errorf("%w: display name is not unique", ErrConflict)
	ErrEmailTaken                = fmt.Errorf("%w: email already registered", ErrConflict)
	ErrDisplayNameTaken          = fmt.Errorf("%w: display name already taken", ErrConflict)
	ErrNotMessageOwner           = fmt.Errorf("%w: only the sender may delete a message", ErrPermissionDenied)
	ErrInvalidCredentials        = fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	ErrInvalidToken              = fmt.Errorf("%w: invalid or expired token", ErrUnauthorized)
)
