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

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "OK",
		"cost":    s.gacha.Cost(),
		"cards":   s.gacha.Catalog(),
	})
}

func (s *Server) handleDraw(w http.ResponseWriter, r *http.Request) {
	result, err := s.gacha.Draw(r.Context(), caller(r).Uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("You got %s!", result.Card.Name),
		"result":  result,
	})
}

func (s *Server) handleInventory(w http.ResponseWriter, r *http.Request) {
	cards, err := s.inventory.List(r.Context(), caller(r).Uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "OK", "cards": cards})
}

func (s *Server) handleSell(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CardKey string `json:"cardKey"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.inventory.Sell(r.Context(), caller(r).Uid, req.CardKey)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("Sold %s for %d.", result.Card.Name, result.Credited),
		"result":  result,
	})
}
