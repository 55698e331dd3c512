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

package gacha

import (
	"math"
	"math/rand/v2"

	"gacha-chat-go/internal/models"
)

// Rand is the randomness a draw consumes. *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }
func (globalRand) IntN(n int) int   { return rand.IntN(n) }

// weight is the reciprocal of a card's rate. Cards with no positive rate
// weigh nothing.
func weight(card models.CardDefinition) float64 {
	if math.IsNaN(card.Rate) || math.IsInf(card.Rate, 0) || card.Rate <= 0 {
		return 0
	}
	return 1 / card.Rate
}

// Pick selects one card with probability proportional to 1/rate: a smaller
// rate is a larger weight. A uniform value in [0, total) is walked down the
// weights in catalog order and the card that takes it to zero or below wins.
// If no card has a positive rate the choice is uniform, as it is when float
// rounding leaves the walk unfinished.
func Pick(cards []models.CardDefinition, rng Rand) (models.CardDefinition, bool) {
	if len(cards) == 0 {
		return models.CardDefinition{}, false
	}

	total := 0.0
	for _, card := range cards {
		total += weight(card)
	}
	if total == 0 || math.IsInf(total, 0) {
		return cards[rng.IntN(len(cards))], true
	}

	r := rng.Float64() * total
	for _, card := range cards {
		w := weight(card)
		if w == 0 {
			continue
		}
		r -= w
		if r <= 0 {
			return card, true
		}
	}
	return cards[rng.IntN(len(cards))], true
}
