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
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"gacha-chat-go/internal/models"
)

type catalogFile struct {
	Cards []models.CardDefinition `yaml:"cards" json:"cards"`
}

// Catalog is the ordered, read-only list of drawable cards.
type Catalog struct {
	cards []models.CardDefinition
}

// LoadCatalog reads a catalog from YAML (.yaml, .yml) or JSON (.json). JSON
// may be either {"cards": [...]} or a bare array.
func LoadCatalog(catalogFile string) (*Catalog, error) {
	var catalogPath string
	if filepath.IsAbs(catalogFile) {
		catalogPath = catalogFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		catalogPath = filepath.Join(wd, catalogFile)
	}

	data, err := os.ReadFile(catalogPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", catalogFile, err)
	}

	cards, err := parseCatalog(catalogFile, data)
	if err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", catalogFile, err)
	}

	catalog, err := NewCatalog(cards)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog %s: %w", catalogFile, err)
	}

	zap.L().Info("Card catalog loaded",
		zap.String("file", catalogFile),
		zap.Int("cards", catalog.Len()))
	return catalog, nil
}

func parseCatalog(name string, data []byte) ([]models.CardDefinition, error) {
	var file catalogFile
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		trimmed := strings.TrimSpace(string(data))
		if strings.HasPrefix(trimmed, "[") {
			if err := json.Unmarshal(data, &file.Cards); err != nil {
				return nil, err
			}
			return file.Cards, nil
		}
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, err
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", filepath.Ext(name))
	}
	return file.Cards, nil
}

// NewCatalog validates cards and keeps their order, which decides how the
// draw walks the weights.
func NewCatalog(cards []models.CardDefinition) (*Catalog, error) {
	if len(cards) == 0 {
		return nil, fmt.Errorf("catalog has no cards")
	}

	seen := make(map[string]struct{}, len(cards))
	for i, card := range cards {
		if card.Id == "" {
			return nil, fmt.Errorf("card at index %d missing id", i)
		}
		if _, dup := seen[card.Id]; dup {
			return nil, fmt.Errorf("duplicate card id %q", card.Id)
		}
		if card.Price < 0 {
			return nil, fmt.Errorf("card %q has negative price", card.Id)
		}
		if math.IsNaN(card.Rate) || card.Rate <= 0 {
			zap.L().Warn("Card has no positive rate and is only drawable by uniform fallback",
				zap.String("card_id", card.Id),
				zap.Float64("rate", card.Rate))
		}
		seen[card.Id] = struct{}{}
	}

	return &Catalog{cards: append([]models.CardDefinition(nil), cards...)}, nil
}

// Cards returns a copy of the catalog in file order.
func (c *Catalog) Cards() []models.CardDefinition {
	return append([]models.CardDefinition(nil), c.cards...)
}

func (c *Catalog) Len() int {
	return len(c.cards)
}
