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

package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// DecodeValue parses JSON into plain maps, slices and json.Number so integers
// survive a round trip unchanged. Empty objects and nulls are pruned; a value
// that prunes to nothing decodes as nil.
func DecodeValue(raw json.RawMessage) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to decode value: %w", err)
	}
	return prune(v), nil
}

// normalize converts any marshalable value into the decoded tree form.
func normalize(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return DecodeValue(v)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode value: %w", err)
	}
	return DecodeValue(raw)
}

func encodeValue(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode value: %w", err)
	}
	return raw, nil
}

func prune(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	for k, child := range m {
		child = prune(child)
		if child == nil {
			delete(m, k)
			continue
		}
		m[k] = child
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

func getIn(v any, field []string) (any, bool) {
	for _, seg := range field {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		if v, ok = m[seg]; !ok {
			return nil, false
		}
	}
	return v, v != nil
}

// setIn returns doc with value placed at field. A nil value removes the field
// and prunes any parents left empty.
func setIn(doc any, field []string, value any) any {
	if len(field) == 0 {
		return value
	}
	m, ok := doc.(map[string]any)
	if !ok {
		if value == nil {
			return doc
		}
		m = make(map[string]any)
	}
	child := setIn(m[field[0]], field[1:], value)
	if child == nil {
		delete(m, field[0])
	} else {
		m[field[0]] = child
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

// assemble nests documents under their path relative to prefix.
func assemble(prefix string, docs []Document) (any, error) {
	root := map[string]any{}
	for _, d := range docs {
		v, err := DecodeValue(d.Value)
		if err != nil {
			return nil, err
		}
		rel := strings.Split(strings.TrimPrefix(d.Path, prefix+"/"), "/")
		root, _ = setIn(root, rel, v).(map[string]any)
		if root == nil {
			root = map[string]any{}
		}
	}
	if len(root) == 0 {
		return nil, nil
	}
	return root, nil
}

// Value ordering classes, lowest first.
const (
	classNull = iota
	classFalse
	classTrue
	classNumber
	classString
	classObject
)

func orderClass(v any) int {
	switch t := v.(type) {
	case nil:
		return classNull
	case bool:
		if t {
			return classTrue
		}
		return classFalse
	case json.Number, float64, int, int64:
		return classNumber
	case string:
		return classString
	default:
		return classObject
	}
}

func asFloat(v any) float64 {
	switch t := v.(type) {
	case json.Number:
		f, _ := t.Float64()
		return f
	case float64:
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	}
	return 0
}

// compareValues orders two decoded values the way Query sorts children.
func compareValues(a, b any) int {
	ca, cb := orderClass(a), orderClass(b)
	if ca != cb {
		if ca < cb {
			return -1
		}
		return 1
	}
	switch ca {
	case classNumber:
		fa, fb := asFloat(a), asFloat(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case classString:
		return strings.Compare(a.(string), b.(string))
	case classObject:
		ra, _ := json.Marshal(a)
		rb, _ := json.Marshal(b)
		return bytes.Compare(ra, rb)
	}
	return 0
}

func sortSnapshots(snaps []Snapshot, child string, values map[string]any) {
	sort.SliceStable(snaps, func(i, j int) bool {
		if child != "" {
			if c := compareValues(values[snaps[i].Key], values[snaps[j].Key]); c != 0 {
				return c < 0
			}
		}
		return snaps[i].Key < snaps[j].Key
	})
}
