package openai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// DefaultQuantity is used when the speaker gave no amount.
const DefaultQuantity = 100

// FoodItem is one food the speaker mentioned.
type FoodItem struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// FormatError means the model's output could not be read as a list of food
// items. The whole batch is rejected.
type FormatError struct {
	Reason string
	Raw    string
}

func (e *FormatError) Error() string {
	return "unexpected extraction format: " + e.Reason
}

// shape tags the three JSON layouts the model is known to return.
type shape int

const (
	shapeList    shape = iota + 1 // [{...}, {...}]
	shapeWrapped                  // {"foods": [{...}]}
	shapeSingle                   // {"name": ..., "quantity": ...}
)

func (s shape) String() string {
	switch s {
	case shapeList:
		return "list"
	case shapeWrapped:
		return "wrapped"
	case shapeSingle:
		return "single"
	}
	return "invalid"
}

type extraction struct {
	shape shape
	items []rawItem
}

type rawItem struct {
	Name     string          `json:"name"`
	Quantity json.RawMessage `json:"quantity"`
	Grams    json.RawMessage `json:"grams"`
	Unit     string          `json:"unit"`
}

// preferred wrapper keys, checked before falling back to the first array field.
var wrapperKeys = []string{"foods", "items", "food_items", "foodItems"}

// NormalizeItems turns raw model output into food items, whichever of the
// known shapes it uses.
func NormalizeItems(data []byte) ([]FoodItem, error) {
	ex, err := classify(data)
	if err != nil {
		return nil, err
	}
	return ex.normalize(string(data))
}

func classify(data []byte) (extraction, error) {
	data = stripCodeFence(data)
	raw := string(data)

	if len(data) == 0 {
		return extraction{}, &FormatError{Reason: "empty output", Raw: raw}
	}

	switch data[0] {
	case '[':
		var items []rawItem
		if err := json.Unmarshal(data, &items); err != nil {
			return extraction{}, &FormatError{Reason: fmt.Sprintf("list: %v", err), Raw: raw}
		}
		return extraction{shape: shapeList, items: items}, nil

	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(data, &fields); err != nil {
			return extraction{}, &FormatError{Reason: fmt.Sprintf("object: %v", err), Raw: raw}
		}

		if _, ok := fields["name"]; ok {
			var item rawItem
			if err := json.Unmarshal(data, &item); err != nil {
				return extraction{}, &FormatError{Reason: fmt.Sprintf("single item: %v", err), Raw: raw}
			}
			return extraction{shape: shapeSingle, items: []rawItem{item}}, nil
		}

		key, ok := wrapperKey(fields)
		if !ok {
			return extraction{}, &FormatError{Reason: "object has no list of items", Raw: raw}
		}
		var items []rawItem
		if err := json.Unmarshal(fields[key], &items); err != nil {
			return extraction{}, &FormatError{Reason: fmt.Sprintf("%s: %v", key, err), Raw: raw}
		}
		return extraction{shape: shapeWrapped, items: items}, nil
	}

	return extraction{}, &FormatError{Reason: "not a JSON object or array", Raw: raw}
}

func wrapperKey(fields map[string]json.RawMessage) (string, bool) {
	for _, k := range wrapperKeys {
		if isArray(fields[k]) {
			return k, true
		}
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if isArray(fields[k]) {
			return k, true
		}
	}
	return "", false
}

func isArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

func (ex extraction) normalize(raw string) ([]FoodItem, error) {
	items := make([]FoodItem, 0, len(ex.items))
	for i, ri := range ex.items {
		name := strings.TrimSpace(ri.Name)
		if name == "" {
			continue
		}

		unit := strings.TrimSpace(ri.Unit)
		qty, ok, err := amount(ri.Quantity)
		if err != nil {
			return nil, &FormatError{Reason: fmt.Sprintf("item %d quantity: %v", i, err), Raw: raw}
		}
		if !ok {
			qty, ok, err = amount(ri.Grams)
			if err != nil {
				return nil, &FormatError{Reason: fmt.Sprintf("item %d grams: %v", i, err), Raw: raw}
			}
			if ok && unit == "" {
				unit = "g"
			}
		}
		if !ok {
			qty = DefaultQuantity
		}
		if qty < 0 {
			return nil, &FormatError{Reason: fmt.Sprintf("item %d has negative quantity %v", i, qty), Raw: raw}
		}
		if unit == "" {
			unit = "g"
		}

		items = append(items, FoodItem{Name: name, Quantity: qty, Unit: unit})
	}
	return items, nil
}

// amount reads a number or numeric string. ok is false for absent, null or
// empty values; an explicit zero is kept.
func amount(raw json.RawMessage) (float64, bool, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, false, nil
	}
	s = strings.Trim(s, `"`)
	if s == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, fmt.Errorf("%q is not a number", s)
	}
	return v, true, nil
}

func stripCodeFence(data []byte) []byte {
	s := strings.TrimSpace(string(data))
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return []byte(strings.TrimSpace(s))
}
