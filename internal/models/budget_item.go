package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Amount is a monetary value kept exactly as the user typed it. It is only
// interpreted as a number when displayed or totaled.
type Amount string

// Float64 parses the amount. Text that is not a decimal number yields NaN,
// which propagates through any sum it takes part in.
func (a Amount) Float64() float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(string(a)), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// Display formats the amount as currency with two decimals.
func (a Amount) Display() string {
	return FormatCurrency(a.Float64())
}

// MarshalJSON always writes the amount as a JSON string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(a))
}

// UnmarshalJSON accepts a JSON string or any other scalar token. Older
// persisted state stored amounts as numbers (for example a defaulted 0), so
// non-string tokens are kept as their literal text.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}
	*a = Amount(data)
	return nil
}

// FormatCurrency renders v as "$12.34". NaN renders as "$NaN".
func FormatCurrency(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

// BudgetItem is one expense entry. Items are never edited in place.
type BudgetItem struct {
	ID       int    `json:"id"`
	Date     string `json:"date"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Amount   Amount `json:"amount"`
	Notes    string `json:"notes"`
}

// UnmarshalJSON accepts the id as a JSON number or a decimal string, since
// older state was written by code that did not keep the two apart. A
// missing or null id decodes as 0.
func (b *BudgetItem) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	type plain BudgetItem
	aux := struct {
		*plain
		ID json.RawMessage `json:"id"`
	}{plain: (*plain)(b)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	id, err := parseItemID(aux.ID)
	if err != nil {
		return err
	}
	b.ID = id
	return nil
}

func parseItemID(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, nil
	}

	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, err
		}
		text = strings.TrimSpace(text)
	}

	if id, err := strconv.Atoi(text); err == nil {
		return id, nil
	}
	// integral floats such as 2.0 or 2e0
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("invalid budget item id %s", raw)
	}
	return int(f), nil
}

// ItemCandidate carries user input for a new budget item. The store assigns
// the id and date.
type ItemCandidate struct {
	Name     string
	Category string
	Amount   Amount
	Notes    string
}
