package jsonutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexibleID is an integer ID that also accepts a JSON string holding the
// number. HTML select values arrive as strings ("12"); API clients send 12.
// null and "" decode to zero.
type FlexibleID int64

// UnmarshalJSON implements json.Unmarshaler.
func (id *FlexibleID) UnmarshalJSON(raw []byte) error {
	v, err := ParseFlexibleID(raw)
	if err != nil {
		return err
	}
	*id = FlexibleID(v)
	return nil
}

// ParseFlexibleID converts a raw JSON value to an integer ID.
// Fractional numbers, booleans and non-numeric strings are rejected.
func ParseFlexibleID(raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}

	var text string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return 0, nil
		}
	} else {
		text = string(raw)
	}

	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %s: must be an integer", raw)
	}
	return v, nil
}
