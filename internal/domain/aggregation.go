package domain

import (
	"encoding/json"
	"fmt"
)

// ValueCount is one histogram bucket: a distinct value and how many times it
// was observed.
type ValueCount struct {
	Value Value
	Count int
}

// MarshalJSON encodes the bucket as a two element array: [value, count].
func (vc ValueCount) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{vc.Value.Display(), vc.Count})
}

// UnmarshalJSON decodes a [value, count] pair.
func (vc *ValueCount) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("expected [value, count], got %d elements", len(pair))
	}
	var value Value
	if err := value.UnmarshalJSON(pair[0]); err != nil {
		return fmt.Errorf("failed to decode value: %w", err)
	}
	var count int
	if err := json.Unmarshal(pair[1], &count); err != nil {
		return fmt.Errorf("failed to decode count: %w", err)
	}
	vc.Value = value
	vc.Count = count
	return nil
}

// Result maps each property slug to its values sorted by descending count.
// Slugs without a single non-null occurrence are absent.
type Result map[string][]ValueCount
