package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// SelectedOption is the label snapshot of a variant chosen for an order item.
type SelectedOption struct {
	GroupName string `json:"groupName"`
	ValueID   string `json:"valueId"`
	Label     string `json:"label"`
}

// SelectedOptions persists as a JSON array.
type SelectedOptions []SelectedOption

func (s SelectedOptions) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	payload, err := json.Marshal([]SelectedOption(s))
	if err != nil {
		return nil, fmt.Errorf("selected options: marshal %w", err)
	}
	return string(payload), nil
}

func (s *SelectedOptions) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	raw, ok := toBytes(value)
	if !ok {
		return fmt.Errorf("selected options: unsupported scan type %T", value)
	}
	var out []SelectedOption
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("selected options: unmarshal %w", err)
	}
	*s = out
	return nil
}
