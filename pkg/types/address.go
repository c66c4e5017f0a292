package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

const defaultCountry = "Turkey"

// Address is the shipping or billing snapshot copied onto an order at creation.
// It is stored as a JSON document and never re-read from a live address book.
type Address struct {
	ContactName string `json:"contactName,omitempty"`
	Address     string `json:"address" validate:"required,max=500"`
	City        string `json:"city" validate:"required,max=100"`
	District    string `json:"district,omitempty" validate:"omitempty,max=100"`
	ZipCode     string `json:"zipCode,omitempty" validate:"omitempty,max=20"`
	Country     string `json:"country,omitempty" validate:"omitempty,max=100"`
}

// Normalized trims every field and fills the default country.
func (a Address) Normalized() Address {
	out := Address{
		ContactName: strings.TrimSpace(a.ContactName),
		Address:     strings.TrimSpace(a.Address),
		City:        strings.TrimSpace(a.City),
		District:    strings.TrimSpace(a.District),
		ZipCode:     strings.TrimSpace(a.ZipCode),
		Country:     strings.TrimSpace(a.Country),
	}
	if out.Country == "" {
		out.Country = defaultCountry
	}
	return out
}

// IsZero reports whether no address line was provided.
func (a Address) IsZero() bool {
	return strings.TrimSpace(a.Address) == "" && strings.TrimSpace(a.City) == ""
}

// Value marshals Address into a JSON document.
func (a Address) Value() (driver.Value, error) {
	if strings.TrimSpace(a.Address) == "" {
		return nil, fmt.Errorf("address: missing address line")
	}
	if strings.TrimSpace(a.City) == "" {
		return nil, fmt.Errorf("address: missing city")
	}
	payload, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("address: marshal %w", err)
	}
	return string(payload), nil
}

// Scan decodes the JSON document.
func (a *Address) Scan(value interface{}) error {
	if value == nil {
		*a = Address{}
		return nil
	}

	raw, ok := toBytes(value)
	if !ok {
		return fmt.Errorf("address: unsupported scan type %T", value)
	}
	if err := json.Unmarshal(raw, a); err != nil {
		return fmt.Errorf("address: unmarshal %w", err)
	}
	return nil
}

func toBytes(value interface{}) ([]byte, bool) {
	switch v := value.(type) {
	case string:
		return []byte(v), true
	case []byte:
		return v, true
	case fmt.Stringer:
		return []byte(v.String()), true
	default:
		return nil, false
	}
}
