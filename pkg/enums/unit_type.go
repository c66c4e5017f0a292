package enums

import "fmt"

// UnitType describes how a product quantity is measured.
type UnitType string

const (
	UnitPiece UnitType = "piece"
	UnitMeter UnitType = "meter"
)

var validUnitTypes = []UnitType{
	UnitPiece,
	UnitMeter,
}

// String implements fmt.Stringer.
func (u UnitType) String() string {
	return string(u)
}

// IsValid reports whether the value is a known UnitType.
func (u UnitType) IsValid() bool {
	for _, candidate := range validUnitTypes {
		if candidate == u {
			return true
		}
	}
	return false
}

// Fractional reports whether quantities may be non-integer (sold by length).
func (u UnitType) Fractional() bool {
	return u == UnitMeter
}

// ParseUnitType converts raw input into a UnitType.
func ParseUnitType(value string) (UnitType, error) {
	for _, candidate := range validUnitTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid unit type %q", value)
}
