package enums

import "fmt"

// OptionGroupType is the presentation of a single-select variant group.
type OptionGroupType string

const (
	OptionGroupList  OptionGroupType = "list"
	OptionGroupRadio OptionGroupType = "radio"
	OptionGroupColor OptionGroupType = "color"
	OptionGroupSize  OptionGroupType = "size"
)

var validOptionGroupTypes = []OptionGroupType{
	OptionGroupList,
	OptionGroupRadio,
	OptionGroupColor,
	OptionGroupSize,
}

// String implements fmt.Stringer.
func (t OptionGroupType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known OptionGroupType.
func (t OptionGroupType) IsValid() bool {
	for _, candidate := range validOptionGroupTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseOptionGroupType converts raw input into an OptionGroupType.
func ParseOptionGroupType(value string) (OptionGroupType, error) {
	for _, candidate := range validOptionGroupTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid option group type %q", value)
}
