package enums

// ModifierKind tags a price breakdown entry.
type ModifierKind string

const (
	ModifierBase       ModifierKind = "base"
	ModifierFixed      ModifierKind = "fixed"
	ModifierPercentage ModifierKind = "percentage"
)

// String implements fmt.Stringer.
func (k ModifierKind) String() string {
	return string(k)
}
