package pricing

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/csdakkoni/ecommerce-sub000/pkg/db/models"
	"github.com/csdakkoni/ecommerce-sub000/pkg/enums"
	"github.com/csdakkoni/ecommerce-sub000/pkg/types"
)

// ErrConflictingSelection means two values of one single-select group were chosen.
var ErrConflictingSelection = errors.New("more than one option selected for a group")

// Resolved is the server-side view of a client's option selection.
type Resolved struct {
	Modifiers []Modifier
	Options   types.SelectedOptions
}

// ResolveSelections maps client-supplied option value ids onto the product's
// own option tables. Ids that are unknown or unavailable contribute nothing.
// A group the client named, even through an unavailable value, never falls
// back to its default; only untouched groups do.
// Output follows group sort order.
func ResolveSelections(product *models.Product, selectedIDs []string, currency enums.Currency) (Resolved, error) {
	if product == nil || len(product.OptionGroups) == 0 {
		return Resolved{}, nil
	}

	groups := make([]models.OptionGroup, len(product.OptionGroups))
	copy(groups, product.OptionGroups)
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].SortOrder < groups[j].SortOrder })

	type located struct {
		groupIdx int
		value    models.OptionValue
	}
	index := map[string]located{}
	for gi, group := range groups {
		for _, value := range group.Values {
			index[value.ID.String()] = located{groupIdx: gi, value: value}
		}
	}

	chosen := make(map[int]models.OptionValue, len(groups))
	touched := make(map[int]bool, len(groups))
	for _, raw := range selectedIDs {
		id := strings.ToLower(strings.TrimSpace(raw))
		if id == "" {
			continue
		}
		hit, ok := index[id]
		if !ok {
			continue
		}
		touched[hit.groupIdx] = true
		if !hit.value.IsAvailable {
			continue
		}
		if prev, taken := chosen[hit.groupIdx]; taken && prev.ID != hit.value.ID {
			return Resolved{}, fmt.Errorf("%w: %q", ErrConflictingSelection, groups[hit.groupIdx].Name)
		}
		chosen[hit.groupIdx] = hit.value
	}

	var out Resolved
	for gi, group := range groups {
		value, ok := chosen[gi]
		if !ok && !touched[gi] {
			value, ok = defaultValue(group)
		}
		if !ok {
			continue
		}
		out.Modifiers = append(out.Modifiers, Modifier{
			ValueID:   value.ID.String(),
			GroupName: group.Name,
			Label:     fmt.Sprintf("%s: %s", group.Name, value.Label),
			GroupSort: group.SortOrder,
			Fixed:     value.FixedModifier(currency),
			Percent:   value.PriceModifierPercent,
		})
		out.Options = append(out.Options, types.SelectedOption{
			GroupName: group.Name,
			ValueID:   value.ID.String(),
			Label:     value.Label,
		})
	}
	return out, nil
}

func defaultValue(group models.OptionGroup) (models.OptionValue, bool) {
	values := make([]models.OptionValue, len(group.Values))
	copy(values, group.Values)
	sort.SliceStable(values, func(i, j int) bool { return values[i].SortOrder < values[j].SortOrder })
	for _, v := range values {
		if v.IsDefault && v.IsAvailable {
			return v, true
		}
	}
	return models.OptionValue{}, false
}
