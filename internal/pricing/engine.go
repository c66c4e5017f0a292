// Package pricing holds the pure price arithmetic shared by the live preview
// and the authoritative checkout recomputation.
package pricing

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/csdakkoni/ecommerce-sub000/pkg/enums"
)

var hundred = decimal.NewFromInt(100)

// Modifier is a resolved option value in a single currency.
type Modifier struct {
	ValueID   string
	GroupName string
	Label     string
	GroupSort int
	Fixed     decimal.Decimal
	Percent   decimal.Decimal
}

// BreakdownEntry is one line of the human-readable price explanation.
type BreakdownEntry struct {
	Label  string             `json:"label"`
	Kind   enums.ModifierKind `json:"kind"`
	Amount decimal.Decimal    `json:"amount"`
}

// Quote is the result of ComputePrice.
type Quote struct {
	BasePrice  decimal.Decimal  `json:"basePrice"`
	FinalPrice decimal.Decimal  `json:"finalPrice"`
	Breakdown  []BreakdownEntry `json:"breakdown"`
}

// Round2 rounds half away from zero to two decimals; for the nonnegative
// amounts priced here that is half-up.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ComputePrice folds every fixed modifier into the base, then applies the
// summed percentage as one multiplier and rounds once:
//
//	final = round2((base + Σfixed) * (1 + Σpercent/100))
//
// With no selections the base is returned untouched. Results below zero clamp
// to zero.
func ComputePrice(base decimal.Decimal, selections []Modifier) Quote {
	quote := Quote{
		BasePrice:  base,
		FinalPrice: base,
		Breakdown:  []BreakdownEntry{{Label: "base", Kind: enums.ModifierBase, Amount: base}},
	}
	if len(selections) == 0 {
		return quote
	}

	ordered := make([]Modifier, len(selections))
	copy(ordered, selections)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].GroupSort < ordered[j].GroupSort })

	fixed := decimal.Zero
	percent := decimal.Zero
	for _, m := range ordered {
		fixed = fixed.Add(m.Fixed)
		percent = percent.Add(m.Percent)
		if !m.Fixed.IsZero() {
			quote.Breakdown = append(quote.Breakdown, BreakdownEntry{Label: m.Label, Kind: enums.ModifierFixed, Amount: m.Fixed})
		}
		if !m.Percent.IsZero() {
			quote.Breakdown = append(quote.Breakdown, BreakdownEntry{Label: m.Label, Kind: enums.ModifierPercentage, Amount: m.Percent})
		}
	}

	multiplier := decimal.NewFromInt(1).Add(percent.Div(hundred))
	final := Round2(base.Add(fixed).Mul(multiplier))
	if final.IsNegative() {
		final = decimal.Zero
	}
	quote.FinalPrice = final
	return quote
}

// LineTotal is the per-line rounded extension used when summing a subtotal.
func LineTotal(unitPrice, quantity decimal.Decimal) decimal.Decimal {
	return Round2(unitPrice.Mul(quantity))
}
