package cart

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/csdakkoni/ecommerce-sub000/internal/catalog"
	"github.com/csdakkoni/ecommerce-sub000/internal/pricing"
	"github.com/csdakkoni/ecommerce-sub000/pkg/db/models"
	"github.com/csdakkoni/ecommerce-sub000/pkg/enums"
	pkgerrors "github.com/csdakkoni/ecommerce-sub000/pkg/errors"
	"github.com/csdakkoni/ecommerce-sub000/pkg/types"
)

// quantityEpsilon absorbs float noise in client-submitted fractional quantities.
var quantityEpsilon = decimal.New(1, -6)

// quantityScale matches the numeric(12,3) quantity column.
const quantityScale = 3

const (
	defaultCategory    = "Textile"
	defaultSubCategory = "General"
)

// Reason classifies why a cart was rejected.
type Reason string

const (
	ReasonEmptyCart         Reason = "empty_cart"
	ReasonUnknownOrInactive Reason = "unknown_or_inactive_item"
	ReasonInvalidQuantity   Reason = "invalid_quantity"
	ReasonInvalidSelection  Reason = "invalid_selection"
	ReasonInvalidCoupon     Reason = "invalid_coupon"
)

// Line is one client-submitted cart row. Name and ClaimedPrice are advisory
// and never feed pricing.
type Line struct {
	ProductID      string
	Quantity       decimal.Decimal
	Name           string
	ClaimedPrice   *decimal.Decimal
	UnitType       string
	OptionValueIDs []string
}

// ValidatedLine is the trusted, server-priced form of a Line.
type ValidatedLine struct {
	ProductID   uuid.UUID
	Name        string
	Category    string
	SubCategory string
	UnitType    enums.UnitType
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	LineTotal   decimal.Decimal
	Options     types.SelectedOptions
	Breakdown   []pricing.BreakdownEntry
}

// Validator is the anti-tampering boundary between client carts and the catalog.
type Validator struct {
	now func() time.Time
}

func NewValidator() *Validator {
	return &Validator{now: time.Now}
}

// Validate prices every line from the snapshot. Any bad line fails the whole
// cart; lines are never dropped. Output preserves input order.
func (v *Validator) Validate(lines []Line, snapshot *catalog.Snapshot, currency enums.Currency) ([]ValidatedLine, error) {
	if len(lines) == 0 {
		return nil, reject(ReasonEmptyCart, -1, "", "cart is empty")
	}

	out := make([]ValidatedLine, 0, len(lines))
	for i, line := range lines {
		validated, err := v.validateLine(i, line, snapshot, currency)
		if err != nil {
			return nil, err
		}
		out = append(out, validated)
	}
	return out, nil
}

func (v *Validator) validateLine(idx int, line Line, snapshot *catalog.Snapshot, currency enums.Currency) (ValidatedLine, error) {
	rawID := strings.TrimSpace(line.ProductID)
	id, err := uuid.Parse(rawID)
	if err != nil {
		return ValidatedLine{}, reject(ReasonUnknownOrInactive, idx, rawID, fmt.Sprintf("product %q is not available", displayName(line)))
	}
	product, ok := snapshot.Product(id)
	if !ok || !product.IsActive {
		return ValidatedLine{}, reject(ReasonUnknownOrInactive, idx, rawID, fmt.Sprintf("product %q is not available", displayName(line)))
	}

	qty, err := checkQuantity(product, line.Quantity)
	if err != nil {
		return ValidatedLine{}, reject(ReasonInvalidQuantity, idx, rawID, fmt.Sprintf("%s: %s", product.Name, err.Error()))
	}

	resolved, err := pricing.ResolveSelections(product, line.OptionValueIDs, currency)
	if err != nil {
		return ValidatedLine{}, reject(ReasonInvalidSelection, idx, rawID, fmt.Sprintf("%s: %s", product.Name, err.Error()))
	}

	quote := pricing.ComputePrice(product.EffectivePrice(currency), resolved.Modifiers)
	return ValidatedLine{
		ProductID:   product.ID,
		Name:        product.Name,
		Category:    product.Category(0, defaultCategory),
		SubCategory: product.Category(1, defaultSubCategory),
		UnitType:    product.UnitType,
		Quantity:    qty,
		UnitPrice:   quote.FinalPrice,
		LineTotal:   pricing.LineTotal(quote.FinalPrice, qty),
		Options:     resolved.Options,
		Breakdown:   quote.Breakdown,
	}, nil
}

// checkQuantity applies the unit-type rules and returns the quantity snapped
// onto its grid: whole numbers for pieces, the step (or the stored scale of
// three decimals) for fractional units. The snapped value is what gets priced
// and persisted.
func checkQuantity(product *models.Product, qty decimal.Decimal) (decimal.Decimal, error) {
	if !qty.IsPositive() {
		return decimal.Zero, fmt.Errorf("quantity must be positive")
	}
	if !product.UnitType.Fractional() {
		if !isMultiple(qty, decimal.NewFromInt(1)) {
			return decimal.Zero, fmt.Errorf("quantity must be a whole number")
		}
		return positive(qty.Round(0))
	}

	snapped := qty.Round(quantityScale)
	if product.StepQty.IsPositive() {
		if !isMultiple(qty, product.StepQty) {
			return decimal.Zero, fmt.Errorf("quantity must be a multiple of %s", product.StepQty.String())
		}
		snapped = qty.Div(product.StepQty).Round(0).Mul(product.StepQty)
	}
	if snapped.Add(quantityEpsilon).LessThan(product.MinOrderQty) {
		return decimal.Zero, fmt.Errorf("quantity must be at least %s", product.MinOrderQty.String())
	}
	return positive(snapped)
}

func positive(qty decimal.Decimal) (decimal.Decimal, error) {
	if !qty.IsPositive() {
		return decimal.Zero, fmt.Errorf("quantity must be positive")
	}
	return qty, nil
}

func isMultiple(qty, step decimal.Decimal) bool {
	remainder := qty.Mod(step)
	return remainder.LessThan(quantityEpsilon) || step.Sub(remainder).LessThan(quantityEpsilon)
}

// Discount resolves an optional coupon to its per-currency amount.
// An unknown, inactive or expired code rejects the cart.
func (v *Validator) Discount(snapshot *catalog.Snapshot, code string, currency enums.Currency) (decimal.Decimal, *string, error) {
	normalized := catalog.NormalizeCouponCode(code)
	if normalized == "" {
		return decimal.Zero, nil, nil
	}
	if snapshot == nil || snapshot.Coupon == nil || !snapshot.Coupon.Usable(v.now()) {
		return decimal.Zero, nil, reject(ReasonInvalidCoupon, -1, "", fmt.Sprintf("coupon %q is not valid", normalized))
	}
	return snapshot.Coupon.Discount(currency), &normalized, nil
}

func displayName(line Line) string {
	if name := strings.TrimSpace(line.Name); name != "" {
		return name
	}
	return strings.TrimSpace(line.ProductID)
}

// Rejection is the structured detail attached to CART_REJECTED errors.
type Rejection struct {
	Reason    Reason `json:"reason"`
	Line      *int   `json:"line,omitempty"`
	ProductID string `json:"productId,omitempty"`
}

func reject(reason Reason, idx int, productID, message string) error {
	detail := Rejection{Reason: reason, ProductID: productID}
	if idx >= 0 {
		line := idx
		detail.Line = &line
	}
	return pkgerrors.New(pkgerrors.CodeCartRejected, message).WithDetails(detail)
}

// RejectionOf extracts the rejection detail from an error, if present.
func RejectionOf(err error) (Rejection, bool) {
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeCartRejected {
		return Rejection{}, false
	}
	detail, ok := typed.Details().(Rejection)
	return detail, ok
}
