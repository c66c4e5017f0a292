package payment

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/csdakkoni/ecommerce-sub000/pkg/db/models"
)

const (
	maxItemNameRunes = 100

	defaultCategory1 = "Textile"
	defaultCategory2 = "General"

	shippingItemID   = "shipping"
	shippingItemName = "Shipping"
)

// Customer is the buyer data supplied with a payment request. Empty fields
// fall back to what the order recorded at checkout.
type Customer struct {
	FirstName      string
	LastName       string
	Email          string
	Phone          string
	UserID         string
	IdentityNumber string
	IP             string
}

// BuildSessionRequest turns a persisted order into a gateway payload.
// Addresses are the order's own snapshots; line prices are the persisted
// line totals and are never re-read from the catalog.
func BuildSessionRequest(order *models.Order, customer Customer, callbackURL string) SessionRequest {
	items := make([]BasketItem, 0, len(order.Items)+1)
	price := decimal.Zero
	for _, it := range order.Items {
		if !it.LineTotal.IsPositive() {
			continue
		}
		items = append(items, BasketItem{
			ID:        it.ProductID.String(),
			Name:      truncateRunes(strings.TrimSpace(it.ProductName), maxItemNameRunes),
			Category1: orDefault(it.Category, defaultCategory1),
			Category2: orDefault(it.SubCategory, defaultCategory2),
			Physical:  true,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Price:     it.LineTotal,
		})
		price = price.Add(it.LineTotal)
	}
	if order.ShippingCost.IsPositive() {
		items = append(items, BasketItem{
			ID:        shippingItemID,
			Name:      shippingItemName,
			Category1: shippingItemName,
			Category2: defaultCategory2,
			Quantity:  decimal.NewFromInt(1),
			UnitPrice: order.ShippingCost,
			Price:     order.ShippingCost,
		})
		price = price.Add(order.ShippingCost)
	}

	return SessionRequest{
		ConversationID:  order.ConversationID,
		OrderID:         order.ID.String(),
		Locale:          order.Locale,
		Currency:        order.Currency,
		Price:           price,
		PaidPrice:       order.Total,
		Items:           items,
		Buyer:           buildBuyer(order, customer),
		ShippingAddress: order.ShippingAddress,
		BillingAddress:  order.BillingAddress,
		CallbackURL:     callbackURL,
	}
}

func buildBuyer(order *models.Order, customer Customer) Buyer {
	first := strings.TrimSpace(customer.FirstName)
	last := strings.TrimSpace(customer.LastName)
	if first == "" && last == "" {
		first, last = splitName(order.CustomerName)
	}

	id := strings.TrimSpace(customer.UserID)
	if id == "" && order.UserID != nil {
		id = *order.UserID
	}
	if id == "" {
		id = order.ID.String()
	}

	return Buyer{
		ID:             id,
		FirstName:      first,
		LastName:       last,
		Email:          orDefault(customer.Email, order.CustomerEmail),
		Phone:          orDefault(customer.Phone, order.CustomerPhone),
		IdentityNumber: strings.TrimSpace(customer.IdentityNumber),
		IP:             strings.TrimSpace(customer.IP),
	}
}

// splitName treats the last word as the surname.
func splitName(full string) (string, string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], parts[0]
	default:
		return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
	}
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
