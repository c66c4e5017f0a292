package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/csdakkoni/ecommerce-sub000/pkg/config"
	"github.com/csdakkoni/ecommerce-sub000/pkg/enums"
)

// ShippingSchedule is the per-currency free-shipping rule.
type ShippingSchedule struct {
	FreeThreshold decimal.Decimal
	StandardFee   decimal.Decimal
}

// Schedules maps each currency to its shipping rule.
type Schedules map[enums.Currency]ShippingSchedule

// SchedulesFromConfig builds the schedule table from configuration.
func SchedulesFromConfig(cfg config.ShippingConfig) Schedules {
	return Schedules{
		enums.CurrencyTRY: {FreeThreshold: cfg.TRYFreeThreshold, StandardFee: cfg.TRYStandardFee},
		enums.CurrencyEUR: {FreeThreshold: cfg.EURFreeThreshold, StandardFee: cfg.EURStandardFee},
	}
}

// DefaultSchedules mirrors the configuration defaults.
func DefaultSchedules() Schedules {
	return Schedules{
		enums.CurrencyTRY: {FreeThreshold: decimal.NewFromInt(1500), StandardFee: decimal.NewFromInt(100)},
		enums.CurrencyEUR: {FreeThreshold: decimal.NewFromInt(150), StandardFee: decimal.NewFromInt(15)},
	}
}

// CurrencyResolver maps a locale, or an explicit currency, to the currency
// and its shipping schedule.
type CurrencyResolver struct {
	schedules Schedules
}

func NewCurrencyResolver(schedules Schedules) *CurrencyResolver {
	if len(schedules) == 0 {
		schedules = DefaultSchedules()
	}
	return &CurrencyResolver{schedules: schedules}
}

// CurrencyForLocale returns TRY for Turkish locales and EUR otherwise.
func CurrencyForLocale(locale string) enums.Currency {
	normalized := strings.ToLower(strings.TrimSpace(locale))
	if normalized == "tr" || strings.HasPrefix(normalized, "tr-") || strings.HasPrefix(normalized, "tr_") {
		return enums.CurrencyTRY
	}
	return enums.CurrencyEUR
}

// Resolve picks the explicit currency when given, else derives it from the
// locale. An explicit but unsupported currency is an error.
func (r *CurrencyResolver) Resolve(locale, explicit string) (enums.Currency, ShippingSchedule, error) {
	currency := CurrencyForLocale(locale)
	if strings.TrimSpace(explicit) != "" {
		parsed, err := enums.ParseCurrency(explicit)
		if err != nil {
			return "", ShippingSchedule{}, err
		}
		currency = parsed
	}
	return currency, r.Schedule(currency), nil
}

// Schedule returns the schedule for currency, falling back to EUR.
func (r *CurrencyResolver) Schedule(currency enums.Currency) ShippingSchedule {
	if schedule, ok := r.schedules[currency]; ok {
		return schedule
	}
	return r.schedules[enums.CurrencyEUR]
}
