package enums

import "testing"

func TestParseCurrency(t *testing.T) {
	cases := map[string]Currency{"TRY": CurrencyTRY, "eur": CurrencyEUR, " try ": CurrencyTRY}
	for raw, want := range cases {
		got, err := ParseCurrency(raw)
		if err != nil {
			t.Fatalf("ParseCurrency(%q) unexpected error: %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseCurrency(%q) = %s, want %s", raw, got, want)
		}
	}
	if _, err := ParseCurrency("USD"); err == nil {
		t.Fatal("expected USD to be rejected")
	}
}

func TestOrderStatusPredicates(t *testing.T) {
	if !OrderStatusPending.AcceptsPaymentSession() || !OrderStatusPendingPayment.AcceptsPaymentSession() {
		t.Fatal("pending statuses should accept a payment session")
	}
	for _, status := range []OrderStatus{OrderStatusPaid, OrderStatusCancelled, OrderStatusRefunded} {
		if status.AcceptsPaymentSession() {
			t.Fatalf("%s should not accept a payment session", status)
		}
		if !status.IsTerminal() {
			t.Fatalf("%s should be terminal", status)
		}
	}
	if _, err := ParseOrderStatus("shipped"); err == nil {
		t.Fatal("expected unknown status to be rejected")
	}
}

func TestUnitTypeFractional(t *testing.T) {
	if UnitPiece.Fractional() {
		t.Fatal("piece should not be fractional")
	}
	if !UnitMeter.Fractional() {
		t.Fatal("meter should be fractional")
	}
	if _, err := ParseUnitType("yard"); err == nil {
		t.Fatal("expected unknown unit to be rejected")
	}
}

func TestParseOptionGroupType(t *testing.T) {
	got, err := ParseOptionGroupType("color")
	if err != nil || got != OptionGroupColor {
		t.Fatalf("ParseOptionGroupType(color) = %q, %v", got, err)
	}
	if _, err := ParseOptionGroupType("checkbox"); err == nil {
		t.Fatal("multi-select groups are not supported")
	}
}
