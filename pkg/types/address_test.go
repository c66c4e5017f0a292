package types

import "testing"

func TestAddressValueScanPreservesSnapshot(t *testing.T) {
	in := Address{ContactName: "Ayse Yilmaz", Address: "Bagdat Cad. 12", City: "Istanbul", District: "Kadikoy", ZipCode: "34710", Country: "Turkey"}

	raw, err := in.Value()
	if err != nil {
		t.Fatalf("Value returned error: %v", err)
	}

	var out Address
	if err := out.Scan(raw); err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	if out != in {
		t.Fatalf("snapshot mismatch: %+v != %+v", out, in)
	}
}

func TestAddressValueRequiresLineAndCity(t *testing.T) {
	if _, err := (Address{City: "Izmir"}).Value(); err == nil {
		t.Fatal("expected missing address line to fail")
	}
	if _, err := (Address{Address: "Kordon 1"}).Value(); err == nil {
		t.Fatal("expected missing city to fail")
	}
}

func TestAddressNormalizedDefaultsCountry(t *testing.T) {
	got := Address{Address: "  Kordon 1 ", City: " Izmir "}.Normalized()
	if got.Address != "Kordon 1" || got.City != "Izmir" {
		t.Fatalf("expected trimmed fields, got %+v", got)
	}
	if got.Country != "Turkey" {
		t.Fatalf("expected default country, got %q", got.Country)
	}
}

func TestAddressScanNil(t *testing.T) {
	addr := Address{City: "Ankara"}
	if err := addr.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) returned error: %v", err)
	}
	if !addr.IsZero() {
		t.Fatalf("expected zero address after Scan(nil), got %+v", addr)
	}
}
