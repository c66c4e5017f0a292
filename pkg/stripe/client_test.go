package stripe

import (
	"context"
	"testing"

	"github.com/stripe/stripe-go/v84"

	"github.com/csdakkoni/ecommerce-sub000/pkg/config"
)

func TestNormalizeEnv(t *testing.T) {
	cases := map[string]string{"": testEnv, " LIVE ": liveEnv, "test": testEnv}
	for in, want := range cases {
		got, err := normalizeEnv(in)
		if err != nil || got != want {
			t.Fatalf("normalizeEnv(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := normalizeEnv("staging"); err == nil {
		t.Fatal("expected unknown env to fail")
	}
}

func TestValidateAPIKey(t *testing.T) {
	if err := validateAPIKey(testEnv, "sk_test_123"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := validateAPIKey(testEnv, "sk_live_123"); err == nil {
		t.Fatal("expected live key to be rejected in test env")
	}
	if err := validateAPIKey(liveEnv, "rk_live_123"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(context.Background(), config.StripeConfig{Env: "test"}, nil); err == nil {
		t.Fatal("expected missing key to fail")
	}
	c, err := NewClient(context.Background(), config.StripeConfig{Env: "test", APIKey: "sk_test_abc"}, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if c.Environment() != testEnv {
		t.Fatalf("unexpected env %q", c.Environment())
	}
}

func TestNewClientLeavesGlobalKeyAlone(t *testing.T) {
	before := stripe.Key
	c, err := NewClient(context.Background(), config.StripeConfig{Env: "live", APIKey: "sk_live_xyz"}, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if stripe.Key != before {
		t.Fatal("package-level stripe key must not be modified")
	}
	if c.sessions.Key != "sk_live_xyz" {
		t.Fatalf("session client key not set")
	}
}
