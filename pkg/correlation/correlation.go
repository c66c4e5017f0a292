// Package correlation issues the conversation identifiers that tie a gateway
// callback back to the locally created order.
package correlation

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator produces correlation identifiers.
type Generator interface {
	NewID() string
}

// GeneratorFunc adapts a plain function to Generator.
type GeneratorFunc func() string

func (f GeneratorFunc) NewID() string { return f() }

type ulidGenerator struct {
	mu      sync.Mutex
	now     func() time.Time
	entropy io.Reader
}

// NewGenerator returns a ULID-backed generator: a millisecond timestamp prefix
// followed by a monotonic random suffix, so ids sort by creation time.
func NewGenerator() Generator {
	return GeneratorFunc(func() string { return ulid.Make().String() })
}

// NewGeneratorWith is NewGenerator with an explicit clock and entropy source.
func NewGeneratorWith(now func() time.Time, entropy io.Reader) Generator {
	if now == nil {
		now = time.Now
	}
	return &ulidGenerator{
		now:     now,
		entropy: ulid.Monotonic(entropy, 0),
	}
}

func (g *ulidGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(g.now()), g.entropy).String()
}

// IssuedAt extracts the timestamp prefix of an id issued by this package.
func IssuedAt(id string) (time.Time, error) {
	parsed, err := ulid.ParseStrict(strings.TrimSpace(id))
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing correlation id %q: %w", id, err)
	}
	return ulid.Time(parsed.Time()), nil
}
