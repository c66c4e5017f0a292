package checkout

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	pkgerrors "github.com/csdakkoni/ecommerce-sub000/pkg/errors"
)

const (
	idempotencyScope   = "checkout"
	pendingMarker      = "pending"
	defaultIdempotency = 24 * time.Hour
)

// KeyStore is the subset of the redis client the guard needs.
type KeyStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// Guard reserves a client idempotency key before an order is written and
// binds it to the order afterwards.
type Guard struct {
	store KeyStore
	ttl   time.Duration
}

func NewGuard(store KeyStore, ttl time.Duration) (*Guard, error) {
	if store == nil {
		return nil, errors.New("idempotency key store required")
	}
	if ttl <= 0 {
		ttl = defaultIdempotency
	}
	return &Guard{store: store, ttl: ttl}, nil
}

// Reserve claims key. A key that is already claimed yields an
// IDEMPOTENCY_KEY_REUSED error carrying the bound order id once known.
func (g *Guard) Reserve(ctx context.Context, key string) error {
	storeKey := g.store.IdempotencyKey(idempotencyScope, key)
	ok, err := g.store.SetNX(ctx, storeKey, pendingMarker, g.ttl)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve idempotency key")
	}
	if ok {
		return nil
	}

	conflict := pkgerrors.New(pkgerrors.CodeIdempotency, "a checkout with this idempotency key was already submitted")
	bound, err := g.store.Get(ctx, storeKey)
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read idempotency key")
	default:
		if id, parseErr := uuid.Parse(strings.TrimSpace(bound)); parseErr == nil {
			conflict = conflict.WithOrderID(id.String())
		}
	}
	return conflict
}

// Bind records the order created under key.
func (g *Guard) Bind(ctx context.Context, key string, orderID uuid.UUID) error {
	if err := g.store.Set(ctx, g.store.IdempotencyKey(idempotencyScope, key), orderID.String(), g.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bind idempotency key")
	}
	return nil
}

// Release frees key when no order was written under it.
func (g *Guard) Release(ctx context.Context, key string) error {
	if err := g.store.Del(ctx, g.store.IdempotencyKey(idempotencyScope, key)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release idempotency key")
	}
	return nil
}
