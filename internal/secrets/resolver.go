package secrets

import (
	"context"
	"fmt"
	"strings"

	pkgsecrets "github.com/Checker-Finance/commerce-adapters/pkg/secrets"
	"go.uber.org/zap"
)

// Resolver loads a single named secret from a Provider and parses it into T,
// caching the parsed value locally to reduce API calls. Rotation is picked
// up once the cache TTL elapses or Bust is called.
//
// Secret naming convention: {env}/{name}
type Resolver[T any] struct {
	logger   *zap.Logger
	env      string
	name     string
	provider pkgsecrets.Provider
	cache    *pkgsecrets.Cache[T]
	parse    func(map[string]string) (T, error)
}

// NewResolver constructs a resolver for one secret.
// parse extracts T from the raw secret map; it should validate required fields.
func NewResolver[T any](
	logger *zap.Logger,
	env string,
	name string,
	provider pkgsecrets.Provider,
	cache *pkgsecrets.Cache[T],
	parse func(map[string]string) (T, error),
) *Resolver[T] {
	return &Resolver[T]{
		logger:   logger,
		env:      env,
		name:     name,
		provider: provider,
		cache:    cache,
		parse:    parse,
	}
}

// SecretName returns the fully qualified secret id.
func (r *Resolver[T]) SecretName() string {
	if r.env == "" {
		return r.name
	}
	return strings.ToLower(r.env) + "/" + r.name
}

// Resolve returns the cached value or fetches and parses the secret.
func (r *Resolver[T]) Resolve(ctx context.Context) (T, error) {
	key := r.SecretName()

	if v, ok := r.cache.Get(key); ok {
		return v, nil
	}

	raw, err := r.provider.GetSecret(ctx, key)
	if err != nil {
		r.logger.Warn("secrets.fetch_failed",
			zap.String("key", key),
			zap.Error(err))
		var zero T
		return zero, fmt.Errorf("resolve secret %q: %w", key, err)
	}

	v, err := r.parse(raw)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("parse secret %q: %w", key, err)
	}

	r.cache.Put(key, v)
	r.logger.Info("secrets.resolved", zap.String("key", key))
	return v, nil
}

// Bust drops the cached value so the next Resolve refetches it.
func (r *Resolver[T]) Bust() {
	r.cache.Bust(r.SecretName())
}
