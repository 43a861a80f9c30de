package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Checker-Finance/commerce-adapters/pkg/model"
)

// ErrCatalogUnavailable is returned when no merchant catalog database is configured.
var ErrCatalogUnavailable = errors.New("merchant catalog database not configured")

const dedupKeyPrefix = "whatsapp:webhook:msg:"

// HybridStore keeps webhook message claims in Redis and reads the merchant
// catalog from Postgres. Either side may be absent.
type HybridStore struct {
	redis    *redis.Client
	PG       *pgxpool.Pool
	logger   *zap.Logger
	dedupTTL time.Duration
}

type PGPoolConfig struct {
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

// Options configures NewHybrid. Empty addresses disable that backend.
type Options struct {
	RedisAddr string
	RedisDB   int
	RedisPass string
	PGURL     string
	PGPool    PGPoolConfig
	DedupTTL  time.Duration
}

// NewHybrid connects to the configured backends.
func NewHybrid(ctx context.Context, opts Options, logger *zap.Logger) (*HybridStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.DedupTTL <= 0 {
		opts.DedupTTL = 24 * time.Hour
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	s := &HybridStore{logger: logger, dedupTTL: opts.DedupTTL}

	if opts.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     opts.RedisAddr,
			DB:       opts.RedisDB,
			Password: opts.RedisPass,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis ping failed: %w", err)
		}
		s.redis = rdb
	}

	if opts.PGURL != "" {
		cfg, err := pgxpool.ParseConfig(opts.PGURL)
		if err != nil {
			s.closeRedis()
			return nil, fmt.Errorf("invalid pg config: %w", err)
		}
		applyPoolConfig(cfg, opts.PGPool)
		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			s.closeRedis()
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		s.PG = pool
	}

	return s, nil
}

func applyPoolConfig(cfg *pgxpool.Config, p PGPoolConfig) {
	if p.MaxConns > 0 {
		cfg.MaxConns = p.MaxConns
	}
	if p.MinConns > 0 {
		cfg.MinConns = p.MinConns
	}
	if p.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = p.MaxConnLifetime
	}
	if p.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = p.MaxConnIdleTime
	}
	if p.HealthCheckPeriod > 0 {
		cfg.HealthCheckPeriod = p.HealthCheckPeriod
	}
}

// HasRedis reports whether message claims are persisted in Redis.
func (s *HybridStore) HasRedis() bool { return s != nil && s.redis != nil }

// HasCatalog reports whether the merchant catalog database is connected.
func (s *HybridStore) HasCatalog() bool { return s != nil && s.PG != nil }

// Claim marks a webhook message id as being handled. It returns false when
// the id was already claimed within the dedup TTL.
func (s *HybridStore) Claim(ctx context.Context, messageID string) (bool, error) {
	if s.redis == nil {
		return false, fmt.Errorf("redis not initialized")
	}
	ok, err := s.redis.SetNX(ctx, dedupKeyPrefix+messageID, time.Now().UTC().Format(time.RFC3339), s.dedupTTL).Result()
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", messageID, err)
	}
	return ok, nil
}

// Release drops a claim so a redelivery of the message is handled again.
func (s *HybridStore) Release(ctx context.Context, messageID string) error {
	if s.redis == nil {
		return fmt.Errorf("redis not initialized")
	}
	if err := s.redis.Del(ctx, dedupKeyPrefix+messageID).Err(); err != nil {
		s.logger.Warn("store.release_failed", zap.String("message_id", messageID), zap.Error(err))
		return err
	}
	return nil
}

// merchantRow mirrors commerce.merchant_products.
type merchantRow struct {
	RetailerID   string
	Name         string
	Description  *string
	Price        string
	Currency     *string
	ImageURL     *string
	Availability *string
	Category     *string
	URL          *string
}

// ListMerchantProducts returns the merchant's active products.
func (s *HybridStore) ListMerchantProducts(ctx context.Context) ([]model.Product, error) {
	if s.PG == nil {
		return nil, ErrCatalogUnavailable
	}
	rows, err := s.PG.Query(ctx, `
		SELECT retailer_id, name, description, price::text, currency,
		       image_url, availability, category, url
		FROM commerce.merchant_products
		WHERE active
		ORDER BY retailer_id;
	`)
	if err != nil {
		return nil, fmt.Errorf("query merchant products: %w", err)
	}
	defer rows.Close()

	var out []model.Product
	for rows.Next() {
		var r merchantRow
		if err := rows.Scan(&r.RetailerID, &r.Name, &r.Description, &r.Price, &r.Currency,
			&r.ImageURL, &r.Availability, &r.Category, &r.URL); err != nil {
			return nil, fmt.Errorf("scan merchant product: %w", err)
		}
		p, err := r.toProduct()
		if err != nil {
			s.logger.Warn("store.merchant_product_skipped",
				zap.String("retailer_id", r.RetailerID),
				zap.Error(err))
			continue
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate merchant products: %w", err)
	}
	return out, nil
}

func (r merchantRow) toProduct() (model.Product, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(r.Price))
	if err != nil {
		return model.Product{}, fmt.Errorf("invalid price %q: %w", r.Price, err)
	}
	if price.IsNegative() {
		return model.Product{}, fmt.Errorf("negative price %s", price)
	}

	availability := model.AvailabilityInStock
	if strings.EqualFold(deref(r.Availability), string(model.AvailabilityOutOfStock)) {
		availability = model.AvailabilityOutOfStock
	}
	currency := strings.ToUpper(deref(r.Currency))
	if currency == "" {
		currency = model.DefaultCurrency
	}

	return model.Product{
		ID:           strings.TrimSpace(r.RetailerID),
		Name:         r.Name,
		Description:  deref(r.Description),
		Price:        price,
		Currency:     currency,
		ImageURL:     deref(r.ImageURL),
		Availability: availability,
		Category:     deref(r.Category),
		URL:          deref(r.URL),
	}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// HealthCheck pings every configured backend.
func (s *HybridStore) HealthCheck(ctx context.Context) error {
	if s.redis == nil && s.PG == nil {
		return fmt.Errorf("store not initialized")
	}
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
	}
	if s.PG != nil {
		if err := s.PG.Ping(ctx); err != nil {
			return fmt.Errorf("postgres ping failed: %w", err)
		}
	}
	return nil
}

func (s *HybridStore) closeRedis() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
}

// Close releases every backend connection.
func (s *HybridStore) Close() error {
	if s.PG != nil {
		s.PG.Close()
	}
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}
