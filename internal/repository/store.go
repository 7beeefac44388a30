// Package repository holds the authoritative short URL stores. The memory
// store is the default: primary map, unique short code index and a bounded
// TTL cache it manages itself. A GORM/SQLite store implements the same
// contract for operators that want it.
package repository

import (
	"context"
	"fmt"

	"shorturl/internal/cache"
	"shorturl/internal/config"
	"shorturl/internal/models"
)

// UpdateParams is the patch applied by Update. Nil fields are left untouched.
// CreatedAt and ExpiresAt are immutable and deliberately absent.
type UpdateParams struct {
	OriginalURL *string
	ShortCode   *string
}

// Stats aggregates store-wide counts. Active/expired are classified by
// scanning the live record set against the clock, never by a stored flag.
type Stats struct {
	TotalURLs   int         `json:"total_urls"`
	ActiveURLs  int         `json:"active_urls"`
	ExpiredURLs int         `json:"expired_urls"`
	Cache       cache.Stats `json:"cache"`
}

// Store is the contract every short URL store implements. Lookups never
// return expired records: discovering one deletes it and yields a
// KindExpired error; a later lookup of the same code yields KindNotFound.
type Store interface {
	// Create inserts a new record. Fails with KindConflict when the short
	// code is already indexed.
	Create(ctx context.Context, u *models.ShortURL) error

	// FindByShortCode resolves a record through the cache. The returned
	// record is a snapshot the caller may keep.
	FindByShortCode(ctx context.Context, code string) (*models.ShortURL, error)

	// FindByID resolves a record by id, bypassing the cache (the cache is
	// keyed by short code only).
	FindByID(ctx context.Context, id string) (*models.ShortURL, error)

	// Update applies the patch. When the short code changes, the index and
	// cache entries relocate atomically: old and new key are never both live.
	Update(ctx context.Context, id string, params UpdateParams) (*models.ShortURL, error)

	// Delete removes the record from map, index and cache. Idempotent:
	// reports false when the record was already gone, never errors for that.
	Delete(ctx context.Context, id string) (bool, error)

	// AddClick resolves the record with FindByShortCode semantics (expired
	// codes fail), appends the click and refreshes the cache entry.
	AddClick(ctx context.Context, code string, meta models.ClickMeta, loc models.Location) (*models.Click, error)

	// Stats scans the record set for the aggregate counts.
	Stats(ctx context.Context) (*Stats, error)

	// Cleanup deletes every expired record and returns the count. Safe to
	// call concurrently with reads.
	Cleanup(ctx context.Context) (int, error)

	// Close releases the store and stops its cache sweeper.
	Close() error
}

// NewStore builds the store selected by the configuration, wiring the
// bounded TTL cache from the same config.
func NewStore(cfg *config.Config, clock models.Clock) (Store, error) {
	c := cache.New(cfg.Cache.MaxSize, cfg.CacheTTL(), cfg.CacheSweepInterval(), clock)

	switch cfg.Storage.Driver {
	case "memory", "":
		return NewMemoryStore(c, clock), nil
	case "sqlite":
		return NewGormStore(cfg.Storage.DSN, c, clock)
	default:
		c.Close()
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
