package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"shorturl/internal/cache"
	customerrors "shorturl/internal/errors"
	"shorturl/internal/models"
)

// GormStore implements Store on GORM over SQLite. The default DSN is an
// in-memory database, so the process still owns its data end to end; a file
// DSN is an operator opt-in. Expiry classification stays in Go so both
// stores behave identically.
type GormStore struct {
	mu    sync.Mutex
	db    *gorm.DB
	cache *cache.Cache
	clock models.Clock
}

// NewGormStore opens the database, applies migrations and returns the store.
func NewGormStore(dsn string, c *cache.Cache, clock models.Clock) (*GormStore, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying SQL database: %w", err)
	}
	// An in-memory SQLite database exists per connection; a single
	// connection keeps every operation on the same data.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.ShortURL{}, &models.Click{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &GormStore{db: db, cache: c, clock: clock}, nil
}

// Create inserts a new record after checking the short code is free.
func (s *GormStore) Create(ctx context.Context, u *models.ShortURL) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existing models.ShortURL
	err := s.db.WithContext(ctx).Where("short_code = ?", u.ShortCode).First(&existing).Error
	if err == nil {
		return customerrors.Conflictf("short code %q already exists", u.ShortCode)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check short code uniqueness: %w", err)
	}

	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return fmt.Errorf("failed to create short URL: %w", err)
	}
	s.cache.Set(u.ShortCode, u.Clone())
	return nil
}

// FindByShortCode resolves through the cache, deleting expired records in
// cascade like the memory store.
func (s *GormStore) FindByShortCode(ctx context.Context, code string) (*models.ShortURL, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.getByCodeLocked(ctx, code)
	if err != nil {
		return nil, err
	}
	return u.Clone(), nil
}

// FindByID resolves by id without consulting the cache.
func (s *GormStore) FindByID(ctx context.Context, id string) (*models.ShortURL, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var u models.ShortURL
	err := s.preloadClicks(ctx).Where("id = ?", id).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, customerrors.NotFoundf("short URL %q not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load short URL: %w", err)
	}
	if u.IsExpired(s.clock.Now()) {
		if err := s.removeLocked(ctx, &u); err != nil {
			return nil, err
		}
		return nil, customerrors.Expiredf("short URL %q has expired", id)
	}
	return &u, nil
}

// Update applies the patch, relocating the cache entry when the short code
// changes.
func (s *GormStore) Update(ctx context.Context, id string, params UpdateParams) (*models.ShortURL, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var u models.ShortURL
	err := s.preloadClicks(ctx).Where("id = ?", id).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, customerrors.NotFoundf("short URL %q not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load short URL: %w", err)
	}

	oldCode := u.ShortCode

	if params.ShortCode != nil && *params.ShortCode != u.ShortCode {
		newCode := *params.ShortCode
		if !models.ValidateShortCode(newCode) {
			return nil, customerrors.Validationf("invalid short code %q", newCode)
		}
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.ShortURL{}).Where("short_code = ?", newCode).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to check short code uniqueness: %w", err)
		}
		if count > 0 {
			return nil, customerrors.Conflictf("short code %q already exists", newCode)
		}
		u.ShortCode = newCode
	}

	if params.OriginalURL != nil {
		if !models.ValidateURL(*params.OriginalURL) {
			return nil, customerrors.Validationf("invalid URL %q", *params.OriginalURL)
		}
		u.OriginalURL = *params.OriginalURL
	}

	if err := s.db.WithContext(ctx).Model(&models.ShortURL{}).Where("id = ?", id).
		Updates(map[string]any{"short_code": u.ShortCode, "original_url": u.OriginalURL}).Error; err != nil {
		return nil, fmt.Errorf("failed to update short URL: %w", err)
	}

	if oldCode != u.ShortCode {
		s.cache.Delete(oldCode)
	}
	s.cache.Set(u.ShortCode, u.Clone())
	return &u, nil
}

// Delete removes the record and its clicks. Idempotent.
func (s *GormStore) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var u models.ShortURL
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load short URL: %w", err)
	}
	if err := s.removeLocked(ctx, &u); err != nil {
		return false, err
	}
	return true, nil
}

// AddClick appends a click to the record behind code and refreshes its
// cache entry.
func (s *GormStore) AddClick(ctx context.Context, code string, meta models.ClickMeta, loc models.Location) (*models.Click, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.getByCodeLocked(ctx, code)
	if err != nil {
		return nil, err
	}

	click := u.AddClick(meta, loc, s.clock.Now())
	if err := s.db.WithContext(ctx).Create(&click).Error; err != nil {
		return nil, fmt.Errorf("failed to create click: %w", err)
	}
	s.cache.Set(code, u.Clone())
	return &click, nil
}

// Stats scans all records, classifying them against the clock.
func (s *GormStore) Stats(ctx context.Context) (*Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var urls []models.ShortURL
	if err := s.db.WithContext(ctx).Find(&urls).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve short URLs: %w", err)
	}

	now := s.clock.Now()
	stats := &Stats{Cache: s.cache.Stats()}
	for i := range urls {
		stats.TotalURLs++
		if urls[i].IsExpired(now) {
			stats.ExpiredURLs++
		} else {
			stats.ActiveURLs++
		}
	}
	return stats, nil
}

// Cleanup deletes every expired record and returns the count.
func (s *GormStore) Cleanup(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var urls []models.ShortURL
	if err := s.db.WithContext(ctx).Find(&urls).Error; err != nil {
		return 0, fmt.Errorf("failed to retrieve short URLs: %w", err)
	}

	now := s.clock.Now()
	deleted := 0
	for i := range urls {
		if urls[i].IsExpired(now) {
			if err := s.removeLocked(ctx, &urls[i]); err != nil {
				return deleted, err
			}
			deleted++
		}
	}
	return deleted, nil
}

// Close stops the cache sweeper and closes the database.
func (s *GormStore) Close() error {
	s.cache.Close()
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// getByCodeLocked resolves code through cache then database, deleting an
// expired record in cascade. Caller holds the lock.
func (s *GormStore) getByCodeLocked(ctx context.Context, code string) (*models.ShortURL, error) {
	if cached, ok := s.cache.Get(code); ok {
		if cached.IsExpired(s.clock.Now()) {
			if err := s.removeLocked(ctx, cached); err != nil {
				return nil, err
			}
			return nil, customerrors.Expiredf("short code %q has expired", code)
		}
		return cached, nil
	}

	var u models.ShortURL
	err := s.preloadClicks(ctx).Where("short_code = ?", code).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, customerrors.NotFoundf("short code %q not found", code)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load short URL: %w", err)
	}
	if u.IsExpired(s.clock.Now()) {
		if err := s.removeLocked(ctx, &u); err != nil {
			return nil, err
		}
		return nil, customerrors.Expiredf("short code %q has expired", code)
	}

	s.cache.Set(code, u.Clone())
	return &u, nil
}

// removeLocked cascades the deletion: clicks, record, cache entry.
func (s *GormStore) removeLocked(ctx context.Context, u *models.ShortURL) error {
	if err := s.db.WithContext(ctx).Where("short_url_id = ?", u.ID).Delete(&models.Click{}).Error; err != nil {
		return fmt.Errorf("failed to delete clicks: %w", err)
	}
	if err := s.db.WithContext(ctx).Where("id = ?", u.ID).Delete(&models.ShortURL{}).Error; err != nil {
		return fmt.Errorf("failed to delete short URL: %w", err)
	}
	s.cache.Delete(u.ShortCode)
	return nil
}

// preloadClicks loads records with their click log in chronological order.
func (s *GormStore) preloadClicks(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Preload("Clicks", func(db *gorm.DB) *gorm.DB {
		return db.Order("timestamp ASC")
	})
}

var _ Store = (*GormStore)(nil)
