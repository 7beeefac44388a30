package repository

import (
	"context"
	"sync"

	"shorturl/internal/cache"
	customerrors "shorturl/internal/errors"
	"shorturl/internal/models"
)

// MemoryStore is the in-process authoritative store: a primary map keyed by
// id, a unique short code index, and the read-through cache it owns. A single
// mutex guards each logical operation so the map/index/cache triple always
// agrees.
type MemoryStore struct {
	mu        sync.Mutex
	byID      map[string]*models.ShortURL
	codeIndex map[string]string // short code → record id
	cache     *cache.Cache
	clock     models.Clock
}

// NewMemoryStore creates an empty store owning the given cache.
func NewMemoryStore(c *cache.Cache, clock models.Clock) *MemoryStore {
	return &MemoryStore{
		byID:      make(map[string]*models.ShortURL),
		codeIndex: make(map[string]string),
		cache:     c,
		clock:     clock,
	}
}

// Create inserts the record into the primary map, the index and the cache.
func (s *MemoryStore) Create(ctx context.Context, u *models.ShortURL) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.codeIndex[u.ShortCode]; taken {
		return customerrors.Conflictf("short code %q already exists", u.ShortCode)
	}

	stored := u.Clone()
	s.byID[stored.ID] = stored
	s.codeIndex[stored.ShortCode] = stored.ID
	s.cache.Set(stored.ShortCode, stored)
	return nil
}

// FindByShortCode resolves code via the cache, falling back to index and
// primary map. An expired record found on either path is deleted in cascade
// and reported as KindExpired.
func (s *MemoryStore) FindByShortCode(ctx context.Context, code string) (*models.ShortURL, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.lookupLocked(code)
	if err != nil {
		return nil, err
	}
	return u.Clone(), nil
}

// FindByID resolves by id with the same expiry-triggers-delete behavior,
// without consulting the cache.
func (s *MemoryStore) FindByID(ctx context.Context, id string) (*models.ShortURL, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, customerrors.NotFoundf("short URL %q not found", id)
	}
	if u.IsExpired(s.clock.Now()) {
		s.removeLocked(u)
		return nil, customerrors.Expiredf("short URL %q has expired", id)
	}
	return u.Clone(), nil
}

// Update applies the patch, relocating index and cache entries atomically
// when the short code changes.
func (s *MemoryStore) Update(ctx context.Context, id string, params UpdateParams) (*models.ShortURL, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, customerrors.NotFoundf("short URL %q not found", id)
	}

	if params.ShortCode != nil && *params.ShortCode != u.ShortCode {
		newCode := *params.ShortCode
		if !models.ValidateShortCode(newCode) {
			return nil, customerrors.Validationf("invalid short code %q", newCode)
		}
		if _, taken := s.codeIndex[newCode]; taken {
			return nil, customerrors.Conflictf("short code %q already exists", newCode)
		}
		// Relocate under the same lock so the old and new key are never
		// both live.
		delete(s.codeIndex, u.ShortCode)
		s.cache.Delete(u.ShortCode)
		u.ShortCode = newCode
		s.codeIndex[newCode] = u.ID
		s.cache.Set(newCode, u)
	}

	if params.OriginalURL != nil {
		if !models.ValidateURL(*params.OriginalURL) {
			return nil, customerrors.Validationf("invalid URL %q", *params.OriginalURL)
		}
		u.OriginalURL = *params.OriginalURL
		s.cache.Set(u.ShortCode, u)
	}

	return u.Clone(), nil
}

// Delete removes the record from map, index and cache. Reports whether a
// record was present.
func (s *MemoryStore) Delete(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return false, nil
	}
	s.removeLocked(u)
	return true, nil
}

// AddClick appends a click to the record behind code and refreshes its
// cache entry. Expired codes fail the same way lookups do.
func (s *MemoryStore) AddClick(ctx context.Context, code string, meta models.ClickMeta, loc models.Location) (*models.Click, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.lookupLocked(code)
	if err != nil {
		return nil, err
	}

	click := u.AddClick(meta, loc, s.clock.Now())
	s.cache.Set(code, u)
	return &click, nil
}

// Stats scans the primary map, classifying records against the clock.
func (s *MemoryStore) Stats(ctx context.Context) (*Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	stats := &Stats{Cache: s.cache.Stats()}
	for _, u := range s.byID {
		stats.TotalURLs++
		if u.IsExpired(now) {
			stats.ExpiredURLs++
		} else {
			stats.ActiveURLs++
		}
	}
	return stats, nil
}

// Cleanup deletes every expired record and returns the count. Runs under the
// store lock, so no reader ever observes a record mid-deletion.
func (s *MemoryStore) Cleanup(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	deleted := 0
	for _, u := range s.byID {
		if u.IsExpired(now) {
			s.removeLocked(u)
			deleted++
		}
	}
	return deleted, nil
}

// Close stops the cache sweeper.
func (s *MemoryStore) Close() error {
	s.cache.Close()
	return nil
}

// lookupLocked resolves code through cache, index and primary map, deleting
// an expired record in cascade. Caller holds the lock. The returned record
// is the stored one; callers hand out clones.
func (s *MemoryStore) lookupLocked(code string) (*models.ShortURL, error) {
	if u, ok := s.cache.Get(code); ok {
		if u.IsExpired(s.clock.Now()) {
			s.removeLocked(u)
			return nil, customerrors.Expiredf("short code %q has expired", code)
		}
		return u, nil
	}

	id, ok := s.codeIndex[code]
	if !ok {
		return nil, customerrors.NotFoundf("short code %q not found", code)
	}
	u := s.byID[id]
	if u.IsExpired(s.clock.Now()) {
		s.removeLocked(u)
		return nil, customerrors.Expiredf("short code %q has expired", code)
	}

	// Repopulate the cache on a miss.
	s.cache.Set(code, u)
	return u, nil
}

// removeLocked cascades the deletion across map, index and cache. Caller
// holds the lock.
func (s *MemoryStore) removeLocked(u *models.ShortURL) {
	delete(s.byID, u.ID)
	delete(s.codeIndex, u.ShortCode)
	s.cache.Delete(u.ShortCode)
}

var _ Store = (*MemoryStore)(nil)
