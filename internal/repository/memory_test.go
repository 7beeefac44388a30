package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shorturl/internal/cache"
	customerrors "shorturl/internal/errors"
	"shorturl/internal/models"
	"shorturl/internal/repository"
)

func newMemoryStore(t *testing.T) (*repository.MemoryStore, *models.MockClock) {
	t.Helper()
	clock := models.NewMockClock(time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))
	c := cache.New(100, 5*time.Minute, 0, clock)
	store := repository.NewMemoryStore(c, clock)
	t.Cleanup(func() { store.Close() })
	return store, clock
}

func mustCreate(t *testing.T, store repository.Store, clock *models.MockClock, code string, validity time.Duration) *models.ShortURL {
	t.Helper()
	now := clock.Now()
	u, err := models.NewShortURL("https://example.com/"+code, code, now, now.Add(validity))
	require.NoError(t, err)
	require.NoError(t, store.Create(context.Background(), u))
	return u
}

func TestMemoryStore_CreateAndFind(t *testing.T) {
	store, clock := newMemoryStore(t)
	u := mustCreate(t, store, clock, "abc123", time.Hour)

	found, err := store.FindByShortCode(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)
	assert.Equal(t, "https://example.com/abc123", found.OriginalURL)

	byID, err := store.FindByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "abc123", byID.ShortCode)
}

func TestMemoryStore_Create_Conflict(t *testing.T) {
	store, clock := newMemoryStore(t)
	mustCreate(t, store, clock, "abc123", time.Hour)

	now := clock.Now()
	dup, err := models.NewShortURL("https://other.example.com", "abc123", now, now.Add(time.Hour))
	require.NoError(t, err)

	err = store.Create(context.Background(), dup)
	require.Error(t, err)
	assert.True(t, customerrors.IsConflict(err))
}

func TestMemoryStore_Find_NotFound(t *testing.T) {
	store, _ := newMemoryStore(t)

	_, err := store.FindByShortCode(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, customerrors.IsNotFound(err))

	_, err = store.FindByID(context.Background(), "no-such-id")
	require.Error(t, err)
	assert.True(t, customerrors.IsNotFound(err))
}

func TestMemoryStore_Find_ExpiredDeletesRecord(t *testing.T) {
	store, clock := newMemoryStore(t)
	mustCreate(t, store, clock, "abc123", time.Minute)

	clock.Advance(2 * time.Minute)

	// First lookup discovers the expiry and deletes in cascade.
	_, err := store.FindByShortCode(context.Background(), "abc123")
	require.Error(t, err)
	assert.True(t, customerrors.IsExpired(err))

	// The record is gone from every structure: now it is just not found.
	_, err = store.FindByShortCode(context.Background(), "abc123")
	require.Error(t, err)
	assert.True(t, customerrors.IsNotFound(err))

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalURLs)
	assert.Equal(t, 0, stats.Cache.Size)
}

func TestMemoryStore_FindByID_ExpiredDeletesRecord(t *testing.T) {
	store, clock := newMemoryStore(t)
	u := mustCreate(t, store, clock, "abc123", time.Minute)

	clock.Advance(2 * time.Minute)

	_, err := store.FindByID(context.Background(), u.ID)
	require.Error(t, err)
	assert.True(t, customerrors.IsExpired(err))

	_, err = store.FindByID(context.Background(), u.ID)
	assert.True(t, customerrors.IsNotFound(err))
}

func TestMemoryStore_Update_RelocatesShortCode(t *testing.T) {
	store, clock := newMemoryStore(t)
	u := mustCreate(t, store, clock, "oldcode", time.Hour)

	newCode := "newcode"
	updated, err := store.Update(context.Background(), u.ID, repository.UpdateParams{ShortCode: &newCode})
	require.NoError(t, err)
	assert.Equal(t, "newcode", updated.ShortCode)

	// Old key fully gone, new key live.
	_, err = store.FindByShortCode(context.Background(), "oldcode")
	assert.True(t, customerrors.IsNotFound(err))

	found, err := store.FindByShortCode(context.Background(), "newcode")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)
}

func TestMemoryStore_Update_ShortCodeConflict(t *testing.T) {
	store, clock := newMemoryStore(t)
	u := mustCreate(t, store, clock, "first", time.Hour)
	mustCreate(t, store, clock, "second", time.Hour)

	taken := "second"
	_, err := store.Update(context.Background(), u.ID, repository.UpdateParams{ShortCode: &taken})
	require.Error(t, err)
	assert.True(t, customerrors.IsConflict(err))

	// The failed update left the original key intact.
	found, err := store.FindByShortCode(context.Background(), "first")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)
}

func TestMemoryStore_Update_NotFound(t *testing.T) {
	store, _ := newMemoryStore(t)

	url := "https://changed.example.com"
	_, err := store.Update(context.Background(), "no-such-id", repository.UpdateParams{OriginalURL: &url})
	assert.True(t, customerrors.IsNotFound(err))
}

func TestMemoryStore_Delete_Idempotent(t *testing.T) {
	store, clock := newMemoryStore(t)
	u := mustCreate(t, store, clock, "abc123", time.Hour)

	deleted, err := store.Delete(context.Background(), u.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = store.Delete(context.Background(), u.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = store.FindByShortCode(context.Background(), "abc123")
	assert.True(t, customerrors.IsNotFound(err))
}

func TestMemoryStore_AddClick(t *testing.T) {
	store, clock := newMemoryStore(t)
	mustCreate(t, store, clock, "abc123", time.Hour)

	meta := models.ClickMeta{IPAddress: "203.0.113.1", UserAgent: "curl/8.0", Referer: "https://ref.example.com"}
	loc := models.Location{Country: "France", Region: "IDF", City: "Paris"}

	click, err := store.AddClick(context.Background(), "abc123", meta, loc)
	require.NoError(t, err)
	assert.NotEmpty(t, click.ID)
	assert.Equal(t, "France", click.Location.Country)

	found, err := store.FindByShortCode(context.Background(), "abc123")
	require.NoError(t, err)
	require.Equal(t, 1, found.ClickCount())
	assert.Equal(t, click.ID, found.Clicks[0].ID)
}

func TestMemoryStore_AddClick_ExpiredCode(t *testing.T) {
	store, clock := newMemoryStore(t)
	mustCreate(t, store, clock, "abc123", time.Minute)

	clock.Advance(2 * time.Minute)

	_, err := store.AddClick(context.Background(), "abc123", models.ClickMeta{}, models.UnknownLocation)
	require.Error(t, err)
	assert.True(t, customerrors.IsExpired(err))
}

func TestMemoryStore_Stats(t *testing.T) {
	store, clock := newMemoryStore(t)
	mustCreate(t, store, clock, "live1", time.Hour)
	mustCreate(t, store, clock, "live2", time.Hour)
	mustCreate(t, store, clock, "dying", time.Minute)

	clock.Advance(5 * time.Minute)

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalURLs)
	assert.Equal(t, 2, stats.ActiveURLs)
	assert.Equal(t, 1, stats.ExpiredURLs)
	assert.Equal(t, 100, stats.Cache.MaxSize)
}

func TestMemoryStore_Cleanup(t *testing.T) {
	store, clock := newMemoryStore(t)
	mustCreate(t, store, clock, "live", time.Hour)
	mustCreate(t, store, clock, "dead1", time.Minute)
	mustCreate(t, store, clock, "dead2", time.Minute)

	clock.Advance(5 * time.Minute)

	deleted, err := store.Cleanup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	// Idempotent: nothing new expired, nothing removed.
	deleted, err = store.Cleanup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)

	_, err = store.FindByShortCode(context.Background(), "live")
	assert.NoError(t, err)
}

func TestMemoryStore_ConcurrentCreate_SameCode(t *testing.T) {
	store, clock := newMemoryStore(t)
	now := clock.Now()

	const racers = 16
	var wg sync.WaitGroup
	errs := make([]error, racers)

	for i := 0; i < racers; i++ {
		u, err := models.NewShortURL("https://example.com", "contested", now, now.Add(time.Hour))
		require.NoError(t, err)
		wg.Add(1)
		go func(i int, u *models.ShortURL) {
			defer wg.Done()
			errs[i] = store.Create(context.Background(), u)
		}(i, u)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, customerrors.IsConflict(err))
		}
	}
	assert.Equal(t, 1, succeeded)
}

func TestMemoryStore_ContextCancelled(t *testing.T) {
	store, _ := newMemoryStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.FindByShortCode(ctx, "abc123")
	assert.ErrorIs(t, err, context.Canceled)
}
