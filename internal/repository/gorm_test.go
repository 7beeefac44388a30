package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shorturl/internal/cache"
	"shorturl/internal/config"
	customerrors "shorturl/internal/errors"
	"shorturl/internal/models"
	"shorturl/internal/repository"
)

var gormDBSeq int

func testConfig(driver, dsn string) *config.Config {
	cfg := &config.Config{}
	cfg.Cache.MaxSize = 100
	cfg.Cache.TTLMinutes = 5
	cfg.Storage.Driver = driver
	cfg.Storage.DSN = dsn
	return cfg
}

func newGormStore(t *testing.T) (*repository.GormStore, *models.MockClock) {
	t.Helper()
	clock := models.NewMockClock(time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))
	c := cache.New(100, 5*time.Minute, 0, clock)

	// Each test gets its own named in-memory database.
	gormDBSeq++
	dsn := fmt.Sprintf("file:gorm_test_%d?mode=memory&cache=shared", gormDBSeq)
	store, err := repository.NewGormStore(dsn, c, clock)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, clock
}

func TestGormStore_CreateFindRoundTrip(t *testing.T) {
	store, clock := newGormStore(t)
	u := mustCreate(t, store, clock, "abc123", time.Hour)

	found, err := store.FindByShortCode(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)
	assert.Equal(t, u.OriginalURL, found.OriginalURL)

	byID, err := store.FindByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "abc123", byID.ShortCode)
}

func TestGormStore_Create_Conflict(t *testing.T) {
	store, clock := newGormStore(t)
	mustCreate(t, store, clock, "abc123", time.Hour)

	now := clock.Now()
	dup, err := models.NewShortURL("https://other.example.com", "abc123", now, now.Add(time.Hour))
	require.NoError(t, err)

	err = store.Create(context.Background(), dup)
	assert.True(t, customerrors.IsConflict(err))
}

func TestGormStore_ExpiredLookupDeletes(t *testing.T) {
	store, clock := newGormStore(t)
	mustCreate(t, store, clock, "abc123", time.Minute)

	clock.Advance(2 * time.Minute)

	_, err := store.FindByShortCode(context.Background(), "abc123")
	assert.True(t, customerrors.IsExpired(err))

	_, err = store.FindByShortCode(context.Background(), "abc123")
	assert.True(t, customerrors.IsNotFound(err))
}

func TestGormStore_AddClickPersists(t *testing.T) {
	store, clock := newGormStore(t)
	mustCreate(t, store, clock, "abc123", time.Hour)

	meta := models.ClickMeta{IPAddress: "203.0.113.1", UserAgent: "curl/8.0"}
	click, err := store.AddClick(context.Background(), "abc123", meta, models.UnknownLocation)
	require.NoError(t, err)
	assert.NotEmpty(t, click.ID)

	clock.Advance(time.Second)
	_, err = store.AddClick(context.Background(), "abc123", meta, models.UnknownLocation)
	require.NoError(t, err)

	found, err := store.FindByShortCode(context.Background(), "abc123")
	require.NoError(t, err)
	require.Equal(t, 2, found.ClickCount())
	assert.Equal(t, click.ID, found.Clicks[0].ID)
}

func TestGormStore_CleanupAndStats(t *testing.T) {
	store, clock := newGormStore(t)
	mustCreate(t, store, clock, "live", time.Hour)
	mustCreate(t, store, clock, "dead", time.Minute)

	clock.Advance(5 * time.Minute)

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalURLs)
	assert.Equal(t, 1, stats.ActiveURLs)
	assert.Equal(t, 1, stats.ExpiredURLs)

	deleted, err := store.Cleanup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	deleted, err = store.Cleanup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
}

func TestNewStore_DriverSelection(t *testing.T) {
	clock := models.NewMockClock(time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))

	cfg := testConfig("memory", "")
	store, err := repository.NewStore(cfg, clock)
	require.NoError(t, err)
	_, ok := store.(*repository.MemoryStore)
	assert.True(t, ok)
	store.Close()

	cfg = testConfig("sqlite", "file:driver_select?mode=memory&cache=shared")
	store, err = repository.NewStore(cfg, clock)
	require.NoError(t, err)
	_, ok = store.(*repository.GormStore)
	assert.True(t, ok)
	store.Close()

	_, err = repository.NewStore(testConfig("cassandra", ""), clock)
	assert.Error(t, err)
}
