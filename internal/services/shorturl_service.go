// Package services contains the business rules on top of the repository.
package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"time"

	customerrors "shorturl/internal/errors"
	"shorturl/internal/geoip"
	"shorturl/internal/models"
	"shorturl/internal/repository"
)

// charset is the alphabet short codes are drawn from: 62 alphanumeric
// characters, so a 6-character code has ~56 billion combinations.
const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// maxGenerateAttempts bounds the collision retry loop. Random codes are NOT
// guaranteed unique; every draw is checked against the store.
const maxGenerateAttempts = 10

// ShortURLService owns short code generation, expiry calculation, click
// recording and aggregated stats.
type ShortURLService struct {
	store           repository.Store
	geo             geoip.Resolver
	clock           models.Clock
	codeLength      int
	maxCodeLength   int
	defaultValidity time.Duration

	// events receives a copy of every recorded click for the analytics
	// forwarder. Sends never block: a full buffer drops the event.
	events chan<- models.ClickEvent

	// draw is swapped in tests to force collisions.
	draw func(length int) (string, error)
}

// NewShortURLService wires the service. geo may be nil, in which case every
// click is recorded with the Unknown location.
func NewShortURLService(store repository.Store, geo geoip.Resolver, clock models.Clock,
	codeLength, maxCodeLength int, defaultValidity time.Duration) *ShortURLService {
	return &ShortURLService{
		store:           store,
		geo:             geo,
		clock:           clock,
		codeLength:      codeLength,
		maxCodeLength:   maxCodeLength,
		defaultValidity: defaultValidity,
		draw:            randomCode,
	}
}

// AttachClickEvents points the service at the analytics channel.
func (s *ShortURLService) AttachClickEvents(ch chan<- models.ClickEvent) {
	s.events = ch
}

// CreateParams is a validated creation request.
type CreateParams struct {
	URL             string
	ValidityMinutes int    // 0 means the configured default
	ShortCode       string // empty means auto-generate
}

// CreateShortURL validates the request, settles the short code and expiry,
// and delegates to the store.
func (s *ShortURLService) CreateShortURL(ctx context.Context, p CreateParams) (*models.ShortURL, error) {
	if !models.ValidateURL(p.URL) {
		return nil, customerrors.Validationf("invalid URL %q: must be an absolute URL", p.URL)
	}

	validity := s.defaultValidity
	if p.ValidityMinutes < 0 {
		return nil, customerrors.Validationf("validity must be a positive number of minutes")
	}
	if p.ValidityMinutes > 0 {
		validity = time.Duration(p.ValidityMinutes) * time.Minute
	}

	code := p.ShortCode
	if code != "" {
		if !models.ValidateShortCode(code) || len(code) > s.maxCodeLength {
			return nil, customerrors.Validationf("invalid short code %q: alphanumeric, '_' or '-', at most %d characters", code, s.maxCodeLength)
		}
	} else {
		generated, err := s.GenerateUniqueShortCode(ctx)
		if err != nil {
			return nil, err
		}
		code = generated
	}

	now := s.clock.Now()
	u, err := models.NewShortURL(p.URL, code, now, now.Add(validity))
	if err != nil {
		return nil, err
	}

	// The store enforces uniqueness; a racing creation of the same custom
	// code surfaces here as a conflict.
	if err := s.store.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// GenerateUniqueShortCode draws random codes until one is free, giving up
// after maxGenerateAttempts collisions.
func (s *ShortURLService) GenerateUniqueShortCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		code, err := s.draw(s.codeLength)
		if err != nil {
			return "", fmt.Errorf("failed to generate short code: %w", err)
		}

		_, err = s.store.FindByShortCode(ctx, code)
		if err == nil {
			log.Printf("Short code %q already exists, retrying generation (%d/%d)...", code, attempt+1, maxGenerateAttempts)
			continue
		}
		// Not found means the code is free; expired means the lookup just
		// deleted the stale holder, so the code is free too.
		if customerrors.IsNotFound(err) || customerrors.IsExpired(err) {
			return code, nil
		}
		return "", err
	}
	return "", customerrors.Exhaustedf("failed to generate a unique short code after %d attempts", maxGenerateAttempts)
}

// RedirectToOriginalURL resolves code, records the click with its resolved
// location and returns the original URL. Geo failures never fail the
// redirect, and the lookup runs before any store call so no lock is held
// while it is in flight.
func (s *ShortURLService) RedirectToOriginalURL(ctx context.Context, code string, meta models.ClickMeta) (string, error) {
	u, err := s.store.FindByShortCode(ctx, code)
	if err != nil {
		return "", err
	}

	loc := models.UnknownLocation
	if s.geo != nil {
		loc = s.geo.Resolve(ctx, meta.IPAddress)
	}

	click, err := s.store.AddClick(ctx, code, meta, loc)
	if err != nil {
		return "", err
	}

	s.publishClick(code, *click)
	return u.OriginalURL, nil
}

// ShortURLStats is the snapshot DTO returned for a short code.
type ShortURLStats struct {
	ShortCode          string         `json:"short_code"`
	OriginalURL        string         `json:"original_url"`
	CreatedAt          time.Time      `json:"created_at"`
	ExpiresAt          time.Time      `json:"expires_at"`
	MinutesUntilExpiry *float64       `json:"minutes_until_expiry,omitempty"`
	TotalClicks        int            `json:"total_clicks"`
	Clicks             []models.Click `json:"clicks"`
}

// GetShortURLStats returns the full click history snapshot for code, with
// the same existence and expiry checks as a redirect.
func (s *ShortURLService) GetShortURLStats(ctx context.Context, code string) (*ShortURLStats, error) {
	u, err := s.store.FindByShortCode(ctx, code)
	if err != nil {
		return nil, err
	}

	stats := &ShortURLStats{
		ShortCode:   u.ShortCode,
		OriginalURL: u.OriginalURL,
		CreatedAt:   u.CreatedAt,
		ExpiresAt:   u.ExpiresAt,
		TotalClicks: u.ClickCount(),
		Clicks:      u.Clicks,
	}
	if minutes, ok := u.TimeUntilExpiry(s.clock.Now()); ok {
		stats.MinutesUntilExpiry = &minutes
	}
	return stats, nil
}

// CleanupExpiredURLs removes every expired record and returns the count.
func (s *ShortURLService) CleanupExpiredURLs(ctx context.Context) (int, error) {
	return s.store.Cleanup(ctx)
}

// GetServiceStats merges repository counts with cache utilization.
func (s *ShortURLService) GetServiceStats(ctx context.Context) (*repository.Stats, error) {
	return s.store.Stats(ctx)
}

// publishClick hands the click to the analytics channel without blocking.
// A full buffer drops the event: forwarding is best-effort, redirects are not.
func (s *ShortURLService) publishClick(code string, click models.Click) {
	if s.events == nil {
		return
	}
	select {
	case s.events <- models.ClickEvent{ShortCode: code, Click: click}:
	default:
		log.Printf("WARNING: click events channel is full, dropping event for %s", code)
	}
}

// randomCode draws a code of the given length from charset using crypto/rand.
func randomCode(length int) (string, error) {
	code := make([]byte, length)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %w", err)
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}
