package models

import (
	"net/url"
	"regexp"
	"time"

	"github.com/google/uuid"

	customerrors "shorturl/internal/errors"
)

// MaxShortCodeLength bounds short codes regardless of the configured
// generation length.
const MaxShortCodeLength = 20

var shortCodePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ShortURL represents a shortened URL record. The repository exclusively owns
// its storage location; the cache holds a non-owning reference.
type ShortURL struct {
	// ID is assigned at creation and never changes.
	ID string `gorm:"primaryKey;size:36" json:"id"`

	// OriginalURL is the absolute URL the short code redirects to.
	OriginalURL string `gorm:"not null" json:"original_url"`

	// ShortCode is unique across all live records.
	ShortCode string `gorm:"uniqueIndex;size:20;not null" json:"short_code"`

	// CreatedAt is set at creation and never changes.
	CreatedAt time.Time `json:"created_at"`

	// ExpiresAt is computed once at creation. The zero value means the
	// record never expires.
	ExpiresAt time.Time `json:"expires_at"`

	// Clicks is the append-only click log, in chronological order.
	// Its length is the authoritative click count; no separate counter
	// is kept, so the two can never drift.
	Clicks []Click `gorm:"foreignKey:ShortURLID" json:"clicks"`
}

// NewShortURL constructs a record. Both the original URL and the short code
// are required.
func NewShortURL(originalURL, shortCode string, createdAt, expiresAt time.Time) (*ShortURL, error) {
	if originalURL == "" {
		return nil, customerrors.Validationf("original URL is required")
	}
	if shortCode == "" {
		return nil, customerrors.Validationf("short code is required")
	}
	return &ShortURL{
		ID:          uuid.NewString(),
		OriginalURL: originalURL,
		ShortCode:   shortCode,
		CreatedAt:   createdAt,
		ExpiresAt:   expiresAt,
	}, nil
}

// AddClick appends a click event with a fresh id and the given timestamp,
// mutating the record in place, and returns the event.
func (u *ShortURL) AddClick(meta ClickMeta, loc Location, now time.Time) Click {
	click := NewClick(u.ID, meta, loc, now)
	u.Clicks = append(u.Clicks, click)
	return click
}

// IsExpired reports whether the record is past its expiry at the given time.
// Records without an expiry never expire.
func (u *ShortURL) IsExpired(now time.Time) bool {
	if u.ExpiresAt.IsZero() {
		return false
	}
	return now.After(u.ExpiresAt)
}

// ClickCount returns the number of recorded clicks.
func (u *ShortURL) ClickCount() int {
	return len(u.Clicks)
}

// TimeUntilExpiry returns the minutes remaining before expiry, negative when
// already past it. ok is false when the record has no expiry.
func (u *ShortURL) TimeUntilExpiry(now time.Time) (minutes float64, ok bool) {
	if u.ExpiresAt.IsZero() {
		return 0, false
	}
	return u.ExpiresAt.Sub(now).Minutes(), true
}

// Clone creates a deep copy of the record, including the click log, so
// readers never observe in-place mutations made under the store lock.
func (u *ShortURL) Clone() *ShortURL {
	clicks := make([]Click, len(u.Clicks))
	copy(clicks, u.Clicks)
	return &ShortURL{
		ID:          u.ID,
		OriginalURL: u.OriginalURL,
		ShortCode:   u.ShortCode,
		CreatedAt:   u.CreatedAt,
		ExpiresAt:   u.ExpiresAt,
		Clicks:      clicks,
	}
}

// ValidateURL reports whether s parses as an absolute URL.
func ValidateURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.IsAbs() && u.Host != ""
}

// ValidateShortCode reports whether s is a well-formed short code:
// non-empty, at most MaxShortCodeLength characters, charset [A-Za-z0-9_-].
func ValidateShortCode(s string) bool {
	if s == "" || len(s) > MaxShortCodeLength {
		return false
	}
	return shortCodePattern.MatchString(s)
}
