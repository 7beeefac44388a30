package models

import (
	"time"

	"github.com/google/uuid"
)

// Location is the geographic triad resolved from the client IP at click time.
type Location struct {
	Country string `gorm:"size:100" json:"country"`
	Region  string `gorm:"size:100" json:"region"`
	City    string `gorm:"size:100" json:"city"`
}

// UnknownLocation is stored whenever the client IP cannot be resolved
// (loopback, private ranges, resolver failure).
var UnknownLocation = Location{Country: "Unknown", Region: "Unknown", City: "Unknown"}

// Click represents a single recorded access to a short URL.
// Clicks are append-only; the length of a record's click slice is the
// authoritative click count.
type Click struct {
	// ID is the process-unique identifier assigned when the click is recorded.
	ID string `gorm:"primaryKey;size:36" json:"id"`

	// ShortURLID references the owning ShortURL record.
	ShortURLID string `gorm:"index;size:36" json:"-"`

	// Timestamp records the exact moment the click occurred.
	Timestamp time.Time `json:"timestamp"`

	// IPAddress is the client address, IPv4 or IPv6.
	IPAddress string `gorm:"size:50" json:"ip"`

	// UserAgent is the raw User-Agent header of the client.
	UserAgent string `gorm:"size:255" json:"user_agent"`

	// Referer is the Referer header, empty when the client sent none.
	Referer string `gorm:"size:255" json:"referer"`

	// Location is resolved at click time, never re-resolved afterwards.
	Location Location `gorm:"embedded;embeddedPrefix:location_" json:"location"`
}

// ClickMeta carries the request metadata captured by the HTTP layer
// before a click is recorded.
type ClickMeta struct {
	IPAddress string
	UserAgent string
	Referer   string
}

// NewClick builds a click event with a fresh id for the given record.
func NewClick(shortURLID string, meta ClickMeta, loc Location, now time.Time) Click {
	return Click{
		ID:         uuid.NewString(),
		ShortURLID: shortURLID,
		Timestamp:  now,
		IPAddress:  meta.IPAddress,
		UserAgent:  meta.UserAgent,
		Referer:    meta.Referer,
		Location:   loc,
	}
}

// ClickEvent is the message passed through the analytics channel.
// It exists so the forwarder workers never touch the live record.
type ClickEvent struct {
	ShortCode string `json:"short_code"`
	Click     Click  `json:"click"`
}
