// Package geoip resolves click locations from client IPs. The lookup is an
// external HTTP call and is strictly best-effort: any failure, timeout or
// open breaker degrades to the Unknown triad, never to an error.
package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"shorturl/internal/models"
)

// Resolver resolves an IP to a location. Implementations must never fail a
// redirect: unresolvable input yields models.UnknownLocation.
type Resolver interface {
	Resolve(ctx context.Context, ip string) models.Location
}

// HTTPResolver queries an ip-api style endpoint
// (GET {base}/json/{ip} → {"status","country","regionName","city"}).
// A circuit breaker keeps a flapping provider from slowing every redirect.
type HTTPResolver struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

// NewHTTPResolver creates a resolver for the given endpoint with a per-call
// timeout.
func NewHTTPResolver(baseURL string, timeout time.Duration) *HTTPResolver {
	return &HTTPResolver{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "geoip",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Printf("[GEOIP] breaker %s: %s -> %s", name, from, to)
			},
		}),
	}
}

type apiResponse struct {
	Status     string `json:"status"`
	Country    string `json:"country"`
	RegionName string `json:"regionName"`
	City       string `json:"city"`
}

// Resolve looks up ip. Loopback, private and unparsable addresses
// short-circuit to Unknown without touching the network.
func (r *HTTPResolver) Resolve(ctx context.Context, ip string) models.Location {
	if !isResolvable(ip) {
		return models.UnknownLocation
	}

	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.lookup(ctx, ip)
	})
	if err != nil {
		log.Printf("[GEOIP] lookup failed for %s: %v", ip, err)
		return models.UnknownLocation
	}
	return result.(models.Location)
}

func (r *HTTPResolver) lookup(ctx context.Context, ip string) (models.Location, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/json/"+ip, nil)
	if err != nil {
		return models.UnknownLocation, err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return models.UnknownLocation, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.UnknownLocation, fmt.Errorf("geoip endpoint returned status %d", resp.StatusCode)
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return models.UnknownLocation, err
	}
	if body.Status != "success" {
		return models.UnknownLocation, fmt.Errorf("geoip endpoint returned status %q", body.Status)
	}

	loc := models.Location{Country: body.Country, Region: body.RegionName, City: body.City}
	if loc.Country == "" {
		loc.Country = "Unknown"
	}
	if loc.Region == "" {
		loc.Region = "Unknown"
	}
	if loc.City == "" {
		loc.City = "Unknown"
	}
	return loc, nil
}

// isResolvable filters addresses no public geo database can answer for.
func isResolvable(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	return !parsed.IsLoopback() && !parsed.IsPrivate() && !parsed.IsUnspecified() && !parsed.IsLinkLocalUnicast()
}

// StaticResolver always returns the same location. Used by the CLI and
// tests, where no network lookup is wanted.
type StaticResolver struct {
	Location models.Location
}

// Resolve returns the configured location.
func (s StaticResolver) Resolve(ctx context.Context, ip string) models.Location {
	return s.Location
}
