// Package cli holds the maintenance commands: create, stats, cleanup and
// migrate. They are most useful against the sqlite storage driver, where the
// data outlives a single invocation.
package cli

import (
	"shorturl/internal/config"
	"shorturl/internal/models"
	"shorturl/internal/repository"
	"shorturl/internal/services"
)

// openService wires a store and service from the configuration. The caller
// closes the returned store when done.
func openService(cfg *config.Config) (*services.ShortURLService, repository.Store, error) {
	clock := models.RealClock{}

	store, err := repository.NewStore(cfg, clock)
	if err != nil {
		return nil, nil, err
	}

	// CLI invocations never hit the network for geolocation.
	svc := services.NewShortURLService(store, nil, clock,
		cfg.ShortURL.CodeLength, cfg.ShortURL.MaxCodeLength, cfg.DefaultValidity())
	return svc, store, nil
}
