package store

import (
	"github.com/hrygo/mindmap/internal/profile"
	"github.com/hrygo/mindmap/store/cache"
)

// Store provides access to all raw study-tracking objects, backed by a
// driver for the system of record and a Redis cache for computed data.
type Store struct {
	profile *profile.Profile
	driver  Driver

	cache       *cache.Store
	invalidator *cache.Invalidator
}

// New creates a new instance of Store. The cache store and invalidator are
// constructed by the caller so tests can supply isolated instances.
func New(driver Driver, cacheStore *cache.Store, profile *profile.Profile) *Store {
	return &Store{
		driver:      driver,
		profile:     profile,
		cache:       cacheStore,
		invalidator: cache.NewInvalidator(cacheStore),
	}
}

// Cache returns the cache store.
func (s *Store) Cache() *cache.Store {
	return s.cache
}

// Invalidator returns the cache invalidator.
func (s *Store) Invalidator() *cache.Invalidator {
	return s.invalidator
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	if err := s.cache.Close(); err != nil {
		return err
	}
	return s.driver.Close()
}
