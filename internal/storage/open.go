package storage

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"budgetbook/internal/config"
)

// Open builds the medium selected by cfg.StorageBackend, namespaced by
// cfg.StorageKeyPrefix. The returned close function releases connections
// the medium owns; the database handle stays with its caller.
func Open(ctx context.Context, cfg *config.Config, db *gorm.DB) (KeyValueStore, func() error, error) {
	var (
		kv      KeyValueStore
		closeFn = func() error { return nil }
	)

	switch cfg.StorageBackend {
	case config.StorageDatabase:
		if db == nil {
			return nil, nil, fmt.Errorf("database storage backend needs an open database")
		}
		kv = NewDatabase(db)
	case config.StorageRedis:
		r, err := NewRedis(ctx, RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, nil, err
		}
		kv, closeFn = r, r.Close
	case config.StorageMemory:
		m := NewMemory()
		kv, closeFn = m, m.Close
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}

	return WithPrefix(kv, cfg.StorageKeyPrefix), closeFn, nil
}
