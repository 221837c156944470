// Package bootstrap establishes runtime dependencies shared by the server and
// operational commands.
package bootstrap

import (
	"fmt"
	"strings"

	"permsync/internal/cache"
	"permsync/internal/config"
	"permsync/internal/database"
	"permsync/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedDevData populates an empty development database with sample
	// permission change requests. It is a no-op outside development.
	SeedDevData bool
}

// InitRuntime connects to DB and Redis and optionally seeds development data.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	// Connect DB
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if opts.SeedDevData && strings.EqualFold(cfg.Env, "development") {
		if err := seedIfEmpty(db); err != nil {
			return nil, nil, fmt.Errorf("failed to seed development data: %w", err)
		}
	}

	return db, r, nil
}

// seedIfEmpty seeds sample requests only when the table has no rows, so a
// restart never piles new sample data onto an existing development database.
func seedIfEmpty(db *gorm.DB) error {
	var count int64
	if err := db.Table("permission_change_requests").Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return seed.Seed(db, seed.Options{
		NumRequests:    50,
		ProcessedRatio: 0.5,
		MaxDays:        14,
		ShouldClean:    false,
	})
}
