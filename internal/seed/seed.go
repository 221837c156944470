package seed

import (
	"fmt"
	"log"

	"permsync/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumRequests    int
	ProcessedRatio float32
	MaxDays        int
	ShouldClean    bool
}

// Seed populates the database with sample permission change requests.
func Seed(db *gorm.DB, opts Options) error {
	log.Printf("🌱 Starting database seeding with %d permission change requests...", opts.NumRequests)

	// Clear existing data to avoid conflicts if requested
	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			log.Println("⚠️  Warning: Could not clear all existing data, but continuing anyway...")
		}
	}

	factory := NewFactory(db, opts)

	processed := int(float32(opts.NumRequests) * opts.ProcessedRatio)
	reqs := make([]*models.PermissionChangeRequest, 0, opts.NumRequests)

	for i := 0; i < opts.NumRequests; i++ {
		var (
			req *models.PermissionChangeRequest
			err error
		)

		var overrides []func(*models.PermissionChangeRequest)
		if i < processed {
			overrides = append(overrides, factory.WithTerminalStatus())
		}

		// Roughly a quarter of seeded requests use metadata targeting.
		if i%4 == 0 {
			req, err = factory.BuildMetadataRequest(overrides...)
		} else {
			req, err = factory.BuildUserRequest(overrides...)
		}
		if err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}
		reqs = append(reqs, req)
	}

	if err := factory.CreateRequestsBatch(reqs); err != nil {
		return fmt.Errorf("failed to create requests: %w", err)
	}
	log.Printf("✓ %d permission change requests created (%d processed)", len(reqs), processed)

	log.Println("🎉 Database seeding completed successfully!")
	return nil
}

func clearData(db *gorm.DB) error {
	log.Println("🗑️  Clearing existing data...")
	return db.Exec(`DELETE FROM permission_change_requests`).Error
}
