// Command seed populates the database with sample permission change requests.
package main

import (
	"flag"
	"log"

	"permsync/internal/config"
	"permsync/internal/database"
	"permsync/internal/seed"
)

func main() {
	// Parse command line flags
	numRequests := flag.Int("requests", 200, "Number of permission change requests to create")
	processedRatio := flag.Float64("processed", 0.5, "Fraction of requests with a terminal status")
	maxDays := flag.Int("days", 30, "Spread creation timestamps over this many days")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")
	log.Printf("Target: %d requests, processed=%.0f%%, clean=%v\n", *numRequests, *processedRatio*100, *shouldClean)

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := seed.Seed(db, seed.Options{
		NumRequests:    *numRequests,
		ProcessedRatio: float32(*processedRatio),
		MaxDays:        *maxDays,
		ShouldClean:    *shouldClean,
	}); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Println("✨ All done! Your database is now populated with test data.")
}
