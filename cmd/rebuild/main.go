package main

import (
	"flag"
	"log"

	"github.com/joho/godotenv"

	"github.com/bektursun/kursplatform/database"
	"github.com/bektursun/kursplatform/services"
)

// Rebuilds the analytics rollups from the event history. With -course it
// rebuilds one course, otherwise every course.
func main() {
	courseID := flag.Uint("course", 0, "rebuild a single course by ID")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	store, err := database.StartGORM()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()

	analytics := services.NewAnalyticsService(store.GetDB(), nil)

	if *courseID != 0 {
		if err := analytics.RebuildCourse(*courseID); err != nil {
			log.Fatalf("Rebuild failed for course %d: %v", *courseID, err)
		}
		log.Printf("Rebuilt analytics for course %d", *courseID)
		return
	}

	rebuilt, err := analytics.RebuildAll()
	if err != nil {
		log.Fatalf("Rebuild failed: %v", err)
	}
	log.Printf("Rebuilt analytics for %d courses", rebuilt)
}
