package app

import (
	"fmt"
	"log"
	"os"

	"github.com/bektursun/kursplatform/api"
	"github.com/bektursun/kursplatform/config"
	"github.com/bektursun/kursplatform/database"
	"github.com/bektursun/kursplatform/router"
	"github.com/bektursun/kursplatform/services"
	"github.com/bektursun/kursplatform/services/cron"
	"github.com/bektursun/kursplatform/services/storage"
	"github.com/bektursun/kursplatform/services/videohost"
	"github.com/bektursun/kursplatform/utils/cache"
)

// SetupAndRunServer wires the whole application and blocks serving requests
func SetupAndRunServer() error {

	// Load ENV
	if err := config.LoadENV(); err != nil {
		return err
	}

	getEnv, err := config.Get()
	if err != nil {
		return err
	}

	// Initialize GORM database connection
	store, err := database.StartGORM()
	if err != nil {
		log.Println("Check whether Postgres is running before starting the server")
		return err
	}

	if err := store.Init(); err != nil {
		log.Println("Failed to initialize database tables")
		return err
	}

	db := store.GetDB()

	// Redis cache is optional; without it brute force protection and the
	// analytics overview cache are disabled
	redisURL := getEnv.REDIS_URL
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}
	redisCache, err := cache.NewRedisCache(redisURL)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v. Running without cache.", err)
		redisCache = nil
	}

	// Video hosting provider client
	host := videohost.NewClient(videohost.Config{
		APIToken: getEnv.VIDEOHOST_TOKEN,
		BaseURL:  getEnv.VIDEOHOST_BASE_URL,
	})

	// Object storage is optional; without it photo and file uploads fail
	var storageClient *storage.Client
	if getEnv.STORAGE_ACCESS_KEY != "" {
		storageClient, err = storage.NewClient(storage.Config{
			AccessKey: getEnv.STORAGE_ACCESS_KEY,
			SecretKey: getEnv.STORAGE_SECRET_KEY,
			Bucket:    getEnv.STORAGE_BUCKET,
			Region:    getEnv.STORAGE_REGION,
			Endpoint:  getEnv.STORAGE_ENDPOINT,
			CDNURL:    getEnv.STORAGE_CDN_URL,
		})
		if err != nil {
			log.Printf("Warning: Failed to initialize object storage: %v", err)
		}
	} else {
		log.Println("Warning: STORAGE_ACCESS_KEY not set. File uploads will be disabled.")
	}

	// Service layer
	notifications := services.NewNotificationService(db)
	analytics := services.NewAnalyticsService(db, redisCache)
	tariffs := services.NewTariffService(db)
	accesses := services.NewAccessService(db, analytics, notifications)
	lessons := services.NewLessonService(db, host, tariffs)
	homeworks := services.NewHomeworkService(db, accesses, analytics, notifications)
	catalog := services.NewCatalogService(db, storageClient)

	// Cron Manager (only if enabled via environment variable)
	var cronManager *cron.CronManager
	if os.Getenv("CRON_ENABLED") != "false" { // Default to enabled
		cronManager = cron.NewCronManager(db, lessons, analytics)
		if err := cronManager.Start(); err != nil {
			log.Printf("Warning: Failed to start cron jobs: %v", err)
		}
	}

	defer func() {
		if cronManager != nil {
			cronManager.Stop()
		}
		store.Close()
		if redisCache != nil {
			redisCache.Close()
		}
	}()

	// Init API
	server := api.NewAPIServer(fmt.Sprintf(":%d", getEnv.PORT))
	app := server.GetEngine()

	router.SetupRoutes(app, router.Deps{
		DB:            db,
		RedisCache:    redisCache,
		Catalog:       catalog,
		Lessons:       lessons,
		Tariffs:       tariffs,
		Accesses:      accesses,
		Homeworks:     homeworks,
		Analytics:     analytics,
		Notifications: notifications,
	})

	return server.Run()
}
