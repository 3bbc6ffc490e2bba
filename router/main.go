package router

import (
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	access_handlers "github.com/bektursun/kursplatform/handlers/access"
	analytics_handlers "github.com/bektursun/kursplatform/handlers/analytics"
	auth_handlers "github.com/bektursun/kursplatform/handlers/auth"
	catalog_handlers "github.com/bektursun/kursplatform/handlers/catalog"
	homework_handlers "github.com/bektursun/kursplatform/handlers/homework"
	lesson_handlers "github.com/bektursun/kursplatform/handlers/lesson"
	notification_handlers "github.com/bektursun/kursplatform/handlers/notification"
	tariff_handlers "github.com/bektursun/kursplatform/handlers/tariff"
	"github.com/bektursun/kursplatform/services"
	"github.com/bektursun/kursplatform/utils/auth"
	"github.com/bektursun/kursplatform/utils/cache"
	"github.com/bektursun/kursplatform/utils/middleware"
	"github.com/bektursun/kursplatform/utils/response"
)

// Deps carries the shared services the routes are built on
type Deps struct {
	DB            *gorm.DB
	RedisCache    *cache.RedisCache
	Catalog       *services.CatalogService
	Lessons       *services.LessonService
	Tariffs       *services.TariffService
	Accesses      *services.AccessService
	Homeworks     *services.HomeworkService
	Analytics     *services.AnalyticsService
	Notifications *services.NotificationService
}

// SetupRoutes wires every endpoint of the API
func SetupRoutes(app *fiber.App, deps Deps) {
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET environment variable is not set")
	}

	jwtIssuer := os.Getenv("JWT_ISSUER")
	if jwtIssuer == "" {
		jwtIssuer = "kursplatform-api"
	}

	jwtManager := auth.NewJWTManager(auth.JWTConfig{
		Secret:        jwtSecret,
		Expiry:        24 * time.Hour,
		RefreshExpiry: 7 * 24 * time.Hour,
		Issuer:        jwtIssuer,
	})

	// Brute force protection needs Redis; without it logins are unguarded
	var bruteForceProtection *middleware.BruteForceProtection
	if deps.RedisCache != nil {
		bruteForceProtection = middleware.NewBruteForceProtection(deps.RedisCache)
	}

	authMiddleware := middleware.NewAuthMiddleware(jwtManager, deps.DB)

	authHandler := auth_handlers.NewAuthHandler(deps.DB, jwtManager, bruteForceProtection)
	catalogHandler := catalog_handlers.NewCatalogHandler(deps.Catalog, deps.Lessons, deps.Tariffs)
	tariffHandler := tariff_handlers.NewTariffHandler(deps.Tariffs)
	lessonHandler := lesson_handlers.NewLessonHandler(deps.Lessons)
	accessHandler := access_handlers.NewAccessHandler(deps.Accesses)
	homeworkHandler := homework_handlers.NewHomeworkHandler(deps.Homeworks)
	analyticsHandler := analytics_handlers.NewAnalyticsHandler(deps.Analytics)
	notificationHandler := notification_handlers.NewNotificationHandler(deps.Notifications)

	// Apply security middleware
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000"
	}

	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    allowedOrigins,
		RateLimitRequests: 100,
		RateLimitWindow:   1 * time.Minute,
	})

	// Health check endpoint (public)
	app.Get("/ping", func(c *fiber.Ctx) error {
		sqlDB, err := deps.DB.DB()
		if err != nil || sqlDB.Ping() != nil {
			return response.Error(c, fiber.StatusServiceUnavailable, "Database unreachable", "BUSY")
		}
		return response.Success(c, fiber.Map{"status": "ok"})
	})

	// API v1 group
	api := app.Group("/api/v1")

	// Auth routes (public)
	authGroup := api.Group("/auth")
	authGroup.Post("/register", authHandler.Register)

	// Login with brute force protection
	if bruteForceProtection != nil {
		authGroup.Post("/login", bruteForceProtection.CheckLock(), authHandler.Login)
	} else {
		authGroup.Post("/login", authHandler.Login)
	}

	authGroup.Post("/refresh", authHandler.Refresh)
	authGroup.Post("/logout", authMiddleware.Required(), authHandler.Logout)
	authGroup.Post("/change-password", authMiddleware.Required(), authHandler.ChangePassword)

	// Profile routes (protected)
	profileGroup := api.Group("/profile", authMiddleware.Required())
	profileGroup.Get("/", authHandler.Profile)
	profileGroup.Put("/", authHandler.UpdateProfile)

	// Public catalog
	api.Get("/settings", catalogHandler.GetSettings)
	api.Get("/categories", catalogHandler.ListCategories)

	courses := api.Group("/courses")
	courses.Get("/", catalogHandler.ListCourses)                // Public: list catalog
	courses.Get("/:id", catalogHandler.GetCourse)               // Public: course page with syllabus
	courses.Get("/:id/tariffs", catalogHandler.GetCourseTariffs) // Public: purchase options

	// Student entitlements
	student := api.Group("/", authMiddleware.Required())
	student.Post("/access/activate", accessHandler.Activate)
	student.Get("/my-courses", accessHandler.MyCourses)
	student.Post("/lessons/:id/open", accessHandler.OpenLesson)

	// Student homework
	student.Post("/homeworks", homeworkHandler.Submit)
	student.Get("/homeworks", homeworkHandler.Mine)
	student.Get("/homeworks/:id", homeworkHandler.Get)
	student.Put("/homeworks/:id", homeworkHandler.Edit)

	// Notifications
	notifications := api.Group("/notifications", authMiddleware.Required())
	notifications.Get("/", notificationHandler.List)
	notifications.Get("/unread-count", notificationHandler.UnreadCount)
	notifications.Post("/read-all", notificationHandler.MarkAllRead)
	notifications.Post("/:id/read", notificationHandler.MarkRead)

	// Teacher cabinet
	cabinet := api.Group("/cabinet", authMiddleware.RequireTeacher())
	cabinet.Post("/courses", catalogHandler.CreateCourse)
	cabinet.Put("/courses/:id", catalogHandler.UpdateCourse)
	cabinet.Post("/courses/:id/photo", catalogHandler.UploadCoursePhoto)
	cabinet.Delete("/courses/:id", catalogHandler.DeleteCourse)

	cabinet.Get("/courses/:courseId/lessons", lessonHandler.ListByCourse)
	cabinet.Post("/lessons", lessonHandler.Create)
	cabinet.Get("/lessons/:id", lessonHandler.Get)
	cabinet.Put("/lessons/:id", lessonHandler.Update)
	cabinet.Post("/lessons/:id/video", lessonHandler.UploadVideo)
	cabinet.Post("/lessons/refresh-statuses", lessonHandler.RefreshPendingVideos)
	cabinet.Post("/lessons/:id/refresh-status", lessonHandler.RefreshVideoStatus)
	cabinet.Post("/lessons/:id/archive", lessonHandler.Archive)
	cabinet.Post("/lessons/:id/unarchive", lessonHandler.Unarchive)
	cabinet.Delete("/lessons/:id", lessonHandler.Archive)

	cabinet.Post("/tariffs", tariffHandler.Create)
	cabinet.Put("/tariffs/:id", tariffHandler.Update)
	cabinet.Delete("/tariffs/:id", tariffHandler.Delete)

	cabinet.Get("/courses/:courseId/homeworks", homeworkHandler.ListForReview)
	cabinet.Post("/homeworks/:id/review", homeworkHandler.Review)

	// Admin
	admin := api.Group("/admin", authMiddleware.RequireAdmin())
	admin.Put("/settings", catalogHandler.UpdateSettings)
	admin.Post("/settings/images/:field", catalogHandler.UploadSettingsImage)
	admin.Post("/categories", catalogHandler.CreateCategory)
	admin.Put("/categories/:id", catalogHandler.UpdateCategory)
	admin.Post("/categories/:id/photo", catalogHandler.UploadCategoryPhoto)
	admin.Delete("/categories/:id", catalogHandler.DeleteCategory)

	admin.Post("/accesses", accessHandler.Issue)
	admin.Get("/courses/:courseId/accesses", accessHandler.ListByCourse)
	admin.Put("/accesses/:id/active", accessHandler.SetActive)

	admin.Get("/analytics/overview", analyticsHandler.Overview)
	admin.Get("/analytics/courses", analyticsHandler.ListCourses)
	admin.Get("/analytics/courses/:courseId", analyticsHandler.CourseTotals)
	admin.Get("/analytics/courses/:courseId/daily", analyticsHandler.CourseDaily)
	admin.Get("/analytics/courses/:courseId/top-lessons", analyticsHandler.TopLessons)
	admin.Post("/analytics/courses/:courseId/rebuild", analyticsHandler.Rebuild)
}
