package services

import (
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bektursun/kursplatform/model"
)

// newTestDB opens an isolated in-memory database with the full schema
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	// A single connection keeps every query on the same in-memory database
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&model.User{},
		&model.SiteSettings{},
		&model.Category{},
		&model.Course{},
		&model.Lesson{},
		&model.Tariff{},
		&model.CourseAccess{},
		&model.LessonOpen{},
		&model.Homework{},
		&model.CourseDailyAnalytics{},
		&model.CourseAnalytics{},
		&model.UserNotification{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// newTestCourse creates a course with the given number of lessons
func newTestCourse(t *testing.T, db *gorm.DB, lessonCount int) (*model.Course, []model.Lesson) {
	t.Helper()

	category := model.Category{Name: "Programming"}
	if err := db.Create(&category).Error; err != nil {
		t.Fatalf("failed to create category: %v", err)
	}

	course := model.Course{
		CategoryID:  category.ID,
		Title:       "Go from scratch",
		Description: "A practical course",
	}
	if err := db.Create(&course).Error; err != nil {
		t.Fatalf("failed to create course: %v", err)
	}

	lessons := make([]model.Lesson, 0, lessonCount)
	for i := 1; i <= lessonCount; i++ {
		lesson := model.Lesson{
			CourseID: course.ID,
			Title:    fmt.Sprintf("Lesson %d", i),
			Order:    uint(i),
		}
		if err := db.Create(&lesson).Error; err != nil {
			t.Fatalf("failed to create lesson: %v", err)
		}
		lessons = append(lessons, lesson)
	}

	return &course, lessons
}

// newTestUser creates a student
func newTestUser(t *testing.T, db *gorm.DB, email string) *model.User {
	t.Helper()

	user := model.User{
		Email:        email,
		PasswordHash: "x",
		Name:         "Test Student",
		Role:         model.RoleStudent,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return &user
}

// newTestTariff creates a tariff with an already resolved quota
func newTestTariff(t *testing.T, db *gorm.DB, courseID uint, price float64, limitType string, limitValue, lessonLimit uint) *model.Tariff {
	t.Helper()

	tariff := model.Tariff{
		CourseID:    courseID,
		Title:       "Standard",
		Price:       price,
		LimitType:   limitType,
		LimitValue:  limitValue,
		LessonLimit: lessonLimit,
	}
	if err := db.Create(&tariff).Error; err != nil {
		t.Fatalf("failed to create tariff: %v", err)
	}
	return &tariff
}

// newServices builds the full service graph on one test database
func newServices(db *gorm.DB) (*AccessService, *AnalyticsService, *HomeworkService, *NotificationService) {
	notifications := NewNotificationService(db)
	analytics := NewAnalyticsService(db, nil)
	accesses := NewAccessService(db, analytics, notifications)
	homeworks := NewHomeworkService(db, accesses, analytics, notifications)
	return accesses, analytics, homeworks, notifications
}
