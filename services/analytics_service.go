package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/bektursun/kursplatform/model"
	"github.com/bektursun/kursplatform/utils/cache"
)

// rebuildWindowDays is how far back the daily rebuild reconstructs rollups
const rebuildWindowDays = 30

// AnalyticsService maintains per-course rollups. Counters are updated
// incrementally inside the same transaction as the event that caused them,
// and the rebuild path reconstructs the same numbers from the event history.
type AnalyticsService struct {
	db         *gorm.DB
	redisCache *cache.RedisCache
	nowFn      func() time.Time
}

// NewAnalyticsService creates a new analytics service. redisCache may be nil;
// the overview endpoint then skips caching.
func NewAnalyticsService(db *gorm.DB, redisCache *cache.RedisCache) *AnalyticsService {
	return &AnalyticsService{
		db:         db,
		redisCache: redisCache,
		nowFn:      time.Now,
	}
}

// dayOf truncates a timestamp to its UTC calendar day
func dayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// dayBounds returns the [start, end) range covering the day of t
func dayBounds(t time.Time) (time.Time, time.Time) {
	start := dayOf(t)
	return start, start.Add(24 * time.Hour)
}

// round4 rounds to 4 decimal places
func round4(x float64) float64 {
	return math.Round(x*10000) / 10000
}

// dailyRow fetches or creates the (course, day) rollup row inside tx
func (s *AnalyticsService) dailyRow(tx *gorm.DB, courseID uint, day time.Time) (*model.CourseDailyAnalytics, error) {
	var row model.CourseDailyAnalytics
	err := lockForUpdate(tx).
		Where("course_id = ? AND date = ?", courseID, day).
		First(&row).Error
	if err == nil {
		return &row, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("failed to fetch daily analytics: %w", err)
	}

	row = model.CourseDailyAnalytics{CourseID: courseID, Date: day}
	if err := tx.Create(&row).Error; err != nil {
		return nil, fmt.Errorf("failed to create daily analytics: %w", err)
	}
	return &row, nil
}

// totalsRow fetches or creates the all-time rollup row inside tx
func (s *AnalyticsService) totalsRow(tx *gorm.DB, courseID uint) (*model.CourseAnalytics, error) {
	var row model.CourseAnalytics
	err := lockForUpdate(tx).
		Where("course_id = ?", courseID).
		First(&row).Error
	if err == nil {
		return &row, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("failed to fetch course analytics: %w", err)
	}

	row = model.CourseAnalytics{CourseID: courseID}
	if err := tx.Create(&row).Error; err != nil {
		return nil, fmt.Errorf("failed to create course analytics: %w", err)
	}
	return &row, nil
}

// refreshCompletion recomputes the derived completion rate of the totals row
func (s *AnalyticsService) refreshCompletion(tx *gorm.DB, row *model.CourseAnalytics) {
	lessons, err := availableLessonCount(tx, row.CourseID)
	if err != nil {
		return
	}
	row.TotalLessons = lessons
	if row.TotalStudents == 0 || lessons == 0 {
		row.CompletionRate = 0
		return
	}
	row.CompletionRate = round4(float64(row.TotalOpens) / float64(row.TotalStudents*lessons))
}

// OnCourseActivated records a purchase event. Runs inside the activation
// transaction so the rollup moves atomically with the access binding.
func (s *AnalyticsService) OnCourseActivated(tx *gorm.DB, access *model.CourseAccess, at time.Time) error {
	day := dayOf(at)
	dayStart, dayEnd := dayBounds(at)

	daily, err := s.dailyRow(tx, access.CourseID, day)
	if err != nil {
		return err
	}

	daily.Purchases++
	daily.Revenue += access.Price

	// Count the buyer once per day even if an earlier access of theirs on
	// this course was activated the same day.
	var prior int64
	err = tx.Model(&model.CourseAccess{}).
		Where("course_id = ? AND user_id = ? AND id <> ?", access.CourseID, *access.UserID, access.ID).
		Where("activated_at >= ? AND activated_at < ?", dayStart, dayEnd).
		Count(&prior).Error
	if err != nil {
		return fmt.Errorf("failed to check buyer uniqueness: %w", err)
	}
	if prior == 0 {
		daily.UniqueBuyers++
	}

	if err := tx.Save(daily).Error; err != nil {
		return fmt.Errorf("failed to save daily analytics: %w", err)
	}

	totals, err := s.totalsRow(tx, access.CourseID)
	if err != nil {
		return err
	}

	totals.TotalPurchases++
	totals.TotalRevenue += access.Price

	var priorEver int64
	err = tx.Model(&model.CourseAccess{}).
		Where("course_id = ? AND user_id = ? AND id <> ? AND activated_at IS NOT NULL",
			access.CourseID, *access.UserID, access.ID).
		Count(&priorEver).Error
	if err != nil {
		return fmt.Errorf("failed to check student uniqueness: %w", err)
	}
	if priorEver == 0 {
		totals.TotalStudents++
	}

	s.refreshCompletion(tx, totals)

	if err := tx.Save(totals).Error; err != nil {
		return fmt.Errorf("failed to save course analytics: %w", err)
	}
	return nil
}

// OnLessonOpen records a consumed lesson. Runs inside the open transaction.
func (s *AnalyticsService) OnLessonOpen(tx *gorm.DB, access *model.CourseAccess, open *model.LessonOpen, at time.Time) error {
	day := dayOf(at)
	dayStart, dayEnd := dayBounds(at)

	daily, err := s.dailyRow(tx, access.CourseID, day)
	if err != nil {
		return err
	}

	daily.OpenedLessons++

	// The student counts as active once per day regardless of how many
	// lessons they open.
	var prior int64
	err = tx.Model(&model.LessonOpen{}).
		Joins("JOIN course_accesses ON course_accesses.id = lesson_opens.access_id").
		Where("course_accesses.course_id = ? AND course_accesses.user_id = ?", access.CourseID, *access.UserID).
		Where("lesson_opens.id <> ?", open.ID).
		Where("lesson_opens.opened_at >= ? AND lesson_opens.opened_at < ?", dayStart, dayEnd).
		Count(&prior).Error
	if err != nil {
		return fmt.Errorf("failed to check active student uniqueness: %w", err)
	}
	if prior == 0 {
		daily.ActiveStudents++
	}

	if err := tx.Save(daily).Error; err != nil {
		return fmt.Errorf("failed to save daily analytics: %w", err)
	}

	totals, err := s.totalsRow(tx, access.CourseID)
	if err != nil {
		return err
	}

	totals.TotalOpens++
	s.refreshCompletion(tx, totals)

	if err := tx.Save(totals).Error; err != nil {
		return fmt.Errorf("failed to save course analytics: %w", err)
	}
	return nil
}

// OnHomeworkSubmitted records a new submission for the lesson's course
func (s *AnalyticsService) OnHomeworkSubmitted(tx *gorm.DB, courseID uint, at time.Time) error {
	daily, err := s.dailyRow(tx, courseID, dayOf(at))
	if err != nil {
		return err
	}
	daily.HomeworksSubmitted++
	if err := tx.Save(daily).Error; err != nil {
		return fmt.Errorf("failed to save daily analytics: %w", err)
	}
	return nil
}

// OnHomeworkAccepted records a submission transitioning into accepted
func (s *AnalyticsService) OnHomeworkAccepted(tx *gorm.DB, courseID uint, at time.Time) error {
	daily, err := s.dailyRow(tx, courseID, dayOf(at))
	if err != nil {
		return err
	}
	daily.HomeworksAccepted++
	if err := tx.Save(daily).Error; err != nil {
		return fmt.Errorf("failed to save daily analytics: %w", err)
	}
	return nil
}

// RebuildCourse reconstructs the all-time rollup and the trailing daily
// rollups of one course from the event history. The result must match what
// the incremental handlers produced.
func (s *AnalyticsService) RebuildCourse(courseID uint) error {
	tx := s.db.Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := s.rebuildTotals(tx, courseID); err != nil {
		tx.Rollback()
		return err
	}

	now := s.nowFn()
	for i := rebuildWindowDays - 1; i >= 0; i-- {
		day := dayOf(now.AddDate(0, 0, -i))
		if err := s.rebuildDay(tx, courseID, day); err != nil {
			tx.Rollback()
			return err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit rebuild: %w", err)
	}

	s.invalidateOverview()
	return nil
}

func (s *AnalyticsService) rebuildTotals(tx *gorm.DB, courseID uint) error {
	activated := tx.Model(&model.CourseAccess{}).
		Where("course_id = ? AND activated_at IS NOT NULL", courseID)

	var purchases int64
	if err := activated.Session(&gorm.Session{}).Count(&purchases).Error; err != nil {
		return fmt.Errorf("failed to count purchases: %w", err)
	}

	var revenue float64
	if err := activated.Session(&gorm.Session{}).
		Select("COALESCE(SUM(price), 0)").Scan(&revenue).Error; err != nil {
		return fmt.Errorf("failed to sum revenue: %w", err)
	}

	var students int64
	if err := activated.Session(&gorm.Session{}).
		Distinct("user_id").Count(&students).Error; err != nil {
		return fmt.Errorf("failed to count students: %w", err)
	}

	var opens int64
	err := tx.Model(&model.LessonOpen{}).
		Joins("JOIN course_accesses ON course_accesses.id = lesson_opens.access_id").
		Where("course_accesses.course_id = ?", courseID).
		Count(&opens).Error
	if err != nil {
		return fmt.Errorf("failed to count opens: %w", err)
	}

	lessons, err := availableLessonCount(tx, courseID)
	if err != nil {
		return err
	}

	row, err := s.totalsRow(tx, courseID)
	if err != nil {
		return err
	}

	row.TotalPurchases = uint(purchases)
	row.TotalRevenue = revenue
	row.TotalStudents = uint(students)
	row.TotalLessons = lessons
	row.TotalOpens = uint(opens)
	if students > 0 && lessons > 0 {
		row.CompletionRate = round4(float64(opens) / float64(uint(students)*lessons))
	} else {
		row.CompletionRate = 0
	}

	if err := tx.Save(row).Error; err != nil {
		return fmt.Errorf("failed to save course analytics: %w", err)
	}
	return nil
}

func (s *AnalyticsService) rebuildDay(tx *gorm.DB, courseID uint, day time.Time) error {
	dayStart := day
	dayEnd := day.Add(24 * time.Hour)

	activated := tx.Model(&model.CourseAccess{}).
		Where("course_id = ? AND activated_at >= ? AND activated_at < ?", courseID, dayStart, dayEnd)

	var purchases int64
	if err := activated.Session(&gorm.Session{}).Count(&purchases).Error; err != nil {
		return fmt.Errorf("failed to count daily purchases: %w", err)
	}

	var revenue float64
	if err := activated.Session(&gorm.Session{}).
		Select("COALESCE(SUM(price), 0)").Scan(&revenue).Error; err != nil {
		return fmt.Errorf("failed to sum daily revenue: %w", err)
	}

	var buyers int64
	if err := activated.Session(&gorm.Session{}).
		Distinct("user_id").Count(&buyers).Error; err != nil {
		return fmt.Errorf("failed to count daily buyers: %w", err)
	}

	opensQ := tx.Model(&model.LessonOpen{}).
		Joins("JOIN course_accesses ON course_accesses.id = lesson_opens.access_id").
		Where("course_accesses.course_id = ?", courseID).
		Where("lesson_opens.opened_at >= ? AND lesson_opens.opened_at < ?", dayStart, dayEnd)

	var opens int64
	if err := opensQ.Session(&gorm.Session{}).Count(&opens).Error; err != nil {
		return fmt.Errorf("failed to count daily opens: %w", err)
	}

	var active int64
	if err := opensQ.Session(&gorm.Session{}).
		Distinct("course_accesses.user_id").Count(&active).Error; err != nil {
		return fmt.Errorf("failed to count daily active students: %w", err)
	}

	var submitted int64
	err := tx.Model(&model.Homework{}).
		Joins("JOIN lessons ON lessons.id = homeworks.lesson_id").
		Where("lessons.course_id = ?", courseID).
		Where("homeworks.created_at >= ? AND homeworks.created_at < ?", dayStart, dayEnd).
		Count(&submitted).Error
	if err != nil {
		return fmt.Errorf("failed to count daily submissions: %w", err)
	}

	var accepted int64
	err = tx.Model(&model.Homework{}).
		Joins("JOIN lessons ON lessons.id = homeworks.lesson_id").
		Where("lessons.course_id = ?", courseID).
		Where("homeworks.accepted_at >= ? AND homeworks.accepted_at < ?", dayStart, dayEnd).
		Count(&accepted).Error
	if err != nil {
		return fmt.Errorf("failed to count daily accepted: %w", err)
	}

	row, err := s.dailyRow(tx, courseID, day)
	if err != nil {
		return err
	}

	row.Purchases = uint(purchases)
	row.Revenue = revenue
	row.UniqueBuyers = uint(buyers)
	row.OpenedLessons = uint(opens)
	row.ActiveStudents = uint(active)
	row.HomeworksSubmitted = uint(submitted)
	row.HomeworksAccepted = uint(accepted)

	if err := tx.Save(row).Error; err != nil {
		return fmt.Errorf("failed to save daily analytics: %w", err)
	}
	return nil
}

// RebuildAll rebuilds the rollups of every course
func (s *AnalyticsService) RebuildAll() (int, error) {
	var courseIDs []uint
	if err := s.db.Model(&model.Course{}).Pluck("id", &courseIDs).Error; err != nil {
		return 0, fmt.Errorf("failed to list courses: %w", err)
	}

	rebuilt := 0
	for _, id := range courseIDs {
		if err := s.RebuildCourse(id); err != nil {
			log.Printf("analytics rebuild failed for course %d: %v", id, err)
			continue
		}
		rebuilt++
	}
	return rebuilt, nil
}

// PlatformOverview aggregates the all-time rollups across every course
type PlatformOverview struct {
	TotalCourses   int64   `json:"total_courses"`
	TotalStudents  int64   `json:"total_students"`
	TotalPurchases uint    `json:"total_purchases"`
	TotalRevenue   float64 `json:"total_revenue"`
	TotalOpens     uint    `json:"total_opens"`
}

const overviewCacheKey = "analytics:overview"

// Overview returns platform-wide totals, cached for five minutes
func (s *AnalyticsService) Overview(ctx context.Context) (*PlatformOverview, error) {
	if s.redisCache != nil {
		var cached PlatformOverview
		if err := s.redisCache.GetJSON(ctx, overviewCacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	var overview PlatformOverview

	if err := s.db.Model(&model.Course{}).Count(&overview.TotalCourses).Error; err != nil {
		return nil, fmt.Errorf("failed to count courses: %w", err)
	}

	err := s.db.Model(&model.CourseAccess{}).
		Where("activated_at IS NOT NULL").
		Distinct("user_id").
		Count(&overview.TotalStudents).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count students: %w", err)
	}

	var rows []model.CourseAnalytics
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load course analytics: %w", err)
	}
	for i := range rows {
		overview.TotalPurchases += rows[i].TotalPurchases
		overview.TotalRevenue += rows[i].TotalRevenue
		overview.TotalOpens += rows[i].TotalOpens
	}

	if s.redisCache != nil {
		if err := s.redisCache.SetJSON(ctx, overviewCacheKey, &overview, 5*time.Minute); err != nil {
			log.Printf("failed to cache analytics overview: %v", err)
		}
	}

	return &overview, nil
}

func (s *AnalyticsService) invalidateOverview() {
	if s.redisCache == nil {
		return
	}
	if err := s.redisCache.Delete(context.Background(), overviewCacheKey); err != nil {
		log.Printf("failed to invalidate analytics overview cache: %v", err)
	}
}

// ListCourses returns every course's all-time rollup, highest revenue first
func (s *AnalyticsService) ListCourses() ([]model.CourseAnalytics, error) {
	var rows []model.CourseAnalytics
	err := s.db.Preload("Course").
		Order("total_revenue DESC, course_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list course analytics: %w", err)
	}
	return rows, nil
}

// CourseTotals returns the all-time rollup of one course
func (s *AnalyticsService) CourseTotals(courseID uint) (*model.CourseAnalytics, error) {
	var row model.CourseAnalytics
	err := s.db.Where("course_id = ?", courseID).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			// No events yet; return an empty rollup rather than 404
			return &model.CourseAnalytics{CourseID: courseID}, nil
		}
		return nil, fmt.Errorf("failed to fetch course analytics: %w", err)
	}
	return &row, nil
}

// CourseDaily returns the daily rollups of one course over the trailing window
func (s *AnalyticsService) CourseDaily(courseID uint, days int) ([]model.CourseDailyAnalytics, error) {
	if days <= 0 || days > 365 {
		days = rebuildWindowDays
	}
	since := dayOf(s.nowFn().AddDate(0, 0, -(days - 1)))

	var rows []model.CourseDailyAnalytics
	err := s.db.Where("course_id = ? AND date >= ?", courseID, since).
		Order("date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch daily analytics: %w", err)
	}
	return rows, nil
}

// LessonOpenCount pairs a lesson with how many times it has been opened
type LessonOpenCount struct {
	LessonID uint   `json:"lesson_id"`
	Title    string `json:"title"`
	Opens    int64  `json:"opens"`
}

// TopLessons returns the most-opened lessons of a course
func (s *AnalyticsService) TopLessons(courseID uint, limit int) ([]LessonOpenCount, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	var rows []LessonOpenCount
	err := s.db.Model(&model.LessonOpen{}).
		Select("lessons.id AS lesson_id, lessons.title AS title, COUNT(lesson_opens.id) AS opens").
		Joins("JOIN lessons ON lessons.id = lesson_opens.lesson_id").
		Where("lessons.course_id = ?", courseID).
		Group("lessons.id, lessons.title").
		Order("opens DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to rank lessons: %w", err)
	}
	return rows, nil
}
