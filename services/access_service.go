package services

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/bektursun/kursplatform/model"
	"github.com/bektursun/kursplatform/utils/auth"
)

// AccessService implements the entitlement lifecycle: issue an unbound
// access with a redemption token, bind it to a user on activation, and
// consume lessons against the frozen quota.
type AccessService struct {
	db        *gorm.DB
	analytics *AnalyticsService
	notify    *NotificationService
	nowFn     func() time.Time
}

// NewAccessService creates a new access service
func NewAccessService(db *gorm.DB, analytics *AnalyticsService, notify *NotificationService) *AccessService {
	return &AccessService{
		db:        db,
		analytics: analytics,
		notify:    notify,
		nowFn:     time.Now,
	}
}

// IssueResult carries the minted access together with its one-time token.
// The token is returned exactly once; it is never exposed through reads.
type IssueResult struct {
	Access *model.CourseAccess `json:"access"`
	Token  string              `json:"token"`
}

// Issue mints an unbound access for a tariff, freezing the tariff's current
// quota and price into the access row.
func (s *AccessService) Issue(tariffID uint) (*IssueResult, error) {
	var tariff model.Tariff
	if err := s.db.First(&tariff, tariffID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch tariff: %w", err)
	}

	total, err := availableLessonCount(s.db, tariff.CourseID)
	if err != nil {
		return nil, err
	}
	quota, err := ResolveLessonLimit(tariff.LimitType, tariff.LimitValue, total)
	if err != nil {
		return nil, err
	}

	token, err := auth.GenerateRedemptionToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	access := model.CourseAccess{
		CourseID:    tariff.CourseID,
		TariffID:    tariff.ID,
		Token:       token,
		IsActive:    true,
		LessonLimit: quota,
		Price:       tariff.Price,
	}

	if err := s.db.Create(&access).Error; err != nil {
		return nil, fmt.Errorf("failed to create access: %w", err)
	}

	return &IssueResult{Access: &access, Token: token}, nil
}

// SetActive enables or disables an access without touching its binding or
// consumption state. Disabling notifies the owner if the access is bound.
func (s *AccessService) SetActive(accessID uint, active bool) (*model.CourseAccess, error) {
	var access model.CourseAccess

	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := lockForUpdate(tx).First(&access, accessID).Error; err != nil {
		tx.Rollback()
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch access: %w", err)
	}

	if access.IsActive == active {
		tx.Rollback()
		return &access, nil
	}

	access.IsActive = active
	if err := tx.Save(&access).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update access: %w", err)
	}

	if access.UserID != nil && !active {
		var course model.Course
		if err := tx.First(&course, access.CourseID).Error; err == nil {
			n := &model.UserNotification{
				UserID:   *access.UserID,
				Type:     model.NotificationAccessDisabled,
				Title:    "Course access suspended",
				Message:  fmt.Sprintf("Your access to %q has been suspended.", course.Title),
				CourseID: &access.CourseID,
			}
			if err := s.notify.Notify(tx, n); err != nil {
				tx.Rollback()
				return nil, err
			}
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return &access, nil
}

// Activate redeems a token for a user. The access row is locked for the
// duration so concurrent redemptions of the same token serialize; the first
// binds, any repeat by the same owner is a no-op, anyone else conflicts.
func (s *AccessService) Activate(userID uint, token string) (*model.CourseAccess, error) {
	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	setLockTimeout(tx, "3s")

	var access model.CourseAccess
	err := lockForUpdate(tx).Where("token = ?", token).First(&access).Error
	if err != nil {
		tx.Rollback()
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		if isLockTimeout(err) {
			return nil, ErrBusy
		}
		return nil, fmt.Errorf("failed to fetch access: %w", err)
	}

	if !access.IsActive {
		tx.Rollback()
		return nil, ErrAccessInactive
	}

	// Already redeemed
	if access.UserID != nil {
		tx.Rollback()
		if *access.UserID == userID {
			return &access, nil
		}
		return nil, ErrTokenBound
	}

	now := s.nowFn()
	access.UserID = &userID
	access.ActivatedAt = &now

	if err := tx.Save(&access).Error; err != nil {
		tx.Rollback()
		if isUniqueViolation(err) {
			return nil, ErrDuplicateAccess
		}
		if isLockTimeout(err) {
			return nil, ErrBusy
		}
		return nil, fmt.Errorf("failed to bind access: %w", err)
	}

	if err := s.analytics.OnCourseActivated(tx, &access, now); err != nil {
		tx.Rollback()
		return nil, err
	}

	var course model.Course
	if err := tx.First(&course, access.CourseID).Error; err == nil {
		n := &model.UserNotification{
			UserID:   userID,
			Type:     model.NotificationAccessActivated,
			Title:    "Course access activated",
			Message:  fmt.Sprintf("You now have access to %q.", course.Title),
			CourseID: &access.CourseID,
		}
		if err := s.notify.Notify(tx, n); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateAccess
		}
		return nil, fmt.Errorf("failed to commit activation: %w", err)
	}

	return &access, nil
}

// OpenLesson consumes one lesson of the user's access to the lesson's
// course. Reopening an already opened lesson never consumes quota.
func (s *AccessService) OpenLesson(userID, lessonID uint) (*model.Lesson, *model.CourseAccess, error) {
	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	setLockTimeout(tx, "3s")

	var lesson model.Lesson
	if err := tx.First(&lesson, lessonID).Error; err != nil {
		tx.Rollback()
		if err == gorm.ErrRecordNotFound {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to fetch lesson: %w", err)
	}

	if lesson.IsArchived {
		tx.Rollback()
		return nil, nil, ErrArchived
	}

	var access model.CourseAccess
	err := lockForUpdate(tx).
		Where("user_id = ? AND course_id = ?", userID, lesson.CourseID).
		First(&access).Error
	if err != nil {
		tx.Rollback()
		if err == gorm.ErrRecordNotFound {
			return nil, nil, ErrNoAccess
		}
		if isLockTimeout(err) {
			return nil, nil, ErrBusy
		}
		return nil, nil, fmt.Errorf("failed to fetch access: %w", err)
	}

	if !access.IsActive {
		tx.Rollback()
		return nil, nil, ErrAccessInactive
	}

	// Reopen: a prior open means the lesson is already paid for
	var existing model.LessonOpen
	err = tx.Where("access_id = ? AND lesson_id = ?", access.ID, lessonID).
		First(&existing).Error
	if err == nil {
		tx.Rollback()
		return &lesson, &access, nil
	}
	if err != gorm.ErrRecordNotFound {
		tx.Rollback()
		return nil, nil, fmt.Errorf("failed to check prior opens: %w", err)
	}

	if access.UsedLessons >= access.LessonLimit {
		tx.Rollback()
		return nil, nil, ErrQuotaExceeded
	}

	now := s.nowFn()
	open := model.LessonOpen{
		AccessID: access.ID,
		LessonID: lessonID,
		OpenedAt: now,
	}
	if err := tx.Create(&open).Error; err != nil {
		tx.Rollback()
		// A concurrent open of the same lesson won the race; that open
		// already paid for the lesson.
		if isUniqueViolation(err) {
			return &lesson, &access, nil
		}
		if isLockTimeout(err) {
			return nil, nil, ErrBusy
		}
		return nil, nil, fmt.Errorf("failed to record open: %w", err)
	}

	access.UsedLessons++
	if err := tx.Save(&access).Error; err != nil {
		tx.Rollback()
		return nil, nil, fmt.Errorf("failed to update access: %w", err)
	}

	if err := s.analytics.OnLessonOpen(tx, &access, &open, now); err != nil {
		tx.Rollback()
		return nil, nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, nil, fmt.Errorf("failed to commit open: %w", err)
	}

	return &lesson, &access, nil
}

// CourseProgress is one entry of a student's course list
type CourseProgress struct {
	Access        model.CourseAccess `json:"access"`
	OpenedLessons []uint             `json:"opened_lessons"`
}

// MyCourses lists the user's accesses with their consumed lessons
func (s *AccessService) MyCourses(userID uint) ([]CourseProgress, error) {
	var accesses []model.CourseAccess
	err := s.db.Preload("Course").Preload("Tariff").
		Where("user_id = ?", userID).
		Order("activated_at DESC").
		Find(&accesses).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list accesses: %w", err)
	}

	result := make([]CourseProgress, 0, len(accesses))
	for i := range accesses {
		var lessonIDs []uint
		err := s.db.Model(&model.LessonOpen{}).
			Where("access_id = ?", accesses[i].ID).
			Order("opened_at ASC").
			Pluck("lesson_id", &lessonIDs).Error
		if err != nil {
			return nil, fmt.Errorf("failed to list opens: %w", err)
		}
		result = append(result, CourseProgress{
			Access:        accesses[i],
			OpenedLessons: lessonIDs,
		})
	}

	return result, nil
}

// HasOpened reports whether the user's access to the course already covers
// the lesson. Used to gate lesson content reads without consuming quota.
func (s *AccessService) HasOpened(userID, lessonID uint) (bool, error) {
	var count int64
	err := s.db.Model(&model.LessonOpen{}).
		Joins("JOIN course_accesses ON course_accesses.id = lesson_opens.access_id").
		Where("course_accesses.user_id = ? AND lesson_opens.lesson_id = ?", userID, lessonID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check opens: %w", err)
	}
	return count > 0, nil
}

// ActiveAccessForLesson resolves the user's active access covering a lesson's
// course, or ErrNoAccess.
func (s *AccessService) ActiveAccessForLesson(userID, lessonID uint) (*model.CourseAccess, *model.Lesson, error) {
	var lesson model.Lesson
	if err := s.db.First(&lesson, lessonID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to fetch lesson: %w", err)
	}

	var access model.CourseAccess
	err := s.db.Where("user_id = ? AND course_id = ? AND is_active = ?", userID, lesson.CourseID, true).
		First(&access).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, ErrNoAccess
		}
		return nil, nil, fmt.Errorf("failed to fetch access: %w", err)
	}

	return &access, &lesson, nil
}

// ListByCourse returns a page of a course's accesses for the admin view
func (s *AccessService) ListByCourse(courseID uint, page, limit int) ([]model.CourseAccess, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var total int64
	if err := s.db.Model(&model.CourseAccess{}).
		Where("course_id = ?", courseID).
		Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count accesses: %w", err)
	}

	var accesses []model.CourseAccess
	err := s.db.Preload("User").Preload("Tariff").
		Where("course_id = ?", courseID).
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&accesses).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list accesses: %w", err)
	}

	return accesses, total, nil
}
