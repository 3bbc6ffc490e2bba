package services

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/bektursun/kursplatform/model"
)

// HomeworkService manages student submissions and instructor review
type HomeworkService struct {
	db        *gorm.DB
	access    *AccessService
	analytics *AnalyticsService
	notify    *NotificationService
	nowFn     func() time.Time
}

// NewHomeworkService creates a new homework service
func NewHomeworkService(db *gorm.DB, access *AccessService, analytics *AnalyticsService, notify *NotificationService) *HomeworkService {
	return &HomeworkService{
		db:        db,
		access:    access,
		analytics: analytics,
		notify:    notify,
		nowFn:     time.Now,
	}
}

// Submit creates a new submission for a lesson. The student needs an active
// access covering the lesson's course; the new submission starts in
// examination and is counted in the course's daily rollup.
func (s *HomeworkService) Submit(userID, lessonID uint, content string) (*model.Homework, error) {
	_, lesson, err := s.access.ActiveAccessForLesson(userID, lessonID)
	if err != nil {
		return nil, err
	}
	if lesson.IsArchived {
		return nil, ErrArchived
	}

	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	homework := model.Homework{
		LessonID: lessonID,
		UserID:   userID,
		Content:  content,
		Status:   model.HomeworkStatusExamination,
	}

	if err := tx.Create(&homework).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create homework: %w", err)
	}

	if err := s.analytics.OnHomeworkSubmitted(tx, lesson.CourseID, s.nowFn()); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit submission: %w", err)
	}

	return &homework, nil
}

// Edit replaces the submission content. Students may edit only while the
// submission has been returned for rework; it stays in rework until the
// instructor reviews it again.
func (s *HomeworkService) Edit(userID, homeworkID uint, content string) (*model.Homework, error) {
	var homework model.Homework
	if err := s.db.First(&homework, homeworkID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch homework: %w", err)
	}

	if homework.UserID != userID {
		return nil, ErrForbidden
	}
	if homework.Status != model.HomeworkStatusRework {
		return nil, ErrNotEditable
	}

	homework.Content = content

	if err := s.db.Save(&homework).Error; err != nil {
		return nil, fmt.Errorf("failed to update homework: %w", err)
	}

	return &homework, nil
}

// Review sets the submission's status and comment. The acceptance counter
// fires only on the transition into accepted; moving a submission out of
// accepted clears its acceptance stamp.
func (s *HomeworkService) Review(homeworkID uint, status model.HomeworkStatus, comment string) (*model.Homework, error) {
	switch status {
	case model.HomeworkStatusExamination, model.HomeworkStatusRework,
		model.HomeworkStatusAccepted, model.HomeworkStatusDeclined:
	default:
		return nil, fmt.Errorf("unknown homework status %q", status)
	}

	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var homework model.Homework
	if err := lockForUpdate(tx).Preload("Lesson").First(&homework, homeworkID).Error; err != nil {
		tx.Rollback()
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch homework: %w", err)
	}

	wasAccepted := homework.Status == model.HomeworkStatusAccepted
	nowAccepted := status == model.HomeworkStatusAccepted

	now := s.nowFn()
	homework.Status = status
	homework.Comment = comment

	if nowAccepted && !wasAccepted {
		homework.AcceptedAt = &now
	}
	if wasAccepted && !nowAccepted {
		homework.AcceptedAt = nil
	}

	if err := tx.Save(&homework).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update homework: %w", err)
	}

	if nowAccepted && !wasAccepted {
		if err := s.analytics.OnHomeworkAccepted(tx, homework.Lesson.CourseID, now); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	n := &model.UserNotification{
		UserID:     homework.UserID,
		Type:       model.NotificationHomeworkReviewed,
		Title:      "Homework reviewed",
		Message:    fmt.Sprintf("Your homework for %q is now %s.", homework.Lesson.Title, status),
		LessonID:   &homework.LessonID,
		HomeworkID: &homework.ID,
	}
	if err := s.notify.Notify(tx, n); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit review: %w", err)
	}

	return &homework, nil
}

// ListByUser returns the student's own submissions, newest first
func (s *HomeworkService) ListByUser(userID uint) ([]model.Homework, error) {
	var homeworks []model.Homework
	err := s.db.Preload("Lesson").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&homeworks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list homeworks: %w", err)
	}
	return homeworks, nil
}

// ReviewListRequest filters the instructor's review queue
type ReviewListRequest struct {
	CourseID uint
	LessonID uint
	UserID   uint
	Status   model.HomeworkStatus
	Page     int
	Limit    int
}

// ListForReview returns a course's submissions filtered by status, lesson,
// and student, oldest first so the queue drains in submission order.
func (s *HomeworkService) ListForReview(req ReviewListRequest) ([]model.Homework, int64, error) {
	page, limit := req.Page, req.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	q := s.db.Model(&model.Homework{}).
		Joins("JOIN lessons ON lessons.id = homeworks.lesson_id").
		Where("lessons.course_id = ?", req.CourseID)
	if req.Status != "" {
		q = q.Where("homeworks.status = ?", req.Status)
	}
	if req.LessonID != 0 {
		q = q.Where("homeworks.lesson_id = ?", req.LessonID)
	}
	if req.UserID != 0 {
		q = q.Where("homeworks.user_id = ?", req.UserID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count homeworks: %w", err)
	}

	var homeworks []model.Homework
	err := q.Preload("Lesson").Preload("User").
		Order("homeworks.created_at ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&homeworks).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list homeworks: %w", err)
	}

	return homeworks, total, nil
}

// Get returns one submission if the requester owns it or can teach
func (s *HomeworkService) Get(requester *model.User, homeworkID uint) (*model.Homework, error) {
	var homework model.Homework
	err := s.db.Preload("Lesson").First(&homework, homeworkID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch homework: %w", err)
	}

	if homework.UserID != requester.ID && !requester.CanTeach() {
		return nil, ErrForbidden
	}

	return &homework, nil
}
