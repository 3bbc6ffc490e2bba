package services

import (
	"fmt"
	"math"

	"gorm.io/gorm"

	"github.com/bektursun/kursplatform/model"
)

// TariffService manages tariffs and keeps their resolved lesson quotas in
// sync with the course's available lesson count.
type TariffService struct {
	db *gorm.DB
}

// NewTariffService creates a new tariff service
func NewTariffService(db *gorm.DB) *TariffService {
	return &TariffService{db: db}
}

// ResolveLessonLimit turns a (limitType, limitValue) pair into a concrete
// lesson quota against totalLessons. A count must lie in [1, totalLessons]
// and a percent in [1, 100]; anything else is ErrLimitOutOfRange. Percent
// rounds half up and the computed quota is clamped to [1, totalLessons].
// A course with no lessons cannot resolve any quota.
func ResolveLessonLimit(limitType string, limitValue uint, totalLessons uint) (uint, error) {
	if totalLessons == 0 {
		return 0, ErrNoLessons
	}

	switch limitType {
	case model.LimitTypeAll:
		return totalLessons, nil
	case model.LimitTypeCount:
		if limitValue < 1 || limitValue > totalLessons {
			return 0, ErrLimitOutOfRange
		}
		return limitValue, nil
	case model.LimitTypePercent:
		if limitValue < 1 || limitValue > 100 {
			return 0, ErrLimitOutOfRange
		}
		quota := uint(math.Floor(float64(totalLessons)*float64(limitValue)/100.0 + 0.5))
		if quota < 1 {
			quota = 1
		}
		if quota > totalLessons {
			quota = totalLessons
		}
		return quota, nil
	default:
		return 0, fmt.Errorf("unknown limit type %q", limitType)
	}
}

// availableLessonCount counts the course's non-archived lessons
func availableLessonCount(tx *gorm.DB, courseID uint) (uint, error) {
	var count int64
	err := tx.Model(&model.Lesson{}).
		Where("course_id = ? AND is_archived = ?", courseID, false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count lessons: %w", err)
	}
	return uint(count), nil
}

// CreateTariffRequest represents the request to create a tariff
type CreateTariffRequest struct {
	CourseID   uint    `json:"course_id" validate:"required"`
	Title      string  `json:"title" validate:"required,min=1,max=255"`
	Price      float64 `json:"price" validate:"gte=0"`
	LimitType  string  `json:"limit_type" validate:"required,oneof=count percent all"`
	LimitValue uint    `json:"limit_value" validate:"required_unless=LimitType all"`
}

// UpdateTariffRequest represents the request to update a tariff
type UpdateTariffRequest struct {
	Title      *string  `json:"title" validate:"omitempty,min=1,max=255"`
	Price      *float64 `json:"price" validate:"omitempty,gte=0"`
	LimitType  *string  `json:"limit_type" validate:"omitempty,oneof=count percent all"`
	LimitValue *uint    `json:"limit_value" validate:"omitempty,gte=1"`
}

// Create resolves the quota and stores a new tariff
func (s *TariffService) Create(req CreateTariffRequest) (*model.Tariff, error) {
	var course model.Course
	if err := s.db.First(&course, req.CourseID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch course: %w", err)
	}

	total, err := availableLessonCount(s.db, req.CourseID)
	if err != nil {
		return nil, err
	}

	quota, err := ResolveLessonLimit(req.LimitType, req.LimitValue, total)
	if err != nil {
		return nil, err
	}

	tariff := model.Tariff{
		CourseID:    req.CourseID,
		Title:       req.Title,
		Price:       req.Price,
		LimitType:   req.LimitType,
		LimitValue:  req.LimitValue,
		LessonLimit: quota,
	}

	if err := s.db.Create(&tariff).Error; err != nil {
		return nil, fmt.Errorf("failed to create tariff: %w", err)
	}

	return &tariff, nil
}

// Update applies partial changes to a tariff and recomputes its quota.
// Accesses already sold under the tariff keep their frozen copies.
func (s *TariffService) Update(tariffID uint, req UpdateTariffRequest) (*model.Tariff, error) {
	var tariff model.Tariff
	if err := s.db.First(&tariff, tariffID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch tariff: %w", err)
	}

	if req.Title != nil {
		tariff.Title = *req.Title
	}
	if req.Price != nil {
		tariff.Price = *req.Price
	}
	if req.LimitType != nil {
		tariff.LimitType = *req.LimitType
	}
	if req.LimitValue != nil {
		tariff.LimitValue = *req.LimitValue
	}

	total, err := availableLessonCount(s.db, tariff.CourseID)
	if err != nil {
		return nil, err
	}

	quota, err := ResolveLessonLimit(tariff.LimitType, tariff.LimitValue, total)
	if err != nil {
		return nil, err
	}
	tariff.LessonLimit = quota

	if err := s.db.Save(&tariff).Error; err != nil {
		return nil, fmt.Errorf("failed to update tariff: %w", err)
	}

	return &tariff, nil
}

// RecomputeForCourse refreshes the quotas of every tariff of a course.
// Called after lessons are created, archived or restored.
func (s *TariffService) RecomputeForCourse(tx *gorm.DB, courseID uint) error {
	total, err := availableLessonCount(tx, courseID)
	if err != nil {
		return err
	}

	var tariffs []model.Tariff
	if err := tx.Where("course_id = ?", courseID).Find(&tariffs).Error; err != nil {
		return fmt.Errorf("failed to fetch tariffs: %w", err)
	}

	for i := range tariffs {
		quota, err := ResolveLessonLimit(tariffs[i].LimitType, tariffs[i].LimitValue, total)
		if err != nil {
			// A course that lost lessons can leave a tariff unresolvable
			// (no lessons left, or a count larger than what remains). The
			// old quota stays on record; new sales are blocked at issue
			// time instead.
			if err == ErrNoLessons || err == ErrLimitOutOfRange {
				continue
			}
			return err
		}
		if quota == tariffs[i].LessonLimit {
			continue
		}
		if err := tx.Model(&model.Tariff{}).
			Where("id = ?", tariffs[i].ID).
			Update("lesson_limit", quota).Error; err != nil {
			return fmt.Errorf("failed to update tariff quota: %w", err)
		}
	}

	return nil
}

// ListByCourse returns the tariffs of a course ordered by price
func (s *TariffService) ListByCourse(courseID uint) ([]model.Tariff, error) {
	var tariffs []model.Tariff
	err := s.db.Where("course_id = ?", courseID).
		Order("price ASC").
		Find(&tariffs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tariffs: %w", err)
	}
	return tariffs, nil
}

// Delete soft-deletes a tariff. Existing accesses are untouched.
func (s *TariffService) Delete(tariffID uint) error {
	result := s.db.Delete(&model.Tariff{}, tariffID)
	if result.Error != nil {
		return fmt.Errorf("failed to delete tariff: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
