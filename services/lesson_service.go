package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/bektursun/kursplatform/model"
	"github.com/bektursun/kursplatform/services/videohost"
)

// videoGracePeriod is how long after upload a video may be missing from the
// host before the lesson is marked failed. Providers index new uploads with
// a delay.
const videoGracePeriod = 600 * time.Second

// LessonService manages lessons and their video hosting lifecycle
type LessonService struct {
	db      *gorm.DB
	host    videohost.Host
	tariffs *TariffService
	nowFn   func() time.Time
}

// NewLessonService creates a new lesson service
func NewLessonService(db *gorm.DB, host videohost.Host, tariffs *TariffService) *LessonService {
	return &LessonService{
		db:      db,
		host:    host,
		tariffs: tariffs,
		nowFn:   time.Now,
	}
}

// CreateLessonRequest represents the request to create a lesson
type CreateLessonRequest struct {
	CourseID    uint   `json:"course_id" validate:"required"`
	Title       string `json:"title" validate:"required,min=1,max=255"`
	Description string `json:"description"`
	Order       uint   `json:"order"`

	HomeworkTitle       string `json:"homework_title" validate:"omitempty,max=255"`
	HomeworkDescription string `json:"homework_description"`
	HomeworkLink        string `json:"homework_link" validate:"omitempty,url"`
}

// Create stores a new lesson without video and refreshes the course's
// tariff quotas to account for the larger lesson count.
func (s *LessonService) Create(req CreateLessonRequest) (*model.Lesson, error) {
	var course model.Course
	if err := s.db.First(&course, req.CourseID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch course: %w", err)
	}

	lesson := model.Lesson{
		CourseID:            req.CourseID,
		Title:               req.Title,
		Description:         req.Description,
		Order:               req.Order,
		VideoStatus:         model.VideoStatusIdle,
		HomeworkTitle:       req.HomeworkTitle,
		HomeworkDescription: req.HomeworkDescription,
		HomeworkLink:        req.HomeworkLink,
	}
	if lesson.Order == 0 {
		var maxOrder *uint
		s.db.Model(&model.Lesson{}).
			Where("course_id = ?", req.CourseID).
			Select("MAX(position)").Scan(&maxOrder)
		if maxOrder != nil {
			lesson.Order = *maxOrder + 1
		} else {
			lesson.Order = 1
		}
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

	if err := tx.Create(&lesson).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create lesson: %w", err)
	}

	if err := s.tariffs.RecomputeForCourse(tx, req.CourseID); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit lesson: %w", err)
	}

	return &lesson, nil
}

// AttachVideo uploads a video for the lesson and records the host's video
// ID. The upload runs outside any transaction; if it fails, the lesson row
// survives in error state and the upload can be retried.
func (s *LessonService) AttachVideo(ctx context.Context, lessonID uint, upload videohost.UploadRequest) (*model.Lesson, error) {
	var lesson model.Lesson
	if err := s.db.First(&lesson, lessonID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch lesson: %w", err)
	}

	if upload.Title == "" {
		upload.Title = lesson.Title
	}

	// Mark the lesson uploading before the slow network call so a
	// concurrent cabinet view sees the in-flight state.
	err := s.db.Model(&lesson).Updates(map[string]interface{}{
		"video_status": model.VideoStatusUploading,
		"video_error":  "",
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update lesson: %w", err)
	}

	video, uploadErr := s.host.Upload(ctx, upload)
	now := s.nowFn()

	if uploadErr != nil {
		updates := map[string]interface{}{
			"video_status": model.VideoStatusError,
			"video_error":  uploadErr.Error(),
		}
		if err := s.db.Model(&lesson).Updates(updates).Error; err != nil {
			log.Printf("failed to record upload failure for lesson %d: %v", lessonID, err)
		}
		lesson.VideoStatus = model.VideoStatusError
		lesson.VideoError = uploadErr.Error()
		return &lesson, fmt.Errorf("video upload failed: %w", uploadErr)
	}

	updates := map[string]interface{}{
		"video_id":          video.ID,
		"video_status":      model.VideoStatusProcessing,
		"video_error":       "",
		"video_uploaded_at": now,
	}
	if err := s.db.Model(&lesson).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to record upload: %w", err)
	}

	lesson.VideoID = video.ID
	lesson.VideoStatus = model.VideoStatusProcessing
	lesson.VideoError = ""
	lesson.VideoUploadedAt = &now
	return &lesson, nil
}

// RefreshVideoStatus polls the host for one lesson's video and applies the
// resulting state. A video the host cannot find stays in processing during
// the grace period after upload, then flips to error.
func (s *LessonService) RefreshVideoStatus(ctx context.Context, lessonID uint) (*model.Lesson, error) {
	var lesson model.Lesson
	if err := s.db.First(&lesson, lessonID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch lesson: %w", err)
	}

	if lesson.VideoID == "" {
		return &lesson, nil
	}

	video, err := s.host.GetVideo(ctx, lesson.VideoID)
	if err != nil {
		if err == videohost.ErrVideoNotFound {
			return s.applyMissingVideo(&lesson)
		}
		return nil, fmt.Errorf("video status check failed: %w", err)
	}

	return s.applyVideoState(&lesson, video)
}

func (s *LessonService) applyMissingVideo(lesson *model.Lesson) (*model.Lesson, error) {
	inGrace := lesson.VideoUploadedAt != nil &&
		s.nowFn().Sub(*lesson.VideoUploadedAt) < videoGracePeriod

	if inGrace {
		if lesson.VideoStatus != model.VideoStatusProcessing {
			if err := s.db.Model(lesson).
				Update("video_status", model.VideoStatusProcessing).Error; err != nil {
				return nil, fmt.Errorf("failed to update lesson: %w", err)
			}
			lesson.VideoStatus = model.VideoStatusProcessing
		}
		return lesson, nil
	}

	updates := map[string]interface{}{
		"video_status": model.VideoStatusError,
		"video_error":  "video not found on hosting provider",
	}
	if err := s.db.Model(lesson).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update lesson: %w", err)
	}
	lesson.VideoStatus = model.VideoStatusError
	lesson.VideoError = "video not found on hosting provider"
	return lesson, nil
}

func (s *LessonService) applyVideoState(lesson *model.Lesson, video *videohost.Video) (*model.Lesson, error) {
	var updates map[string]interface{}

	switch video.State {
	case videohost.StateSucceeded:
		updates = map[string]interface{}{
			"video_status":   model.VideoStatusReady,
			"video_url":      video.PlaybackURL,
			"video_duration": video.Duration,
			"video_error":    "",
		}
		lesson.VideoStatus = model.VideoStatusReady
		lesson.VideoURL = video.PlaybackURL
		lesson.VideoDuration = video.Duration
		lesson.VideoError = ""
	case videohost.StateFailed:
		updates = map[string]interface{}{
			"video_status": model.VideoStatusError,
			"video_error":  video.Error,
		}
		lesson.VideoStatus = model.VideoStatusError
		lesson.VideoError = video.Error
	default:
		if lesson.VideoStatus == model.VideoStatusProcessing {
			return lesson, nil
		}
		updates = map[string]interface{}{
			"video_status": model.VideoStatusProcessing,
		}
		lesson.VideoStatus = model.VideoStatusProcessing
	}

	if err := s.db.Model(lesson).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update lesson: %w", err)
	}
	return lesson, nil
}

// RefreshPendingVideos polls the host for every lesson awaiting processing.
// Returns how many lessons were checked. Used by the periodic sweep.
func (s *LessonService) RefreshPendingVideos(ctx context.Context) (int, error) {
	var lessons []model.Lesson
	err := s.db.Where("video_status IN ?", []model.VideoStatus{
		model.VideoStatusProcessing,
		model.VideoStatusUploading,
	}).Where("video_id <> ''").Find(&lessons).Error
	if err != nil {
		return 0, fmt.Errorf("failed to list pending lessons: %w", err)
	}

	checked := 0
	for i := range lessons {
		if _, err := s.RefreshVideoStatus(ctx, lessons[i].ID); err != nil {
			log.Printf("video status refresh failed for lesson %d: %v", lessons[i].ID, err)
			continue
		}
		checked++
	}
	return checked, nil
}

// UpdateLessonRequest represents the request to update a lesson
type UpdateLessonRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description"`
	Order       *uint   `json:"order"`

	HomeworkTitle       *string `json:"homework_title" validate:"omitempty,max=255"`
	HomeworkDescription *string `json:"homework_description"`
	HomeworkLink        *string `json:"homework_link" validate:"omitempty,url"`
}

// Update applies partial changes to a lesson
func (s *LessonService) Update(lessonID uint, req UpdateLessonRequest) (*model.Lesson, error) {
	var lesson model.Lesson
	if err := s.db.First(&lesson, lessonID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch lesson: %w", err)
	}

	if req.Title != nil {
		lesson.Title = *req.Title
	}
	if req.Description != nil {
		lesson.Description = *req.Description
	}
	if req.Order != nil {
		lesson.Order = *req.Order
	}
	if req.HomeworkTitle != nil {
		lesson.HomeworkTitle = *req.HomeworkTitle
	}
	if req.HomeworkDescription != nil {
		lesson.HomeworkDescription = *req.HomeworkDescription
	}
	if req.HomeworkLink != nil {
		lesson.HomeworkLink = *req.HomeworkLink
	}

	if err := s.db.Save(&lesson).Error; err != nil {
		return nil, fmt.Errorf("failed to update lesson: %w", err)
	}
	return &lesson, nil
}

// SetArchived archives or restores a lesson and refreshes the course's
// tariff quotas against the new available lesson count. Existing accesses
// keep their frozen quotas either way.
func (s *LessonService) SetArchived(lessonID, byUserID uint, archived bool) (*model.Lesson, error) {
	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var lesson model.Lesson
	if err := lockForUpdate(tx).First(&lesson, lessonID).Error; err != nil {
		tx.Rollback()
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch lesson: %w", err)
	}

	if lesson.IsArchived == archived {
		tx.Rollback()
		return &lesson, nil
	}

	if archived {
		lesson.Archive(byUserID, s.nowFn())
	} else {
		lesson.Unarchive()
	}

	if err := tx.Save(&lesson).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update lesson: %w", err)
	}

	if err := s.tariffs.RecomputeForCourse(tx, lesson.CourseID); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return &lesson, nil
}

// ListByCourse returns the course's lessons in order. When includeArchived
// is false, archived lessons are filtered out.
func (s *LessonService) ListByCourse(courseID uint, includeArchived bool) ([]model.Lesson, error) {
	archived := ArchivedFilterActive
	if includeArchived {
		archived = ArchivedFilterAll
	}
	return s.List(ListLessonsRequest{CourseID: courseID, Archived: archived})
}

// Archived filter modes for lesson listings
const (
	ArchivedFilterActive   = "active"
	ArchivedFilterArchived = "archived"
	ArchivedFilterAll      = "all"
)

// ListLessonsRequest filters the cabinet lesson listing
type ListLessonsRequest struct {
	CourseID uint
	Archived string // active (default), archived, all
	Search   string // title substring
}

// List returns lessons in position order, filtered by archival state and an
// optional title search.
func (s *LessonService) List(req ListLessonsRequest) ([]model.Lesson, error) {
	q := s.db.Model(&model.Lesson{})
	if req.CourseID != 0 {
		q = q.Where("course_id = ?", req.CourseID)
	}

	switch req.Archived {
	case ArchivedFilterAll:
	case ArchivedFilterArchived:
		q = q.Where("is_archived = ?", true)
	default:
		q = q.Where("is_archived = ?", false)
	}

	if req.Search != "" {
		q = q.Where("title LIKE ?", "%"+req.Search+"%")
	}

	var lessons []model.Lesson
	if err := q.Order("position ASC, id ASC").Find(&lessons).Error; err != nil {
		return nil, fmt.Errorf("failed to list lessons: %w", err)
	}
	return lessons, nil
}

// Get returns one lesson
func (s *LessonService) Get(lessonID uint) (*model.Lesson, error) {
	var lesson model.Lesson
	if err := s.db.First(&lesson, lessonID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch lesson: %w", err)
	}
	return &lesson, nil
}
