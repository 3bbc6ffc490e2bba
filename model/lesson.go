package model

import (
	"time"

	"gorm.io/gorm"
)

// VideoStatus represents the hosting lifecycle of a lesson's video
type VideoStatus string

const (
	VideoStatusIdle       VideoStatus = "idle"
	VideoStatusUploading  VideoStatus = "uploading"
	VideoStatusProcessing VideoStatus = "processing"
	VideoStatusReady      VideoStatus = "ready"
	VideoStatusError      VideoStatus = "error"
)

// Lesson represents a single video lesson inside a course.
// Order is the position used for "first N lessons" tariff semantics.
type Lesson struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	CourseID    uint           `gorm:"not null;index:idx_lessons_course_archived;index:idx_lessons_course_order" json:"course_id"`
	Title       string         `gorm:"not null;index" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Order       uint           `gorm:"column:position;default:0;index:idx_lessons_course_order" json:"order"`

	// Video hosting lifecycle
	VideoID         string        `gorm:"type:varchar(64)" json:"video_id"`
	VideoURL        string        `gorm:"type:text" json:"video_url"`
	VideoStatus     VideoStatus   `gorm:"type:varchar(12);default:'idle';index" json:"video_status"`
	VideoError      string        `gorm:"type:text" json:"video_error,omitempty"`
	VideoUploadedAt *time.Time    `json:"video_uploaded_at,omitempty"`
	VideoDuration   time.Duration `gorm:"default:0" json:"video_duration"`

	// Archive (reversible, stamped)
	IsArchived   bool       `gorm:"default:false;index:idx_lessons_course_archived" json:"is_archived"`
	ArchivedAt   *time.Time `json:"archived_at,omitempty"`
	ArchivedByID *uint      `json:"archived_by_id,omitempty"`

	// Homework attached by the instructor to the lesson
	HomeworkTitle       string `gorm:"type:varchar(255)" json:"homework_title"`
	HomeworkDescription string `gorm:"type:text" json:"homework_description"`
	HomeworkLink        string `gorm:"type:text" json:"homework_link"`
	HomeworkFileURL     string `gorm:"type:text" json:"homework_file_url"`

	// Relationships
	Course     Course     `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"course,omitempty"`
	ArchivedBy *User      `gorm:"foreignKey:ArchivedByID;constraint:OnDelete:SET NULL" json:"-"`
	Opens      []LessonOpen `gorm:"foreignKey:LessonID;constraint:OnDelete:CASCADE" json:"-"`
	Homeworks  []Homework   `gorm:"foreignKey:LessonID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for Lesson
func (Lesson) TableName() string {
	return "lessons"
}

// Archive marks the lesson archived and stamps who did it
func (l *Lesson) Archive(byUserID uint, at time.Time) {
	if l.IsArchived {
		return
	}
	l.IsArchived = true
	l.ArchivedAt = &at
	l.ArchivedByID = &byUserID
}

// Unarchive restores an archived lesson
func (l *Lesson) Unarchive() {
	if !l.IsArchived {
		return
	}
	l.IsArchived = false
	l.ArchivedAt = nil
	l.ArchivedByID = nil
}
