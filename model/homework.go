package model

import (
	"time"

	"gorm.io/gorm"
)

// HomeworkStatus represents the review state of a student submission
type HomeworkStatus string

const (
	HomeworkStatusExamination HomeworkStatus = "examination" // awaiting review
	HomeworkStatusRework      HomeworkStatus = "rework"      // returned to the student
	HomeworkStatusAccepted    HomeworkStatus = "accepted"
	HomeworkStatusDeclined    HomeworkStatus = "declined"
)

// Homework is a student's submission for a lesson. The student may edit the
// content only while the submission is in rework; status changes are
// instructor-only. AcceptedAt is stamped once on the transition into accepted
// and cleared if the instructor moves the submission out of accepted again.
type Homework struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	LessonID uint   `gorm:"not null;index:idx_homeworks_user_lesson" json:"lesson_id"`
	UserID   uint   `gorm:"not null;index:idx_homeworks_user_lesson" json:"user_id"`
	Content  string `gorm:"type:text;not null" json:"content"`

	Status     HomeworkStatus `gorm:"type:varchar(15);default:'examination';index" json:"status"`
	Comment    string         `gorm:"type:text" json:"comment"`
	AcceptedAt *time.Time     `gorm:"index" json:"accepted_at,omitempty"`

	// Relationships
	Lesson Lesson `gorm:"foreignKey:LessonID;constraint:OnDelete:CASCADE" json:"lesson,omitempty"`
	User   User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}

// TableName specifies the table name for Homework
func (Homework) TableName() string {
	return "homeworks"
}
