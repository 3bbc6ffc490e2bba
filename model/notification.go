package model

import (
	"time"

	"gorm.io/gorm"
)

// NotificationType categorizes user notifications
type NotificationType string

const (
	NotificationHomeworkReviewed NotificationType = "homework_reviewed"
	NotificationAccessActivated  NotificationType = "access_activated"
	NotificationAccessDisabled   NotificationType = "access_disabled"
)

// UserNotification is an in-app notification for a student
type UserNotification struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UserID  uint             `gorm:"not null;index" json:"user_id"`
	Type    NotificationType `gorm:"type:varchar(30);not null" json:"type"`
	Title   string           `gorm:"type:varchar(255);not null" json:"title"`
	Message string           `gorm:"type:text" json:"message"`
	IsRead  bool             `gorm:"default:false;index" json:"is_read"`

	// Optional references back to the subject of the notification
	CourseID   *uint `json:"course_id,omitempty"`
	LessonID   *uint `json:"lesson_id,omitempty"`
	HomeworkID *uint `json:"homework_id,omitempty"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for UserNotification
func (UserNotification) TableName() string {
	return "user_notifications"
}
