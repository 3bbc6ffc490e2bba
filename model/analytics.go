package model

import (
	"time"
)

// CourseDailyAnalytics is the per (course, day) rollup. Rollups are derived,
// not authoritative: the event history (accesses, lesson opens, homework
// transitions) is the source of truth and every row here must be reproducible
// from it by the rebuild job.
type CourseDailyAnalytics struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`

	CourseID uint      `gorm:"not null;uniqueIndex:idx_daily_course_date" json:"course_id"`
	Date     time.Time `gorm:"type:date;not null;uniqueIndex:idx_daily_course_date;index" json:"date"`

	Purchases    uint    `gorm:"default:0" json:"purchases"`
	Revenue      float64 `gorm:"default:0" json:"revenue"`
	UniqueBuyers uint    `gorm:"default:0" json:"unique_buyers"` // distinct students activating that day

	OpenedLessons  uint `gorm:"default:0" json:"opened_lessons"`
	ActiveStudents uint `gorm:"default:0" json:"active_students"` // distinct students opening that day

	HomeworksSubmitted uint `gorm:"default:0" json:"homeworks_submitted"`
	HomeworksAccepted  uint `gorm:"default:0" json:"homeworks_accepted"`

	Course Course `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for CourseDailyAnalytics
func (CourseDailyAnalytics) TableName() string {
	return "course_daily_analytics"
}

// CourseAnalytics is the all-time rollup, one row per course
type CourseAnalytics struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"updated_at"`

	CourseID uint `gorm:"not null;uniqueIndex" json:"course_id"`

	TotalPurchases uint    `gorm:"default:0" json:"total_purchases"`
	TotalRevenue   float64 `gorm:"default:0" json:"total_revenue"`
	TotalStudents  uint    `gorm:"default:0" json:"total_students"`

	TotalLessons uint `gorm:"default:0" json:"total_lessons"`
	TotalOpens   uint `gorm:"default:0" json:"total_opens"`

	// opens / (students * lessons), rounded to 4 decimal places
	CompletionRate float64 `gorm:"default:0" json:"completion_rate"`

	Course Course `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"course,omitempty"`
}

// TableName specifies the table name for CourseAnalytics
func (CourseAnalytics) TableName() string {
	return "course_analytics"
}
