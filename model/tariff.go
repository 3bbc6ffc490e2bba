package model

import (
	"time"

	"gorm.io/gorm"
)

// Tariff limit types
const (
	LimitTypeCount   = "count"   // fixed number of lessons
	LimitTypePercent = "percent" // percent of the course's lessons
	LimitTypeAll     = "all"     // every lesson of the course
)

// Tariff represents a purchasable access tier for a course.
// LessonLimit is derived from LimitType/LimitValue against the course's
// non-archived lesson count and recomputed on every save, so it tracks the
// course until a tariff is actually sold. A sold access freezes its own copy.
type Tariff struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	CourseID    uint           `gorm:"not null;index" json:"course_id"`
	Title       string         `gorm:"not null" json:"title"`
	Price       float64        `gorm:"not null" json:"price"`
	LimitType   string         `gorm:"type:varchar(10);default:'count';index" json:"limit_type"` // count, percent, all
	LimitValue  uint           `gorm:"default:0" json:"limit_value"`
	LessonLimit uint           `gorm:"not null" json:"lesson_limit"` // resolved quota, managed by the tariff service

	// Relationships
	Course   Course         `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"course,omitempty"`
	Accesses []CourseAccess `gorm:"foreignKey:TariffID" json:"-"`
}

// TableName specifies the table name for Tariff
func (Tariff) TableName() string {
	return "tariffs"
}
