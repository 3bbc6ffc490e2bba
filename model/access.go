package model

import (
	"time"

	"gorm.io/gorm"
)

// CourseAccess is an entitlement: one user's perpetual right to consume up to
// LessonLimit lessons of one course under one tariff. It is minted unbound
// (UserID nil) with a redemption token, bound exactly once on activation, and
// consumed incrementally through lesson opens. LessonLimit and Price are
// frozen copies taken from the tariff at issue time; later tariff edits never
// change what an existing buyer is owed.
type CourseAccess struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UserID   *uint `gorm:"uniqueIndex:idx_access_user_course" json:"user_id,omitempty"`
	CourseID uint  `gorm:"not null;index;uniqueIndex:idx_access_user_course" json:"course_id"`
	TariffID uint  `gorm:"not null;index" json:"tariff_id"`

	// Bearer secret redeemed once to bind the access to a user
	Token    string `gorm:"type:varchar(64);uniqueIndex;not null" json:"-"`
	IsActive bool   `gorm:"default:true" json:"is_active"`

	LessonLimit uint    `gorm:"not null" json:"lesson_limit"` // frozen at issue time
	Price       float64 `gorm:"not null" json:"price"`        // frozen tariff price at issue time
	UsedLessons uint    `gorm:"default:0" json:"used_lessons"`

	ActivatedAt *time.Time `gorm:"index" json:"activated_at,omitempty"`

	// Relationships
	User   *User  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Course Course `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"course,omitempty"`
	Tariff Tariff `gorm:"foreignKey:TariffID" json:"tariff,omitempty"`
	Opens  []LessonOpen `gorm:"foreignKey:AccessID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for CourseAccess
func (CourseAccess) TableName() string {
	return "course_accesses"
}

// Remaining returns how many distinct lessons the access may still open
func (a *CourseAccess) Remaining() uint {
	if a.UsedLessons >= a.LessonLimit {
		return 0
	}
	return a.LessonLimit - a.UsedLessons
}

// LessonOpen is the durable idempotency marker proving an access has already
// consumed a lesson. Rows are created at most once per (access, lesson) and
// never updated or deleted.
type LessonOpen struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	AccessID uint      `gorm:"not null;index;uniqueIndex:idx_open_access_lesson" json:"access_id"`
	LessonID uint      `gorm:"not null;index;uniqueIndex:idx_open_access_lesson" json:"lesson_id"`
	OpenedAt time.Time `gorm:"autoCreateTime;index" json:"opened_at"`

	// Relationships
	Access CourseAccess `gorm:"foreignKey:AccessID;constraint:OnDelete:CASCADE" json:"-"`
	Lesson Lesson       `gorm:"foreignKey:LessonID;constraint:OnDelete:CASCADE" json:"lesson,omitempty"`
}

// TableName specifies the table name for LessonOpen
func (LessonOpen) TableName() string {
	return "lesson_opens"
}
