package model

import (
	"time"

	"gorm.io/gorm"
)

// User roles
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// User represents a registered user in the system
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"` // Never expose password in JSON
	Name         string         `gorm:"not null" json:"name"`
	Phone        string         `gorm:"type:varchar(100)" json:"phone"`
	Role         string         `gorm:"type:varchar(20);default:'student'" json:"role"` // student, teacher, admin
	TokenVersion int            `gorm:"default:0" json:"-"`                             // Increment to invalidate all user tokens

	// Relationships
	Accesses      []CourseAccess     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Homeworks     []Homework         `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Notifications []UserNotification `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}

// CanTeach reports whether the user may manage courses and lessons
func (u *User) CanTeach() bool {
	return u.Role == RoleTeacher || u.Role == RoleAdmin
}
