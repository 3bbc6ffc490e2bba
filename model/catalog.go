package model

import (
	"time"

	"gorm.io/gorm"
)

// SiteSettings holds the single row of public site configuration
type SiteSettings struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	Title          string    `gorm:"type:varchar(255)" json:"title"`
	Description    string    `gorm:"type:text" json:"description"`
	LogoURL        string    `gorm:"type:text" json:"logo_url"`
	BannerURL      string    `gorm:"type:text" json:"banner_url"`
	WhatsappNumber string    `gorm:"type:varchar(100)" json:"whatsapp_number"`
}

// TableName specifies the table name for SiteSettings
func (SiteSettings) TableName() string {
	return "site_settings"
}

// Category groups courses on the public catalog
type Category struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	Name        string         `gorm:"not null;index" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	PhotoURL    string         `gorm:"type:text" json:"photo_url"`

	// Relationships
	Courses []Course `gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE" json:"courses,omitempty"`
}

// TableName specifies the table name for Category
func (Category) TableName() string {
	return "categories"
}

// Course represents a sellable course in the catalog
type Course struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	CategoryID   uint           `gorm:"not null;index" json:"category_id"`
	InstructorID *uint          `gorm:"index" json:"instructor_id,omitempty"`
	Title        string         `gorm:"not null;index" json:"title"`
	Description  string         `gorm:"type:text" json:"description"`
	PhotoURL     string         `gorm:"type:text" json:"photo_url"`

	// Relationships
	Category   Category       `gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE" json:"category,omitempty"`
	Instructor *User          `gorm:"foreignKey:InstructorID;constraint:OnDelete:SET NULL" json:"instructor,omitempty"`
	Lessons    []Lesson       `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"lessons,omitempty"`
	Tariffs    []Tariff       `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"tariffs,omitempty"`
	Accesses   []CourseAccess `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for Course
func (Course) TableName() string {
	return "courses"
}
