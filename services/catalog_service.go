package services

import (
	"context"
	"fmt"
	"io"
	"log"

	"gorm.io/gorm"

	"github.com/bektursun/kursplatform/model"
	"github.com/bektursun/kursplatform/services/storage"
)

// CatalogService manages the public catalog: site settings, categories and
// courses. Photo uploads go through object storage when it is configured.
type CatalogService struct {
	db      *gorm.DB
	storage *storage.Client
}

// NewCatalogService creates a new catalog service. storageClient may be nil;
// photo uploads then return an error.
func NewCatalogService(db *gorm.DB, storageClient *storage.Client) *CatalogService {
	return &CatalogService{db: db, storage: storageClient}
}

// Settings returns the site settings singleton, creating it on first read
func (s *CatalogService) Settings() (*model.SiteSettings, error) {
	var settings model.SiteSettings
	err := s.db.First(&settings).Error
	if err == nil {
		return &settings, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("failed to fetch settings: %w", err)
	}

	settings = model.SiteSettings{Title: "Course Platform"}
	if err := s.db.Create(&settings).Error; err != nil {
		return nil, fmt.Errorf("failed to create settings: %w", err)
	}
	return &settings, nil
}

// UpdateSettingsRequest represents the request to update site settings
type UpdateSettingsRequest struct {
	Title          *string `json:"title" validate:"omitempty,max=255"`
	Description    *string `json:"description"`
	WhatsappNumber *string `json:"whatsapp_number" validate:"omitempty,max=100"`
}

// UpdateSettings applies partial changes to the site settings singleton
func (s *CatalogService) UpdateSettings(req UpdateSettingsRequest) (*model.SiteSettings, error) {
	settings, err := s.Settings()
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		settings.Title = *req.Title
	}
	if req.Description != nil {
		settings.Description = *req.Description
	}
	if req.WhatsappNumber != nil {
		settings.WhatsappNumber = *req.WhatsappNumber
	}

	if err := s.db.Save(settings).Error; err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}
	return settings, nil
}

// uploadPhoto stores an image and returns its public URL
func (s *CatalogService) uploadPhoto(ctx context.Context, prefix, filename string, body io.Reader) (string, error) {
	if s.storage == nil {
		return "", fmt.Errorf("object storage is not configured")
	}
	key := storage.GenerateKey(prefix, filename)
	url, err := s.storage.Upload(ctx, key, body, storage.GetContentType(filename))
	if err != nil {
		return "", err
	}
	return url, nil
}

// SetSettingsImage uploads the logo or banner and stores its URL
func (s *CatalogService) SetSettingsImage(ctx context.Context, field, filename string, body io.Reader) (*model.SiteSettings, error) {
	settings, err := s.Settings()
	if err != nil {
		return nil, err
	}

	url, err := s.uploadPhoto(ctx, "site", filename, body)
	if err != nil {
		return nil, err
	}

	switch field {
	case "logo":
		settings.LogoURL = url
	case "banner":
		settings.BannerURL = url
	default:
		return nil, fmt.Errorf("unknown settings image %q", field)
	}

	if err := s.db.Save(settings).Error; err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}
	return settings, nil
}

// CreateCategory stores a new category
func (s *CatalogService) CreateCategory(name, description string) (*model.Category, error) {
	category := model.Category{Name: name, Description: description}
	if err := s.db.Create(&category).Error; err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return &category, nil
}

// UpdateCategory applies changes to a category
func (s *CatalogService) UpdateCategory(categoryID uint, name, description *string) (*model.Category, error) {
	var category model.Category
	if err := s.db.First(&category, categoryID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch category: %w", err)
	}

	if name != nil {
		category.Name = *name
	}
	if description != nil {
		category.Description = *description
	}

	if err := s.db.Save(&category).Error; err != nil {
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	return &category, nil
}

// SetCategoryPhoto uploads a category photo and stores its URL
func (s *CatalogService) SetCategoryPhoto(ctx context.Context, categoryID uint, filename string, body io.Reader) (*model.Category, error) {
	var category model.Category
	if err := s.db.First(&category, categoryID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch category: %w", err)
	}

	url, err := s.uploadPhoto(ctx, fmt.Sprintf("categories/%d", categoryID), filename, body)
	if err != nil {
		return nil, err
	}

	category.PhotoURL = url
	if err := s.db.Save(&category).Error; err != nil {
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	return &category, nil
}

// DeleteCategory soft-deletes a category. Categories with courses refuse.
func (s *CatalogService) DeleteCategory(categoryID uint) error {
	var count int64
	if err := s.db.Model(&model.Course{}).
		Where("category_id = ?", categoryID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count courses: %w", err)
	}
	if count > 0 {
		return ErrForbidden
	}

	result := s.db.Delete(&model.Category{}, categoryID)
	if result.Error != nil {
		return fmt.Errorf("failed to delete category: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListCategories returns every category with its courses
func (s *CatalogService) ListCategories() ([]model.Category, error) {
	var categories []model.Category
	err := s.db.Preload("Courses").Order("name ASC").Find(&categories).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// CreateCourseRequest represents the request to create a course
type CreateCourseRequest struct {
	CategoryID  uint   `json:"category_id" validate:"required"`
	Title       string `json:"title" validate:"required,min=1,max=255"`
	Description string `json:"description"`
}

// CreateCourse stores a new course owned by the given instructor
func (s *CatalogService) CreateCourse(instructorID uint, req CreateCourseRequest) (*model.Course, error) {
	var category model.Category
	if err := s.db.First(&category, req.CategoryID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch category: %w", err)
	}

	course := model.Course{
		CategoryID:   req.CategoryID,
		InstructorID: &instructorID,
		Title:        req.Title,
		Description:  req.Description,
	}
	if err := s.db.Create(&course).Error; err != nil {
		return nil, fmt.Errorf("failed to create course: %w", err)
	}
	return &course, nil
}

// UpdateCourseRequest represents the request to update a course
type UpdateCourseRequest struct {
	CategoryID  *uint   `json:"category_id"`
	Title       *string `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description"`
}

// UpdateCourse applies partial changes to a course
func (s *CatalogService) UpdateCourse(courseID uint, req UpdateCourseRequest) (*model.Course, error) {
	var course model.Course
	if err := s.db.First(&course, courseID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch course: %w", err)
	}

	if req.CategoryID != nil {
		course.CategoryID = *req.CategoryID
	}
	if req.Title != nil {
		course.Title = *req.Title
	}
	if req.Description != nil {
		course.Description = *req.Description
	}

	if err := s.db.Save(&course).Error; err != nil {
		return nil, fmt.Errorf("failed to update course: %w", err)
	}
	return &course, nil
}

// SetCoursePhoto uploads a course photo and stores its URL
func (s *CatalogService) SetCoursePhoto(ctx context.Context, courseID uint, filename string, body io.Reader) (*model.Course, error) {
	var course model.Course
	if err := s.db.First(&course, courseID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch course: %w", err)
	}

	url, err := s.uploadPhoto(ctx, fmt.Sprintf("courses/%d", courseID), filename, body)
	if err != nil {
		return nil, err
	}

	course.PhotoURL = url
	if err := s.db.Save(&course).Error; err != nil {
		return nil, fmt.Errorf("failed to update course: %w", err)
	}
	return &course, nil
}

// DeleteCourse soft-deletes a course
func (s *CatalogService) DeleteCourse(courseID uint) error {
	result := s.db.Delete(&model.Course{}, courseID)
	if result.Error != nil {
		return fmt.Errorf("failed to delete course: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	log.Printf("course %d deleted", courseID)
	return nil
}

// ListCourses returns courses, optionally filtered by category and instructor
func (s *CatalogService) ListCourses(categoryID, instructorID uint) ([]model.Course, error) {
	q := s.db.Preload("Category")
	if categoryID != 0 {
		q = q.Where("category_id = ?", categoryID)
	}
	if instructorID != 0 {
		q = q.Where("instructor_id = ?", instructorID)
	}

	var courses []model.Course
	if err := q.Order("title ASC").Find(&courses).Error; err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	return courses, nil
}

// GetCourse returns one course with its public detail preloaded
func (s *CatalogService) GetCourse(courseID uint) (*model.Course, error) {
	var course model.Course
	err := s.db.Preload("Category").
		Preload("Tariffs", func(db *gorm.DB) *gorm.DB {
			return db.Order("tariffs.price ASC")
		}).
		First(&course, courseID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch course: %w", err)
	}
	return &course, nil
}
