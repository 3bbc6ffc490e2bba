package database

import (
	"fmt"
	"log"
	"os"

	"gorm.io/gorm"

	"github.com/bektursun/kursplatform/model"
	"github.com/bektursun/kursplatform/utils/auth"
)

// RunSeeds populates initial data: the site settings row, an admin user
// from ADMIN_EMAIL/ADMIN_PASSWORD and a default category. Safe to run more
// than once.
func RunSeeds(db *gorm.DB) error {
	if err := seedSettings(db); err != nil {
		return err
	}
	if err := seedAdmin(db); err != nil {
		return err
	}
	if err := seedDefaultCategory(db); err != nil {
		return err
	}
	return nil
}

func seedSettings(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.SiteSettings{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check settings: %w", err)
	}
	if count > 0 {
		return nil
	}

	settings := model.SiteSettings{Title: "Course Platform"}
	if err := db.Create(&settings).Error; err != nil {
		return fmt.Errorf("failed to seed settings: %w", err)
	}
	log.Println("Seeded site settings")
	return nil
}

func seedAdmin(db *gorm.DB) error {
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		log.Println("ADMIN_EMAIL or ADMIN_PASSWORD not set, skipping admin user")
		return nil
	}

	var existing model.User
	if err := db.Where("email = ?", email).First(&existing).Error; err == nil {
		return nil
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := model.User{
		Email:        email,
		PasswordHash: hashed,
		Name:         "Administrator",
		Role:         model.RoleAdmin,
	}
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}
	log.Printf("Seeded admin user %s", email)
	return nil
}

func seedDefaultCategory(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.Category{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check categories: %w", err)
	}
	if count > 0 {
		return nil
	}

	category := model.Category{Name: "General", Description: "Uncategorized courses"}
	if err := db.Create(&category).Error; err != nil {
		return fmt.Errorf("failed to seed category: %w", err)
	}
	log.Println("Seeded default category")
	return nil
}
