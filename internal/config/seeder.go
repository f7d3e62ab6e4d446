package config

import (
	"log"

	"librahub/internal/adapters/persistence/models"
	"librahub/internal/pkg/password"

	"gorm.io/gorm"
)

// Seeder handles database seeding
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// Run executes all seeders
func (s *Seeder) Run() error {
	log.Println("🌱 Running database seeders...")

	if err := s.seedAdminUser(); err != nil {
		log.Printf("⚠️ Admin seeder skipped: %v", err)
	}
	if err := s.seedCategories(); err != nil {
		log.Printf("⚠️ Category seeder skipped: %v", err)
	}

	log.Println("✅ Database seeding completed")
	return nil
}

// seedAdminUser seeds default admin user
// This is for development/testing only
// In production, create admin through secure process
func (s *Seeder) seedAdminUser() error {
	var count int64
	s.db.Model(&models.User{}).Where("role = ?", "ADMIN").Count(&count)
	if count > 0 {
		return nil // Admin already exists
	}

	hashedPassword, err := password.Hash("admin123456")
	if err != nil {
		return err
	}

	admin := &models.User{
		Username: "admin",
		Email:    "admin@librahub.local",
		Password: hashedPassword,
		Role:     "ADMIN",
		IsActive: true,
	}

	if err := s.db.Create(admin).Error; err != nil {
		return err
	}

	log.Printf("✅ Admin user created: %s", admin.Username)
	return nil
}

// seedCategories seeds default book categories
func (s *Seeder) seedCategories() error {
	var count int64
	s.db.Model(&models.Category{}).Count(&count)
	if count > 0 {
		return nil // Categories already exist
	}

	categories := []models.Category{
		{Name: "Fiction", Description: "Novels and short stories"},
		{Name: "Non-Fiction", Description: "Biography, history and essays"},
		{Name: "Science", Description: "Science and mathematics"},
		{Name: "Technology", Description: "Computing and engineering"},
		{Name: "Children", Description: "Books for young readers"},
	}

	if err := s.db.Create(&categories).Error; err != nil {
		return err
	}

	log.Printf("✅ Seeded %d book categories", len(categories))
	return nil
}
