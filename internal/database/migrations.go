package database

import (
	"time"

	"gorm.io/gorm"

	"github.com/petekamm/teamup/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Event{},
		&models.Participant{},
		&models.Team{},
		&models.TeamMember{},
		&models.Invite{},
		&models.AuditLog{},
	)
}

// SeedData inserts a default event so a fresh install is immediately usable.
func SeedData(db *gorm.DB) error {
	event := models.Event{
		BaseModel: models.BaseModel{ID: "00000000-0000-0000-0000-000000000001"},
		Name:      "TeamUp Demo Hackathon",
		Slug:      "demo",
		StartsAt:  time.Now(),
		EndsAt:    time.Now().Add(48 * time.Hour),
	}

	return db.
		Where(models.Event{BaseModel: models.BaseModel{ID: event.ID}}).
		Attrs(event).
		FirstOrCreate(&models.Event{}).Error
}
