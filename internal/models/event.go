package models

import "time"

// Event is a single hackathon edition. Teams and participants are always
// scoped to exactly one event.
type Event struct {
	BaseModel

	Name     string    `gorm:"not null" json:"name"`
	Slug     string    `gorm:"uniqueIndex;not null" json:"slug"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}
