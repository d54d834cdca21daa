package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/petekamm/teamup/internal/models"
	apperrors "github.com/petekamm/teamup/pkg/errors"
)

// ErrEventNotFound indicates the requested event does not exist.
var ErrEventNotFound = apperrors.NewNotFound("Event not found")

// EventService exposes read access to hackathon events.
type EventService struct {
	db *gorm.DB
}

// NewEventService constructs an EventService instance.
func NewEventService(db *gorm.DB) (*EventService, error) {
	if db == nil {
		return nil, errors.New("event service: db is required")
	}
	return &EventService{db: db}, nil
}

// List returns all events ordered by start time.
func (s *EventService) List(ctx context.Context) ([]models.Event, error) {
	ctx = ensureContext(ctx)

	var events []models.Event
	if err := s.db.WithContext(ctx).Order("starts_at ASC").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("event service: list events: %w", err)
	}
	return events, nil
}

// Get loads an event by identifier.
func (s *EventService) Get(ctx context.Context, id string) (*models.Event, error) {
	ctx = ensureContext(ctx)

	var event models.Event
	err := s.db.WithContext(ctx).First(&event, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("event service: load event: %w", err)
	}
	return &event, nil
}
