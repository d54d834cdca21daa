package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/petekamm/teamup/internal/models"
	apperrors "github.com/petekamm/teamup/pkg/errors"
)

// ErrParticipantNotFound indicates the requested participant does not exist.
var ErrParticipantNotFound = apperrors.NewNotFound("Participant not found")

// ParticipantService lazily materialises participation records. Every user who
// touches an event through a team operation gets exactly one Participant row
// for that event.
type ParticipantService struct {
	db    *gorm.DB
	audit *AuditService
}

// NewParticipantService constructs a ParticipantService instance.
func NewParticipantService(db *gorm.DB, audit *AuditService) (*ParticipantService, error) {
	if db == nil {
		return nil, errors.New("participant service: db is required")
	}
	return &ParticipantService{db: db, audit: audit}, nil
}

// WithTx returns a copy of the service bound to the supplied transaction handle.
func (s *ParticipantService) WithTx(tx *gorm.DB) *ParticipantService {
	return &ParticipantService{db: tx, audit: s.audit}
}

// Ensure returns the participant row for (userID, eventID), creating it if
// absent. The boolean reports whether the row was just created so call sites
// can audit implicit materialisation instead of hiding it. Concurrent calls
// cannot produce duplicates: the unique index on (user_id, event_id) turns a
// lost insert race into a re-read of the winner's row.
func (s *ParticipantService) Ensure(ctx context.Context, userID, eventID string) (*models.Participant, bool, error) {
	ctx = ensureContext(ctx)

	userID = strings.TrimSpace(userID)
	eventID = strings.TrimSpace(eventID)
	if userID == "" || eventID == "" {
		return nil, false, errors.New("participant service: user id and event id are required")
	}

	var participant models.Participant
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND event_id = ?", userID, eventID).
		First(&participant).Error
	if err == nil {
		return &participant, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("participant service: find participant: %w", err)
	}

	participant = models.Participant{UserID: userID, EventID: eventID}
	if err := s.db.WithContext(ctx).Create(&participant).Error; err != nil {
		if isUniqueConstraintError(err) {
			var existing models.Participant
			if readErr := s.db.WithContext(ctx).
				Where("user_id = ? AND event_id = ?", userID, eventID).
				First(&existing).Error; readErr != nil {
				return nil, false, fmt.Errorf("participant service: reread participant: %w", readErr)
			}
			return &existing, false, nil
		}
		return nil, false, fmt.Errorf("participant service: create participant: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &userID,
		Action:   "participant.create",
		Resource: participant.ID,
		Result:   "success",
		Metadata: map[string]any{"event_id": eventID},
	})

	return &participant, true, nil
}

// Get loads a participant by id.
func (s *ParticipantService) Get(ctx context.Context, id string) (*models.Participant, error) {
	ctx = ensureContext(ctx)

	var participant models.Participant
	err := s.db.WithContext(ctx).Preload("User").First(&participant, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrParticipantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("participant service: load participant: %w", err)
	}
	return &participant, nil
}
