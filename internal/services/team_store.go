package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/petekamm/teamup/internal/models"
	apperrors "github.com/petekamm/teamup/pkg/errors"
)

// minTeamNameLength is the shortest accepted team name.
const minTeamNameLength = 4

var (
	// ErrTeamNotFound indicates the requested team does not exist.
	ErrTeamNotFound = apperrors.New("TEAM_NOT_FOUND", "Team not found", http.StatusNotFound)
	// ErrTeamNameTooShort rejects names below the minimum length.
	ErrTeamNameTooShort = apperrors.NewBadRequest(
		fmt.Sprintf("team name must be at least %d characters", minTeamNameLength))
)

// TeamPatch describes a partial update of mutable team fields.
type TeamPatch struct {
	Name                *string
	Description         *string
	Contact             *string
	LookingForTeammates *bool
}

// TeamStore is the thin persistence boundary for the Team aggregate.
// Membership and capability guards live in MembershipService, not here.
type TeamStore struct {
	db *gorm.DB
}

// NewTeamStore constructs a TeamStore instance.
func NewTeamStore(db *gorm.DB) (*TeamStore, error) {
	if db == nil {
		return nil, errors.New("team store: db is required")
	}
	return &TeamStore{db: db}, nil
}

// WithTx returns a copy of the store bound to the supplied transaction handle.
func (s *TeamStore) WithTx(tx *gorm.DB) *TeamStore {
	return &TeamStore{db: tx}
}

// Create inserts a new team row after validating its name.
func (s *TeamStore) Create(ctx context.Context, team *models.Team) error {
	ctx = ensureContext(ctx)

	team.Name = strings.TrimSpace(team.Name)
	if len(team.Name) < minTeamNameLength {
		return ErrTeamNameTooShort
	}
	team.Description = strings.TrimSpace(team.Description)
	team.Contact = strings.TrimSpace(team.Contact)

	if err := s.db.WithContext(ctx).Create(team).Error; err != nil {
		return fmt.Errorf("team store: create team: %w", err)
	}
	return nil
}

// Get loads a team by identifier.
func (s *TeamStore) Get(ctx context.Context, id string) (*models.Team, error) {
	ctx = ensureContext(ctx)

	var team models.Team
	err := s.db.WithContext(ctx).First(&team, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTeamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("team store: load team: %w", err)
	}
	return &team, nil
}

// ListByEvent returns teams for an event, optionally only those still looking
// for teammates, ordered by creation time.
func (s *TeamStore) ListByEvent(ctx context.Context, eventID string, lookingOnly bool) ([]models.Team, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("created_at ASC")
	if lookingOnly {
		query = query.Where("looking_for_teammates = ?", true)
	}

	var teams []models.Team
	if err := query.Find(&teams).Error; err != nil {
		return nil, fmt.Errorf("team store: list teams: %w", err)
	}
	return teams, nil
}

// Update applies a partial update to mutable team metadata.
func (s *TeamStore) Update(ctx context.Context, id string, patch TeamPatch) (*models.Team, error) {
	ctx = ensureContext(ctx)

	var team models.Team
	err := s.db.WithContext(ctx).First(&team, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTeamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("team store: load team: %w", err)
	}

	updates := map[string]any{}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if len(name) < minTeamNameLength {
			return nil, ErrTeamNameTooShort
		}
		updates["name"] = name
	}
	if patch.Description != nil {
		updates["description"] = strings.TrimSpace(*patch.Description)
	}
	if patch.Contact != nil {
		updates["contact"] = strings.TrimSpace(*patch.Contact)
	}
	if patch.LookingForTeammates != nil {
		updates["looking_for_teammates"] = *patch.LookingForTeammates
	}

	if len(updates) == 0 {
		return &team, nil
	}

	if err := s.db.WithContext(ctx).Model(&team).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("team store: update team: %w", err)
	}

	if err := s.db.WithContext(ctx).First(&team, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("team store: reload team: %w", err)
	}
	return &team, nil
}

// SetCreator points the team's creator reference at the given membership row.
func (s *TeamStore) SetCreator(ctx context.Context, teamID, memberID string) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Model(&models.Team{}).
		Where("id = ?", teamID).
		Update("creator_id", memberID)
	if result.Error != nil {
		return fmt.Errorf("team store: set creator: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTeamNotFound
	}
	return nil
}

// Delete hard-deletes a team. Dependent members and invites must already be
// gone; the caller owns that ordering.
func (s *TeamStore) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).Delete(&models.Team{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("team store: delete team: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTeamNotFound
	}
	return nil
}
