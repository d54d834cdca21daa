package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/petekamm/teamup/internal/models"
	"github.com/petekamm/teamup/pkg/crypto"
	apperrors "github.com/petekamm/teamup/pkg/errors"
)

const (
	defaultInviteCodeLength = 10
	// codeGenerationAttempts bounds collision retries. With a 31-character
	// alphabet at length 10 a single collision is already implausible.
	codeGenerationAttempts = 5
)

// ErrInviteNotFound indicates no live invite matches the provided code.
var ErrInviteNotFound = apperrors.New("INVITE_NOT_FOUND", "Invite code not found", http.StatusNotFound)

// InviteOption customises InviteService behaviour.
type InviteOption func(*InviteService)

// WithInviteBaseURL configures the base URL used to build invite links.
func WithInviteBaseURL(url string) InviteOption {
	return func(s *InviteService) {
		s.baseURL = strings.TrimRight(url, "/")
	}
}

// WithInviteCodeLength adjusts the generated code length.
func WithInviteCodeLength(length int) InviteOption {
	return func(s *InviteService) {
		if length > 0 {
			s.codeLength = length
		}
	}
}

// InviteService issues, resolves, and rotates invite codes. A team has at
// most one live invite at any time. Authorization is the coordinator's job;
// this service is a persistence boundary plus code generation.
type InviteService struct {
	db         *gorm.DB
	baseURL    string
	codeLength int
}

// NewInviteService constructs an InviteService with the provided dependencies.
func NewInviteService(db *gorm.DB, opts ...InviteOption) (*InviteService, error) {
	if db == nil {
		return nil, errors.New("invite service: db is required")
	}

	service := &InviteService{
		db:         db,
		codeLength: defaultInviteCodeLength,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// WithTx returns a copy of the service bound to the supplied transaction handle.
func (s *InviteService) WithTx(tx *gorm.DB) *InviteService {
	return &InviteService{db: tx, baseURL: s.baseURL, codeLength: s.codeLength}
}

// GetOrCreate returns the team's single live invite code, generating one if
// none exists. Calling it twice without a rotation returns the same code.
func (s *InviteService) GetOrCreate(ctx context.Context, teamID string) (string, error) {
	ctx = ensureContext(ctx)

	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return "", errors.New("invite service: team id is required")
	}

	var invite models.Invite
	err := s.db.WithContext(ctx).Where("team_id = ?", teamID).First(&invite).Error
	if err == nil {
		return invite.Code, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("invite service: find invite: %w", err)
	}

	return s.create(ctx, teamID)
}

// ResolveTeam returns the team id a live code belongs to.
func (s *InviteService) ResolveTeam(ctx context.Context, code string) (string, error) {
	ctx = ensureContext(ctx)

	invite, err := s.find(ctx, code)
	if err != nil {
		return "", err
	}
	return invite.TeamID, nil
}

// Rotate deletes the invite identified by code and issues a fresh one for the
// same team. The old code stops resolving the moment the surrounding
// transaction commits.
func (s *InviteService) Rotate(ctx context.Context, code string) (string, error) {
	ctx = ensureContext(ctx)

	invite, err := s.find(ctx, code)
	if err != nil {
		return "", err
	}

	if err := s.db.WithContext(ctx).Delete(&models.Invite{}, "id = ?", invite.ID).Error; err != nil {
		return "", fmt.Errorf("invite service: delete invite: %w", err)
	}

	return s.create(ctx, invite.TeamID)
}

// DeleteForTeam removes all invites for a team, returning how many were live.
func (s *InviteService) DeleteForTeam(ctx context.Context, teamID string) (int64, error) {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).Delete(&models.Invite{}, "team_id = ?", teamID)
	if result.Error != nil {
		return 0, fmt.Errorf("invite service: delete team invites: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Link renders the join URL handed out to prospective teammates. The code is
// the only dynamic part; it carries no information about the team.
func (s *InviteService) Link(eventID, code string) string {
	if s.baseURL == "" {
		return fmt.Sprintf("/%s/invite/%s", eventID, code)
	}
	return fmt.Sprintf("%s/%s/invite/%s", s.baseURL, eventID, code)
}

func (s *InviteService) find(ctx context.Context, code string) (*models.Invite, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrInviteNotFound
	}

	var invite models.Invite
	err := s.db.WithContext(ctx).Where("code = ?", code).First(&invite).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInviteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("invite service: find invite: %w", err)
	}
	return &invite, nil
}

func (s *InviteService) create(ctx context.Context, teamID string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < codeGenerationAttempts; attempt++ {
		code, err := crypto.GenerateCode(s.codeLength)
		if err != nil {
			return "", fmt.Errorf("invite service: generate code: %w", err)
		}

		invite := models.Invite{Code: code, TeamID: teamID}
		if err := s.db.WithContext(ctx).Create(&invite).Error; err != nil {
			if isUniqueConstraintError(err) {
				// Either another caller won the one-invite-per-team race,
				// or the generated code collided. Prefer the winner's code.
				var existing models.Invite
				if readErr := s.db.WithContext(ctx).
					Where("team_id = ?", teamID).
					First(&existing).Error; readErr == nil {
					return existing.Code, nil
				}
				lastErr = err
				continue
			}
			return "", fmt.Errorf("invite service: create invite: %w", err)
		}
		return code, nil
	}
	return "", fmt.Errorf("invite service: exhausted code generation attempts: %w", lastErr)
}
