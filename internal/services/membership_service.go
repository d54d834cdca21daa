package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/petekamm/teamup/internal/models"
	apperrors "github.com/petekamm/teamup/pkg/errors"
	"github.com/petekamm/teamup/pkg/metrics"
)

// DefaultMaxTeamSize caps team membership unless overridden in configuration.
const DefaultMaxTeamSize = 4

// ErrMemberNotFound indicates the referenced membership does not exist on the team.
var ErrMemberNotFound = apperrors.NewNotFound("Team member not found")

// CreateTeamInput captures new team metadata.
type CreateTeamInput struct {
	Name                string
	Description         string
	Contact             string
	LookingForTeammates bool
}

// TeamInfo bundles a team with its current members for read surfaces.
type TeamInfo struct {
	Team     models.Team         `json:"team"`
	Members  []models.TeamMember `json:"members"`
	IsMember bool                `json:"is_member"`
}

// InviteInfo carries an invite code together with its shareable link.
type InviteInfo struct {
	Code string `json:"code"`
	Link string `json:"link"`
}

// MembershipService orchestrates the team membership state machine: team
// creation with self-join, invite redemption with capacity enforcement,
// removal with creator succession and teardown, and invite rotation. Every
// multi-step transition runs in one transaction holding a row lock on the
// team, so operations against the same team serialize.
type MembershipService struct {
	db           *gorm.DB
	participants *ParticipantService
	teams        *TeamStore
	invites      *InviteService
	audit        *AuditService
	maxTeamSize  int
}

// MembershipOption customises MembershipService behaviour.
type MembershipOption func(*MembershipService)

// WithMaxTeamSize overrides the membership cap.
func WithMaxTeamSize(size int) MembershipOption {
	return func(s *MembershipService) {
		if size > 0 {
			s.maxTeamSize = size
		}
	}
}

// NewMembershipService constructs the coordinator from its collaborators.
func NewMembershipService(db *gorm.DB, participants *ParticipantService, teams *TeamStore, invites *InviteService, audit *AuditService, opts ...MembershipOption) (*MembershipService, error) {
	if db == nil {
		return nil, errors.New("membership service: db is required")
	}
	if participants == nil || teams == nil || invites == nil {
		return nil, errors.New("membership service: participant, team, and invite collaborators are required")
	}

	service := &MembershipService{
		db:           db,
		participants: participants,
		teams:        teams,
		invites:      invites,
		audit:        audit,
		maxTeamSize:  DefaultMaxTeamSize,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// CreateTeam creates a team for the event and joins the caller as its creator.
// The team insert, the creator's membership insert, and the creator reference
// fixup commit atomically; a failure at any step leaves no creator-less team.
func (s *MembershipService) CreateTeam(ctx context.Context, eventID, userID string, input CreateTeamInput) (*models.Team, error) {
	ctx = ensureContext(ctx)

	var team *models.Team
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var event models.Event
		if err := tx.First(&event, "id = ?", eventID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEventNotFound
			}
			return fmt.Errorf("membership service: load event: %w", err)
		}

		participant, _, err := s.participants.WithTx(tx).Ensure(ctx, userID, eventID)
		if err != nil {
			return err
		}

		member, err := s.membershipOf(tx, participant.ID)
		if err != nil {
			return err
		}
		if member != nil {
			return apperrors.ErrAlreadyInTeam
		}

		team = &models.Team{
			EventID:             eventID,
			Name:                input.Name,
			Description:         input.Description,
			Contact:             input.Contact,
			LookingForTeammates: input.LookingForTeammates,
		}
		if err := s.teams.WithTx(tx).Create(ctx, team); err != nil {
			return err
		}

		creator := models.TeamMember{TeamID: team.ID, ParticipantID: participant.ID}
		if err := tx.Create(&creator).Error; err != nil {
			if isUniqueConstraintError(err) {
				return apperrors.ErrAlreadyInTeam
			}
			return fmt.Errorf("membership service: create membership: %w", err)
		}

		if err := s.teams.WithTx(tx).SetCreator(ctx, team.ID, creator.ID); err != nil {
			return err
		}
		team.CreatorID = &creator.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.TeamsCreated.Inc()
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &userID,
		Action:   "team.create",
		Resource: team.ID,
		Result:   "success",
		Metadata: map[string]any{"event_id": eventID, "name": team.Name},
	})

	return team, nil
}

// JoinTeam redeems an invite code for the caller. The member count is
// re-checked under the team row lock so two racing joins cannot both take the
// last seat, and the invite is re-read post-lock so a join never lands on a
// rotated code.
func (s *MembershipService) JoinTeam(ctx context.Context, code, userID string) (*models.Team, error) {
	ctx = ensureContext(ctx)

	var team *models.Team
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		teamID, err := s.invites.WithTx(tx).ResolveTeam(ctx, code)
		if err != nil {
			return err
		}

		locked, err := s.lockTeam(tx, teamID)
		if err != nil {
			return err
		}

		// The invite may have been rotated between resolution and the lock.
		if _, err := s.invites.WithTx(tx).ResolveTeam(ctx, code); err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.TeamMember{}).Where("team_id = ?", teamID).Count(&count).Error; err != nil {
			return fmt.Errorf("membership service: count members: %w", err)
		}
		if count >= int64(s.maxTeamSize) {
			return apperrors.ErrTeamFull
		}

		participant, _, err := s.participants.WithTx(tx).Ensure(ctx, userID, locked.EventID)
		if err != nil {
			return err
		}

		existing, err := s.membershipOf(tx, participant.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperrors.ErrAlreadyInTeam
		}

		member := models.TeamMember{TeamID: teamID, ParticipantID: participant.ID}
		if err := tx.Create(&member).Error; err != nil {
			if isUniqueConstraintError(err) {
				return apperrors.ErrAlreadyInTeam
			}
			return fmt.Errorf("membership service: create membership: %w", err)
		}

		team = locked
		return nil
	})
	if err != nil {
		metrics.JoinAttempts.WithLabelValues(joinResultLabel(err)).Inc()
		return nil, err
	}

	metrics.JoinAttempts.WithLabelValues("success").Inc()
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &userID,
		Action:   "team.join",
		Resource: team.ID,
		Result:   "success",
		Metadata: map[string]any{"event_id": team.EventID},
	})

	return team, nil
}

// UpdateTeam applies a metadata patch after verifying the caller is a member.
func (s *MembershipService) UpdateTeam(ctx context.Context, teamID, userID string, patch TeamPatch) (*models.Team, error) {
	ctx = ensureContext(ctx)

	var team *models.Team
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.lockTeam(tx, teamID); err != nil {
			return err
		}

		caller, err := s.membershipIn(tx, teamID, userID)
		if err != nil {
			return err
		}
		if caller == nil {
			return apperrors.ErrForbidden
		}

		team, err = s.teams.WithTx(tx).Update(ctx, teamID, patch)
		return err
	})
	if err != nil {
		return nil, err
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &userID,
		Action:   "team.update",
		Resource: teamID,
		Result:   "success",
	})
	return team, nil
}

// RemoveMember deletes a membership. A member may remove themselves; only the
// creator may remove someone else. When the last member leaves, the team and
// its invites are torn down. When the creator leaves a non-empty team, the
// earliest-joined surviving member inherits the creator capability.
func (s *MembershipService) RemoveMember(ctx context.Context, teamID, memberID, userID string) error {
	ctx = ensureContext(ctx)

	var (
		teamDeleted bool
		successorID string
		selfLeave   bool
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		team, err := s.lockTeam(tx, teamID)
		if err != nil {
			return err
		}

		caller, err := s.membershipIn(tx, teamID, userID)
		if err != nil {
			return err
		}
		if caller == nil {
			return apperrors.ErrForbidden
		}

		var target models.TeamMember
		err = tx.Where("id = ? AND team_id = ?", memberID, teamID).First(&target).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		if err != nil {
			return fmt.Errorf("membership service: load member: %w", err)
		}

		selfLeave = caller.ID == target.ID
		callerIsCreator := team.CreatorID != nil && *team.CreatorID == caller.ID
		if !selfLeave && !callerIsCreator {
			return apperrors.ErrForbidden
		}

		if err := tx.Delete(&models.TeamMember{}, "id = ?", target.ID).Error; err != nil {
			return fmt.Errorf("membership service: delete member: %w", err)
		}

		var remaining []models.TeamMember
		if err := tx.Where("team_id = ?", teamID).
			Order("created_at ASC, id ASC").
			Find(&remaining).Error; err != nil {
			return fmt.Errorf("membership service: list remaining members: %w", err)
		}

		switch {
		case len(remaining) == 0:
			if _, err := s.invites.WithTx(tx).DeleteForTeam(ctx, teamID); err != nil {
				return err
			}
			if err := s.teams.WithTx(tx).Delete(ctx, teamID); err != nil {
				return err
			}
			teamDeleted = true
		case team.CreatorID != nil && *team.CreatorID == target.ID:
			// Succession: the earliest-joined surviving member takes over.
			successor := remaining[0]
			if err := s.teams.WithTx(tx).SetCreator(ctx, teamID, successor.ID); err != nil {
				return err
			}
			successorID = successor.ID
		}
		return nil
	})
	if err != nil {
		return err
	}

	action := "member.remove"
	if selfLeave {
		action = "team.leave"
	}
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &userID,
		Action:   action,
		Resource: teamID,
		Result:   "success",
		Metadata: map[string]any{"member_id": memberID},
	})
	if successorID != "" {
		recordAudit(s.audit, ctx, AuditEntry{
			UserID:   &userID,
			Action:   "creator.succeed",
			Resource: teamID,
			Result:   "success",
			Metadata: map[string]any{"successor_member_id": successorID},
		})
	}
	if teamDeleted {
		metrics.TeamsDeleted.Inc()
		recordAudit(s.audit, ctx, AuditEntry{
			UserID:   &userID,
			Action:   "team.delete",
			Resource: teamID,
			Result:   "success",
		})
	}
	return nil
}

// InviteCode returns the team's live invite code and link, generating the
// code on first call. Member-only.
func (s *MembershipService) InviteCode(ctx context.Context, teamID, userID string) (*InviteInfo, error) {
	ctx = ensureContext(ctx)

	var info InviteInfo
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		team, err := s.lockTeam(tx, teamID)
		if err != nil {
			return err
		}

		caller, err := s.membershipIn(tx, teamID, userID)
		if err != nil {
			return err
		}
		if caller == nil {
			return apperrors.ErrForbidden
		}

		code, err := s.invites.WithTx(tx).GetOrCreate(ctx, teamID)
		if err != nil {
			return err
		}
		info = InviteInfo{Code: code, Link: s.invites.Link(team.EventID, code)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// RotateInvite replaces the invite identified by code with a fresh one.
// Member-only; the lock on the team row serializes rotation against joins.
func (s *MembershipService) RotateInvite(ctx context.Context, code, userID string) (*InviteInfo, error) {
	ctx = ensureContext(ctx)

	var info InviteInfo
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		teamID, err := s.invites.WithTx(tx).ResolveTeam(ctx, code)
		if err != nil {
			return err
		}

		team, err := s.lockTeam(tx, teamID)
		if err != nil {
			return err
		}

		caller, err := s.membershipIn(tx, teamID, userID)
		if err != nil {
			return err
		}
		if caller == nil {
			return apperrors.ErrForbidden
		}

		newCode, err := s.invites.WithTx(tx).Rotate(ctx, code)
		if err != nil {
			return err
		}
		info = InviteInfo{Code: newCode, Link: s.invites.Link(team.EventID, newCode)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.InviteRotations.Inc()
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   &userID,
		Action:   "invite.rotate",
		Resource: code,
		Result:   "success",
	})
	return &info, nil
}

// Info loads a team with its member roster and whether the caller belongs to it.
func (s *MembershipService) Info(ctx context.Context, teamID, userID string) (*TeamInfo, error) {
	ctx = ensureContext(ctx)

	team, err := s.teams.Get(ctx, teamID)
	if err != nil {
		return nil, err
	}

	var members []models.TeamMember
	if err := s.db.WithContext(ctx).
		Preload("Participant.User").
		Where("team_id = ?", teamID).
		Order("created_at ASC, id ASC").
		Find(&members).Error; err != nil {
		return nil, fmt.Errorf("membership service: list members: %w", err)
	}

	isMember := false
	if userID != "" {
		caller, err := s.membershipIn(s.db.WithContext(ctx), teamID, userID)
		if err != nil {
			return nil, err
		}
		isMember = caller != nil
	}

	return &TeamInfo{Team: *team, Members: members, IsMember: isMember}, nil
}

// IsMember reports whether the user currently belongs to the team.
func (s *MembershipService) IsMember(ctx context.Context, teamID, userID string) (bool, error) {
	ctx = ensureContext(ctx)

	caller, err := s.membershipIn(s.db.WithContext(ctx), teamID, userID)
	if err != nil {
		return false, err
	}
	return caller != nil, nil
}

// lockTeam loads the team row under SELECT ... FOR UPDATE so concurrent
// transitions on the same team serialize. SQLite ignores the locking clause
// but serializes writers on its own.
func (s *MembershipService) lockTeam(tx *gorm.DB, teamID string) (*models.Team, error) {
	var team models.Team
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&team, "id = ?", teamID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTeamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("membership service: lock team: %w", err)
	}
	return &team, nil
}

// membershipOf returns the participant's membership row, if any. Participants
// are event-scoped and memberships are unique per participant, so one row here
// means one team for that event.
func (s *MembershipService) membershipOf(tx *gorm.DB, participantID string) (*models.TeamMember, error) {
	var member models.TeamMember
	err := tx.Where("participant_id = ?", participantID).First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("membership service: find membership: %w", err)
	}
	return &member, nil
}

// membershipIn returns the caller's membership row on the given team, if any.
func (s *MembershipService) membershipIn(tx *gorm.DB, teamID, userID string) (*models.TeamMember, error) {
	var member models.TeamMember
	err := tx.
		Select("team_members.*").
		Joins("JOIN participants ON participants.id = team_members.participant_id").
		Where("team_members.team_id = ? AND participants.user_id = ?", teamID, userID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("membership service: find membership: %w", err)
	}
	return &member, nil
}

func joinResultLabel(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrTeamFull):
		return "team_full"
	case errors.Is(err, apperrors.ErrAlreadyInTeam):
		return "already_in_team"
	case errors.Is(err, ErrInviteNotFound), errors.Is(err, ErrTeamNotFound):
		return "not_found"
	default:
		return "error"
	}
}
