package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/petekamm/teamup/internal/database/testutil"
	"github.com/petekamm/teamup/internal/models"
)

type membershipFixture struct {
	db           *gorm.DB
	participants *ParticipantService
	teams        *TeamStore
	invites      *InviteService
	membership   *MembershipService
	event        models.Event
}

func newMembershipFixture(t *testing.T, opts ...MembershipOption) *membershipFixture {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	audit, err := NewAuditService(db)
	require.NoError(t, err)

	participants, err := NewParticipantService(db, audit)
	require.NoError(t, err)

	teams, err := NewTeamStore(db)
	require.NoError(t, err)

	invites, err := NewInviteService(db, WithInviteBaseURL("https://teamup.test"))
	require.NoError(t, err)

	membership, err := NewMembershipService(db, participants, teams, invites, audit, opts...)
	require.NoError(t, err)

	event := models.Event{
		Name:     "Fall Hackathon",
		Slug:     "fall-hackathon",
		StartsAt: time.Now(),
		EndsAt:   time.Now().Add(48 * time.Hour),
	}
	require.NoError(t, db.Create(&event).Error)

	return &membershipFixture{
		db:           db,
		participants: participants,
		teams:        teams,
		invites:      invites,
		membership:   membership,
		event:        event,
	}
}

func (f *membershipFixture) createEvent(t *testing.T, slug string) models.Event {
	t.Helper()

	event := models.Event{
		Name:     slug,
		Slug:     slug,
		StartsAt: time.Now(),
		EndsAt:   time.Now().Add(48 * time.Hour),
	}
	require.NoError(t, f.db.Create(&event).Error)
	return event
}

func (f *membershipFixture) createUser(t *testing.T, name string) models.User {
	t.Helper()

	user := models.User{
		Name:     name,
		Email:    name + "@example.com",
		Password: "not-a-real-hash",
	}
	require.NoError(t, f.db.Create(&user).Error)
	return user
}

// createTeamWith creates a team as creator and joins the extra users via the
// team's invite code.
func (f *membershipFixture) createTeamWith(t *testing.T, creator models.User, extras ...models.User) *models.Team {
	t.Helper()
	ctx := context.Background()

	team, err := f.membership.CreateTeam(ctx, f.event.ID, creator.ID, CreateTeamInput{
		Name: "Alpha Squad",
	})
	require.NoError(t, err)

	if len(extras) > 0 {
		code, err := f.invites.GetOrCreate(ctx, team.ID)
		require.NoError(t, err)
		for _, extra := range extras {
			_, err := f.membership.JoinTeam(ctx, code, extra.ID)
			require.NoError(t, err)
		}
	}
	return team
}

func (f *membershipFixture) memberOf(t *testing.T, teamID string, user models.User) models.TeamMember {
	t.Helper()

	var member models.TeamMember
	err := f.db.
		Select("team_members.*").
		Joins("JOIN participants ON participants.id = team_members.participant_id").
		Where("team_members.team_id = ? AND participants.user_id = ?", teamID, user.ID).
		First(&member).Error
	require.NoError(t, err)
	return member
}

func (f *membershipFixture) memberCount(t *testing.T, teamID string) int64 {
	t.Helper()

	var count int64
	require.NoError(t, f.db.Model(&models.TeamMember{}).Where("team_id = ?", teamID).Count(&count).Error)
	return count
}
