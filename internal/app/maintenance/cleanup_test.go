package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/petekamm/teamup/internal/database/testutil"
	"github.com/petekamm/teamup/internal/models"
	"github.com/petekamm/teamup/internal/services"
)

// seedOrphans fabricates the out-of-band states the sweep exists for. The
// schema's foreign keys would normally cascade these away, so the pragma is
// switched off for the duration on a single pinned connection.
func seedOrphans(t *testing.T, db *gorm.DB) (orphanInvite, orphanTeam string) {
	t.Helper()

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.Exec("PRAGMA foreign_keys = OFF").Error)
	defer func() {
		require.NoError(t, db.Exec("PRAGMA foreign_keys = ON").Error)
	}()

	event := models.Event{
		Name:     "Fall Hackathon",
		Slug:     "fall-hackathon",
		StartsAt: time.Now(),
		EndsAt:   time.Now().Add(48 * time.Hour),
	}
	require.NoError(t, db.Create(&event).Error)

	// A team with no members, plus an invite pointing at a team that was
	// removed out of band.
	empty := models.Team{EventID: event.ID, Name: "Ghost Crew"}
	require.NoError(t, db.Create(&empty).Error)

	removed := models.Team{EventID: event.ID, Name: "Gone Crew"}
	require.NoError(t, db.Create(&removed).Error)
	invite := models.Invite{TeamID: removed.ID, Code: "ORPHANCODE"}
	require.NoError(t, db.Create(&invite).Error)
	require.NoError(t, db.Exec("DELETE FROM teams WHERE id = ?", removed.ID).Error)

	return invite.ID, empty.ID
}

func TestSweepOrphans(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	inviteID, teamID := seedOrphans(t, db)

	// A healthy team with a member must survive the sweep.
	user := models.User{Name: "alice", Email: "alice@example.com", Password: "x"}
	require.NoError(t, db.Create(&user).Error)
	var event models.Event
	require.NoError(t, db.First(&event).Error)
	participant := models.Participant{UserID: user.ID, EventID: event.ID}
	require.NoError(t, db.Create(&participant).Error)
	healthy := models.Team{EventID: event.ID, Name: "Alive Crew"}
	require.NoError(t, db.Create(&healthy).Error)
	member := models.TeamMember{TeamID: healthy.ID, ParticipantID: participant.ID}
	require.NoError(t, db.Create(&member).Error)
	liveInvite := models.Invite{TeamID: healthy.ID, Code: "LIVECODE99"}
	require.NoError(t, db.Create(&liveInvite).Error)

	stats, err := SweepOrphans(context.Background(), db)
	require.NoError(t, err)
	require.EqualValues(t, 1, stats.Invites)
	require.EqualValues(t, 1, stats.Teams)

	var count int64
	require.NoError(t, db.Model(&models.Invite{}).Where("id = ?", inviteID).Count(&count).Error)
	require.Zero(t, count)
	require.NoError(t, db.Model(&models.Team{}).Where("id = ?", teamID).Count(&count).Error)
	require.Zero(t, count)

	require.NoError(t, db.Model(&models.Team{}).Where("id = ?", healthy.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)
	require.NoError(t, db.Model(&models.Invite{}).Where("id = ?", liveInvite.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)

	// A second sweep finds nothing.
	stats, err = SweepOrphans(context.Background(), db)
	require.NoError(t, err)
	require.Zero(t, stats.Invites)
	require.Zero(t, stats.Teams)
}

func TestSweepOrphansRequiresDB(t *testing.T) {
	_, err := SweepOrphans(context.Background(), nil)
	require.Error(t, err)
}

func TestCleanerRunOnce(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	audit, err := services.NewAuditService(db)
	require.NoError(t, err)

	require.NoError(t, audit.Log(context.Background(), services.AuditEntry{
		Action: "team.create",
		Result: "success",
	}))
	stale := models.AuditLog{Action: "team.delete", Result: "success"}
	require.NoError(t, db.Create(&stale).Error)
	require.NoError(t, db.Model(&models.AuditLog{}).
		Where("id = ?", stale.ID).
		Update("created_at", time.Now().AddDate(0, 0, -30)).Error)

	seedOrphans(t, db)

	cleaner := NewCleaner(db, audit, WithAuditRetentionDays(7))
	require.NoError(t, cleaner.RunOnce(context.Background()))

	var audits int64
	require.NoError(t, db.Model(&models.AuditLog{}).Count(&audits).Error)
	require.EqualValues(t, 1, audits)

	var invites int64
	require.NoError(t, db.Model(&models.Invite{}).Count(&invites).Error)
	require.Zero(t, invites)
}

func TestCleanerStartAndStop(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	audit, err := services.NewAuditService(db)
	require.NoError(t, err)

	cleaner := NewCleaner(db, audit,
		WithAuditSchedule("@every 1h"),
		WithSweepSchedule("@every 1h"),
	)
	require.NoError(t, cleaner.Start())

	done := cleaner.Stop()
	select {
	case <-done.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop in time")
	}
}
