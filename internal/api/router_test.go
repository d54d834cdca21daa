package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/petekamm/teamup/internal/app"
	iauth "github.com/petekamm/teamup/internal/auth"
	"github.com/petekamm/teamup/internal/database/testutil"
	"github.com/petekamm/teamup/internal/models"
)

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type apiFixture struct {
	router *gin.Engine
	db     *gorm.DB
	event  models.Event
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	event := models.Event{
		Name:     "Fall Hackathon",
		Slug:     "fall-hackathon",
		StartsAt: time.Now(),
		EndsAt:   time.Now().Add(48 * time.Hour),
	}
	require.NoError(t, db.Create(&event).Error)

	jwt, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "test-secret-at-least-32-characters"})
	require.NoError(t, err)

	cfg := &app.Config{}
	cfg.Teams.MaxSize = 4
	cfg.Teams.InviteBaseURL = "https://teamup.test"
	cfg.Teams.InviteCodeLength = 10

	router, err := NewRouter(db, jwt, cfg)
	require.NoError(t, err)

	return &apiFixture{router: router, db: db, event: event}
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, apiEnvelope) {
	t.Helper()

	var payload *bytes.Buffer
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		payload = bytes.NewBuffer(encoded)
	} else {
		payload = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, payload)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var envelope apiEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return rec, envelope
}

func (f *apiFixture) registerUser(t *testing.T, name string) string {
	t.Helper()

	rec, envelope := f.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"name":     name,
		"email":    name + "@example.com",
		"password": "hunter2-hunter2",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.True(t, envelope.Success)

	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	require.NotEmpty(t, data.Token)
	return data.Token
}

func TestHealthEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	rec, envelope := f.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, envelope.Success)
}

func TestAuthRequiredOnAPIRoutes(t *testing.T) {
	f := newAPIFixture(t)

	rec, envelope := f.do(t, http.MethodGet, "/api/events", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.False(t, envelope.Success)
	require.Equal(t, "UNAUTHENTICATED", envelope.Error.Code)

	rec, _ = f.do(t, http.MethodGet, "/api/events", "not-a-valid-token", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterLoginAndMe(t *testing.T) {
	f := newAPIFixture(t)

	f.registerUser(t, "alice")

	rec, envelope := f.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "alice@example.com",
		"password": "hunter2-hunter2",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var data struct {
		Token string `json:"token"`
		User  struct {
			Email string `json:"email"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	require.Equal(t, "alice@example.com", data.User.Email)

	rec, envelope = f.do(t, http.MethodGet, "/api/auth/me", data.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, envelope.Success)

	rec, envelope = f.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "alice@example.com",
		"password": "wrong-password",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "INVALID_CREDENTIALS", envelope.Error.Code)
}

func TestTeamLifecycleOverHTTP(t *testing.T) {
	f := newAPIFixture(t)

	aliceToken := f.registerUser(t, "alice")
	bobToken := f.registerUser(t, "bob")

	// Alice creates a team.
	rec, envelope := f.do(t, http.MethodPost, "/api/events/"+f.event.ID+"/teams", aliceToken, gin.H{
		"name":        "Alpha Squad",
		"description": "we ship",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.True(t, envelope.Success)

	var team struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(envelope.Data, &team))
	require.Equal(t, "Alpha Squad", team.Name)

	// She fetches the invite and shares it with Bob.
	rec, envelope = f.do(t, http.MethodGet, "/api/teams/"+team.ID+"/invite", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var invite struct {
		Code string `json:"code"`
		Link string `json:"link"`
	}
	require.NoError(t, json.Unmarshal(envelope.Data, &invite))
	require.NotEmpty(t, invite.Code)
	require.Equal(t, fmt.Sprintf("https://teamup.test/%s/invite/%s", f.event.ID, invite.Code), invite.Link)

	// Bob joins via the code.
	rec, envelope = f.do(t, http.MethodPost, "/api/events/"+f.event.ID+"/teams/join", bobToken, gin.H{
		"code": invite.Code,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, envelope.Success)

	// Team info now lists both members.
	rec, envelope = f.do(t, http.MethodGet, "/api/teams/"+team.ID, bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var info struct {
		Members  []struct{ ID string } `json:"members"`
		IsMember bool                  `json:"is_member"`
	}
	require.NoError(t, json.Unmarshal(envelope.Data, &info))
	require.Len(t, info.Members, 2)
	require.True(t, info.IsMember)

	// Bob cannot join twice.
	rec, envelope = f.do(t, http.MethodPost, "/api/events/"+f.event.ID+"/teams/join", bobToken, gin.H{
		"code": invite.Code,
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "ALREADY_IN_TEAM", envelope.Error.Code)

	// Rotating invalidates the shared code.
	rec, envelope = f.do(t, http.MethodPost, "/api/invites/"+invite.Code+"/rotate", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var rotated struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(envelope.Data, &rotated))
	require.NotEqual(t, invite.Code, rotated.Code)

	carolToken := f.registerUser(t, "carol")
	rec, envelope = f.do(t, http.MethodPost, "/api/events/"+f.event.ID+"/teams/join", carolToken, gin.H{
		"code": invite.Code,
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "INVITE_NOT_FOUND", envelope.Error.Code)

	// Membership probe for an outsider.
	rec, envelope = f.do(t, http.MethodGet, "/api/teams/"+team.ID+"/membership", carolToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var membership struct {
		IsMember bool `json:"is_member"`
	}
	require.NoError(t, json.Unmarshal(envelope.Data, &membership))
	require.False(t, membership.IsMember)
}

func TestJoinValidationOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	token := f.registerUser(t, "alice")

	rec, envelope := f.do(t, http.MethodPost, "/api/events/"+f.event.ID+"/teams/join", token, gin.H{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.False(t, envelope.Success)

	rec, envelope = f.do(t, http.MethodPost, "/api/events/"+f.event.ID+"/teams", token, gin.H{
		"name": "abc",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.False(t, envelope.Success)
}

func TestRemoveMemberOverHTTP(t *testing.T) {
	f := newAPIFixture(t)

	aliceToken := f.registerUser(t, "alice")
	bobToken := f.registerUser(t, "bob")

	rec, envelope := f.do(t, http.MethodPost, "/api/events/"+f.event.ID+"/teams", aliceToken, gin.H{
		"name": "Alpha Squad",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var team struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(envelope.Data, &team))

	rec, envelope = f.do(t, http.MethodGet, "/api/teams/"+team.ID+"/invite", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var invite struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(envelope.Data, &invite))

	rec, _ = f.do(t, http.MethodPost, "/api/events/"+f.event.ID+"/teams/join", bobToken, gin.H{"code": invite.Code})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, envelope = f.do(t, http.MethodGet, "/api/teams/"+team.ID, aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var info struct {
		Team struct {
			CreatorID string `json:"creator_id"`
		} `json:"team"`
		Members []struct {
			ID string `json:"id"`
		} `json:"members"`
	}
	require.NoError(t, json.Unmarshal(envelope.Data, &info))
	require.Len(t, info.Members, 2)

	var bobMemberID string
	for _, m := range info.Members {
		if m.ID != info.Team.CreatorID {
			bobMemberID = m.ID
		}
	}
	require.NotEmpty(t, bobMemberID)

	// Bob cannot remove himself from a team he belongs to using someone
	// else's membership id, but self-leave is allowed.
	rec, envelope = f.do(t, http.MethodDelete, "/api/teams/"+team.ID+"/members/"+info.Team.CreatorID, bobToken, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "FORBIDDEN", envelope.Error.Code)

	rec, envelope = f.do(t, http.MethodDelete, "/api/teams/"+team.ID+"/members/"+bobMemberID, bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, envelope.Success)

	rec, envelope = f.do(t, http.MethodGet, "/api/teams/"+team.ID, aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(envelope.Data, &info))
	require.Len(t, info.Members, 1)
}
