package auth

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freeshare/internal/db"
	"freeshare/internal/models"
	"freeshare/internal/repositories"
)

func newTestService(t *testing.T) (*Service, *sqlx.DB) {
	t.Helper()
	ctx := context.Background()
	database, err := db.Connect(ctx, db.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, db.Migrate(ctx, database))

	svc := NewService(repositories.NewUserRepo(database), repositories.NewSessionRepo(database), 0)
	return svc, database
}

func countSessions(t *testing.T, database *sqlx.DB, token string) int {
	t.Helper()
	var n int
	require.NoError(t, database.Get(&n, `SELECT COUNT(*) FROM sessions WHERE token = ?`, token))
	return n
}

func TestDemoEmail(t *testing.T) {
	assert.Equal(t, "jane.doe@demo.freeshare.local", DemoEmail("Jane  Doe"))
	assert.Equal(t, "bob@demo.freeshare.local", DemoEmail("BOB"))
}

func TestCreateDemoUserIssuesSession(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	user, session, err := svc.CreateDemoUser(ctx, "Jane Doe")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", user.Name)
	assert.Equal(t, "jane.doe@demo.freeshare.local", user.Email)
	assert.Equal(t, "google", user.AuthProvider)
	assert.Contains(t, user.AuthProviderID, "demo_")
	require.NotNil(t, user.Avatar)
	assert.Contains(t, *user.Avatar, "seed=Jane+Doe")

	assert.Len(t, session.Token, 64)
	assert.WithinDuration(t, time.Now().Add(DefaultSessionTTL), session.ExpiresAt, time.Minute)

	again, _, err := svc.CreateDemoUser(ctx, "Jane Doe")
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)
}

func TestValidateSession(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	user, session, err := svc.CreateDemoUser(ctx, "Sam")
	require.NoError(t, err)

	got, err := svc.ValidateSession(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.ValidateSession(ctx, "unknown")
	assert.ErrorIs(t, err, ErrInvalidSession)
	_, err = svc.ValidateSession(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestValidateSessionDeletesExpired(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()

	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issued }
	_, session, err := svc.CreateDemoUser(ctx, "Sam")
	require.NoError(t, err)
	require.Equal(t, 1, countSessions(t, database, session.Token))

	svc.now = func() time.Time { return issued.Add(DefaultSessionTTL + time.Second) }

	_, err = svc.ValidateSession(ctx, session.Token)
	assert.ErrorIs(t, err, ErrInvalidSession)
	assert.Zero(t, countSessions(t, database, session.Token))

	_, err = svc.ValidateSession(ctx, session.Token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestRevokeSessionIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, session, err := svc.CreateDemoUser(ctx, "Sam")
	require.NoError(t, err)

	require.NoError(t, svc.RevokeSession(ctx, session.Token))
	require.NoError(t, svc.RevokeSession(ctx, session.Token))

	_, err = svc.ValidateSession(ctx, session.Token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestHandleOAuthCallbackResolution(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, s1, err := svc.HandleOAuthCallback(ctx, "google", models.OAuthProfile{
		ID: "g-1", Email: "pat@example.com", Name: "Pat", Avatar: "https://img/pat.png",
	})
	require.NoError(t, err)
	assert.Equal(t, "google", first.AuthProvider)

	// same provider identity
	byProvider, s2, err := svc.HandleOAuthCallback(ctx, "google", models.OAuthProfile{ID: "g-1", Email: "changed@example.com", Name: "Pat"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, byProvider.ID)
	assert.NotEqual(t, s1.Token, s2.Token)

	// different provider, same email
	byEmail, _, err := svc.HandleOAuthCallback(ctx, "facebook", models.OAuthProfile{ID: "fb-9", Email: "pat@example.com", Name: "Pat F"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, byEmail.ID)

	// nothing matches
	other, _, err := svc.HandleOAuthCallback(ctx, "apple", models.OAuthProfile{ID: "a-7", Email: "lee@example.com"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)
	assert.Equal(t, "lee", other.Name)
	assert.Equal(t, "apple", other.AuthProvider)

	_, _, err = svc.HandleOAuthCallback(ctx, "apple", models.OAuthProfile{Email: "x@example.com"})
	require.Error(t, err)
}

func TestHandleOAuthCallbackWithoutEmail(t *testing.T) {
	svc, _ := newTestService(t)

	user, _, err := svc.HandleOAuthCallback(context.Background(), "facebook", models.OAuthProfile{ID: "fb-1", Name: "No Mail"})
	require.NoError(t, err)
	assert.Equal(t, "facebook.fb-1@users.freeshare.local", user.Email)
}
