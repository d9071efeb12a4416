package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"freeshare/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionRepository abstracts session persistence.
type SessionRepository interface {
	Create(ctx context.Context, userID, token string, expiresAt time.Time) (models.Session, error)
	FindByToken(ctx context.Context, token string) (models.Session, error)
	DeleteByToken(ctx context.Context, token string) error
}

// SessionRepo is a sqlx implementation of SessionRepository.
type SessionRepo struct {
	db  *sqlx.DB
	now Clock
}

// NewSessionRepo constructs a SessionRepo.
func NewSessionRepo(db *sqlx.DB) *SessionRepo {
	return &SessionRepo{db: db, now: systemClock}
}

// Create stores a session for userID.
func (r *SessionRepo) Create(ctx context.Context, userID, token string, expiresAt time.Time) (models.Session, error) {
	session := models.Session{
		ID:        newID(),
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: r.now(),
	}
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`INSERT INTO sessions (id, user_id, token, expires_at, created_at) VALUES (?, ?, ?, ?, ?)`),
		session.ID, session.UserID, session.Token, session.ExpiresAt, session.CreatedAt)
	if err != nil {
		return models.Session{}, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// FindByToken looks up a session by its bearer token.
func (r *SessionRepo) FindByToken(ctx context.Context, token string) (models.Session, error) {
	var session models.Session
	err := r.db.GetContext(ctx, &session, r.db.Rebind(`SELECT id, user_id, token, expires_at, created_at FROM sessions WHERE token = ?`), token)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("find session: %w", err)
	}
	return session, nil
}

// DeleteByToken removes the session; deleting a missing token is not an error.
func (r *SessionRepo) DeleteByToken(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM sessions WHERE token = ?`), token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
