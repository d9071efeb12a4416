package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"freeshare/internal/models"
	"freeshare/internal/repositories"
)

// ErrInvalidSession covers unknown, expired and orphaned tokens alike.
var ErrInvalidSession = errors.New("invalid or expired session")

// DefaultSessionTTL is how long a freshly issued token stays valid.
const DefaultSessionTTL = 30 * 24 * time.Hour

const demoProvider = "google"

// Service issues and validates bearer sessions and resolves logins into
// local users.
type Service struct {
	users    repositories.UserRepository
	sessions repositories.SessionRepository
	ttl      time.Duration
	now      func() time.Time
	newToken func() (string, error)
}

// NewService wires the auth service. A non-positive ttl falls back to
// DefaultSessionTTL.
func NewService(users repositories.UserRepository, sessions repositories.SessionRepository, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Service{
		users:    users,
		sessions: sessions,
		ttl:      ttl,
		now:      func() time.Time { return time.Now().UTC() },
		newToken: randomToken,
	}
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// CreateSession issues a new token for userID.
func (s *Service) CreateSession(ctx context.Context, userID string) (models.AuthSession, error) {
	token, err := s.newToken()
	if err != nil {
		return models.AuthSession{}, fmt.Errorf("generate token: %w", err)
	}
	expiresAt := s.now().Add(s.ttl)
	if _, err := s.sessions.Create(ctx, userID, token, expiresAt); err != nil {
		return models.AuthSession{}, err
	}
	return models.AuthSession{UserID: userID, Token: token, ExpiresAt: expiresAt}, nil
}

// ValidateSession resolves token to its user. Expired sessions are deleted
// on sight.
func (s *Service) ValidateSession(ctx context.Context, token string) (models.User, error) {
	if token == "" {
		return models.User{}, ErrInvalidSession
	}
	session, err := s.sessions.FindByToken(ctx, token)
	if errors.Is(err, repositories.ErrSessionNotFound) {
		return models.User{}, ErrInvalidSession
	}
	if err != nil {
		return models.User{}, err
	}

	now := s.now()
	if session.Expired(now) {
		if err := s.sessions.DeleteByToken(ctx, token); err != nil {
			log.Warn().Err(err).Str("session_id", session.ID).Msg("delete expired session")
		}
		return models.User{}, ErrInvalidSession
	}

	user, err := s.users.FindByID(ctx, session.UserID)
	if errors.Is(err, repositories.ErrUserNotFound) {
		return models.User{}, ErrInvalidSession
	}
	if err != nil {
		return models.User{}, err
	}

	if err := s.users.TouchLastActive(ctx, user.ID); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID).Msg("touch last active")
	} else {
		user.LastActive = now
	}
	return user, nil
}

// RevokeSession deletes the token. Unknown tokens are not an error.
func (s *Service) RevokeSession(ctx context.Context, token string) error {
	return s.sessions.DeleteByToken(ctx, token)
}

// HandleOAuthCallback finds the local user for profile, by provider identity
// first and email second, creating one when neither matches, and issues a
// fresh session.
func (s *Service) HandleOAuthCallback(ctx context.Context, provider string, profile models.OAuthProfile) (models.User, models.AuthSession, error) {
	if profile.ID == "" {
		return models.User{}, models.AuthSession{}, fmt.Errorf("oauth profile for %s has no id", provider)
	}

	user, err := s.users.FindByProvider(ctx, provider, profile.ID)
	if errors.Is(err, repositories.ErrUserNotFound) && profile.Email != "" {
		user, err = s.users.FindByEmail(ctx, profile.Email)
	}
	if errors.Is(err, repositories.ErrUserNotFound) {
		user, err = s.users.Create(ctx, models.UserCreate{
			Email:          fallbackEmail(provider, profile),
			Name:           fallbackName(profile),
			Avatar:         profile.Avatar,
			AuthProvider:   provider,
			AuthProviderID: profile.ID,
		})
	}
	if err != nil {
		return models.User{}, models.AuthSession{}, err
	}

	session, err := s.CreateSession(ctx, user.ID)
	if err != nil {
		return models.User{}, models.AuthSession{}, err
	}
	return user, session, nil
}

// CreateDemoUser logs in a demo identity for name. Repeating the same name
// resolves to the same account through the email match.
func (s *Service) CreateDemoUser(ctx context.Context, name string) (models.User, models.AuthSession, error) {
	name = strings.TrimSpace(name)
	return s.HandleOAuthCallback(ctx, demoProvider, models.OAuthProfile{
		ID:     fmt.Sprintf("demo_%d", s.now().UnixNano()),
		Email:  DemoEmail(name),
		Name:   name,
		Avatar: "https://api.dicebear.com/7.x/avataaars/svg?seed=" + url.QueryEscape(name),
	})
}

// DemoEmail lowercases name and joins its words with dots.
func DemoEmail(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), ".") + "@demo.freeshare.local"
}

func fallbackEmail(provider string, profile models.OAuthProfile) string {
	if profile.Email != "" {
		return profile.Email
	}
	return fmt.Sprintf("%s.%s@users.freeshare.local", provider, profile.ID)
}

func fallbackName(profile models.OAuthProfile) string {
	if profile.Name != "" {
		return profile.Name
	}
	if at := strings.IndexByte(profile.Email, '@'); at > 0 {
		return profile.Email[:at]
	}
	return "FreeShare user"
}
