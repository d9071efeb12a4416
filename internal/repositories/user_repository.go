package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"freeshare/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

const userColumns = `id, email, name, avatar, bio, location_lat, location_lng, city, zip,
	auth_provider, auth_provider_id, created_at, last_active`

// UserRepository abstracts identity persistence.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByProvider(ctx context.Context, provider, providerID string) (models.User, error)
	Create(ctx context.Context, in models.UserCreate) (models.User, error)
	Update(ctx context.Context, id string, in models.UserUpdate) (models.User, error)
	TouchLastActive(ctx context.Context, id string) error
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db  *sqlx.DB
	now Clock
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db, now: systemClock}
}

func (r *UserRepo) findOne(ctx context.Context, where string, args ...any) (models.User, error) {
	var user models.User
	query := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE ` + where)
	err := r.db.GetContext(ctx, &user, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// FindByID fetches a user by id.
func (r *UserRepo) FindByID(ctx context.Context, id string) (models.User, error) {
	return r.findOne(ctx, `id = ?`, id)
}

// FindByEmail fetches a user by email.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return r.findOne(ctx, `email = ?`, email)
}

// FindByProvider fetches a user by auth provider identity.
func (r *UserRepo) FindByProvider(ctx context.Context, provider, providerID string) (models.User, error) {
	return r.findOne(ctx, `auth_provider = ? AND auth_provider_id = ?`, provider, providerID)
}

// Create inserts a new user.
func (r *UserRepo) Create(ctx context.Context, in models.UserCreate) (models.User, error) {
	id := newID()
	now := r.now()
	var avatar *string
	if in.Avatar != "" {
		avatar = &in.Avatar
	}
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`INSERT INTO users
		(id, email, name, avatar, auth_provider, auth_provider_id, created_at, last_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		id, in.Email, in.Name, avatar, in.AuthProvider, in.AuthProviderID, now, now)
	if err != nil {
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return r.FindByID(ctx, id)
}

// Update applies the non-nil fields of in.
func (r *UserRepo) Update(ctx context.Context, id string, in models.UserUpdate) (models.User, error) {
	if in.Empty() {
		return r.FindByID(ctx, id)
	}

	var sets []string
	var args []any
	add := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}
	if in.Name != nil {
		add("name", *in.Name)
	}
	if in.Avatar != nil {
		add("avatar", *in.Avatar)
	}
	if in.Bio != nil {
		add("bio", *in.Bio)
	}
	if in.LocationLat != nil {
		add("location_lat", *in.LocationLat)
	}
	if in.LocationLng != nil {
		add("location_lng", *in.LocationLng)
	}
	if in.City != nil {
		add("city", *in.City)
	}
	if in.Zip != nil {
		add("zip", *in.Zip)
	}
	args = append(args, id)

	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`), args...)
	if err != nil {
		return models.User{}, fmt.Errorf("update user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.User{}, ErrUserNotFound
	}
	return r.FindByID(ctx, id)
}

// TouchLastActive records activity for the user.
func (r *UserRepo) TouchLastActive(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE users SET last_active = ? WHERE id = ?`), r.now(), id)
	if err != nil {
		return fmt.Errorf("touch last active: %w", err)
	}
	return nil
}

// listSummaries returns id/name/avatar for the given ids.
func listSummaries(ctx context.Context, db *sqlx.DB, ids []string) ([]models.UserSummary, error) {
	if len(ids) == 0 {
		return []models.UserSummary{}, nil
	}
	query, args, err := sqlx.In(`SELECT id, name, avatar FROM users WHERE id IN (?) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}
	var users []models.UserSummary
	if err := db.SelectContext(ctx, &users, db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list user summaries: %w", err)
	}
	return users, nil
}
