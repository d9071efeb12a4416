package models

import "time"

// User is a local identity created on first OAuth or demo login.
type User struct {
	ID             string    `db:"id" json:"id"`
	Email          string    `db:"email" json:"email"`
	Name           string    `db:"name" json:"name"`
	Avatar         *string   `db:"avatar" json:"avatar"`
	Bio            *string   `db:"bio" json:"bio"`
	LocationLat    *float64  `db:"location_lat" json:"locationLat"`
	LocationLng    *float64  `db:"location_lng" json:"locationLng"`
	City           *string   `db:"city" json:"city"`
	Zip            *string   `db:"zip" json:"zip"`
	AuthProvider   string    `db:"auth_provider" json:"authProvider"`
	AuthProviderID string    `db:"auth_provider_id" json:"authProviderId"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	LastActive     time.Time `db:"last_active" json:"lastActive"`
}

// PublicUser is the view of a user shown to anyone but themselves.
type PublicUser struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Avatar       *string   `json:"avatar"`
	Bio          *string   `json:"bio"`
	LocationLat  *float64  `json:"locationLat"`
	LocationLng  *float64  `json:"locationLng"`
	City         *string   `json:"city"`
	Zip          *string   `json:"zip"`
	AuthProvider string    `json:"authProvider"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActive   time.Time `json:"lastActive"`
}

// Public strips the email address and the provider account id.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:           u.ID,
		Name:         u.Name,
		Avatar:       u.Avatar,
		Bio:          u.Bio,
		LocationLat:  u.LocationLat,
		LocationLng:  u.LocationLng,
		City:         u.City,
		Zip:          u.Zip,
		AuthProvider: u.AuthProvider,
		CreatedAt:    u.CreatedAt,
		LastActive:   u.LastActive,
	}
}

// UserSummary is the short form embedded in items, messages and conversations.
type UserSummary struct {
	ID     string  `db:"id" json:"id"`
	Name   string  `db:"name" json:"name"`
	Avatar *string `db:"avatar" json:"avatar"`
}

// UserCreate carries the fields needed to register a user.
type UserCreate struct {
	Email          string
	Name           string
	Avatar         string
	AuthProvider   string
	AuthProviderID string
}

// UserUpdate is a partial profile update; nil fields are left untouched.
type UserUpdate struct {
	Name        *string  `json:"name" binding:"omitempty,min=2,max=80"`
	Avatar      *string  `json:"avatar" binding:"omitempty,max=2048"`
	Bio         *string  `json:"bio" binding:"omitempty,max=500"`
	LocationLat *float64 `json:"locationLat" binding:"omitempty,latitude"`
	LocationLng *float64 `json:"locationLng" binding:"omitempty,longitude"`
	City        *string  `json:"city" binding:"omitempty,max=120"`
	Zip         *string  `json:"zip" binding:"omitempty,max=20"`
}

// Empty reports whether the update changes nothing.
func (u UserUpdate) Empty() bool {
	return u.Name == nil && u.Avatar == nil && u.Bio == nil && u.LocationLat == nil &&
		u.LocationLng == nil && u.City == nil && u.Zip == nil
}
