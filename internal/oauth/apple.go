package oauth

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"freeshare/internal/models"
)

const (
	appleIssuer  = "https://appleid.apple.com"
	appleJWKSURL = "https://appleid.apple.com/auth/keys"
)

// KeySource yields the key function used to verify id_token signatures.
type KeySource func(ctx context.Context) (jwt.Keyfunc, error)

// RemoteKeys fetches a JWKS from url on first use and keeps it refreshed.
func RemoteKeys(url string) KeySource {
	var (
		mu sync.Mutex
		kf keyfunc.Keyfunc
	)
	return func(ctx context.Context) (jwt.Keyfunc, error) {
		mu.Lock()
		defer mu.Unlock()
		if kf == nil {
			k, err := keyfunc.NewDefaultCtx(context.WithoutCancel(ctx), []string{url})
			if err != nil {
				return nil, fmt.Errorf("load jwks: %w", err)
			}
			kf = k
		}
		return kf.Keyfunc, nil
	}
}

// StaticKeys wraps an already built key function.
func StaticKeys(kf jwt.Keyfunc) KeySource {
	return func(context.Context) (jwt.Keyfunc, error) { return kf, nil }
}

// AppleProfile verifies the id_token returned with the access token. Apple
// has no userinfo endpoint.
type AppleProfile struct {
	ClientID string
	Issuer   string
	Keys     KeySource
}

type appleClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func (a AppleProfile) FetchProfile(ctx context.Context, _ *http.Client, token *oauth2.Token) (models.OAuthProfile, error) {
	raw, _ := token.Extra("id_token").(string)
	if raw == "" {
		return models.OAuthProfile{}, errNoIDToken
	}
	kf, err := a.Keys(ctx)
	if err != nil {
		return models.OAuthProfile{}, err
	}

	issuer := a.Issuer
	if issuer == "" {
		issuer = appleIssuer
	}
	var claims appleClaims
	_, err = jwt.ParseWithClaims(raw, &claims, kf,
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(a.ClientID),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return models.OAuthProfile{}, fmt.Errorf("apple id_token: %w", err)
	}
	return models.OAuthProfile{ID: claims.Subject, Email: claims.Email}, nil
}
