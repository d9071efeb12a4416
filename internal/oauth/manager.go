package oauth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"freeshare/internal/config"
	"freeshare/internal/models"
)

var (
	ErrUnknownProvider  = errors.New("invalid provider")
	ErrProviderDisabled = errors.New("provider is not configured")
	ErrInvalidState     = errors.New("invalid oauth state")
)

const stateTTL = 10 * time.Minute

// ProviderConfig is one row of the provider table.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	Endpoint     oauth2.Endpoint
	Scopes       []string
	AuthParams   map[string]string
	Fetcher      ProfileFetcher
}

// DefaultProviders builds the provider table from cfg. Providers without a
// client id are left out.
func DefaultProviders(cfg config.Config) map[Provider]ProviderConfig {
	all := map[Provider]ProviderConfig{
		Google: {
			Endpoint: oauth2.Endpoint{
				AuthURL:   "https://accounts.google.com/o/oauth2/v2/auth",
				TokenURL:  "https://oauth2.googleapis.com/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
			Scopes:  []string{"email", "profile"},
			Fetcher: GoogleProfile{UserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo"},
		},
		Facebook: {
			Endpoint: oauth2.Endpoint{
				AuthURL:   "https://www.facebook.com/v18.0/dialog/oauth",
				TokenURL:  "https://graph.facebook.com/v18.0/oauth/access_token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
			Scopes:  []string{"email", "public_profile"},
			Fetcher: FacebookProfile{MeURL: "https://graph.facebook.com/me"},
		},
		Apple: {
			Endpoint: oauth2.Endpoint{
				AuthURL:   "https://appleid.apple.com/auth/authorize",
				TokenURL:  "https://appleid.apple.com/auth/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
			Scopes: []string{"name", "email"},
			// scoped requests must be answered with a form post
			AuthParams: map[string]string{"response_mode": "form_post"},
		},
	}

	out := make(map[Provider]ProviderConfig)
	for p, pc := range all {
		if !cfg.OAuthEnabled(string(p)) {
			continue
		}
		id, secret := cfg.ProviderCredentials(string(p))
		pc.ClientID, pc.ClientSecret = id, secret
		if p == Apple {
			pc.Fetcher = AppleProfile{ClientID: id, Issuer: appleIssuer, Keys: RemoteKeys(appleJWKSURL)}
		}
		out[p] = pc
	}
	return out
}

// Manager builds authorization URLs and completes code exchanges.
type Manager struct {
	baseURL   string
	stateKey  []byte
	providers map[Provider]ProviderConfig
	client    *http.Client
	now       func() time.Time
}

// NewManager returns a Manager. An empty stateSecret gets a random key, so
// states only verify within the same process.
func NewManager(baseURL, stateSecret string, providers map[Provider]ProviderConfig) (*Manager, error) {
	key := []byte(stateSecret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate state key: %w", err)
		}
	}
	return &Manager{
		baseURL:   strings.TrimRight(baseURL, "/"),
		stateKey:  key,
		providers: providers,
		client:    &http.Client{Timeout: 10 * time.Second},
		now:       time.Now,
	}, nil
}

// Enabled reports whether provider can be used.
func (m *Manager) Enabled(p Provider) bool {
	_, ok := m.providers[p]
	return ok
}

func (m *Manager) lookup(p Provider) (ProviderConfig, *oauth2.Config, error) {
	if _, ok := ParseProvider(string(p)); !ok {
		return ProviderConfig{}, nil, ErrUnknownProvider
	}
	pc, ok := m.providers[p]
	if !ok {
		return ProviderConfig{}, nil, ErrProviderDisabled
	}
	return pc, &oauth2.Config{
		ClientID:     pc.ClientID,
		ClientSecret: pc.ClientSecret,
		Endpoint:     pc.Endpoint,
		Scopes:       pc.Scopes,
		RedirectURL:  m.RedirectURL(p),
	}, nil
}

// RedirectURL is the callback registered with the provider.
func (m *Manager) RedirectURL(p Provider) string {
	return m.baseURL + "/api/auth/" + string(p) + "/callback"
}

// AuthURL returns the provider's consent page URL with a signed state.
func (m *Manager) AuthURL(p Provider) (string, error) {
	pc, cfg, err := m.lookup(p)
	if err != nil {
		return "", err
	}
	state, err := m.signState(p)
	if err != nil {
		return "", err
	}
	opts := make([]oauth2.AuthCodeOption, 0, len(pc.AuthParams))
	for k, v := range pc.AuthParams {
		opts = append(opts, oauth2.SetAuthURLParam(k, v))
	}
	return cfg.AuthCodeURL(state, opts...), nil
}

// Exchange verifies state, swaps code for a token and fetches the profile.
func (m *Manager) Exchange(ctx context.Context, p Provider, code, state string) (models.OAuthProfile, error) {
	pc, cfg, err := m.lookup(p)
	if err != nil {
		return models.OAuthProfile{}, err
	}
	if err := m.verifyState(p, state); err != nil {
		return models.OAuthProfile{}, err
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.client)
	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return models.OAuthProfile{}, fmt.Errorf("exchange code: %w", err)
	}
	profile, err := pc.Fetcher.FetchProfile(ctx, m.client, token)
	if err != nil {
		return models.OAuthProfile{}, err
	}
	if profile.ID == "" {
		return models.OAuthProfile{}, fmt.Errorf("%s profile has no id", p)
	}
	return profile, nil
}

type stateClaims struct {
	Provider string `json:"provider"`
	jwt.RegisteredClaims
}

func (m *Manager) signState(p Provider) (string, error) {
	now := m.now()
	claims := stateClaims{
		Provider: string(p),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(stateTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.stateKey)
}

func (m *Manager) verifyState(p Provider, state string) error {
	if state == "" {
		return ErrInvalidState
	}
	var claims stateClaims
	_, err := jwt.ParseWithClaims(state, &claims, func(*jwt.Token) (any, error) {
		return m.stateKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if claims.Provider != string(p) {
		return ErrInvalidState
	}
	return nil
}
