package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"

	"freeshare/internal/models"
)

// Provider names a supported identity provider.
type Provider string

const (
	Google   Provider = "google"
	Facebook Provider = "facebook"
	Apple    Provider = "apple"
)

// ParseProvider validates a provider path segment.
func ParseProvider(s string) (Provider, bool) {
	switch p := Provider(s); p {
	case Google, Facebook, Apple:
		return p, true
	}
	return "", false
}

// ProfileFetcher turns an exchanged token into a normalized profile.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, client *http.Client, token *oauth2.Token) (models.OAuthProfile, error)
}

// GoogleProfile reads the OAuth2 v2 userinfo endpoint.
type GoogleProfile struct {
	UserInfoURL string
}

func (g GoogleProfile) FetchProfile(ctx context.Context, client *http.Client, token *oauth2.Token) (models.OAuthProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.UserInfoURL, nil)
	if err != nil {
		return models.OAuthProfile{}, err
	}
	token.SetAuthHeader(req)

	var body struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := getJSON(client, req, &body); err != nil {
		return models.OAuthProfile{}, fmt.Errorf("google userinfo: %w", err)
	}
	return models.OAuthProfile{ID: body.ID, Email: body.Email, Name: body.Name, Avatar: body.Picture}, nil
}

// FacebookProfile reads the Graph API "me" node.
type FacebookProfile struct {
	MeURL string
}

func (f FacebookProfile) FetchProfile(ctx context.Context, client *http.Client, token *oauth2.Token) (models.OAuthProfile, error) {
	u, err := url.Parse(f.MeURL)
	if err != nil {
		return models.OAuthProfile{}, err
	}
	q := u.Query()
	q.Set("fields", "id,name,email,picture")
	q.Set("access_token", token.AccessToken)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return models.OAuthProfile{}, err
	}

	var body struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture struct {
			Data struct {
				URL string `json:"url"`
			} `json:"data"`
		} `json:"picture"`
	}
	if err := getJSON(client, req, &body); err != nil {
		return models.OAuthProfile{}, fmt.Errorf("facebook me: %w", err)
	}
	return models.OAuthProfile{ID: body.ID, Email: body.Email, Name: body.Name, Avatar: body.Picture.Data.URL}, nil
}

func getJSON(client *http.Client, req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, msg)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return err
	}
	return nil
}

var errNoIDToken = errors.New("token response has no id_token")
