package models

// OAuthProfile is the provider-neutral identity returned after a code exchange.
type OAuthProfile struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}
