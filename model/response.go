// file: model/response.go

package model

import "time"

// Session is returned by every endpoint that authenticates a user.
type Session struct {
	AccessToken           string     `json:"access_token"`
	TokenType             string     `json:"token_type"`
	ExpiresIn             int64      `json:"expires_in"`
	RefreshToken          string     `json:"refresh_token"`
	RefreshTokenExpiresAt time.Time  `json:"refresh_token_expires_at"`
	User                  PublicUser `json:"user"`
	Permissions           []string   `json:"permissions"`
}

type ProfileResponse struct {
	User        PublicUser `json:"user"`
	Permissions []string   `json:"permissions,omitempty"`
}

type UsersResponse struct {
	Users []PublicUser `json:"users"`
}

// TokenIntrospection describes a verified access token.
type TokenIntrospection struct {
	Valid  bool            `json:"valid"`
	User   PublicUser      `json:"user"`
	Claims IntrospectClaim `json:"claims"`
}

type IntrospectClaim struct {
	Subject   string    `json:"sub"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Issuer    string    `json:"iss,omitempty"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

type GoogleAuthURLResponse struct {
	URL string `json:"url"`
}
