package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"go-auth-api/config"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"
)

// GoogleIdentity is the verified subset of a Google ID token.
type GoogleIdentity struct {
	Subject string
	Email   string
	Name    string
}

// DisplayName falls back to the email's local part when Google sent no name.
func (g *GoogleIdentity) DisplayName() string {
	if g.Name != "" {
		return g.Name
	}
	local, _, _ := strings.Cut(g.Email, "@")
	return local
}

// GoogleVerifier verifies Google-issued ID tokens.
type GoogleVerifier interface {
	Verify(ctx context.Context, idToken string) (*GoogleIdentity, error)
}

// GoogleCodeExchanger drives the OAuth authorization-code flow.
type GoogleCodeExchanger interface {
	AuthCodeURL(state string) string
	ExchangeIDToken(ctx context.Context, code string) (string, error)
}

// IDTokenVerifier checks signature, expiry and audience against Google's keys.
type IDTokenVerifier struct {
	clientID  string
	validator *idtoken.Validator
}

func NewIDTokenVerifier(ctx context.Context, clientID string) (*IDTokenVerifier, error) {
	validator, err := idtoken.NewValidator(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not create google id token validator: %w", err)
	}
	return &IDTokenVerifier{clientID: clientID, validator: validator}, nil
}

func (v *IDTokenVerifier) Verify(ctx context.Context, idToken string) (*GoogleIdentity, error) {
	payload, err := v.validator.Validate(ctx, idToken, v.clientID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGoogleToken, err)
	}

	identity := &GoogleIdentity{Subject: payload.Subject}
	identity.Email, _ = payload.Claims["email"].(string)
	identity.Name, _ = payload.Claims["name"].(string)
	if identity.Name == "" {
		identity.Name, _ = payload.Claims["given_name"].(string)
	}
	return identity, nil
}

// GoogleOAuth exchanges authorization codes for ID tokens.
type GoogleOAuth struct {
	conf *oauth2.Config
}

func NewGoogleOAuth(cfg config.GoogleConfig) *GoogleOAuth {
	return &GoogleOAuth{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
		},
	}
}

func (g *GoogleOAuth) AuthCodeURL(state string) string {
	return g.conf.AuthCodeURL(state)
}

func (g *GoogleOAuth) ExchangeIDToken(ctx context.Context, code string) (string, error) {
	token, err := g.conf.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("%w: code exchange failed: %v", ErrInvalidGoogleToken, err)
	}
	idToken, ok := token.Extra("id_token").(string)
	if !ok || idToken == "" {
		return "", fmt.Errorf("%w: no id_token in token response", ErrInvalidGoogleToken)
	}
	return idToken, nil
}

// NewOAuthState returns a random value for the OAuth state parameter.
func NewOAuthState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
