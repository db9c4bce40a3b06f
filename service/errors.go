package service

import "errors"

var (
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token has expired")
	ErrTokenReused         = errors.New("refresh token has already been used")
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrEmailTaken          = errors.New("email already registered")
	ErrPermissionDenied    = errors.New("you do not have permission to access this resource")
	ErrInvalidRole         = errors.New("invalid role specified")
	ErrInvalidDateOfBirth  = errors.New("invalid date of birth")
	ErrWeakPassword        = errors.New("password does not meet the requirements")
	ErrGoogleNotConfigured = errors.New("google login is not configured")
	ErrInvalidGoogleToken  = errors.New("invalid google token")
)
