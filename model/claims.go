package model

import "github.com/golang-jwt/jwt/v5"

// AppClaims is the payload of an access token. The user id travels in the
// registered "sub" claim.
type AppClaims struct {
	Email string `json:"email"`
	Role  Role   `json:"role"`
	jwt.RegisteredClaims
}
