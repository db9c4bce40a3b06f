// file: model/request.go

package model

// RegisterRequest defines the payload for creating a new local account.
// Role accepts the legacy aliases "user" and "backlog"; ParseRole maps them.
type RegisterRequest struct {
	Name            string `json:"name" validate:"required,min=2,max=100"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,password"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
	DateOfBirth     string `json:"date_of_birth,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Role            string `json:"role,omitempty" validate:"omitempty,oneof=client admin user backlog"`
}

// LoginRequest defines the payload for password authentication.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// GoogleLoginRequest carries a Google ID token obtained by the client.
type GoogleLoginRequest struct {
	IDToken string `json:"id_token" validate:"required"`
}

// RefreshTokenRequest is used by both /auth/refresh and /auth/logout.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// ValidateTokenRequest carries an access token to introspect.
type ValidateTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// UpdateUserRoleRequest defines the payload for updating a user's role.
type UpdateUserRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=client admin"`
}
