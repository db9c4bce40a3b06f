// file: model/user.go

package model

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"time"
)

// Role is the closed set of roles a user can hold.
type Role string

const (
	RoleClient Role = "client"
	RoleAdmin  Role = "admin"
)

// ParseRole maps a stored or submitted role string onto the canonical enum.
// Legacy values written by older deployments ("user", "backlog") are migrated
// here and nowhere else. An empty string yields RoleClient.
func ParseRole(s string) (Role, error) {
	switch s {
	case "", string(RoleClient), "user":
		return RoleClient, nil
	case string(RoleAdmin), "backlog":
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Valid reports whether r is one of the canonical roles.
func (r Role) Valid() bool {
	return r == RoleClient || r == RoleAdmin
}

// Scan implements sql.Scanner so legacy values are normalised when read.
func (r *Role) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case nil:
		s = ""
	default:
		return fmt.Errorf("cannot scan %T into Role", src)
	}
	role, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = role
	return nil
}

// Value implements driver.Valuer.
func (r Role) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %q", string(r))
	}
	return string(r), nil
}

// User is the persisted identity record.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash sql.NullString
	GoogleID     sql.NullString
	DateOfBirth  sql.NullTime
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPassword reports whether the account can sign in with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash.Valid && u.PasswordHash.String != ""
}

// PublicUser is the credential-free projection returned to clients.
type PublicUser struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	DateOfBirth *string   `json:"date_of_birth"`
	Role        Role      `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Public converts the record into its client-facing form.
func (u *User) Public() PublicUser {
	p := PublicUser{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	if u.DateOfBirth.Valid {
		dob := u.DateOfBirth.Time.Format(time.DateOnly)
		p.DateOfBirth = &dob
	}
	return p
}
