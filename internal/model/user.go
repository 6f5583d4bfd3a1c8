package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// User is an account. Profile fields are nullable.
type User struct {
	ID             uuid.UUID `db:"id" json:"id"`
	Email          string    `db:"email" json:"email"`
	PasswordHashed string    `db:"password_hashed" json:"-"`
	FullName       *string   `db:"full_name" json:"full_name"`
	AvatarURL      *string   `db:"avatar_url" json:"avatar_url"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Profile returns the public view of the user.
func (u *User) Profile() *Profile {
	return &Profile{ID: u.ID, FullName: u.FullName, AvatarURL: u.AvatarURL}
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

const MinPasswordLength = 6

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailRequired      = errors.New("email is required")
	ErrPasswordTooShort   = errors.New("password too short")
)
