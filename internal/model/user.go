package model

import "time"

// Role is an account's authorisation level.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// User is a storefront account. PasswordHash is never serialised.
type User struct {
	ID           int64     `json:"id"`
	FirstName    string    `json:"firstName"`
	MiddleName   string    `json:"middleName,omitempty"`
	LastName     string    `json:"lastName"`
	Email        string    `json:"email"`
	ContactNo    string    `json:"contactNo"`
	Address      string    `json:"address,omitempty"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// SignupRequest registers a new account.
type SignupRequest struct {
	FirstName       string `json:"firstName"`
	MiddleName      string `json:"middleName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	ContactNo       string `json:"contactNo"`
	Address         string `json:"address"`
	Password        string `json:"password"`
	AdminSecretCode string `json:"adminSecretCode"`
}

// SigninRequest authenticates by email or contact number.
type SigninRequest struct {
	Email     string `json:"email"`
	ContactNo string `json:"contactNo"`
	Password  string `json:"password"`
}

// UpdateUserRequest changes profile fields; nil fields are left untouched.
type UpdateUserRequest struct {
	UpdatedEmail    *string `json:"updatedEmail"`
	FirstName       *string `json:"firstName"`
	MiddleName      *string `json:"middleName"`
	LastName        *string `json:"lastName"`
	ContactNo       *string `json:"contactNo"`
	Address         *string `json:"address"`
	CurrentPassword string  `json:"currentPassword"`
	NewPassword     string  `json:"newPassword"`
}

// DeleteUserRequest confirms account deletion.
type DeleteUserRequest struct {
	Password string `json:"password"`
}

// AuthResponse carries an account and, when issued, a bearer token.
type AuthResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token,omitempty"`
}

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID int64
	Email  string
	Role   Role
}

// IsAdmin reports whether the caller holds the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
