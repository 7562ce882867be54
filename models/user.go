package models

import "time"

// User represents a registered reader. Users are correlated to a browser
// session via an opaque session id; the session id is not a credential and
// the schema does not force it to be unique across users.
type User struct {
	ID        string    `json:"id" db:"id"`
	SessionID string    `json:"session_id" db:"session_id"`
	Name      string    `json:"name" db:"name"`
	LastName  string    `json:"last_name" db:"last_name"`
	Email     string    `json:"email" db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CreateUserRequest represents the POST /users body
type CreateUserRequest struct {
	Name     string `json:"name" validate:"required"`
	LastName string `json:"lastName" validate:"required"`
	Email    string `json:"email" validate:"required"`
}

// ListUsersResponse wraps the session-scoped user listing
type ListUsersResponse struct {
	Users []User `json:"users"`
}
