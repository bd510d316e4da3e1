package model

import (
	"time"

	"github.com/jwalitptl/dogfinder/internal/datastore"
)

// User is a row of the users table shown on the admin user page.
type User struct {
	ID        int64      `json:"id" db:"id"`
	Email     *string    `json:"email" db:"email"`
	Name      *string    `json:"name" db:"name"`
	Role      *string    `json:"role" db:"role"`
	CreatedAt *time.Time `json:"created_at,omitempty" db:"created_at"`
}

func UserFromRow(r datastore.Row) User {
	id, _ := asInt64(r["id"])
	return User{
		ID:        id,
		Email:     asStringPtr(r["email"]),
		Name:      asStringPtr(r["name"]),
		Role:      asStringPtr(r["role"]),
		CreatedAt: asTimePtr(r["created_at"]),
	}
}

func UsersFromRows(rows []datastore.Row) []User {
	out := make([]User, 0, len(rows))
	for _, r := range rows {
		out = append(out, UserFromRow(r))
	}
	return out
}

// LoggedUser is the identity blob kept under the loggedUser session key.
type LoggedUser struct {
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
}
