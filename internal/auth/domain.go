package auth

import (
	"time"

	"github.com/meridian-cms/meridian-cms/internal/authz"
)

// Account is the credential view of a principal used during sign-in.
type Account struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	Status       authz.Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
