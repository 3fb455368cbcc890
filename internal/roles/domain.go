package roles

import (
	"time"

	"github.com/meridian-cms/meridian-cms/internal/permission"
)

// Role is a named, reusable permission matrix assignable to principals.
type Role struct {
	ID           int64             `json:"id"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Permissions  permission.Matrix `json:"permissions"`
	IsSystemRole bool              `json:"isSystemRole"`
	CreatedBy    int64             `json:"createdBy"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// RoleInput carries the mutable fields for create and update.
type RoleInput struct {
	Name        string            `json:"name" validate:"required,min=2,max=50,rolename"`
	Description string            `json:"description" validate:"max=500"`
	Permissions permission.Matrix `json:"permissions"`
}

// CloneInput names the copy produced by the clone operation.
type CloneInput struct {
	Name        string `json:"name" validate:"required,min=2,max=50,rolename"`
	Description string `json:"description" validate:"max=500"`
}
