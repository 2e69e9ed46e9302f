package domain

import (
	"context"
	"time"
)

// User roles. Admins see everything; analysts additionally get access to
// reports gated on the analyst role.
const (
	RoleUser    = "user"
	RoleAdmin   = "admin"
	RoleAnalyst = "analyst"
)

type User struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"full_name,omitempty"`
	// HashedPassword never leaves the server.
	HashedPassword string     `json:"-"`
	IsActive       bool       `json:"is_active"`
	IsSuperuser    bool       `json:"is_superuser"`
	Role           string     `json:"role"`
	Company        string     `json:"company,omitempty"`
	Position       string     `json:"position,omitempty"`
	Phone          string     `json:"phone,omitempty"`
	Timezone       string     `json:"timezone"`
	Language       string     `json:"language"`
	NotificationPrefs []byte  `json:"-"`
	LastLogin      *time.Time `json:"last_login,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// IsAdmin reports whether the user has administrative rights.
func (u *User) IsAdmin() bool {
	return u.IsSuperuser || u.Role == RoleAdmin
}

// IsAnalyst reports whether the user can access analyst-level features.
func (u *User) IsAnalyst() bool {
	return u.Role == RoleAnalyst || u.IsAdmin()
}

// UserUpdate carries the mutable profile fields for UpdateProfile.
type UserUpdate struct {
	FullName string
	Company  string
	Position string
	Phone    string
	Timezone string
	Language string
}

type UserRepository interface {
	Create(ctx context.Context, email, username, fullName, hashedPassword, role string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, limit, offset int) ([]*User, error)
	UpdateProfile(ctx context.Context, id int64, update UserUpdate) (*User, error)
	TouchLastLogin(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}
