package models

import "time"

// Role values for User.Role.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// Status values for User.Status. New signups start PENDING and only
// APPROVED accounts may reach the dashboard.
const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

type User struct {
	ID        uint   `gorm:"primaryKey"`
	Email     string `gorm:"unique;not null;index"`
	Name      string `gorm:"index"`
	Password  string `gorm:"not null"` // bcrypt hash
	Role      string `gorm:"not null;default:'USER'"`
	Status    string `gorm:"not null;default:'PENDING'"`
	Image     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// IsApproved reports whether the account passed moderation. An empty
// status counts as not approved so the gate fails closed.
func (u *User) IsApproved() bool { return u.Status == StatusApproved }
