package models

import "time"

type UserRole string

const (
	RoleSuperAdmin UserRole = "super-admin"
	RoleAdmin      UserRole = "admin"
	RoleAgent      UserRole = "agent"
	RoleAccount    UserRole = "account"
)

type User struct {
	ID uint `gorm:"primaryKey" json:"id"`
	// AdminID is the owning admin of an agent; nil for every other role.
	AdminID      *uint     `gorm:"index" json:"admin_id"`
	Name         string    `gorm:"size:100;not null" json:"name"`
	Email        string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Phone        string    `gorm:"size:30" json:"phone"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         UserRole  `gorm:"size:20;not null;index" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
