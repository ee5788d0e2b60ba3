package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRole string

const (
	RoleAdmin  UserRole = "ADMIN"
	RoleMember UserRole = "MEMBER"
)

func (r UserRole) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

type User struct {
	ID           string   `gorm:"primaryKey;size:36"`
	Email        string   `gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string   `gorm:"not null"`
	Role         UserRole `gorm:"type:varchar(20);not null;default:MEMBER"`
	Name         string   `gorm:"size:255"`
	Company      string   `gorm:"size:255"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
