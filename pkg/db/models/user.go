package models

import (
	"time"

	"github.com/angelmondragon/shopfront-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents the canonical identity entity.
type User struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Email        string     `gorm:"column:email;type:text;not null;uniqueIndex:users_email_key"`
	PasswordHash string     `gorm:"column:password_hash;not null"`
	FirstName    string     `gorm:"column:first_name;not null"`
	LastName     string     `gorm:"column:last_name;not null"`
	Role         enums.Role `gorm:"column:role;type:text;not null;default:customer"`
	IsActive     bool       `gorm:"column:is_active;not null;default:true"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	if u.Role == "" {
		u.Role = enums.RoleCustomer
	}
	return nil
}
