package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserProfile extends a user with contact details.
type UserProfile struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID         uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:user_profiles_user_id_key"`
	Phone          string    `gorm:"column:phone;type:varchar(15);not null;default:''"`
	Address        string    `gorm:"column:address;type:text;not null;default:''"`
	ProfilePicture *string   `gorm:"column:profile_picture"`
}

func (UserProfile) TableName() string {
	return "user_profiles"
}

func (p *UserProfile) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
