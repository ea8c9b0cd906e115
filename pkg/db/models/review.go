package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Review is a single rating left by a user on a product.
type Review struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:reviews_product_user_key"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:reviews_product_user_key"`
	Rating    int       `gorm:"column:rating;not null"`
	Comment   string    `gorm:"column:comment;type:text;not null;default:''"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (r *Review) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
