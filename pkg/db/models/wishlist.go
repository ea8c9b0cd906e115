package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Wishlist is the per-user singleton set of saved products.
type Wishlist struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID      `gorm:"column:user_id;type:uuid;not null;uniqueIndex:wishlists_user_id_key"`
	Items     []WishlistItem `gorm:"foreignKey:WishlistID;references:ID"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
}

func (w *Wishlist) BeforeCreate(*gorm.DB) error {
	ensureID(&w.ID)
	return nil
}

// WishlistItem is one membership row of the wishlist product set.
type WishlistItem struct {
	WishlistID uuid.UUID `gorm:"column:wishlist_id;type:uuid;primaryKey"`
	ProductID  uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey;index:wishlist_products_product_id_idx"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (WishlistItem) TableName() string {
	return "wishlist_products"
}
