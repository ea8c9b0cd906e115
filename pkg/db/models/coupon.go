package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Coupon is a globally visible, time-bounded percentage discount.
type Coupon struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Code            string    `gorm:"column:code;type:varchar(50);not null;uniqueIndex:coupons_code_key"`
	DiscountPercent int       `gorm:"column:discount_percent;not null"`
	ValidFrom       time.Time `gorm:"column:valid_from;not null"`
	ValidTo         time.Time `gorm:"column:valid_to;not null"`
	Active          bool      `gorm:"column:active;not null"`
}

func (c *Coupon) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// RedeemableAt reports whether the coupon applies at the given instant.
func (c Coupon) RedeemableAt(now time.Time) bool {
	return c.Active && !now.Before(c.ValidFrom) && !now.After(c.ValidTo)
}
