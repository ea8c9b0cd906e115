package models

import (
	"time"

	"github.com/angelmondragon/shopfront-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order is the immutable purchase record; only Status changes after checkout.
type Order struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	UserID         uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index:orders_user_id_idx"`
	TotalAmount    decimal.Decimal   `gorm:"column:total_amount;type:numeric(10,2);not null"`
	DiscountAmount decimal.Decimal   `gorm:"column:discount_amount;type:numeric(10,2);not null;default:0"`
	CouponID       *uuid.UUID        `gorm:"column:coupon_id;type:uuid"`
	Status         enums.OrderStatus `gorm:"column:status;type:text;not null;default:PENDING"`
	Items          []OrderItem       `gorm:"foreignKey:OrderID;references:ID"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	if o.Status == "" {
		o.Status = enums.OrderStatusPending
	}
	return nil
}

// OrderItem snapshots the unit price at purchase time.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index:order_items_order_id_idx"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Quantity  int             `gorm:"column:quantity;not null;default:1"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
