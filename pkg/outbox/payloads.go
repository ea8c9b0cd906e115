package outbox

import (
	"github.com/angelmondragon/shopfront-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderLine is the order item snapshot carried by order events.
type OrderLine struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// OrderCreatedEvent is emitted once checkout commits.
type OrderCreatedEvent struct {
	OrderID        uuid.UUID         `json:"order_id"`
	UserID         uuid.UUID         `json:"user_id"`
	Status         enums.OrderStatus `json:"status"`
	TotalAmount    decimal.Decimal   `json:"total_amount"`
	DiscountAmount decimal.Decimal   `json:"discount_amount"`
	CouponCode     *string           `json:"coupon_code,omitempty"`
	Items          []OrderLine       `json:"items"`
}

// OrderStatusChangedEvent records a forward transition.
type OrderStatusChangedEvent struct {
	OrderID uuid.UUID         `json:"order_id"`
	UserID  uuid.UUID         `json:"user_id"`
	From    enums.OrderStatus `json:"from"`
	To      enums.OrderStatus `json:"to"`
}

// OrderCanceledEvent lists the quantities returned to stock.
type OrderCanceledEvent struct {
	OrderID   uuid.UUID         `json:"order_id"`
	UserID    uuid.UUID         `json:"user_id"`
	From      enums.OrderStatus `json:"from"`
	Restocked []OrderLine       `json:"restocked"`
}

// CouponExpiredEvent is emitted by the expiry job.
type CouponExpiredEvent struct {
	CouponID uuid.UUID `json:"coupon_id"`
	Code     string    `json:"code"`
}
