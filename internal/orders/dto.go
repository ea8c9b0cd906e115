package orders

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopfront-backend/pkg/db/models"
	"github.com/angelmondragon/shopfront-backend/pkg/enums"
)

type OrderItemDTO struct {
	ID       uuid.UUID       `json:"id"`
	Product  uuid.UUID       `json:"product"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type OrderDTO struct {
	ID             uuid.UUID         `json:"id"`
	User           uuid.UUID         `json:"user"`
	Items          []OrderItemDTO    `json:"items"`
	TotalAmount    decimal.Decimal   `json:"total_amount"`
	DiscountAmount decimal.Decimal   `json:"discount_amount"`
	Coupon         *uuid.UUID        `json:"coupon"`
	Status         enums.OrderStatus `json:"status"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// MarshalJSON renders money with two fraction digits.
func (i OrderItemDTO) MarshalJSON() ([]byte, error) {
	type plain OrderItemDTO
	return json.Marshal(struct {
		plain
		Price string `json:"price"`
	}{plain(i), i.Price.StringFixed(2)})
}

// MarshalJSON renders money with two fraction digits.
func (o OrderDTO) MarshalJSON() ([]byte, error) {
	type plain OrderDTO
	return json.Marshal(struct {
		plain
		TotalAmount    string `json:"total_amount"`
		DiscountAmount string `json:"discount_amount"`
	}{plain(o), o.TotalAmount.StringFixed(2), o.DiscountAmount.StringFixed(2)})
}

// LineInput is one requested product line at checkout.
type LineInput struct {
	Product  uuid.UUID `json:"product" validate:"required"`
	Quantity int       `json:"quantity" validate:"required,min=1,max=10000"`
}

// CheckoutInput places an order from explicit lines, or from the caller's
// cart when Items is empty.
type CheckoutInput struct {
	Items      []LineInput `json:"items" validate:"omitempty,max=200,dive"`
	CouponCode string      `json:"coupon_code,omitempty" validate:"omitempty,max=50"`
}

type StatusInput struct {
	Status string `json:"status" validate:"required"`
}

// ListFilter narrows order listings; UserID is honoured for administrators only.
type ListFilter struct {
	Status *enums.OrderStatus
	UserID *uuid.UUID
}

// Actor is the principal performing an order operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.Role
}

func FromModel(o *models.Order) OrderDTO {
	items := make([]OrderItemDTO, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemDTO{
			ID:       item.ID,
			Product:  item.ProductID,
			Quantity: item.Quantity,
			Price:    item.Price,
		})
	}
	return OrderDTO{
		ID:             o.ID,
		User:           o.UserID,
		Items:          items,
		TotalAmount:    o.TotalAmount,
		DiscountAmount: o.DiscountAmount,
		Coupon:         o.CouponID,
		Status:         o.Status,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}

func fromModels(rows []models.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out
}
