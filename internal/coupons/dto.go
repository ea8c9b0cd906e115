package coupons

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/shopfront-backend/pkg/db/models"
)

type CouponDTO struct {
	ID              uuid.UUID `json:"id"`
	Code            string    `json:"code"`
	DiscountPercent int       `json:"discount_percent"`
	ValidFrom       time.Time `json:"valid_from"`
	ValidTo         time.Time `json:"valid_to"`
	Active          bool      `json:"active"`
}

// CouponInput is the full representation accepted by POST and PUT.
type CouponInput struct {
	Code            string    `json:"code" validate:"required,max=50"`
	DiscountPercent int       `json:"discount_percent" validate:"required,min=1,max=100"`
	ValidFrom       time.Time `json:"valid_from" validate:"required"`
	ValidTo         time.Time `json:"valid_to" validate:"required"`
	Active          *bool     `json:"active,omitempty"`
}

// CouponPatch carries the fields a PATCH may change.
type CouponPatch struct {
	Code            *string    `json:"code,omitempty" validate:"omitempty,max=50"`
	DiscountPercent *int       `json:"discount_percent,omitempty" validate:"omitempty,min=1,max=100"`
	ValidFrom       *time.Time `json:"valid_from,omitempty"`
	ValidTo         *time.Time `json:"valid_to,omitempty"`
	Active          *bool      `json:"active,omitempty"`
}

// Patch converts a full input into a patch that sets every field. Active
// defaults to true when omitted.
func (in CouponInput) Patch() CouponPatch {
	active := true
	if in.Active != nil {
		active = *in.Active
	}
	return CouponPatch{
		Code:            &in.Code,
		DiscountPercent: &in.DiscountPercent,
		ValidFrom:       &in.ValidFrom,
		ValidTo:         &in.ValidTo,
		Active:          &active,
	}
}

type ValidateRequest struct {
	Code string `json:"code" validate:"required,max=50"`
}

// Redemption reports whether a code can be applied right now.
type Redemption struct {
	Code            string `json:"code"`
	DiscountPercent int    `json:"discount_percent"`
	Redeemable      bool   `json:"redeemable"`
	Reason          string `json:"reason,omitempty"`
}

func FromModel(c *models.Coupon) CouponDTO {
	return CouponDTO{
		ID:              c.ID,
		Code:            c.Code,
		DiscountPercent: c.DiscountPercent,
		ValidFrom:       c.ValidFrom,
		ValidTo:         c.ValidTo,
		Active:          c.Active,
	}
}
