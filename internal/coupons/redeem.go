package coupons

import (
	"strings"
	"time"

	"github.com/angelmondragon/shopfront-backend/pkg/db/models"
)

const (
	ReasonUnknown    = "unknown_code"
	ReasonInactive   = "inactive"
	ReasonNotStarted = "not_yet_valid"
	ReasonExpired    = "expired"
)

// NormalizeCode trims and upper-cases a coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Evaluate checks c against its validity window at now. The reason is empty
// when the coupon is redeemable.
func Evaluate(c *models.Coupon, now time.Time) (bool, string) {
	switch {
	case c == nil:
		return false, ReasonUnknown
	case !c.Active:
		return false, ReasonInactive
	case now.Before(c.ValidFrom):
		return false, ReasonNotStarted
	case now.After(c.ValidTo):
		return false, ReasonExpired
	}
	return true, ""
}
