// Package ownership builds the query predicates that confine per-user
// resources to their owner. A row outside the scope behaves exactly like a
// missing row.
package ownership

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Resource names a per-user table.
type Resource string

const (
	Cart     Resource = "cart"
	CartItem Resource = "cart_item"
	Order    Resource = "order"
	Profile  Resource = "profile"
	Wishlist Resource = "wishlist"
)

var predicates = map[Resource]string{
	Cart:     "carts.user_id = ?",
	CartItem: "cart_items.cart_id IN (SELECT carts.id FROM carts WHERE carts.user_id = ?)",
	Order:    "orders.user_id = ?",
	Profile:  "user_profiles.user_id = ?",
	Wishlist: "wishlists.user_id = ?",
}

// Scope restricts a query on resource to rows owned by userID. An unknown
// resource or a nil user matches nothing.
func Scope(resource Resource, userID uuid.UUID) func(*gorm.DB) *gorm.DB {
	predicate, ok := predicates[resource]
	return func(db *gorm.DB) *gorm.DB {
		if !ok || userID == uuid.Nil {
			return db.Where("1 = 0")
		}
		return db.Where(predicate, userID)
	}
}

func (r Resource) String() string {
	return string(r)
}
