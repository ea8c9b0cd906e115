package models

import "github.com/google/uuid"

// All lists every persisted model; used by schema checks and in-memory test stores.
func All() []any {
	return []any{
		&User{},
		&Category{},
		&Product{},
		&Cart{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&Review{},
		&UserProfile{},
		&Wishlist{},
		&WishlistItem{},
		&Coupon{},
		&OutboxEvent{},
	}
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
