package wishlist

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/shopfront-backend/pkg/db/models"
)

type WishlistDTO struct {
	ID        uuid.UUID   `json:"id"`
	User      uuid.UUID   `json:"user"`
	Products  []uuid.UUID `json:"products"`
	CreatedAt time.Time   `json:"created_at"`
}

// ReplaceInput is the PUT body; the stored set becomes exactly Products.
type ReplaceInput struct {
	Products []uuid.UUID `json:"products" validate:"max=500"`
}

type AddProductInput struct {
	Product uuid.UUID `json:"product" validate:"required"`
}

func FromModel(w *models.Wishlist) WishlistDTO {
	products := make([]uuid.UUID, 0, len(w.Items))
	for _, item := range w.Items {
		products = append(products, item.ProductID)
	}
	return WishlistDTO{
		ID:        w.ID,
		User:      w.UserID,
		Products:  products,
		CreatedAt: w.CreatedAt,
	}
}
