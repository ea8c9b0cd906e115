package cart

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/shopfront-backend/pkg/db/models"
)

type CartDTO struct {
	ID        uuid.UUID     `json:"id"`
	User      uuid.UUID     `json:"user"`
	Items     []CartItemDTO `json:"items"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

type CartItemDTO struct {
	ID       uuid.UUID `json:"id"`
	Cart     uuid.UUID `json:"cart"`
	Product  uuid.UUID `json:"product"`
	Quantity int       `json:"quantity"`
}

// AddItemInput is the add-to-cart payload; quantity defaults to 1.
type AddItemInput struct {
	Product  uuid.UUID `json:"product" validate:"required"`
	Quantity *int      `json:"quantity,omitempty" validate:"omitempty,min=1,max=10000"`
}

// UpdateItemInput sets a line's quantity.
type UpdateItemInput struct {
	Quantity int `json:"quantity" validate:"required,min=1,max=10000"`
}

func (in AddItemInput) quantity() int {
	if in.Quantity == nil {
		return 1
	}
	return *in.Quantity
}

func FromModel(c *models.Cart) CartDTO {
	items := make([]CartItemDTO, 0, len(c.Items))
	for i := range c.Items {
		items = append(items, ItemFromModel(&c.Items[i]))
	}
	return CartDTO{
		ID:        c.ID,
		User:      c.UserID,
		Items:     items,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func ItemFromModel(i *models.CartItem) CartItemDTO {
	return CartItemDTO{
		ID:       i.ID,
		Cart:     i.CartID,
		Product:  i.ProductID,
		Quantity: i.Quantity,
	}
}
