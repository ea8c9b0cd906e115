package catalog

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopfront-backend/pkg/db/models"
)

type CategoryDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// CategoryInput is the full representation accepted by POST and PUT.
type CategoryInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=5000"`
}

// CategoryPatch carries the fields a PATCH may change.
type CategoryPatch struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,max=100"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=5000"`
}

type ProductDTO struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Category    uuid.UUID       `json:"category"`
	Image       *string         `json:"image"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// MarshalJSON renders the price with two fraction digits.
func (p ProductDTO) MarshalJSON() ([]byte, error) {
	type plain ProductDTO
	return json.Marshal(struct {
		plain
		Price string `json:"price"`
	}{plain(p), p.Price.StringFixed(2)})
}

// ProductInput is the full representation accepted by POST and PUT.
type ProductInput struct {
	Name        string           `json:"name" validate:"required,max=200"`
	Description string           `json:"description" validate:"max=5000"`
	Price       *decimal.Decimal `json:"price" validate:"required"`
	Stock       int              `json:"stock" validate:"gte=0"`
	Category    uuid.UUID        `json:"category" validate:"required"`
	Image       *string          `json:"image,omitempty" validate:"omitempty,max=500"`
}

// ProductPatch carries the fields a PATCH may change.
type ProductPatch struct {
	Name        *string          `json:"name,omitempty" validate:"omitempty,max=200"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=5000"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Stock       *int             `json:"stock,omitempty"`
	Category    *uuid.UUID       `json:"category,omitempty"`
	Image       *string          `json:"image,omitempty" validate:"omitempty,max=500"`
}

// Patch converts a full input into a patch that sets every field.
func (in CategoryInput) Patch() CategoryPatch {
	return CategoryPatch{Name: &in.Name, Description: &in.Description}
}

// Patch converts a full input into a patch that sets every field.
func (in ProductInput) Patch() ProductPatch {
	image := in.Image
	if image == nil {
		empty := ""
		image = &empty
	}
	return ProductPatch{
		Name:        &in.Name,
		Description: &in.Description,
		Price:       in.Price,
		Stock:       &in.Stock,
		Category:    &in.Category,
		Image:       image,
	}
}

func CategoryFromModel(c *models.Category) CategoryDTO {
	return CategoryDTO{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
	}
}

func ProductFromModel(p *models.Product) ProductDTO {
	return ProductDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		Category:    p.CategoryID,
		Image:       p.Image,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func categoriesFromModels(rows []models.Category) []CategoryDTO {
	out := make([]CategoryDTO, 0, len(rows))
	for i := range rows {
		out = append(out, CategoryFromModel(&rows[i]))
	}
	return out
}

func productsFromModels(rows []models.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		out = append(out, ProductFromModel(&rows[i]))
	}
	return out
}
