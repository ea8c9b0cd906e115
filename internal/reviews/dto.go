package reviews

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/shopfront-backend/pkg/db/models"
)

type ReviewDTO struct {
	ID        uuid.UUID `json:"id"`
	Product   uuid.UUID `json:"product"`
	User      uuid.UUID `json:"user"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

type ReviewInput struct {
	Product uuid.UUID `json:"product" validate:"required"`
	Rating  int       `json:"rating" validate:"required,min=1,max=5"`
	Comment string    `json:"comment" validate:"max=5000"`
}

// ReviewPatch carries the fields an author may change. Product is accepted
// only when it names the review's current product.
type ReviewPatch struct {
	Product *uuid.UUID `json:"product,omitempty"`
	Rating  *int       `json:"rating,omitempty" validate:"omitempty,min=1,max=5"`
	Comment *string    `json:"comment,omitempty" validate:"omitempty,max=5000"`
}

func (in ReviewInput) Patch() ReviewPatch {
	return ReviewPatch{Product: &in.Product, Rating: &in.Rating, Comment: &in.Comment}
}

// Filter narrows the public review listing.
type Filter struct {
	ProductID *uuid.UUID
	Rating    *int
}

func FromModel(r *models.Review) ReviewDTO {
	return ReviewDTO{
		ID:        r.ID,
		Product:   r.ProductID,
		User:      r.UserID,
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
	}
}
