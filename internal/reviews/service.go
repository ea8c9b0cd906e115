package reviews

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/shopfront-backend/pkg/db"
	"github.com/angelmondragon/shopfront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/shopfront-backend/pkg/errors"
	"github.com/angelmondragon/shopfront-backend/pkg/pagination"
	"github.com/angelmondragon/shopfront-backend/pkg/types"
)

const pairConstraint = "reviews_product_user_key"

// Service exposes public review reads and author-only mutations.
type Service interface {
	List(ctx context.Context, filter Filter, params pagination.Params) ([]ReviewDTO, types.PageMeta, error)
	Get(ctx context.Context, id uuid.UUID) (*ReviewDTO, error)
	Create(ctx context.Context, userID uuid.UUID, input ReviewInput) (*ReviewDTO, error)
	Update(ctx context.Context, userID, id uuid.UUID, patch ReviewPatch) (*ReviewDTO, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("review repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, filter Filter, params pagination.Params) ([]ReviewDTO, types.PageMeta, error) {
	if filter.Rating != nil && (*filter.Rating < 1 || *filter.Rating > 5) {
		return nil, types.PageMeta{}, fieldError("rating", "rating must be between 1 and 5")
	}
	rows, total, err := s.repo.List(ctx, filter, params)
	if err != nil {
		return nil, types.PageMeta{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}
	out := make([]ReviewDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out, params.Meta(total), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ReviewDTO, error) {
	review, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, lookupError(err)
	}
	dto := FromModel(review)
	return &dto, nil
}

// Create records the caller's single review of a product; a second attempt
// conflicts rather than overwriting.
func (s *service) Create(ctx context.Context, userID uuid.UUID, input ReviewInput) (*ReviewDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Product == uuid.Nil {
		return nil, fieldError("product", "product is required")
	}
	exists, err := s.repo.ProductExists(ctx, input.Product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	review := &models.Review{ProductID: input.Product, UserID: userID}
	if err := applyPatch(review, ReviewPatch{Rating: &input.Rating, Comment: &input.Comment}); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, review); err != nil {
		if db.IsUniqueViolation(err, pairConstraint) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "product already reviewed by this user")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create review")
	}
	dto := FromModel(review)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, userID, id uuid.UUID, patch ReviewPatch) (*ReviewDTO, error) {
	review, err := s.authored(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if patch.Product != nil && *patch.Product != review.ProductID {
		return nil, fieldError("product", "product of a review cannot change")
	}
	if err := applyPatch(review, patch); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, review); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update review")
	}
	dto := FromModel(review)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.authored(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err)
	}
	return nil
}

func (s *service) authored(ctx context.Context, userID, id uuid.UUID) (*models.Review, error) {
	review, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, lookupError(err)
	}
	if review.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the author may modify a review")
	}
	return review, nil
}

func applyPatch(review *models.Review, patch ReviewPatch) error {
	if patch.Rating != nil {
		review.Rating = *patch.Rating
	}
	if patch.Comment != nil {
		review.Comment = strings.TrimSpace(*patch.Comment)
	}
	if review.Rating < 1 || review.Rating > 5 {
		return fieldError("rating", "rating must be between 1 and 5")
	}
	return nil
}

func fieldError(field, message string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(map[string]string{field: message})
}

func lookupError(err error) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load review")
}
