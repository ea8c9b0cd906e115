package wishlist

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopfront-backend/pkg/db"
	"github.com/angelmondragon/shopfront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/shopfront-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the wishlist service.
type ServiceParams struct {
	Repository Repository
	DB         txRunner
}

// Service exposes business rules for wishlist management.
type Service interface {
	List(ctx context.Context, userID uuid.UUID) ([]WishlistDTO, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*WishlistDTO, error)
	Replace(ctx context.Context, userID, id uuid.UUID, input ReplaceInput) (*WishlistDTO, error)
	AddProduct(ctx context.Context, userID, productID uuid.UUID) (*WishlistDTO, error)
	RemoveProduct(ctx context.Context, userID, productID uuid.UUID) (*WishlistDTO, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds a wishlist service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("wishlist repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: params.Repository, tx: params.DB}, nil
}

// List returns the caller's wishlist as a list of one, creating it on first access.
func (s *service) List(ctx context.Context, userID uuid.UUID) ([]WishlistDTO, error) {
	wishlist, err := s.ensure(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}
	return []WishlistDTO{FromModel(wishlist)}, nil
}

func (s *service) Get(ctx context.Context, userID, id uuid.UUID) (*WishlistDTO, error) {
	wishlist, err := s.repo.FindWishlist(ctx, userID, id)
	if err != nil {
		return nil, lookupError(err, "wishlist")
	}
	dto := FromModel(wishlist)
	return &dto, nil
}

// Replace swaps the product set; every referenced product must exist.
func (s *service) Replace(ctx context.Context, userID, id uuid.UUID, input ReplaceInput) (*WishlistDTO, error) {
	ids := dedupe(input.Products)
	var result *models.Wishlist
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindWishlist(ctx, userID, id); err != nil {
			return lookupError(err, "wishlist")
		}
		if err := ensureProducts(ctx, repo, ids); err != nil {
			return err
		}
		if err := repo.ReplaceProducts(ctx, id, ids); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace wishlist products")
		}
		wishlist, err := repo.FindWishlist(ctx, userID, id)
		if err != nil {
			return lookupError(err, "wishlist")
		}
		result = wishlist
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := FromModel(result)
	return &dto, nil
}

// AddProduct is idempotent: adding a saved product changes nothing.
func (s *service) AddProduct(ctx context.Context, userID, productID uuid.UUID) (*WishlistDTO, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is required").
			WithDetails(map[string]string{"product": "required"})
	}
	if err := ensureProducts(ctx, s.repo, []uuid.UUID{productID}); err != nil {
		return nil, err
	}
	wishlist, err := s.ensure(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.AddProduct(ctx, wishlist.ID, productID); err != nil {
		if db.IsForeignKeyViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add wishlist product")
	}
	return s.reload(ctx, userID, wishlist.ID)
}

// RemoveProduct is idempotent: removing an absent product is not an error.
func (s *service) RemoveProduct(ctx context.Context, userID, productID uuid.UUID) (*WishlistDTO, error) {
	wishlist, err := s.ensure(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.RemoveProduct(ctx, wishlist.ID, productID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove wishlist product")
	}
	return s.reload(ctx, userID, wishlist.ID)
}

func (s *service) reload(ctx context.Context, userID, id uuid.UUID) (*WishlistDTO, error) {
	wishlist, err := s.repo.FindWishlist(ctx, userID, id)
	if err != nil {
		return nil, lookupError(err, "wishlist")
	}
	dto := FromModel(wishlist)
	return &dto, nil
}

func (s *service) ensure(ctx context.Context, repo Repository, userID uuid.UUID) (*models.Wishlist, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	wishlist, err := repo.FindUserWishlist(ctx, userID)
	if err == nil {
		return wishlist, nil
	}
	if !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wishlist")
	}
	wishlist = &models.Wishlist{UserID: userID}
	if err := repo.CreateWishlist(ctx, wishlist); err != nil {
		if !db.IsUniqueViolation(err, "wishlists_user_id_key") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create wishlist")
		}
		existing, err := repo.FindUserWishlist(ctx, userID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wishlist")
		}
		return existing, nil
	}
	return wishlist, nil
}

func ensureProducts(ctx context.Context, repo Repository, ids []uuid.UUID) error {
	found, err := repo.ExistingProducts(ctx, ids)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	if len(found) == len(ids) {
		return nil
	}
	present := make(map[uuid.UUID]struct{}, len(found))
	for _, id := range found {
		present[id] = struct{}{}
	}
	missing := make([]string, 0, len(ids)-len(found))
	for _, id := range ids {
		if _, ok := present[id]; !ok {
			missing = append(missing, id.String())
		}
	}
	return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
		WithDetails(map[string]any{"products": missing})
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func lookupError(err error, what string) error {
	if db.IsNotFound(err) {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "%s not found", what)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load "+what)
}
