package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopfront-backend/pkg/db"
	"github.com/angelmondragon/shopfront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/shopfront-backend/pkg/errors"
	"github.com/angelmondragon/shopfront-backend/pkg/pagination"
	"github.com/angelmondragon/shopfront-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages the caller's singleton cart.
type Service interface {
	ListCarts(ctx context.Context, userID uuid.UUID) ([]CartDTO, error)
	EnsureCart(ctx context.Context, userID uuid.UUID) (*CartDTO, bool, error)
	GetCart(ctx context.Context, userID, cartID uuid.UUID) (*CartDTO, error)
	DeleteCart(ctx context.Context, userID, cartID uuid.UUID) error

	ListItems(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]CartItemDTO, types.PageMeta, error)
	AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartItemDTO, error)
	GetItem(ctx context.Context, userID, itemID uuid.UUID) (*CartItemDTO, error)
	UpdateItem(ctx context.Context, userID, itemID uuid.UUID, input UpdateItemInput) (*CartItemDTO, error)
	DeleteItem(ctx context.Context, userID, itemID uuid.UUID) error
}

type ServiceParams struct {
	Repository Repository
	DB         txRunner
}

type service struct {
	repo Repository
	tx   txRunner
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: params.Repository, tx: params.DB}, nil
}

// ListCarts always yields exactly one cart, creating it on first access.
func (s *service) ListCarts(ctx context.Context, userID uuid.UUID) ([]CartDTO, error) {
	cart, _, err := s.EnsureCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	return []CartDTO{*cart}, nil
}

// EnsureCart returns the caller's cart and whether this call created it.
func (s *service) EnsureCart(ctx context.Context, userID uuid.UUID) (*CartDTO, bool, error) {
	if userID == uuid.Nil {
		return nil, false, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	cart, created, err := getOrCreate(ctx, s.repo, userID)
	if err != nil {
		return nil, false, err
	}
	dto := FromModel(cart)
	return &dto, created, nil
}

func getOrCreate(ctx context.Context, repo Repository, userID uuid.UUID) (*models.Cart, bool, error) {
	cart, err := repo.FindUserCart(ctx, userID)
	if err == nil {
		return cart, false, nil
	}
	if !db.IsNotFound(err) {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	cart = &models.Cart{UserID: userID}
	if err := repo.CreateCart(ctx, cart); err != nil {
		if !db.IsUniqueViolation(err, "carts_user_id_key") {
			return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
		}
		// lost a concurrent first-access race
		existing, err := repo.FindUserCart(ctx, userID)
		if err != nil {
			return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		return existing, false, nil
	}
	cart.Items = []models.CartItem{}
	return cart, true, nil
}

func (s *service) GetCart(ctx context.Context, userID, cartID uuid.UUID) (*CartDTO, error) {
	cart, err := s.repo.FindCart(ctx, userID, cartID)
	if err != nil {
		return nil, lookupError(err, "cart")
	}
	dto := FromModel(cart)
	return &dto, nil
}

func (s *service) DeleteCart(ctx context.Context, userID, cartID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).DeleteCart(ctx, userID, cartID); err != nil {
			return lookupError(err, "cart")
		}
		return nil
	})
}

func (s *service) ListItems(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]CartItemDTO, types.PageMeta, error) {
	rows, total, err := s.repo.ListItems(ctx, userID, params)
	if err != nil {
		return nil, types.PageMeta{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart items")
	}
	out := make([]CartItemDTO, 0, len(rows))
	for i := range rows {
		out = append(out, ItemFromModel(&rows[i]))
	}
	return out, params.Meta(total), nil
}

// AddItem merges the quantity into an existing line for the same product.
func (s *service) AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartItemDTO, error) {
	quantity := input.quantity()
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").
			WithDetails(map[string]string{"quantity": "must be at least 1"})
	}

	exists, err := s.repo.ProductExists(ctx, input.Product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	cart, _, err := getOrCreate(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}
	item, err := s.repo.UpsertItem(ctx, cart.ID, input.Product, quantity)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add cart item")
	}
	dto := ItemFromModel(item)
	return &dto, nil
}

func (s *service) GetItem(ctx context.Context, userID, itemID uuid.UUID) (*CartItemDTO, error) {
	item, err := s.repo.FindItem(ctx, userID, itemID)
	if err != nil {
		return nil, lookupError(err, "cart item")
	}
	dto := ItemFromModel(item)
	return &dto, nil
}

func (s *service) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, input UpdateItemInput) (*CartItemDTO, error) {
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").
			WithDetails(map[string]string{"quantity": "must be at least 1"})
	}
	if err := s.repo.UpdateItemQuantity(ctx, userID, itemID, input.Quantity); err != nil {
		return nil, lookupError(err, "cart item")
	}
	return s.GetItem(ctx, userID, itemID)
}

func (s *service) DeleteItem(ctx context.Context, userID, itemID uuid.UUID) error {
	if err := s.repo.DeleteItem(ctx, userID, itemID); err != nil {
		return lookupError(err, "cart item")
	}
	return nil
}

func lookupError(err error, what string) error {
	if db.IsNotFound(err) {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "%s not found", what)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load "+what)
}
