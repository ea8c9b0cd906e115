package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/shopfront-backend/internal/ownership"
	"github.com/angelmondragon/shopfront-backend/internal/repo"
	"github.com/angelmondragon/shopfront-backend/pkg/db/models"
	"github.com/angelmondragon/shopfront-backend/pkg/pagination"
)

// Repository persists carts and their items. Every user-facing read and
// write is confined by the ownership scope.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindUserCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	FindCart(ctx context.Context, userID, cartID uuid.UUID) (*models.Cart, error)
	CreateCart(ctx context.Context, cart *models.Cart) error
	DeleteCart(ctx context.Context, userID, cartID uuid.UUID) error
	ClearCart(ctx context.Context, cartID uuid.UUID) error

	ListItems(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.CartItem, int64, error)
	FindItem(ctx context.Context, userID, itemID uuid.UUID) (*models.CartItem, error)
	UpsertItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*models.CartItem, error)
	UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) error
	DeleteItem(ctx context.Context, userID, itemID uuid.UUID) error

	ProductExists(ctx context.Context, productID uuid.UUID) (bool, error)
}

type repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Bind(tx)}
}

func (r *repository) cartQuery(ctx context.Context, userID uuid.UUID) *gorm.DB {
	return r.DB(ctx).
		Scopes(ownership.Scope(ownership.Cart, userID)).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("cart_items.created_at ASC, cart_items.id ASC")
		})
}

func (r *repository) FindUserCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := r.cartQuery(ctx, userID).First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *repository) FindCart(ctx context.Context, userID, cartID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := r.cartQuery(ctx, userID).Where("carts.id = ?", cartID).First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *repository) CreateCart(ctx context.Context, cart *models.Cart) error {
	return r.DB(ctx).Create(cart).Error
}

func (r *repository) DeleteCart(ctx context.Context, userID, cartID uuid.UUID) error {
	res := r.DB(ctx).
		Scopes(ownership.Scope(ownership.Cart, userID)).
		Where("carts.id = ?", cartID).
		Delete(&models.Cart{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return r.ClearCart(ctx, cartID)
}

func (r *repository) ClearCart(ctx context.Context, cartID uuid.UUID) error {
	return r.DB(ctx).Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error
}

func (r *repository) ListItems(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.CartItem, int64, error) {
	var items []models.CartItem
	query := r.DB(ctx).Model(&models.CartItem{}).
		Scopes(ownership.Scope(ownership.CartItem, userID)).
		Order("cart_items.created_at ASC, cart_items.id ASC")
	total, err := repo.FindPage(query, params, &items)
	return items, total, err
}

func (r *repository) FindItem(ctx context.Context, userID, itemID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := r.DB(ctx).
		Scopes(ownership.Scope(ownership.CartItem, userID)).
		Where("cart_items.id = ?", itemID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// UpsertItem adds quantity to the (cart, product) line in a single statement,
// inserting the line when it does not exist yet.
func (r *repository) UpsertItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*models.CartItem, error) {
	item := models.CartItem{CartID: cartID, ProductID: productID, Quantity: quantity}
	err := r.DB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"quantity":   gorm.Expr("cart_items.quantity + excluded.quantity"),
			"updated_at": gorm.Expr("excluded.updated_at"),
		}),
	}).Create(&item).Error
	if err != nil {
		return nil, err
	}

	var stored models.CartItem
	if err := r.DB(ctx).Where("cart_id = ? AND product_id = ?", cartID, productID).First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *repository) UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) error {
	res := r.DB(ctx).Model(&models.CartItem{}).
		Scopes(ownership.Scope(ownership.CartItem, userID)).
		Where("cart_items.id = ?", itemID).
		Updates(map[string]any{"quantity": quantity, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) DeleteItem(ctx context.Context, userID, itemID uuid.UUID) error {
	res := r.DB(ctx).
		Scopes(ownership.Scope(ownership.CartItem, userID)).
		Where("cart_items.id = ?", itemID).
		Delete(&models.CartItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) ProductExists(ctx context.Context, productID uuid.UUID) (bool, error) {
	var count int64
	err := r.DB(ctx).Model(&models.Product{}).Where("id = ?", productID).Count(&count).Error
	return count > 0, err
}
