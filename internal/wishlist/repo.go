package wishlist

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/shopfront-backend/internal/ownership"
	"github.com/angelmondragon/shopfront-backend/internal/repo"
	"github.com/angelmondragon/shopfront-backend/pkg/db/models"
)

// Repository encapsulates wishlist persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindUserWishlist(ctx context.Context, userID uuid.UUID) (*models.Wishlist, error)
	FindWishlist(ctx context.Context, userID, id uuid.UUID) (*models.Wishlist, error)
	CreateWishlist(ctx context.Context, wishlist *models.Wishlist) error

	AddProduct(ctx context.Context, wishlistID, productID uuid.UUID) error
	RemoveProduct(ctx context.Context, wishlistID, productID uuid.UUID) error
	ReplaceProducts(ctx context.Context, wishlistID uuid.UUID, productIDs []uuid.UUID) error
	ExistingProducts(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
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

func (r *repository) wishlistQuery(ctx context.Context, userID uuid.UUID) *gorm.DB {
	return r.DB(ctx).
		Scopes(ownership.Scope(ownership.Wishlist, userID)).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("wishlist_products.created_at ASC, wishlist_products.product_id ASC")
		})
}

func (r *repository) FindUserWishlist(ctx context.Context, userID uuid.UUID) (*models.Wishlist, error) {
	var wishlist models.Wishlist
	if err := r.wishlistQuery(ctx, userID).First(&wishlist).Error; err != nil {
		return nil, err
	}
	return &wishlist, nil
}

func (r *repository) FindWishlist(ctx context.Context, userID, id uuid.UUID) (*models.Wishlist, error) {
	var wishlist models.Wishlist
	if err := r.wishlistQuery(ctx, userID).Where("wishlists.id = ?", id).First(&wishlist).Error; err != nil {
		return nil, err
	}
	return &wishlist, nil
}

func (r *repository) CreateWishlist(ctx context.Context, wishlist *models.Wishlist) error {
	return r.DB(ctx).Create(wishlist).Error
}

// AddProduct inserts the membership row and ignores duplicates.
func (r *repository) AddProduct(ctx context.Context, wishlistID, productID uuid.UUID) error {
	return r.DB(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.WishlistItem{WishlistID: wishlistID, ProductID: productID}).
		Error
}

func (r *repository) RemoveProduct(ctx context.Context, wishlistID, productID uuid.UUID) error {
	return r.DB(ctx).
		Where("wishlist_id = ? AND product_id = ?", wishlistID, productID).
		Delete(&models.WishlistItem{}).
		Error
}

func (r *repository) ReplaceProducts(ctx context.Context, wishlistID uuid.UUID, productIDs []uuid.UUID) error {
	if err := r.DB(ctx).Where("wishlist_id = ?", wishlistID).Delete(&models.WishlistItem{}).Error; err != nil {
		return err
	}
	if len(productIDs) == 0 {
		return nil
	}
	rows := make([]models.WishlistItem, 0, len(productIDs))
	for _, id := range productIDs {
		rows = append(rows, models.WishlistItem{WishlistID: wishlistID, ProductID: id})
	}
	return r.DB(ctx).Create(&rows).Error
}

func (r *repository) ExistingProducts(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	var found []uuid.UUID
	if len(ids) == 0 {
		return found, nil
	}
	err := r.DB(ctx).Model(&models.Product{}).Where("id IN ?", ids).Pluck("id", &found).Error
	return found, err
}
