package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopfront-backend/internal/ownership"
	"github.com/angelmondragon/shopfront-backend/internal/repo"
	"github.com/angelmondragon/shopfront-backend/pkg/db/models"
	"github.com/angelmondragon/shopfront-backend/pkg/enums"
	"github.com/angelmondragon/shopfront-backend/pkg/pagination"
)

// errInsufficientStock is returned by DecrementStock when the guarded update
// matched no row.
var errInsufficientStock = errors.New("insufficient stock")

// Repository persists orders and the stock movements they cause.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	ListForUser(ctx context.Context, userID uuid.UUID, filter ListFilter, params pagination.Params) ([]models.Order, int64, error)
	ListAll(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Order, int64, error)
	FindForUser(ctx context.Context, userID, orderID uuid.UUID, lock bool) (*models.Order, error)
	Find(ctx context.Context, orderID uuid.UUID, lock bool) (*models.Order, error)
	Create(ctx context.Context, order *models.Order) error
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus, at time.Time) error

	LockProducts(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	DecrementStock(ctx context.Context, productID uuid.UUID, quantity int) error
	IncrementStock(ctx context.Context, productID uuid.UUID, quantity int) error
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

func withItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("order_items.id ASC")
	})
}

func applyFilter(query *gorm.DB, filter ListFilter) *gorm.DB {
	if filter.Status != nil {
		query = query.Where("orders.status = ?", *filter.Status)
	}
	return query.Order("orders.created_at DESC, orders.id DESC")
}

func (r *repository) ListForUser(ctx context.Context, userID uuid.UUID, filter ListFilter, params pagination.Params) ([]models.Order, int64, error) {
	var rows []models.Order
	query := r.DB(ctx).Model(&models.Order{}).
		Scopes(ownership.Scope(ownership.Order, userID))
	total, err := repo.FindPage(applyFilter(query, filter), params, &rows, withItems)
	return rows, total, err
}

func (r *repository) ListAll(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Order, int64, error) {
	var rows []models.Order
	query := r.DB(ctx).Model(&models.Order{})
	if filter.UserID != nil {
		query = query.Where("orders.user_id = ?", *filter.UserID)
	}
	total, err := repo.FindPage(applyFilter(query, filter), params, &rows, withItems)
	return rows, total, err
}

func (r *repository) FindForUser(ctx context.Context, userID, orderID uuid.UUID, lock bool) (*models.Order, error) {
	query := r.DB(ctx).Scopes(ownership.Scope(ownership.Order, userID), withItems)
	return findOrder(query, orderID, lock)
}

func (r *repository) Find(ctx context.Context, orderID uuid.UUID, lock bool) (*models.Order, error) {
	return findOrder(r.DB(ctx).Scopes(withItems), orderID, lock)
}

func findOrder(query *gorm.DB, orderID uuid.UUID, lock bool) (*models.Order, error) {
	if lock {
		query = repo.ForUpdate(query)
	}
	var order models.Order
	if err := query.Where("orders.id = ?", orderID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// Create inserts the order together with its items.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.DB(ctx).Create(order).Error
}

func (r *repository) UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus, at time.Time) error {
	res := r.DB(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]any{"status": status, "updated_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// LockProducts loads the products in id order, holding row locks where the
// dialect supports them.
func (r *repository) LockProducts(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	var rows []models.Product
	if len(ids) == 0 {
		return rows, nil
	}
	err := repo.ForUpdate(r.DB(ctx).Where("id IN ?", ids)).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) DecrementStock(ctx context.Context, productID uuid.UUID, quantity int) error {
	res := r.DB(ctx).Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, quantity).
		Updates(map[string]any{
			"stock":      gorm.Expr("stock - ?", quantity),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errInsufficientStock
	}
	return nil
}

func (r *repository) IncrementStock(ctx context.Context, productID uuid.UUID, quantity int) error {
	return r.DB(ctx).Model(&models.Product{}).
		Where("id = ?", productID).
		Updates(map[string]any{
			"stock":      gorm.Expr("stock + ?", quantity),
			"updated_at": time.Now().UTC(),
		}).Error
}
