package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopfront-backend/internal/repo"
	"github.com/angelmondragon/shopfront-backend/pkg/db/models"
	"github.com/angelmondragon/shopfront-backend/pkg/pagination"
)

// Repository persists categories and products.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	ListCategories(ctx context.Context, params pagination.Params) ([]models.Category, int64, error)
	FindCategory(ctx context.Context, id uuid.UUID) (*models.Category, error)
	CreateCategory(ctx context.Context, category *models.Category) error
	SaveCategory(ctx context.Context, category *models.Category) error
	DeleteCategory(ctx context.Context, id uuid.UUID) error

	ListProducts(ctx context.Context, filter ProductFilter, params pagination.Params) ([]models.Product, int64, error)
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) error
	SaveProduct(ctx context.Context, product *models.Product) error
	ProductIDsInCategory(ctx context.Context, categoryID uuid.UUID) ([]uuid.UUID, error)
	CountOrderedProducts(ctx context.Context, productIDs []uuid.UUID) (int64, error)
	DeleteProducts(ctx context.Context, productIDs []uuid.UUID) error
	EachProductBatch(ctx context.Context, size int, fn func([]models.Product) error) error
}

type repository struct {
	repo.Base
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Bind(tx)}
}

func (r *repository) ListCategories(ctx context.Context, params pagination.Params) ([]models.Category, int64, error) {
	var rows []models.Category
	query := r.DB(ctx).Model(&models.Category{}).Order("name ASC, id ASC")
	total, err := repo.FindPage(query, params, &rows)
	return rows, total, err
}

func (r *repository) FindCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := r.DB(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *repository) CreateCategory(ctx context.Context, category *models.Category) error {
	return r.DB(ctx).Create(category).Error
}

func (r *repository) SaveCategory(ctx context.Context, category *models.Category) error {
	return r.DB(ctx).Save(category).Error
}

func (r *repository) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	res := r.DB(ctx).Where("id = ?", id).Delete(&models.Category{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) ListProducts(ctx context.Context, filter ProductFilter, params pagination.Params) ([]models.Product, int64, error) {
	query := r.DB(ctx).Model(&models.Product{})
	if filter.CategoryID != nil {
		query = query.Where("products.category_id = ?", *filter.CategoryID)
	}
	if filter.Price != nil {
		query = query.Where("products.price = ?", *filter.Price)
	}
	if filter.PriceMin != nil {
		query = query.Where("products.price >= ?", *filter.PriceMin)
	}
	if filter.PriceMax != nil {
		query = query.Where("products.price <= ?", *filter.PriceMax)
	}
	if filter.Search != "" {
		pattern := searchPattern(filter.Search)
		query = query.Where(
			`LOWER(products.name) LIKE ? ESCAPE '\' OR LOWER(products.description) LIKE ? ESCAPE '\'`,
			pattern, pattern,
		)
	}
	query = query.Order(filter.orderClause())

	var rows []models.Product
	total, err := repo.FindPage(query, params, &rows)
	return rows, total, err
}

func (r *repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.DB(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) CreateProduct(ctx context.Context, product *models.Product) error {
	return r.DB(ctx).Create(product).Error
}

func (r *repository) SaveProduct(ctx context.Context, product *models.Product) error {
	return r.DB(ctx).Save(product).Error
}

func (r *repository) ProductIDsInCategory(ctx context.Context, categoryID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.DB(ctx).Model(&models.Product{}).Where("category_id = ?", categoryID).Pluck("id", &ids).Error
	return ids, err
}

func (r *repository) CountOrderedProducts(ctx context.Context, productIDs []uuid.UUID) (int64, error) {
	if len(productIDs) == 0 {
		return 0, nil
	}
	var count int64
	err := r.DB(ctx).Model(&models.OrderItem{}).Where("product_id IN ?", productIDs).Count(&count).Error
	return count, err
}

// DeleteProducts removes products and the rows that hang off them. Postgres
// cascades these too; SQLite runs without foreign key enforcement.
func (r *repository) DeleteProducts(ctx context.Context, productIDs []uuid.UUID) error {
	if len(productIDs) == 0 {
		return nil
	}
	conn := r.DB(ctx)
	dependents := []any{&models.CartItem{}, &models.WishlistItem{}, &models.Review{}}
	for _, model := range dependents {
		if err := conn.Where("product_id IN ?", productIDs).Delete(model).Error; err != nil {
			return err
		}
	}
	return conn.Where("id IN ?", productIDs).Delete(&models.Product{}).Error
}

func (r *repository) EachProductBatch(ctx context.Context, size int, fn func([]models.Product) error) error {
	if size <= 0 {
		size = pagination.MaxLimit
	}
	for offset := 0; ; offset += size {
		var batch []models.Product
		err := r.DB(ctx).
			Order("products.created_at ASC, products.id ASC").
			Offset(offset).
			Limit(size).
			Find(&batch).Error
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		if err := fn(batch); err != nil {
			return err
		}
		if len(batch) < size {
			return nil
		}
	}
}
