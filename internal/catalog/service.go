package catalog

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopfront-backend/pkg/db"
	"github.com/angelmondragon/shopfront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/shopfront-backend/pkg/errors"
	"github.com/angelmondragon/shopfront-backend/pkg/logger"
	"github.com/angelmondragon/shopfront-backend/pkg/pagination"
	"github.com/angelmondragon/shopfront-backend/pkg/types"
)

// maxPrice is the largest value NUMERIC(10,2) can hold.
var maxPrice = decimal.RequireFromString("99999999.99")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the public catalog and its administrative mutations.
type Service interface {
	ListCategories(ctx context.Context, params pagination.Params) ([]CategoryDTO, types.PageMeta, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*CategoryDTO, error)
	CreateCategory(ctx context.Context, input CategoryInput) (*CategoryDTO, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, patch CategoryPatch) (*CategoryDTO, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error

	ListProducts(ctx context.Context, filter ProductFilter, params pagination.Params) ([]ProductDTO, types.PageMeta, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	CreateProduct(ctx context.Context, input ProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, patch ProductPatch) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error

	ExportProducts(ctx context.Context, w io.Writer) error
	ImportProducts(ctx context.Context, r io.ReaderAt, size int64) (*ImportResult, error)
}

// ServiceParams bundles the catalog dependencies.
type ServiceParams struct {
	Repository Repository
	DB         txRunner
	Logger     *logger.Logger
}

type service struct {
	repo Repository
	tx   txRunner
	logg *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: params.Repository, tx: params.DB, logg: params.Logger}, nil
}

func (s *service) ListCategories(ctx context.Context, params pagination.Params) ([]CategoryDTO, types.PageMeta, error) {
	rows, total, err := s.repo.ListCategories(ctx, params)
	if err != nil {
		return nil, types.PageMeta{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	return categoriesFromModels(rows), params.Meta(total), nil
}

func (s *service) GetCategory(ctx context.Context, id uuid.UUID) (*CategoryDTO, error) {
	category, err := s.repo.FindCategory(ctx, id)
	if err != nil {
		return nil, lookupError(err, "category")
	}
	dto := CategoryFromModel(category)
	return &dto, nil
}

func (s *service) CreateCategory(ctx context.Context, input CategoryInput) (*CategoryDTO, error) {
	category := &models.Category{}
	if err := applyCategoryPatch(category, input.Patch()); err != nil {
		return nil, err
	}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create category")
	}
	dto := CategoryFromModel(category)
	return &dto, nil
}

func (s *service) UpdateCategory(ctx context.Context, id uuid.UUID, patch CategoryPatch) (*CategoryDTO, error) {
	category, err := s.repo.FindCategory(ctx, id)
	if err != nil {
		return nil, lookupError(err, "category")
	}
	if err := applyCategoryPatch(category, patch); err != nil {
		return nil, err
	}
	if err := s.repo.SaveCategory(ctx, category); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update category")
	}
	dto := CategoryFromModel(category)
	return &dto, nil
}

// DeleteCategory removes the category together with its products.
func (s *service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindCategory(ctx, id); err != nil {
			return lookupError(err, "category")
		}
		productIDs, err := repo.ProductIDsInCategory(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list category products")
		}
		if err := s.deleteProducts(ctx, repo, productIDs); err != nil {
			return err
		}
		if err := repo.DeleteCategory(ctx, id); err != nil {
			return lookupError(err, "category")
		}
		return nil
	})
}

func (s *service) ListProducts(ctx context.Context, filter ProductFilter, params pagination.Params) ([]ProductDTO, types.PageMeta, error) {
	filter, err := filter.Normalize()
	if err != nil {
		return nil, types.PageMeta{}, err
	}
	rows, total, err := s.repo.ListProducts(ctx, filter, params)
	if err != nil {
		return nil, types.PageMeta{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return productsFromModels(rows), params.Meta(total), nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		return nil, lookupError(err, "product")
	}
	dto := ProductFromModel(product)
	return &dto, nil
}

func (s *service) CreateProduct(ctx context.Context, input ProductInput) (*ProductDTO, error) {
	if input.Price == nil {
		return nil, fieldError("price", "price is required")
	}
	product := &models.Product{}
	if err := s.applyProductPatch(ctx, s.repo, product, input.Patch()); err != nil {
		return nil, err
	}
	if err := s.repo.CreateProduct(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	dto := ProductFromModel(product)
	return &dto, nil
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, patch ProductPatch) (*ProductDTO, error) {
	var updated *models.Product
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		product, err := repo.FindProduct(ctx, id)
		if err != nil {
			return lookupError(err, "product")
		}
		if err := s.applyProductPatch(ctx, repo, product, patch); err != nil {
			return err
		}
		if err := repo.SaveProduct(ctx, product); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
		}
		updated = product
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := ProductFromModel(updated)
	return &dto, nil
}

func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindProduct(ctx, id); err != nil {
			return lookupError(err, "product")
		}
		return s.deleteProducts(ctx, repo, []uuid.UUID{id})
	})
}

// deleteProducts refuses to drop products that order history still references.
func (s *service) deleteProducts(ctx context.Context, repo Repository, ids []uuid.UUID) error {
	ordered, err := repo.CountOrderedProducts(ctx, ids)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check order history")
	}
	if ordered > 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "product is referenced by existing orders")
	}
	if err := repo.DeleteProducts(ctx, ids); err != nil {
		if db.IsForeignKeyViolation(err) {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "product is referenced by existing orders")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete products")
	}
	return nil
}

func applyCategoryPatch(category *models.Category, patch CategoryPatch) error {
	if patch.Name != nil {
		category.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		category.Description = strings.TrimSpace(*patch.Description)
	}
	if category.Name == "" {
		return fieldError("name", "name is required")
	}
	if len([]rune(category.Name)) > 100 {
		return fieldError("name", "name must be at most 100 characters")
	}
	return nil
}

func (s *service) applyProductPatch(ctx context.Context, repo Repository, product *models.Product, patch ProductPatch) error {
	if patch.Name != nil {
		product.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		product.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Price != nil {
		product.Price = *patch.Price
	}
	if patch.Stock != nil {
		product.Stock = *patch.Stock
	}
	if patch.Image != nil {
		if image := strings.TrimSpace(*patch.Image); image != "" {
			product.Image = &image
		} else {
			product.Image = nil
		}
	}
	if patch.Category != nil && *patch.Category != product.CategoryID {
		if _, err := repo.FindCategory(ctx, *patch.Category); err != nil {
			return lookupError(err, "category")
		}
		product.CategoryID = *patch.Category
	}
	return validateProduct(product)
}

func validateProduct(product *models.Product) error {
	switch {
	case product.Name == "":
		return fieldError("name", "name is required")
	case len([]rune(product.Name)) > 200:
		return fieldError("name", "name must be at most 200 characters")
	case product.Price.IsNegative():
		return fieldError("price", "price must not be negative")
	case product.Price.GreaterThan(maxPrice):
		return fieldError("price", "price exceeds the supported range")
	case !product.Price.Equal(product.Price.Round(2)):
		return fieldError("price", "price supports at most two decimal places")
	case product.Stock < 0:
		return fieldError("stock", "stock must not be negative")
	case product.CategoryID == uuid.Nil:
		return fieldError("category", "category is required")
	}
	return nil
}

func fieldError(field, message string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(map[string]string{field: message})
}

func lookupError(err error, what string) error {
	if db.IsNotFound(err) {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "%s not found", what)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load "+what)
}
