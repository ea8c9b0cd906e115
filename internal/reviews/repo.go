package reviews

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopfront-backend/internal/repo"
	"github.com/angelmondragon/shopfront-backend/pkg/db/models"
	"github.com/angelmondragon/shopfront-backend/pkg/pagination"
)

type Repository interface {
	List(ctx context.Context, filter Filter, params pagination.Params) ([]models.Review, int64, error)
	Find(ctx context.Context, id uuid.UUID) (*models.Review, error)
	Create(ctx context.Context, review *models.Review) error
	Save(ctx context.Context, review *models.Review) error
	Delete(ctx context.Context, id uuid.UUID) error
	ProductExists(ctx context.Context, productID uuid.UUID) (bool, error)
}

type repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) List(ctx context.Context, filter Filter, params pagination.Params) ([]models.Review, int64, error) {
	var rows []models.Review
	query := r.DB(ctx).Model(&models.Review{})
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.Rating != nil {
		query = query.Where("rating = ?", *filter.Rating)
	}
	total, err := repo.FindPage(query.Order("created_at DESC, id ASC"), params, &rows)
	return rows, total, err
}

func (r *repository) Find(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	var review models.Review
	if err := r.DB(ctx).Where("id = ?", id).First(&review).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *repository) Create(ctx context.Context, review *models.Review) error {
	return r.DB(ctx).Create(review).Error
}

func (r *repository) Save(ctx context.Context, review *models.Review) error {
	return r.DB(ctx).Model(review).Updates(map[string]any{
		"rating":  review.Rating,
		"comment": review.Comment,
	}).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.DB(ctx).Where("id = ?", id).Delete(&models.Review{})
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
