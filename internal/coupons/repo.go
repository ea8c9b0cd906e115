package coupons

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopfront-backend/internal/repo"
	"github.com/angelmondragon/shopfront-backend/pkg/db/models"
	"github.com/angelmondragon/shopfront-backend/pkg/pagination"
)

// ListFilter narrows the coupon listing.
type ListFilter struct {
	Active *bool
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Coupon, int64, error)
	Find(ctx context.Context, id uuid.UUID) (*models.Coupon, error)
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
	Create(ctx context.Context, coupon *models.Coupon) error
	Save(ctx context.Context, coupon *models.Coupon) error
	Delete(ctx context.Context, id uuid.UUID) error

	ExpireDue(ctx context.Context, tx *gorm.DB, now time.Time) ([]models.Coupon, error)
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

func (r *repository) List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Coupon, int64, error) {
	var rows []models.Coupon
	query := r.DB(ctx).Model(&models.Coupon{})
	if filter.Active != nil {
		query = query.Where("active = ?", *filter.Active)
	}
	total, err := repo.FindPage(query.Order("valid_to ASC, id ASC"), params, &rows)
	return rows, total, err
}

func (r *repository) Find(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := r.DB(ctx).Where("id = ?", id).First(&coupon).Error; err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := r.DB(ctx).Where("code = ?", code).First(&coupon).Error; err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *repository) Create(ctx context.Context, coupon *models.Coupon) error {
	return r.DB(ctx).Create(coupon).Error
}

func (r *repository) Save(ctx context.Context, coupon *models.Coupon) error {
	return r.DB(ctx).Save(coupon).Error
}

// Delete detaches the coupon from historical orders before removing it.
func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.DB(ctx).Model(&models.Order{}).
		Where("coupon_id = ?", id).
		Update("coupon_id", nil).Error; err != nil {
		return err
	}
	res := r.DB(ctx).Where("id = ?", id).Delete(&models.Coupon{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ExpireDue deactivates every active coupon whose window closed before now
// and returns the rows it changed.
func (r *repository) ExpireDue(ctx context.Context, tx *gorm.DB, now time.Time) ([]models.Coupon, error) {
	conn := r.Bind(tx).DB(ctx)

	var due []models.Coupon
	if err := repo.ForUpdate(conn.Where("active = ? AND valid_to < ?", true, now)).
		Order("valid_to ASC, id ASC").
		Find(&due).Error; err != nil {
		return nil, err
	}
	if len(due) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(due))
	for i := range due {
		ids = append(ids, due[i].ID)
		due[i].Active = false
	}
	if err := conn.Model(&models.Coupon{}).Where("id IN ?", ids).Update("active", false).Error; err != nil {
		return nil, err
	}
	return due, nil
}
