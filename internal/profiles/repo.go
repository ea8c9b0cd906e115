package profiles

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopfront-backend/internal/ownership"
	"github.com/angelmondragon/shopfront-backend/internal/repo"
	"github.com/angelmondragon/shopfront-backend/pkg/db/models"
)

// Repository reads and writes profiles inside the owner's scope.
type Repository interface {
	FindByUser(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error)
	Find(ctx context.Context, userID, id uuid.UUID) (*models.UserProfile, error)
	Create(ctx context.Context, profile *models.UserProfile) error
	Save(ctx context.Context, userID uuid.UUID, profile *models.UserProfile) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) scoped(ctx context.Context, userID uuid.UUID) *gorm.DB {
	return r.DB(ctx).Scopes(ownership.Scope(ownership.Profile, userID))
}

func (r *repository) FindByUser(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := r.scoped(ctx, userID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repository) Find(ctx context.Context, userID, id uuid.UUID) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := r.scoped(ctx, userID).Where("user_profiles.id = ?", id).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repository) Create(ctx context.Context, profile *models.UserProfile) error {
	return r.DB(ctx).Create(profile).Error
}

func (r *repository) Save(ctx context.Context, userID uuid.UUID, profile *models.UserProfile) error {
	res := r.scoped(ctx, userID).
		Model(&models.UserProfile{}).
		Where("user_profiles.id = ?", profile.ID).
		Updates(map[string]any{
			"phone":           profile.Phone,
			"address":         profile.Address,
			"profile_picture": profile.ProfilePicture,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	res := r.scoped(ctx, userID).Where("user_profiles.id = ?", id).Delete(&models.UserProfile{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
