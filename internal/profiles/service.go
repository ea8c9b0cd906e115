package profiles

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/shopfront-backend/pkg/db"
	"github.com/angelmondragon/shopfront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/shopfront-backend/pkg/errors"
)

const userConstraint = "user_profiles_user_id_key"

const maxPhoneLength = 15

// Service manages the one-to-one profile extension of a user.
type Service interface {
	List(ctx context.Context, userID uuid.UUID) ([]ProfileDTO, error)
	Create(ctx context.Context, userID uuid.UUID, input ProfileInput) (*ProfileDTO, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*ProfileDTO, error)
	Update(ctx context.Context, userID, id uuid.UUID, patch ProfilePatch) (*ProfileDTO, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("profile repository required")
	}
	return &service{repo: repo}, nil
}

// List returns the caller's profile as a list of one, creating an empty
// profile on first access.
func (s *service) List(ctx context.Context, userID uuid.UUID) ([]ProfileDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	profile, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if !db.IsNotFound(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
		}
		profile = &models.UserProfile{UserID: userID}
		if err := s.repo.Create(ctx, profile); err != nil {
			if !db.IsUniqueViolation(err, userConstraint) {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create profile")
			}
			if profile, err = s.repo.FindByUser(ctx, userID); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
			}
		}
	}
	return []ProfileDTO{FromModel(profile)}, nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, input ProfileInput) (*ProfileDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	profile := &models.UserProfile{UserID: userID}
	if err := applyPatch(profile, input.Patch()); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, profile); err != nil {
		if db.IsUniqueViolation(err, userConstraint) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "profile already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create profile")
	}
	dto := FromModel(profile)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, userID, id uuid.UUID) (*ProfileDTO, error) {
	profile, err := s.repo.Find(ctx, userID, id)
	if err != nil {
		return nil, lookupError(err)
	}
	dto := FromModel(profile)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, userID, id uuid.UUID, patch ProfilePatch) (*ProfileDTO, error) {
	profile, err := s.repo.Find(ctx, userID, id)
	if err != nil {
		return nil, lookupError(err)
	}
	if err := applyPatch(profile, patch); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, userID, profile); err != nil {
		return nil, lookupError(err)
	}
	dto := FromModel(profile)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return lookupError(err)
	}
	return nil
}

func applyPatch(profile *models.UserProfile, patch ProfilePatch) error {
	if patch.Phone != nil {
		profile.Phone = strings.TrimSpace(*patch.Phone)
	}
	if patch.Address != nil {
		profile.Address = strings.TrimSpace(*patch.Address)
	}
	if patch.ProfilePicture != nil {
		if picture := strings.TrimSpace(*patch.ProfilePicture); picture != "" {
			profile.ProfilePicture = &picture
		} else {
			profile.ProfilePicture = nil
		}
	}
	if len([]rune(profile.Phone)) > maxPhoneLength {
		msg := fmt.Sprintf("phone must be at most %d characters", maxPhoneLength)
		return pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(map[string]string{"phone": msg})
	}
	return nil
}

func lookupError(err error) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
}
