package coupons

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopfront-backend/pkg/db"
	"github.com/angelmondragon/shopfront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/shopfront-backend/pkg/errors"
	"github.com/angelmondragon/shopfront-backend/pkg/pagination"
	"github.com/angelmondragon/shopfront-backend/pkg/types"
)

const codeConstraint = "coupons_code_key"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages the global coupon registry.
type Service interface {
	List(ctx context.Context, filter ListFilter, params pagination.Params) ([]CouponDTO, types.PageMeta, error)
	Get(ctx context.Context, id uuid.UUID) (*CouponDTO, error)
	Create(ctx context.Context, input CouponInput) (*CouponDTO, error)
	Update(ctx context.Context, id uuid.UUID, patch CouponPatch) (*CouponDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Validate(ctx context.Context, code string) (*Redemption, error)
}

type ServiceParams struct {
	Repository Repository
	DB         txRunner
	Now        func() time.Time
}

type service struct {
	repo Repository
	tx   txRunner
	now  func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{repo: params.Repository, tx: params.DB, now: now}, nil
}

func (s *service) List(ctx context.Context, filter ListFilter, params pagination.Params) ([]CouponDTO, types.PageMeta, error) {
	rows, total, err := s.repo.List(ctx, filter, params)
	if err != nil {
		return nil, types.PageMeta{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list coupons")
	}
	out := make([]CouponDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out, params.Meta(total), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*CouponDTO, error) {
	coupon, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, lookupError(err)
	}
	dto := FromModel(coupon)
	return &dto, nil
}

func (s *service) Create(ctx context.Context, input CouponInput) (*CouponDTO, error) {
	coupon := &models.Coupon{}
	if err := applyPatch(coupon, input.Patch()); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, coupon); err != nil {
		return nil, writeError(err, "create coupon")
	}
	dto := FromModel(coupon)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, patch CouponPatch) (*CouponDTO, error) {
	var updated *models.Coupon
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		coupon, err := repo.Find(ctx, id)
		if err != nil {
			return lookupError(err)
		}
		if err := applyPatch(coupon, patch); err != nil {
			return err
		}
		if err := repo.Save(ctx, coupon); err != nil {
			return writeError(err, "update coupon")
		}
		updated = coupon
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := FromModel(updated)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Delete(ctx, id); err != nil {
			return lookupError(err)
		}
		return nil
	})
}

// Validate never fails for an unknown code; it reports it as not redeemable.
func (s *service) Validate(ctx context.Context, code string) (*Redemption, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, fieldError("code", "code is required")
	}
	result := &Redemption{Code: code}
	coupon, err := s.repo.FindByCode(ctx, code)
	if err != nil && !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}
	if coupon != nil {
		result.DiscountPercent = coupon.DiscountPercent
	}
	result.Redeemable, result.Reason = Evaluate(coupon, s.now().UTC())
	return result, nil
}

func applyPatch(coupon *models.Coupon, patch CouponPatch) error {
	if patch.Code != nil {
		coupon.Code = NormalizeCode(*patch.Code)
	}
	if patch.DiscountPercent != nil {
		coupon.DiscountPercent = *patch.DiscountPercent
	}
	if patch.ValidFrom != nil {
		coupon.ValidFrom = patch.ValidFrom.UTC()
	}
	if patch.ValidTo != nil {
		coupon.ValidTo = patch.ValidTo.UTC()
	}
	if patch.Active != nil {
		coupon.Active = *patch.Active
	}

	switch {
	case coupon.Code == "":
		return fieldError("code", "code is required")
	case len(coupon.Code) > 50:
		return fieldError("code", "code must be at most 50 characters")
	case coupon.DiscountPercent < 1 || coupon.DiscountPercent > 100:
		return fieldError("discount_percent", "discount_percent must be between 1 and 100")
	case coupon.ValidFrom.IsZero():
		return fieldError("valid_from", "valid_from is required")
	case !coupon.ValidTo.After(coupon.ValidFrom):
		return fieldError("valid_to", "valid_to must be after valid_from")
	}
	return nil
}

func writeError(err error, action string) error {
	if db.IsUniqueViolation(err, codeConstraint) {
		return pkgerrors.New(pkgerrors.CodeConflict, "coupon code already exists").
			WithDetails(map[string]string{"code": "already exists"})
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}

func fieldError(field, message string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(map[string]string{field: message})
}

func lookupError(err error) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
}
