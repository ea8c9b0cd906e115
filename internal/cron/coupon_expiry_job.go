package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/shopfront-backend/pkg/db/models"
	"github.com/angelmondragon/shopfront-backend/pkg/enums"
	"github.com/angelmondragon/shopfront-backend/pkg/logger"
	"github.com/angelmondragon/shopfront-backend/pkg/outbox"
	"gorm.io/gorm"
)

type CouponExpiryJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository couponExpiryRepo
	Outbox     eventEmitter
}

type couponExpiryRepo interface {
	ExpireDue(ctx context.Context, tx *gorm.DB, now time.Time) ([]models.Coupon, error)
}

type eventEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// NewCouponExpiryJob deactivates coupons whose validity window has closed.
func NewCouponExpiryJob(params CouponExpiryJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case params.DB == nil:
		return nil, fmt.Errorf("db runner required")
	case params.Repository == nil:
		return nil, fmt.Errorf("coupon repository required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &couponExpiryJob{
		logg:   params.Logger,
		db:     params.DB,
		repo:   params.Repository,
		outbox: params.Outbox,
		now:    time.Now,
	}, nil
}

type couponExpiryJob struct {
	logg   *logger.Logger
	db     txRunner
	repo   couponExpiryRepo
	outbox eventEmitter
	now    func() time.Time
}

func (j *couponExpiryJob) Name() string { return "coupon-expiry" }

func (j *couponExpiryJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	var expired []models.Coupon
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.repo.ExpireDue(ctx, tx, now)
		if err != nil {
			return err
		}
		for _, c := range rows {
			if err := j.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventCouponExpired,
				AggregateType: enums.AggregateCoupon,
				AggregateID:   c.ID,
				Data:          outbox.CouponExpiredEvent{CouponID: c.ID, Code: c.Code},
				OccurredAt:    now,
			}); err != nil {
				return fmt.Errorf("emit coupon_expired %s: %w", c.ID, err)
			}
		}
		expired = rows
		return nil
	})
	if err != nil {
		return fmt.Errorf("coupon expiry: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "coupons_expired", len(expired)), "coupon expiry complete")
	return nil
}
