package coupons

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopfront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/shopfront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/shopfront-backend/pkg/errors"
	"github.com/angelmondragon/shopfront-backend/pkg/pagination"
)

var fixedNow = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (Service, Repository, *gorm.DB) {
	t.Helper()
	client := dbtest.Client(t)
	repo := NewRepository(client.DB())
	svc, err := NewService(ServiceParams{
		Repository: repo,
		DB:         client,
		Now:        func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return svc, repo, client.DB()
}

func validInput(code string) CouponInput {
	return CouponInput{
		Code:            code,
		DiscountPercent: 15,
		ValidFrom:       fixedNow.Add(-24 * time.Hour),
		ValidTo:         fixedNow.Add(24 * time.Hour),
	}
}

func TestCreateNormalizesCodeAndDefaultsActive(t *testing.T) {
	svc, _, _ := newTestService(t)

	created, err := svc.Create(context.Background(), validInput("  spring10 "))
	require.NoError(t, err)
	assert.Equal(t, "SPRING10", created.Code)
	assert.True(t, created.Active)

	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Code, got.Code)
}

func TestCreateDuplicateCodeConflicts(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, validInput("SAVE"))
	require.NoError(t, err)

	_, err = svc.Create(ctx, validInput("save"))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := newTestService(t)

	cases := map[string]func(*CouponInput){
		"empty code":       func(in *CouponInput) { in.Code = "  " },
		"zero percent":     func(in *CouponInput) { in.DiscountPercent = 0 },
		"percent over 100": func(in *CouponInput) { in.DiscountPercent = 101 },
		"inverted window":  func(in *CouponInput) { in.ValidTo = in.ValidFrom.Add(-time.Minute) },
		"empty window":     func(in *CouponInput) { in.ValidTo = in.ValidFrom },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			input := validInput("CASE")
			mutate(&input)
			_, err := svc.Create(context.Background(), input)
			assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
		})
	}
}

func TestUpdateAndDelete(t *testing.T) {
	svc, _, conn := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, validInput("WINTER"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, validInput("SUMMER"))
	require.NoError(t, err)

	percent := 40
	updated, err := svc.Update(ctx, created.ID, CouponPatch{DiscountPercent: &percent})
	require.NoError(t, err)
	assert.Equal(t, 40, updated.DiscountPercent)
	assert.Equal(t, "WINTER", updated.Code)

	clash := "summer"
	_, err = svc.Update(ctx, created.ID, CouponPatch{Code: &clash})
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))

	order := models.Order{UserID: uuid.New(), TotalAmount: decimal.NewFromInt(10), CouponID: &created.ID}
	require.NoError(t, conn.Create(&order).Error)

	require.NoError(t, svc.Delete(ctx, created.ID))
	_, err = svc.Get(ctx, created.ID)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(svc.Delete(ctx, created.ID)))

	var stored models.Order
	require.NoError(t, conn.First(&stored, "id = ?", order.ID).Error)
	assert.Nil(t, stored.CouponID)
}

func TestValidateReportsReasons(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, validInput("LIVE"))
	require.NoError(t, err)

	future := validInput("SOON")
	future.ValidFrom = fixedNow.Add(time.Hour)
	future.ValidTo = fixedNow.Add(48 * time.Hour)
	_, err = svc.Create(ctx, future)
	require.NoError(t, err)

	past := validInput("GONE")
	past.ValidFrom = fixedNow.Add(-48 * time.Hour)
	past.ValidTo = fixedNow.Add(-time.Hour)
	_, err = svc.Create(ctx, past)
	require.NoError(t, err)

	off := validInput("OFF")
	inactive := false
	off.Active = &inactive
	_, err = svc.Create(ctx, off)
	require.NoError(t, err)

	cases := []struct {
		code       string
		redeemable bool
		reason     string
	}{
		{"live", true, ""},
		{"SOON", false, ReasonNotStarted},
		{"GONE", false, ReasonExpired},
		{"OFF", false, ReasonInactive},
		{"MISSING", false, ReasonUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			got, err := svc.Validate(ctx, tc.code)
			require.NoError(t, err)
			assert.Equal(t, tc.redeemable, got.Redeemable)
			assert.Equal(t, tc.reason, got.Reason)
		})
	}

	_, err = svc.Validate(ctx, " ")
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestListFiltersActive(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, validInput("A"))
	require.NoError(t, err)
	off := validInput("B")
	inactive := false
	off.Active = &inactive
	_, err = svc.Create(ctx, off)
	require.NoError(t, err)

	all, meta, err := svc.List(ctx, ListFilter{}, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.EqualValues(t, 2, meta.Total)

	active := true
	only, _, err := svc.List(ctx, ListFilter{Active: &active}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, "A", only[0].Code)
}

func TestExpireDueDeactivatesClosedWindows(t *testing.T) {
	svc, repo, conn := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, validInput("LIVE"))
	require.NoError(t, err)
	past := validInput("GONE")
	past.ValidFrom = fixedNow.Add(-48 * time.Hour)
	past.ValidTo = fixedNow.Add(-time.Hour)
	_, err = svc.Create(ctx, past)
	require.NoError(t, err)

	var expired []models.Coupon
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		var err error
		expired, err = repo.ExpireDue(ctx, tx, fixedNow)
		return err
	}))
	require.Len(t, expired, 1)
	assert.Equal(t, "GONE", expired[0].Code)
	assert.False(t, expired[0].Active)

	again, err := repo.ExpireDue(ctx, nil, fixedNow)
	require.NoError(t, err)
	assert.Empty(t, again)

	got, err := svc.Validate(ctx, "GONE")
	require.NoError(t, err)
	assert.Equal(t, ReasonInactive, got.Reason)
}
