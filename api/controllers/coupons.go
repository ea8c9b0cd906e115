package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/angelmondragon/shopfront-backend/api/responses"
	"github.com/angelmondragon/shopfront-backend/api/validators"
	"github.com/angelmondragon/shopfront-backend/internal/coupons"
	pkgerrors "github.com/angelmondragon/shopfront-backend/pkg/errors"
	"github.com/angelmondragon/shopfront-backend/pkg/logger"
)

func couponFilter(r *http.Request) (coupons.ListFilter, error) {
	var filter coupons.ListFilter
	raw := strings.TrimSpace(r.URL.Query().Get("active"))
	if raw == "" {
		return filter, nil
	}
	active, err := strconv.ParseBool(raw)
	if err != nil {
		return filter, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be a boolean").
			WithDetails(map[string]any{"field": "active"})
	}
	filter.Active = &active
	return filter, nil
}

func ListCoupons(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("coupons"))
			return
		}
		filter, err := couponFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, meta, err := svc.List(r.Context(), filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, items, meta)
	}
}

func GetCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("coupons"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "couponId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		coupon, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, coupon)
	}
}

func CreateCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("coupons"))
			return
		}
		var body coupons.CouponInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		coupon, err := svc.Create(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, coupon)
	}
}

func UpdateCoupon(svc coupons.Service, full bool, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("coupons"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "couponId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var patch coupons.CouponPatch
		if full {
			var body coupons.CouponInput
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			patch = body.Patch()
		} else if err := validators.DecodeJSONBody(r, &patch); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		coupon, err := svc.Update(r.Context(), id, patch)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, coupon)
	}
}

func DeleteCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("coupons"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "couponId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// ValidateCoupon reports whether a code is redeemable right now.
func ValidateCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("coupons"))
			return
		}
		var body coupons.ValidateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Validate(r.Context(), body.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
