package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/shopfront-backend/api/middleware"
	"github.com/angelmondragon/shopfront-backend/api/validators"
	"github.com/angelmondragon/shopfront-backend/internal/orders"
	"github.com/angelmondragon/shopfront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopfront-backend/pkg/errors"
	"github.com/angelmondragon/shopfront-backend/pkg/pagination"
)

const maxPage = 1_000_000

func unavailable(what string) error {
	return pkgerrors.Newf(pkgerrors.CodeInternal, "%s service unavailable", what)
}

// requireUser returns the authenticated caller.
func requireUser(r *http.Request) (uuid.UUID, error) {
	id, ok := middleware.UserUUIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return id, nil
}

func requireActor(r *http.Request) (orders.Actor, error) {
	id, err := requireUser(r)
	if err != nil {
		return orders.Actor{}, err
	}
	return orders.Actor{UserID: id, Role: enums.Role(middleware.RoleFromContext(r.Context()))}, nil
}

// pageParams reads page and page_size from the query string.
func pageParams(r *http.Request) (pagination.Params, error) {
	page, err := validators.ParseQueryInt(r, "page", 1, 1, maxPage)
	if err != nil {
		return pagination.Params{}, err
	}
	size, err := validators.ParseQueryInt(r, "page_size", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{Page: page, PageSize: size}, nil
}
