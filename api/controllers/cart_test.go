package controllers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/shopfront-backend/internal/cart"
	"github.com/angelmondragon/shopfront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopfront-backend/pkg/errors"
)

type stubCartService struct {
	cart.Service
	created  bool
	lastUser uuid.UUID
	lastAdd  cart.AddItemInput
	getErr   error
}

func (s *stubCartService) EnsureCart(ctx context.Context, userID uuid.UUID) (*cart.CartDTO, bool, error) {
	s.lastUser = userID
	return &cart.CartDTO{ID: uuid.New(), User: userID}, s.created, nil
}

func (s *stubCartService) AddItem(ctx context.Context, userID uuid.UUID, input cart.AddItemInput) (*cart.CartItemDTO, error) {
	s.lastUser = userID
	s.lastAdd = input
	return &cart.CartItemDTO{ID: uuid.New(), Product: input.Product, Quantity: 1}, nil
}

func (s *stubCartService) GetCart(ctx context.Context, userID, cartID uuid.UUID) (*cart.CartDTO, error) {
	return nil, s.getErr
}

func TestEnsureCartStatus(t *testing.T) {
	for _, tc := range []struct {
		name    string
		created bool
		want    int
	}{
		{name: "created", created: true, want: http.StatusCreated},
		{name: "existing", created: false, want: http.StatusOK},
	} {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubCartService{created: tc.created}
			userID := uuid.New()
			req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/cart", nil), userID, enums.RoleCustomer)
			rec := httptest.NewRecorder()
			EnsureCart(svc, nil).ServeHTTP(rec, req)

			if rec.Code != tc.want {
				t.Fatalf("expected %d got %d", tc.want, rec.Code)
			}
			if svc.lastUser != userID {
				t.Fatalf("expected service called for caller")
			}
		})
	}
}

func TestCartRequiresUser(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart", nil)
	rec := httptest.NewRecorder()
	EnsureCart(&stubCartService{}, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestAddCartItemDecodesBody(t *testing.T) {
	svc := &stubCartService{}
	product := uuid.New()
	body := `{"product":"` + product.String() + `","quantity":3}`
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/cart-items", bytes.NewBufferString(body)), uuid.New(), enums.RoleCustomer)
	rec := httptest.NewRecorder()
	AddCartItem(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.lastAdd.Product != product || svc.lastAdd.Quantity == nil || *svc.lastAdd.Quantity != 3 {
		t.Fatalf("unexpected add input %+v", svc.lastAdd)
	}
}

func TestAddCartItemRejectsZeroQuantity(t *testing.T) {
	body := `{"product":"` + uuid.NewString() + `","quantity":0}`
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/cart-items", bytes.NewBufferString(body)), uuid.New(), enums.RoleCustomer)
	rec := httptest.NewRecorder()
	AddCartItem(&stubCartService{}, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestGetCartForeignIsNotFound(t *testing.T) {
	svc := &stubCartService{getErr: pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")}
	router := chi.NewRouter()
	router.Get("/cart/{cartId}", GetCart(svc, nil))

	req := withUser(httptest.NewRequest(http.MethodGet, "/cart/"+uuid.NewString(), nil), uuid.New(), enums.RoleCustomer)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}
