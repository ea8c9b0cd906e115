package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/shopfront-backend/pkg/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type sampleItem struct {
	Product  string `json:"product" validate:"required,uuid"`
	Quantity int    `json:"quantity" validate:"gte=1"`
}

type sampleRequest struct {
	Name  string       `json:"name" validate:"required,max=10"`
	Items []sampleItem `json:"items" validate:"dive"`
}

func TestDecodeJSONBodyValid(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ok","items":[{"product":"`+uuid.NewString()+`","quantity":2}]}`))
	var dest sampleRequest
	if err := DecodeJSONBody(req, &dest); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dest.Name != "ok" || len(dest.Items) != 1 {
		t.Fatalf("unexpected decode result %+v", dest)
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ok","extra":1}`))
	err := DecodeJSONBody(req, &sampleRequest{})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeJSONBodyEmpty(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	err := DecodeJSONBody(req, &sampleRequest{})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeJSONBodyFieldDetails(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"","items":[{"product":"nope","quantity":0}]}`))
	err := DecodeJSONBody(req, &sampleRequest{})
	apiErr := pkgerrors.As(err)
	if apiErr == nil {
		t.Fatalf("expected typed error, got %v", err)
	}
	details, ok := apiErr.Details().(map[string]string)
	if !ok {
		t.Fatalf("unexpected details type %T", apiErr.Details())
	}
	for field, want := range map[string]string{
		"name":              "is required",
		"items[0].product":  "must be a valid uuid",
		"items[0].quantity": "must be at least 1",
	} {
		if details[field] != want {
			t.Fatalf("details[%q] = %q, want %q (all=%v)", field, details[field], want, details)
		}
	}
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page=3&bad=x&big=500", nil)
	if v, err := ParseQueryInt(req, "page", 1, 1, 100); err != nil || v != 3 {
		t.Fatalf("page = %d err=%v", v, err)
	}
	if v, err := ParseQueryInt(req, "missing", 7, 1, 100); err != nil || v != 7 {
		t.Fatalf("default = %d err=%v", v, err)
	}
	if _, err := ParseQueryInt(req, "bad", 1, 1, 100); err == nil {
		t.Fatal("expected numeric error")
	}
	if _, err := ParseQueryInt(req, "big", 1, 1, 100); err == nil {
		t.Fatal("expected range error")
	}
}

func TestParseQueryUUIDAndDecimal(t *testing.T) {
	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/?category="+id.String()+"&price=9.99&bad=zz", nil)

	got, err := ParseQueryUUID(req, "category")
	if err != nil || got == nil || *got != id {
		t.Fatalf("category = %v err=%v", got, err)
	}
	if got, err := ParseQueryUUID(req, "missing"); err != nil || got != nil {
		t.Fatalf("missing uuid should be nil, got %v err=%v", got, err)
	}
	if _, err := ParseQueryUUID(req, "bad"); err == nil {
		t.Fatal("expected uuid error")
	}

	price, err := ParseQueryDecimal(req, "price")
	if err != nil || price == nil || price.String() != "9.99" {
		t.Fatalf("price = %v err=%v", price, err)
	}
	if _, err := ParseQueryDecimal(req, "bad"); err == nil {
		t.Fatal("expected decimal error")
	}
}

func TestParseUUIDParam(t *testing.T) {
	id := uuid.New()
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("productId", id.String())
	rctx.URLParams.Add("broken", "123")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	got, err := ParseUUIDParam(req, "productId")
	if err != nil || got != id {
		t.Fatalf("got %v err=%v", got, err)
	}
	if _, err := ParseUUIDParam(req, "broken"); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  héllo wörld  ", 5); got != "héllo" {
		t.Fatalf("got %q", got)
	}
	if got := SanitizeString(" x ", 0); got != "x" {
		t.Fatalf("got %q", got)
	}
	if SanitizeOptional(nil, 3) != nil {
		t.Fatal("nil should stay nil")
	}
	in := "  abcdef "
	if got := SanitizeOptional(&in, 3); *got != "abc" {
		t.Fatalf("got %q", *got)
	}
}
