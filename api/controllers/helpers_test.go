package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/shopfront-backend/api/middleware"
	"github.com/angelmondragon/shopfront-backend/pkg/enums"
)

func withUser(req *http.Request, id uuid.UUID, role enums.Role) *http.Request {
	ctx := middleware.WithUserID(req.Context(), id.String())
	ctx = middleware.WithRole(ctx, string(role))
	return req.WithContext(ctx)
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	envelope := struct {
		Data any `json:"data"`
	}{Data: dest}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return envelope.Error.Code
}

func TestPageParamsDefaults(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	params, err := pageParams(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params.Page != 1 || params.PageSize != 25 {
		t.Fatalf("unexpected params %+v", params)
	}
}

func TestPageParamsRejectsOversizedPage(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page_size=101", nil)
	if _, err := pageParams(req); err == nil {
		t.Fatalf("expected error for page_size above max")
	}
}

func TestRequireUserMissing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := requireUser(req); err == nil {
		t.Fatalf("expected unauthorized error")
	}
}
