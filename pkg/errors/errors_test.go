package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected", detailsOK: true},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeIdempotency, status: http.StatusConflict, publicMsg: "idempotency key reused", detailsOK: true},
		{code: CodeRateLimit, status: http.StatusTooManyRequests, publicMsg: "rate limit exceeded"},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := Newf(CodeValidation, "missing %s", "quantity")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing quantity" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	base.WithDetails(map[string]any{"field": "quantity"})
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "insert review")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
	if !strings.Contains(wrapped.Error(), "boom") {
		t.Fatalf("expected cause in error string, got %q", wrapped.Error())
	}
}

func TestCodeOfAndIsCode(t *testing.T) {
	err := fmt.Errorf("checkout: %w", New(CodeStateConflict, "coupon expired"))
	if CodeOf(err) != CodeStateConflict {
		t.Fatalf("expected wrapped code to surface, got %s", CodeOf(err))
	}
	if !IsCode(err, CodeStateConflict) {
		t.Fatalf("expected IsCode to match")
	}
	if IsCode(nil, CodeInternal) {
		t.Fatalf("nil error should never match")
	}
	if CodeOf(stdErrors.New("plain")) != CodeInternal {
		t.Fatalf("untyped errors should map to internal")
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "no entry")
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestDumpCapturesPostgresFields(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "coupons_code_key", TableName: "coupons", Message: "duplicate key value"}
	err := Wrap(CodeConflict, pgErr, "create coupon")

	dump := Dump(err)
	if dump.Code != CodeConflict {
		t.Fatalf("expected conflict code, got %s", dump.Code)
	}
	if dump.Store != "postgres" || dump.StoreCode != "23505" || dump.Constraint != "coupons_code_key" || dump.Table != "coupons" {
		t.Fatalf("unexpected store fields %+v", dump)
	}
	if dump.Violation != ViolationUnique {
		t.Fatalf("expected unique violation, got %q", dump.Violation)
	}
	if len(dump.Chain) != 2 {
		t.Fatalf("expected two chain entries, got %v", dump.Chain)
	}
}

func TestDumpClassifiesDriverAndGormErrors(t *testing.T) {
	cases := map[string]struct {
		err       error
		store     string
		violation Violation
	}{
		"pq foreign key": {&pq.Error{Code: "23503", Constraint: "order_items_product_id_fkey"}, "postgres", ViolationForeignKey},
		"sqlite unique":  {sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}, "sqlite", ViolationUnique},
		"sqlite check":   {sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintCheck}, "sqlite", ViolationCheck},
		"gorm sentinel":  {gorm.ErrDuplicatedKey, "", ViolationUnique},
		"plain":          {stdErrors.New("boom"), "", ""},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			dump := Dump(Wrap(CodeConflict, tc.err, "write"))
			if dump.Store != tc.store || dump.Violation != tc.violation {
				t.Fatalf("unexpected dump %+v", dump)
			}
		})
	}
}

func TestDumpNil(t *testing.T) {
	if d := Dump(nil); d.TopMessage != "" || len(d.Chain) != 0 {
		t.Fatalf("expected empty dump, got %+v", d)
	}
}
