package responses

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	pkgerrors "github.com/angelmondragon/shopfront-backend/pkg/errors"
	"github.com/angelmondragon/shopfront-backend/pkg/logger"
	"github.com/angelmondragon/shopfront-backend/pkg/types"
)

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Data: data})
}

// WriteList wraps a page of items with its pagination metadata.
func WriteList(w http.ResponseWriter, items any, meta types.PageMeta) {
	WriteSuccess(w, types.ListPayload{Items: items, Pagination: meta})
}

func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// publicMessageCodes surface the caller-facing message instead of the generic one.
var publicMessageCodes = map[pkgerrors.Code]struct{}{
	pkgerrors.CodeValidation:    {},
	pkgerrors.CodeForbidden:     {},
	pkgerrors.CodeUnauthorized:  {},
	pkgerrors.CodeNotFound:      {},
	pkgerrors.CodeConflict:      {},
	pkgerrors.CodeStateConflict: {},
	pkgerrors.CodeIdempotency:   {},
	pkgerrors.CodeRateLimit:     {},
}

func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}

	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}

	meta := pkgerrors.MetadataFor(typed.Code())

	msg := meta.PublicMessage
	if _, ok := publicMessageCodes[typed.Code()]; ok && typed.Message() != "" {
		msg = typed.Message()
	}

	payload := types.ErrorEnvelope{
		Error: types.APIError{
			Code:    string(typed.Code()),
			Message: msg,
		},
	}
	if meta.DetailsAllowed && typed.Details() != nil {
		payload.Error.Details = typed.Details()
	}

	if logg != nil {
		dump := pkgerrors.Dump(err)
		ctx = logg.WithFields(ctx, map[string]any{
			"error_code":    dump.Code,
			"error_chain":   dump.Chain,
			"http_status":   meta.HTTPStatus,
			"db_store":      dump.Store,
			"db_code":       dump.StoreCode,
			"db_violation":  dump.Violation,
			"db_constraint": dump.Constraint,
			"db_table":      dump.Table,
			"db_detail":     dump.Detail,
		})
		if meta.HTTPStatus >= http.StatusInternalServerError {
			logg.Error(ctx, "request.error", err)
		} else {
			logg.Warn(ctx, "request.rejected")
		}
	}

	writeJSON(w, meta.HTTPStatus, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf(`{"level":"error","msg":"failed to encode response","err":"%v"}`, err)
	}
}
