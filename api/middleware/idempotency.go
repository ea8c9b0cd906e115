package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/shopfront-backend/api/responses"
	"github.com/angelmondragon/shopfront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/shopfront-backend/pkg/errors"
	"github.com/angelmondragon/shopfront-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/shopfront-backend/pkg/redis"
)

const idempotencyHeader = "Idempotency-Key"

// IdempotencyRule marks a method+path as replayable. Required rules reject
// requests that omit the header; optional ones only replay when it is sent.
type IdempotencyRule struct {
	Method   string
	Path     string
	TTL      time.Duration
	Required bool
}

// DefaultIdempotencyRules covers checkout, add-to-cart and registration.
func DefaultIdempotencyRules(cfg config.IdempotencyConfig) []IdempotencyRule {
	return []IdempotencyRule{
		{Method: http.MethodPost, Path: "/api/v1/orders", TTL: cfg.CheckoutTTL, Required: true},
		{Method: http.MethodPost, Path: "/api/v1/cart-items", TTL: cfg.DefaultTTL},
		{Method: http.MethodPost, Path: "/api/v1/auth/register", TTL: cfg.DefaultTTL},
	}
}

type idempotencyRecord struct {
	Status      int               `json:"status"`
	Body        string            `json:"body"`
	Headers     map[string]string `json:"headers,omitempty"`
	RequestHash string            `json:"request_hash"`
}

func Idempotency(rules []IdempotencyRule, store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil || len(rules) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rule, ok := matchRule(rules, r.Method, r.URL.Path)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			idemKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if idemKey == "" {
				if rule.Required {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			requestHash := hashBody(body)
			key := store.IdempotencyKey(idempotencyScope(r), idemKey)

			stored, err := store.Get(r.Context(), key)
			if err != nil && !pkgredis.IsNil(err) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
				return
			}
			if stored != "" {
				record, err := decodeRecord(stored)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
					return
				}
				if record.RequestHash != requestHash {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
					return
				}
				w.Header().Set("Idempotent-Replayed", "true")
				writeStoredResponse(w, record)
				return
			}

			rec := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			// server errors stay retryable
			if rec.code() >= http.StatusInternalServerError {
				return
			}
			record := idempotencyRecord{
				Status:      rec.code(),
				Body:        base64.StdEncoding.EncodeToString(rec.body.Bytes()),
				RequestHash: requestHash,
			}
			if ct := rec.Header().Get("Content-Type"); ct != "" {
				record.Headers = map[string]string{"Content-Type": ct}
			}
			payload, err := json.Marshal(record)
			if err != nil {
				logError(r.Context(), logg, "marshal idempotency record", err)
				return
			}
			if _, err := store.SetNX(r.Context(), key, string(payload), rule.TTL); err != nil {
				logError(r.Context(), logg, "persist idempotency record", err)
			}
		})
	}
}

func matchRule(rules []IdempotencyRule, method, path string) (IdempotencyRule, bool) {
	path = strings.TrimSuffix(path, "/")
	for _, rule := range rules {
		if rule.Method == method && rule.Path == path {
			return rule, true
		}
	}
	return IdempotencyRule{}, false
}

func idempotencyScope(r *http.Request) string {
	user := UserIDFromContext(r.Context())
	if user == "" {
		user = "anon"
	}
	return strings.Join([]string{user, r.Method, strings.TrimSuffix(r.URL.Path, "/")}, "|")
}

func decodeRecord(payload string) (*idempotencyRecord, error) {
	var record idempotencyRecord
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func writeStoredResponse(w http.ResponseWriter, record *idempotencyRecord) {
	if ct := record.Headers["Content-Type"]; ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(record.Status)
	if decoded, err := base64.StdEncoding.DecodeString(record.Body); err == nil {
		_, _ = w.Write(decoded)
	}
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.StdEncoding.EncodeToString(sum[:])
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *responseCapture) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseCapture) code() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

func logError(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg == nil || err == nil {
		return
	}
	logg.Error(ctx, msg, err)
}
