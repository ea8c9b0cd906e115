package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/shopfront-backend/pkg/db"
	"github.com/angelmondragon/shopfront-backend/pkg/pagination"
)

// Base provides a shared foundation for domain repositories.
type Base struct {
	db *gorm.DB
}

// NewBase constructs a Base repository backed by the provided GORM connection.
func NewBase(conn *gorm.DB) Base {
	return Base{db: conn}
}

// DB returns the GORM connection bound to the supplied context (if any).
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Bind returns a copy of b running on tx; a nil tx keeps the current handle.
func (b Base) Bind(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{db: tx}
}

// FindPage counts the rows matched by query and loads the requested page into dest.
// Ordering must already be applied to query. Extra scopes such as preloads run on
// the page query only.
func FindPage(query *gorm.DB, params pagination.Params, dest any, scopes ...func(*gorm.DB) *gorm.DB) (int64, error) {
	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}
	if err := query.Scopes(params.Scope()).Scopes(scopes...).Find(dest).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// ForUpdate adds a row lock on dialects that support it.
func ForUpdate(query *gorm.DB) *gorm.DB {
	if !db.SupportsRowLocks(query) {
		return query
	}
	return query.Clauses(clause.Locking{Strength: "UPDATE"})
}
