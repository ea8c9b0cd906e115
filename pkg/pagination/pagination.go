package pagination

import (
	"github.com/angelmondragon/shopfront-backend/pkg/types"
	"gorm.io/gorm"
)

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 25
	// MaxLimit caps how many rows any list query can request.
	MaxLimit = 100
)

// Params holds page-number pagination inputs from controllers or services.
type Params struct {
	Page     int
	PageSize int
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Normalize clamps the page to >= 1 and the size to [1, MaxLimit].
func (p Params) Normalize() Params {
	if p.Page < 1 {
		p.Page = 1
	}
	p.PageSize = NormalizeLimit(p.PageSize)
	return p
}

// Offset returns the number of rows skipped before the page starts.
func (p Params) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.PageSize
}

// Scope applies LIMIT/OFFSET to a query.
func (p Params) Scope() func(*gorm.DB) *gorm.DB {
	n := p.Normalize()
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(n.Offset()).Limit(n.PageSize)
	}
}

// Meta builds the response metadata for a page out of total rows.
func (p Params) Meta(total int64) types.PageMeta {
	n := p.Normalize()
	return types.PageMeta{
		Page:     n.Page,
		PageSize: n.PageSize,
		Total:    total,
		HasMore:  int64(n.Offset()+n.PageSize) < total,
	}
}
