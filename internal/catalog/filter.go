package catalog

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/shopfront-backend/pkg/errors"
)

// Ordering values accepted by the product list.
const (
	OrderPriceAsc      = "price"
	OrderPriceDesc     = "-price"
	OrderCreatedAtAsc  = "created_at"
	OrderCreatedAtDesc = "-created_at"
)

var orderClauses = map[string]string{
	OrderPriceAsc:      "products.price ASC, products.id ASC",
	OrderPriceDesc:     "products.price DESC, products.id ASC",
	OrderCreatedAtAsc:  "products.created_at ASC, products.id ASC",
	OrderCreatedAtDesc: "products.created_at DESC, products.id ASC",
}

// ProductFilter narrows the public product listing.
type ProductFilter struct {
	CategoryID *uuid.UUID
	Price      *decimal.Decimal
	PriceMin   *decimal.Decimal
	PriceMax   *decimal.Decimal
	Search     string
	Ordering   string
}

// Normalize trims inputs, defaults the ordering and rejects impossible ranges.
func (f ProductFilter) Normalize() (ProductFilter, error) {
	f.Search = strings.TrimSpace(f.Search)
	f.Ordering = strings.TrimSpace(f.Ordering)
	if f.Ordering == "" {
		f.Ordering = OrderCreatedAtDesc
	}
	if _, ok := orderClauses[f.Ordering]; !ok {
		return f, pkgerrors.New(pkgerrors.CodeValidation, "unsupported ordering").
			WithDetails(map[string]any{"ordering": f.Ordering, "allowed": []string{OrderPriceAsc, OrderPriceDesc, OrderCreatedAtAsc, OrderCreatedAtDesc}})
	}
	if f.PriceMin != nil && f.PriceMax != nil && f.PriceMin.GreaterThan(*f.PriceMax) {
		return f, pkgerrors.New(pkgerrors.CodeValidation, "price_min must not exceed price_max")
	}
	return f, nil
}

func (f ProductFilter) orderClause() string {
	if clause, ok := orderClauses[f.Ordering]; ok {
		return clause
	}
	return orderClauses[OrderCreatedAtDesc]
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func searchPattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
}
