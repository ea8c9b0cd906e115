package catalog

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopfront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/shopfront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/shopfront-backend/pkg/errors"
	"github.com/angelmondragon/shopfront-backend/pkg/pagination"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	client := dbtest.Client(t)
	svc, err := NewService(ServiceParams{
		Repository: NewRepository(client.DB()),
		DB:         client,
	})
	require.NoError(t, err)
	return svc, client.DB()
}

func priceOf(value string) *decimal.Decimal {
	d := decimal.RequireFromString(value)
	return &d
}

func mustCategory(t *testing.T, svc Service, name string) *CategoryDTO {
	t.Helper()
	category, err := svc.CreateCategory(context.Background(), CategoryInput{Name: name})
	require.NoError(t, err)
	return category
}

func mustProduct(t *testing.T, svc Service, category uuid.UUID, name, price string, stock int) *ProductDTO {
	t.Helper()
	product, err := svc.CreateProduct(context.Background(), ProductInput{
		Name:     name,
		Price:    priceOf(price),
		Stock:    stock,
		Category: category,
	})
	require.NoError(t, err)
	return product
}

func TestCategoryLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	created, err := svc.CreateCategory(ctx, CategoryInput{Name: "  Books ", Description: "paper"})
	require.NoError(t, err)
	assert.Equal(t, "Books", created.Name)

	renamed := "Novels"
	updated, err := svc.UpdateCategory(ctx, created.ID, CategoryPatch{Name: &renamed})
	require.NoError(t, err)
	assert.Equal(t, "Novels", updated.Name)
	assert.Equal(t, "paper", updated.Description)

	blank := " "
	_, err = svc.UpdateCategory(ctx, created.ID, CategoryPatch{Name: &blank})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	list, meta, err := svc.ListCategories(ctx, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.EqualValues(t, 1, meta.Total)

	require.NoError(t, svc.DeleteCategory(ctx, created.ID))
	_, err = svc.GetCategory(ctx, created.ID)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(svc.DeleteCategory(ctx, created.ID)))
}

func TestCreateProductRequiresExistingCategory(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.CreateProduct(context.Background(), ProductInput{
		Name:     "Ghost",
		Price:    priceOf("1"),
		Category: uuid.New(),
	})
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestProductValidation(t *testing.T) {
	svc, _ := newTestService(t)
	category := mustCategory(t, svc, "Tools")

	cases := map[string]ProductInput{
		"negative price":   {Name: "a", Price: priceOf("-1"), Category: category.ID},
		"three decimals":   {Name: "a", Price: priceOf("1.005"), Category: category.ID},
		"negative stock":   {Name: "a", Price: priceOf("1"), Stock: -1, Category: category.ID},
		"blank name":       {Name: "  ", Price: priceOf("1"), Category: category.ID},
		"missing price":    {Name: "a", Stock: 5, Category: category.ID},
		"missing name":     {Price: priceOf("1"), Category: category.ID},
		"missing category": {Name: "a", Price: priceOf("1")},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateProduct(context.Background(), input)
			assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
		})
	}
}

func TestListProductsFilters(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	books := mustCategory(t, svc, "Books")
	games := mustCategory(t, svc, "Games")

	mustProduct(t, svc, books.ID, "Go Programming", "45.00", 3)
	mustProduct(t, svc, books.ID, "Rust in Action", "39.99", 1)
	mustProduct(t, svc, games.ID, "Chess Set", "25.50", 9)
	mustProduct(t, svc, games.ID, "100% Puzzle", "10.00", 2)

	t.Run("category", func(t *testing.T) {
		rows, meta, err := svc.ListProducts(ctx, ProductFilter{CategoryID: &books.ID}, pagination.Params{})
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.EqualValues(t, 2, meta.Total)
		for _, p := range rows {
			assert.Equal(t, books.ID, p.Category)
		}
	})

	t.Run("ordering by price is monotonic", func(t *testing.T) {
		rows, _, err := svc.ListProducts(ctx, ProductFilter{Ordering: OrderPriceAsc}, pagination.Params{})
		require.NoError(t, err)
		require.Len(t, rows, 4)
		for i := 1; i < len(rows); i++ {
			assert.True(t, rows[i-1].Price.LessThanOrEqual(rows[i].Price))
		}

		desc, _, err := svc.ListProducts(ctx, ProductFilter{Ordering: OrderPriceDesc}, pagination.Params{})
		require.NoError(t, err)
		assert.Equal(t, "Go Programming", desc[0].Name)
	})

	t.Run("exact and range price", func(t *testing.T) {
		exact := decimal.RequireFromString("39.99")
		rows, _, err := svc.ListProducts(ctx, ProductFilter{Price: &exact}, pagination.Params{})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "Rust in Action", rows[0].Name)

		lo, hi := decimal.NewFromInt(20), decimal.NewFromInt(40)
		rows, _, err = svc.ListProducts(ctx, ProductFilter{PriceMin: &lo, PriceMax: &hi}, pagination.Params{})
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("search is case insensitive and literal", func(t *testing.T) {
		rows, _, err := svc.ListProducts(ctx, ProductFilter{Search: "CHESS"}, pagination.Params{})
		require.NoError(t, err)
		require.Len(t, rows, 1)

		rows, _, err = svc.ListProducts(ctx, ProductFilter{Search: "100%"}, pagination.Params{})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "100% Puzzle", rows[0].Name)
	})

	t.Run("pagination", func(t *testing.T) {
		rows, meta, err := svc.ListProducts(ctx, ProductFilter{Ordering: OrderPriceAsc}, pagination.Params{Page: 2, PageSize: 3})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.EqualValues(t, 4, meta.Total)
		assert.False(t, meta.HasMore)
	})

	t.Run("invalid input", func(t *testing.T) {
		_, _, err := svc.ListProducts(ctx, ProductFilter{Ordering: "name"}, pagination.Params{})
		assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

		lo, hi := decimal.NewFromInt(50), decimal.NewFromInt(10)
		_, _, err = svc.ListProducts(ctx, ProductFilter{PriceMin: &lo, PriceMax: &hi}, pagination.Params{})
		assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	})
}

func TestUpdateProductPatch(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	books := mustCategory(t, svc, "Books")
	games := mustCategory(t, svc, "Games")
	product := mustProduct(t, svc, books.ID, "Dune", "12.00", 4)

	price := decimal.RequireFromString("14.50")
	updated, err := svc.UpdateProduct(ctx, product.ID, ProductPatch{Price: &price, Category: &games.ID})
	require.NoError(t, err)
	assert.True(t, updated.Price.Equal(price))
	assert.Equal(t, games.ID, updated.Category)
	assert.Equal(t, "Dune", updated.Name)
	assert.Equal(t, 4, updated.Stock)

	missing := uuid.New()
	_, err = svc.UpdateProduct(ctx, product.ID, ProductPatch{Category: &missing})
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	_, err = svc.UpdateProduct(ctx, uuid.New(), ProductPatch{Price: &price})
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestDeleteCategoryCascades(t *testing.T) {
	ctx := context.Background()
	svc, conn := newTestService(t)
	books := mustCategory(t, svc, "Books")
	product := mustProduct(t, svc, books.ID, "Dune", "12.00", 4)

	cart := models.Cart{UserID: uuid.New()}
	require.NoError(t, conn.Create(&cart).Error)
	require.NoError(t, conn.Create(&models.CartItem{CartID: cart.ID, ProductID: product.ID, Quantity: 1}).Error)

	require.NoError(t, svc.DeleteCategory(ctx, books.ID))

	var products, items int64
	require.NoError(t, conn.Model(&models.Product{}).Count(&products).Error)
	require.NoError(t, conn.Model(&models.CartItem{}).Count(&items).Error)
	assert.Zero(t, products)
	assert.Zero(t, items)
}

func TestDeleteOrderedProductConflicts(t *testing.T) {
	ctx := context.Background()
	svc, conn := newTestService(t)
	books := mustCategory(t, svc, "Books")
	product := mustProduct(t, svc, books.ID, "Dune", "12.00", 4)

	order := models.Order{UserID: uuid.New(), TotalAmount: decimal.NewFromInt(12)}
	require.NoError(t, conn.Create(&order).Error)
	require.NoError(t, conn.Create(&models.OrderItem{OrderID: order.ID, ProductID: product.ID, Quantity: 1, Price: decimal.NewFromInt(12)}).Error)

	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(svc.DeleteProduct(ctx, product.ID)))
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(svc.DeleteCategory(ctx, books.ID)))

	_, err := svc.GetProduct(ctx, product.ID)
	require.NoError(t, err)
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	books := mustCategory(t, svc, "Books")
	dune := mustProduct(t, svc, books.ID, "Dune", "12.50", 4)
	time.Sleep(time.Millisecond)
	mustProduct(t, svc, books.ID, "Emma", "8.00", 1)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportProducts(ctx, &buf))

	file, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, file.Sheets, 1)
	sheet := file.Sheets[0]
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, "ID", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, dune.ID.String(), sheet.Rows[1].Cells[0].String())
	exportedPrice, err := decimal.NewFromString(sheet.Rows[1].Cells[3].String())
	require.NoError(t, err)
	assert.True(t, exportedPrice.Equal(decimal.RequireFromString("12.5")))

	sheet.Rows[1].Cells[4].SetInt(40)
	extra := sheet.AddRow()
	for _, value := range []string{"", "Ulysses", "", "20", "2", books.ID.String(), ""} {
		extra.AddCell().SetString(value)
	}
	broken := sheet.AddRow()
	for _, value := range []string{"", "Broken", "", "abc", "1", books.ID.String(), ""} {
		broken.AddCell().SetString(value)
	}

	var edited bytes.Buffer
	require.NoError(t, file.Write(&edited))
	result, err := svc.ImportProducts(ctx, bytes.NewReader(edited.Bytes()), int64(edited.Len()))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 2, result.Updated)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, 5, result.Skipped[0].Row)

	reloaded, err := svc.GetProduct(ctx, dune.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, reloaded.Stock)

	_, err = svc.ImportProducts(ctx, bytes.NewReader([]byte("nope")), 4)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}
