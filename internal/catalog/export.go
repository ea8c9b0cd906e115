package catalog

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopfront-backend/pkg/db"
	"github.com/angelmondragon/shopfront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/shopfront-backend/pkg/errors"
)

const (
	productsSheet   = "Products"
	exportBatchSize = 500
	timestampLayout = "2006-01-02 15:04:05"
)

// ExportHeaders is the column layout shared by export and import.
var ExportHeaders = []string{"ID", "Name", "Description", "Price", "Stock", "CategoryID", "Image", "CreatedAt", "UpdatedAt"}

// ImportRowError explains why a spreadsheet row was skipped.
type ImportRowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

type ImportResult struct {
	Created int              `json:"created"`
	Updated int              `json:"updated"`
	Skipped []ImportRowError `json:"skipped"`
}

func (s *service) ExportProducts(ctx context.Context, w io.Writer) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet(productsSheet)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create sheet")
	}

	header := sheet.AddRow()
	for _, h := range ExportHeaders {
		header.AddCell().SetString(h)
	}

	err = s.repo.EachProductBatch(ctx, exportBatchSize, func(batch []models.Product) error {
		for i := range batch {
			writeProductRow(sheet.AddRow(), &batch[i])
		}
		return nil
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}

	if err := file.Write(w); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write workbook")
	}
	return nil
}

func writeProductRow(row *xlsx.Row, p *models.Product) {
	row.AddCell().SetString(p.ID.String())
	row.AddCell().SetString(p.Name)
	row.AddCell().SetString(p.Description)
	price, _ := p.Price.Float64()
	row.AddCell().SetFloatWithFormat(price, "0.00")
	row.AddCell().SetInt(p.Stock)
	row.AddCell().SetString(p.CategoryID.String())
	image := ""
	if p.Image != nil {
		image = *p.Image
	}
	row.AddCell().SetString(image)
	row.AddCell().SetString(p.CreatedAt.UTC().Format(timestampLayout))
	row.AddCell().SetString(p.UpdatedAt.UTC().Format(timestampLayout))
}

// ImportProducts upserts products from the first sheet of an export-shaped
// workbook. Rows are keyed by ID; a blank ID creates a product. Invalid rows
// are reported and skipped, everything else commits in one transaction.
func (s *service) ImportProducts(ctx context.Context, r io.ReaderAt, size int64) (*ImportResult, error) {
	file, err := xlsx.OpenReaderAt(r, size)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "workbook could not be parsed")
	}
	if len(file.Sheets) == 0 || len(file.Sheets[0].Rows) < 2 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "workbook is empty or missing a header row")
	}

	result := &ImportResult{Skipped: []ImportRowError{}}
	rows := file.Sheets[0].Rows[1:]
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		for i, row := range rows {
			rowNum := i + 2
			parsed, err := parseImportRow(row)
			if err != nil {
				result.Skipped = append(result.Skipped, ImportRowError{Row: rowNum, Reason: err.Error()})
				continue
			}
			created, err := s.upsertImported(ctx, repo, parsed)
			if err != nil {
				if typed := pkgerrors.As(err); typed != nil && typed.Code() != pkgerrors.CodeDependency {
					result.Skipped = append(result.Skipped, ImportRowError{Row: rowNum, Reason: typed.Message()})
					continue
				}
				return err
			}
			if created {
				result.Created++
			} else {
				result.Updated++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"created": result.Created,
			"updated": result.Updated,
			"skipped": len(result.Skipped),
		}), "catalog.import.complete")
	}
	return result, nil
}

type importedProduct struct {
	id    uuid.UUID
	patch ProductPatch
}

func parseImportRow(row *xlsx.Row) (*importedProduct, error) {
	get := func(index int) string {
		if row == nil || index >= len(row.Cells) {
			return ""
		}
		return strings.TrimSpace(row.Cells[index].String())
	}

	out := &importedProduct{}
	if raw := get(0); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", raw)
		}
		out.id = id
	}

	name := get(1)
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	description := get(2)
	price, err := decimal.NewFromString(get(3))
	if err != nil {
		return nil, fmt.Errorf("invalid price %q", get(3))
	}
	price = price.Round(2)
	stock, err := strconv.Atoi(get(4))
	if err != nil {
		return nil, fmt.Errorf("invalid stock %q", get(4))
	}
	categoryID, err := uuid.Parse(get(5))
	if err != nil {
		return nil, fmt.Errorf("invalid category %q", get(5))
	}
	image := get(6)

	out.patch = ProductPatch{
		Name:        &name,
		Description: &description,
		Price:       &price,
		Stock:       &stock,
		Category:    &categoryID,
		Image:       &image,
	}
	return out, nil
}

func (s *service) upsertImported(ctx context.Context, repo Repository, row *importedProduct) (bool, error) {
	if row.id != uuid.Nil {
		existing, err := repo.FindProduct(ctx, row.id)
		switch {
		case err == nil:
			if err := s.applyProductPatch(ctx, repo, existing, row.patch); err != nil {
				return false, err
			}
			existing.UpdatedAt = time.Now().UTC()
			if err := repo.SaveProduct(ctx, existing); err != nil {
				return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
			}
			return false, nil
		case !db.IsNotFound(err):
			return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
	}

	product := &models.Product{ID: row.id}
	if err := s.applyProductPatch(ctx, repo, product, row.patch); err != nil {
		return false, err
	}
	if err := repo.CreateProduct(ctx, product); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return true, nil
}
