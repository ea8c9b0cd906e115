package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a sellable catalog entry.
type Product struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name        string          `gorm:"column:name;type:varchar(200);not null"`
	Description string          `gorm:"column:description;type:text;not null;default:''"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	Stock       int             `gorm:"column:stock;not null;default:0"`
	CategoryID  uuid.UUID       `gorm:"column:category_id;type:uuid;not null;index:products_category_id_idx"`
	Image       *string         `gorm:"column:image"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
