package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SalesRecord is an immutable historical fact: total quantity of an item sold
// on a given date. Rows are written by the storefront (out of scope here);
// the agent only reads them, ordered ascending by sale_date.
type SalesRecord struct {
	ID           int             `gorm:"primary_key" json:"id"`
	ItemId       string          `gorm:"size:36;index:idx_sales_item_date;not null" json:"item_id"`
	SaleDate     time.Time       `gorm:"index:idx_sales_item_date;not null" json:"sale_date"`
	QuantitySold decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity_sold"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
}
