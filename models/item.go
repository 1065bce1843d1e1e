package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Item struct {
	ID           string          `gorm:"primary_key;size:36" json:"id"`
	Name         string          `gorm:"size:100;not null" json:"name" binding:"required"`
	Sku          string          `gorm:"size:100;index" json:"sku"`
	Category     string          `gorm:"size:100" json:"category"`
	ReorderPoint decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"reorder_point"`
	CostPrice    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cost_price"`
	SellingPrice decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"selling_price"`
	IsActive     *bool           `gorm:"not null;default:true" json:"is_active"`
	Batches      []*ItemBatch    `gorm:"foreignKey:ItemId" json:"batches"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type ItemBatch struct {
	ID         string          `gorm:"primary_key;size:36" json:"id"`
	ItemId     string          `gorm:"size:36;index;not null" json:"item_id"`
	Quantity   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity"`
	ExpiryDate *time.Time      `json:"expiry_date"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// EffectiveStock is the sum of positive, non-expired batch quantities.
// Batches without an expiry date never expire. Computed, not stored.
func (item *Item) EffectiveStock(now time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, batch := range item.Batches {
		if !batch.Quantity.IsPositive() {
			continue
		}
		if batch.ExpiryDate != nil && batch.ExpiryDate.Before(now) {
			continue
		}
		total = total.Add(batch.Quantity)
	}
	return total
}
