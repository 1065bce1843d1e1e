package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Supplier attribute columns are nullable on purpose: records imported from
// spreadsheets are often incomplete, and the ranker must still score them.
type Supplier struct {
	ID               string     `gorm:"primary_key;size:36" json:"id"`
	Name             string     `gorm:"size:100;not null" json:"name" binding:"required"`
	Email            string     `gorm:"size:100" json:"email"`
	Phone            string     `gorm:"size:20" json:"phone"`
	ReliabilityScore *float64   `json:"reliability_score"`
	AvgLeadTimeDays  *int       `json:"avg_lead_time_days"`
	PriceIndex       *float64   `json:"price_index"`
	IsActive         *bool      `gorm:"not null;default:true" json:"is_active"`
	Items            []*Item    `gorm:"many2many:item_suppliers" json:"-"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// PurchaseRecord is one historical purchase-order outcome. It doubles as a
// training sample for the supplier scorer: observed features at order time
// plus the after-the-fact satisfaction score.
type PurchaseRecord struct {
	ID                int             `gorm:"primary_key" json:"id"`
	SupplierId        string          `gorm:"size:36;index;not null" json:"supplier_id"`
	ItemId            string          `gorm:"size:36;index;not null" json:"item_id"`
	Price             decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"price"`
	LeadTimeDays      int             `gorm:"default:0" json:"lead_time_days"`
	ReliabilityScore  float64         `gorm:"default:0" json:"reliability_score"`
	UrgencyLevel      int             `gorm:"default:5" json:"urgency_level"`
	ActualDelayDays   float64         `gorm:"default:0" json:"actual_delay_days"`
	SatisfactionScore float64         `gorm:"default:0" json:"satisfaction_score"`
	OrderedAt         time.Time       `json:"ordered_at"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
}
