package agent

import (
	"io"
	"time"

	"github.com/mmdatafocus/agent_backend/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// NOTE: These tests are intentionally DB-free. They validate the decision
// pipeline's semantics against in-memory fixtures; DB-backed integration
// tests belong in an environment that can run MySQL + Redis.

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func flatHistory(itemId string, start time.Time, days int, qtyPerDay int64) []models.SalesRecord {
	records := make([]models.SalesRecord, 0, days)
	for i := 0; i < days; i++ {
		records = append(records, models.SalesRecord{
			ItemId:       itemId,
			SaleDate:     start.AddDate(0, 0, i),
			QuantitySold: decimal.NewFromInt(qtyPerDay),
		})
	}
	return records
}

func sampleSuppliers() []*models.Supplier {
	return []*models.Supplier{
		{
			ID:               "supplier-1",
			Name:             "Fast Supplier",
			ReliabilityScore: floatPtr(90),
			AvgLeadTimeDays:  intPtr(2),
			PriceIndex:       floatPtr(100),
		},
		{
			ID:               "supplier-2",
			Name:             "Cheap Supplier",
			ReliabilityScore: floatPtr(70),
			AvgLeadTimeDays:  intPtr(7),
			PriceIndex:       floatPtr(80),
		},
		{
			ID:               "supplier-3",
			Name:             "Reliable Supplier",
			ReliabilityScore: floatPtr(95),
			AvgLeadTimeDays:  intPtr(5),
			PriceIndex:       floatPtr(120),
		},
	}
}

// trainingSamples are hand-picked so no feature column is a linear
// combination of the others; the normal equations stay well-conditioned.
func trainingSamples(orderedAt time.Time) []models.PurchaseRecord {
	prices := []int64{100, 80, 120, 95, 110, 85, 105, 90, 115, 75, 102, 98}
	leads := []int{2, 7, 5, 3, 6, 4, 2, 8, 5, 3, 4, 6}
	reliabilities := []float64{90, 70, 95, 85, 60, 75, 88, 72, 93, 65, 80, 78}
	urgencies := []int{8, 5, 7, 3, 6, 4, 9, 2, 5, 7, 3, 6}
	delays := []float64{0.5, 2, 1, 0, 3, 1.5, 0.2, 2.5, 0.8, 1.2, 0.4, 1.8}
	satisfactions := []float64{95, 70, 88, 82, 55, 68, 92, 60, 85, 58, 77, 73}

	records := make([]models.PurchaseRecord, len(prices))
	for i := range prices {
		records[i] = models.PurchaseRecord{
			SupplierId:        []string{"supplier-1", "supplier-2", "supplier-3"}[i%3],
			ItemId:            "item-1",
			Price:             decimal.NewFromInt(prices[i]),
			LeadTimeDays:      leads[i],
			ReliabilityScore:  reliabilities[i],
			UrgencyLevel:      urgencies[i],
			ActualDelayDays:   delays[i],
			SatisfactionScore: satisfactions[i],
			OrderedAt:         orderedAt.AddDate(0, 0, -i),
		}
	}
	return records
}

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }
