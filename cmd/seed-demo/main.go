// seed-demo populates a development database with a small workshop inventory:
// items with batches, linked suppliers, 60 days of sales history, purchase
// outcomes for scorer training and a handful of open tasks.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-demo
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/agent_backend/config"
	"github.com/mmdatafocus/agent_backend/models"
	"github.com/mmdatafocus/agent_backend/utils"
	"github.com/shopspring/decimal"
)

func main() {
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	models.MigrateTable()

	now := time.Now().UTC()

	brakePads := &models.Item{
		ID:           uuid.NewString(),
		Name:         "Brake Pads",
		Sku:          "BRK-001",
		Category:     "parts",
		ReorderPoint: decimal.NewFromInt(10),
		CostPrice:    decimal.NewFromInt(50),
		SellingPrice: decimal.NewFromInt(75),
		IsActive:     utils.NewTrue(),
	}
	engineOil := &models.Item{
		ID:           uuid.NewString(),
		Name:         "Engine Oil",
		Sku:          "OIL-001",
		Category:     "fluids",
		ReorderPoint: decimal.NewFromInt(20),
		CostPrice:    decimal.NewFromInt(20),
		SellingPrice: decimal.NewFromInt(35),
		IsActive:     utils.NewTrue(),
	}
	for _, item := range []*models.Item{brakePads, engineOil} {
		if err := db.Create(item).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to create item %s: %v\n", item.Name, err)
			os.Exit(1)
		}
	}

	soon := now.AddDate(0, 0, 5)
	later := now.AddDate(0, 6, 0)
	batches := []*models.ItemBatch{
		{ID: uuid.NewString(), ItemId: brakePads.ID, Quantity: decimal.NewFromInt(5)},
		{ID: uuid.NewString(), ItemId: engineOil.ID, Quantity: decimal.NewFromInt(30), ExpiryDate: &later},
		{ID: uuid.NewString(), ItemId: engineOil.ID, Quantity: decimal.NewFromInt(20), ExpiryDate: &soon},
	}
	for _, batch := range batches {
		if err := db.Create(batch).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to create batch: %v\n", err)
			os.Exit(1)
		}
	}

	suppliers := []*models.Supplier{
		{
			ID: uuid.NewString(), Name: "Fast Supplier", Email: "sales@fast.example",
			ReliabilityScore: utils.NewFloat(90), AvgLeadTimeDays: utils.NewInt(2),
			PriceIndex: utils.NewFloat(100), IsActive: utils.NewTrue(),
		},
		{
			ID: uuid.NewString(), Name: "Cheap Supplier", Email: "orders@cheap.example",
			ReliabilityScore: utils.NewFloat(70), AvgLeadTimeDays: utils.NewInt(7),
			PriceIndex: utils.NewFloat(80), IsActive: utils.NewTrue(),
		},
		{
			ID: uuid.NewString(), Name: "Reliable Supplier", Email: "contact@reliable.example",
			ReliabilityScore: utils.NewFloat(95), AvgLeadTimeDays: utils.NewInt(5),
			PriceIndex: utils.NewFloat(120), IsActive: utils.NewTrue(),
		},
	}
	for _, supplier := range suppliers {
		supplier.Items = []*models.Item{brakePads, engineOil}
		if err := db.Create(supplier).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to create supplier %s: %v\n", supplier.Name, err)
			os.Exit(1)
		}
	}

	// 60 days of sales: flat-ish demand with a weekend bump for brake pads.
	for i := 0; i < 60; i++ {
		day := now.AddDate(0, 0, -i)
		qty := 10
		if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			qty = 16
		}
		records := []models.SalesRecord{
			{ItemId: brakePads.ID, SaleDate: day, QuantitySold: decimal.NewFromInt(int64(qty))},
			{ItemId: engineOil.ID, SaleDate: day, QuantitySold: decimal.NewFromInt(6)},
		}
		for _, rec := range records {
			if err := db.Create(&rec).Error; err != nil {
				fmt.Fprintf(os.Stderr, "failed to create sales record: %v\n", err)
				os.Exit(1)
			}
		}
	}

	// Purchase outcomes: enough samples for the scorer to train.
	for i := 0; i < 24; i++ {
		supplier := suppliers[i%3]
		rec := models.PurchaseRecord{
			SupplierId:        supplier.ID,
			ItemId:            brakePads.ID,
			Price:             decimal.NewFromInt(int64(80 + i*3)),
			LeadTimeDays:      2 + i%5,
			ReliabilityScore:  70 + float64(i%20),
			UrgencyLevel:      1 + i%10,
			ActualDelayDays:   float64(i % 3),
			SatisfactionScore: 60 + float64(i%30),
			OrderedAt:         now.AddDate(0, 0, -(i * 7)),
		}
		if err := db.Create(&rec).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to create purchase record: %v\n", err)
			os.Exit(1)
		}
	}

	startedRecently := now.Add(-30 * time.Minute)
	startedLongAgo := now.Add(-3 * 24 * time.Hour)
	tasks := []*models.Task{
		{
			ID: uuid.NewString(), Title: "Restock Brake Pads", Type: "purchase_order",
			Status: models.TaskStatusInProgress, AssignedTo: "staff-1",
			ExpectedDurationMinutes: 120, StartedAt: &startedLongAgo,
		},
		{
			ID: uuid.NewString(), Title: "Check Inventory", Type: "stock_count",
			Status: models.TaskStatusInProgress, AssignedTo: "staff-2",
			ExpectedDurationMinutes: 60, StartedAt: &startedRecently,
		},
		{
			ID: uuid.NewString(), Title: "Label new shelf", Type: "misc",
			Status: models.TaskStatusTodo, ExpectedDurationMinutes: 30,
		},
	}
	for _, task := range tasks {
		if err := db.Create(task).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to create task: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Println("demo data seeded")
}
