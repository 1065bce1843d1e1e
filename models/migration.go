package models

import (
	"log"

	"github.com/mmdatafocus/agent_backend/config"
)

func MigrateTable() {
	db := config.GetDB()
	err := db.AutoMigrate(
		&Item{},
		&ItemBatch{},
		&SalesRecord{},
		&Supplier{},
		&PurchaseRecord{},
		&Task{},
		&DecisionLog{},
		&CycleRun{},
	)
	if err != nil {
		log.Printf("auto migration failed: %v", err)
		return
	}
	log.Println("auto migration completed")
}
