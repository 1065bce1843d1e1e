package models

import "time"

// CycleRun records one orchestrator run for audit and for the status endpoint.
type CycleRun struct {
	ID               int          `gorm:"primary_key" json:"id"`
	CycleId          string       `gorm:"size:36;uniqueIndex;not null" json:"cycle_id"`
	Trigger          CycleTrigger `gorm:"type:enum('CRON','MANUAL');not null" json:"trigger"`
	Status           CycleStatus  `gorm:"type:enum('COMPLETED','CANCELLED','FAILED');not null" json:"status"`
	ItemsProcessed   int          `gorm:"default:0" json:"items_processed"`
	ItemsFailed      int          `gorm:"default:0" json:"items_failed"`
	DecisionsEmitted int          `gorm:"default:0" json:"decisions_emitted"`
	DurationMs       int64        `gorm:"default:0" json:"duration_ms"`
	StartedAt        time.Time    `json:"started_at"`
	FinishedAt       time.Time    `json:"finished_at"`
	CreatedAt        time.Time    `gorm:"autoCreateTime" json:"created_at"`
}
