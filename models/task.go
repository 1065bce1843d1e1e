package models

import "time"

// Task is an in-flight operational process step (e.g. a purchase-order
// fulfilment task). The agent reads tasks for stuck-task and bottleneck
// detection; task lifecycle management itself is owned by the task board.
type Task struct {
	ID                      string     `gorm:"primary_key;size:36" json:"id"`
	Title                   string     `gorm:"size:200;not null" json:"title"`
	Type                    string     `gorm:"size:50" json:"type"`
	Status                  TaskStatus `gorm:"type:enum('TODO','IN_PROGRESS','DONE','CANCELLED');not null;default:'TODO'" json:"status"`
	AssignedTo              string     `gorm:"size:100" json:"assigned_to"`
	ExpectedDurationMinutes int        `gorm:"default:0" json:"expected_duration_minutes"`
	StartedAt               *time.Time `json:"started_at"`
	CreatedAt               time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt               time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// ElapsedMinutes since the task was started; zero when not started.
func (t *Task) ElapsedMinutes(now time.Time) float64 {
	if t.StartedAt == nil || now.Before(*t.StartedAt) {
		return 0
	}
	return now.Sub(*t.StartedAt).Minutes()
}
