package models

import "errors"

type DecisionType string

const (
	DecisionTypeLowStock               DecisionType = "LOW_STOCK"
	DecisionTypeBottleneck             DecisionType = "BOTTLENECK"
	DecisionTypeStuckTask              DecisionType = "STUCK_TASK"
	DecisionTypeExpiryWarning          DecisionType = "EXPIRY_WARNING"
	DecisionTypeSupplierRecommendation DecisionType = "SUPPLIER_RECOMMENDATION"
)

type UrgencyLevel string

const (
	UrgencyNormal UrgencyLevel = "NORMAL"
	UrgencyUrgent UrgencyLevel = "URGENT"
)

func ParseUrgencyLevel(s string) (UrgencyLevel, error) {
	switch s {
	case "", string(UrgencyNormal):
		return UrgencyNormal, nil
	case string(UrgencyUrgent):
		return UrgencyUrgent, nil
	}
	return "", errors.New("invalid urgency level")
}

type ForecastMethod string

const (
	ForecastMethodModel    ForecastMethod = "MODEL"
	ForecastMethodFallback ForecastMethod = "FALLBACK"
)

type ScoreMethod string

const (
	ScoreMethodModel     ScoreMethod = "MODEL"
	ScoreMethodRuleBased ScoreMethod = "RULE_BASED"
)

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "TODO"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusDone       TaskStatus = "DONE"
	TaskStatusCancelled  TaskStatus = "CANCELLED"
)

type CycleTrigger string

const (
	CycleTriggerCron   CycleTrigger = "CRON"
	CycleTriggerManual CycleTrigger = "MANUAL"
)

type CycleStatus string

const (
	CycleStatusCompleted CycleStatus = "COMPLETED"
	CycleStatusCancelled CycleStatus = "CANCELLED"
	CycleStatusFailed    CycleStatus = "FAILED"
)
