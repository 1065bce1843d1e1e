package models

import (
	"encoding/json"
	"time"
)

// DecisionLog is an append-only audit record. Rows are created by the
// decision engine during a cycle, persisted in a per-item transaction by the
// orchestrator, and never mutated afterwards.
type DecisionLog struct {
	ID            int             `gorm:"primary_key" json:"id"`
	CycleId       string          `gorm:"size:36;index" json:"cycle_id"`
	RelatedItemId *string         `gorm:"size:36;index" json:"related_item_id"`
	DecisionType  DecisionType    `gorm:"size:40;not null" json:"decision_type"`
	Urgency       UrgencyLevel    `gorm:"type:enum('NORMAL','URGENT');not null;default:'NORMAL'" json:"urgency"`
	DecisionText  string          `gorm:"type:text" json:"decision_text"`
	Context       json.RawMessage `gorm:"type:json" json:"context"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// NewDecision builds a log row, marshalling the structured payload.
// Payload values must be JSON-encodable; a marshal failure degrades to an
// empty context object rather than dropping the decision.
func NewDecision(decisionType DecisionType, itemId *string, urgency UrgencyLevel, text string, payload map[string]interface{}, createdAt time.Time) DecisionLog {
	contextInByte, err := json.Marshal(payload)
	if err != nil {
		contextInByte = []byte("{}")
	}
	return DecisionLog{
		RelatedItemId: itemId,
		DecisionType:  decisionType,
		Urgency:       urgency,
		DecisionText:  text,
		Context:       contextInByte,
		CreatedAt:     createdAt,
	}
}
