package agent

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/mmdatafocus/agent_backend/models"
	"github.com/shopspring/decimal"
)

func newTestEngine() *DecisionEngine {
	return NewDecisionEngine(DefaultConfig(), newTestLogger())
}

func testItem(stock int64, reorderPoint int64) *models.Item {
	item := &models.Item{
		ID:           "item-1",
		Name:         "Brake Pads",
		ReorderPoint: decimal.NewFromInt(reorderPoint),
	}
	if stock > 0 {
		item.Batches = []*models.ItemBatch{
			{ID: "batch-1", ItemId: item.ID, Quantity: decimal.NewFromInt(stock)},
		}
	}
	return item
}

func decisionsOfType(decisions []models.DecisionLog, decisionType models.DecisionType) []models.DecisionLog {
	var out []models.DecisionLog
	for _, d := range decisions {
		if d.DecisionType == decisionType {
			out = append(out, d)
		}
	}
	return out
}

func decisionContext(t *testing.T, d models.DecisionLog) map[string]interface{} {
	t.Helper()
	var payload map[string]interface{}
	if err := json.Unmarshal(d.Context, &payload); err != nil {
		t.Fatalf("decision context is not valid JSON: %v", err)
	}
	return payload
}

func TestStockUrgencyCriticalFraction(t *testing.T) {
	e := newTestEngine()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// At exactly half the reorder point the boundary is inclusive.
	if got := e.StockUrgency(testItem(5, 10), now); got != models.UrgencyUrgent {
		t.Errorf("stock 5 of reorder 10 should be URGENT, got %s", got)
	}
	if got := e.StockUrgency(testItem(6, 10), now); got != models.UrgencyNormal {
		t.Errorf("stock 6 of reorder 10 should be NORMAL, got %s", got)
	}
	if got := e.StockUrgency(nil, now); got != models.UrgencyNormal {
		t.Errorf("nil item should default to NORMAL, got %s", got)
	}
}

func TestEvaluateHealthyItemEmitsNothing(t *testing.T) {
	e := newTestEngine()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	forecast := ForecastResult{ItemId: "item-1", PredictedDemand: 14, DailyDemand: 1, HorizonDays: 14, Method: models.ForecastMethodModel}

	decisions := e.Evaluate(testItem(50, 10), forecast, nil, nil, nil, now)
	if len(decisions) != 0 {
		t.Errorf("healthy item should emit no decisions, got %d: %+v", len(decisions), decisions)
	}
}

func TestEvaluateLowStockWithRecommendation(t *testing.T) {
	e := newTestEngine()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	item := testItem(5, 10)
	forecast := ForecastResult{ItemId: item.ID, PredictedDemand: 28, DailyDemand: 2, HorizonDays: 14, Method: models.ForecastMethodModel}
	ranking := []SupplierScore{
		{SupplierId: "supplier-1", Name: "Fast Supplier", Score: 75.5, Method: models.ScoreMethodRuleBased, Rank: 1},
		{SupplierId: "supplier-2", Name: "Cheap Supplier", Score: 69, Method: models.ScoreMethodRuleBased, Rank: 2},
	}

	decisions := e.Evaluate(item, forecast, ranking, nil, nil, now)

	lowStock := decisionsOfType(decisions, models.DecisionTypeLowStock)
	if len(lowStock) != 1 {
		t.Fatalf("expected 1 LOW_STOCK decision, got %d", len(lowStock))
	}
	if lowStock[0].Urgency != models.UrgencyUrgent {
		t.Errorf("stock at the critical fraction should flag URGENT, got %s", lowStock[0].Urgency)
	}
	if lowStock[0].RelatedItemId == nil || *lowStock[0].RelatedItemId != item.ID {
		t.Errorf("LOW_STOCK decision not linked to item: %+v", lowStock[0].RelatedItemId)
	}
	// 2/day over a 7-day lead = 14 needed, 5 on hand -> 9 to order.
	if got := decisionContext(t, lowStock[0])["qty_needed"]; got != float64(9) {
		t.Errorf("expected qty_needed 9, got %v", got)
	}

	recs := decisionsOfType(decisions, models.DecisionTypeSupplierRecommendation)
	if len(recs) != 1 {
		t.Fatalf("expected 1 SUPPLIER_RECOMMENDATION, got %d", len(recs))
	}
	if recs[0].Urgency != models.UrgencyUrgent {
		t.Errorf("recommendation should inherit stock urgency, got %s", recs[0].Urgency)
	}
	payload := decisionContext(t, recs[0])
	if payload["supplier_id"] != "supplier-1" {
		t.Errorf("expected top-ranked supplier-1, got %v", payload["supplier_id"])
	}
	if payload["supplier_available"] != true {
		t.Errorf("expected supplier_available true, got %v", payload["supplier_available"])
	}
}

func TestEvaluateLowStockWithoutSuppliers(t *testing.T) {
	e := newTestEngine()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	forecast := ForecastResult{ItemId: "item-1", PredictedDemand: 28, DailyDemand: 2, HorizonDays: 14, Method: models.ForecastMethodFallback}

	decisions := e.Evaluate(testItem(5, 10), forecast, nil, ErrNoSuppliersFound, nil, now)

	recs := decisionsOfType(decisions, models.DecisionTypeSupplierRecommendation)
	if len(recs) != 1 {
		t.Fatalf("expected an explicit no-supplier decision, got %d recommendations", len(recs))
	}
	if got := decisionContext(t, recs[0])["supplier_available"]; got != false {
		t.Errorf("expected supplier_available false, got %v", got)
	}
}

func TestEvaluateToleratesMissingOptionalData(t *testing.T) {
	e := newTestEngine()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Nil item, zero forecast, no ranking, no tasks: nothing to say, no panic.
	if decisions := e.Evaluate(nil, ForecastResult{}, nil, nil, nil, now); len(decisions) != 0 {
		t.Errorf("expected no decisions for nil item, got %d", len(decisions))
	}

	// Item with no batches and zero demand: low stock (0 < reorder), but the
	// engine must survive nil ranking and emit a well-formed decision.
	decisions := e.Evaluate(testItem(0, 10), ForecastResult{}, nil, nil, nil, now)
	for _, d := range decisions {
		if len(d.Context) == 0 {
			t.Errorf("decision %s has empty context", d.DecisionType)
		}
	}
}

func TestCheckExpiryWindows(t *testing.T) {
	e := newTestEngine()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	in2Days := now.Add(48 * time.Hour)
	in5Days := now.Add(5 * 24 * time.Hour)
	in30Days := now.AddDate(0, 0, 30)
	yesterday := now.Add(-24 * time.Hour)

	item := &models.Item{
		ID:           "item-1",
		Name:         "Engine Oil",
		ReorderPoint: decimal.NewFromInt(1),
		Batches: []*models.ItemBatch{
			{ID: "batch-urgent", Quantity: decimal.NewFromInt(20), ExpiryDate: &in2Days},
			{ID: "batch-normal", Quantity: decimal.NewFromInt(30), ExpiryDate: &in5Days},
			{ID: "batch-far", Quantity: decimal.NewFromInt(40), ExpiryDate: &in30Days},
			{ID: "batch-expired", Quantity: decimal.NewFromInt(10), ExpiryDate: &yesterday},
			{ID: "batch-empty", Quantity: decimal.Zero, ExpiryDate: &in2Days},
			{ID: "batch-no-expiry", Quantity: decimal.NewFromInt(50)},
		},
	}

	warnings := e.checkExpiry(item, now)
	if len(warnings) != 2 {
		t.Fatalf("expected 2 expiry warnings, got %d: %+v", len(warnings), warnings)
	}

	byBatch := make(map[string]models.DecisionLog, len(warnings))
	for _, w := range warnings {
		byBatch[decisionContext(t, w)["batch_id"].(string)] = w
	}
	urgent, ok := byBatch["batch-urgent"]
	if !ok {
		t.Fatal("batch expiring in 2 days not flagged")
	}
	if urgent.Urgency != models.UrgencyUrgent {
		t.Errorf("2-day expiry should be URGENT, got %s", urgent.Urgency)
	}
	normal, ok := byBatch["batch-normal"]
	if !ok {
		t.Fatal("batch expiring in 5 days not flagged")
	}
	if normal.Urgency != models.UrgencyNormal {
		t.Errorf("5-day expiry should be NORMAL, got %s", normal.Urgency)
	}
}

func inProgressTask(id string, expectedMinutes int, startedAgo time.Duration, now time.Time) *models.Task {
	started := now.Add(-startedAgo)
	return &models.Task{
		ID:                      id,
		Title:                   "Task " + id,
		Status:                  models.TaskStatusInProgress,
		AssignedTo:              "staff-1",
		ExpectedDurationMinutes: expectedMinutes,
		StartedAt:               &started,
	}
}

func TestStuckTaskBoundaryIsInclusive(t *testing.T) {
	e := newTestEngine()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	atBoundary := inProgressTask("task-boundary", 60, 120*time.Minute, now)
	justUnder := inProgressTask("task-under", 60, 119*time.Minute, now)
	notStarted := &models.Task{ID: "task-idle", Title: "Idle", Status: models.TaskStatusTodo, ExpectedDurationMinutes: 60}

	decisions := e.EvaluateTasks([]*models.Task{atBoundary, justUnder, notStarted}, now)
	stuck := decisionsOfType(decisions, models.DecisionTypeStuckTask)
	if len(stuck) != 1 {
		t.Fatalf("expected exactly 1 stuck task, got %d", len(stuck))
	}
	if stuck[0].Urgency != models.UrgencyUrgent {
		t.Errorf("stuck tasks are URGENT, got %s", stuck[0].Urgency)
	}
	if got := decisionContext(t, stuck[0])["task_id"]; got != "task-boundary" {
		t.Errorf("expected task at exactly 2x expected to be flagged, got %v", got)
	}
}

func TestBottleneckDetectionFlagsOutliers(t *testing.T) {
	e := newTestEngine()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	var tasks []*models.Task
	for i := 0; i < 10; i++ {
		tasks = append(tasks, inProgressTask(string(rune('a'+i)), 30, 30*time.Minute, now))
	}
	tasks = append(tasks,
		inProgressTask("task-slow-1", 30, 270*time.Minute, now),
		inProgressTask("task-slow-2", 30, 270*time.Minute, now),
	)

	bottlenecks := decisionsOfType(e.EvaluateTasks(tasks, now), models.DecisionTypeBottleneck)
	if len(bottlenecks) != 2 {
		t.Fatalf("expected the 2 outliers flagged, got %d", len(bottlenecks))
	}
	for _, b := range bottlenecks {
		id := decisionContext(t, b)["task_id"]
		if id != "task-slow-1" && id != "task-slow-2" {
			t.Errorf("non-outlier task flagged as bottleneck: %v", id)
		}
	}
}

func TestBottleneckSkippedBelowSampleFloor(t *testing.T) {
	e := newTestEngine()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tasks := []*models.Task{
		inProgressTask("task-1", 30, 30*time.Minute, now),
		inProgressTask("task-2", 30, 30*time.Minute, now),
		inProgressTask("task-3", 30, 30*time.Minute, now),
		inProgressTask("task-slow", 30, 300*time.Minute, now),
	}

	decisions := e.EvaluateTasks(tasks, now)
	if got := decisionsOfType(decisions, models.DecisionTypeBottleneck); len(got) != 0 {
		t.Errorf("detector must stay silent below the sample floor, got %d bottlenecks", len(got))
	}
	// The deterministic rule still covers the obvious case.
	if got := decisionsOfType(decisions, models.DecisionTypeStuckTask); len(got) != 1 {
		t.Errorf("stuck-task rule should still fire, got %d", len(got))
	}
}

func TestBottleneckSkippedOnUniformRatios(t *testing.T) {
	e := newTestEngine()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	var tasks []*models.Task
	for i := 0; i < 12; i++ {
		tasks = append(tasks, inProgressTask(string(rune('a'+i)), 30, 30*time.Minute, now))
	}
	if got := e.EvaluateTasks(tasks, now); len(got) != 0 {
		t.Errorf("uniform durations must produce no decisions, got %d", len(got))
	}
}
