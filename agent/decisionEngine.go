package agent

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mmdatafocus/agent_backend/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// DecisionEngine fuses stock state, forecasts, supplier scores and task
// telemetry into typed, loggable decisions. It owns no state: every method
// is a pure function of its inputs plus the supplied clock, and none of them
// ever fails — a sub-evaluation lacking its inputs is skipped, not fatal.
type DecisionEngine struct {
	cfg    Config
	logger *logrus.Logger
}

func NewDecisionEngine(cfg Config, logger *logrus.Logger) *DecisionEngine {
	return &DecisionEngine{cfg: cfg, logger: logger}
}

// Evaluate runs every item-scoped check for one item. Task-scoped checks
// (bottleneck, stuck task) run here too when tasks are supplied; the
// orchestrator instead calls EvaluateTasks once per cycle so task decisions
// are not duplicated per item.
func (e *DecisionEngine) Evaluate(item *models.Item, forecast ForecastResult, ranking []SupplierScore, rankErr error, tasks []*models.Task, now time.Time) []models.DecisionLog {
	var decisions []models.DecisionLog

	if item != nil {
		lowStock, stockDecision := e.checkStockHealth(item, forecast, now)
		if stockDecision != nil {
			decisions = append(decisions, *stockDecision)
		}
		decisions = append(decisions, e.checkExpiry(item, now)...)
		if lowStock {
			if rec := e.supplierRecommendation(item, forecast, ranking, rankErr, stockDecision.Urgency, now); rec != nil {
				decisions = append(decisions, *rec)
			}
		}
	}

	if len(tasks) > 0 {
		decisions = append(decisions, e.EvaluateTasks(tasks, now)...)
	}

	return decisions
}

// EvaluateTasks runs the task-scoped checks: statistical bottleneck
// detection plus the deterministic stuck-task rule. The rule always runs;
// the detector needs a minimum sample size.
func (e *DecisionEngine) EvaluateTasks(tasks []*models.Task, now time.Time) []models.DecisionLog {
	var decisions []models.DecisionLog
	decisions = append(decisions, e.checkBottlenecks(tasks, now)...)
	decisions = append(decisions, e.checkStuckTasks(tasks, now)...)
	return decisions
}

// StockUrgency classifies an item before ranking so that the ranker can
// weight lead time appropriately. URGENT when effective stock is at or below
// the critical fraction of the reorder point.
func (e *DecisionEngine) StockUrgency(item *models.Item, now time.Time) models.UrgencyLevel {
	if item == nil {
		return models.UrgencyNormal
	}
	floor := item.ReorderPoint.Mul(decimal.NewFromFloat(e.cfg.StockCriticalFraction))
	if item.EffectiveStock(now).LessThanOrEqual(floor) {
		return models.UrgencyUrgent
	}
	return models.UrgencyNormal
}

// checkStockHealth flags an item whose effective stock sits below the
// reorder point, or whose projected stock at lead-time end goes negative
// under forecast demand.
func (e *DecisionEngine) checkStockHealth(item *models.Item, forecast ForecastResult, now time.Time) (bool, *models.DecisionLog) {
	effective := item.EffectiveStock(now)
	leadDemand := forecast.DailyDemand * float64(e.cfg.ReorderLeadTimeDays)
	projected := effective.InexactFloat64() - leadDemand

	belowReorder := effective.LessThan(item.ReorderPoint)
	if !belowReorder && projected >= 0 {
		return false, nil
	}

	urgency := e.StockUrgency(item, now)

	qtyNeeded := leadDemand - effective.InexactFloat64()
	if reorderGap := item.ReorderPoint.Sub(effective).InexactFloat64(); reorderGap > qtyNeeded {
		qtyNeeded = reorderGap
	}
	if qtyNeeded < 0 {
		qtyNeeded = 0
	}

	text := fmt.Sprintf("Low stock: %s has %s on hand (reorder point %s); forecast demand %.1f over the next %d days.",
		item.Name, effective.String(), item.ReorderPoint.String(), leadDemand, e.cfg.ReorderLeadTimeDays)
	decision := models.NewDecision(models.DecisionTypeLowStock, &item.ID, urgency, text, map[string]interface{}{
		"current_stock":    effective.String(),
		"reorder_point":    item.ReorderPoint.String(),
		"daily_demand":     forecast.DailyDemand,
		"lead_time_days":   e.cfg.ReorderLeadTimeDays,
		"lead_time_demand": leadDemand,
		"qty_needed":       math.Ceil(qtyNeeded),
		"forecast_method":  forecast.Method,
	}, now)
	return true, &decision
}

// checkExpiry warns on every positive-quantity batch expiring inside the
// warning window. Items without expiry-dated batches simply produce nothing.
func (e *DecisionEngine) checkExpiry(item *models.Item, now time.Time) []models.DecisionLog {
	windowEnd := now.AddDate(0, 0, e.cfg.ExpiryWarningDays)

	var decisions []models.DecisionLog
	for _, batch := range item.Batches {
		if batch.ExpiryDate == nil || !batch.Quantity.IsPositive() {
			continue
		}
		expiry := *batch.ExpiryDate
		if expiry.Before(now) || expiry.After(windowEnd) {
			continue
		}
		daysRemaining := int(expiry.Sub(now).Hours() / 24)
		urgency := models.UrgencyNormal
		if daysRemaining <= e.cfg.ExpiryUrgentDays {
			urgency = models.UrgencyUrgent
		}
		text := fmt.Sprintf("Expiry Alert: %s units of %s expiring on %s. Suggestion: Discount or Bundle.",
			batch.Quantity.String(), item.Name, expiry.Format("2006-01-02"))
		decisions = append(decisions, models.NewDecision(models.DecisionTypeExpiryWarning, &item.ID, urgency, text, map[string]interface{}{
			"batch_id":       batch.ID,
			"quantity":       batch.Quantity.String(),
			"expiry_date":    expiry.Format("2006-01-02"),
			"days_remaining": daysRemaining,
			"suggestion":     "Discount or Bundle",
		}, now))
	}
	return decisions
}

// checkBottlenecks runs z-score outlier detection over in-flight task
// duration ratios (elapsed over expected). Below the sample-size floor the
// detector is skipped entirely so small samples cannot produce false
// positives; the stuck-task rule still provides a floor of protection.
func (e *DecisionEngine) checkBottlenecks(tasks []*models.Task, now time.Time) []models.DecisionLog {
	type sample struct {
		task  *models.Task
		ratio float64
	}

	var samples []sample
	for _, task := range tasks {
		if task == nil || task.Status != models.TaskStatusInProgress {
			continue
		}
		if task.ExpectedDurationMinutes <= 0 || task.StartedAt == nil {
			continue
		}
		ratio := task.ElapsedMinutes(now) / float64(task.ExpectedDurationMinutes)
		samples = append(samples, sample{task: task, ratio: ratio})
	}

	if len(samples) < e.cfg.BottleneckMinSamples {
		return nil
	}

	var sum float64
	for _, s := range samples {
		sum += s.ratio
	}
	mean := sum / float64(len(samples))
	var variance float64
	for _, s := range samples {
		variance += (s.ratio - mean) * (s.ratio - mean)
	}
	stddev := math.Sqrt(variance / float64(len(samples)))
	if stddev < 1e-9 {
		return nil
	}

	var decisions []models.DecisionLog
	for _, s := range samples {
		z := (s.ratio - mean) / stddev
		if z <= e.cfg.BottleneckZThreshold {
			continue
		}
		staff := s.task.AssignedTo
		if staff == "" {
			staff = "Unassigned"
		}
		text := fmt.Sprintf("Bottleneck: Task '%s' is running %.1fx its expected duration (z=%.1f). Suggested Action: Reassign from %s.",
			s.task.Title, s.ratio, z, staff)
		decisions = append(decisions, models.NewDecision(models.DecisionTypeBottleneck, nil, models.UrgencyNormal, text, map[string]interface{}{
			"task_id":          s.task.ID,
			"task_title":       s.task.Title,
			"current_staff":    s.task.AssignedTo,
			"duration_ratio":   s.ratio,
			"z_score":          z,
			"expected_minutes": s.task.ExpectedDurationMinutes,
		}, now))
	}
	return decisions
}

// checkStuckTasks is the deterministic floor under the anomaly detector:
// an in-progress task at or past the multiplier of its expected duration is
// stuck, regardless of how much history exists. Boundary is inclusive: a
// task at exactly the multiplier is flagged.
func (e *DecisionEngine) checkStuckTasks(tasks []*models.Task, now time.Time) []models.DecisionLog {
	var decisions []models.DecisionLog
	for _, task := range tasks {
		if task == nil || task.Status != models.TaskStatusInProgress {
			continue
		}
		if task.ExpectedDurationMinutes <= 0 || task.StartedAt == nil {
			continue
		}
		elapsed := task.ElapsedMinutes(now)
		threshold := e.cfg.StuckTaskMultiplier * float64(task.ExpectedDurationMinutes)
		if elapsed < threshold {
			continue
		}
		staff := task.AssignedTo
		if staff == "" {
			staff = "Unassigned"
		}
		text := fmt.Sprintf("Task '%s' is stuck IN_PROGRESS: %.0f minutes elapsed against %d expected. Suggested Action: Reassign from %s.",
			task.Title, elapsed, task.ExpectedDurationMinutes, staff)
		decisions = append(decisions, models.NewDecision(models.DecisionTypeStuckTask, nil, models.UrgencyUrgent, text, map[string]interface{}{
			"task_id":          task.ID,
			"task_title":       task.Title,
			"current_staff":    task.AssignedTo,
			"elapsed_minutes":  elapsed,
			"expected_minutes": task.ExpectedDurationMinutes,
			"multiplier":       e.cfg.StuckTaskMultiplier,
		}, now))
	}
	return decisions
}

// supplierRecommendation attaches the replenishment choice to a LOW_STOCK
// finding. A ranking failure is surfaced as an explicit "none available"
// payload instead of a silently missing decision.
func (e *DecisionEngine) supplierRecommendation(item *models.Item, forecast ForecastResult, ranking []SupplierScore, rankErr error, urgency models.UrgencyLevel, now time.Time) *models.DecisionLog {
	if rankErr != nil {
		if errors.Is(rankErr, ErrNoSuppliersFound) {
			text := fmt.Sprintf("No suppliers found for %s. Please source a supplier.", item.Name)
			decision := models.NewDecision(models.DecisionTypeSupplierRecommendation, &item.ID, urgency, text, map[string]interface{}{
				"supplier_available": false,
				"reason":             "no eligible supplier",
			}, now)
			return &decision
		}
		e.logger.WithFields(logrus.Fields{
			"module":  "DecisionEngine",
			"item_id": item.ID,
		}).Warn("supplier ranking unavailable, skipping recommendation: " + rankErr.Error())
		return nil
	}
	if len(ranking) == 0 {
		return nil
	}

	best := ranking[0]
	qtyNeeded := math.Ceil(forecast.DailyDemand * float64(e.cfg.ReorderLeadTimeDays))
	topCandidates := ranking
	if len(topCandidates) > 3 {
		topCandidates = topCandidates[:3]
	}

	text := fmt.Sprintf("Restock Suggestion: Order %.0f units of %s from %s. Score: %.2f",
		qtyNeeded, item.Name, best.Name, best.Score)
	decision := models.NewDecision(models.DecisionTypeSupplierRecommendation, &item.ID, urgency, text, map[string]interface{}{
		"supplier_available": true,
		"supplier_id":        best.SupplierId,
		"supplier_name":      best.Name,
		"score":              best.Score,
		"score_method":       best.Method,
		"qty_needed":         qtyNeeded,
		"top_candidates":     topCandidates,
	}, now)
	return &decision
}
