package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/mmdatafocus/agent_backend/config"
	"github.com/mmdatafocus/agent_backend/models"
	"github.com/sirupsen/logrus"
)

const cycleLockKey = "agent:cycle:lock"
const lastCycleKey = "agent:cycle:last"

// CycleSummary always returns, never raises, for partial failures; only a
// total infrastructure failure (snapshot unavailable) surfaces an error.
type CycleSummary struct {
	CycleId          string              `json:"cycle_id"`
	Trigger          models.CycleTrigger `json:"trigger"`
	Status           models.CycleStatus  `json:"status"`
	ItemsProcessed   int                 `json:"items_processed"`
	ItemsFailed      int                 `json:"items_failed"`
	DecisionsEmitted int                 `json:"decisions_emitted"`
	DurationMs       int64               `json:"duration_ms"`
	StartedAt        time.Time           `json:"started_at"`
	FinishedAt       time.Time           `json:"finished_at"`
	FailedItemIds    []string            `json:"failed_item_ids,omitempty"`
}

// CycleOrchestrator drives the decision pipeline: snapshot, per-item
// forecast/rank/evaluate, persist. Scheduled and manual triggers converge on
// RunCycle behind a single-flight guard; per-item work inside a cycle runs
// concurrently since items share no mutable state until persistence.
type CycleOrchestrator struct {
	store      models.DataStore
	forecaster *Forecaster
	ranker     *SupplierRanker
	engine     *DecisionEngine
	logger     *logrus.Logger
	cfg        Config

	runMu  sync.Mutex
	lastMu sync.RWMutex
	last   *CycleSummary
}

func NewCycleOrchestrator(store models.DataStore, forecaster *Forecaster, ranker *SupplierRanker, engine *DecisionEngine, logger *logrus.Logger, cfg Config) *CycleOrchestrator {
	return &CycleOrchestrator{
		store:      store,
		forecaster: forecaster,
		ranker:     ranker,
		engine:     engine,
		logger:     logger,
		cfg:        cfg,
	}
}

// LastSummary returns the most recent cycle summary held in memory, nil when
// no cycle has run in this process yet.
func (o *CycleOrchestrator) LastSummary() *CycleSummary {
	o.lastMu.RLock()
	defer o.lastMu.RUnlock()
	return o.last
}

// RunCycle executes one decision cycle over the given scope (nil = all
// active items). At most one cycle runs at a time: a concurrent trigger
// either queues behind the running cycle or fails with ErrCycleRunning,
// depending on the configured policy.
func (o *CycleOrchestrator) RunCycle(ctx context.Context, trigger models.CycleTrigger, scope []string) (CycleSummary, error) {
	if o.cfg.QueueTriggers {
		o.runMu.Lock()
	} else if !o.runMu.TryLock() {
		return CycleSummary{}, ErrCycleRunning
	}
	defer o.runMu.Unlock()

	// Cross-instance exclusion when Redis is configured; the in-process
	// mutex above stays authoritative for a single instance.
	if locker := config.GetRedisLock(); locker != nil {
		lock, err := locker.Obtain(ctx, cycleLockKey, 10*time.Minute, nil)
		if err == redislock.ErrNotObtained {
			return CycleSummary{}, ErrCycleRunning
		}
		if err == nil {
			defer lock.Release(context.WithoutCancel(ctx))
		} else {
			config.LogWarn(o.logger, "CycleOrchestrator", "RunCycle", "redis cycle lock", err)
		}
	}

	started := time.Now()
	now := started.UTC()
	summary := CycleSummary{
		CycleId:   uuid.NewString(),
		Trigger:   trigger,
		StartedAt: now,
	}

	o.logger.WithFields(logrus.Fields{
		"module":   "CycleOrchestrator",
		"cycle_id": summary.CycleId,
		"trigger":  trigger,
		"scope":    len(scope),
	}).Info("cycle started")

	// Snapshot taken once at cycle start for consistency.
	items, err := o.store.FetchItems(ctx, scope)
	if err != nil {
		config.LogError(o.logger, "CycleOrchestrator", "RunCycle", "fetching item snapshot", nil, err)
		summary.Status = models.CycleStatusFailed
		o.finish(ctx, &summary, started)
		return summary, fmt.Errorf("fetching item snapshot: %w", err)
	}

	tasks, err := o.store.FetchActiveTasks(ctx)
	if err != nil {
		// Task telemetry is optional input: skip the task checks this
		// cycle rather than aborting item evaluation.
		config.LogWarn(o.logger, "CycleOrchestrator", "RunCycle", "fetching active tasks; task checks skipped this cycle", err)
		tasks = nil
	}

	o.ranker.EnsureTrained(ctx, o.store, now)

	workers := o.cfg.CycleWorkers
	if workers < 1 {
		workers = 1
	}

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		cancelled bool
	)
	jobs := make(chan *models.Item)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				emitted, itemErr := o.processItem(ctx, summary.CycleId, item, now)
				mu.Lock()
				if itemErr != nil {
					summary.ItemsFailed++
					summary.FailedItemIds = append(summary.FailedItemIds, item.ID)
					config.LogError(o.logger, "CycleOrchestrator", "processItem", "item "+item.ID, nil, itemErr)
				} else {
					summary.ItemsProcessed++
					summary.DecisionsEmitted += emitted
				}
				mu.Unlock()
			}
		}()
	}

dispatch:
	for _, item := range items {
		select {
		case <-ctx.Done():
			// In-flight items complete; nothing new starts.
			cancelled = true
			break dispatch
		case jobs <- item:
		}
	}
	close(jobs)
	wg.Wait()

	// Task-scoped checks run once per cycle, not per item.
	if len(tasks) > 0 && !cancelled {
		taskDecisions := o.engine.EvaluateTasks(tasks, now)
		if len(taskDecisions) > 0 {
			if err := o.store.AppendDecisions(context.WithoutCancel(ctx), summary.CycleId, taskDecisions); err != nil {
				config.LogError(o.logger, "CycleOrchestrator", "RunCycle", "persisting task decisions", nil, err)
			} else {
				summary.DecisionsEmitted += len(taskDecisions)
			}
		}
	}

	if cancelled || ctx.Err() != nil {
		summary.Status = models.CycleStatusCancelled
	} else {
		summary.Status = models.CycleStatusCompleted
	}
	o.finish(ctx, &summary, started)

	o.logger.WithFields(logrus.Fields{
		"module":      "CycleOrchestrator",
		"cycle_id":    summary.CycleId,
		"status":      summary.Status,
		"processed":   summary.ItemsProcessed,
		"failed":      summary.ItemsFailed,
		"decisions":   summary.DecisionsEmitted,
		"duration_ms": summary.DurationMs,
	}).Info("cycle finished")

	return summary, nil
}

// processItem runs the full pipeline for one item. Failures here are
// isolated: a panic or error for one item never reaches its siblings.
func (o *CycleOrchestrator) processItem(ctx context.Context, cycleId string, item *models.Item, now time.Time) (emitted int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic evaluating item %s: %v", item.ID, r)
		}
	}()

	since := now.AddDate(0, 0, -o.cfg.HistoryWindowDays)
	history, err := o.store.FetchSalesHistory(ctx, item.ID, since)
	if err != nil {
		return 0, fmt.Errorf("fetching sales history: %w", err)
	}

	forecast, err := o.forecaster.Predict(ctx, item.ID, history, o.cfg.ForecastHorizonDays)
	if err != nil {
		return 0, fmt.Errorf("forecasting: %w", err)
	}

	urgency := o.engine.StockUrgency(item, now)

	suppliers, err := o.store.FetchSuppliers(ctx, item.ID)
	if err != nil {
		return 0, fmt.Errorf("fetching suppliers: %w", err)
	}

	purchases, err := o.store.FetchPurchaseHistory(ctx, item.ID)
	if err != nil {
		// Purchase history only refines ranking features; rank without it.
		config.LogWarn(o.logger, "CycleOrchestrator", "processItem", "fetching purchase history for item "+item.ID, err)
		purchases = nil
	}

	ranking, rankErr := o.ranker.Rank(ctx, item.ID, suppliers, purchases, urgency)

	decisions := o.engine.Evaluate(item, forecast, ranking, rankErr, nil, now)

	// Persistence is atomic per item: all of this item's decisions or none.
	if err := o.store.AppendDecisions(context.WithoutCancel(ctx), cycleId, decisions); err != nil {
		return 0, &PersistenceError{ItemId: item.ID, Err: err}
	}
	return len(decisions), nil
}

func (o *CycleOrchestrator) finish(ctx context.Context, summary *CycleSummary, started time.Time) {
	summary.FinishedAt = time.Now().UTC()
	summary.DurationMs = time.Since(started).Milliseconds()

	o.lastMu.Lock()
	o.last = summary
	o.lastMu.Unlock()

	persistCtx := context.WithoutCancel(ctx)
	run := &models.CycleRun{
		CycleId:          summary.CycleId,
		Trigger:          summary.Trigger,
		Status:           summary.Status,
		ItemsProcessed:   summary.ItemsProcessed,
		ItemsFailed:      summary.ItemsFailed,
		DecisionsEmitted: summary.DecisionsEmitted,
		DurationMs:       summary.DurationMs,
		StartedAt:        summary.StartedAt,
		FinishedAt:       summary.FinishedAt,
	}
	if err := o.store.SaveCycleRun(persistCtx, run); err != nil {
		config.LogError(o.logger, "CycleOrchestrator", "finish", "persisting cycle run", nil, err)
	}
	if err := config.SetRedisObject(lastCycleKey, summary, 24*time.Hour); err != nil {
		config.LogWarn(o.logger, "CycleOrchestrator", "finish", "caching cycle summary", err)
	}
}
