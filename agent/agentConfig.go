package agent

import (
	"time"

	"github.com/mmdatafocus/agent_backend/config"
)

// Config carries every policy knob of the decision pipeline. Values are
// configuration defaults, not invariants; ConfigFromEnv applies env overrides.
type Config struct {
	// Forecaster
	ForecastHorizonDays  int     // AGENT_FORECAST_HORIZON_DAYS
	MinHistoryDays       int     // AGENT_FORECAST_MIN_HISTORY_DAYS
	HistoryWindowDays    int     // AGENT_FORECAST_HISTORY_WINDOW_DAYS
	DefaultDailyDemand   float64 // AGENT_FORECAST_DEFAULT_DAILY

	// Supplier ranker
	MinTrainingSamples int           // AGENT_RANKER_MIN_TRAINING_SAMPLES
	ModelTTL           time.Duration // AGENT_MODEL_TTL_MINUTES

	// Decision engine
	ReorderLeadTimeDays   int     // AGENT_REORDER_LEAD_TIME_DAYS
	StockCriticalFraction float64 // AGENT_STOCK_CRITICAL_FRACTION
	ExpiryWarningDays     int     // AGENT_EXPIRY_WARNING_DAYS
	ExpiryUrgentDays      int     // AGENT_EXPIRY_URGENT_DAYS
	StuckTaskMultiplier   float64 // AGENT_STUCK_TASK_MULTIPLIER
	BottleneckMinSamples  int     // AGENT_BOTTLENECK_MIN_SAMPLES
	BottleneckZThreshold  float64 // AGENT_BOTTLENECK_Z_THRESHOLD

	// Orchestrator
	CycleWorkers  int  // AGENT_CYCLE_WORKERS
	QueueTriggers bool // AGENT_CYCLE_QUEUE
}

func DefaultConfig() Config {
	return Config{
		ForecastHorizonDays:   14,
		MinHistoryDays:        14,
		HistoryWindowDays:     90,
		DefaultDailyDemand:    1.0,
		MinTrainingSamples:    10,
		ModelTTL:              60 * time.Minute,
		ReorderLeadTimeDays:   7,
		StockCriticalFraction: 0.5,
		ExpiryWarningDays:     7,
		ExpiryUrgentDays:      3,
		StuckTaskMultiplier:   2.0,
		BottleneckMinSamples:  10,
		BottleneckZThreshold:  2.0,
		CycleWorkers:          4,
		QueueTriggers:         false,
	}
}

func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.ForecastHorizonDays = config.IntFromEnv("AGENT_FORECAST_HORIZON_DAYS", cfg.ForecastHorizonDays)
	cfg.MinHistoryDays = config.IntFromEnv("AGENT_FORECAST_MIN_HISTORY_DAYS", cfg.MinHistoryDays)
	cfg.HistoryWindowDays = config.IntFromEnv("AGENT_FORECAST_HISTORY_WINDOW_DAYS", cfg.HistoryWindowDays)
	cfg.DefaultDailyDemand = config.FloatFromEnv("AGENT_FORECAST_DEFAULT_DAILY", cfg.DefaultDailyDemand)
	cfg.MinTrainingSamples = config.IntFromEnv("AGENT_RANKER_MIN_TRAINING_SAMPLES", cfg.MinTrainingSamples)
	cfg.ModelTTL = time.Duration(config.IntFromEnv("AGENT_MODEL_TTL_MINUTES", int(cfg.ModelTTL.Minutes()))) * time.Minute
	cfg.ReorderLeadTimeDays = config.IntFromEnv("AGENT_REORDER_LEAD_TIME_DAYS", cfg.ReorderLeadTimeDays)
	cfg.StockCriticalFraction = config.FloatFromEnv("AGENT_STOCK_CRITICAL_FRACTION", cfg.StockCriticalFraction)
	cfg.ExpiryWarningDays = config.IntFromEnv("AGENT_EXPIRY_WARNING_DAYS", cfg.ExpiryWarningDays)
	cfg.ExpiryUrgentDays = config.IntFromEnv("AGENT_EXPIRY_URGENT_DAYS", cfg.ExpiryUrgentDays)
	cfg.StuckTaskMultiplier = config.FloatFromEnv("AGENT_STUCK_TASK_MULTIPLIER", cfg.StuckTaskMultiplier)
	cfg.BottleneckMinSamples = config.IntFromEnv("AGENT_BOTTLENECK_MIN_SAMPLES", cfg.BottleneckMinSamples)
	cfg.BottleneckZThreshold = config.FloatFromEnv("AGENT_BOTTLENECK_Z_THRESHOLD", cfg.BottleneckZThreshold)
	cfg.CycleWorkers = config.IntFromEnv("AGENT_CYCLE_WORKERS", cfg.CycleWorkers)
	cfg.QueueTriggers = config.AgentCycleQueueEnabled()
	return cfg
}
