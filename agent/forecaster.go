package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmdatafocus/agent_backend/config"
	"github.com/mmdatafocus/agent_backend/models"
	"github.com/sirupsen/logrus"
)

// ForecastResult is created fresh per cycle and never persisted; only the
// decisions derived from it are.
type ForecastResult struct {
	ItemId          string                `json:"item_id"`
	PredictedDemand float64               `json:"predicted_demand"`
	DailyDemand     float64               `json:"daily_demand"`
	Method          models.ForecastMethod `json:"method"`
	HorizonDays     int                   `json:"horizon_days"`
	HistoryDays     int                   `json:"history_days"`
	GeneratedAt     time.Time             `json:"generated_at"`
}

// Forecaster projects per-item demand over a horizon. The primary path fits
// a linear trend plus a weekly seasonal component; when history is too sparse
// or fitting fails, a moving-average fallback takes over. The fallback never
// fails: it is the last line of defense.
type Forecaster struct {
	cfg    Config
	logger *logrus.Logger
}

func NewForecaster(cfg Config, logger *logrus.Logger) *Forecaster {
	return &Forecaster{cfg: cfg, logger: logger}
}

// Predict requires history sorted ascending by sale date. Days without a
// record inside the observed range count as zero-demand observations.
// The returned demand is never negative on either path.
func (f *Forecaster) Predict(ctx context.Context, itemId string, history []models.SalesRecord, horizonDays int) (ForecastResult, error) {
	if horizonDays <= 0 {
		return ForecastResult{}, fmt.Errorf("horizonDays must be positive, got %d", horizonDays)
	}

	series := buildDailySeries(history)
	result := ForecastResult{
		ItemId:      itemId,
		HorizonDays: horizonDays,
		HistoryDays: series.distinctDays,
		GeneratedAt: time.Now().UTC(),
	}

	predicted, err := f.tryModel(series, horizonDays)
	if err != nil {
		if !errors.Is(err, ErrInsufficientData) {
			config.LogWarn(f.logger, "Forecaster", "Predict", "model path failed for item "+itemId+", using fallback", err)
		}
		result.PredictedDemand = f.fallback(series, horizonDays)
		result.Method = models.ForecastMethodFallback
	} else {
		result.PredictedDemand = predicted
		result.Method = models.ForecastMethodModel
	}

	if result.PredictedDemand < 0 {
		result.PredictedDemand = 0
	}
	result.DailyDemand = result.PredictedDemand / float64(horizonDays)

	f.logger.WithFields(logrus.Fields{
		"module":  "Forecaster",
		"item_id": itemId,
		"method":  result.Method,
		"demand":  result.PredictedDemand,
		"horizon": horizonDays,
	}).Debug("demand predicted")

	return result, nil
}

// dailySeries is the gap-filled observation vector: values[0] is demand on
// firstDate, values[i] on firstDate+i days. distinctDays counts only days
// that actually had a sales record.
type dailySeries struct {
	firstDate    time.Time
	values       []float64
	distinctDays int
}

func buildDailySeries(history []models.SalesRecord) dailySeries {
	if len(history) == 0 {
		return dailySeries{}
	}

	totals := make(map[string]float64, len(history))
	first := truncateToDay(history[0].SaleDate)
	last := first
	for _, rec := range history {
		day := truncateToDay(rec.SaleDate)
		if day.Before(first) {
			first = day
		}
		if day.After(last) {
			last = day
		}
		totals[day.Format("2006-01-02")] += rec.QuantitySold.InexactFloat64()
	}

	span := int(last.Sub(first).Hours()/24) + 1
	values := make([]float64, span)
	for i := 0; i < span; i++ {
		day := first.AddDate(0, 0, i)
		values[i] = totals[day.Format("2006-01-02")]
	}

	return dailySeries{
		firstDate:    first,
		values:       values,
		distinctDays: len(totals),
	}
}

func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// tryModel fits trend + weekly seasonality and projects over the horizon.
// Returns ErrInsufficientData when the series cannot support a fit;
// ErrModelTraining when fitting degenerates.
func (f *Forecaster) tryModel(series dailySeries, horizonDays int) (float64, error) {
	if series.distinctDays < f.cfg.MinHistoryDays {
		return 0, ErrInsufficientData
	}
	n := len(series.values)
	if n < f.cfg.MinHistoryDays {
		return 0, ErrInsufficientData
	}

	intercept, slope, ok := fitLinearTrend(series.values)
	if !ok {
		return 0, ErrModelTraining
	}

	// Weekly component needs at least two observations of every weekday.
	var seasonal map[time.Weekday]float64
	if n >= 14 {
		seasonal = weekdayResiduals(series, intercept, slope)
	}

	var total float64
	for j := 1; j <= horizonDays; j++ {
		t := float64(n - 1 + j)
		v := intercept + slope*t
		if seasonal != nil {
			day := series.firstDate.AddDate(0, 0, n-1+j)
			v += seasonal[day.Weekday()]
		}
		if v < 0 {
			v = 0
		}
		total += v
	}
	return total, nil
}

// fallback is the moving-average path. It cannot fail: an empty series
// degrades to the configured minimal daily default.
func (f *Forecaster) fallback(series dailySeries, horizonDays int) float64 {
	if len(series.values) == 0 {
		return f.cfg.DefaultDailyDemand * float64(horizonDays)
	}
	var total float64
	for _, v := range series.values {
		total += v
	}
	daily := total / float64(len(series.values))
	predicted := daily * float64(horizonDays)
	if predicted < 0 {
		return 0
	}
	return predicted
}

// fitLinearTrend runs ordinary least squares of value against day index.
func fitLinearTrend(values []float64) (intercept, slope float64, ok bool) {
	n := float64(len(values))
	if len(values) < 2 {
		return 0, 0, false
	}
	var sumT, sumY, sumTT, sumTY float64
	for i, y := range values {
		t := float64(i)
		sumT += t
		sumY += y
		sumTT += t * t
		sumTY += t * y
	}
	denom := n*sumTT - sumT*sumT
	if denom == 0 {
		return 0, 0, false
	}
	slope = (n*sumTY - sumT*sumY) / denom
	intercept = (sumY - slope*sumT) / n
	return intercept, slope, true
}

// weekdayResiduals computes the mean detrended residual per weekday.
// A flat series yields zero components, so seasonality is never fabricated.
func weekdayResiduals(series dailySeries, intercept, slope float64) map[time.Weekday]float64 {
	sums := make(map[time.Weekday]float64, 7)
	counts := make(map[time.Weekday]int, 7)
	for i, y := range series.values {
		day := series.firstDate.AddDate(0, 0, i).Weekday()
		sums[day] += y - (intercept + slope*float64(i))
		counts[day]++
	}
	residuals := make(map[time.Weekday]float64, 7)
	for day, sum := range sums {
		residuals[day] = sum / float64(counts[day])
	}
	return residuals
}
