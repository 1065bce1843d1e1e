package agent

import (
	"sync"
	"time"

	"github.com/mmdatafocus/agent_backend/models"
)

// ScorerArtifact is one trained supplier-scoring model: a linear regression
// of historical satisfaction against order-time features. Artifacts are
// immutable after training; the registry swaps whole artifacts atomically.
type ScorerArtifact struct {
	// Weights: intercept, price, lead time, reliability, urgency level, delay.
	Weights     [6]float64
	Version     int
	SampleCount int
	TrainedAt   time.Time
}

func (a *ScorerArtifact) predict(price, leadDays, reliability, urgencyLevel, delayDays float64) float64 {
	w := a.Weights
	return w[0] + w[1]*price + w[2]*leadDays + w[3]*reliability + w[4]*urgencyLevel + w[5]*delayDays
}

// ModelRegistry holds the process-wide trained scorer. Reads during ranking
// never race with a retrain: Refresh trains outside the lock and swaps the
// finished artifact in under it, so in-flight rankings complete against a
// consistent snapshot, old or new, never a half-updated one.
type ModelRegistry struct {
	mu       sync.RWMutex
	artifact *ScorerArtifact
	ttl      time.Duration
}

func NewModelRegistry(ttl time.Duration) *ModelRegistry {
	return &ModelRegistry{ttl: ttl}
}

// Current returns the active artifact, or nil when none has been trained.
func (r *ModelRegistry) Current() *ScorerArtifact {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.artifact
}

// Stale reports whether a retrain is due.
func (r *ModelRegistry) Stale(now time.Time) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.artifact == nil {
		return true
	}
	return now.Sub(r.artifact.TrainedAt) >= r.ttl
}

// Refresh trains a new artifact from purchase outcomes and swaps it in.
// On ErrInsufficientData or ErrModelTraining the previous artifact keeps
// serving untouched.
func (r *ModelRegistry) Refresh(samples []models.PurchaseRecord, minSamples int, now time.Time) error {
	if len(samples) < minSamples {
		return ErrInsufficientData
	}

	rows := make([][6]float64, len(samples))
	targets := make([]float64, len(samples))
	for i, s := range samples {
		rows[i] = [6]float64{
			1,
			s.Price.InexactFloat64(),
			float64(s.LeadTimeDays),
			s.ReliabilityScore,
			float64(s.UrgencyLevel),
			s.ActualDelayDays,
		}
		targets[i] = s.SatisfactionScore
	}

	weights, ok := solveLeastSquares(rows, targets)
	if !ok {
		return ErrModelTraining
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	version := 1
	if r.artifact != nil {
		version = r.artifact.Version + 1
	}
	r.artifact = &ScorerArtifact{
		Weights:     weights,
		Version:     version,
		SampleCount: len(samples),
		TrainedAt:   now,
	}
	return nil
}

// solveLeastSquares solves the normal equations (XᵀX)w = Xᵀy with Gaussian
// elimination and partial pivoting. Returns ok=false on a singular system
// (e.g. a constant feature column), which the caller reports as a training
// failure rather than producing garbage weights.
func solveLeastSquares(rows [][6]float64, targets []float64) ([6]float64, bool) {
	const dim = 6
	var a [dim][dim + 1]float64

	for r, row := range rows {
		for i := 0; i < dim; i++ {
			for j := 0; j < dim; j++ {
				a[i][j] += row[i] * row[j]
			}
			a[i][dim] += row[i] * targets[r]
		}
	}

	for col := 0; col < dim; col++ {
		pivot := col
		for r := col + 1; r < dim; r++ {
			if abs(a[r][col]) > abs(a[pivot][col]) {
				pivot = r
			}
		}
		if abs(a[pivot][col]) < 1e-9 {
			return [6]float64{}, false
		}
		a[col], a[pivot] = a[pivot], a[col]

		for r := 0; r < dim; r++ {
			if r == col {
				continue
			}
			factor := a[r][col] / a[col][col]
			for c := col; c <= dim; c++ {
				a[r][c] -= factor * a[col][c]
			}
		}
	}

	var weights [6]float64
	for i := 0; i < dim; i++ {
		weights[i] = a[i][dim] / a[i][i]
	}
	return weights, true
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
