package agent

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/mmdatafocus/agent_backend/config"
	"github.com/mmdatafocus/agent_backend/models"
	"github.com/sirupsen/logrus"
)

// Scoring weight defaults. Reliability outweighs price; URGENT shifts weight
// from price to lead time so a faster supplier beats a cheaper one.
const (
	weightReliabilityNormal = 0.45
	weightPriceNormal       = 0.30
	weightLeadNormal        = 0.25

	weightReliabilityUrgent = 0.45
	weightPriceUrgent       = 0.15
	weightLeadUrgent        = 0.40

	// Neutral defaults for missing attributes. Incomplete records are
	// scored, never excluded; neutral values rank them near the bottom
	// without unfairly zeroing them out.
	defaultReliability = 70.0
	neutralScore       = 50.0
)

// SupplierScore is derived and ephemeral, one per candidate per ranking call.
type SupplierScore struct {
	SupplierId  string                 `json:"supplier_id"`
	Name        string                 `json:"name"`
	Score       float64                `json:"score"`
	Method      models.ScoreMethod     `json:"method"`
	Rank        int                    `json:"rank"`
	Details     map[string]interface{} `json:"details"`
}

// SupplierRanker orders replenishment candidates. Suppliers with complete
// features are scored by the trained model when one is available; everything
// else takes the deterministic rule-based path.
type SupplierRanker struct {
	cfg      Config
	logger   *logrus.Logger
	registry *ModelRegistry
}

func NewSupplierRanker(cfg Config, logger *logrus.Logger, registry *ModelRegistry) *SupplierRanker {
	if registry == nil {
		registry = NewModelRegistry(cfg.ModelTTL)
	}
	return &SupplierRanker{cfg: cfg, logger: logger, registry: registry}
}

func (r *SupplierRanker) Registry() *ModelRegistry {
	return r.registry
}

// EnsureTrained refreshes the scorer artifact when stale. Training failures
// are recovered locally: the previous artifact (or the rule path) serves on.
func (r *SupplierRanker) EnsureTrained(ctx context.Context, store models.DataStore, now time.Time) {
	if !r.registry.Stale(now) {
		return
	}
	samples, err := store.FetchTrainingHistory(ctx, 500)
	if err != nil {
		config.LogWarn(r.logger, "SupplierRanker", "EnsureTrained", "fetching training history", err)
		return
	}
	if err := r.registry.Refresh(samples, r.cfg.MinTrainingSamples, now); err != nil {
		if errors.Is(err, ErrInsufficientData) {
			r.logger.WithFields(logrus.Fields{
				"module":  "SupplierRanker",
				"samples": len(samples),
			}).Debug("not enough purchase history to train scorer; rule-based ranking stays active")
			return
		}
		config.LogWarn(r.logger, "SupplierRanker", "EnsureTrained", "scorer training", err)
	}
}

// Rank scores and orders the candidate set. An empty set is an error; a
// supplier with missing attributes is not. Ties break by supplier id
// ascending so the ordering is deterministic.
func (r *SupplierRanker) Rank(ctx context.Context, itemId string, suppliers []*models.Supplier, history []models.PurchaseRecord, urgency models.UrgencyLevel) ([]SupplierScore, error) {
	if len(suppliers) == 0 {
		return nil, ErrNoSuppliersFound
	}

	artifact := r.registry.Current()
	priceLow, priceHigh := priceRange(suppliers)
	delays := avgDelayBySupplier(history)

	scores := make([]SupplierScore, 0, len(suppliers))
	for _, supplier := range suppliers {
		score := r.scoreSupplier(supplier, artifact, urgency, priceLow, priceHigh, delays)
		scores = append(scores, score)
	}

	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].SupplierId < scores[j].SupplierId
	})
	for i := range scores {
		scores[i].Rank = i + 1
	}

	r.logger.WithFields(logrus.Fields{
		"module":     "SupplierRanker",
		"item_id":    itemId,
		"candidates": len(scores),
		"urgency":    urgency,
		"top":        scores[0].SupplierId,
	}).Debug("suppliers ranked")

	return scores, nil
}

func (r *SupplierRanker) scoreSupplier(supplier *models.Supplier, artifact *ScorerArtifact, urgency models.UrgencyLevel, priceLow, priceHigh float64, delays map[string]float64) SupplierScore {
	reliability := defaultReliability
	if supplier.ReliabilityScore != nil {
		reliability = *supplier.ReliabilityScore
	}

	details := map[string]interface{}{
		"reliability": reliability,
	}
	if supplier.AvgLeadTimeDays != nil {
		details["lead_time_days"] = *supplier.AvgLeadTimeDays
	}
	if supplier.PriceIndex != nil {
		details["price"] = *supplier.PriceIndex
	}

	avgDelay, hasDelay := delays[supplier.ID]

	// Model path only when every required feature is present: reliability,
	// lead time, price and at least one historical fill observation.
	if artifact != nil && supplier.ReliabilityScore != nil && supplier.AvgLeadTimeDays != nil && supplier.PriceIndex != nil && hasDelay {
		predicted := artifact.predict(
			*supplier.PriceIndex,
			float64(*supplier.AvgLeadTimeDays),
			reliability,
			urgencyFeature(urgency),
			avgDelay,
		)
		return SupplierScore{
			SupplierId: supplier.ID,
			Name:       supplier.Name,
			Score:      clampScore(predicted),
			Method:     models.ScoreMethodModel,
			Details:    details,
		}
	}

	leadScore := neutralScore
	if supplier.AvgLeadTimeDays != nil {
		leadScore = clampScore(100 - float64(*supplier.AvgLeadTimeDays)*10)
	}
	priceScore := neutralScore
	if supplier.PriceIndex != nil && priceHigh > priceLow {
		priceScore = 100 * (priceHigh - *supplier.PriceIndex) / (priceHigh - priceLow)
	}

	wReliability, wPrice, wLead := weightReliabilityNormal, weightPriceNormal, weightLeadNormal
	if urgency == models.UrgencyUrgent {
		wReliability, wPrice, wLead = weightReliabilityUrgent, weightPriceUrgent, weightLeadUrgent
	}

	return SupplierScore{
		SupplierId: supplier.ID,
		Name:       supplier.Name,
		Score:      wReliability*reliability + wPrice*priceScore + wLead*leadScore,
		Method:     models.ScoreMethodRuleBased,
		Details:    details,
	}
}

// urgencyFeature maps the binary urgency flag onto the 1-10 urgency level
// scale the purchase history records.
func urgencyFeature(urgency models.UrgencyLevel) float64 {
	if urgency == models.UrgencyUrgent {
		return 8
	}
	return 5
}

func priceRange(suppliers []*models.Supplier) (low, high float64) {
	first := true
	for _, s := range suppliers {
		if s.PriceIndex == nil {
			continue
		}
		p := *s.PriceIndex
		if first {
			low, high = p, p
			first = false
			continue
		}
		if p < low {
			low = p
		}
		if p > high {
			high = p
		}
	}
	return low, high
}

func avgDelayBySupplier(history []models.PurchaseRecord) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, rec := range history {
		sums[rec.SupplierId] += rec.ActualDelayDays
		counts[rec.SupplierId]++
	}
	delays := make(map[string]float64, len(sums))
	for id, sum := range sums {
		delays[id] = sum / float64(counts[id])
	}
	return delays
}

func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
