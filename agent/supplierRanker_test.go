package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mmdatafocus/agent_backend/models"
)

func newTestRanker() *SupplierRanker {
	return NewSupplierRanker(DefaultConfig(), newTestLogger(), nil)
}

func TestRankEmptyCandidateSet(t *testing.T) {
	r := newTestRanker()
	if _, err := r.Rank(context.Background(), "item-1", nil, nil, models.UrgencyNormal); !errors.Is(err, ErrNoSuppliersFound) {
		t.Fatalf("expected ErrNoSuppliersFound, got %v", err)
	}
}

func TestRankAssignsContiguousRanks(t *testing.T) {
	r := newTestRanker()
	scores, err := r.Rank(context.Background(), "item-1", sampleSuppliers(), nil, models.UrgencyNormal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scores) != 3 {
		t.Fatalf("expected 3 scores, got %d", len(scores))
	}
	for i, s := range scores {
		if s.Rank != i+1 {
			t.Errorf("expected rank %d at position %d, got %d", i+1, i, s.Rank)
		}
		if s.Score < 0 || s.Score > 100 {
			t.Errorf("score for %s outside [0,100]: %.2f", s.SupplierId, s.Score)
		}
	}
}

func TestRankUrgencyReordersWithoutChangingSet(t *testing.T) {
	r := newTestRanker()
	suppliers := sampleSuppliers()

	normal, err := r.Rank(context.Background(), "item-1", suppliers, nil, models.UrgencyNormal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	urgent, err := r.Rank(context.Background(), "item-1", suppliers, nil, models.UrgencyUrgent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	normalIds := make(map[string]bool, len(normal))
	for _, s := range normal {
		normalIds[s.SupplierId] = true
	}
	for _, s := range urgent {
		if !normalIds[s.SupplierId] {
			t.Errorf("urgency changed candidate membership: %s only appears in URGENT", s.SupplierId)
		}
	}
	if len(normal) != len(urgent) {
		t.Fatalf("urgency changed candidate count: %d vs %d", len(normal), len(urgent))
	}

	position := func(scores []SupplierScore, name string) int {
		for _, s := range scores {
			if s.Name == name {
				return s.Rank
			}
		}
		t.Fatalf("supplier %q missing from ranking", name)
		return 0
	}
	// NORMAL weighting prefers the cheaper supplier over the slower-but-
	// steadier one; URGENT shifts weight onto lead time and flips them.
	if position(normal, "Cheap Supplier") >= position(normal, "Reliable Supplier") {
		t.Errorf("NORMAL should rank Cheap above Reliable: %+v", normal)
	}
	if position(urgent, "Reliable Supplier") >= position(urgent, "Cheap Supplier") {
		t.Errorf("URGENT should rank Reliable above Cheap: %+v", urgent)
	}
}

func TestRankScoresSuppliersWithMissingAttributes(t *testing.T) {
	r := newTestRanker()
	suppliers := []*models.Supplier{
		{
			ID:               "supplier-full",
			Name:             "Complete",
			ReliabilityScore: floatPtr(90),
			AvgLeadTimeDays:  intPtr(2),
			PriceIndex:       floatPtr(100),
		},
		{
			ID:   "supplier-bare",
			Name: "Unknown Quantities",
		},
	}

	scores, err := r.Rank(context.Background(), "item-1", suppliers, nil, models.UrgencyNormal)
	if err != nil {
		t.Fatalf("missing attributes must not fail ranking: %v", err)
	}
	if len(scores) != 2 {
		t.Fatalf("expected both suppliers scored, got %d", len(scores))
	}

	var bare SupplierScore
	for _, s := range scores {
		if s.SupplierId == "supplier-bare" {
			bare = s
		}
	}
	if bare.SupplierId == "" {
		t.Fatal("supplier with missing attributes was dropped from the ranking")
	}
	if bare.Score <= 0 {
		t.Errorf("neutral defaults should keep the score positive, got %.2f", bare.Score)
	}
	if got := bare.Details["reliability"]; got != defaultReliability {
		t.Errorf("expected default reliability %v in details, got %v", defaultReliability, got)
	}
	if scores[0].SupplierId != "supplier-full" {
		t.Errorf("complete supplier should outrank defaults-only one: %+v", scores)
	}
}

func TestRankBreaksTiesBySupplierId(t *testing.T) {
	r := newTestRanker()
	suppliers := []*models.Supplier{
		{ID: "supplier-b", Name: "B", ReliabilityScore: floatPtr(80), AvgLeadTimeDays: intPtr(4), PriceIndex: floatPtr(90)},
		{ID: "supplier-a", Name: "A", ReliabilityScore: floatPtr(80), AvgLeadTimeDays: intPtr(4), PriceIndex: floatPtr(90)},
	}
	scores, err := r.Rank(context.Background(), "item-1", suppliers, nil, models.UrgencyNormal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scores[0].SupplierId != "supplier-a" || scores[1].SupplierId != "supplier-b" {
		t.Errorf("equal scores must order by id ascending, got %s then %s", scores[0].SupplierId, scores[1].SupplierId)
	}
}

func TestRegistryRefreshRequiresMinimumSamples(t *testing.T) {
	registry := NewModelRegistry(time.Hour)
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	samples := trainingSamples(now)[:5]

	if err := registry.Refresh(samples, 10, now); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
	if registry.Current() != nil {
		t.Error("failed refresh must not install an artifact")
	}
	if !registry.Stale(now) {
		t.Error("registry without an artifact must report stale")
	}
}

func TestRegistryTrainsAndSwapsVersions(t *testing.T) {
	registry := NewModelRegistry(time.Hour)
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	samples := trainingSamples(now)

	if err := registry.Refresh(samples, 10, now); err != nil {
		t.Fatalf("training failed: %v", err)
	}
	artifact := registry.Current()
	if artifact == nil {
		t.Fatal("expected an artifact after refresh")
	}
	if artifact.Version != 1 || artifact.SampleCount != len(samples) {
		t.Errorf("expected version 1 with %d samples, got version %d with %d", len(samples), artifact.Version, artifact.SampleCount)
	}
	if registry.Stale(now.Add(30 * time.Minute)) {
		t.Error("fresh artifact reported stale inside TTL")
	}
	if !registry.Stale(now.Add(2 * time.Hour)) {
		t.Error("artifact past TTL not reported stale")
	}

	if err := registry.Refresh(samples, 10, now.Add(2*time.Hour)); err != nil {
		t.Fatalf("retraining failed: %v", err)
	}
	if v := registry.Current().Version; v != 2 {
		t.Errorf("expected version 2 after retrain, got %d", v)
	}
}

func TestRankUsesModelWhenFeaturesComplete(t *testing.T) {
	registry := NewModelRegistry(time.Hour)
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	history := trainingSamples(now)
	if err := registry.Refresh(history, 10, now); err != nil {
		t.Fatalf("training failed: %v", err)
	}

	r := NewSupplierRanker(DefaultConfig(), newTestLogger(), registry)
	// trainingSamples covers all three supplier ids, so each candidate has
	// a delay observation and a complete feature vector.
	scores, err := r.Rank(context.Background(), "item-1", sampleSuppliers(), history, models.UrgencyNormal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, s := range scores {
		if s.Method != models.ScoreMethodModel {
			t.Errorf("expected MODEL scoring for %s, got %s", s.SupplierId, s.Method)
		}
		if s.Score < 0 || s.Score > 100 {
			t.Errorf("model score for %s outside [0,100]: %.2f", s.SupplierId, s.Score)
		}
	}
}

func TestRankFallsBackToRulesWithoutDelayHistory(t *testing.T) {
	registry := NewModelRegistry(time.Hour)
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	if err := registry.Refresh(trainingSamples(now), 10, now); err != nil {
		t.Fatalf("training failed: %v", err)
	}

	r := NewSupplierRanker(DefaultConfig(), newTestLogger(), registry)
	// No purchase history for this item: the model lacks the delay feature,
	// so every candidate takes the rule-based path even with a trained model.
	scores, err := r.Rank(context.Background(), "item-1", sampleSuppliers(), nil, models.UrgencyNormal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, s := range scores {
		if s.Method != models.ScoreMethodRuleBased {
			t.Errorf("expected RULE_BASED without delay history for %s, got %s", s.SupplierId, s.Method)
		}
	}
}
