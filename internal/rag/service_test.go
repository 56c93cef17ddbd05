package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/tokenscout/tokenscout/internal/models"
	"github.com/tokenscout/tokenscout/internal/pricing"
	"github.com/tokenscout/tokenscout/internal/ragdoc"
	"github.com/tokenscout/tokenscout/internal/vector"
	"gorm.io/gorm"
)

const testDim = 64

func newTestService(t *testing.T) (*Service, *pricing.Store, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.AutoMigrate(&models.PriceRecord{}); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	store := pricing.NewStore(db)
	svc := NewService(store, vector.NewHashEmbedder(testDim), vector.NewMemoryIndex(testDim, vector.MetricCosine), Options{
		Bands: ragdoc.Bands{CheapBelow: 0.001, ExpensiveAbove: 0.01},
	})
	return svc, store, db
}

func seedHaiku(t *testing.T, store *pricing.Store) {
	t.Helper()
	errUpsert := store.Upsert(context.Background(), []models.PriceRecord{{
		Provider:            "Anthropic",
		ModelName:           "claude-3-haiku",
		Modalities:          models.EncodeModalities([]string{models.ModalityText}),
		ContextWindow:       200000,
		InputPricePerToken:  0.00025,
		OutputPricePerToken: 0.00125,
	}})
	if errUpsert != nil {
		t.Fatalf("seed: %v", errUpsert)
	}
}

func TestSearchReturnsIndexedDocument(t *testing.T) {
	svc, store, _ := newTestService(t)
	seedHaiku(t, store)

	count, err := svc.IndexAll(context.Background())
	if err != nil {
		t.Fatalf("index all: %v", err)
	}
	if count != 1 {
		t.Fatalf("indexed %d documents, want 1", count)
	}

	results, err := svc.Search(context.Background(), "cheap text model", 5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].DocumentID != "Anthropic/claude-3-haiku" {
		t.Fatalf("unexpected document id %q", results[0].DocumentID)
	}
	if results[0].ModelName != "claude-3-haiku" {
		t.Fatalf("unexpected model name %q", results[0].ModelName)
	}
	if results[0].Distance < 0 {
		t.Fatalf("distance must be non-negative, got %f", results[0].Distance)
	}
}

// flatEmbedder returns the same vector for every input, so any two indexed
// documents land at the same distance from any query.
type flatEmbedder struct{ dim int }

func (e flatEmbedder) Embed(context.Context, string) ([]float32, error) {
	vec := make([]float32, e.dim)
	vec[0] = 1
	return vec, nil
}

func (e flatEmbedder) Dimension() int { return e.dim }

// reversedIndex serves canned hits in descending id order, mimicking a
// backend with no tie-break of its own.
type reversedIndex struct{ hits []vector.Hit }

func (reversedIndex) Upsert(context.Context, []vector.Point) error { return nil }

func (reversedIndex) Delete(context.Context, []string) error { return nil }

func (reversedIndex) ReplaceAll(context.Context, []vector.Point) error { return nil }

func (r reversedIndex) Query(context.Context, []float32, int) ([]vector.Hit, error) {
	return r.hits, nil
}

func TestSearchBreaksDistanceTiesByDocumentID(t *testing.T) {
	index := reversedIndex{hits: []vector.Hit{
		{ID: "OpenAI/gpt-4o-mini", Distance: 0.25},
		{ID: "Anthropic/claude-3-haiku", Distance: 0.25},
	}}
	svc := NewService(pricing.NewStore(nil), flatEmbedder{dim: 4}, index, Options{})

	results, err := svc.Search(context.Background(), "cheap chat model", 5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].DocumentID != "Anthropic/claude-3-haiku" || results[1].DocumentID != "OpenAI/gpt-4o-mini" {
		t.Fatalf("equal-distance results not ordered by id: %q then %q", results[0].DocumentID, results[1].DocumentID)
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	svc, _, _ := newTestService(t)
	results, err := svc.Search(context.Background(), "anything", 5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
}

func TestSearchInvalidArguments(t *testing.T) {
	svc, _, _ := newTestService(t)
	if _, err := svc.Search(context.Background(), "", 5); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("empty query: got %v, want ErrInvalidArgument", err)
	}
	if _, err := svc.Search(context.Background(), "query", 0); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("max_results 0: got %v, want ErrInvalidArgument", err)
	}
}

func TestRecommendCostAndBudget(t *testing.T) {
	svc, store, _ := newTestService(t)
	seedHaiku(t, store)
	if _, err := svc.IndexAll(context.Background()); err != nil {
		t.Fatalf("index all: %v", err)
	}

	budget := 50.0
	maxTokens := 10000
	set, err := svc.Recommend(context.Background(), "coding", &budget, &maxTokens)
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if len(set.Recommendations) != 1 {
		t.Fatalf("got %d recommendations, want 1", len(set.Recommendations))
	}

	rec := set.Recommendations[0]
	if rec.EstimatedCost == nil {
		t.Fatal("expected estimated cost")
	}
	// 10000 * (0.5*0.00025 + 0.5*0.00125)
	if diff := *rec.EstimatedCost - 7.5; diff < -1e-9 || diff > 1e-9 {
		t.Fatalf("estimated cost %f, want 7.5", *rec.EstimatedCost)
	}
	if rec.BudgetFriendly == nil || !*rec.BudgetFriendly {
		t.Fatalf("expected budget_friendly=true, got %v", rec.BudgetFriendly)
	}
	if rec.Reasoning == "" {
		t.Fatal("expected reasoning excerpt")
	}

	if set.CostAnalysis == nil {
		t.Fatal("expected cost analysis")
	}
	if set.CostAnalysis.MinCost != set.CostAnalysis.MaxCost {
		t.Fatalf("single candidate: min %f != max %f", set.CostAnalysis.MinCost, set.CostAnalysis.MaxCost)
	}
	if set.CostAnalysis.BudgetViable == nil || !*set.CostAnalysis.BudgetViable {
		t.Fatal("expected budget_viable=true")
	}
	if set.ProviderBreakdown["Anthropic"] != 1 {
		t.Fatalf("unexpected provider breakdown %v", set.ProviderBreakdown)
	}
}

func TestRecommendSortsByCost(t *testing.T) {
	svc, store, _ := newTestService(t)
	errUpsert := store.Upsert(context.Background(), []models.PriceRecord{
		{
			Provider:            "OpenAI",
			ModelName:           "gpt-4o",
			Modalities:          models.EncodeModalities([]string{models.ModalityText}),
			ContextWindow:       128000,
			InputPricePerToken:  0.0000025,
			OutputPricePerToken: 0.00001,
		},
		{
			Provider:            "OpenAI",
			ModelName:           "gpt-4o-mini",
			Modalities:          models.EncodeModalities([]string{models.ModalityText}),
			ContextWindow:       128000,
			InputPricePerToken:  0.00000015,
			OutputPricePerToken: 0.0000006,
		},
	})
	if errUpsert != nil {
		t.Fatalf("seed: %v", errUpsert)
	}
	if _, err := svc.IndexAll(context.Background()); err != nil {
		t.Fatalf("index all: %v", err)
	}

	maxTokens := 100000
	set, err := svc.Recommend(context.Background(), "chat assistant", nil, &maxTokens)
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if len(set.Recommendations) != 2 {
		t.Fatalf("got %d recommendations, want 2", len(set.Recommendations))
	}
	if set.Recommendations[0].ModelName != "gpt-4o-mini" {
		t.Fatalf("cheapest model should rank first, got %q", set.Recommendations[0].ModelName)
	}
	if set.Recommendations[0].BudgetFriendly != nil {
		t.Fatal("budget_friendly should be unknown without a budget")
	}
	if set.ProviderBreakdown["OpenAI"] != 2 {
		t.Fatalf("unexpected provider breakdown %v", set.ProviderBreakdown)
	}
}

func TestRecommendSkipsDeletedRecords(t *testing.T) {
	svc, store, db := newTestService(t)
	seedHaiku(t, store)
	if _, err := svc.IndexAll(context.Background()); err != nil {
		t.Fatalf("index all: %v", err)
	}

	// Simulate the record vanishing after indexing.
	if err := db.Exec("DELETE FROM price_records").Error; err != nil {
		t.Fatalf("delete: %v", err)
	}

	set, err := svc.Recommend(context.Background(), "coding", nil, nil)
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if len(set.Recommendations) != 0 {
		t.Fatalf("stale candidates must be skipped, got %d", len(set.Recommendations))
	}
}

func TestRecommendEmptyUseCase(t *testing.T) {
	svc, _, _ := newTestService(t)
	if _, err := svc.Recommend(context.Background(), "  ", nil, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("got %v, want ErrInvalidArgument", err)
	}
}

func TestDeleteRemovesDocument(t *testing.T) {
	svc, store, _ := newTestService(t)
	seedHaiku(t, store)
	if _, err := svc.IndexAll(context.Background()); err != nil {
		t.Fatalf("index all: %v", err)
	}
	if err := svc.Delete(context.Background(), "Anthropic", "claude-3-haiku"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	results, err := svc.Search(context.Background(), "cheap text model", 5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty results after delete, got %d", len(results))
	}
}
