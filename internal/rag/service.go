// Package rag wires the pricing store, document builder, embedder, and vector
// index into the search and recommendation operations the API exposes.
package rag

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/tokenscout/tokenscout/internal/models"
	"github.com/tokenscout/tokenscout/internal/pricing"
	"github.com/tokenscout/tokenscout/internal/ragdoc"
	"github.com/tokenscout/tokenscout/internal/vector"
)

var (
	// ErrInvalidArgument indicates a caller-supplied parameter is unusable.
	ErrInvalidArgument = errors.New("rag: invalid argument")
	// ErrIndexUnavailable indicates the vector index cannot be reached.
	ErrIndexUnavailable = errors.New("rag: index unavailable")
)

// reasoningLimit caps the document excerpt carried in a recommendation.
const reasoningLimit = 200

// Options tunes the service. Zero values fall back to defaults.
type Options struct {
	Bands      ragdoc.Bands
	PoolSize   int     // recommendation candidate pool, default 10
	InputShare float64 // fraction of tokens assumed to be input, default 0.5
}

// Service answers semantic queries over the indexed pricing documents.
type Service struct {
	store    *pricing.Store
	embedder vector.Embedder
	index    vector.Index
	opts     Options
}

// NewService constructs a Service.
func NewService(store *pricing.Store, embedder vector.Embedder, index vector.Index, opts Options) *Service {
	if opts.PoolSize <= 0 {
		opts.PoolSize = 10
	}
	if opts.InputShare <= 0 || opts.InputShare >= 1 {
		opts.InputShare = 0.5
	}
	return &Service{store: store, embedder: embedder, index: index, opts: opts}
}

// SearchResult is one semantic search hit.
type SearchResult struct {
	DocumentID string         `json:"document_id"`
	ModelName  string         `json:"model_name"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata"`
	Distance   float64        `json:"distance"`
}

// Recommendation is one cost-annotated candidate for a use case.
type Recommendation struct {
	ModelName      string   `json:"model_name"`
	Provider       string   `json:"provider"`
	Modalities     []string `json:"modalities"`
	ContextWindow  int      `json:"context_window"`
	InputPrice     float64  `json:"input_price"`
	OutputPrice    float64  `json:"output_price"`
	EstimatedCost  *float64 `json:"estimated_cost"`
	Reasoning      string   `json:"reasoning"`
	BudgetFriendly *bool    `json:"budget_friendly"`
}

// CostAnalysis aggregates the computable costs across a recommendation set.
type CostAnalysis struct {
	MinCost      float64 `json:"min_cost"`
	MaxCost      float64 `json:"max_cost"`
	AvgCost      float64 `json:"avg_cost"`
	BudgetViable *bool   `json:"budget_viable,omitempty"`
}

// RecommendationSet is the full response for one Recommend call.
type RecommendationSet struct {
	UseCase           string           `json:"use_case"`
	Budget            *float64         `json:"budget"`
	MaxTokens         *int             `json:"max_tokens"`
	Recommendations   []Recommendation `json:"recommendations"`
	CostAnalysis      *CostAnalysis    `json:"cost_analysis"`
	ProviderBreakdown map[string]int   `json:"provider_breakdown"`
}

// IndexAll rebuilds the vector index from the full store contents and returns
// the number of documents indexed. ReplaceAll keeps the swap atomic for
// concurrent readers.
func (s *Service) IndexAll(ctx context.Context) (int, error) {
	records, err := s.store.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("rag: list records: %w", err)
	}
	points, err := s.buildPoints(ctx, records)
	if err != nil {
		return 0, err
	}
	if err := s.index.ReplaceAll(ctx, points); err != nil {
		return 0, s.wrapIndexErr("replace all", err)
	}
	return len(points), nil
}

// UpsertRecords indexes the given records incrementally. The scheduler calls
// this after each successful scrape batch.
func (s *Service) UpsertRecords(ctx context.Context, records []models.PriceRecord) error {
	if len(records) == 0 {
		return nil
	}
	points, err := s.buildPoints(ctx, records)
	if err != nil {
		return err
	}
	if err := s.index.Upsert(ctx, points); err != nil {
		return s.wrapIndexErr("upsert", err)
	}
	return nil
}

// Delete removes one model's document from the index. The relational record
// is untouched.
func (s *Service) Delete(ctx context.Context, provider, modelName string) error {
	id := ragdoc.DocumentID(provider, modelName)
	if err := s.index.Delete(ctx, []string{id}); err != nil {
		return s.wrapIndexErr("delete", err)
	}
	return nil
}

// Search embeds the query and returns up to maxResults hits ordered by
// ascending distance. An empty index yields an empty slice.
func (s *Service) Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query must not be empty", ErrInvalidArgument)
	}
	if maxResults <= 0 {
		return nil, fmt.Errorf("%w: max_results must be positive", ErrInvalidArgument)
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("rag: embed query: %w", err)
	}
	hits, err := s.index.Query(ctx, vec, maxResults)
	if err != nil {
		return nil, s.wrapIndexErr("query", err)
	}

	results := make([]SearchResult, 0, len(hits))
	for _, hit := range hits {
		results = append(results, SearchResult{
			DocumentID: hit.ID,
			ModelName:  metadataString(hit.Metadata, "model_name"),
			Content:    hit.Text,
			Metadata:   hit.Metadata,
			Distance:   hit.Distance,
		})
	}
	// Ordering is part of the contract, so pin it here rather than trusting
	// whatever the index backend returned.
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].DocumentID < results[j].DocumentID
	})
	return results, nil
}

// Recommend ranks candidate models for a use case under optional budget and
// token constraints. Candidates whose store record has vanished since
// indexing are skipped.
func (s *Service) Recommend(ctx context.Context, useCase string, budget *float64, maxTokens *int) (*RecommendationSet, error) {
	useCase = strings.TrimSpace(useCase)
	if useCase == "" {
		return nil, fmt.Errorf("%w: use_case must not be empty", ErrInvalidArgument)
	}

	results, err := s.Search(ctx, "models for "+useCase, s.opts.PoolSize)
	if err != nil {
		return nil, err
	}

	set := &RecommendationSet{
		UseCase:           useCase,
		Budget:            budget,
		MaxTokens:         maxTokens,
		Recommendations:   make([]Recommendation, 0, len(results)),
		ProviderBreakdown: map[string]int{},
	}

	for _, result := range results {
		provider, modelName, ok := splitDocumentID(result.DocumentID)
		if !ok {
			log.WithField("document_id", result.DocumentID).Warn("skipping malformed document id")
			continue
		}
		record, err := s.store.GetByKey(ctx, provider, modelName)
		if errors.Is(err, pricing.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("rag: lookup %s: %w", result.DocumentID, err)
		}

		rec := Recommendation{
			ModelName:     record.ModelName,
			Provider:      record.Provider,
			Modalities:    record.ModalityList(),
			ContextWindow: record.ContextWindow,
			InputPrice:    record.InputPricePerToken,
			OutputPrice:   record.OutputPricePerToken,
			Reasoning:     truncate(result.Content, reasoningLimit),
		}
		if maxTokens != nil {
			cost := s.estimateCost(record, *maxTokens)
			rec.EstimatedCost = &cost
			if budget != nil {
				friendly := cost <= *budget
				rec.BudgetFriendly = &friendly
			}
		}

		set.Recommendations = append(set.Recommendations, rec)
		set.ProviderBreakdown[record.Provider]++
	}

	// Cheapest first when costs are computable, otherwise similarity order.
	sort.SliceStable(set.Recommendations, func(i, j int) bool {
		ci, cj := set.Recommendations[i].EstimatedCost, set.Recommendations[j].EstimatedCost
		if ci == nil || cj == nil {
			return false
		}
		return *ci < *cj
	})

	set.CostAnalysis = analyzeCosts(set.Recommendations, budget)
	return set, nil
}

// estimateCost prices a request of maxTokens tokens split between input and
// output by the configured share.
func (s *Service) estimateCost(record models.PriceRecord, maxTokens int) float64 {
	inShare := s.opts.InputShare
	outShare := 1 - inShare
	return float64(maxTokens) * (inShare*record.InputPricePerToken + outShare*record.OutputPricePerToken)
}

func (s *Service) wrapIndexErr(op string, err error) error {
	if errors.Is(err, vector.ErrUnavailable) {
		return fmt.Errorf("%w: %s: %v", ErrIndexUnavailable, op, err)
	}
	return fmt.Errorf("rag: %s: %w", op, err)
}

func (s *Service) buildPoints(ctx context.Context, records []models.PriceRecord) ([]vector.Point, error) {
	points := make([]vector.Point, 0, len(records))
	for _, record := range records {
		doc := ragdoc.Build(record, s.opts.Bands)
		vec, err := s.embedder.Embed(ctx, doc.Text)
		if err != nil {
			return nil, fmt.Errorf("rag: embed %s: %w", doc.ID, err)
		}
		points = append(points, vector.Point{
			ID:       doc.ID,
			Vector:   vec,
			Text:     doc.Text,
			Metadata: doc.Metadata,
		})
	}
	return points, nil
}

func analyzeCosts(recs []Recommendation, budget *float64) *CostAnalysis {
	var costs []float64
	for _, rec := range recs {
		if rec.EstimatedCost != nil {
			costs = append(costs, *rec.EstimatedCost)
		}
	}
	if len(costs) == 0 {
		return nil
	}

	analysis := &CostAnalysis{MinCost: costs[0], MaxCost: costs[0]}
	var sum float64
	for _, c := range costs {
		if c < analysis.MinCost {
			analysis.MinCost = c
		}
		if c > analysis.MaxCost {
			analysis.MaxCost = c
		}
		sum += c
	}
	analysis.AvgCost = sum / float64(len(costs))
	if budget != nil {
		viable := analysis.MinCost <= *budget
		analysis.BudgetViable = &viable
	}
	return analysis
}

func splitDocumentID(id string) (provider, modelName string, ok bool) {
	provider, modelName, ok = strings.Cut(id, "/")
	if provider == "" || modelName == "" {
		return "", "", false
	}
	return provider, modelName, ok
}

func metadataString(metadata map[string]any, key string) string {
	if metadata == nil {
		return ""
	}
	if v, ok := metadata[key].(string); ok {
		return v
	}
	return ""
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
