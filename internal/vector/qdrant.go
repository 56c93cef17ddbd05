package vector

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	log "github.com/sirupsen/logrus"
)

// payload keys used in the qdrant collection.
const (
	payloadDocID = "doc_id"
	payloadText  = "text"
)

// QdrantIndex stores documents behind a Qdrant collection alias. The alias
// points at one of two physical collections; rebuilds fill the standby one
// and repoint the alias, so readers never see a partially filled index.
type QdrantIndex struct {
	client     *qdrant.Client
	collection string // alias name that reads and writes target
	dim        int
	metric     Metric

	mu sync.Mutex // serializes rebuilds
}

// NewQdrantIndex constructs a QdrantIndex over an existing client.
func NewQdrantIndex(client *qdrant.Client, collection string, dim int, metric Metric) *QdrantIndex {
	return &QdrantIndex{
		client:     client,
		collection: collection,
		dim:        dim,
		metric:     metric,
	}
}

// InitCollection sets up the alias and its first physical collection when
// missing, and verifies an existing collection matches the configured
// dimensionality and metric before serving traffic against it.
func (q *QdrantIndex) InitCollection(ctx context.Context) error {
	physical, err := q.resolveAlias(ctx)
	if err != nil {
		return err
	}
	if physical == "" {
		physical = q.collection + "-a"
		exists, errExists := q.client.CollectionExists(ctx, physical)
		if errExists != nil {
			return fmt.Errorf("%w: collection exists: %v", ErrUnavailable, errExists)
		}
		if !exists {
			if errCreate := q.createCollection(ctx, physical); errCreate != nil {
				return errCreate
			}
		}
		if errAlias := q.client.CreateAlias(ctx, q.collection, physical); errAlias != nil {
			return fmt.Errorf("%w: create alias: %v", ErrUnavailable, errAlias)
		}
	}

	info, err := q.client.GetCollectionInfo(ctx, physical)
	if err != nil {
		return fmt.Errorf("%w: collection info: %v", ErrUnavailable, err)
	}
	return checkCollectionParams(info.GetConfig().GetParams().GetVectorsConfig().GetParams(), q.dim, q.metric)
}

// resolveAlias returns the physical collection the alias currently points
// at, or "" when the alias does not exist yet.
func (q *QdrantIndex) resolveAlias(ctx context.Context) (string, error) {
	aliases, err := q.client.ListAliases(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: list aliases: %v", ErrUnavailable, err)
	}
	for _, alias := range aliases {
		if alias.GetAliasName() == q.collection {
			return alias.GetCollectionName(), nil
		}
	}
	return "", nil
}

func (q *QdrantIndex) createCollection(ctx context.Context, name string) error {
	if err := q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(q.dim),
			Distance: metricDistance(q.metric),
		}),
	}); err != nil {
		return fmt.Errorf("%w: create collection %s: %v", ErrUnavailable, name, err)
	}
	return nil
}

// metricDistance maps an index metric onto qdrant's distance enum.
func metricDistance(metric Metric) qdrant.Distance {
	if metric == MetricEuclidean {
		return qdrant.Distance_Euclid
	}
	return qdrant.Distance_Cosine
}

// checkCollectionParams compares an existing collection's vector settings
// with the configured ones, so a stale collection fails startup instead of
// serving vectors of the wrong shape.
func checkCollectionParams(params *qdrant.VectorParams, dim int, metric Metric) error {
	if params == nil {
		return fmt.Errorf("vector: collection reports no vector params")
	}
	if params.GetSize() != uint64(dim) {
		return fmt.Errorf("%w: collection holds %d-dimensional vectors, config says %d", ErrDimensionMismatch, params.GetSize(), dim)
	}
	if params.GetDistance() != metricDistance(metric) {
		return fmt.Errorf("vector: collection uses distance %s, config says %s", params.GetDistance(), metric)
	}
	return nil
}

// pointID derives a stable qdrant UUID from a document id, so re-indexing the
// same document overwrites its previous point.
func pointID(docID string) *qdrant.PointId {
	return qdrant.NewIDUUID(uuid.NewSHA1(uuid.NameSpaceURL, []byte(docID)).String())
}

// Upsert implements Index.
func (q *QdrantIndex) Upsert(ctx context.Context, points []Point) error {
	return q.upsertTo(ctx, q.collection, points)
}

func (q *QdrantIndex) upsertTo(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	qPoints := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		if len(p.Vector) != q.dim {
			return fmt.Errorf("%w: got %d, index holds %d", ErrDimensionMismatch, len(p.Vector), q.dim)
		}
		payload := map[string]any{
			payloadDocID: p.ID,
			payloadText:  p.Text,
		}
		for k, v := range p.Metadata {
			payload[k] = v
		}
		qPoints = append(qPoints, &qdrant.PointStruct{
			Id:      pointID(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: qdrant.NewValueMap(payload),
		})
	}

	if _, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         qPoints,
		Wait:           qdrant.PtrOf(true),
	}); err != nil {
		return fmt.Errorf("%w: upsert: %v", ErrUnavailable, err)
	}
	return nil
}

// Delete implements Index.
func (q *QdrantIndex) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	pointIDs := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		pointIDs = append(pointIDs, pointID(id))
	}
	if _, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Points:         qdrant.NewPointsSelector(pointIDs...),
		Wait:           qdrant.PtrOf(true),
	}); err != nil {
		return fmt.Errorf("%w: delete: %v", ErrUnavailable, err)
	}
	return nil
}

// ReplaceAll rebuilds the index into the standby physical collection and
// repoints the alias to it in a single alias update. The update is atomic on
// the server, so concurrent queries observe either the old set or the new
// one, never an empty or half-built collection.
func (q *QdrantIndex) ReplaceAll(ctx context.Context, points []Point) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	current, err := q.resolveAlias(ctx)
	if err != nil {
		return err
	}
	next := nextCollection(q.collection, current)

	exists, err := q.client.CollectionExists(ctx, next)
	if err != nil {
		return fmt.Errorf("%w: collection exists: %v", ErrUnavailable, err)
	}
	if exists {
		// Leftover from an interrupted rebuild.
		if errDrop := q.client.DeleteCollection(ctx, next); errDrop != nil {
			return fmt.Errorf("%w: drop stale collection %s: %v", ErrUnavailable, next, errDrop)
		}
	}
	if err := q.createCollection(ctx, next); err != nil {
		return err
	}
	if err := q.upsertTo(ctx, next, points); err != nil {
		return err
	}

	ops := make([]*qdrant.AliasOperations, 0, 2)
	if current != "" {
		ops = append(ops, qdrant.NewAliasDelete(q.collection))
	}
	ops = append(ops, qdrant.NewAliasCreate(q.collection, next))
	if err := q.client.UpdateAliases(ctx, ops); err != nil {
		return fmt.Errorf("%w: swap alias: %v", ErrUnavailable, err)
	}

	if current != "" && current != next {
		if errDrop := q.client.DeleteCollection(ctx, current); errDrop != nil {
			log.WithError(errDrop).WithField("collection", current).Warn("Failed to drop replaced collection")
		}
	}
	return nil
}

// nextCollection picks the standby physical collection for a rebuild,
// rotating between the "-a" and "-b" slots behind the alias.
func nextCollection(base, current string) string {
	if current == base+"-a" {
		return base + "-b"
	}
	return base + "-a"
}

// Query implements Index.
func (q *QdrantIndex) Query(ctx context.Context, vector []float32, limit int) ([]Hit, error) {
	if len(vector) != q.dim {
		return nil, fmt.Errorf("%w: query has %d, index holds %d", ErrDimensionMismatch, len(vector), q.dim)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("vector: non-positive query limit %d", limit)
	}

	res, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", ErrUnavailable, err)
	}

	hits := make([]Hit, 0, len(res))
	for _, scored := range res {
		payload := scored.Payload
		hit := Hit{
			ID:       payload[payloadDocID].GetStringValue(),
			Distance: q.scoreToDistance(scored.Score),
			Text:     payload[payloadText].GetStringValue(),
			Metadata: make(map[string]any, len(payload)),
		}
		for k, v := range payload {
			if k == payloadDocID || k == payloadText {
				continue
			}
			hit.Metadata[k] = payloadValue(v)
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// scoreToDistance converts qdrant's score to an ascending distance. For
// cosine qdrant reports similarity (higher is better); for Euclid the score
// is the distance itself.
func (q *QdrantIndex) scoreToDistance(score float32) float64 {
	if q.metric == MetricEuclidean {
		return float64(score)
	}
	d := 1 - float64(score)
	if d < 0 {
		return 0
	}
	return d
}

// payloadValue unwraps a qdrant payload value into a plain Go value.
func payloadValue(v *qdrant.Value) any {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_ListValue:
		values := kind.ListValue.GetValues()
		out := make([]any, 0, len(values))
		for _, item := range values {
			out = append(out, payloadValue(item))
		}
		return out
	default:
		return nil
	}
}
