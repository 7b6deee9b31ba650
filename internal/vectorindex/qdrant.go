package vectorindex

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

type QdrantIndex struct {
	client     *qdrant.Client
	collection string
	dimensions int
}

func NewQdrantIndex(client *qdrant.Client, collection string, dimensions int) *QdrantIndex {
	return &QdrantIndex{
		client:     client,
		collection: collection,
		dimensions: dimensions,
	}
}

func (q *QdrantIndex) Name() string {
	return "qdrant"
}

// EnsureCollection creates the cosine collection and the document_id payload
// index when they do not exist yet.
func (q *QdrantIndex) EnsureCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("check qdrant collection failed: %w", err)
	}
	if exists {
		return nil
	}
	if err := q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(q.dimensions),
			Distance: qdrant.Distance_Cosine,
		}),
	}); err != nil {
		return fmt.Errorf("create qdrant collection failed: %w", err)
	}
	if _, err := q.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: q.collection,
		FieldName:      payloadDocumentID,
		FieldType:      qdrant.PtrOf(qdrant.FieldType_FieldTypeInteger),
	}); err != nil {
		return fmt.Errorf("create qdrant payload index failed: %w", err)
	}
	return nil
}

func (q *QdrantIndex) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	structs := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		structs = append(structs, &qdrant.PointStruct{
			Id:      qdrant.NewID(PointID(p.DocumentID, p.ChunkIndex)),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				payloadDocumentID: int64(p.DocumentID),
				payloadChunkIndex: int64(p.ChunkIndex),
				payloadOwnerID:    int64(p.OwnerID),
				payloadContent:    p.Content,
			}),
		})
	}
	if _, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         structs,
	}); err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}
	return nil
}

func (q *QdrantIndex) Query(ctx context.Context, vector []float32, limit int, documentID uint) ([]Match, error) {
	if limit <= 0 {
		return nil, nil
	}
	req := &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if documentID != 0 {
		req.Filter = documentFilter(documentID)
	}
	points, err := q.client.Query(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("qdrant query failed: %w", err)
	}

	matches := make([]Match, 0, len(points))
	for _, p := range points {
		payload := p.GetPayload()
		matches = append(matches, Match{
			DocumentID: uint(payload[payloadDocumentID].GetIntegerValue()),
			ChunkIndex: int(payload[payloadChunkIndex].GetIntegerValue()),
			Content:    payload[payloadContent].GetStringValue(),
			Score:      p.GetScore(),
		})
	}
	return matches, nil
}

func (q *QdrantIndex) DeleteByDocument(ctx context.Context, documentID uint) error {
	if _, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelectorFilter(documentFilter(documentID)),
	}); err != nil {
		return fmt.Errorf("qdrant delete failed: %w", err)
	}
	return nil
}

func (q *QdrantIndex) Ping(ctx context.Context) error {
	if _, err := q.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant health check failed: %w", err)
	}
	return nil
}

func documentFilter(documentID uint) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatchInt(payloadDocumentID, int64(documentID)),
		},
	}
}
