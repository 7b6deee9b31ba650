package vectorindex

import (
	"context"
	"fmt"
	"strconv"

	chromem "github.com/philippgille/chromem-go"
)

// ChromemIndex is an embedded index for single-node deployments and tests.
type ChromemIndex struct {
	collection *chromem.Collection
}

// NewChromemIndex opens a persistent database at path, or an in-memory one
// when path is empty.
func NewChromemIndex(path, collection string) (*ChromemIndex, error) {
	db := chromem.NewDB()
	if path != "" {
		var err error
		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, fmt.Errorf("open chromem db failed: %w", err)
		}
	}
	// Embeddings always come from the configured provider.
	c, err := db.GetOrCreateCollection(collection, nil, func(context.Context, string) ([]float32, error) {
		return nil, fmt.Errorf("chromem collection %s has no embedding function", collection)
	})
	if err != nil {
		return nil, fmt.Errorf("open chromem collection failed: %w", err)
	}
	return &ChromemIndex{collection: c}, nil
}

func (c *ChromemIndex) Name() string {
	return "chromem"
}

func (c *ChromemIndex) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	docs := make([]chromem.Document, 0, len(points))
	for _, p := range points {
		docs = append(docs, chromem.Document{
			ID: PointID(p.DocumentID, p.ChunkIndex),
			Metadata: map[string]string{
				payloadDocumentID: strconv.FormatUint(uint64(p.DocumentID), 10),
				payloadChunkIndex: strconv.Itoa(p.ChunkIndex),
				payloadOwnerID:    strconv.FormatUint(uint64(p.OwnerID), 10),
			},
			Embedding: p.Vector,
			Content:   p.Content,
		})
	}
	if err := c.collection.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("chromem upsert failed: %w", err)
	}
	return nil
}

func (c *ChromemIndex) Query(ctx context.Context, vector []float32, limit int, documentID uint) ([]Match, error) {
	// chromem rejects limits larger than the collection.
	if n := c.collection.Count(); limit > n {
		limit = n
	}
	if limit <= 0 {
		return nil, nil
	}
	var where map[string]string
	if documentID != 0 {
		where = map[string]string{payloadDocumentID: strconv.FormatUint(uint64(documentID), 10)}
	}
	results, err := c.collection.QueryEmbedding(ctx, vector, limit, where, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query failed: %w", err)
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		idx, _ := strconv.Atoi(r.Metadata[payloadChunkIndex])
		matches = append(matches, Match{
			DocumentID: parseUint(r.Metadata[payloadDocumentID]),
			ChunkIndex: idx,
			Content:    r.Content,
			Score:      r.Similarity,
		})
	}
	return matches, nil
}

func (c *ChromemIndex) DeleteByDocument(ctx context.Context, documentID uint) error {
	where := map[string]string{payloadDocumentID: strconv.FormatUint(uint64(documentID), 10)}
	if err := c.collection.Delete(ctx, where, nil); err != nil {
		return fmt.Errorf("chromem delete failed: %w", err)
	}
	return nil
}

func (c *ChromemIndex) Ping(context.Context) error {
	return nil
}
