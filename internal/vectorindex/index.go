// Package vectorindex stores chunk embeddings in a vector database and
// answers nearest-neighbour queries for chat retrieval.
package vectorindex

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

const (
	payloadDocumentID = "document_id"
	payloadChunkIndex = "chunk_index"
	payloadOwnerID    = "owner_id"
	payloadContent    = "content"
)

// Point is one embedded chunk.
type Point struct {
	DocumentID uint
	ChunkIndex int
	OwnerID    uint
	Content    string
	Vector     []float32
}

// Match is a scored query hit.
type Match struct {
	DocumentID uint    `json:"document_id"`
	ChunkIndex int     `json:"chunk_index"`
	Content    string  `json:"content"`
	Score      float32 `json:"score"`
}

// Index is implemented by every vector backend.
//
// Query with documentID 0 searches the whole collection.
type Index interface {
	Upsert(ctx context.Context, points []Point) error
	Query(ctx context.Context, vector []float32, limit int, documentID uint) ([]Match, error)
	DeleteByDocument(ctx context.Context, documentID uint) error
	Ping(ctx context.Context) error
	Name() string
}

// PointID is stable per (document, chunk) so re-analysis overwrites points.
func PointID(documentID uint, chunkIndex int) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("legiseye:%d:%d", documentID, chunkIndex))).String()
}

func parseUint(s string) uint {
	v, _ := strconv.ParseUint(s, 10, 64)
	return uint(v)
}
