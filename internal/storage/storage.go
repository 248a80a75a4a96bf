// Package storage defines persistence for ingested documents and built index snapshots.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/hyperjump/ragfuse/internal/models"
)

// ErrNotFound is returned when a document or snapshot does not exist.
var ErrNotFound = errors.New("not found")

// Snapshot is a built index persisted with its vectors, keyed by the corpus key. Vectors[i]
// belongs to Chunks[i].
type Snapshot struct {
	Key        string
	EmbedderID string
	Metric     string
	Dimensions int
	Chunks     []models.Chunk
	Vectors    [][]float32
	CreatedAt  time.Time
}

// Storage defines document and snapshot persistence operations.
type Storage interface {
	// Document operations
	SaveDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	ListDocuments(ctx context.Context) ([]*models.Document, error)
	CountDocuments(ctx context.Context) (int64, error)

	// Snapshot operations
	SaveSnapshot(ctx context.Context, snap *Snapshot) error
	LoadSnapshot(ctx context.Context, key string) (*Snapshot, error)
	PruneSnapshots(ctx context.Context, keep int) (int, error)

	Close() error
}
