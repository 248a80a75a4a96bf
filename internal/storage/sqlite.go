package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/ragfuse/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		pages TEXT NOT NULL,
		content_hash TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_documents_filename ON documents(filename);

	CREATE TABLE IF NOT EXISTS snapshots (
		key TEXT PRIMARY KEY,
		embedder_id TEXT NOT NULL,
		metric TEXT NOT NULL,
		dimensions INTEGER NOT NULL,
		chunk_count INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS snapshot_chunks (
		snapshot_key TEXT NOT NULL,
		position INTEGER NOT NULL,
		document_id TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		content TEXT NOT NULL,
		span_start INTEGER NOT NULL,
		span_end INTEGER NOT NULL,
		embedding BLOB NOT NULL,
		PRIMARY KEY (snapshot_key, position)
	);
	`
	_, err := db.Exec(schema)
	return err
}

// SaveDocument inserts a document or replaces the one with the same ID.
func (s *SQLiteStorage) SaveDocument(ctx context.Context, doc *models.Document) error {
	pagesJSON, err := json.Marshal(doc.Pages)
	if err != nil {
		return fmt.Errorf("failed to marshal pages: %w", err)
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (id, filename, pages, content_hash, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   filename = excluded.filename,
		   pages = excluded.pages,
		   content_hash = excluded.content_hash,
		   created_at = excluded.created_at`,
		doc.ID, doc.Filename, string(pagesJSON), doc.ContentHash, doc.CreatedAt,
	)
	return err
}

// GetDocument returns a document by ID, or ErrNotFound.
func (s *SQLiteStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, filename, pages, content_hash, created_at FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return doc, err
}

// DeleteDocument removes a document by ID. Returns ErrNotFound if no row was deleted.
func (s *SQLiteStorage) DeleteDocument(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListDocuments returns all documents ordered by filename.
func (s *SQLiteStorage) ListDocuments(ctx context.Context) ([]*models.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, filename, pages, content_hash, created_at FROM documents ORDER BY filename, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// CountDocuments returns the total number of documents.
func (s *SQLiteStorage) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var doc models.Document
	var pagesJSON string
	var hash sql.NullString
	if err := row.Scan(&doc.ID, &doc.Filename, &pagesJSON, &hash, &doc.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(pagesJSON), &doc.Pages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pages of %s: %w", doc.ID, err)
	}
	doc.ContentHash = hash.String
	return &doc, nil
}

// SaveSnapshot stores snap, replacing any snapshot with the same key, in one transaction.
func (s *SQLiteStorage) SaveSnapshot(ctx context.Context, snap *Snapshot) error {
	if len(snap.Chunks) != len(snap.Vectors) {
		return fmt.Errorf("snapshot has %d chunks but %d vectors", len(snap.Chunks), len(snap.Vectors))
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := deleteSnapshot(ctx, tx, snap.Key); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (key, embedder_id, metric, dimensions, chunk_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		snap.Key, snap.EmbedderID, snap.Metric, snap.Dimensions, len(snap.Chunks), snap.CreatedAt,
	); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO snapshot_chunks (snapshot_key, position, document_id, chunk_index, content, span_start, span_end, embedding)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, c := range snap.Chunks {
		if len(snap.Vectors[i]) != snap.Dimensions {
			return fmt.Errorf("vector %d has dimension %d, want %d", i, len(snap.Vectors[i]), snap.Dimensions)
		}
		if _, err := stmt.ExecContext(ctx,
			snap.Key, i, c.DocumentID, c.Index, c.Text, c.Span.Start, c.Span.End, encodeVector(snap.Vectors[i]),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadSnapshot returns the snapshot stored under key, or ErrNotFound.
func (s *SQLiteStorage) LoadSnapshot(ctx context.Context, key string) (*Snapshot, error) {
	snap := &Snapshot{Key: key}
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT embedder_id, metric, dimensions, chunk_count, created_at FROM snapshots WHERE key = ?`, key,
	).Scan(&snap.EmbedderID, &snap.Metric, &snap.Dimensions, &count, &snap.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snapshot %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT document_id, chunk_index, content, span_start, span_end, embedding
		 FROM snapshot_chunks WHERE snapshot_key = ? ORDER BY position`, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snap.Chunks = make([]models.Chunk, 0, count)
	snap.Vectors = make([][]float32, 0, count)
	for rows.Next() {
		var c models.Chunk
		var blob []byte
		if err := rows.Scan(&c.DocumentID, &c.Index, &c.Text, &c.Span.Start, &c.Span.End, &blob); err != nil {
			return nil, err
		}
		vec, err := decodeVector(blob, snap.Dimensions)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", c.ID(), err)
		}
		snap.Chunks = append(snap.Chunks, c)
		snap.Vectors = append(snap.Vectors, vec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(snap.Chunks) != count {
		return nil, fmt.Errorf("snapshot %s is incomplete: %d of %d chunks", key, len(snap.Chunks), count)
	}
	return snap, nil
}

// PruneSnapshots deletes all but the keep most recent snapshots and returns how many were removed.
func (s *SQLiteStorage) PruneSnapshots(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM snapshots ORDER BY created_at DESC, rowid DESC LIMIT -1 OFFSET ?`, keep)
	if err != nil {
		return 0, err
	}
	var stale []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			rows.Close()
			return 0, err
		}
		stale = append(stale, key)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	for _, key := range stale {
		if err := deleteSnapshot(ctx, tx, key); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(stale), nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func deleteSnapshot(ctx context.Context, tx *sql.Tx, key string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshot_chunks WHERE snapshot_key = ?`, key); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE key = ?`, key)
	return err
}

// encodeVector packs v as little-endian float32s.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte, dims int) ([]float32, error) {
	if len(b) != 4*dims {
		return nil, fmt.Errorf("embedding blob has %d bytes, want %d", len(b), 4*dims)
	}
	v := make([]float32, dims)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}
