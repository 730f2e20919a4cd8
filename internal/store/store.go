// Package store provides the persistent vector collection backing retrieval.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/hyperjump/tanya/internal/models"
	"github.com/hyperjump/tanya/internal/progress"
	"github.com/hyperjump/tanya/pkg/utils"
)

// CollectionName is the single collection all documents are indexed into.
const CollectionName = "indonesian_documents"

const collectionDescription = "Indonesian documents for retrieval QA"

// DefaultBatchSize bounds the number of records submitted per insert batch.
const DefaultBatchSize = 100

// lifecycle is the explicit store state: a store is lazily re-initialized on
// first use when construction-time initialization did not happen or failed.
type lifecycle int

const (
	stateUninitialized lifecycle = iota
	stateReady
	stateFailed
)

// Store persists chunk records with their embeddings in SQLite and answers
// nearest-neighbor queries by brute-force cosine distance. Records are
// append-only: re-adding the same chunk creates a new record with a new id.
type Store struct {
	path      string
	batchSize int
	logger    *zap.Logger
	sink      progress.Sink

	mu    sync.Mutex
	db    *sql.DB
	state lifecycle
}

// Option configures a Store.
type Option func(*Store)

// WithBatchSize overrides the insert batch size.
func WithBatchSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithProgress sets the progress sink used while adding records.
func WithProgress(sink progress.Sink) Option {
	return func(s *Store) { s.sink = sink }
}

// NewStore creates a store persisted at path (a sqlite database file).
// Initialization is attempted immediately but a failure is not fatal: every
// public method re-attempts initialization, so a store constructed before
// its directory exists heals itself once the path becomes usable.
// logger may be nil.
func NewStore(path string, logger *zap.Logger, opts ...Option) *Store {
	s := &Store{
		path:      path,
		batchSize: DefaultBatchSize,
		logger:    logger,
		sink:      progress.NopSink{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.EnsureReady(); err != nil && logger != nil {
		logger.Warn("store initialization deferred", zap.String("path", path), zap.Error(err))
	}
	return s
}

// EnsureReady idempotently opens the database and guarantees the collection
// exists. Safe to call multiple times; an existing collection is not an error.
func (s *Store) EnsureReady() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureReadyLocked()
}

func (s *Store) ensureReadyLocked() error {
	if s.state == stateReady {
		return nil
	}
	if s.db != nil {
		_ = s.db.Close()
		s.db = nil
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			s.state = stateFailed
			return fmt.Errorf("create store directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", s.path)
	if err != nil {
		s.state = stateFailed
		return fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		s.state = stateFailed
		return fmt.Errorf("enable WAL: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		s.state = stateFailed
		return fmt.Errorf("initialize schema: %w", err)
	}
	// INSERT OR IGNORE keeps collection creation idempotent across processes.
	if _, err := db.Exec(
		`INSERT OR IGNORE INTO collections (name, description, created_at) VALUES (?, ?, ?)`,
		CollectionName, collectionDescription, time.Now(),
	); err != nil {
		_ = db.Close()
		s.state = stateFailed
		return fmt.Errorf("ensure collection: %w", err)
	}
	s.db = db
	s.state = stateReady
	if s.logger != nil {
		s.logger.Info("vector store ready", zap.String("path", s.path), zap.String("collection", CollectionName))
	}
	return nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS collections (
		name TEXT PRIMARY KEY,
		description TEXT,
		created_at TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		collection TEXT NOT NULL,
		content TEXT NOT NULL,
		embedding BLOB NOT NULL,
		source TEXT,
		chunk_index INTEGER,
		language TEXT,
		timestamp TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_records_collection ON records(collection);
	`
	_, err := db.Exec(schema)
	return err
}

// Add stores one record per chunk with a freshly generated id and metadata
// {source, chunk_index, language, timestamp}. Records are written in batches;
// a failed batch is logged and skipped while later batches still commit.
// Returns an error only when the store cannot be made ready or the inputs
// are inconsistent.
func (s *Store) Add(ctx context.Context, chunks []models.Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("chunks and embeddings length mismatch: %d != %d", len(chunks), len(embeddings))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureReadyLocked(); err != nil {
		return err
	}

	s.sink.Start("Menyimpan ke vector store", len(chunks))
	defer s.sink.Done()

	now := time.Now()
	for start := 0; start < len(chunks); start += s.batchSize {
		end := start + s.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		if err := s.addBatch(ctx, chunks[start:end], embeddings[start:end], now); err != nil {
			if s.logger != nil {
				s.logger.Error("add batch failed",
					zap.Int("batch_start", start),
					zap.Int("batch_size", end-start),
					zap.Error(err),
				)
			}
		}
		s.sink.Increment(end - start)
	}
	if s.logger != nil {
		s.logger.Info("records added", zap.Int("count", len(chunks)))
	}
	return nil
}

func (s *Store) addBatch(ctx context.Context, chunks []models.Chunk, embeddings [][]float32, now time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (id, collection, content, embedding, source, chunk_index, language, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, chunk := range chunks {
		if _, err := stmt.ExecContext(ctx,
			uuid.New().String(),
			CollectionName,
			chunk.Content,
			encodeEmbedding(embeddings[i]),
			chunk.Source,
			chunk.ChunkIndex,
			chunk.Language,
			now,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Search returns up to k nearest records by cosine distance, nearest first.
// Returns an empty slice, never an error, when the store is empty, unready,
// or the query fails.
func (s *Store) Search(ctx context.Context, queryEmbedding []float32, k int) []models.SearchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureReadyLocked(); err != nil {
		if s.logger != nil {
			s.logger.Error("search: store not ready", zap.Error(err))
		}
		return nil
	}
	if k <= 0 {
		return nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT content, embedding, source, chunk_index, language, timestamp
		 FROM records WHERE collection = ?`, CollectionName,
	)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("search query failed", zap.Error(err))
		}
		return nil
	}
	defer rows.Close()

	var results []models.SearchResult
	for rows.Next() {
		var content, source, language string
		var blob []byte
		var chunkIndex int
		var timestamp time.Time
		if err := rows.Scan(&content, &blob, &source, &chunkIndex, &language, &timestamp); err != nil {
			if s.logger != nil {
				s.logger.Error("search scan failed", zap.Error(err))
			}
			return nil
		}
		emb, err := decodeEmbedding(blob)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("skipping record with bad embedding", zap.Error(err))
			}
			continue
		}
		distance := 1.0 - utils.InnerProduct(queryEmbedding, emb)
		results = append(results, models.SearchResult{
			Content: content,
			Metadata: map[string]interface{}{
				"source":      source,
				"chunk_index": chunkIndex,
				"language":    language,
				"timestamp":   timestamp.Format(time.RFC3339),
			},
			Distance: &distance,
		})
	}
	if err := rows.Err(); err != nil {
		if s.logger != nil {
			s.logger.Error("search rows failed", zap.Error(err))
		}
		return nil
	}

	sort.SliceStable(results, func(i, j int) bool {
		return *results[i].Distance < *results[j].Distance
	})
	if len(results) > k {
		results = results[:k]
	}
	return results
}

// Count returns the number of stored records, or 0 on any failure.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureReadyLocked(); err != nil {
		return 0
	}
	var count int
	if err := s.db.QueryRow(
		`SELECT COUNT(*) FROM records WHERE collection = ?`, CollectionName,
	).Scan(&count); err != nil {
		if s.logger != nil {
			s.logger.Error("count failed", zap.Error(err))
		}
		return 0
	}
	return count
}

// CollectionExists reports whether the collection row is present. Returns
// false, never an error, on any failure.
func (s *Store) CollectionExists() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureReadyLocked(); err != nil {
		return false
	}
	var name string
	err := s.db.QueryRow(
		`SELECT name FROM collections WHERE name = ?`, CollectionName,
	).Scan(&name)
	return err == nil
}

// Close closes the database. The store can be reused afterwards; the next
// call re-initializes it.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = stateUninitialized
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
