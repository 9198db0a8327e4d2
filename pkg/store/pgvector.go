package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/xhad/docqa/internal/models"
	"github.com/xhad/docqa/pkg/logger"
)

type PGVectorConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
	Lists      int // ivfflat lists
	Logger     *slog.Logger
}

type PGVectorStore struct {
	config PGVectorConfig
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewPGVector(ctx context.Context, config PGVectorConfig) (*PGVectorStore, error) {
	if config.TableName == "" {
		config.TableName = "doc_qa"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768
	}
	if config.Lists == 0 {
		config.Lists = 100
	}
	if config.Logger == nil {
		config.Logger = logger.Nop()
	}
	if config.ConnString == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	vs := &PGVectorStore{
		config: config,
		pool:   pool,
		logger: config.Logger,
	}

	if err := vs.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	vs.logger.Info("pgvector store initialized", "table", config.TableName, "dimensions", config.VectorDim)

	return vs, nil
}

func (vs *PGVectorStore) table() string {
	return pgx.Identifier{vs.config.TableName}.Sanitize()
}

func (vs *PGVectorStore) initialize(ctx context.Context) error {
	// Enable pgvector extension
	_, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			filename TEXT,
			content TEXT,
			chunk_index INTEGER,
			embedding vector(%d)
		)`, vs.table(), vs.config.VectorDim)

	if _, err := vs.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = %d)`,
		pgx.Identifier{vs.config.TableName + "_embedding_idx"}.Sanitize(), vs.table(), vs.config.Lists)

	if _, err := vs.pool.Exec(ctx, createIndex); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	createDocIndex := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (document_id)`,
		pgx.Identifier{vs.config.TableName + "_document_id_idx"}.Sanitize(), vs.table())

	if _, err := vs.pool.Exec(ctx, createDocIndex); err != nil {
		return fmt.Errorf("failed to create document index: %w", err)
	}

	return nil
}

// Upsert writes records in one transaction; an existing id is overwritten.
func (vs *PGVectorStore) Upsert(ctx context.Context, records []models.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, document_id, filename, content, chunk_index, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			document_id = EXCLUDED.document_id,
			filename = EXCLUDED.filename,
			content = EXCLUDED.content,
			chunk_index = EXCLUDED.chunk_index,
			embedding = EXCLUDED.embedding`,
		vs.table())

	for _, r := range records {
		if err := checkDimension(r.Values, vs.config.VectorDim); err != nil {
			return fmt.Errorf("record %s: %w", r.ID, err)
		}

		_, err = tx.Exec(ctx, stmt,
			r.ID,
			r.Metadata.DocumentID,
			r.Metadata.Filename,
			r.Metadata.Text,
			r.Metadata.ChunkIndex,
			pgvector.NewVector(r.Values),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert record %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	vs.logger.Debug("upserted records", "count", len(records))

	return nil
}

// Query returns the topK nearest records. With a documentID the ivfflat
// index is probed across all lists, since the filter is applied after the
// index scan and a single probed list rarely holds rows of one document.
func (vs *PGVectorStore) Query(ctx context.Context, embedding []float32, topK int, documentID string) ([]models.Match, error) {
	if topK <= 0 {
		topK = 3
	}

	query, args := buildPGQuery(vs.table(), pgvector.NewVector(embedding), topK, documentID)

	if documentID == "" {
		rows, err := vs.pool.Query(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to query records: %w", err)
		}
		return scanMatches(rows)
	}

	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, probesStatement(vs.config.Lists)); err != nil {
		return nil, fmt.Errorf("failed to set ivfflat probes: %w", err)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	matches, err := scanMatches(rows)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return matches, nil
}

func scanMatches(rows pgx.Rows) ([]models.Match, error) {
	defer rows.Close()

	var matches []models.Match
	for rows.Next() {
		var (
			m     models.Match
			score float64
		)
		err := rows.Scan(
			&m.ID,
			&m.Metadata.DocumentID,
			&m.Metadata.Filename,
			&m.Metadata.Text,
			&m.Metadata.ChunkIndex,
			&score,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		m.Score = float32(score)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	return matches, nil
}

// probesStatement scopes ivfflat.probes to the current transaction. Probing
// every list makes the scan exact.
func probesStatement(lists int) string {
	if lists < 1 {
		lists = 1
	}
	return fmt.Sprintf("SET LOCAL ivfflat.probes = %d", lists)
}

// buildPGQuery orders by cosine distance; score is 1 - distance.
func buildPGQuery(table string, embedding pgvector.Vector, topK int, documentID string) (string, []any) {
	args := []any{embedding, topK}
	where := ""
	if documentID != "" {
		where = "WHERE document_id = $3"
		args = append(args, documentID)
	}

	query := fmt.Sprintf(`
		SELECT id, document_id, COALESCE(filename, ''), COALESCE(content, ''), COALESCE(chunk_index, 0),
			1 - (embedding <=> $1) AS score
		FROM %s
		%s
		ORDER BY embedding <=> $1
		LIMIT $2`,
		table, where)

	return query, args
}

func (vs *PGVectorStore) Close() error {
	if vs.pool != nil {
		vs.pool.Close()
	}
	return nil
}
