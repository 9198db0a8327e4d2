package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
	"github.com/xhad/docqa/internal/models"
	"github.com/xhad/docqa/pkg/logger"
)

type SQLiteVecConfig struct {
	// DBPath is the SQLite database file. ":memory:" keeps everything in memory.
	DBPath    string
	VectorDim int
	Logger    *slog.Logger
}

// SQLiteVecStore keeps vectors in a sqlite-vec vec0 table and chunk metadata
// in a regular table sharing its rowid.
type SQLiteVecStore struct {
	config SQLiteVecConfig
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteVec(config SQLiteVecConfig) (*SQLiteVecStore, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if config.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if config.VectorDim <= 0 {
		return nil, fmt.Errorf("sqlite-vec embedding dimensions must be positive")
	}
	if config.Logger == nil {
		config.Logger = logger.Nop()
	}

	db, err := sql.Open("sqlite3", config.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection, so ":memory:" databases are shared by every query.
	db.SetMaxOpenConns(1)

	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS vec_chunks (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			doc_id TEXT NOT NULL UNIQUE,
			document_id TEXT NOT NULL,
			filename TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '',
			chunk_index INTEGER NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating chunks table: %w", err)
	}

	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS vec_chunks_document_id ON vec_chunks (document_id)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating document index: %w", err)
	}

	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS vec_embeddings USING vec0(embedding float[%d])`,
		config.VectorDim,
	)
	if _, err := db.Exec(createVec); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating vec0 table: %w", err)
	}

	config.Logger.Info("sqlite-vec store initialized",
		"db_path", config.DBPath,
		"dimensions", config.VectorDim,
		"vec_version", vecVersion,
	)

	return &SQLiteVecStore{
		config: config,
		db:     db,
		logger: config.Logger,
	}, nil
}

// serializeFloat32 encodes v as the little-endian BLOB sqlite-vec expects.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Upsert stores records. vec0 has no UPDATE, so an existing embedding is
// deleted and re-inserted under the same rowid.
func (s *SQLiteVecStore) Upsert(ctx context.Context, records []models.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, r := range records {
		if err := checkDimension(r.Values, s.config.VectorDim); err != nil {
			return fmt.Errorf("record %s: %w", r.ID, err)
		}
		blob := serializeFloat32(r.Values)

		var rowID int64
		err = tx.QueryRowContext(ctx, `SELECT rowid FROM vec_chunks WHERE doc_id = ?`, r.ID).Scan(&rowID)

		switch err {
		case nil:
			if _, err := tx.ExecContext(ctx,
				`UPDATE vec_chunks SET document_id = ?, filename = ?, content = ?, chunk_index = ? WHERE rowid = ?`,
				r.Metadata.DocumentID, r.Metadata.Filename, r.Metadata.Text, r.Metadata.ChunkIndex, rowID,
			); err != nil {
				return fmt.Errorf("updating record %s: %w", r.ID, err)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM vec_embeddings WHERE rowid = ?`, rowID); err != nil {
				return fmt.Errorf("deleting old embedding for %s: %w", r.ID, err)
			}
		case sql.ErrNoRows:
			result, err := tx.ExecContext(ctx,
				`INSERT INTO vec_chunks(doc_id, document_id, filename, content, chunk_index) VALUES (?, ?, ?, ?, ?)`,
				r.ID, r.Metadata.DocumentID, r.Metadata.Filename, r.Metadata.Text, r.Metadata.ChunkIndex,
			)
			if err != nil {
				return fmt.Errorf("inserting record %s: %w", r.ID, err)
			}
			rowID, err = result.LastInsertId()
			if err != nil {
				return fmt.Errorf("getting rowid for %s: %w", r.ID, err)
			}
		default:
			return fmt.Errorf("checking for existing record %s: %w", r.ID, err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO vec_embeddings(rowid, embedding) VALUES (?, ?)`, rowID, blob,
		); err != nil {
			return fmt.Errorf("inserting embedding for %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Debug("upserted records to sqlite-vec", "count", len(records))

	return nil
}

// Query ranks stored chunks by cosine distance to embedding, optionally
// restricted to one document.
func (s *SQLiteVecStore) Query(ctx context.Context, embedding []float32, topK int, documentID string) ([]models.Match, error) {
	if err := checkDimension(embedding, s.config.VectorDim); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = 3
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT
			c.doc_id,
			c.document_id,
			c.filename,
			c.content,
			c.chunk_index,
			vec_distance_cosine(e.embedding, ?) AS distance
		FROM vec_embeddings e
		INNER JOIN vec_chunks c ON c.rowid = e.rowid
		WHERE (? = '' OR c.document_id = ?)
		ORDER BY distance
		LIMIT ?
	`, serializeFloat32(embedding), documentID, documentID, topK)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var matches []models.Match
	for rows.Next() {
		var (
			m        models.Match
			distance float64
		)
		if err := rows.Scan(
			&m.ID,
			&m.Metadata.DocumentID,
			&m.Metadata.Filename,
			&m.Metadata.Text,
			&m.Metadata.ChunkIndex,
			&distance,
		); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}
		m.Score = float32(1 - distance)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}

	return matches, nil
}

func (s *SQLiteVecStore) Close() error {
	return s.db.Close()
}
