package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kotae/internal/models"
)

// maxVars bounds the number of bind parameters per IN query.
const maxVars = 500

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
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

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS parents (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		kind TEXT,
		domain TEXT,
		content TEXT NOT NULL,
		metadata TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_parents_source ON parents(source);

	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		parent_id TEXT NOT NULL,
		text TEXT NOT NULL,
		domain TEXT,
		chunk_index INTEGER NOT NULL,
		FOREIGN KEY (parent_id) REFERENCES parents(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_parent ON chunks(parent_id, chunk_index);
	`
	_, err := db.Exec(schema)
	return err
}

// PutParent writes a parent and its chunks, replacing any previous chunks of that parent.
func (s *SQLiteStore) PutParent(ctx context.Context, doc *models.ParentDocument, chunks []*models.ChildChunk) error {
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE parent_id = ?`, doc.ID); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO parents (id, source, kind, domain, content, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Source, doc.Kind, doc.Domain, doc.Content, string(metadataJSON), doc.CreatedAt,
	)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (id, parent_id, text, domain, chunk_index) VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, c.ID, doc.ID, c.Text, c.Domain, c.ChunkIndex); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetParent returns a parent by id.
func (s *SQLiteStore) GetParent(ctx context.Context, id string) (*models.ParentDocument, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source, kind, domain, content, metadata, created_at FROM parents WHERE id = ?`, id)
	doc, err := scanParent(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", models.ErrParentNotFound, id)
	}
	return doc, err
}

// MGet fetches parents in batches. Duplicate ids are looked up once.
func (s *SQLiteStore) MGet(ctx context.Context, ids []string) (map[string]*models.ParentDocument, error) {
	out := make(map[string]*models.ParentDocument, len(ids))
	for _, batch := range batches(unique(ids)) {
		rows, err := s.db.QueryContext(ctx,
			`SELECT id, source, kind, domain, content, metadata, created_at FROM parents WHERE id IN (`+
				placeholders(len(batch))+`)`, toArgs(batch)...)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			doc, err := scanParent(rows)
			if err != nil {
				rows.Close()
				return nil, err
			}
			out[doc.ID] = doc
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// GetChunks returns the chunks found for ids.
func (s *SQLiteStore) GetChunks(ctx context.Context, ids []string) (map[string]*models.ChildChunk, error) {
	out := make(map[string]*models.ChildChunk, len(ids))
	for _, batch := range batches(unique(ids)) {
		rows, err := s.db.QueryContext(ctx,
			`SELECT id, parent_id, text, domain, chunk_index FROM chunks WHERE id IN (`+
				placeholders(len(batch))+`)`, toArgs(batch)...)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			c, err := scanChunk(rows)
			if err != nil {
				rows.Close()
				return nil, err
			}
			out[c.ID] = c
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ChunksByParent returns a parent's chunks ordered by chunk_index.
func (s *SQLiteStore) ChunksByParent(ctx context.Context, parentID string) ([]*models.ChildChunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, parent_id, text, domain, chunk_index FROM chunks WHERE parent_id = ? ORDER BY chunk_index`,
		parentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*models.ChildChunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// DeleteBySource removes all parents of source and their chunks.
func (s *SQLiteStore) DeleteBySource(ctx context.Context, source string) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT c.id FROM chunks c JOIN parents p ON p.id = c.parent_id WHERE p.source = ?`, source)
	if err != nil {
		return nil, err
	}
	var chunkIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		chunkIDs = append(chunkIDs, id)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM chunks WHERE parent_id IN (SELECT id FROM parents WHERE source = ?)`, source); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM parents WHERE source = ?`, source); err != nil {
		return nil, err
	}
	return chunkIDs, tx.Commit()
}

// ListSources returns the distinct sources, sorted.
func (s *SQLiteStore) ListSources(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT source FROM parents ORDER BY source`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sources []string
	for rows.Next() {
		var src string
		if err := rows.Scan(&src); err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// CountParents returns the total number of parent documents.
func (s *SQLiteStore) CountParents(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM parents`).Scan(&count)
	return count, err
}

// CountChunks returns the total number of chunks.
func (s *SQLiteStore) CountChunks(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanParent(row scanner) (*models.ParentDocument, error) {
	var doc models.ParentDocument
	var kind, domain, metadataJSON sql.NullString
	if err := row.Scan(&doc.ID, &doc.Source, &kind, &domain, &doc.Content, &metadataJSON, &doc.CreatedAt); err != nil {
		return nil, err
	}
	doc.Kind = kind.String
	doc.Domain = domain.String
	if metadataJSON.String != "" && metadataJSON.String != "null" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return &doc, nil
}

func scanChunk(row scanner) (*models.ChildChunk, error) {
	var c models.ChildChunk
	var domain sql.NullString
	if err := row.Scan(&c.ID, &c.ParentID, &c.Text, &domain, &c.ChunkIndex); err != nil {
		return nil, err
	}
	c.Domain = domain.String
	return &c, nil
}

func unique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func batches(ids []string) [][]string {
	var out [][]string
	for len(ids) > maxVars {
		out = append(out, ids[:maxVars])
		ids = ids[maxVars:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func toArgs(ids []string) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
