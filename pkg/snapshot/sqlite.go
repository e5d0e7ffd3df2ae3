package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps generations in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path and
// enables WAL mode.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("schema migration failed: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS generations (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		seq INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		digest TEXT NOT NULL,
		cell_ids JSON NOT NULL,
		nodes INTEGER NOT NULL,
		edges INTEGER NOT NULL,
		UNIQUE (name, seq)
	);
	CREATE INDEX IF NOT EXISTS idx_generations_name_seq ON generations(name, seq DESC);
	`)
	return err
}

func (s *SQLiteStore) Record(ctx context.Context, g *Generation) error {
	ids, err := json.Marshal(g.CellIDs)
	if err != nil {
		return fmt.Errorf("marshal cell ids: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var last sql.NullInt64
	if err := tx.QueryRowContext(ctx, `SELECT MAX(seq) FROM generations WHERE name = ?`, g.Name).Scan(&last); err != nil {
		return fmt.Errorf("next seq: %w", err)
	}
	g.assign(int(last.Int64) + 1)

	_, err = tx.ExecContext(ctx,
		`INSERT INTO generations (id, name, seq, created_at, digest, cell_ids, nodes, edges)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.Name, g.Seq, g.CreatedAt.UTC().Format(time.RFC3339Nano), g.Digest, string(ids), g.Nodes, g.Edges)
	if err != nil {
		return fmt.Errorf("insert generation: %w", err)
	}
	return tx.Commit()
}

const selectGeneration = `SELECT id, name, seq, created_at, digest, cell_ids, nodes, edges FROM generations`

type scanner interface {
	Scan(dest ...any) error
}

func scanGeneration(row scanner) (Generation, error) {
	var (
		g       Generation
		created string
		ids     string
	)
	if err := row.Scan(&g.ID, &g.Name, &g.Seq, &created, &g.Digest, &ids, &g.Nodes, &g.Edges); err != nil {
		return Generation{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return Generation{}, fmt.Errorf("parse created_at: %w", err)
	}
	g.CreatedAt = t
	if err := json.Unmarshal([]byte(ids), &g.CellIDs); err != nil {
		return Generation{}, fmt.Errorf("parse cell ids: %w", err)
	}
	return g, nil
}

func (s *SQLiteStore) Latest(ctx context.Context, name string) (*Generation, error) {
	row := s.db.QueryRowContext(ctx, selectGeneration+` WHERE name = ? ORDER BY seq DESC LIMIT 1`, name)
	g, err := scanGeneration(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *SQLiteStore) Get(ctx context.Context, name string, seq int) (*Generation, error) {
	row := s.db.QueryRowContext(ctx, selectGeneration+` WHERE name = ? AND seq = ?`, name, seq)
	g, err := scanGeneration(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *SQLiteStore) List(ctx context.Context, name string, limit int) ([]Generation, error) {
	rows, err := s.db.QueryContext(ctx, selectGeneration+` WHERE name = ? ORDER BY seq DESC LIMIT ?`, name, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	defer rows.Close()

	var out []Generation
	for rows.Next() {
		g, err := scanGeneration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
