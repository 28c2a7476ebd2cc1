package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS diagrams (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL DEFAULT '',
	title        TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	diagram_type TEXT NOT NULL DEFAULT '',
	mermaid_code TEXT NOT NULL DEFAULT '',
	is_public    INTEGER NOT NULL DEFAULT 0,
	created_at   INTEGER NOT NULL,
	updated_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_diagrams_created ON diagrams(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_diagrams_user ON diagrams(user_id);

CREATE TABLE IF NOT EXISTS diagram_versions (
	id                 TEXT PRIMARY KEY,
	diagram_id         TEXT NOT NULL,
	mermaid_code       TEXT NOT NULL DEFAULT '',
	change_description TEXT NOT NULL DEFAULT '',
	created_at         INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_versions_diagram ON diagram_versions(diagram_id, created_at DESC);
`

const diagramColumns = `id, user_id, title, description, diagram_type, mermaid_code, is_public, created_at, updated_at`

// SQLite is a Store backed by a SQLite database file.
type SQLite struct {
	db   *sql.DB
	opts options
}

// OpenSQLite opens (creating if needed) the database at path.
// Use ":memory:" for a throwaway database.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: sqlite path is required", ErrInvalid)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLite{db: db, opts: defaultOptions(opts)}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDiagram(row rowScanner) (Diagram, error) {
	var (
		d                Diagram
		isPublic         int
		created, updated int64
	)
	err := row.Scan(&d.ID, &d.UserID, &d.Title, &d.Description, &d.DiagramType,
		&d.Code, &isPublic, &created, &updated)
	if err != nil {
		return Diagram{}, err
	}
	d.IsPublic = isPublic != 0
	d.CreatedAt = time.Unix(0, created).UTC()
	d.UpdatedAt = time.Unix(0, updated).UTC()
	return d, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ListDiagrams implements Store.
func (s *SQLite) ListDiagrams(ctx context.Context, userID string) ([]Diagram, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+diagramColumns+` FROM diagrams
		 WHERE is_public = 1 OR (? <> '' AND user_id = ?)
		 ORDER BY created_at DESC`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("listing diagrams: %w", err)
	}
	defer rows.Close()

	result := []Diagram{}
	for rows.Next() {
		d, err := scanDiagram(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning diagram: %w", err)
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

// GetDiagram implements Store.
func (s *SQLite) GetDiagram(ctx context.Context, id string) (*Diagram, error) {
	return s.getDiagram(ctx, s.db, id)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLite) getDiagram(ctx context.Context, q querier, id string) (*Diagram, error) {
	d, err := scanDiagram(q.QueryRowContext(ctx,
		`SELECT `+diagramColumns+` FROM diagrams WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting diagram: %w", err)
	}
	return &d, nil
}

// CreateDiagram implements Store.
func (s *SQLite) CreateDiagram(ctx context.Context, d *Diagram) (*Diagram, error) {
	out, err := s.opts.prepareDiagram(d)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO diagrams (`+diagramColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		out.ID, out.UserID, out.Title, out.Description, out.DiagramType, out.Code,
		boolInt(out.IsPublic), out.CreatedAt.UnixNano(), out.UpdatedAt.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("inserting diagram: %w", err)
	}
	return &out, nil
}

// UpdateDiagram implements Store.
func (s *SQLite) UpdateDiagram(ctx context.Context, id string, p Patch) (*Diagram, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning update: %w", err)
	}
	defer tx.Rollback()

	current, err := s.getDiagram(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	updated, err := p.apply(*current, s.opts.now())
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE diagrams SET title = ?, description = ?, diagram_type = ?, mermaid_code = ?,
		 is_public = ?, updated_at = ? WHERE id = ?`,
		updated.Title, updated.Description, updated.DiagramType, updated.Code,
		boolInt(updated.IsPublic), updated.UpdatedAt.UnixNano(), id)
	if err != nil {
		return nil, fmt.Errorf("updating diagram: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing update: %w", err)
	}
	return &updated, nil
}

// DeleteDiagram implements Store.
func (s *SQLite) DeleteDiagram(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning delete: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM diagrams WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting diagram: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM diagram_versions WHERE diagram_id = ?`, id); err != nil {
		return fmt.Errorf("deleting versions: %w", err)
	}
	return tx.Commit()
}

// CreateVersion implements Store.
func (s *SQLite) CreateVersion(ctx context.Context, v *Version) (*Version, error) {
	out, err := s.opts.prepareVersion(v)
	if err != nil {
		return nil, err
	}
	if _, err := s.GetDiagram(ctx, out.DiagramID); err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO diagram_versions (id, diagram_id, mermaid_code, change_description, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		out.ID, out.DiagramID, out.Code, out.ChangeDescription, out.CreatedAt.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("inserting version: %w", err)
	}
	return &out, nil
}

// ListVersions implements Store.
func (s *SQLite) ListVersions(ctx context.Context, diagramID string) ([]Version, error) {
	if _, err := s.GetDiagram(ctx, diagramID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, diagram_id, mermaid_code, change_description, created_at
		 FROM diagram_versions WHERE diagram_id = ? ORDER BY created_at DESC`, diagramID)
	if err != nil {
		return nil, fmt.Errorf("listing versions: %w", err)
	}
	defer rows.Close()

	result := []Version{}
	for rows.Next() {
		var (
			v       Version
			created int64
		)
		if err := rows.Scan(&v.ID, &v.DiagramID, &v.Code, &v.ChangeDescription, &created); err != nil {
			return nil, fmt.Errorf("scanning version: %w", err)
		}
		v.CreatedAt = time.Unix(0, created).UTC()
		result = append(result, v)
	}
	return result, rows.Err()
}

// Close implements Store.
func (s *SQLite) Close() error {
	return s.db.Close()
}
