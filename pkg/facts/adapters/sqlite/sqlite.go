package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lexlapax/memvault/pkg/facts"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS facts (
	id TEXT PRIMARY KEY,
	content TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT ''
);
`

// factRow is the database representation of a fact.
type factRow struct {
	ID       string `db:"id"`
	Content  string `db:"content"`
	Category string `db:"category"`
}

// SQLiteSource implements facts.Source using an embedded SQLite database.
type SQLiteSource struct {
	db *sqlx.DB
}

// NewSQLiteSource creates a new SQLiteSource with the given database connection.
func NewSQLiteSource(db *sqlx.DB) *SQLiteSource {
	return &SQLiteSource{
		db: db,
	}
}

// Open opens (or creates) a SQLite-backed fact source at path.
func Open(path string) (*SQLiteSource, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	source := NewSQLiteSource(db)
	if err := source.Initialize(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return source, nil
}

// Initialize creates the facts table if it doesn't exist.
func (s *SQLiteSource) Initialize(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize facts schema: %w", err)
	}
	return nil
}

// Put stores a fact.
func (s *SQLiteSource) Put(ctx context.Context, f facts.Fact) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO facts (id, content, category) VALUES (?, ?, ?)`,
		uuid.New().String(), f.Content, f.Category,
	)
	if err != nil {
		return fmt.Errorf("failed to store fact: %w", err)
	}
	return nil
}

// Search returns the stored facts sharing a keyword with the given set. The
// SQL pass narrows candidates with LIKE; the token-level overlap check runs in
// Go so that "travel" does not match "traveling" differently per backend.
func (s *SQLiteSource) Search(ctx context.Context, keywords []string) ([]facts.Fact, error) {
	if len(keywords) == 0 {
		return nil, nil
	}

	queryBuilder := strings.Builder{}
	queryBuilder.WriteString(`SELECT id, content, category FROM facts WHERE 0=1`)

	params := make([]interface{}, 0, len(keywords)*2)
	for _, kw := range keywords {
		queryBuilder.WriteString(` OR content LIKE ? OR category LIKE ?`)
		pattern := "%" + strings.ToLower(kw) + "%"
		params = append(params, pattern, pattern)
	}

	var rows []factRow
	if err := s.db.SelectContext(ctx, &rows, queryBuilder.String(), params...); err != nil {
		return nil, fmt.Errorf("failed to query facts: %w", err)
	}

	var matched []facts.Fact
	for _, row := range rows {
		f := facts.Fact{Content: row.Content, Category: row.Category}
		if facts.Matches(f, keywords) {
			matched = append(matched, f)
		}
	}

	return matched, nil
}

// Close releases the underlying database handle.
func (s *SQLiteSource) Close() error {
	return s.db.Close()
}
