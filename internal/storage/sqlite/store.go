package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"tidereport/internal/domain"

	_ "github.com/mattn/go-sqlite3"
)

// Store reads a locally synchronised snapshot of the active threat feed.
// The snapshot holds exactly one table with host, domain, ip, url, profile
// and class columns.
type Store struct {
	db    *sql.DB
	table string
}

var ErrTableLayout = errors.New("local database must contain exactly one table")

func Open(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("local database %s: %w", path, err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening local database %s: %w", path, err)
	}

	table, err := singleTable(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, table: table}, nil
}

func singleTable(db *sql.DB) (string, error) {
	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type = 'table'`)
	if err != nil {
		return "", fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return "", err
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	if len(tables) != 1 {
		return "", fmt.Errorf("%w, found %d", ErrTableLayout, len(tables))
	}
	return tables[0], nil
}

func (s *Store) Table() string { return s.table }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Lookup(ctx context.Context, typ domain.IndicatorType, value string) ([]domain.ThreatRecord, error) {
	var where string
	args := []any{value}
	switch typ {
	case domain.TypeHost:
		where = `host = ? OR domain = ?`
		args = append(args, value)
	case domain.TypeIP:
		where = `ip = ?`
	case domain.TypeURL:
		where = `url = ?`
	default:
		return nil, fmt.Errorf("unsupported indicator type %q for %s", typ, value)
	}

	query := fmt.Sprintf(`SELECT profile, "class" FROM %s WHERE %s`, quoteIdent(s.table), where)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", s.table, err)
	}
	defer rows.Close()

	var records []domain.ThreatRecord
	for rows.Next() {
		var profile, class sql.NullString
		if err := rows.Scan(&profile, &class); err != nil {
			return nil, err
		}
		records = append(records, domain.ThreatRecord{Profile: profile.String, Class: class.String})
	}
	return records, rows.Err()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
