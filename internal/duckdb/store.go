// Package duckdb keeps an indexed copy of a UniProt id-mapping table in
// DuckDB, so repeated runs skip re-parsing the gzipped source file.
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/inodb/gene-map/internal/idmap"
)

// Store manages a DuckDB connection holding one id-mapping table.
type Store struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path, logger: zap.NewNop()}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SetLogger sets the logger for import statistics.
func (s *Store) SetLogger(l *zap.Logger) {
	s.logger = l
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS idmapping (
		accession VARCHAR,
		id_type VARCHAR,
		id VARCHAR
	)`); err != nil {
		return err
	}
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS idmapping_source (
		path VARCHAR,
		size BIGINT,
		mod_time VARCHAR,
		imported_at VARCHAR
	)`)
	return err
}

// Import replaces the stored table with the rows of a tab-separated
// id-mapping file (accession, id type, id; no header). Gzipped files are
// decompressed by DuckDB. fp is recorded for Valid.
func (s *Store) Import(tsvPath string, fp FileFingerprint) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM idmapping`); err != nil {
		return fmt.Errorf("clear id mapping: %w", err)
	}

	query := fmt.Sprintf(`INSERT INTO idmapping
		SELECT accession, id_type, id
		FROM read_csv('%s', delim='\t', quote='', escape='', header=false,
			columns={
				'accession': 'VARCHAR',
				'id_type': 'VARCHAR',
				'id': 'VARCHAR'
			})`, strings.ReplaceAll(tsvPath, "'", "''"))

	res, err := tx.Exec(query)
	if err != nil {
		return fmt.Errorf("loading id mapping data: %w", err)
	}
	if err := s.writeFingerprint(tx, fp); err != nil {
		return fmt.Errorf("write source fingerprint: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil {
		s.logger.Debug("imported id mapping",
			zap.String("source", tsvPath),
			zap.Int64("rows", n))
	}
	return nil
}

// Count returns the number of stored rows.
func (s *Store) Count() (int64, error) {
	var count int64
	err := s.db.QueryRow("SELECT COUNT(*) FROM idmapping").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count id mapping rows: %w", err)
	}
	return count, nil
}

// Schemes returns the distinct id types of complete rows in ascending order,
// matching the schemes of the table LoadInto builds.
func (s *Store) Schemes() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT id_type FROM idmapping
		WHERE coalesce(accession, '') <> ''
			AND coalesce(id_type, '') <> ''
			AND coalesce(id, '') <> ''
		ORDER BY id_type`)
	if err != nil {
		return nil, fmt.Errorf("query id types: %w", err)
	}
	defer rows.Close()

	var schemes []string
	for rows.Next() {
		var scheme string
		if err := rows.Scan(&scheme); err != nil {
			return nil, fmt.Errorf("scan id type: %w", err)
		}
		schemes = append(schemes, scheme)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate id types: %w", err)
	}
	return schemes, nil
}

// LoadInto streams the stored rows, in source file order, into b.
// NULL fields (missing columns in the source) are passed as empty strings,
// which the builder skips. It returns the number of rows read.
func (s *Store) LoadInto(b *idmap.TableBuilder) (int, error) {
	rows, err := s.db.Query(`SELECT
		coalesce(accession, ''), coalesce(id_type, ''), coalesce(id, '')
		FROM idmapping ORDER BY rowid`)
	if err != nil {
		return 0, fmt.Errorf("query id mapping: %w", err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var acc, idType, id string
		if err := rows.Scan(&acc, &idType, &id); err != nil {
			return n, fmt.Errorf("scan id mapping row: %w", err)
		}
		b.Add(acc, idType, id)
		n++
	}
	if err := rows.Err(); err != nil {
		return n, fmt.Errorf("iterate id mapping: %w", err)
	}
	return n, nil
}
