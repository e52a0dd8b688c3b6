package duckdb

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"
)

// FileFingerprint holds stat-based identity for a source file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Matches reports whether two fingerprints describe the same file contents.
// The path is ignored so a cache directory can be moved.
func (f FileFingerprint) Matches(o FileFingerprint) bool {
	return f.Size == o.Size && f.ModTime.Equal(o.ModTime)
}

// Fingerprint returns the fingerprint of the file the table was imported
// from. ok is false if nothing has been imported.
func (s *Store) Fingerprint() (fp FileFingerprint, ok bool, err error) {
	var modTime string
	err = s.db.QueryRow(`SELECT path, size, mod_time FROM idmapping_source LIMIT 1`).
		Scan(&fp.Path, &fp.Size, &modTime)
	if errors.Is(err, sql.ErrNoRows) {
		return FileFingerprint{}, false, nil
	}
	if err != nil {
		return FileFingerprint{}, false, fmt.Errorf("read source fingerprint: %w", err)
	}
	fp.ModTime, err = time.Parse(time.RFC3339Nano, modTime)
	if err != nil {
		return FileFingerprint{}, false, fmt.Errorf("parse source fingerprint: %w", err)
	}
	return fp, true, nil
}

// Valid reports whether the stored table was imported from a file matching fp.
func (s *Store) Valid(fp FileFingerprint) bool {
	stored, ok, err := s.Fingerprint()
	return err == nil && ok && stored.Matches(fp)
}

func (s *Store) writeFingerprint(tx *sql.Tx, fp FileFingerprint) error {
	if _, err := tx.Exec(`DELETE FROM idmapping_source`); err != nil {
		return err
	}
	_, err := tx.Exec(`INSERT INTO idmapping_source VALUES (?, ?, ?, ?)`,
		fp.Path, fp.Size, fp.ModTime.UTC().Format(time.RFC3339Nano),
		time.Now().UTC().Format(time.RFC3339))
	return err
}
