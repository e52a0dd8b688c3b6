package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/inodb/gene-map/internal/dataset"
	"github.com/inodb/gene-map/internal/duckdb"
	"github.com/inodb/gene-map/internal/idmap"
)

// fetcher returns a dataset fetcher reporting to stderr unless quiet.
func (a *app) fetcher() *dataset.Fetcher {
	f := dataset.NewFetcher()
	f.SetLogger(a.logger)
	if a.baseURL != "" {
		f.SetBaseURL(a.baseURL)
	}
	var status io.Writer = a.stderr
	if a.v.GetBool("quiet") {
		status = io.Discard
	}
	f.SetStatus(status)
	return f
}

// ensureDataset validates the configured organism and returns the path of
// its id-mapping file, downloading it if needed.
func (a *app) ensureDataset(ctx context.Context) (organism, path string, err error) {
	organism = a.v.GetString("organism")
	if err := dataset.Validate(organism); err != nil {
		return "", "", err
	}
	path, err = a.fetcher().Ensure(ctx, organism, a.cacheDir())
	if err != nil {
		return "", "", fmt.Errorf("fetching id mapping for %s: %w", organism, err)
	}
	return organism, path, nil
}

// loadMapper builds an id mapper for the configured organism.
func (a *app) loadMapper(ctx context.Context) (*idmap.Mapper, error) {
	organism, path, err := a.ensureDataset(ctx)
	if err != nil {
		return nil, err
	}

	var tbl *idmap.Table
	if a.v.GetBool("duckdb") {
		tbl, err = a.loadViaDuckDB(path, a.duckDBPath(organism))
	} else {
		tbl, err = dataset.LoadTable(path, a.logger)
	}
	if err != nil {
		return nil, err
	}

	a.logger.Debug("loaded id mapping",
		zap.String("organism", organism),
		zap.Int("rows", tbl.Len()))
	return idmap.New(tbl, idmap.WithLogger(a.logger))
}

func (a *app) duckDBPath(organism string) string {
	return filepath.Join(a.cacheDir(), organism+".duckdb")
}

// importDuckDB opens the DuckDB copy of the id-mapping table at dbPath,
// re-importing srcPath if the copy is missing or stale. The caller must
// close the store.
func (a *app) importDuckDB(srcPath, dbPath string) (*duckdb.Store, error) {
	fp, err := duckdb.StatFile(srcPath)
	if err != nil {
		return nil, fmt.Errorf("stat id mapping file: %w", err)
	}

	store, err := duckdb.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening DuckDB cache: %w", err)
	}
	store.SetLogger(a.logger)

	if store.Valid(fp) {
		a.logger.Debug("DuckDB cache valid", zap.String("path", dbPath))
		return store, nil
	}

	a.logger.Debug("importing id mapping into DuckDB",
		zap.String("source", srcPath),
		zap.String("path", dbPath))
	if err := store.Import(srcPath, fp); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

func (a *app) loadViaDuckDB(srcPath, dbPath string) (*idmap.Table, error) {
	store, err := a.importDuckDB(srcPath, dbPath)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	b := idmap.NewTableBuilder()
	if _, err := store.LoadInto(b); err != nil {
		return nil, err
	}
	if b.Skipped() > 0 {
		a.logger.Warn("skipped id mapping rows with empty fields",
			zap.String("path", srcPath),
			zap.Int("skipped", b.Skipped()))
	}
	return b.Build(), nil
}
