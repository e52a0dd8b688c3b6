package dataset

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/inodb/gene-map/internal/idmap"
)

// LoadTable parses an id-mapping file (gzipped or plain) into a reference table.
func LoadTable(path string, logger *zap.Logger) (*idmap.Table, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	b := idmap.NewTableBuilder()
	if err := idmap.ParseRows(r, b); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if b.Skipped() > 0 {
		logger.Warn("skipped id mapping rows with empty fields",
			zap.String("path", path),
			zap.Int("skipped", b.Skipped()))
	}
	return b.Build(), nil
}
