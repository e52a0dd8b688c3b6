package idmap

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strings"
)

// Row is a single reference table entry.
type Row struct {
	Canonical string // normalized canonical accession (e.g. P04637)
	Scheme    string // external naming scheme (e.g. Gene_Name)
	External  string // id in that scheme (e.g. TP53)
}

// Table is an immutable reference table indexed by canonical and external id.
// Build one with a TableBuilder or LoadTable.
type Table struct {
	rows        []Row
	byCanonical map[string][]int
	byExternal  map[string][]int
	schemes     []string
}

// TableBuilder accumulates rows for a Table.
type TableBuilder struct {
	rows    []Row
	skipped int
}

// NewTableBuilder creates an empty builder.
func NewTableBuilder() *TableBuilder {
	return &TableBuilder{}
}

// Add appends a row, normalizing the canonical id. Rows with an empty field
// are skipped and Add returns false.
func (b *TableBuilder) Add(canonical, scheme, external string) bool {
	if canonical == "" || scheme == "" || external == "" {
		b.skipped++
		return false
	}
	b.rows = append(b.rows, Row{
		Canonical: Normalize(canonical),
		Scheme:    scheme,
		External:  external,
	})
	return true
}

// Len returns the number of rows added so far.
func (b *TableBuilder) Len() int {
	return len(b.rows)
}

// Skipped returns the number of rows rejected by Add.
func (b *TableBuilder) Skipped() int {
	return b.skipped
}

// Build indexes the accumulated rows and returns the table. The builder is
// reset and may be reused.
func (b *TableBuilder) Build() *Table {
	t := &Table{
		rows:        b.rows,
		byCanonical: make(map[string][]int),
		byExternal:  make(map[string][]int),
	}
	b.rows = nil
	b.skipped = 0

	seen := make(map[string]struct{})
	for i, r := range t.rows {
		t.byCanonical[r.Canonical] = append(t.byCanonical[r.Canonical], i)
		t.byExternal[r.External] = append(t.byExternal[r.External], i)
		if _, ok := seen[r.Scheme]; !ok {
			seen[r.Scheme] = struct{}{}
			t.schemes = append(t.schemes, r.Scheme)
		}
	}
	slices.Sort(t.schemes)
	return t
}

// ParseRows reads tab-separated canonical_id, scheme, external_id lines (no
// header) from r into b. Blank lines are ignored.
func ParseRows(r io.Reader, b *TableBuilder) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) != 3 {
			return fmt.Errorf("line %d: expected 3 tab-separated fields, got %d", lineNum, len(fields))
		}
		b.Add(fields[0], fields[1], fields[2])
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read reference rows: %w", err)
	}
	return nil
}

// LoadTable parses a reference table from r.
func LoadTable(r io.Reader) (*Table, error) {
	b := NewTableBuilder()
	if err := ParseRows(r, b); err != nil {
		return nil, err
	}
	return b.Build(), nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Row returns the i-th row in load order.
func (t *Table) Row(i int) Row {
	return t.rows[i]
}

// Schemes returns the distinct schemes in the table in ascending order.
func (t *Table) Schemes() []string {
	return slices.Clone(t.schemes)
}

// HasCanonical reports whether id is a (normalized) canonical id in the table.
func (t *Table) HasCanonical(id string) bool {
	_, ok := t.byCanonical[id]
	return ok
}

// lookup returns the ascending, unique row indices whose key is in ids.
func lookup(index map[string][]int, ids []string) []int {
	seen := make(map[string]struct{}, len(ids))
	var rows []int
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		rows = append(rows, index[id]...)
	}
	slices.Sort(rows)
	return rows
}
