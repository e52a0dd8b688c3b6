package idmap

import (
	"fmt"
	"io"
	"slices"

	"go.uber.org/zap"
)

// Reserved scheme names.
const (
	DefaultCanonicalScheme = "ACC"  // UniProtKB accession
	DefaultAutoScheme      = "auto" // infer the source scheme per id
)

// Mapper translates ids between the schemes of a reference table.
// A Mapper never modifies its table, so Query is safe for concurrent use.
type Mapper struct {
	table     *Table
	canonical string
	auto      string
	valid     []string
	validSet  map[string]struct{}
	logger    *zap.Logger
}

// Option configures a Mapper.
type Option func(*Mapper)

// WithCanonicalScheme sets the name of the canonical scheme (default "ACC").
func WithCanonicalScheme(name string) Option {
	return func(m *Mapper) { m.canonical = name }
}

// WithAutoScheme sets the name of the auto-detect pseudo-scheme (default "auto").
func WithAutoScheme(name string) Option {
	return func(m *Mapper) { m.auto = name }
}

// WithLogger sets the logger for debug messages.
func WithLogger(l *zap.Logger) Option {
	return func(m *Mapper) { m.logger = l }
}

// New creates a Mapper over t.
func New(t *Table, opts ...Option) (*Mapper, error) {
	m := &Mapper{
		table:     t,
		canonical: DefaultCanonicalScheme,
		auto:      DefaultAutoScheme,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}

	schemes := t.Schemes()
	if err := m.setSchemes(schemes); err != nil {
		return nil, err
	}

	m.logger.Debug("id mapper ready",
		zap.Int("rows", t.Len()),
		zap.Int("schemes", len(schemes)))
	return m, nil
}

// ListSchemes returns the schemes a Mapper with opts would accept over a
// table holding the given sorted schemes, in ValidSchemes order.
func ListSchemes(schemes []string, opts ...Option) ([]string, error) {
	m := &Mapper{canonical: DefaultCanonicalScheme, auto: DefaultAutoScheme}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.setSchemes(schemes); err != nil {
		return nil, err
	}
	return m.ValidSchemes(), nil
}

func (m *Mapper) setSchemes(schemes []string) error {
	if m.canonical == "" || m.auto == "" || m.canonical == m.auto {
		return fmt.Errorf("%w: canonical %q, auto %q", ErrReservedScheme, m.canonical, m.auto)
	}
	for _, s := range schemes {
		if s == m.canonical || s == m.auto {
			return fmt.Errorf("%w: table contains scheme %q", ErrReservedScheme, s)
		}
	}

	m.valid = append([]string{m.auto, m.canonical}, schemes...)
	m.validSet = make(map[string]struct{}, len(m.valid))
	for _, s := range m.valid {
		m.validSet[s] = struct{}{}
	}
	return nil
}

// Build parses a reference table from r and creates a Mapper over it.
func Build(r io.Reader, opts ...Option) (*Mapper, error) {
	t, err := LoadTable(r)
	if err != nil {
		return nil, err
	}
	return New(t, opts...)
}

// ValidSchemes returns the auto scheme, the canonical scheme, then every
// table scheme in ascending order.
func (m *Mapper) ValidSchemes() []string {
	return slices.Clone(m.valid)
}

// CanonicalScheme returns the canonical scheme name.
func (m *Mapper) CanonicalScheme() string {
	return m.canonical
}

// AutoScheme returns the auto-detect pseudo-scheme name.
func (m *Mapper) AutoScheme() string {
	return m.auto
}

// Table returns the underlying reference table.
func (m *Mapper) Table() *Table {
	return m.table
}

// Query maps ids from the source scheme to the target scheme. Ids that cannot
// be mapped are left out of the result. Invalid scheme pairs return a
// *SchemeError; see IsInputError.
func (m *Mapper) Query(ids []string, source, target string) (Result, error) {
	if err := m.check(source, target); err != nil {
		return nil, err
	}

	var (
		res      Result
		strategy string
	)
	switch {
	case source == m.auto:
		strategy = "auto"
		res = m.autoDetect(ids, target)
	case source == m.canonical:
		strategy = "from_canonical"
		res = m.convertFrom(ids, target)
	case target == m.canonical:
		strategy = "to_canonical"
		res = m.convertTo(ids, source)
	default:
		strategy = "two_hop"
		res = m.convertInBetween(ids, source, target)
	}
	res = postProcess(res)

	m.logger.Debug("query",
		zap.String("from", source),
		zap.String("to", target),
		zap.String("strategy", strategy),
		zap.Int("ids", len(ids)),
		zap.Int("pairs", len(res)))
	return res, nil
}

// check validates a scheme pair. The auto target is rejected first, so
// auto→auto reports ErrAutoTarget rather than ErrIdentityScheme.
func (m *Mapper) check(source, target string) error {
	if target == m.auto {
		return &SchemeError{Err: ErrAutoTarget, Scheme: target}
	}
	for _, s := range []string{source, target} {
		if _, ok := m.validSet[s]; !ok {
			return &SchemeError{Err: ErrInvalidScheme, Scheme: s, Valid: m.ValidSchemes()}
		}
	}
	if source == target {
		return &SchemeError{Err: ErrIdentityScheme, Scheme: source}
	}
	return nil
}

// convertFrom maps canonical ids to ids in the target scheme.
func (m *Mapper) convertFrom(ids []string, target string) Result {
	var res Result
	for _, i := range lookup(m.table.byCanonical, ids) {
		r := m.table.rows[i]
		if r.Scheme == target {
			res = append(res, Pair{From: r.Canonical, To: r.External})
		}
	}
	return dedupe(res)
}

// convertTo maps ids in the source scheme to canonical ids. With the auto
// scheme as source, ids are matched in every scheme.
func (m *Mapper) convertTo(ids []string, source string) Result {
	var res Result
	for _, i := range m.matchExternal(ids, source) {
		r := m.table.rows[i]
		res = append(res, Pair{From: r.External, To: r.Canonical})
	}
	return dedupe(res)
}

func (m *Mapper) matchExternal(ids []string, source string) []int {
	rows := lookup(m.table.byExternal, ids)
	if source == m.auto {
		return rows
	}
	return slices.DeleteFunc(rows, func(i int) bool {
		return m.table.rows[i].Scheme != source
	})
}

// convertInBetween maps between two non-canonical schemes by joining
// source→canonical with canonical→target on the canonical id.
func (m *Mapper) convertInBetween(ids []string, source, target string) Result {
	hop1 := m.convertTo(ids, source)
	hop2 := m.convertFrom(hop1.Targets(), target).groupByFrom()

	var res Result
	for _, p := range hop1 {
		for _, to := range hop2[p.To] {
			res = append(res, Pair{From: p.From, To: to})
		}
	}
	return dedupe(res)
}

// autoDetect maps ids of unknown scheme to the target scheme. Ids that are
// already canonical map through themselves; every other id is looked up in
// all schemes (see detectCanonical) before the canonical ids are resolved.
func (m *Mapper) autoDetect(ids []string, target string) Result {
	seen := make(map[string]struct{}, len(ids))
	var origMap Result
	var remainder []string
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if m.table.HasCanonical(id) {
			origMap = append(origMap, Pair{From: id, To: id})
		} else {
			remainder = append(remainder, id)
		}
	}
	origMap = append(origMap, m.detectCanonical(remainder)...)

	canonical := origMap.Targets()
	var resolved map[string][]string
	if target == m.canonical {
		resolved = make(map[string][]string, len(canonical))
		for _, c := range canonical {
			resolved[c] = []string{c}
		}
	} else {
		resolved = m.convertFrom(canonical, target).groupByFrom()
	}

	var res Result
	for _, p := range origMap {
		for _, to := range resolved[p.To] {
			res = append(res, Pair{From: p.From, To: to})
		}
	}
	return dedupe(res)
}

// detectCanonical maps ids to canonical ids via whichever scheme they occur
// in. When an id occurs under several schemes, only the matches under the
// lexically smallest scheme name are kept.
func (m *Mapper) detectCanonical(ids []string) Result {
	if len(ids) == 0 {
		return nil
	}
	rows := m.matchExternal(ids, m.auto)

	best := make(map[string]string, len(ids))
	for _, i := range rows {
		r := m.table.rows[i]
		if s, ok := best[r.External]; !ok || r.Scheme < s {
			best[r.External] = r.Scheme
		}
	}

	var res Result
	for _, i := range rows {
		r := m.table.rows[i]
		if best[r.External] == r.Scheme {
			res = append(res, Pair{From: r.External, To: r.Canonical})
		}
	}
	return dedupe(res)
}
