// Package dataset locates, downloads and opens UniProt id-mapping files.
package dataset

import (
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// UniProt id-mapping files split by organism.
const (
	BaseURL          = "https://ftp.uniprot.org/pub/databases/uniprot/current_release/knowledgebase/idmapping/by_organism"
	DefaultOrganism  = "HUMAN_9606"
	fileNameSuffix   = "_idmapping.dat.gz"
	defaultDirectory = ".gene-map"
)

// SupportedOrganisms lists the organisms UniProt publishes id-mapping files for.
var SupportedOrganisms = []string{
	"ARATH_3702", "CAEEL_6239", "CHICK_9031", "DANRE_7955", "DICDI_44689",
	"DROME_7227", "ECOLI_83333", "HUMAN_9606", "MOUSE_10090", "RAT_10116",
	"SCHPO_284812", "YEAST_559292",
}

// ErrUnsupportedOrganism is returned for organisms without an id-mapping file.
var ErrUnsupportedOrganism = errors.New("unsupported organism")

// Validate returns an error wrapping ErrUnsupportedOrganism if organism is
// not in SupportedOrganisms.
func Validate(organism string) error {
	if !slices.Contains(SupportedOrganisms, organism) {
		return fmt.Errorf("%w %q (supported: %s)",
			ErrUnsupportedOrganism, organism, strings.Join(SupportedOrganisms, ", "))
	}
	return nil
}

// FileName returns the id-mapping file name for an organism.
func FileName(organism string) string {
	return organism + fileNameSuffix
}

// URL returns the download URL of an organism's id-mapping file.
func URL(organism string) string {
	return BaseURL + "/" + FileName(organism)
}

// DefaultCacheDir returns ~/.gene-map, or "" if the home directory is unknown.
func DefaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, defaultDirectory)
}

// LocalPath returns where an organism's file is cached in dir.
func LocalPath(dir, organism string) string {
	return filepath.Join(dir, FileName(organism))
}

// Open opens an id-mapping file, transparently decompressing gzip content.
// The caller must close the returned reader.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open id mapping file: %w", err)
	}

	br := bufio.NewReaderSize(f, 256*1024)
	magic, err := br.Peek(2)
	if err != nil && !errors.Is(err, io.EOF) {
		f.Close()
		return nil, fmt.Errorf("read id mapping file: %w", err)
	}

	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open gzip reader: %w", err)
		}
		return &gzipFile{Reader: gz, f: f}, nil
	}
	return &plainFile{Reader: br, f: f}, nil
}

type gzipFile struct {
	*gzip.Reader
	f *os.File
}

func (g *gzipFile) Close() error {
	gzErr := g.Reader.Close()
	if err := g.f.Close(); err != nil {
		return err
	}
	return gzErr
}

type plainFile struct {
	*bufio.Reader
	f *os.File
}

func (p *plainFile) Close() error {
	return p.f.Close()
}
