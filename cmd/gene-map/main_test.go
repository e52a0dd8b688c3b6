package main

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/inodb/gene-map/internal/dataset"
	"github.com/inodb/gene-map/internal/idmap"
)

// humanRows is a tiny excerpt of HUMAN_9606_idmapping.dat.
const humanRows = "P04637\tGene_Name\tTP53\n" +
	"P04637\tGeneID\t7157\n" +
	"P04637-2\tEnsembl\tENSG00000141510\n" +
	"P35222\tGene_Name\tCTNNB1\n" +
	"P35222\tGeneID\t1499\n" +
	"P63244\tGene_Name\tRACK1\n" +
	"P08246\tGene_Name\tELANE\n" +
	"P68871\tGene_Name\tHBB\n" +
	"P68871\tGeneID\t3043\n"

func gzipRows(t *testing.T, rows string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(rows))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

type testEnv struct {
	dir      string
	cacheDir string
	config   string
}

// newTestEnv creates a cache directory already holding the human id mapping.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{
		dir:      dir,
		cacheDir: filepath.Join(dir, "cache"),
		config:   filepath.Join(dir, "config.yaml"),
	}
	require.NoError(t, os.MkdirAll(env.cacheDir, 0755))
	require.NoError(t, os.WriteFile(
		dataset.LocalPath(env.cacheDir, "HUMAN_9606"), gzipRows(t, humanRows), 0644))
	return env
}

func (e *testEnv) args(args ...string) []string {
	return append(args, "--cache-dir", e.cacheDir, "--config", e.config)
}

type result struct {
	code   int
	stdout string
	stderr string
}

func runApp(t *testing.T, baseURL string, args []string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	a := &app{
		v:       viper.New(),
		logger:  zap.NewNop(),
		stdout:  &stdout,
		stderr:  &stderr,
		baseURL: baseURL,
	}
	code := a.execute(args)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func TestCLI_MapFromFileAndLiterals(t *testing.T) {
	for _, useDuckDB := range []bool{false, true} {
		t.Run(fmt.Sprintf("duckdb=%v", useDuckDB), func(t *testing.T) {
			env := newTestEnv(t)
			genes := filepath.Join(env.dir, "mygenes.txt")
			require.NoError(t, os.WriteFile(genes, []byte("P63244 P08246\nP68871"), 0644))
			outPath := filepath.Join(env.dir, "gene_mapping.csv")

			res := runApp(t, "", env.args(
				"-i", "P35222", "-i", "InvalidID",
				"-i", genes, "-i", "P04637",
				"--from", "ACC", "--to", "Gene_Name",
				"-o", outPath,
				fmt.Sprintf("--duckdb=%v", useDuckDB),
			))
			require.Equal(t, ExitSuccess, res.code, res.stderr)
			assert.Equal(t, "Mapped 5/6 genes.\n", res.stderr)
			assert.Empty(t, res.stdout)

			data, err := os.ReadFile(outPath)
			require.NoError(t, err)
			assert.Equal(t, "ID_from,ID_to\n"+
				"P04637,TP53\n"+
				"P08246,ELANE\n"+
				"P35222,CTNNB1\n"+
				"P63244,RACK1\n"+
				"P68871,HBB\n", string(data))

			_, err = os.Stat(filepath.Join(env.cacheDir, "HUMAN_9606.duckdb"))
			assert.Equal(t, useDuckDB, err == nil, "duckdb cache file presence")
		})
	}
}

func TestCLI_TwoHopToStdout(t *testing.T) {
	env := newTestEnv(t)

	res := runApp(t, "", env.args("-q", "-i", "TP53", "-i", "HBB", "-i", "RACK1", "--from", "Gene_Name", "--to", "GeneID"))
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Empty(t, res.stderr, "quiet mode should not print statistics")
	assert.Equal(t, "ID_from,ID_to\nHBB,3043\nTP53,7157\n", res.stdout)
}

func TestCLI_AutoDetect(t *testing.T) {
	env := newTestEnv(t)

	res := runApp(t, "", env.args("-i", "1499", "-i", "TP53", "-i", "P68871", "--from", "auto", "--to", "Gene_Name"))
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Equal(t, "ID_from,ID_to\n1499,CTNNB1\nP68871,HBB\nTP53,TP53\n", res.stdout)
}

func TestCLI_DownloadsMissingDataset(t *testing.T) {
	payload := gzipRows(t, humanRows)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/MOUSE_10090_idmapping.dat.gz") {
			http.NotFound(w, r)
			return
		}
		w.Write(payload)
	}))
	defer srv.Close()

	dir := t.TempDir()
	cacheDir := filepath.Join(dir, "cache")
	res := runApp(t, srv.URL, []string{
		"-i", "P04637", "--from", "ACC", "--to", "GeneID",
		"--organism", "MOUSE_10090",
		"--cache-dir", cacheDir,
		"--config", filepath.Join(dir, "config.yaml"),
	})
	require.Equal(t, ExitSuccess, res.code, res.stderr)

	cached := dataset.LocalPath(cacheDir, "MOUSE_10090")
	assert.Equal(t, "Caching "+cached+"\nMapped 1/1 genes.\n", res.stderr)
	assert.Equal(t, "ID_from,ID_to\nP04637,7157\n", res.stdout)
	assert.FileExists(t, cached)
}

func TestCLI_InputErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"identity", []string{"-i", "TP53", "--from", "Gene_Name", "--to", "Gene_Name"}, "both \"Gene_Name\""},
		{"auto target", []string{"-i", "TP53", "--from", "Gene_Name", "--to", "auto"}, "only valid as a source"},
		{"invalid scheme", []string{"-i", "TP53", "--from", "Gene_Name", "--to", "Nope"}, "invalid id scheme \"Nope\""},
		{"organism", []string{"-i", "TP53", "--from", "auto", "--to", "ACC", "--organism", "UNICORN_1"}, "unsupported organism"},
		{"missing from", []string{"-i", "TP53", "--to", "ACC"}, "--from is required"},
		{"missing input", []string{"--from", "auto", "--to", "ACC"}, "--input is required"},
		{"unknown flag", []string{"--bogus"}, "unknown flag"},
		{"positional args", []string{"TP53"}, "unknown command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := runApp(t, "", env.args(tt.args...))
			assert.Equal(t, ExitUsage, res.code)
			assert.Contains(t, res.stderr, "Error: ")
			assert.Contains(t, res.stderr, tt.want)
			assert.Empty(t, res.stdout, "no partial result on input errors")
		})
	}
}

func TestCLI_OutputFileError(t *testing.T) {
	env := newTestEnv(t)

	res := runApp(t, "", env.args("-i", "P04637", "--from", "ACC", "--to", "GeneID",
		"-o", filepath.Join(env.dir, "missing", "dir", "out.csv")))
	assert.Equal(t, ExitError, res.code)
	assert.Contains(t, res.stderr, "creating output file")
}

func TestWriteResultFile(t *testing.T) {
	res := idmap.Result{{From: "P04637", To: "TP53"}}

	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, writeResultFile(path, res))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ID_from,ID_to\nP04637,TP53\n", string(data))

	if _, err := os.Stat("/dev/full"); err != nil {
		t.Skip("/dev/full not available")
	}
	err = writeResultFile("/dev/full", res)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "writing result")
}

func TestCLI_Schemes(t *testing.T) {
	for _, useDuckDB := range []bool{false, true} {
		t.Run(fmt.Sprintf("duckdb=%v", useDuckDB), func(t *testing.T) {
			env := newTestEnv(t)

			res := runApp(t, "", env.args("schemes", fmt.Sprintf("--duckdb=%v", useDuckDB)))
			require.Equal(t, ExitSuccess, res.code, res.stderr)
			assert.Equal(t, "auto\nACC\nEnsembl\nGeneID\nGene_Name\n", res.stdout)

			_, err := os.Stat(filepath.Join(env.cacheDir, "HUMAN_9606.duckdb"))
			assert.Equal(t, useDuckDB, err == nil, "duckdb cache file presence")
		})
	}
}

func TestCLI_Organisms(t *testing.T) {
	res := runApp(t, "", []string{"organisms", "--config", filepath.Join(t.TempDir(), "c.yaml")})
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "HUMAN_9606 (default)\n")
	assert.Contains(t, res.stdout, "YEAST_559292\n")
	assert.Len(t, strings.Split(strings.TrimSpace(res.stdout), "\n"), len(dataset.SupportedOrganisms))
}

func TestCLI_Download(t *testing.T) {
	env := newTestEnv(t)

	res := runApp(t, "", env.args("download"))
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Imported 9 rows")
	assert.FileExists(t, filepath.Join(env.cacheDir, "HUMAN_9606.duckdb"))
}

func TestCLI_Config(t *testing.T) {
	env := newTestEnv(t)

	res := runApp(t, "", env.args("config", "set", "organism", "MOUSE_10090"))
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Set organism = MOUSE_10090 in "+env.config)

	res = runApp(t, "", []string{"config", "get", "organism", "--config", env.config})
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Equal(t, "MOUSE_10090\n", res.stdout)

	res = runApp(t, "", []string{"config", "--config", env.config})
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "organism: MOUSE_10090")

	res = runApp(t, "", []string{"config", "get", "no_such_key", "--config", env.config})
	assert.Equal(t, ExitError, res.code)
}

func TestCLI_ConfigSetKeepsFlagsOut(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(env.config, []byte("duckdb: false\n"), 0644))

	res := runApp(t, "", env.args("config", "set", "organism", "MOUSE_10090", "-v", "-q"))
	require.Equal(t, ExitSuccess, res.code, res.stderr)

	data, err := os.ReadFile(env.config)
	require.NoError(t, err)
	var written map[string]any
	require.NoError(t, yaml.Unmarshal(data, &written))
	assert.Equal(t, map[string]any{"organism": "MOUSE_10090", "duckdb": false}, written)
}

func TestCLI_ConfigSetCreatesFile(t *testing.T) {
	env := newTestEnv(t)

	res := runApp(t, "", env.args("config", "set", "quiet", "yes"))
	require.Equal(t, ExitSuccess, res.code, res.stderr)

	data, err := os.ReadFile(env.config)
	require.NoError(t, err)
	assert.Equal(t, "quiet: true\n", string(data))
}

func TestCLI_Version(t *testing.T) {
	res := runApp(t, "", []string{"--version"})
	require.Equal(t, ExitSuccess, res.code)
	assert.Contains(t, res.stdout, "gene-map version dev")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, exitCode(nil))
	assert.Equal(t, ExitUsage, exitCode(&idmap.SchemeError{Err: idmap.ErrIdentityScheme, Scheme: "x"}))
	assert.Equal(t, ExitUsage, exitCode(fmt.Errorf("load: %w", dataset.Validate("NOPE"))))
	assert.Equal(t, ExitUsage, exitCode(usageErrorf("bad flag")))
	assert.Equal(t, ExitError, exitCode(errors.New("disk full")))
}

func TestResolveInputs(t *testing.T) {
	dir := t.TempDir()
	list := filepath.Join(dir, "ids.txt")
	require.NoError(t, os.WriteFile(list, []byte("  A B\n\tC\n\n"), 0644))

	ids, err := resolveInputs([]string{"X", list, dir, "Y"})
	require.NoError(t, err)
	assert.Equal(t, []string{"X", "A", "B", "C", dir, "Y"}, ids)
}
