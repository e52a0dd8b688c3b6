// Package main provides the gene-map command-line tool.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/inodb/gene-map/internal/dataset"
	"github.com/inodb/gene-map/internal/idmap"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const configFileName = ".gene-map.yaml"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// app holds the state shared by all subcommands of one invocation.
type app struct {
	v       *viper.Viper
	logger  *zap.Logger
	stdout  io.Writer
	stderr  io.Writer
	baseURL string // overrides the UniProt download URL when set
}

// usageError marks errors caused by how the tool was invoked.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...any) error {
	return usageError{fmt.Errorf(format, args...)}
}

func run(args []string, stdout, stderr io.Writer) int {
	a := &app{
		v:      viper.New(),
		logger: zap.NewNop(),
		stdout: stdout,
		stderr: stderr,
	}
	return a.execute(args)
}

func (a *app) execute(args []string) int {
	root := a.newRootCmd()
	root.SetArgs(args)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	err := root.Execute()
	defer a.logger.Sync()
	if err == nil {
		return ExitSuccess
	}

	fmt.Fprintf(a.stderr, "Error: %v\n", err)
	return exitCode(err)
}

// exitCode maps an error to the process exit status. Invalid input
// (schemes, organism, flags) is a usage error; everything else is a runtime
// failure.
func exitCode(err error) int {
	var ue usageError
	switch {
	case err == nil:
		return ExitSuccess
	case idmap.IsInputError(err),
		errors.Is(err, dataset.ErrUnsupportedOrganism),
		errors.As(err, &ue):
		return ExitUsage
	default:
		return ExitError
	}
}

func (a *app) newRootCmd() *cobra.Command {
	var opts queryOptions

	cmd := &cobra.Command{
		Use:   "gene-map -i ID|FILE [-i ...] --from SCHEME --to SCHEME",
		Short: "Map gene ids between various formats",
		Long: `Map gene and protein ids between the naming schemes of UniProt's id-mapping
tables. Every -i value that names an existing file is read as a list of
whitespace-separated ids; any other value is treated as an id itself.

Use "auto" as the source scheme to detect the scheme of each id, and "ACC"
for UniProtKB accessions. Run "gene-map schemes" to list all schemes.`,
		Example: `  gene-map -i P04637 -i P35222 --from ACC --to Gene_Name
  gene-map -i mygenes.txt --from Gene_Name --to Ensembl -o mapping.csv
  gene-map -i TP53 -i 9606.ENSP00000269305 --from auto --to GeneID
  gene-map -i mouse_genes.txt --organism MOUSE_10090 --from auto --to ACC`,
		Version:           fmt.Sprintf("%s (%s) built %s", version, commit, date),
		Args:              noArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runQuery(cmd, opts)
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	pf := cmd.PersistentFlags()
	pf.String("config", "", "Config file (default: ~/"+configFileName+")")
	pf.String("organism", dataset.DefaultOrganism, "Organism to convert ids in")
	pf.String("cache-dir", "", "Folder to store id-mapping files in (default: ~/.gene-map)")
	pf.Bool("duckdb", true, "Keep an indexed DuckDB copy of the id-mapping table in the cache folder")
	pf.BoolP("quiet", "q", false, "Suppress logging of mapping statistics")
	pf.BoolP("verbose", "v", false, "Enable debug logging")

	f := cmd.Flags()
	f.StringArrayVarP(&opts.inputs, "input", "i", nil, "Id to convert, or file with whitespace-separated ids (repeatable)")
	f.StringVar(&opts.from, "from", "", "Source id scheme")
	f.StringVar(&opts.to, "to", "", "Target id scheme")
	f.StringVarP(&opts.output, "output", "o", "", "CSV file to save result to (default: stdout)")
	f.IntVar(&opts.workers, "workers", 0, "Number of parallel workers for large inputs (default: number of CPUs)")

	for key, flag := range map[string]string{
		"organism":  "organism",
		"cache_dir": "cache-dir",
		"duckdb":    "duckdb",
		"quiet":     "quiet",
		"verbose":   "verbose",
	} {
		a.v.BindPFlag(key, pf.Lookup(flag))
	}

	cmd.AddCommand(a.newSchemesCmd())
	cmd.AddCommand(newOrganismsCmd())
	cmd.AddCommand(a.newDownloadCmd())
	cmd.AddCommand(a.newConfigCmd())

	return cmd
}

func noArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		return usageError{err}
	}
	return nil
}

// setup loads configuration and builds the logger before any command runs.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	a.v.SetEnvPrefix("GENE_MAP")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	cfgFile, _ := cmd.Flags().GetString("config")
	if err := a.readConfig(cfgFile); err != nil {
		return err
	}

	a.logger = newLogger(a.v.GetBool("verbose"), a.stderr)
	a.logger.Debug("configuration loaded",
		zap.String("config", a.v.ConfigFileUsed()),
		zap.String("organism", a.v.GetString("organism")),
		zap.String("cache_dir", a.cacheDir()))
	return nil
}

// readConfig reads cfgFile, or ~/.gene-map.yaml if it exists.
func (a *app) readConfig(cfgFile string) error {
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		cfgFile = filepath.Join(home, configFileName)
		if _, err := os.Stat(cfgFile); err != nil {
			// Remember the default location for "config set".
			a.v.SetConfigFile(cfgFile)
			return nil
		}
	}

	a.v.SetConfigFile(cfgFile)
	if err := a.v.ReadInConfig(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading config %s: %w", cfgFile, err)
	}
	return nil
}

// cacheDir returns the configured cache directory or the default one.
func (a *app) cacheDir() string {
	if dir := a.v.GetString("cache_dir"); dir != "" {
		return dir
	}
	return dataset.DefaultCacheDir()
}

// newLogger creates a console logger on w at warn level, or debug level
// when verbose is set.
func newLogger(verbose bool, w io.Writer) *zap.Logger {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(w), level)
	return zap.New(core)
}
