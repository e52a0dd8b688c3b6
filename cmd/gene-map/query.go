package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/gene-map/internal/idmap"
	"github.com/inodb/gene-map/internal/output"
)

type queryOptions struct {
	inputs  []string
	from    string
	to      string
	output  string
	workers int
}

func (a *app) runQuery(cmd *cobra.Command, opts queryOptions) error {
	switch {
	case len(opts.inputs) == 0:
		return usageErrorf("at least one --input is required")
	case opts.from == "":
		return usageErrorf("--from is required")
	case opts.to == "":
		return usageErrorf("--to is required")
	}

	ids, err := resolveInputs(opts.inputs)
	if err != nil {
		return err
	}

	m, err := a.loadMapper(cmd.Context())
	if err != nil {
		return err
	}

	res, err := m.ParallelQuery(ids, opts.from, opts.to, opts.workers, idmap.DefaultChunkSize)
	if err != nil {
		return err
	}
	a.logger.Debug("mapping done",
		zap.Int("ids", len(ids)),
		zap.Int("mapped", len(res.Sources())),
		zap.Int("pairs", len(res)))

	if !a.v.GetBool("quiet") {
		fmt.Fprintf(a.stderr, "Mapped %d/%d genes.\n", len(res.Sources()), len(ids))
	}

	if opts.output == "" {
		if err := output.WriteResult(a.stdout, res); err != nil {
			return fmt.Errorf("writing result: %w", err)
		}
		return nil
	}
	return writeResultFile(opts.output, res)
}

// writeResultFile writes res as CSV to path, reporting close errors.
func writeResultFile(path string, res idmap.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	if err := output.WriteResult(f, res); err != nil {
		f.Close()
		return fmt.Errorf("writing result: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing output file: %w", err)
	}
	return nil
}

// resolveInputs expands every input that names an existing file into the
// whitespace-separated ids it contains. Other inputs are ids themselves.
func resolveInputs(inputs []string) ([]string, error) {
	var ids []string
	for _, in := range inputs {
		info, err := os.Stat(in)
		if err != nil || info.IsDir() {
			ids = append(ids, in)
			continue
		}

		data, err := os.ReadFile(in)
		if err != nil {
			return nil, fmt.Errorf("reading id file: %w", err)
		}
		ids = append(ids, strings.Fields(string(data))...)
	}
	return ids, nil
}
