package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inodb/gene-map/internal/dataset"
	"github.com/inodb/gene-map/internal/idmap"
)

func (a *app) newSchemesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schemes",
		Short: "List the id schemes available for an organism",
		Example: `  gene-map schemes
  gene-map schemes --organism YEAST_559292`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			schemes, err := a.listSchemes(cmd.Context())
			if err != nil {
				return err
			}
			for _, s := range schemes {
				fmt.Fprintln(cmd.OutOrStdout(), s)
			}
			return nil
		},
	}
}

// listSchemes reads the schemes straight from the DuckDB copy when enabled,
// without building the full table.
func (a *app) listSchemes(ctx context.Context) ([]string, error) {
	if !a.v.GetBool("duckdb") {
		m, err := a.loadMapper(ctx)
		if err != nil {
			return nil, err
		}
		return m.ValidSchemes(), nil
	}

	organism, path, err := a.ensureDataset(ctx)
	if err != nil {
		return nil, err
	}
	store, err := a.importDuckDB(path, a.duckDBPath(organism))
	if err != nil {
		return nil, err
	}
	defer store.Close()

	schemes, err := store.Schemes()
	if err != nil {
		return nil, err
	}
	return idmap.ListSchemes(schemes)
}

func newOrganismsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "organisms",
		Short: "List supported organisms",
		Args:  noArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, org := range dataset.SupportedOrganisms {
				if org == dataset.DefaultOrganism {
					fmt.Fprintf(cmd.OutOrStdout(), "%s (default)\n", org)
					continue
				}
				fmt.Fprintln(cmd.OutOrStdout(), org)
			}
		},
	}
}
