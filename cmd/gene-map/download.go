package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) newDownloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "download",
		Short: "Download the UniProt id-mapping file for an organism",
		Long: `Download the UniProt id-mapping file for an organism into the cache folder
(and import it into DuckDB unless --duckdb=false). Mapping commands download
missing files automatically; use this to prepare a cache ahead of time.`,
		Example: `  gene-map download
  gene-map download --organism MOUSE_10090 --cache-dir /data/gene-map`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			organism, path, err := a.ensureDataset(cmd.Context())
			if err != nil {
				return err
			}

			if a.v.GetBool("duckdb") {
				store, err := a.importDuckDB(path, a.duckDBPath(organism))
				if err != nil {
					return err
				}
				defer store.Close()

				n, err := store.Count()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d rows into %s\n", n, a.duckDBPath(organism))
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Id mapping for %s available at %s\n", organism, path)
			return nil
		},
	}
}
