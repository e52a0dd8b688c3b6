package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

func (a *app) newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage gene-map configuration",
		Long:  "Show, get, or set configuration values. Config is stored in ~/" + configFileName + ".",
		Example: `  gene-map config                              # show all config
  gene-map config set organism MOUSE_10090     # change the default organism
  gene-map config set duckdb false             # parse the TSV on every run
  gene-map config get cache_dir                # get a value`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConfigShow(cmd)
		},
	}

	cmd.AddCommand(a.newConfigSetCmd())
	cmd.AddCommand(a.newConfigGetCmd())

	return cmd
}

func (a *app) newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConfigSet(cmd, args[0], args[1])
		},
	}
}

func (a *app) newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConfigGet(cmd, args[0])
		},
	}
}

func (a *app) runConfigShow(cmd *cobra.Command) error {
	out, err := yaml.Marshal(a.v.AllSettings())
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), string(out))
	return nil
}

func (a *app) runConfigSet(cmd *cobra.Command, key, value string) error {
	cfgFile := a.v.ConfigFileUsed()
	if cfgFile == "" {
		return fmt.Errorf("cannot determine config file location; use --config")
	}

	// Only the file's own settings are written back, never flag or
	// environment values of this invocation.
	file := viper.New()
	file.SetConfigFile(cfgFile)
	if err := file.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("reading config %s: %w", cfgFile, err)
	}

	// Parse boolean-like values
	switch value {
	case "true", "yes", "on":
		file.Set(key, true)
	case "false", "no", "off":
		file.Set(key, false)
	default:
		file.Set(key, value)
	}

	if err := file.WriteConfigAs(cfgFile); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s in %s\n", key, value, cfgFile)
	return nil
}

func (a *app) runConfigGet(cmd *cobra.Command, key string) error {
	val := a.v.Get(key)
	if val == nil {
		return fmt.Errorf("key %q is not set", key)
	}
	fmt.Fprintln(cmd.OutOrStdout(), val)
	return nil
}
