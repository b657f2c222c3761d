package cli

import (
	"fmt"
	"os"

	"github.com/jrhy/merkstore/config"
	"github.com/spf13/cobra"
)

// NewInitCommand creates the init command, which writes a default
// config file.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		backend string
		path    string
		force   bool
	)
	cmd := &cobra.Command{
		Use:   "init <config-file>",
		Short: "Write a default config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", args[0])
			}
			cfg := config.DefaultConfig()
			cfg.Store.Backend = backend
			cfg.Store.Path = path
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.WriteFile(args[0], cfg); err != nil {
				return err
			}
			return rootOpts.formatter(cmd.OutOrStdout()).Success(
				map[string]string{"config": args[0]},
				fmt.Sprintf("wrote %s", args[0]))
		},
	}
	cmd.Flags().StringVar(&backend, "backend", config.BackendFile, "storage backend (memory|file|bolt|leveldb|s3)")
	cmd.Flags().StringVar(&path, "path", "data", "data directory or database file")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}
