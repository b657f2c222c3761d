// Package cli implements the merkstore command line.
package cli

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/jrhy/merkstore/config"
	"github.com/jrhy/merkstore/merk"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Format     string // "json" | "text"
	Hex        bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the merkstore CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "merkstore",
		Short: "Authenticated key-value store",
		Long: `merkstore reads and writes an authenticated key-value store backed by
a Merkle Search Tree, committing versions at increasing heights and
producing proofs a client can check against a root hash.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (TOML, or YAML by extension)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVar(&opts.Hex, "hex", false, "keys and values are given and printed as hex")

	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewPutCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewScanCommand(opts))
	cmd.AddCommand(NewHeightCommand(opts))
	cmd.AddCommand(NewRootHashCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewVerifyCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func (o *RootOptions) loadConfig() (*config.Config, error) {
	if o.ConfigPath == "" {
		return config.DefaultConfig(), nil
	}
	return config.Load(o.ConfigPath)
}

// withStore opens the configured store, runs f, and closes the store.
func (o *RootOptions) withStore(ctx context.Context, f func(*merk.Store) error) error {
	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}
	log, err := cfg.Logging.NewLogger()
	if err != nil {
		return err
	}
	defer log.Sync()
	s, closer, err := cfg.Open(ctx, log)
	if err != nil {
		return err
	}
	err = f(s)
	if closeErr := closer.Close(); closeErr != nil {
		log.Warn("close store", zap.Error(closeErr))
	}
	return err
}

// decode parses a key or value argument.
func (o *RootOptions) decode(arg string) ([]byte, error) {
	if !o.Hex {
		return []byte(arg), nil
	}
	b, err := hex.DecodeString(arg)
	if err != nil {
		return nil, fmt.Errorf("%q is not hex: %w", arg, err)
	}
	return b, nil
}

// encode formats a key or value for output.
func (o *RootOptions) encode(b []byte) string {
	if o.Hex {
		return hex.EncodeToString(b)
	}
	return string(b)
}

func (o *RootOptions) formatter(w io.Writer) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: w}
}

// ErrNotFound is returned by get for a missing key.
var ErrNotFound = errors.New("key not found")
