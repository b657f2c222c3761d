package cli

import (
	"encoding/hex"
	"fmt"

	"github.com/jrhy/merkstore/abci"
	"github.com/jrhy/merkstore/merk"
	"github.com/spf13/cobra"
)

// NewHeightCommand creates the height command.
func NewHeightCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "height",
		Short: "Print the last committed height",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withStore(cmd.Context(), func(s *merk.Store) error {
				h, err := s.Height()
				if err != nil {
					return err
				}
				return rootOpts.formatter(cmd.OutOrStdout()).Success(
					map[string]uint64{"height": h}, fmt.Sprint(h))
			})
		},
	}
}

// NewRootHashCommand creates the root command, which prints the root
// hash and height.
func NewRootHashCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "root",
		Short: "Print the root hash",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withStore(cmd.Context(), func(s *merk.Store) error {
				info, err := abci.GetInfo(s)
				if err != nil {
					return err
				}
				root := hex.EncodeToString(info.RootHash)
				return rootOpts.formatter(cmd.OutOrStdout()).Success(
					map[string]interface{}{"height": info.Height, "root": root}, root)
			})
		},
	}
}

// NewQueryCommand creates the query command, which prints the root
// hash followed by a proof for a key, in hex.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "query <key>",
		Short: "Print a proven answer for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := rootOpts.decode(args[0])
			if err != nil {
				return err
			}
			return rootOpts.withStore(cmd.Context(), func(s *merk.Store) error {
				response, err := s.Query(key)
				if err != nil {
					return err
				}
				out := hex.EncodeToString(response)
				return rootOpts.formatter(cmd.OutOrStdout()).Success(
					map[string]string{"key": args[0], "response": out}, out)
			})
		},
	}
}

// NewVerifyCommand creates the verify command, which checks a query
// response against a trusted root hash without opening a store.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	var root string
	cmd := &cobra.Command{
		Use:   "verify <key> <response>",
		Short: "Check a query response against a root hash",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := rootOpts.decode(args[0])
			if err != nil {
				return err
			}
			response, err := hex.DecodeString(args[1])
			if err != nil {
				return fmt.Errorf("response is not hex: %w", err)
			}
			rootHash, err := hex.DecodeString(root)
			if err != nil {
				return fmt.Errorf("root is not hex: %w", err)
			}
			value, found, err := merk.VerifyQuery(rootHash, response, key)
			if err != nil {
				return err
			}
			text := "absent"
			data := map[string]interface{}{"key": args[0], "found": found}
			if found {
				text = rootOpts.encode(value)
				data["value"] = text
			}
			return rootOpts.formatter(cmd.OutOrStdout()).Success(data, text)
		},
	}
	cmd.Flags().StringVar(&root, "root", "", "trusted root hash, in hex")
	cmd.MarkFlagRequired("root")
	return cmd
}
