package cli

import (
	"fmt"
	"strings"

	"github.com/jrhy/merkstore/merk"
	"github.com/spf13/cobra"
)

// Entry is a key/value pair in command output.
type Entry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print the value of a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := rootOpts.decode(args[0])
			if err != nil {
				return err
			}
			return rootOpts.withStore(cmd.Context(), func(s *merk.Store) error {
				v, found, err := s.Get(key)
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("%w: %s", ErrNotFound, args[0])
				}
				value := rootOpts.encode(v)
				return rootOpts.formatter(cmd.OutOrStdout()).Success(Entry{args[0], value}, value)
			})
		},
	}
}

type commitFlags struct {
	height uint64
}

func (f *commitFlags) register(cmd *cobra.Command) {
	cmd.Flags().Uint64Var(&f.height, "height", 0, "commit height (default: one above the current height)")
}

// commit commits s at the flagged height, or the next one.
func (f *commitFlags) commit(cmd *cobra.Command, rootOpts *RootOptions, s *merk.Store, writes int) error {
	height := f.height
	if !cmd.Flags().Changed("height") {
		current, err := s.Height()
		if err != nil {
			return err
		}
		height = current + 1
	}
	if err := s.Commit(height); err != nil {
		return err
	}
	hash, err := s.RootHash()
	if err != nil {
		return err
	}
	return rootOpts.formatter(cmd.OutOrStdout()).Success(
		map[string]interface{}{"height": height, "root": fmt.Sprintf("%x", hash), "writes": writes},
		fmt.Sprintf("committed %d write(s) at height %d, root %x", writes, height, hash))
}

// NewPutCommand creates the put command, which sets keys and commits.
func NewPutCommand(rootOpts *RootOptions) *cobra.Command {
	var flags commitFlags
	cmd := &cobra.Command{
		Use:   "put <key> <value> [<key> <value>...]",
		Short: "Set keys and commit",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 || len(args)%2 != 0 {
				return fmt.Errorf("expected key/value pairs, got %d argument(s)", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var pairs [][]byte
			for _, arg := range args {
				b, err := rootOpts.decode(arg)
				if err != nil {
					return err
				}
				pairs = append(pairs, b)
			}
			return rootOpts.withStore(cmd.Context(), func(s *merk.Store) error {
				for i := 0; i < len(pairs); i += 2 {
					if err := s.Put(pairs[i], pairs[i+1]); err != nil {
						return err
					}
				}
				return flags.commit(cmd, rootOpts, s, len(pairs)/2)
			})
		},
	}
	flags.register(cmd)
	return cmd
}

// NewDeleteCommand creates the delete command, which removes keys and
// commits.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	var flags commitFlags
	cmd := &cobra.Command{
		Use:   "delete <key>...",
		Short: "Remove keys and commit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var keys [][]byte
			for _, arg := range args {
				b, err := rootOpts.decode(arg)
				if err != nil {
					return err
				}
				keys = append(keys, b)
			}
			return rootOpts.withStore(cmd.Context(), func(s *merk.Store) error {
				for _, key := range keys {
					if err := s.Delete(key); err != nil {
						return err
					}
				}
				return flags.commit(cmd, rootOpts, s, len(keys))
			})
		},
	}
	flags.register(cmd)
	return cmd
}

// NewScanCommand creates the scan command.
func NewScanCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		start string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "List entries in key order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := rootOpts.decode(start)
			if err != nil {
				return err
			}
			return rootOpts.withStore(cmd.Context(), func(s *merk.Store) error {
				entries := []Entry{}
				var text strings.Builder
				iter := s.IterFrom(from)
				for (limit <= 0 || len(entries) < limit) && iter.Next() {
					e := Entry{rootOpts.encode(iter.Key()), rootOpts.encode(iter.Value())}
					entries = append(entries, e)
					if text.Len() > 0 {
						text.WriteByte('\n')
					}
					fmt.Fprintf(&text, "%s\t%s", e.Key, e.Value)
				}
				if err := iter.Error(); err != nil {
					return err
				}
				return rootOpts.formatter(cmd.OutOrStdout()).Success(entries, text.String())
			})
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "first key to list")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of entries (0 for all)")
	return cmd
}
