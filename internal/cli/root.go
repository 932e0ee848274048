package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/tcf/internal/jrpc"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	URI        string
	ID         string
	StrictIDs  bool

	// Transport replaces the HTTP transport when set.
	Transport jrpc.Transport
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the tcf CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tcf",
		Short: "tcf - trusted compute work order client",
		Long: `A JSON-RPC client for trusted compute work orders, receipts and the
worker registry, with a local emulator for development.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (.yaml, .yml or .toml)")
	cmd.PersistentFlags().StringVar(&opts.URI, "uri", "", "JSON-RPC listener URI (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.ID, "id", "", "correlation id for the request (generated when empty)")
	cmd.PersistentFlags().BoolVar(&opts.StrictIDs, "strict-ids", false, "fail when --id is not given")

	cmd.AddCommand(NewWorkOrderCommand(opts))
	cmd.AddCommand(NewReceiptCommand(opts))
	cmd.AddCommand(NewWorkerCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewEmulateCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
