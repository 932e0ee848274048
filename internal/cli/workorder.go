package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/tcf/internal/workorder"
)

// NewWorkOrderCommand creates the workorder command group.
func NewWorkOrderCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workorder",
		Short: "Submit work orders and fetch their results",
	}
	cmd.AddCommand(newSubmitCommand(rootOpts))
	cmd.AddCommand(newResultCommand(rootOpts))
	cmd.AddCommand(newKeyGetCommand(rootOpts))
	cmd.AddCommand(newKeySetCommand(rootOpts))
	return cmd
}

func newSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "submit <file|->",
		Short: "Submit a work order",
		Long: `Submit a work order. The file holds the WorkOrderSubmit params as a
JSON object and is sent unchanged. Use - to read stdin.

Example:
  tcf workorder submit order.json --id 7`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(rootOpts, cmd)
			if err != nil {
				return err
			}
			body, err := readInput(cmd, args[0])
			if err != nil {
				_ = s.formatter.Error(ErrCodeInput, err.Error(), nil)
				return WrapExitError(ExitCommandError, "read work order", err)
			}
			return s.respond(s.workOrders().Submit(cmd.Context(), body, s.id))
		},
	}
}

// ResultOptions holds flags for the workorder result command.
type ResultOptions struct {
	*RootOptions
	Wait        bool
	Interval    time.Duration
	MaxAttempts int
	Timeout     time.Duration
}

func newResultCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResultOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "result <work-order-id>",
		Short: "Fetch a work order result",
		Long: `Fetch a work order result. Without --wait one query is made and a
PENDING answer is printed as is. With --wait the query repeats until the
work order settles, --max-attempts is reached or --timeout expires.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResult(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVarP(&opts.Wait, "wait", "w", false, "poll until the work order settles")
	cmd.Flags().DurationVar(&opts.Interval, "interval", 0, "poll interval (default from config)")
	cmd.Flags().IntVar(&opts.MaxAttempts, "max-attempts", 0, "give up after this many queries (0 = config, then unbounded)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "overall wait deadline (0 = none)")

	return cmd
}

func runResult(opts *ResultOptions, workOrderID string, cmd *cobra.Command) error {
	s, err := newSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	client := s.workOrders()
	ctx := cmd.Context()

	if !opts.Wait {
		return s.respond(client.GetResultNonBlocking(ctx, workOrderID, s.id))
	}

	var pollOpts []workorder.PollOption
	if opts.Interval > 0 {
		pollOpts = append(pollOpts, workorder.WithInterval(opts.Interval))
	}
	attempts := opts.MaxAttempts
	if attempts == 0 {
		attempts = s.cfg.MaxAttempts
	}
	if attempts > 0 {
		pollOpts = append(pollOpts, workorder.WithMaxAttempts(attempts))
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	s.formatter.VerboseLog("waiting for work order %s", workOrderID)
	return s.respond(client.GetResult(ctx, workOrderID, s.id, pollOpts...))
}

func newKeyGetCommand(rootOpts *RootOptions) *cobra.Command {
	var req workorder.KeyRequest

	cmd := &cobra.Command{
		Use:   "key-get",
		Short: "Fetch a worker encryption key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(rootOpts, cmd)
			if err != nil {
				return err
			}
			return s.respond(s.workOrders().EncryptionKeyGet(cmd.Context(), req, s.id))
		},
	}

	cmd.Flags().StringVar(&req.WorkerID, "worker-id", "", "worker id (required)")
	cmd.Flags().StringVar(&req.RequesterID, "requester-id", "", "requester id (required)")
	cmd.Flags().StringVar(&req.LastUsedKeyNonce, "last-used-key-nonce", "", "nonce of the last key used")
	cmd.Flags().StringVar(&req.Tag, "tag", "", "key tag")
	cmd.Flags().StringVar(&req.SignatureNonce, "signature-nonce", "", "signature nonce")
	cmd.Flags().StringVar(&req.Signature, "signature", "", "request signature")

	return cmd
}

func newKeySetCommand(rootOpts *RootOptions) *cobra.Command {
	var req workorder.KeySetRequest

	cmd := &cobra.Command{
		Use:   "key-set",
		Short: "Install a worker encryption key",
		Long: `Install a worker encryption key. Only listeners that support it accept
the call; enable it with "capabilities: [encryption_key_set]" in the config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(rootOpts, cmd)
			if err != nil {
				return err
			}
			return s.respond(s.workOrders().EncryptionKeySet(cmd.Context(), req, s.id))
		},
	}

	cmd.Flags().StringVar(&req.WorkerID, "worker-id", "", "worker id (required)")
	cmd.Flags().StringVar(&req.EncryptionKey, "encryption-key", "", "encryption key (required)")
	cmd.Flags().StringVar(&req.EncryptionKeyNonce, "encryption-key-nonce", "", "encryption key nonce")
	cmd.Flags().StringVar(&req.Tag, "tag", "", "key tag")
	cmd.Flags().StringVar(&req.SignatureNonce, "signature-nonce", "", "signature nonce")
	cmd.Flags().StringVar(&req.Signature, "signature", "", "request signature")

	return cmd
}
