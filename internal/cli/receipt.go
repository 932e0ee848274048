package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/roach88/tcf/internal/receipt"
)

// NewReceiptCommand creates the receipt command group.
func NewReceiptCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "receipt",
		Short: "Create, update and look up work order receipts",
	}
	cmd.AddCommand(newReceiptCreateCommand(rootOpts))
	cmd.AddCommand(newReceiptUpdateCommand(rootOpts))
	cmd.AddCommand(newReceiptRetrieveCommand(rootOpts))
	cmd.AddCommand(newReceiptUpdateRetrieveCommand(rootOpts))
	cmd.AddCommand(newReceiptLookupCommand(rootOpts))
	cmd.AddCommand(newReceiptLookupNextCommand(rootOpts))
	return cmd
}

type receiptCreateInput struct {
	WorkOrderID             string         `json:"workOrderId"`
	WorkerServiceID         string         `json:"workerServiceId"`
	WorkerID                string         `json:"workerId"`
	RequesterID             string         `json:"requesterId"`
	Status                  receipt.Status `json:"receiptCreateStatus"`
	WorkOrderRequestHash    string         `json:"workOrderRequestHash"`
	RequesterGeneratedNonce string         `json:"requesterGeneratedNonce"`
	RequesterSignature      string         `json:"requesterSignature"`
	SignatureRules          string         `json:"signatureRules"`
	ReceiptVerificationKey  string         `json:"receiptVerificationKey"`
}

type receiptUpdateInput struct {
	WorkOrderID     string          `json:"workOrderId"`
	UpdaterID       string          `json:"updaterId"`
	UpdateType      int             `json:"updateType"`
	UpdateData      json.RawMessage `json:"updateData"`
	UpdateSignature string          `json:"updateSignature"`
	SignatureRules  string          `json:"signatureRules"`
}

func newReceiptCreateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create <file|->",
		Short: "Create a receipt from a JSON file",
		Long: `Create a receipt. The file holds a JSON object with the
WorkOrderReceiptCreate fields (workOrderId, workerServiceId, workerId,
requesterId, receiptCreateStatus, workOrderRequestHash,
requesterGeneratedNonce, requesterSignature, signatureRules,
receiptVerificationKey).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(rootOpts, cmd)
			if err != nil {
				return err
			}
			var in receiptCreateInput
			if err := decodeInput(cmd, args[0], &in); err != nil {
				_ = s.formatter.Error(ErrCodeInput, err.Error(), nil)
				return WrapExitError(ExitCommandError, "read receipt", err)
			}
			return s.respond(s.receipts().Create(cmd.Context(), receipt.CreateRequest(in), s.id))
		},
	}
}

func newReceiptUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "update <file|->",
		Short: "Append a receipt update from a JSON file",
		Long: `Append a receipt update. The file holds a JSON object with workOrderId,
updaterId, updateType, updateData (string or object), updateSignature and
signatureRules.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(rootOpts, cmd)
			if err != nil {
				return err
			}
			var in receiptUpdateInput
			if err := decodeInput(cmd, args[0], &in); err != nil {
				_ = s.formatter.Error(ErrCodeInput, err.Error(), nil)
				return WrapExitError(ExitCommandError, "read receipt update", err)
			}
			req := receipt.UpdateRequest{
				WorkOrderID:     in.WorkOrderID,
				UpdaterID:       in.UpdaterID,
				UpdateType:      in.UpdateType,
				UpdateData:      jsonOrString(in.UpdateData),
				UpdateSignature: in.UpdateSignature,
				SignatureRules:  in.SignatureRules,
			}
			return s.respond(s.receipts().Update(cmd.Context(), req, s.id))
		},
	}
}

func newReceiptRetrieveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "retrieve <work-order-id>",
		Short: "Fetch the receipt of a work order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(rootOpts, cmd)
			if err != nil {
				return err
			}
			return s.respond(s.receipts().Retrieve(cmd.Context(), args[0], s.id))
		},
	}
}

func newReceiptUpdateRetrieveCommand(rootOpts *RootOptions) *cobra.Command {
	var updaterID, index string

	cmd := &cobra.Command{
		Use:   "update-retrieve <work-order-id>",
		Short: "Fetch one receipt update",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(rootOpts, cmd)
			if err != nil {
				return err
			}
			idx, err := parseIndex(index, receipt.LatestUpdateIndex)
			if err != nil {
				_ = s.formatter.Error(ErrCodeInput, err.Error(), nil)
				return WrapExitError(ExitCommandError, "parse --index", err)
			}
			return s.respond(s.receipts().UpdateRetrieve(cmd.Context(), args[0], updaterID, idx, s.id))
		},
	}

	cmd.Flags().StringVar(&updaterID, "updater-id", "", "updater id (required)")
	cmd.Flags().StringVar(&index, "index", "latest", `update index, or "latest"`)

	return cmd
}

// receiptFilterFlags binds the lookup filter flags.
type receiptFilterFlags struct {
	workerServiceID string
	workerID        string
	requesterID     string
	status          string
}

func (f *receiptFilterFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.workerServiceID, "worker-service-id", "", "match worker service id")
	cmd.Flags().StringVar(&f.workerID, "worker-id", "", "match worker id")
	cmd.Flags().StringVar(&f.requesterID, "requester-id", "", "match requester id")
	cmd.Flags().StringVar(&f.status, "status", "", "match status (name or number)")
}

func (f *receiptFilterFlags) filter() (receipt.Filter, error) {
	out := receipt.Filter{
		WorkerServiceID: f.workerServiceID,
		WorkerID:        f.workerID,
		RequesterID:     f.requesterID,
	}
	if f.status != "" {
		st, err := receipt.ParseStatus(f.status)
		if err != nil {
			return receipt.Filter{}, err
		}
		out = out.WithStatus(st)
	}
	return out, nil
}

func newReceiptLookupCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		flags receiptFilterFlags
		all   bool
	)

	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Look up receipts",
		Long: `Look up receipts. Filter flags are ANDed; unset ones match everything.
With --all every page is followed and the matching ids are printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(rootOpts, cmd)
			if err != nil {
				return err
			}
			f, err := flags.filter()
			if err != nil {
				_ = s.formatter.Error(ErrCodeInput, err.Error(), nil)
				return WrapExitError(ExitCommandError, "parse --status", err)
			}
			if !all {
				return s.respond(s.receipts().Lookup(cmd.Context(), f, s.id))
			}
			ids, err := s.receipts().CollectIDs(cmd.Context(), f, s.id)
			if err != nil {
				return s.fail(err)
			}
			return s.formatter.Success(map[string]any{"totalCount": len(ids), "ids": ids})
		},
	}

	flags.bind(cmd)
	cmd.Flags().BoolVar(&all, "all", false, "follow every page")

	return cmd
}

func newReceiptLookupNextCommand(rootOpts *RootOptions) *cobra.Command {
	var flags receiptFilterFlags

	cmd := &cobra.Command{
		Use:   "lookup-next <lookup-tag>",
		Short: "Continue a receipt lookup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(rootOpts, cmd)
			if err != nil {
				return err
			}
			f, err := flags.filter()
			if err != nil {
				_ = s.formatter.Error(ErrCodeInput, err.Error(), nil)
				return WrapExitError(ExitCommandError, "parse --status", err)
			}
			return s.respond(s.receipts().LookupNext(cmd.Context(), args[0], f, s.id))
		},
	}

	flags.bind(cmd)

	return cmd
}
