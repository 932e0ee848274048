package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/tcf/internal/registry"
)

// NewWorkerCommand creates the worker registry command group.
func NewWorkerCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Manage the worker registry",
	}
	cmd.AddCommand(newWorkerRegisterCommand(rootOpts))
	cmd.AddCommand(newWorkerUpdateCommand(rootOpts))
	cmd.AddCommand(newWorkerSetStatusCommand(rootOpts))
	cmd.AddCommand(newWorkerRetrieveCommand(rootOpts))
	cmd.AddCommand(newWorkerLookupCommand(rootOpts))
	cmd.AddCommand(newWorkerLookupNextCommand(rootOpts))
	return cmd
}

func newWorkerRegisterCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		req        registry.RegisterRequest
		workerType string
		details    string
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(rootOpts, cmd)
			if err != nil {
				return err
			}
			req.Type, err = registry.ParseWorkerType(workerType)
			if err != nil {
				_ = s.formatter.Error(ErrCodeInput, err.Error(), nil)
				return WrapExitError(ExitCommandError, "parse --type", err)
			}
			req.Details = jsonOrString([]byte(details))
			return s.respond(s.workers().Register(cmd.Context(), req, s.id))
		},
	}

	cmd.Flags().StringVar(&req.WorkerID, "worker-id", "", "worker id (required)")
	cmd.Flags().StringVar(&workerType, "type", "TEE_SGX", "worker type (TEE_SGX|MPC|ZK)")
	cmd.Flags().StringVar(&req.OrganizationID, "organization-id", "", "owning organization id")
	cmd.Flags().StringSliceVar(&req.ApplicationTypeIDs, "application-type-id", nil, "supported application type ids")
	cmd.Flags().StringVar(&details, "details", "", "worker details (JSON object or text)")

	return cmd
}

func newWorkerUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	var details string

	cmd := &cobra.Command{
		Use:   "update <worker-id>",
		Short: "Replace a worker's details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(rootOpts, cmd)
			if err != nil {
				return err
			}
			return s.respond(s.workers().Update(cmd.Context(), args[0], jsonOrString([]byte(details)), s.id))
		},
	}

	cmd.Flags().StringVar(&details, "details", "", "worker details (JSON object or text)")

	return cmd
}

func newWorkerSetStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set-status <worker-id> <status>",
		Short: "Change a worker's status (ACTIVE|OFF_LINE|DECOMMISSIONED|COMPROMISED)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(rootOpts, cmd)
			if err != nil {
				return err
			}
			status, err := registry.ParseWorkerStatus(args[1])
			if err != nil {
				_ = s.formatter.Error(ErrCodeInput, err.Error(), nil)
				return WrapExitError(ExitCommandError, "parse status", err)
			}
			return s.respond(s.workers().SetStatus(cmd.Context(), args[0], status, s.id))
		},
	}
}

func newWorkerRetrieveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "retrieve <worker-id>",
		Short: "Fetch a worker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(rootOpts, cmd)
			if err != nil {
				return err
			}
			return s.respond(s.workers().Retrieve(cmd.Context(), args[0], s.id))
		},
	}
}

// workerFilterFlags binds the worker lookup filter flags.
type workerFilterFlags struct {
	workerType         string
	organizationID     string
	applicationTypeIDs []string
}

func (f *workerFilterFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.workerType, "type", "TEE_SGX", "worker type (TEE_SGX|MPC|ZK)")
	cmd.Flags().StringVar(&f.organizationID, "organization-id", "", "match organization id")
	cmd.Flags().StringSliceVar(&f.applicationTypeIDs, "application-type-id", nil, "match application type ids")
}

func (f *workerFilterFlags) filter() (registry.Filter, error) {
	wt, err := registry.ParseWorkerType(f.workerType)
	if err != nil {
		return registry.Filter{}, err
	}
	return registry.Filter{
		Type:               wt,
		OrganizationID:     f.organizationID,
		ApplicationTypeIDs: f.applicationTypeIDs,
	}, nil
}

func newWorkerLookupCommand(rootOpts *RootOptions) *cobra.Command {
	var flags workerFilterFlags

	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Look up workers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(rootOpts, cmd)
			if err != nil {
				return err
			}
			f, err := flags.filter()
			if err != nil {
				_ = s.formatter.Error(ErrCodeInput, err.Error(), nil)
				return WrapExitError(ExitCommandError, "parse --type", err)
			}
			return s.respond(s.workers().Lookup(cmd.Context(), f, s.id))
		},
	}

	flags.bind(cmd)

	return cmd
}

func newWorkerLookupNextCommand(rootOpts *RootOptions) *cobra.Command {
	var flags workerFilterFlags

	cmd := &cobra.Command{
		Use:   "lookup-next <lookup-tag>",
		Short: "Continue a worker lookup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(rootOpts, cmd)
			if err != nil {
				return err
			}
			f, err := flags.filter()
			if err != nil {
				_ = s.formatter.Error(ErrCodeInput, err.Error(), nil)
				return WrapExitError(ExitCommandError, "parse --type", err)
			}
			return s.respond(s.workers().LookupNext(cmd.Context(), args[0], f, s.id))
		},
	}

	flags.bind(cmd)

	return cmd
}
