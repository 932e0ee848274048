package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/tcf/internal/config"
	"github.com/roach88/tcf/internal/jrpc"
	"github.com/roach88/tcf/internal/logging"
	"github.com/roach88/tcf/internal/receipt"
	"github.com/roach88/tcf/internal/registry"
	"github.com/roach88/tcf/internal/schema"
	"github.com/roach88/tcf/internal/transport"
	"github.com/roach88/tcf/internal/workorder"
)

// session is the per-invocation wiring shared by the client commands.
type session struct {
	cfg       config.Config
	logger    *slog.Logger
	formatter *OutputFormatter
	caller    *jrpc.Caller
	id        string
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(opts *RootOptions, cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	if flagChanged(cmd, "uri") {
		cfg.JSONRPCURI = opts.URI
	}
	if flagChanged(cmd, "strict-ids") {
		cfg.StrictIDs = opts.StrictIDs
	}
	if opts.Verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

func newSession(opts *RootOptions, cmd *cobra.Command) (*session, error) {
	formatter := newFormatter(opts, cmd)

	cfg, err := loadConfig(opts, cmd)
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "load config", err)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "configure logging", err)
	}
	validator, err := schema.New()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load schemas", err)
	}

	t := opts.Transport
	if t == nil {
		httpOpts := []transport.HTTPOption{
			transport.WithTimeout(cfg.Timeout),
			transport.WithHTTPLogger(logger),
		}
		if cfg.RateLimit.RPS > 0 {
			httpOpts = append(httpOpts, transport.WithRateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
		t = transport.NewHTTP(cfg.JSONRPCURI, httpOpts...)
	}
	formatter.VerboseLog("listener: %s", cfg.JSONRPCURI)

	caller := jrpc.NewCaller(t,
		jrpc.WithValidator(validator),
		jrpc.WithRequiredIDs(cfg.StrictIDs),
		jrpc.WithLogger(logger),
	)
	return &session{
		cfg:       cfg,
		logger:    logger,
		formatter: formatter,
		caller:    caller,
		id:        opts.ID,
	}, nil
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

func (s *session) workOrders() *workorder.Client {
	woOpts := []workorder.Option{workorder.WithPollInterval(s.cfg.PollInterval)}
	if s.cfg.HasCapability(config.CapabilityEncryptionKeySet) {
		woOpts = append(woOpts, workorder.WithCapabilities(workorder.CapEncryptionKeySet))
	}
	return workorder.New(s.caller, woOpts...)
}

func (s *session) receipts() *receipt.Client {
	return receipt.New(s.caller)
}

func (s *session) workers() *registry.Client {
	return registry.New(s.caller)
}

// respond prints a response envelope or the error that replaced it and maps
// the outcome to an exit code. Protocol errors exit 1, PENDING exits 0.
func (s *session) respond(resp *jrpc.Response, err error) error {
	f := s.formatter
	if err != nil && !resp.IsPending() {
		return s.fail(err)
	}

	switch {
	case resp.IsPending():
		if err != nil {
			_ = f.Error(ErrCodePending, resp.Error.Message, resp)
			return WrapExitError(ExitFailure, "work order still pending", err)
		}
		return f.Pending(resp.Error.Message, resp)
	case resp.Error != nil:
		_ = f.Error(ErrCodeProtocol, resp.Error.String(), resp.Error.Data)
		return NewExitError(ExitFailure, fmt.Sprintf("%s: %s", ErrCodeProtocol, resp.Error.String()))
	}

	if f.Format == "json" {
		return f.Success(resp)
	}
	return f.Success(resp.Result)
}

// fail prints a client-side error and wraps it with its exit code.
func (s *session) fail(err error) error {
	f := s.formatter
	var rpcErr *jrpc.Error
	switch {
	case jrpc.IsSchemaViolation(err):
		if errors.As(err, &rpcErr) {
			_ = f.Error(ErrCodeSchemaViolation, rpcErr.Message, rpcErr.Details)
		}
		return WrapExitError(ExitFailure, ErrCodeSchemaViolation, err)
	case jrpc.IsInvalidParameter(err):
		_ = f.Error(ErrCodeInvalidParameter, err.Error(), nil)
		return WrapExitError(ExitCommandError, ErrCodeInvalidParameter, err)
	case jrpc.IsTransportFailure(err):
		_ = f.Error(ErrCodeTransport, err.Error(), nil)
		return WrapExitError(ExitCommandError, ErrCodeTransport, err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		_ = f.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitFailure, ErrCodeGeneric, err)
	default:
		_ = f.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, ErrCodeGeneric, err)
	}
}

// readInput reads a file argument, or stdin when the argument is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

func flagChanged(cmd *cobra.Command, name string) bool {
	f := cmd.Flags().Lookup(name)
	return f != nil && f.Changed
}
