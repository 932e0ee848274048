package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/roach88/tcf/internal/emulator"
	"github.com/roach88/tcf/internal/logging"
	"github.com/roach88/tcf/internal/store"
)

const shutdownTimeout = 5 * time.Second

// EmulateOptions holds flags for the emulate command.
type EmulateOptions struct {
	*RootOptions
	Addr         string
	DB           string
	PageSize     int
	PendingPolls int
}

// NewEmulateCommand creates the emulate command.
func NewEmulateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EmulateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "emulate",
		Short: "Run a local JSON-RPC listener backed by SQLite",
		Long: `Run a local JSON-RPC listener that answers every work order, receipt
and worker registry method from a SQLite database. Work orders stay
PENDING for --pending-polls result queries before a result is produced.
Prometheus metrics are served on /metrics.

Example:
  tcf emulate --addr localhost:1947 --db /tmp/tcf.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEmulate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&opts.DB, "db", "", "SQLite database path (default from config)")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 0, "lookup page size (default from config)")
	cmd.Flags().IntVar(&opts.PendingPolls, "pending-polls", -1, "result queries answered PENDING (default from config)")

	return cmd
}

func runEmulate(opts *EmulateOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := loadConfig(opts.RootOptions, cmd)
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "load config", err)
	}
	if opts.Addr != "" {
		cfg.Emulator.Addr = opts.Addr
	}
	if opts.DB != "" {
		cfg.Emulator.DB = opts.DB
	}
	if opts.PageSize > 0 {
		cfg.Emulator.PageSize = opts.PageSize
	}
	if opts.PendingPolls >= 0 {
		cfg.Emulator.PendingPolls = opts.PendingPolls
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "configure logging", err)
	}

	st, err := store.Open(cfg.Emulator.DB)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "open store", err)
	}
	defer st.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	svc := emulator.New(st,
		emulator.WithPageSize(cfg.Emulator.PageSize),
		emulator.WithPendingPolls(cfg.Emulator.PendingPolls),
		emulator.WithLogger(logger),
		emulator.WithRegisterer(reg),
	)

	ln, err := net.Listen("tcp", cfg.Emulator.Addr)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "listen", err)
	}
	logger.Info("emulator listening",
		"addr", ln.Addr().String(),
		"db", cfg.Emulator.DB,
		"page_size", cfg.Emulator.PageSize,
		"pending_polls", cfg.Emulator.PendingPolls,
	)

	srv := &http.Server{
		Handler:           emulatorHandler(svc, reg),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return serve(cmd.Context(), srv, ln)
}

// emulatorHandler routes JSON-RPC to svc and /metrics to reg.
func emulatorHandler(svc *emulator.Service, reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.Handle("/", svc)
	return mux
}

// serve runs srv on ln until ctx ends, then shuts it down.
func serve(ctx context.Context, srv *http.Server, ln net.Listener) error {
	if ctx == nil {
		ctx = context.Background()
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return WrapExitError(ExitCommandError, "serve", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitCommandError, "shutdown", fmt.Errorf("emulator: %w", err))
	}
	return nil
}
