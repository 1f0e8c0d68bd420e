package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/tokensender/internal/server"
)

const shutdownTimeout = 10 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Listen string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP gateway",
		Long: `Start the request loop and serve it over HTTP.

Every state-changing request goes through a single writer, so requests
from concurrent clients are applied one at a time in arrival order.
Sudo requests need the bearer token configured as http.sudo_token; with
no token configured the sudo endpoint is disabled.

Example:
  tokensender serve --config tokensender.cue
  tokensender serve --db ./ledger.db --listen 127.0.0.1:9090 --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "listen address (overrides http.listen)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	env, err := openEnvironment(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer env.Close()

	if err := env.checkOracle(ctx); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	engineDone := make(chan error, 1)
	go func() {
		engineDone <- env.engine.Run(ctx)
	}()

	addr := env.cfg.HTTP.Listen
	if opts.Listen != "" {
		addr = opts.Listen
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.New(env.engine, env.cfg.HTTP.SudoToken).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if env.cfg.HTTP.SudoToken == "" {
		slog.Warn("http.sudo_token is not set, sudo endpoint disabled")
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("starting HTTP server", "addr", addr, "contract", env.cfg.ContractAddress, "denom", env.cfg.Denom)
		serveErr <- srv.ListenAndServe()
	}()
	fmt.Fprintf(cmd.OutOrStdout(), "Serving on %s. Press Ctrl-C to stop.\n", addr)

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = WrapExitError(ExitCommandError, "HTTP server error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("error during shutdown", "error", err)
	}

	// In-flight handlers are done; stop the request loop.
	cancel()
	if err := <-engineDone; err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		slog.Error("engine error", "error", err)
	}

	slog.Info("server stopped gracefully")
	return runErr
}
