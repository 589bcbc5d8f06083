package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/reglet-dev/cligate/application/gateway"
	"github.com/reglet-dev/cligate/infrastructure/console"
	"github.com/reglet-dev/cligate/infrastructure/httpapi"
	"github.com/spf13/cobra"
)

const defaultAddr = "127.0.0.1:21026"

func serveCmd(a *app) *cobra.Command {
	var (
		addr        string
		retention   int
		pollTimeout time.Duration
		noHelpers   bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the gateway over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			db, closeDB, err := a.openDatabase()
			if err != nil {
				return err
			}
			defer func() { _ = closeDB() }()

			hub := console.NewHub(console.WithRetention(retention))
			sup, err := a.newSupervisor(db, hub)
			if err != nil {
				return err
			}
			gw := gateway.New(sup, gateway.WithLogger(a.logger), gateway.WithSettings(a.settings))

			opts := []httpapi.Option{
				httpapi.WithLogger(a.logger),
				httpapi.WithPollTimeout(pollTimeout),
			}
			if !noHelpers {
				opts = append(opts, httpapi.WithHelpers(gw))
			}
			api := httpapi.NewServer(hub, opts...)
			if err := gw.Install(api); err != nil {
				return err
			}

			srv := &http.Server{
				Addr:              addr,
				Handler:           api.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				a.logger.InfoContext(ctx, "cligate: listening", "addr", addr, "store", a.storeSpec)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				_ = gw.Close(context.Background())
				return err
			case <-ctx.Done():
			}

			a.logger.InfoContext(ctx, "cligate: shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return gw.Close(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", defaultAddr, "listen address")
	cmd.Flags().IntVar(&retention, "retention", console.DefaultRetention, "console messages kept per caller")
	cmd.Flags().DurationVar(&pollTimeout, "poll-timeout", httpapi.DefaultPollTimeout, "longest console long-poll")
	cmd.Flags().BoolVar(&noHelpers, "no-helpers", false, "do not expose the helper routes")
	return cmd
}
