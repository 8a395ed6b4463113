package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/marek-kar/traceops/pkg/stubserver"
)

func newStubServerCmd(a *app) *cobra.Command {
	var (
		addr         string
		pendingPolls int
		reportRoot   string
	)

	cmd := &cobra.Command{
		Use:   "stub-server",
		Short: "Serve an in-memory TraceOps API for local development",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stub := stubserver.New(stubserver.Options{
				PendingPolls: pendingPolls,
				ReportRoot:   reportRoot,
				Logger:       a.logger.With().Str("component", "stub-server").Logger(),
			})
			srv := &http.Server{
				Addr:              addr,
				Handler:           stub.Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			ctx, cancel := signalContext()
			defer cancel()

			return a.serve(ctx, func(ctx context.Context) error {
				g, ctx := errgroup.WithContext(ctx)
				g.Go(func() error {
					fmt.Fprintf(cmd.ErrOrStderr(), "Stub TraceOps API listening on %s (placeholder for %d fetches)\n", addr, pendingPolls)
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						return fmt.Errorf("stub server: %w", err)
					}
					return nil
				})
				g.Go(func() error {
					<-ctx.Done()
					shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
					defer done()
					return srv.Shutdown(shutdownCtx)
				})
				return g.Wait()
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8000", "listen address")
	cmd.Flags().IntVar(&pendingPolls, "pending-polls", 3, "report fetches answered with the placeholder before the final report")
	cmd.Flags().StringVar(&reportRoot, "report-root", stubserver.DefaultReportRoot, "directory reported as the artifact root")
	return cmd
}
