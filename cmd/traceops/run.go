package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marek-kar/traceops/pkg/model"
	"github.com/marek-kar/traceops/pkg/poller"
	"github.com/marek-kar/traceops/pkg/render"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		out      outputFlags
		pcap     string
		attempts int
		delay    time.Duration
		check    bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Submit a capture for analysis and wait for its findings report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("attempts") {
				a.cfg.Poll.Attempts = attempts
			}
			if cmd.Flags().Changed("delay") {
				a.cfg.Poll.Delay = delay
			}
			if _, err := render.ParseFormat(out.format); err != nil {
				return err
			}

			c, err := a.newClient()
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			return a.serve(ctx, func(ctx context.Context) error {
				if check {
					if err := c.Health(ctx); err != nil {
						return fmt.Errorf("backend at %s is not healthy: %w", a.cfg.APIBase, err)
					}
				}

				runner := a.newRunner(c)
				fmt.Fprintf(cmd.ErrOrStderr(), "Submitting job to %s...\n", a.cfg.APIBase)
				res := runner.Run(ctx, model.CreateJobRequest{PcapPath: pcap})
				if res.Err != nil {
					return res.Err
				}

				switch res.Outcome.Kind {
				case poller.Cancelled:
					return fmt.Errorf("interrupted while waiting for job %s", res.Job.JobID)
				case poller.Exhausted:
					fmt.Fprintf(cmd.ErrOrStderr(),
						"Warning: report for job %s still pending after %d attempts; results may be incomplete\n",
						res.Job.JobID, res.Outcome.Attempts)
				}

				state := runner.State()
				if out.finding != "" {
					if err := state.Select(out.finding); err != nil {
						return err
					}
				}
				return out.write(cmd, render.FromSnapshot(state.Snapshot()))
			})
		},
	}

	out.register(cmd)
	cmd.Flags().StringVar(&pcap, "pcap", "", "path of the capture on the backend (backend default when empty)")
	cmd.Flags().IntVar(&attempts, "attempts", poller.DefaultAttempts, "maximum report fetches")
	cmd.Flags().DurationVar(&delay, "delay", poller.DefaultDelay, "wait between report fetches")
	cmd.Flags().BoolVar(&check, "check", false, "check backend health before submitting")

	return cmd
}
