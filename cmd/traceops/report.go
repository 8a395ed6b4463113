package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marek-kar/traceops/pkg/model"
	"github.com/marek-kar/traceops/pkg/render"
	"github.com/marek-kar/traceops/pkg/view"
)

func newReportCmd(a *app) *cobra.Command {
	var out outputFlags

	cmd := &cobra.Command{
		Use:   "report JOB_ID",
		Short: "Fetch the current report of an existing job once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.newClient()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			jobID := args[0]
			return a.serve(ctx, func(ctx context.Context) error {
				rep, err := c.FetchReport(ctx, jobID)
				if err != nil {
					return err
				}

				state := view.NewState()
				gen := state.BeginJob()
				state.SetJob(gen, model.JobHandle{JobID: jobID})
				state.ApplyReport(gen, rep)
				state.Finish(gen)

				if out.finding != "" {
					if err := state.Select(out.finding); err != nil {
						return err
					}
				}
				if rep.Placeholder() {
					fmt.Fprintf(cmd.ErrOrStderr(), "Warning: job %s has not been processed yet\n", jobID)
				}
				return out.write(cmd, render.FromSnapshot(state.Snapshot()))
			})
		},
	}

	out.register(cmd)
	return cmd
}
