package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marek-kar/traceops/pkg/analysis"
	"github.com/marek-kar/traceops/pkg/model"
	"github.com/marek-kar/traceops/pkg/render"
	"github.com/marek-kar/traceops/pkg/workflow"
)

const consoleHelp = `Commands:
  new [PCAP]   submit a new job (cancels the one being polled)
  wait         block until the current job stops polling
  status       show job, polling and error state
  show         show the report and the selected finding
  select ID    select a finding for the detail view
  clear        clear the selection
  raw          print the latest report JSON
  help         show this help
  quit         exit`

func newConsoleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Interactive session: submit jobs and browse findings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.newClient()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			return a.serve(ctx, func(ctx context.Context) error {
				fmt.Fprintf(cmd.OutOrStdout(), "TraceOps console (%s). Type 'help' for commands.\n", a.cfg.APIBase)
				return runConsole(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), a.newRunner(c))
			})
		},
	}
}

// runConsole reads commands from in until quit, EOF or ctx is done. Any
// outstanding poll is cancelled before it returns.
func runConsole(ctx context.Context, in io.Reader, out io.Writer, runner *workflow.Runner) error {
	defer runner.Cancel()

	lines := make(chan string)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-stop:
				return
			}
		}
	}()

	state := runner.State()
	correlator := analysis.NewCorrelator()
	table := render.New(render.FormatTable, render.Options{})

	for {
		fmt.Fprint(out, "\n> ")
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				return nil
			}
			line = l
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch cmd, args := fields[0], fields[1:]; cmd {
		case "quit", "exit":
			return nil

		case "help":
			fmt.Fprintln(out, consoleHelp)

		case "new":
			var req model.CreateJobRequest
			if len(args) > 0 {
				req.PcapPath = args[0]
			}
			runner.Start(ctx, req)
			fmt.Fprintln(out, "Job submitted; polling for the report in the background.")

		case "wait":
			runner.Wait()
			printStatus(out, runner)

		case "status":
			printStatus(out, runner)

		case "show":
			if err := table.Render(out, render.FromSnapshot(state.Snapshot())); err != nil {
				fmt.Fprintf(out, "Error: %v\n", err)
			}

		case "select":
			if len(args) != 1 {
				fmt.Fprintln(out, "usage: select FINDING_ID")
				continue
			}
			if err := state.Select(args[0]); err != nil {
				fmt.Fprintf(out, "Error: %v\n", err)
				continue
			}
			if d := state.Detail(correlator); d != nil {
				fmt.Fprintf(out, "Selected %s [%s] with %d evidence reference(s).\n",
					d.Finding.FindingID, d.Presentation.Label, len(d.Evidence))
			}

		case "clear":
			state.ClearSelection()
			fmt.Fprintln(out, "Selection cleared.")

		case "raw":
			snap := state.Snapshot()
			if snap.Report == nil {
				fmt.Fprintln(out, "No report loaded yet.")
				continue
			}
			b, err := json.MarshalIndent(snap.Report, "", "  ")
			if err != nil {
				fmt.Fprintf(out, "Error: %v\n", err)
				continue
			}
			fmt.Fprintf(out, "%s\n", b)

		default:
			fmt.Fprintf(out, "Unknown command %q. Type 'help' for commands.\n", cmd)
		}
	}
}

func printStatus(out io.Writer, runner *workflow.Runner) {
	snap := runner.State().Snapshot()
	if snap.Job == nil {
		fmt.Fprintln(out, "Job: none")
	} else {
		fmt.Fprintf(out, "Job: %s (%s)\n", snap.Job.JobID, snap.Job.Status)
	}

	switch {
	case snap.Loading:
		fmt.Fprintln(out, "Polling: in progress")
	case snap.Err != nil:
		fmt.Fprintf(out, "Error: %v\n", snap.Err)
	case snap.Report == nil:
		fmt.Fprintln(out, "Report: none")
	case snap.Report.Placeholder():
		fmt.Fprintf(out, "Report: %s (still pending; results may be incomplete)\n", snap.Report.DisplayTitle())
	default:
		c := analysis.NewCorrelator()
		s := c.Summarize(snap.Report)
		fmt.Fprintf(out, "Report: %s (%d findings, %d evidence, %d dangling refs)\n",
			snap.Report.DisplayTitle(), s.Findings, s.Evidence, s.DanglingRefs)
		if sev, ok := c.Highest(snap.Report); ok {
			fmt.Fprintf(out, "Highest severity: %s\n", analysis.Present(sev).Label)
		}
	}
	if snap.SelectedFindingID != "" {
		fmt.Fprintf(out, "Selected: %s\n", snap.SelectedFindingID)
	}
}
