package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/marek-kar/traceops/pkg/logging"
	"github.com/marek-kar/traceops/pkg/render"
)

type outputFlags struct {
	format     string
	out        string
	finding    string
	allDetails bool
}

func (o *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.format, "format", "f", string(render.FormatTable), "output format (table, json, csv, pdf)")
	cmd.Flags().StringVarP(&o.out, "out", "o", "", "write output to this file instead of stdout")
	cmd.Flags().StringVar(&o.finding, "finding", "", "show the detail of this finding")
	cmd.Flags().BoolVar(&o.allDetails, "all-details", false, "show the detail of every finding")
}

// write renders doc in the requested format to --out or the command's
// stdout. Table output is colored only on an interactive stdout.
func (o *outputFlags) write(cmd *cobra.Command, doc render.Document) error {
	format, err := render.ParseFormat(o.format)
	if err != nil {
		return err
	}
	doc.AllDetails = o.allDetails

	w := cmd.OutOrStdout()
	color := false
	if o.out == "" {
		if f, ok := w.(*os.File); ok {
			color = logging.IsTerminal(f)
			if format == render.FormatPDF && color {
				return fmt.Errorf("refusing to write PDF to a terminal; use --out")
			}
		}
	} else {
		f, err := os.Create(o.out)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}

	if err := render.New(format, render.Options{Color: color}).Render(w, doc); err != nil {
		return fmt.Errorf("render %s: %w", format, err)
	}
	if c, ok := w.(io.Closer); ok && o.out != "" {
		if err := c.Close(); err != nil {
			return fmt.Errorf("close output: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Report written to %s\n", o.out)
	}
	return nil
}
