package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/marek-kar/traceops/pkg/analysis"
	"github.com/marek-kar/traceops/pkg/model"
	"github.com/marek-kar/traceops/pkg/view"
)

type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
	FormatPDF   Format = "pdf"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatJSON, FormatCSV, FormatPDF:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unknown format %q (want table, json, csv or pdf)", s)
	}
}

// Document is what a renderer draws: the job, its latest report and which
// findings get a detail section.
type Document struct {
	Job    *model.JobHandle
	Report *model.Report

	// Selected is the finding shown in detail; empty shows none unless
	// AllDetails is set.
	Selected   string
	AllDetails bool
}

func FromSnapshot(snap view.Snapshot) Document {
	return Document{Job: snap.Job, Report: snap.Report, Selected: snap.SelectedFindingID}
}

// Details resolves the findings that get a detail section, in report order.
func (d Document) Details(c *analysis.Correlator) []view.Detail {
	if d.Report == nil {
		return nil
	}
	var out []view.Detail
	for _, f := range d.Report.Findings {
		if d.AllDetails || f.FindingID == d.Selected {
			out = append(out, *view.NewDetail(c, d.Report, f))
		}
	}
	return out
}

type Renderer interface {
	Render(w io.Writer, doc Document) error
}

type Options struct {
	Color bool
}

func New(f Format, opts Options) Renderer {
	c := analysis.NewCorrelator()
	switch f {
	case FormatJSON:
		return &jsonRenderer{correlator: c}
	case FormatCSV:
		return &csvRenderer{correlator: c}
	case FormatPDF:
		return &pdfRenderer{correlator: c}
	default:
		return &tableRenderer{correlator: c, color: opts.Color}
	}
}

const incompleteBanner = "WARNING: report is still pending; results may be incomplete"

type tableRenderer struct {
	correlator *analysis.Correlator
	color      bool
}

func (r *tableRenderer) Render(w io.Writer, doc Document) error {
	if doc.Job == nil {
		fmt.Fprintf(w, "Job: none\n")
	} else if doc.Job.Status == "" {
		fmt.Fprintf(w, "Job: %s\n", doc.Job.JobID)
	} else {
		fmt.Fprintf(w, "Job: %s (%s)\n", doc.Job.JobID, doc.Job.Status)
	}
	if doc.Job != nil && doc.Job.ReportPath != "" {
		fmt.Fprintf(w, "Artifact: %s\n", doc.Job.ReportPath)
	}

	rep := doc.Report
	if rep == nil {
		fmt.Fprintf(w, "\nNo report loaded yet.\n")
		return nil
	}

	fmt.Fprintf(w, "\nTitle: %s\n", rep.DisplayTitle())
	fmt.Fprintf(w, "Report Version: %s  Engine Version: %s  Findings: %d\n",
		rep.ReportVersion, rep.EngineVersion, len(rep.Findings))
	if rep.GeneratedAt != "" {
		fmt.Fprintf(w, "Generated: %s\n", rep.GeneratedAt)
	}
	if rep.Placeholder() {
		fmt.Fprintf(w, "%s\n", r.paint(incompleteBanner, analysis.Present(model.ParseSeverity("WARN")).Style))
	}

	fmt.Fprintln(w)
	if len(rep.Findings) == 0 {
		fmt.Fprintf(w, "No findings.\n")
	} else {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "SEVERITY\tID\tTYPE\tPROTOCOL\tCONFIDENCE\tMESSAGE\n")
		for _, f := range rep.Findings {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				analysis.Present(f.Severity).Label,
				f.FindingID,
				f.Type,
				f.Protocol,
				model.FormatConfidence(f.Confidence),
				f.Message,
			)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	for _, d := range doc.Details(r.correlator) {
		fmt.Fprintln(w)
		if err := r.renderDetail(w, d); err != nil {
			return err
		}
	}
	return nil
}

func (r *tableRenderer) paint(s string, st analysis.Style) string {
	if !r.color || st.ANSI == "" {
		return s
	}
	return st.ANSI + s + "\x1b[0m"
}

func (r *tableRenderer) renderDetail(w io.Writer, d view.Detail) error {
	f := d.Finding
	fmt.Fprintf(w, "--- %s ---\n", f.FindingID)
	fmt.Fprintf(w, "%s %s (%s)\n", r.paint("["+d.Presentation.Label+"]", d.Presentation.Style), f.Type, f.Protocol)
	if f.Message != "" {
		fmt.Fprintf(w, "%s\n", f.Message)
	}
	fmt.Fprintf(w, "Confidence: %s\n", model.FormatConfidence(f.Confidence))

	if len(d.Evidence) == 0 {
		fmt.Fprintf(w, "No evidence references.\n")
		return nil
	}
	fmt.Fprintf(w, "Evidence:\n")
	for _, e := range d.Evidence {
		if e.Missing() {
			fmt.Fprintf(w, "  Evidence missing: %s\n", e.Ref)
			continue
		}
		fmt.Fprintf(w, "  [%s] %s\n", e.Record.Type, e.Ref)
		if tr := e.Record.TimeRange; tr != nil {
			fmt.Fprintf(w, "    %s -> %s\n", tr.Start, tr.End)
		}
		if len(e.Record.Details) > 0 {
			b, err := json.MarshalIndent(e.Record.Details, "    ", "  ")
			if err != nil {
				return fmt.Errorf("encode details of %s: %w", e.Ref, err)
			}
			fmt.Fprintf(w, "    %s\n", b)
		}
	}
	return nil
}

type jsonEvidence struct {
	Ref     string          `json:"ref"`
	Missing bool            `json:"missing"`
	Record  *model.Evidence `json:"record,omitempty"`
}

type jsonDetail struct {
	FindingID string         `json:"finding_id"`
	Severity  string         `json:"severity_label"`
	Known     bool           `json:"severity_known"`
	Evidence  []jsonEvidence `json:"evidence"`
}

type jsonDocument struct {
	Job        *model.JobHandle `json:"job"`
	Report     *model.Report    `json:"report"`
	Incomplete bool             `json:"incomplete"`
	Details    []jsonDetail     `json:"details,omitempty"`
}

type jsonRenderer struct {
	correlator *analysis.Correlator
}

func (r *jsonRenderer) Render(w io.Writer, doc Document) error {
	out := jsonDocument{
		Job:        doc.Job,
		Report:     doc.Report,
		Incomplete: doc.Report.Placeholder(),
	}
	for _, d := range doc.Details(r.correlator) {
		jd := jsonDetail{
			FindingID: d.Finding.FindingID,
			Severity:  d.Presentation.Label,
			Known:     d.Finding.Severity.Known(),
			Evidence:  make([]jsonEvidence, 0, len(d.Evidence)),
		}
		for _, e := range d.Evidence {
			jd.Evidence = append(jd.Evidence, jsonEvidence{Ref: e.Ref, Missing: e.Missing(), Record: e.Record})
		}
		out.Details = append(out.Details, jd)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
