package render

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"

	"github.com/marek-kar/traceops/pkg/analysis"
	"github.com/marek-kar/traceops/pkg/model"
	"github.com/marek-kar/traceops/pkg/view"
)

var (
	colorPrimary   = analysis.RGB{30, 58, 95}
	colorTextDark  = analysis.RGB{44, 62, 80}
	colorTextMuted = analysis.RGB{127, 140, 141}
	colorMissing   = analysis.RGB{255, 225, 225}
	colorCode      = analysis.RGB{241, 245, 249}
)

type pdfRenderer struct {
	correlator *analysis.Correlator
}

func (r *pdfRenderer) Render(w io.Writer, doc Document) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 20)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	setText(pdf, colorPrimary)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, "TraceOps Findings Report", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	setText(pdf, colorTextMuted)
	if doc.Job != nil {
		line := "Job " + doc.Job.JobID
		if doc.Job.Status != "" {
			line += " (" + doc.Job.Status + ")"
		}
		pdf.CellFormat(0, 6, tr(line), "", 1, "L", false, 0, "")
	}

	rep := doc.Report
	if rep == nil {
		setText(pdf, colorTextDark)
		pdf.CellFormat(0, 8, "No report loaded yet.", "", 1, "L", false, 0, "")
		return output(pdf, w)
	}

	setText(pdf, colorTextDark)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.MultiCell(0, 7, tr(rep.DisplayTitle()), "", "L", false)
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Report version %s, engine version %s, %d findings",
		rep.ReportVersion, rep.EngineVersion, len(rep.Findings))), "", 1, "L", false, 0, "")
	if rep.GeneratedAt != "" {
		pdf.CellFormat(0, 6, tr("Generated "+rep.GeneratedAt), "", 1, "L", false, 0, "")
	}
	if rep.Placeholder() {
		warn := analysis.Present(model.ParseSeverity("WARN")).Style
		setFill(pdf, warn.Background)
		setText(pdf, warn.Foreground)
		pdf.CellFormat(0, 8, incompleteBanner, "", 1, "L", true, 0, "")
		setText(pdf, colorTextDark)
	}
	pdf.Ln(4)

	r.findingsTable(pdf, tr, rep)

	for _, d := range doc.Details(r.correlator) {
		r.detail(pdf, tr, d)
	}
	return output(pdf, w)
}

func (r *pdfRenderer) findingsTable(pdf *fpdf.Fpdf, tr func(string) string, rep *model.Report) {
	if len(rep.Findings) == 0 {
		pdf.CellFormat(0, 8, "No findings.", "", 1, "L", false, 0, "")
		return
	}

	widths := []float64{26, 30, 44, 22, 22, 36}
	headers := []string{"Severity", "ID", "Type", "Protocol", "Confidence", "Evidence"}
	setFill(pdf, colorPrimary)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 9)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, f := range rep.Findings {
		p := analysis.Present(f.Severity)
		setFill(pdf, p.Style.Background)
		setText(pdf, p.Style.Foreground)
		pdf.CellFormat(widths[0], 6, tr(p.Label), "", 0, "C", true, 0, "")

		setText(pdf, colorTextDark)
		refs := fmt.Sprintf("%d ref(s)", len(f.EvidenceRefs))
		cells := []string{f.FindingID, f.Type, f.Protocol, model.FormatConfidence(f.Confidence), refs}
		for i, c := range cells {
			pdf.CellFormat(widths[i+1], 6, tr(c), "", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
}

func (r *pdfRenderer) detail(pdf *fpdf.Fpdf, tr func(string) string, d view.Detail) {
	f := d.Finding
	pdf.Ln(6)
	setFill(pdf, d.Presentation.Style.Background)
	setText(pdf, d.Presentation.Style.Foreground)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(26, 7, tr(d.Presentation.Label), "", 0, "C", true, 0, "")

	setText(pdf, colorTextDark)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 7, tr(fmt.Sprintf(" %s (%s)  %s", f.Type, f.Protocol, f.FindingID)), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	if f.Message != "" {
		pdf.MultiCell(0, 5, tr(f.Message), "", "L", false)
	}

	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 6, "Evidence", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	if len(d.Evidence) == 0 {
		pdf.CellFormat(0, 6, "No evidence references.", "", 1, "L", false, 0, "")
		return
	}
	for _, e := range d.Evidence {
		if e.Missing() {
			setFill(pdf, colorMissing)
			pdf.CellFormat(0, 6, tr("Evidence missing: "+e.Ref), "", 1, "L", true, 0, "")
			continue
		}
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(0, 6, tr(fmt.Sprintf("%s  (%s)", e.Record.Type, e.Ref)), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		if rng := e.Record.TimeRange; rng != nil {
			setText(pdf, colorTextMuted)
			pdf.CellFormat(0, 5, tr(rng.Start+" -> "+rng.End), "", 1, "L", false, 0, "")
			setText(pdf, colorTextDark)
		}
		if len(e.Record.Details) > 0 {
			b, err := json.MarshalIndent(e.Record.Details, "", "  ")
			if err != nil {
				b = []byte(err.Error())
			}
			setFill(pdf, colorCode)
			pdf.SetFont("Courier", "", 8)
			pdf.MultiCell(0, 4, tr(string(b)), "", "L", true)
			pdf.SetFont("Helvetica", "", 9)
		}
		pdf.Ln(1)
	}
}

func setText(pdf *fpdf.Fpdf, c analysis.RGB) { pdf.SetTextColor(c[0], c[1], c[2]) }
func setFill(pdf *fpdf.Fpdf, c analysis.RGB) { pdf.SetFillColor(c[0], c[1], c[2]) }

func output(pdf *fpdf.Fpdf, w io.Writer) error {
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("build PDF: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write PDF: %w", err)
	}
	return nil
}
