package render

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/marek-kar/traceops/pkg/analysis"
	"github.com/marek-kar/traceops/pkg/model"
)

var csvHeader = []string{
	"finding_id", "severity", "type", "protocol", "confidence", "message",
	"evidence_ref", "evidence_status", "evidence_type",
}

// csvRenderer writes one row per evidence reference, so a finding with no
// refs gets a single row with empty evidence columns.
type csvRenderer struct {
	correlator *analysis.Correlator
}

func (r *csvRenderer) Render(w io.Writer, doc Document) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}

	if doc.Report != nil {
		for _, f := range doc.Report.Findings {
			base := []string{
				f.FindingID,
				analysis.Present(f.Severity).Label,
				f.Type,
				f.Protocol,
				model.FormatConfidence(f.Confidence),
				f.Message,
			}
			resolved := r.correlator.ResolveEvidence(doc.Report, f)
			if len(resolved) == 0 {
				if err := cw.Write(append(base, "", "", "")); err != nil {
					return fmt.Errorf("write CSV row %s: %w", f.FindingID, err)
				}
				continue
			}
			for _, e := range resolved {
				status, typ := "resolved", ""
				if e.Missing() {
					status = "missing"
				} else {
					typ = e.Record.Type
				}
				row := append(append([]string{}, base...), e.Ref, status, typ)
				if err := cw.Write(row); err != nil {
					return fmt.Errorf("write CSV row %s: %w", f.FindingID, err)
				}
			}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("CSV write error: %w", err)
	}
	return nil
}
