package analysis

import (
	"github.com/marek-kar/traceops/pkg/model"
)

// ResolvedEvidence is one evidence_ref of a finding after lookup. Record is
// nil when the report carries no evidence with that id.
type ResolvedEvidence struct {
	Ref    string
	Record *model.Evidence
}

func (r ResolvedEvidence) Missing() bool { return r.Record == nil }

type Correlator struct{}

func NewCorrelator() *Correlator {
	return &Correlator{}
}

// ResolveEvidence looks up every ref of f in report. The result has exactly
// one entry per ref, in ref order, duplicates included.
func (c *Correlator) ResolveEvidence(report *model.Report, f model.Finding) []ResolvedEvidence {
	index := indexEvidence(report)
	out := make([]ResolvedEvidence, 0, len(f.EvidenceRefs))
	for _, ref := range f.EvidenceRefs {
		re := ResolvedEvidence{Ref: ref}
		if i, ok := index[ref]; ok {
			re.Record = &report.Evidence[i]
		}
		out = append(out, re)
	}
	return out
}

// indexEvidence maps evidence_id to its position. The first record wins when
// a report repeats an id.
func indexEvidence(report *model.Report) map[string]int {
	if report == nil {
		return nil
	}
	index := make(map[string]int, len(report.Evidence))
	for i, e := range report.Evidence {
		if _, seen := index[e.EvidenceID]; !seen {
			index[e.EvidenceID] = i
		}
	}
	return index
}

type Summary struct {
	Findings     int
	Evidence     int
	BySeverity   map[model.SeverityLevel]int
	DanglingRefs int
	Placeholder  bool
}

func (c *Correlator) Summarize(report *model.Report) Summary {
	s := Summary{BySeverity: make(map[model.SeverityLevel]int)}
	if report == nil {
		return s
	}
	s.Findings = len(report.Findings)
	s.Evidence = len(report.Evidence)
	s.Placeholder = report.Placeholder()

	index := indexEvidence(report)
	for _, f := range report.Findings {
		s.BySeverity[f.Severity.Level]++
		for _, ref := range f.EvidenceRefs {
			if _, ok := index[ref]; !ok {
				s.DanglingRefs++
			}
		}
	}
	return s
}

var severityOrder = map[model.SeverityLevel]int{
	model.SeverityUnrecognized: 0,
	model.SeverityInfo:         1,
	model.SeverityWarn:         2,
	model.SeverityHigh:         3,
	model.SeverityCritical:     4,
}

func severityRank(s model.Severity) int {
	return severityOrder[s.Level]
}

// Highest returns the most severe finding level in the report.
func (c *Correlator) Highest(report *model.Report) (model.Severity, bool) {
	if report == nil || len(report.Findings) == 0 {
		return model.Severity{}, false
	}
	best := report.Findings[0].Severity
	for _, f := range report.Findings[1:] {
		if severityRank(f.Severity) > severityRank(best) {
			best = f.Severity
		}
	}
	return best, true
}
