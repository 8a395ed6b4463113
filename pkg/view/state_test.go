package view

import (
	"errors"
	"testing"

	"github.com/marek-kar/traceops/pkg/analysis"
	"github.com/marek-kar/traceops/pkg/model"
)

func dnsReport() *model.Report {
	return &model.Report{
		ReportVersion: "0.5.0",
		Summary:       &model.Summary{Title: model.StringPtr("TraceOps Phase2 - Findings Report")},
		Findings: []model.Finding{
			{FindingID: "f1", Severity: model.ParseSeverity("HIGH"), EvidenceRefs: []string{"ev-1", "ev-missing"}},
			{FindingID: "f2", Severity: model.ParseSeverity("UNKNOWN_X")},
		},
		Evidence: []model.Evidence{{EvidenceID: "ev-1", Type: "dns_timeout_samples"}},
	}
}

func TestBeginJobClearsEverything(t *testing.T) {
	s := NewState()
	gen := s.BeginJob()
	s.SetJob(gen, model.JobHandle{JobID: "j1"})
	s.ApplyReport(gen, dnsReport())
	if err := s.Select("f1"); err != nil {
		t.Fatalf("select: %v", err)
	}
	s.Fail(gen, errors.New("boom"))

	next := s.BeginJob()
	if next <= gen {
		t.Errorf("generation should increase: got %d after %d", next, gen)
	}
	snap := s.Snapshot()
	if snap.Job != nil || snap.Report != nil || snap.SelectedFindingID != "" || snap.Err != nil {
		t.Errorf("state not reset: %+v", snap)
	}
	if !snap.Loading {
		t.Error("new job should be loading")
	}
}

func TestStaleUpdatesAreDropped(t *testing.T) {
	s := NewState()
	old := s.BeginJob()
	cur := s.BeginJob()

	if s.ApplyReport(old, dnsReport()) {
		t.Error("stale report was applied")
	}
	if s.SetJob(old, model.JobHandle{JobID: "old"}) {
		t.Error("stale job was applied")
	}
	if s.Fail(old, errors.New("late")) {
		t.Error("stale error was applied")
	}
	if s.Finish(old) {
		t.Error("stale finish was applied")
	}

	snap := s.Snapshot()
	if snap.Report != nil || snap.Job != nil || snap.Err != nil || !snap.Loading {
		t.Errorf("stale updates leaked into state: %+v", snap)
	}
	if !s.ApplyReport(cur, dnsReport()) {
		t.Error("current report should apply")
	}
}

func TestSelectIsPureViewTransition(t *testing.T) {
	s := NewState()
	gen := s.BeginJob()
	r := dnsReport()
	s.ApplyReport(gen, r)

	if err := s.Select("f1"); err != nil {
		t.Fatalf("select: %v", err)
	}
	snap := s.Snapshot()
	if snap.Report != r {
		t.Error("select must not replace the report")
	}
	if snap.SelectedFindingID != "f1" {
		t.Errorf("selected: got %q, want %q", snap.SelectedFindingID, "f1")
	}

	if err := s.Select("nope"); !errors.Is(err, ErrUnknownFinding) {
		t.Errorf("expected ErrUnknownFinding, got %v", err)
	}
	if got := s.Snapshot().SelectedFindingID; got != "f1" {
		t.Errorf("failed select changed selection to %q", got)
	}

	s.ClearSelection()
	if got := s.Snapshot().SelectedFindingID; got != "" {
		t.Errorf("selection not cleared: %q", got)
	}
}

func TestSelectWithoutReport(t *testing.T) {
	s := NewState()
	if err := s.Select("f1"); !errors.Is(err, ErrUnknownFinding) {
		t.Errorf("expected ErrUnknownFinding, got %v", err)
	}
}

func TestApplyReportDropsSelectionMissingFromNewReport(t *testing.T) {
	s := NewState()
	gen := s.BeginJob()
	s.ApplyReport(gen, dnsReport())
	if err := s.Select("f2"); err != nil {
		t.Fatal(err)
	}

	s.ApplyReport(gen, &model.Report{Findings: []model.Finding{{FindingID: "f1"}}})
	if got := s.Snapshot().SelectedFindingID; got != "" {
		t.Errorf("selection should be dropped, got %q", got)
	}
}

func TestDetailResolvesEvidence(t *testing.T) {
	s := NewState()
	gen := s.BeginJob()
	s.ApplyReport(gen, dnsReport())

	c := analysis.NewCorrelator()
	if d := s.Snapshot().Detail(c); d != nil {
		t.Errorf("no selection should give nil detail, got %+v", d)
	}

	if err := s.Select("f1"); err != nil {
		t.Fatal(err)
	}
	d := s.Detail(c)
	if d == nil {
		t.Fatal("expected detail")
	}
	if len(d.Evidence) != 2 {
		t.Fatalf("evidence entries: got %d, want 2", len(d.Evidence))
	}
	if d.Evidence[0].Missing() || !d.Evidence[1].Missing() {
		t.Errorf("unexpected resolution: %+v", d.Evidence)
	}
	if d.Presentation.Label != "HIGH" {
		t.Errorf("label: got %q, want %q", d.Presentation.Label, "HIGH")
	}
}

func TestDetailUnknownSeverityIsNeutral(t *testing.T) {
	s := NewState()
	gen := s.BeginJob()
	s.ApplyReport(gen, dnsReport())
	if err := s.Select("f2"); err != nil {
		t.Fatal(err)
	}
	d := s.Snapshot().Detail(analysis.NewCorrelator())
	if d.Presentation.Style != analysis.NeutralStyle {
		t.Errorf("expected neutral style, got %+v", d.Presentation.Style)
	}
	if d.Presentation.Label != "UNKNOWN_X" {
		t.Errorf("label: got %q, want %q", d.Presentation.Label, "UNKNOWN_X")
	}
}
