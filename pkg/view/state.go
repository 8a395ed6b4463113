// Package view holds the state of one traceops workflow run: the submitted
// job, the latest report, the selected finding and the last error. All
// mutations go through State methods; readers work on Snapshot copies.
package view

import (
	"errors"
	"fmt"
	"sync"

	"github.com/marek-kar/traceops/pkg/analysis"
	"github.com/marek-kar/traceops/pkg/model"
)

var ErrUnknownFinding = errors.New("finding not in current report")

// Generation identifies one job run. Updates carrying an older generation
// are dropped.
type Generation uint64

type Snapshot struct {
	Generation        Generation
	Job               *model.JobHandle
	Report            *model.Report
	SelectedFindingID string
	Err               error
	Loading           bool
}

type State struct {
	mu   sync.Mutex
	snap Snapshot
}

func NewState() *State {
	return &State{}
}

// BeginJob clears job, report, selection and error in one step and returns
// the generation that later updates for this run must carry.
func (s *State) BeginJob() Generation {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap = Snapshot{Generation: s.snap.Generation + 1, Loading: true}
	return s.snap.Generation
}

func (s *State) current(gen Generation) bool {
	return gen == s.snap.Generation
}

func (s *State) SetJob(gen Generation, job model.JobHandle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.current(gen) {
		return false
	}
	s.snap.Job = &job
	return true
}

// ApplyReport replaces the held report in full. It reports false and leaves
// the state untouched when gen is stale.
func (s *State) ApplyReport(gen Generation, r *model.Report) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.current(gen) {
		return false
	}
	s.snap.Report = r
	if s.snap.SelectedFindingID != "" {
		if _, ok := r.Finding(s.snap.SelectedFindingID); !ok {
			s.snap.SelectedFindingID = ""
		}
	}
	return true
}

func (s *State) Fail(gen Generation, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.current(gen) {
		return false
	}
	s.snap.Err = err
	s.snap.Loading = false
	return true
}

func (s *State) Finish(gen Generation) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.current(gen) {
		return false
	}
	s.snap.Loading = false
	return true
}

// Select marks a finding of the current report for the detail view. It does
// not touch the report.
func (s *State) Select(findingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.snap.Report.Finding(findingID); !ok {
		return fmt.Errorf("select %q: %w", findingID, ErrUnknownFinding)
	}
	s.snap.SelectedFindingID = findingID
	return nil
}

func (s *State) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap.SelectedFindingID = ""
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snap
}

// Detail is the detail of the currently selected finding, or nil.
func (s *State) Detail(c *analysis.Correlator) *Detail {
	return s.Snapshot().Detail(c)
}

type Detail struct {
	Finding      model.Finding
	Presentation analysis.Presentation
	Evidence     []analysis.ResolvedEvidence
}

// Detail resolves the selected finding against the snapshot's report. It
// returns nil when nothing is selected.
func (snap Snapshot) Detail(c *analysis.Correlator) *Detail {
	if snap.SelectedFindingID == "" {
		return nil
	}
	f, ok := snap.Report.Finding(snap.SelectedFindingID)
	if !ok {
		return nil
	}
	return NewDetail(c, snap.Report, f)
}

func NewDetail(c *analysis.Correlator, r *model.Report, f model.Finding) *Detail {
	return &Detail{
		Finding:      f,
		Presentation: analysis.Present(f.Severity),
		Evidence:     c.ResolveEvidence(r, f),
	}
}
