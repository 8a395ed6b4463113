package model

import (
	"strings"
	"time"
)

// PendingPrefix marks a placeholder report that the engine has not finished.
const PendingPrefix = "PENDING"

const noTitle = "(no title)"

type Summary struct {
	Title *string `json:"title,omitempty"`
}

type Report struct {
	ReportVersion string     `json:"report_version"`
	EngineVersion string     `json:"engine_version"`
	GeneratedAt   string     `json:"generated_at,omitempty"`
	Summary       *Summary   `json:"summary,omitempty"`
	Findings      []Finding  `json:"findings"`
	Evidence      []Evidence `json:"evidence"`
}

// Title returns the summary title and whether one was present.
func (r *Report) Title() (string, bool) {
	if r == nil || r.Summary == nil || r.Summary.Title == nil {
		return "", false
	}
	return *r.Summary.Title, true
}

func (r *Report) DisplayTitle() string {
	if t, ok := r.Title(); ok && t != "" {
		return t
	}
	return noTitle
}

// Final reports whether the report is a completed result. An absent title
// is treated the same as a pending one.
func (r *Report) Final() bool {
	t, ok := r.Title()
	if !ok {
		return false
	}
	return !strings.HasPrefix(t, PendingPrefix)
}

func (r *Report) Placeholder() bool { return r != nil && !r.Final() }

// GeneratedTime parses generated_at. Both Go RFC3339Nano and Python
// isoformat() timestamps with an offset are accepted.
func (r *Report) GeneratedTime() (time.Time, bool) {
	if r == nil {
		return time.Time{}, false
	}
	return ParseTimestamp(r.GeneratedAt)
}

func (r *Report) Finding(id string) (Finding, bool) {
	if r == nil {
		return Finding{}, false
	}
	for _, f := range r.Findings {
		if f.FindingID == id {
			return f, true
		}
	}
	return Finding{}, false
}

func ParseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func StringPtr(s string) *string { return &s }
