package model

import (
	"encoding/json"
	"strconv"
)

type Severity struct {
	Level SeverityLevel
	Raw   string
}

type SeverityLevel int

const (
	SeverityUnrecognized SeverityLevel = iota
	SeverityInfo
	SeverityWarn
	SeverityHigh
	SeverityCritical
)

var severityNames = map[string]SeverityLevel{
	"INFO":     SeverityInfo,
	"WARN":     SeverityWarn,
	"HIGH":     SeverityHigh,
	"CRITICAL": SeverityCritical,
}

// ParseSeverity never fails; strings outside the closed set keep their raw
// value with SeverityUnrecognized.
func ParseSeverity(raw string) Severity {
	return Severity{Level: severityNames[raw], Raw: raw}
}

func (s Severity) Known() bool { return s.Level != SeverityUnrecognized }

func (s Severity) String() string { return s.Raw }

func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Raw)
}

func (s *Severity) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = ParseSeverity(raw)
	return nil
}

type Finding struct {
	FindingID    string   `json:"finding_id"`
	Type         string   `json:"type"`
	Protocol     string   `json:"protocol"`
	Severity     Severity `json:"severity"`
	Confidence   float64  `json:"confidence"`
	Message      string   `json:"message"`
	EvidenceRefs []string `json:"evidence_refs"`
}

type TimeRange struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

type Evidence struct {
	EvidenceID string         `json:"evidence_id"`
	Type       string         `json:"type"`
	TimeRange  *TimeRange     `json:"time_range,omitempty"`
	Details    map[string]any `json:"details"`
}

func FormatConfidence(c float64) string {
	return strconv.FormatFloat(c, 'f', -1, 64) + "%"
}
