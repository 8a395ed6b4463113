package analysis

import "github.com/marek-kar/traceops/pkg/model"

type RGB [3]int

type Style struct {
	Background RGB
	Foreground RGB
	ANSI       string
}

type Presentation struct {
	Label string
	Style Style
}

var (
	styleInfo     = Style{Background: RGB{232, 241, 255}, Foreground: RGB{0, 59, 138}, ANSI: "\x1b[34m"}
	styleWarn     = Style{Background: RGB{255, 246, 219}, Foreground: RGB{122, 82, 0}, ANSI: "\x1b[33m"}
	styleHigh     = Style{Background: RGB{255, 225, 225}, Foreground: RGB{138, 0, 0}, ANSI: "\x1b[31m"}
	styleCritical = Style{Background: RGB{255, 203, 203}, Foreground: RGB{75, 0, 0}, ANSI: "\x1b[1;31m"}

	// NeutralStyle is used for severities outside the known set.
	NeutralStyle = Style{Background: RGB{243, 243, 243}, Foreground: RGB{51, 51, 51}, ANSI: ""}
)

const unknownLabel = "UNKNOWN"

// Present maps a severity to its badge. Unknown values keep their raw text
// and get NeutralStyle.
func Present(s model.Severity) Presentation {
	switch s.Level {
	case model.SeverityInfo:
		return Presentation{Label: s.Raw, Style: styleInfo}
	case model.SeverityWarn:
		return Presentation{Label: s.Raw, Style: styleWarn}
	case model.SeverityHigh:
		return Presentation{Label: s.Raw, Style: styleHigh}
	case model.SeverityCritical:
		return Presentation{Label: s.Raw, Style: styleCritical}
	}
	label := s.Raw
	if label == "" {
		label = unknownLabel
	}
	return Presentation{Label: label, Style: NeutralStyle}
}
