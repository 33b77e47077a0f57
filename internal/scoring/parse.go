package scoring

import (
	"math"
	"regexp"
	"strconv"
)

// ParseErrorMessage is recorded on a run whose output has no "N out of M" verdict.
const ParseErrorMessage = "Could not parse score from output"

var scorePattern = regexp.MustCompile(`(?i)(\d+)\s+out\s+of\s+(\d+)`)

// JudgmentRun is the outcome of one judge invocation. Numeric fields are nil
// when the output could not be parsed.
type JudgmentRun struct {
	Correct    *int     `json:"correct"`
	Total      *int     `json:"total"`
	Percentage *float64 `json:"percentage"`
	RawOutput  string   `json:"raw_output"`
	ParseError string   `json:"parse_error,omitempty"`
}

// Parsed reports whether the run produced a score.
func (r JudgmentRun) Parsed() bool {
	return r.Correct != nil && r.ParseError == ""
}

// ParseScore extracts the first "<int> out of <int>" from raw. The raw text
// is kept verbatim either way.
func ParseScore(raw string) JudgmentRun {
	m := scorePattern.FindStringSubmatch(raw)
	if m == nil {
		return JudgmentRun{RawOutput: raw, ParseError: ParseErrorMessage}
	}

	correct, errC := strconv.Atoi(m[1])
	total, errT := strconv.Atoi(m[2])
	if errC != nil || errT != nil {
		return JudgmentRun{RawOutput: raw, ParseError: ParseErrorMessage}
	}

	pct := 0.0
	if total > 0 {
		pct = round2(float64(correct) / float64(total) * 100)
	}
	return JudgmentRun{
		Correct:    &correct,
		Total:      &total,
		Percentage: &pct,
		RawOutput:  raw,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
