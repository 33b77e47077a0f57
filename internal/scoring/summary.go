package scoring

import "slices"

// Summary aggregates the parsed runs of one scoring invocation. Every
// numeric field is nil when no run parsed.
type Summary struct {
	MeanCorrect    *float64 `json:"mean_correct"`
	MeanPercentage *float64 `json:"mean_percentage"`
	MinCorrect     *int     `json:"min_correct"`
	MaxCorrect     *int     `json:"max_correct"`
	Variance       *float64 `json:"variance"`
	AllRunsParsed  bool     `json:"all_runs_parsed"`
}

// Summarize computes the aggregate over runs. Unparsed runs are excluded
// from the means and extrema rather than counted as zero. MeanPercentage is
// the mean of each run's own percentage, not correct/total of the means.
func Summarize(runs []JudgmentRun) Summary {
	var correct []int
	var percents []float64
	for _, r := range runs {
		if !r.Parsed() {
			continue
		}
		correct = append(correct, *r.Correct)
		percents = append(percents, *r.Percentage)
	}

	if len(correct) == 0 {
		return Summary{AllRunsParsed: false}
	}

	sum := 0.0
	for _, c := range correct {
		sum += float64(c)
	}
	mean := sum / float64(len(correct))

	pctSum := 0.0
	for _, p := range percents {
		pctSum += p
	}

	sq := 0.0
	for _, c := range correct {
		d := float64(c) - mean
		sq += d * d
	}

	meanCorrect := round2(mean)
	meanPct := round2(pctSum / float64(len(percents)))
	variance := round2(sq / float64(len(correct)))
	minC := slices.Min(correct)
	maxC := slices.Max(correct)

	return Summary{
		MeanCorrect:    &meanCorrect,
		MeanPercentage: &meanPct,
		MinCorrect:     &minC,
		MaxCorrect:     &maxC,
		Variance:       &variance,
		AllRunsParsed:  len(correct) == len(runs),
	}
}
