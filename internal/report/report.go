// Package report renders user-facing console output for the run and score
// commands. Diagnostics go through internal/logging instead.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/mwiater/llmeval/internal/runner"
	"github.com/mwiater/llmeval/internal/scoring"
	"github.com/mwiater/llmeval/internal/util"
)

const (
	barWidth     = 40
	rawPreview   = 200
	summaryTitle = "SUMMARY"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 1)
	labelStyle = lipgloss.NewStyle().Faint(true)
)

// Printer writes status lines, progress and summaries to one writer.
type Printer struct {
	out  io.Writer
	tty  bool
	bar  progress.Model
	ok   *color.Color
	warn *color.Color
	fail *color.Color
	head *color.Color

	inProgress bool
}

// New returns a Printer for out. Colour and the progress bar are only used
// when out is a terminal.
func New(out io.Writer) *Printer {
	p := &Printer{
		out:  out,
		tty:  IsTerminal(out),
		bar:  progress.New(progress.WithDefaultGradient(), progress.WithWidth(barWidth)),
		ok:   color.New(color.FgGreen),
		warn: color.New(color.FgYellow),
		fail: color.New(color.FgRed),
		head: color.New(color.FgCyan, color.Bold),
	}
	if !p.tty {
		for _, c := range []*color.Color{p.ok, p.warn, p.fail, p.head} {
			c.DisableColor()
		}
	}
	return p
}

// IsTerminal reports whether w is a terminal file.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Heading prints a section heading.
func (p *Printer) Heading(format string, args ...any) {
	p.endProgress()
	p.head.Fprintf(p.out, "\n%s\n", fmt.Sprintf(format, args...))
	fmt.Fprintln(p.out, strings.Repeat("=", 80))
}

// Infof prints a plain status line.
func (p *Printer) Infof(format string, args ...any) {
	p.endProgress()
	fmt.Fprintf(p.out, format+"\n", args...)
}

// Successf prints a status line marked as success.
func (p *Printer) Successf(format string, args ...any) {
	p.endProgress()
	p.ok.Fprintf(p.out, "✓ "+format+"\n", args...)
}

// Warnf prints a status line marked as a warning.
func (p *Printer) Warnf(format string, args ...any) {
	p.endProgress()
	p.warn.Fprintf(p.out, "⚠ "+format+"\n", args...)
}

// Errorf prints a status line marked as a failure.
func (p *Printer) Errorf(format string, args ...any) {
	p.endProgress()
	p.fail.Fprintf(p.out, "✗ "+format+"\n", args...)
}

// Question reports generation progress. On a terminal the line is redrawn in
// place with a progress bar.
func (p *Printer) Question(model string, index, total int) {
	if !p.tty {
		fmt.Fprintf(p.out, "[%s] question %d/%d\n", model, index, total)
		return
	}
	pct := 0.0
	if total > 0 {
		pct = float64(index) / float64(total)
	}
	fmt.Fprintf(p.out, "\r%s %d/%d", p.bar.ViewAs(pct), index, total)
	p.inProgress = true
}

// Chunk echoes streamed judge output. The next status line starts on a
// fresh line.
func (p *Printer) Chunk(text string) {
	if text == "" {
		return
	}
	fmt.Fprint(p.out, text)
	p.inProgress = !strings.HasSuffix(text, "\n")
}

func (p *Printer) endProgress() {
	if p.inProgress {
		fmt.Fprintln(p.out)
		p.inProgress = false
	}
}

// RunStart prints the suite header before generation.
func (p *Printer) RunStart(name, description, baseURL string, models []string, questions int) {
	p.Heading("Test Suite: %s", name)
	if description != "" {
		p.Infof("Description: %s", description)
	}
	p.Infof("API Base URL: %s", baseURL)
	p.Infof("Questions: %d", questions)
	p.Infof("Models to test: %d", len(models))
	for i, m := range models {
		p.Infof("  %d. %s", i+1, m)
	}
}

// RunSummary prints the files a completed run produced.
func (p *Printer) RunSummary(m *runner.Manifest) {
	p.endProgress()
	lines := []string{titleStyle.Render("Test suite completed")}
	for _, model := range m.Models {
		lines = append(lines, fmt.Sprintf("%s %s (%.1fs)", labelStyle.Render("•"), model.ResultsFile, model.Duration))
	}
	lines = append(lines,
		fmt.Sprintf("%s %s", labelStyle.Render("Manifest:"), filepath.Join(m.Dir, runner.ManifestFileName)),
		fmt.Sprintf("%s %.1fs", labelStyle.Render("Total:"), m.FullDuration),
	)
	fmt.Fprintln(p.out, boxStyle.Render(strings.Join(lines, "\n")))
}

// ScoreRun prints one repetition's parsed outcome.
func (p *Printer) ScoreRun(index, total int, run scoring.JudgmentRun) {
	p.endProgress()
	if run.Parsed() {
		p.Successf("Run %d/%d: %d/%d (%.2f%%)", index, total, *run.Correct, *run.Total, *run.Percentage)
		return
	}
	p.Warnf("Run %d/%d: %s: %q", index, total, run.ParseError, util.TruncateRunes(run.RawOutput, rawPreview))
}

// ScoreSummary prints the aggregate for a scored transcript.
func (p *Printer) ScoreSummary(out *scoring.ScoreOutput, scoresFile string) {
	p.endProgress()
	fmt.Fprintln(p.out, FormatScoreSummary(out, scoresFile))
}

// FormatScoreSummary renders the summary box.
func FormatScoreSummary(out *scoring.ScoreOutput, scoresFile string) string {
	lines := []string{titleStyle.Render(summaryTitle)}
	s := out.Summary
	if s.MeanCorrect == nil {
		lines = append(lines, "Unable to parse scores from judge output")
	} else {
		total := 0
		for _, r := range out.Runs {
			if r.Parsed() {
				total = *r.Total
				break
			}
		}
		lines = append(lines,
			fmt.Sprintf("%s %.2f/%d (%.2f%%)", labelStyle.Render("Mean Score:    "), *s.MeanCorrect, total, *s.MeanPercentage),
			fmt.Sprintf("%s %d-%d correct answers", labelStyle.Render("Score Range:   "), *s.MinCorrect, *s.MaxCorrect),
			fmt.Sprintf("%s ±%d answers", labelStyle.Render("Spread:        "), *s.MaxCorrect-*s.MinCorrect),
		)
		if s.Variance != nil {
			lines = append(lines, fmt.Sprintf("%s %.2f", labelStyle.Render("Variance:      "), *s.Variance))
		}
		lines = append(lines, fmt.Sprintf("%s %s", labelStyle.Render("All runs valid:"), yesNo(s.AllRunsParsed)))
	}
	if scoresFile != "" {
		lines = append(lines, fmt.Sprintf("%s %s", labelStyle.Render("Scores file:   "), scoresFile))
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
