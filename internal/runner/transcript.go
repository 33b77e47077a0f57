package runner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mwiater/llmeval/internal/logging"
	"github.com/mwiater/llmeval/internal/suite"
)

const (
	// BlockSeparator opens every question block in a transcript.
	BlockSeparator = "---"
	// BlockHeaderPrefix starts the line that follows each BlockSeparator.
	BlockHeaderPrefix = "NO. "
)

// ProgressFunc is called before each question is sent. index is 1-based.
type ProgressFunc func(model string, index, total int)

// Transcript is one model's complete set of answers, in question order.
type Transcript struct {
	Model    string
	Text     string
	Answers  int
	Duration time.Duration
}

// WriteBlock appends one question block to b.
func WriteBlock(b *strings.Builder, q suite.Question, answer string) {
	fmt.Fprintf(b, "%s\n", BlockSeparator)
	fmt.Fprintf(b, "%s%s - %s\n", BlockHeaderPrefix, q.ID, q.Section)
	fmt.Fprintf(b, "QUESTION: %s\n", q.QuestionText)
	fmt.Fprintf(b, "EXPECTED ANSWER: %s\n", q.ExpectedAnswer)
	fmt.Fprintf(b, "ACTUAL ANSWER: %s\n", answer)
}

// BuildTranscript asks model every question in order. The first failed
// question aborts the whole transcript; no partial transcript is returned.
func BuildTranscript(ctx context.Context, client ModelClient, model suite.Model, questions []suite.Question, systemMessage string, progress ProgressFunc) (*Transcript, error) {
	start := time.Now()
	var b strings.Builder

	for i, q := range questions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if progress != nil {
			progress(model.Name, i+1, len(questions))
		}

		answer, err := client.Ask(ctx, q.QuestionText, systemMessage, model.Name, model.Temperature)
		if err != nil {
			logging.LogEvent("question %s failed for model %s: %v", q.ID, model.Name, err)
			return nil, fmt.Errorf("question %s (%d/%d) for model %s: %w", q.ID, i+1, len(questions), model.Name, err)
		}
		WriteBlock(&b, q, answer)
	}

	return &Transcript{
		Model:    model.Name,
		Text:     b.String(),
		Answers:  len(questions),
		Duration: time.Since(start),
	}, nil
}
