package suite

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var requiredColumns = []string{"ID", "Section", "Question", "ExpectedAnswer"}

// LoadQuestions reads a questions CSV file. See ReadQuestions.
func LoadQuestions(path string) ([]Question, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open questions file %s: %w", path, err)
	}
	defer f.Close()

	questions, err := ReadQuestions(f)
	if err != nil {
		return nil, fmt.Errorf("questions file %s: %w", path, err)
	}
	return questions, nil
}

// ReadQuestions parses CSV rows with a required header naming the ID,
// Section, Question and ExpectedAnswer columns. Extra columns are ignored.
// Row order is preserved.
func ReadQuestions(r io.Reader) ([]Question, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("missing CSV header")
		}
		return nil, fmt.Errorf("read CSV header: %w", err)
	}

	colIndex := make(map[string]int, len(header))
	for i, col := range header {
		col = strings.TrimPrefix(col, "\ufeff")
		colIndex[strings.TrimSpace(col)] = i
	}

	minCols := 0
	for _, required := range requiredColumns {
		idx, ok := colIndex[required]
		if !ok {
			return nil, fmt.Errorf("missing required CSV column: %s", required)
		}
		if idx >= minCols {
			minCols = idx + 1
		}
	}

	var questions []Question
	for lineNum := 2; ; lineNum++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV row %d: %w", lineNum, err)
		}
		if len(record) < minCols {
			return nil, fmt.Errorf("CSV row %d has %d columns, expected at least %d", lineNum, len(record), minCols)
		}

		questions = append(questions, Question{
			ID:             record[colIndex["ID"]],
			Section:        record[colIndex["Section"]],
			QuestionText:   record[colIndex["Question"]],
			ExpectedAnswer: record[colIndex["ExpectedAnswer"]],
		})
	}

	return questions, nil
}
