package agent

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
)

var pylintScorePattern = regexp.MustCompile(`Your code has been rated at (\d+\.\d+)/10`)

// complexityPattern matches complexipy's total for a specific file.
func complexityPattern(file string) *regexp.Regexp {
	return regexp.MustCompile(`Total Cognitive Complexity in\s*` + regexp.QuoteMeta(file) + `:\s*(\d+)`)
}

// QualityReport holds the measured quality of a file.
type QualityReport struct {
	File             string  `json:"file"`
	PylintScore      float64 `json:"pylint_score"`
	ComplexityScore  int     `json:"complexity_score"`
	PylintOutput     string  `json:"-"`
	ComplexityOutput string  `json:"-"`
}

// Passing reports whether the file meets both thresholds.
func (r QualityReport) Passing(pylintThreshold float64, complexityThreshold int) bool {
	return r.PylintScore >= pylintThreshold && r.ComplexityScore <= complexityThreshold
}

// parsePylintScore extracts the 0-10 rating from pylint output, or 0
// when pylint crashed before rating.
func parsePylintScore(output string) float64 {
	m := pylintScorePattern.FindStringSubmatch(output)
	if m == nil {
		return 0.0
	}
	score, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0.0
	}
	return score
}

// parseComplexityScore extracts the total cognitive complexity for a
// file from complexipy output, or 0 when absent.
func parseComplexityScore(output, file string) int {
	m := complexityPattern(file).FindStringSubmatch(output)
	if m == nil {
		return 0
	}
	score, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return score
}

// codeCheck formats a file in place, then measures it with pylint and
// complexipy. It measures only; the improvement loop decides what to do
// with the report.
func (s *Session) codeCheck(ctx context.Context, file string) (QualityReport, error) {
	report := QualityReport{File: file}

	format, err := s.toolchain.Autopep8(ctx, file)
	if err != nil {
		return report, fmt.Errorf("autopep8: %w", err)
	}
	if format.ExitCode != 0 {
		return report, fmt.Errorf("autopep8 failed: %s", format.Output())
	}

	lint, err := s.toolchain.Pylint(ctx, file)
	if err != nil {
		return report, fmt.Errorf("pylint: %w", err)
	}
	report.PylintOutput = TruncateToolOutput("pylint", lint.Output(), s.config.ToolOutputLimits, s.config.ToolLineLimits)
	report.PylintScore = parsePylintScore(lint.Output())

	complexity, err := s.toolchain.Complexipy(ctx, file)
	if err != nil {
		return report, fmt.Errorf("complexipy: %w", err)
	}
	report.ComplexityOutput = TruncateToolOutput("complexipy", complexity.Output(), s.config.ToolOutputLimits, s.config.ToolLineLimits)
	report.ComplexityScore = parseComplexityScore(complexity.Output(), file)

	s.emitter.Emit(EventQualityCheck, map[string]interface{}{
		"file":             file,
		"pylint_score":     report.PylintScore,
		"complexity_score": report.ComplexityScore,
	})
	return report, nil
}
