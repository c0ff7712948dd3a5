package agent

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var coveragePattern = regexp.MustCompile(`TOTAL\s+\d+\s+\d+\s+(\d+)%`)

// coveragercTemplate scopes coverage to the generated sources and
// excludes boilerplate lines that would drag the percentage down.
const coveragercTemplate = `[run]
source = %s
omit =
    */__init__.py
    tests/*
    **/test_*.py

[report]
exclude_lines =
    pragma: no cover
    def __repr__
    if self.debug:
    if __name__ == .__main__.:
    raise NotImplementedError
    pass
    except ImportError:
    def main
`

// TestReport holds the outcome of a pytest run.
type TestReport struct {
	Passed   bool   `json:"passed"`
	Coverage int    `json:"coverage"`
	Output   string `json:"-"`
}

// parseCoverage extracts the TOTAL percentage from a coverage report,
// or 0 when missing.
func parseCoverage(output string) int {
	m := coveragePattern.FindStringSubmatch(output)
	if m == nil {
		return 0
	}
	pct, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return pct
}

// runTests writes the coverage config and runs pytest with coverage.
func (s *Session) runTests(ctx context.Context) (TestReport, error) {
	report := TestReport{}

	coveragerc := fmt.Sprintf(coveragercTemplate, s.env.WorkingDirectory())
	if err := s.env.WriteFile(".coveragerc", coveragerc); err != nil {
		return report, fmt.Errorf("write .coveragerc: %w", err)
	}

	result, err := s.toolchain.Pytest(ctx, s.env.WorkingDirectory())
	if err != nil {
		return report, fmt.Errorf("pytest: %w", err)
	}

	output := result.Output()
	report.Output = TruncateToolOutput("pytest", output, s.config.ToolOutputLimits, s.config.ToolLineLimits)

	if strings.Contains(output, "No data to report.") {
		report.Passed = false
		report.Coverage = 0
	} else {
		report.Coverage = parseCoverage(output)
		report.Passed = !strings.Contains(strings.ToLower(output), "failed") && result.ExitCode == 0
	}

	s.emitter.Emit(EventTestRun, map[string]interface{}{
		"passed":   report.Passed,
		"coverage": report.Coverage,
	})
	return report, nil
}
