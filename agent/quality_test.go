package agent

import (
	"context"
	"strings"
	"testing"
)

func TestParsePylintScore(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   float64
	}{
		{
			name:   "standard report",
			output: "************* Module main\nYour code has been rated at 8.75/10 (previous run: 7.50/10, +1.25)",
			want:   8.75,
		},
		{
			name:   "perfect score",
			output: "Your code has been rated at 10.00/10",
			want:   10.0,
		},
		{
			name:   "no score line",
			output: "fatal error before rating",
			want:   0.0,
		},
		{
			name:   "empty output",
			output: "",
			want:   0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parsePylintScore(tt.output); got != tt.want {
				t.Errorf("parsePylintScore = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseComplexityScore(t *testing.T) {
	tests := []struct {
		name   string
		file   string
		output string
		want   int
	}{
		{
			name:   "standard report",
			file:   "main.py",
			output: "Total Cognitive Complexity in main.py: 12",
			want:   12,
		},
		{
			name:   "wrapped across whitespace",
			file:   "main.py",
			output: "Total Cognitive Complexity in\nmain.py: 7",
			want:   7,
		},
		{
			name:   "other file reported",
			file:   "main.py",
			output: "Total Cognitive Complexity in other.py: 99",
			want:   0,
		},
		{
			name:   "no report",
			file:   "main.py",
			output: "complexipy crashed",
			want:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseComplexityScore(tt.output, tt.file); got != tt.want {
				t.Errorf("parseComplexityScore = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestQualityReportPassing(t *testing.T) {
	tests := []struct {
		name       string
		pylint     float64
		complexity int
		want       bool
	}{
		{"both pass", 8.0, 10, true},
		{"exactly at thresholds", 7.0, 15, true},
		{"pylint too low", 6.9, 10, false},
		{"complexity too high", 9.0, 16, false},
		{"both fail", 2.0, 40, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := QualityReport{PylintScore: tt.pylint, ComplexityScore: tt.complexity}
			if got := report.Passing(7.0, 15); got != tt.want {
				t.Errorf("Passing = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCodeCheckMeasures(t *testing.T) {
	env := newFakeEnv("/work/project_123")
	env.execFn = func(command string) *ExecResult {
		switch {
		case strings.Contains(command, "autopep8"):
			return &ExecResult{ExitCode: 0}
		case strings.Contains(command, "pylint"):
			return &ExecResult{Stdout: pylintOutput("6.42"), ExitCode: 4}
		case strings.Contains(command, "complexipy"):
			return &ExecResult{Stdout: complexipyOutput("main.py", 21), ExitCode: 0}
		default:
			return &ExecResult{ExitCode: 0}
		}
	}

	session, _ := newTestSession("task", env)
	report, err := session.codeCheck(context.Background(), "main.py")
	if err != nil {
		t.Fatalf("codeCheck: %v", err)
	}

	if report.File != "main.py" {
		t.Errorf("File = %q", report.File)
	}
	if report.PylintScore != 6.42 {
		t.Errorf("PylintScore = %v, want 6.42", report.PylintScore)
	}
	if report.ComplexityScore != 21 {
		t.Errorf("ComplexityScore = %d, want 21", report.ComplexityScore)
	}
	if !strings.Contains(report.PylintOutput, "6.42/10") {
		t.Errorf("PylintOutput = %q", report.PylintOutput)
	}
	if report.Passing(7.0, 15) {
		t.Error("failing report passed")
	}

	if !env.hasCommand("uv run autopep8 --in-place --aggressive 'main.py'") {
		t.Errorf("autopep8 not run; commands: %v", env.commands)
	}
}

func TestCodeCheckAutopep8Failure(t *testing.T) {
	env := newFakeEnv("/work/project_123")
	env.execFn = func(command string) *ExecResult {
		if strings.Contains(command, "autopep8") {
			return &ExecResult{Stderr: "no such file", ExitCode: 2}
		}
		return &ExecResult{ExitCode: 0}
	}

	session, _ := newTestSession("task", env)
	if _, err := session.codeCheck(context.Background(), "main.py"); err == nil {
		t.Error("codeCheck succeeded despite autopep8 failure")
	}
}
