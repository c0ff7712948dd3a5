package agent

import (
	"fmt"
	"strings"
	"time"
)

const baseSystemPrompt = `You are an expert Python developer. You complete coding tasks by emitting complete project files.

Response contract:
- Enclose your entire response between ` + StartMarker + ` and ` + EndMarker + ` markers.
- Provide each file as <<<path>>> followed by the file content on the next line, terminated by ` + FileBlockEnd + `.
- List any third-party dependencies between ` + DepStartMarker + ` and ` + DepEndMarker + ` separated by semicolons. Never list packages that are already installed.
- Output raw file content only. No markdown fences, no headings, no commentary outside the markers.`

// BuildEnvironmentContext renders the environment block appended to the
// system prompt.
func BuildEnvironmentContext(env ExecutionEnvironment, model, provider string) string {
	var b strings.Builder
	b.WriteString("<environment>\n")
	fmt.Fprintf(&b, "Working directory: %s\n", env.WorkingDirectory())
	fmt.Fprintf(&b, "Platform: %s\n", env.Platform())
	fmt.Fprintf(&b, "Today's date: %s\n", time.Now().Format("2006-01-02"))
	fmt.Fprintf(&b, "Model: %s (%s)\n", model, provider)
	b.WriteString("</environment>")
	return b.String()
}

// buildSystemPrompt assembles the standing instructions for a session.
func buildSystemPrompt(env ExecutionEnvironment, model, provider string) string {
	return baseSystemPrompt + "\n\n" + BuildEnvironmentContext(env, model, provider)
}

// implementPrompt asks for the initial solution. Reference material
// gathered from --docs/--code/--data is appended when present.
func implementPrompt(task, workDir string, cfg SessionConfig, referenceDocs, referenceCode, referenceData string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `Create a complete Python solution for the following task: %s

Follow these rules strictly:
1. Provide a full, working implementation in main.py. Do not leave placeholders or TODO stubs.
2. Provide comprehensive tests in tests/test_main.py using pytest, targeting at least %d%% code coverage.
3. Always provide main.py and tests/test_main.py in full, even for small changes.
4. Provide each file as <<<path>>> followed by its content, terminated by %s.
5. List any third-party dependencies between %s and %s separated by semicolons. pytest, pylint, autopep8, pytest-cov, and complexipy are already installed.
6. Write pylint-compliant code scoring at least %.1f/10 with lines no longer than 120 characters.
7. Do not add any code comments or docstrings.
8. Keep the total cognitive complexity of main.py under %d.
9. Do not use input(), GUI frameworks, or anything requiring user interaction; the code must run unattended.
10. Give main.py a main entry point. A web app must serve on port 8080.
11. The project working directory is %s.

Enclose your entire response between %s and %s.`,
		task, cfg.CoverageThreshold, FileBlockEnd, DepStartMarker, DepEndMarker,
		cfg.PylintThreshold, cfg.ComplexityThreshold, workDir, StartMarker, EndMarker)

	if referenceDocs != "" {
		fmt.Fprintf(&b, "\n\nReference documentation:\n%s", referenceDocs)
	}
	if referenceCode != "" {
		fmt.Fprintf(&b, "\n\nReference code:\n%s", referenceCode)
	}
	if referenceData != "" {
		fmt.Fprintf(&b, "\n\nReference data (CSV):\n%s", referenceData)
	}
	return b.String()
}

// improveCodePrompt asks for a quality-driven rewrite after pylint or
// complexipy flagged the file.
func improveCodePrompt(file string, report QualityReport, task, workDir string, cfg SessionConfig) string {
	return fmt.Sprintf(`The current implementation needs improvement.

Pylint score: %.1f/10 (required: at least %.1f)
Cognitive complexity: %d (required: under %d)

Pylint output:
%s

Complexity output:
%s

Original task: %s

Follow these rules strictly:
1. Improve %s so pylint scores at least %.1f and cognitive complexity stays under %d.
2. Preserve the existing behavior; all current tests must keep passing.
3. Provide %s in full as <<<%s>>> followed by its content, terminated by %s.
4. List any new dependencies between %s and %s separated by semicolons.
5. Do not add any code comments or docstrings.
6. Do not modify the tests in this response.
7. Do not use input() or anything requiring user interaction.
8. The project working directory is %s.

Enclose your entire response between %s and %s.`,
		report.PylintScore, cfg.PylintThreshold,
		report.ComplexityScore, cfg.ComplexityThreshold,
		report.PylintOutput,
		report.ComplexityOutput,
		task,
		file, cfg.PylintThreshold, cfg.ComplexityThreshold,
		file, file, FileBlockEnd,
		DepStartMarker, DepEndMarker,
		workDir,
		StartMarker, EndMarker)
}

// improveTestsPrompt asks for a test rewrite after failures or low
// coverage.
func improveTestsPrompt(testOutput, task, workDir string, cfg SessionConfig) string {
	return fmt.Sprintf(`The test suite is failing or coverage is below %d%%.

Test output:
%s

Original task: %s

Follow these rules strictly:
1. Modify only the test file. Provide tests/test_main.py in full as <<<tests/test_main.py>>> followed by its content, terminated by %s.
2. List any new test dependencies between %s and %s separated by semicolons.
3. Cover the untested code paths shown in the coverage report to reach at least %d%% coverage.
4. The project working directory is %s.

Enclose your entire response between %s and %s.`,
		cfg.CoverageThreshold,
		testOutput,
		task,
		FileBlockEnd,
		DepStartMarker, DepEndMarker,
		cfg.CoverageThreshold,
		workDir,
		StartMarker, EndMarker)
}

// validatePrompt asks the model to confirm a proposed change still
// solves the task before it is applied.
func validatePrompt(proposed, task string) string {
	return fmt.Sprintf(`Review the proposed improvements:

%s

Confirm whether they correctly address the original task: %s

If the proposed changes are correct and complete, respond with the single word VALID.
If they are incorrect or incomplete, respond with the single word INVALID.`,
		proposed, task)
}
