package agent

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// allowedCommandVerbs is the whitelist of executables the agent may run.
// Everything the loop needs goes through uv; pip only bootstraps uv.
var allowedCommandVerbs = map[string]bool{
	"uv":  true,
	"pip": true,
}

// packageNamePattern accepts PEP 508-style requirement strings and
// nothing that could smuggle shell syntax.
var packageNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._\[\],<>=!~-]*$`)

// Toolchain runs the Python developer tooling inside the project
// directory, enforcing the command whitelist and timeout bounds.
type Toolchain struct {
	env              ExecutionEnvironment
	emitter          *EventEmitter
	defaultTimeoutMs int
	maxTimeoutMs     int
}

// NewToolchain wires a toolchain to an execution environment. emitter
// may be nil when no event stream is wanted.
func NewToolchain(env ExecutionEnvironment, emitter *EventEmitter, defaultTimeoutMs, maxTimeoutMs int) *Toolchain {
	if defaultTimeoutMs <= 0 {
		defaultTimeoutMs = 300000
	}
	if maxTimeoutMs <= 0 {
		maxTimeoutMs = 600000
	}
	return &Toolchain{
		env:              env,
		emitter:          emitter,
		defaultTimeoutMs: defaultTimeoutMs,
		maxTimeoutMs:     maxTimeoutMs,
	}
}

// shellQuote wraps an argument in single quotes for bash.
func shellQuote(arg string) string {
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}

// run executes a whitelisted command and emits a command event.
func (t *Toolchain) run(ctx context.Context, tool, command, workingDir string, timeoutMs int) (*ExecResult, error) {
	verb, _, _ := strings.Cut(strings.TrimSpace(command), " ")
	if !allowedCommandVerbs[verb] {
		return nil, fmt.Errorf("command not allowed: %s", verb)
	}

	if timeoutMs <= 0 {
		timeoutMs = t.defaultTimeoutMs
	}
	if timeoutMs > t.maxTimeoutMs {
		timeoutMs = t.maxTimeoutMs
	}

	result, err := t.env.ExecCommand(ctx, command, timeoutMs, workingDir)
	if err != nil {
		return nil, err
	}

	if t.emitter != nil {
		t.emitter.Emit(EventCommandRun, map[string]interface{}{
			"tool":        tool,
			"command":     command,
			"exit_code":   result.ExitCode,
			"timed_out":   result.TimedOut,
			"duration_ms": result.DurationMs,
		})
	}
	return result, nil
}

// EnsureUV verifies uv is on PATH, installing it through pip when it is
// not.
func (t *Toolchain) EnsureUV(ctx context.Context) error {
	result, err := t.run(ctx, "uv", "uv --version", t.env.WorkingDirectory(), 30000)
	if err == nil && result.ExitCode == 0 {
		return nil
	}

	install, err := t.run(ctx, "pip", "pip install uv", t.env.WorkingDirectory(), t.defaultTimeoutMs)
	if err != nil {
		return fmt.Errorf("install uv: %w", err)
	}
	if install.ExitCode != 0 {
		return fmt.Errorf("install uv: %s", strings.TrimSpace(install.Output()))
	}
	return nil
}

// InitProject scaffolds a uv project. The command runs in parentDir so
// uv creates the project directory itself.
func (t *Toolchain) InitProject(ctx context.Context, parentDir, name string) error {
	result, err := t.run(ctx, "uv", fmt.Sprintf("uv init %s --no-workspace", shellQuote(name)), parentDir, t.defaultTimeoutMs)
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("uv init failed: %s", strings.TrimSpace(result.Output()))
	}
	return nil
}

// AddPackages installs packages with uv add. Every requirement string is
// validated before it reaches the shell.
func (t *Toolchain) AddPackages(ctx context.Context, packages ...string) (*ExecResult, error) {
	if len(packages) == 0 {
		return &ExecResult{}, nil
	}
	for _, pkg := range packages {
		if !packageNamePattern.MatchString(pkg) {
			return nil, fmt.Errorf("invalid package name: %q", pkg)
		}
	}

	quoted := make([]string, 0, len(packages))
	for _, pkg := range packages {
		quoted = append(quoted, shellQuote(pkg))
	}
	return t.run(ctx, "uv", "uv add "+strings.Join(quoted, " "), "", 0)
}

// Autopep8 formats a file in place with aggressive fixes.
func (t *Toolchain) Autopep8(ctx context.Context, file string) (*ExecResult, error) {
	return t.run(ctx, "autopep8", fmt.Sprintf("uv run autopep8 --in-place --aggressive %s", shellQuote(file)), "", 0)
}

// Pylint lints a file with the agent's standing disables.
func (t *Toolchain) Pylint(ctx context.Context, file string) (*ExecResult, error) {
	command := fmt.Sprintf("uv run pylint --disable=missing-function-docstring,missing-module-docstring --max-line-length=120 %s", shellQuote(file))
	return t.run(ctx, "pylint", command, "", 0)
}

// Complexipy measures cognitive complexity for a file.
func (t *Toolchain) Complexipy(ctx context.Context, file string) (*ExecResult, error) {
	return t.run(ctx, "complexipy", fmt.Sprintf("uv run complexipy %s", shellQuote(file)), "", 0)
}

// PyCompile syntax-checks a file without running it.
func (t *Toolchain) PyCompile(ctx context.Context, file string) (*ExecResult, error) {
	return t.run(ctx, "python", fmt.Sprintf("uv run python -m py_compile %s", shellQuote(file)), "", 0)
}

// Pytest runs the test suite with coverage measurement.
func (t *Toolchain) Pytest(ctx context.Context, coverTarget string) (*ExecResult, error) {
	command := fmt.Sprintf("uv run pytest --cov=%s --cov-config=.coveragerc --cov-report=term-missing -vv", shellQuote(coverTarget))
	return t.run(ctx, "pytest", command, "", 0)
}
