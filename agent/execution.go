package agent

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"
)

// ExecResult is the outcome of a command run in an execution environment.
type ExecResult struct {
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ExitCode   int    `json:"exit_code"`
	TimedOut   bool   `json:"timed_out"`
	DurationMs int64  `json:"duration_ms"`
}

// Output returns stdout and stderr combined, the way tool output is fed
// back to the model.
func (r *ExecResult) Output() string {
	return r.Stdout + r.Stderr
}

// ExecutionEnvironment abstracts where project files live and commands
// run. Paths are relative to the environment root; absolute paths must
// stay inside it.
type ExecutionEnvironment interface {
	// WorkingDirectory returns the environment root (the project dir).
	WorkingDirectory() string

	// Platform identifies the OS for prompt context.
	Platform() string

	// Initialize prepares the root directory.
	Initialize() error

	// Cleanup removes the working tree.
	Cleanup() error

	// ReadFile returns a file's content.
	ReadFile(path string) (string, error)

	// WriteFile durably writes content, creating parent directories.
	WriteFile(path, content string) error

	// FileExists reports whether path exists.
	FileExists(path string) bool

	// ListFiles returns all file paths under dir, relative to the root.
	ListFiles(dir string) ([]string, error)

	// RemoveAll deletes a file or directory tree.
	RemoveAll(path string) error

	// ExecCommand runs a shell command. workingDir overrides the root
	// when non-empty. timeoutMs <= 0 means no timeout.
	ExecCommand(ctx context.Context, command string, timeoutMs int, workingDir string) (*ExecResult, error)
}

const (
	maxWriteAttempts = 3
	writeRetryDelay  = time.Second
)

// sensitiveEnvPatterns are suffixes that mark an environment variable as
// secret-bearing. These never reach tool subprocesses.
var sensitiveEnvPatterns = []string{
	"_API_KEY",
	"_SECRET",
	"_TOKEN",
	"_PASSWORD",
	"_CREDENTIAL",
}

// safeEnvVars are always passed through to tool subprocesses.
var safeEnvVars = map[string]bool{
	"PATH":        true,
	"HOME":        true,
	"USER":        true,
	"SHELL":       true,
	"LANG":        true,
	"LC_ALL":      true,
	"TERM":        true,
	"TMPDIR":      true,
	"PWD":         true,
	"VIRTUAL_ENV": true,
	"HTTP_PROXY":  true,
	"HTTPS_PROXY": true,
	"NO_PROXY":    true,
}

// safeEnvPrefixes pass through toolchain-specific configuration.
var safeEnvPrefixes = []string{
	"UV_",
	"PIP_",
	"PYTHON",
}

func isSensitiveEnvVar(name string) bool {
	upper := strings.ToUpper(name)
	for _, pattern := range sensitiveEnvPatterns {
		if strings.HasSuffix(upper, pattern) {
			return true
		}
	}
	return false
}

// filterEnvironment keeps safe variables and drops secret-bearing ones.
func filterEnvironment(environ []string) []string {
	var filtered []string
	for _, entry := range environ {
		name, _, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		if isSensitiveEnvVar(name) {
			continue
		}
		if safeEnvVars[name] {
			filtered = append(filtered, entry)
			continue
		}
		for _, prefix := range safeEnvPrefixes {
			if strings.HasPrefix(name, prefix) {
				filtered = append(filtered, entry)
				break
			}
		}
	}
	return filtered
}

// LocalExecutionEnvironment runs commands and writes files on the local
// machine, confined to a root directory.
type LocalExecutionEnvironment struct {
	root string
}

// NewLocalExecutionEnvironment creates an environment rooted at dir.
func NewLocalExecutionEnvironment(dir string) *LocalExecutionEnvironment {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	return &LocalExecutionEnvironment{root: abs}
}

// WorkingDirectory returns the environment root.
func (e *LocalExecutionEnvironment) WorkingDirectory() string {
	return e.root
}

// Platform identifies the host OS.
func (e *LocalExecutionEnvironment) Platform() string {
	return runtime.GOOS
}

// Initialize creates the root directory.
func (e *LocalExecutionEnvironment) Initialize() error {
	return os.MkdirAll(e.root, 0o755)
}

// Cleanup removes the working tree.
func (e *LocalExecutionEnvironment) Cleanup() error {
	return os.RemoveAll(e.root)
}

// resolvePath confines a path to the environment root. Relative paths
// join the root; absolute paths must already live under it.
func (e *LocalExecutionEnvironment) resolvePath(path string) (string, error) {
	resolved := path
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(e.root, resolved)
	}
	resolved = filepath.Clean(resolved)

	rel, err := filepath.Rel(e.root, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes working directory: %s", path)
	}
	return resolved, nil
}

// ReadFile returns a file's content.
func (e *LocalExecutionEnvironment) ReadFile(path string) (string, error) {
	resolved, err := e.resolvePath(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// WriteFile durably writes content: a lock file serializes concurrent
// writers, and failed or empty writes retry up to maxWriteAttempts.
func (e *LocalExecutionEnvironment) WriteFile(path, content string) error {
	resolved, err := e.resolvePath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return err
	}

	lockPath := resolved + ".lock"
	var lastErr error
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		lastErr = e.writeLocked(resolved, lockPath, content)
		if lastErr == nil {
			return nil
		}
		if attempt < maxWriteAttempts {
			time.Sleep(writeRetryDelay)
		}
	}
	return fmt.Errorf("write %s after %d attempts: %w", path, maxWriteAttempts, lastErr)
}

func (e *LocalExecutionEnvironment) writeLocked(resolved, lockPath, content string) error {
	lock, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("acquire write lock: %w", err)
	}
	lock.Close()
	defer os.Remove(lockPath)

	if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
		return err
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return fmt.Errorf("file is empty after write: %s", resolved)
	}
	return nil
}

// FileExists reports whether path exists inside the root.
func (e *LocalExecutionEnvironment) FileExists(path string) bool {
	resolved, err := e.resolvePath(path)
	if err != nil {
		return false
	}
	_, err = os.Stat(resolved)
	return err == nil
}

// ListFiles returns all file paths under dir, relative to the root.
func (e *LocalExecutionEnvironment) ListFiles(dir string) ([]string, error) {
	if dir == "" {
		dir = "."
	}
	resolved, err := e.resolvePath(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	err = filepath.WalkDir(resolved, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(e.root, path)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// RemoveAll deletes a file or directory tree inside the root.
func (e *LocalExecutionEnvironment) RemoveAll(path string) error {
	resolved, err := e.resolvePath(path)
	if err != nil {
		return err
	}
	if resolved == e.root {
		return fmt.Errorf("refusing to remove environment root")
	}
	return os.RemoveAll(resolved)
}

// ExecCommand runs a shell command with a timeout, killing the whole
// process group on expiry.
func (e *LocalExecutionEnvironment) ExecCommand(ctx context.Context, command string, timeoutMs int, workingDir string) (*ExecResult, error) {
	if workingDir == "" {
		workingDir = e.root
	}

	if timeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeoutMs)*time.Millisecond)
		defer cancel()
	}

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.Command("cmd.exe", "/c", command)
	} else {
		cmd = exec.Command("bash", "-c", command)
	}
	cmd.Dir = workingDir
	cmd.Env = filterEnvironment(os.Environ())
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start command: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timedOut := false
	var waitErr error
	select {
	case waitErr = <-done:
	case <-ctx.Done():
		timedOut = true
		// Negative pid targets the process group.
		_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		waitErr = <-done
	}
	duration := time.Since(start)

	exitCode := 0
	if waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else if !timedOut {
			return nil, waitErr
		}
		if timedOut {
			exitCode = -1
		}
	}

	return &ExecResult{
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		ExitCode:   exitCode,
		TimedOut:   timedOut,
		DurationMs: duration.Milliseconds(),
	}, nil
}
