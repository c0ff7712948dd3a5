package agent

import (
	"context"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"
	"time"
)

func TestLocalEnvResolvePathConfinement(t *testing.T) {
	env := NewLocalExecutionEnvironment(t.TempDir())

	for _, path := range []string{
		"../outside.txt",
		"../../etc/passwd",
		"dir/../../escape.py",
	} {
		if _, err := env.resolvePath(path); err == nil {
			t.Errorf("path %q escaped the root", path)
		}
	}

	for _, path := range []string{
		"main.py",
		"tests/test_main.py",
		"a/b/../c.txt",
	} {
		if _, err := env.resolvePath(path); err != nil {
			t.Errorf("path %q rejected: %v", path, err)
		}
	}
}

func TestLocalEnvWriteReadRoundtrip(t *testing.T) {
	env := NewLocalExecutionEnvironment(t.TempDir())

	content := "def main():\n    pass\n"
	if err := env.WriteFile("pkg/deep/main.py", content); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := env.ReadFile("pkg/deep/main.py")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got != content {
		t.Errorf("content = %q, want %q", got, content)
	}

	if !env.FileExists("pkg/deep/main.py") {
		t.Error("FileExists = false after write")
	}
	if env.FileExists("pkg/deep/main.py.lock") {
		t.Error("lock file left behind")
	}
	if env.FileExists("missing.py") {
		t.Error("FileExists = true for missing file")
	}
}

func TestLocalEnvWriteFileRejectsEscape(t *testing.T) {
	env := NewLocalExecutionEnvironment(t.TempDir())
	if err := env.WriteFile("../escape.py", "x"); err == nil {
		t.Error("write outside root succeeded")
	}
}

func TestLocalEnvListFiles(t *testing.T) {
	env := NewLocalExecutionEnvironment(t.TempDir())

	for _, path := range []string{"main.py", "tests/test_main.py", "tests/__init__.py"} {
		if err := env.WriteFile(path, "content"); err != nil {
			t.Fatalf("WriteFile(%s): %v", path, err)
		}
	}

	files, err := env.ListFiles("")
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	sort.Strings(files)

	want := []string{"main.py", filepath.Join("tests", "__init__.py"), filepath.Join("tests", "test_main.py")}
	sort.Strings(want)
	if len(files) != len(want) {
		t.Fatalf("files = %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("files[%d] = %q, want %q", i, files[i], want[i])
		}
	}
}

func TestLocalEnvRemoveAll(t *testing.T) {
	env := NewLocalExecutionEnvironment(t.TempDir())

	if err := env.WriteFile("hello.py", "print('hi')\n"); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := env.RemoveAll("hello.py"); err != nil {
		t.Fatalf("RemoveAll: %v", err)
	}
	if env.FileExists("hello.py") {
		t.Error("file still exists after RemoveAll")
	}

	if err := env.RemoveAll("."); err == nil {
		t.Error("removing the root succeeded")
	}
}

func TestLocalEnvExecCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("bash-specific test")
	}
	env := NewLocalExecutionEnvironment(t.TempDir())
	ctx := context.Background()

	result, err := env.ExecCommand(ctx, "echo hello", 5000, "")
	if err != nil {
		t.Fatalf("ExecCommand: %v", err)
	}
	if result.ExitCode != 0 {
		t.Errorf("ExitCode = %d", result.ExitCode)
	}
	if !strings.Contains(result.Stdout, "hello") {
		t.Errorf("Stdout = %q", result.Stdout)
	}
	if result.TimedOut {
		t.Error("TimedOut = true")
	}
}

func TestLocalEnvExecCommandExitCode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("bash-specific test")
	}
	env := NewLocalExecutionEnvironment(t.TempDir())

	result, err := env.ExecCommand(context.Background(), "exit 3", 5000, "")
	if err != nil {
		t.Fatalf("ExecCommand: %v", err)
	}
	if result.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", result.ExitCode)
	}
}

func TestLocalEnvExecCommandTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("bash-specific test")
	}
	env := NewLocalExecutionEnvironment(t.TempDir())

	start := time.Now()
	result, err := env.ExecCommand(context.Background(), "sleep 5", 200, "")
	if err != nil {
		t.Fatalf("ExecCommand: %v", err)
	}
	if !result.TimedOut {
		t.Error("TimedOut = false")
	}
	if result.ExitCode != -1 {
		t.Errorf("ExitCode = %d, want -1", result.ExitCode)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("timeout took %v", elapsed)
	}
}

func TestLocalEnvExecCommandWorkingDir(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("bash-specific test")
	}
	root := t.TempDir()
	other := t.TempDir()
	env := NewLocalExecutionEnvironment(root)

	result, err := env.ExecCommand(context.Background(), "pwd", 5000, other)
	if err != nil {
		t.Fatalf("ExecCommand: %v", err)
	}
	if !strings.Contains(result.Stdout, filepath.Base(other)) {
		t.Errorf("pwd = %q, want under %q", result.Stdout, other)
	}
}

func TestFilterEnvironment(t *testing.T) {
	environ := []string{
		"PATH=/usr/bin",
		"HOME=/home/dev",
		"OPENAI_API_KEY=sk-secret",
		"ANTHROPIC_API_KEY=sk-ant",
		"DB_PASSWORD=hunter2",
		"GITHUB_TOKEN=ghp_x",
		"AWS_SECRET=abc",
		"MY_CREDENTIAL=y",
		"UV_CACHE_DIR=/tmp/uv",
		"PYTHONPATH=/opt/lib",
		"RANDOM_VAR=1",
		"malformed",
	}

	filtered := filterEnvironment(environ)
	joined := strings.Join(filtered, "\n")

	for _, want := range []string{"PATH=/usr/bin", "HOME=/home/dev", "UV_CACHE_DIR=/tmp/uv", "PYTHONPATH=/opt/lib"} {
		if !strings.Contains(joined, want) {
			t.Errorf("%q missing from filtered env", want)
		}
	}
	for _, banned := range []string{"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "DB_PASSWORD", "GITHUB_TOKEN", "AWS_SECRET", "MY_CREDENTIAL", "RANDOM_VAR", "malformed"} {
		if strings.Contains(joined, banned) {
			t.Errorf("%q leaked into filtered env", banned)
		}
	}
}

func TestIsSensitiveEnvVar(t *testing.T) {
	sensitive := []string{"OPENAI_API_KEY", "openai_api_key", "X_SECRET", "A_TOKEN", "B_PASSWORD", "C_CREDENTIAL"}
	for _, name := range sensitive {
		if !isSensitiveEnvVar(name) {
			t.Errorf("%q not flagged sensitive", name)
		}
	}
	safe := []string{"PATH", "HOME", "UV_CACHE_DIR", "TOKENIZER"}
	for _, name := range safe {
		if isSensitiveEnvVar(name) {
			t.Errorf("%q wrongly flagged sensitive", name)
		}
	}
}
