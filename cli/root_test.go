package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/truemagic-coder/nemo-agent/config"
)

func TestResolveTaskPositionalArgument(t *testing.T) {
	task, err := resolveTask([]string{"  build a calculator  "}, "", strings.NewReader(""), &bytes.Buffer{})
	require.NoError(t, err)
	require.Equal(t, "build a calculator", task)
}

func TestResolveTaskFromFile(t *testing.T) {
	for _, ext := range []string{".md", ".txt"} {
		path := filepath.Join(t.TempDir(), "task"+ext)
		require.NoError(t, os.WriteFile(path, []byte("write a csv parser\n"), 0o644))

		task, err := resolveTask(nil, path, strings.NewReader(""), &bytes.Buffer{})
		require.NoError(t, err)
		require.Equal(t, "write a csv parser", task)
	}
}

func TestResolveTaskFileBeatsArgument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "task.md")
	require.NoError(t, os.WriteFile(path, []byte("task from file"), 0o644))

	task, err := resolveTask([]string{"task from argument"}, path, strings.NewReader(""), &bytes.Buffer{})
	require.NoError(t, err)
	require.Equal(t, "task from file", task)
}

func TestResolveTaskRejectsOtherExtensions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "task.pdf")
	require.NoError(t, os.WriteFile(path, []byte("task"), 0o644))

	_, err := resolveTask(nil, path, strings.NewReader(""), &bytes.Buffer{})
	require.Error(t, err)
	require.Contains(t, err.Error(), ".md or .txt")
}

func TestResolveTaskMissingFile(t *testing.T) {
	_, err := resolveTask(nil, filepath.Join(t.TempDir(), "absent.md"), strings.NewReader(""), &bytes.Buffer{})
	require.Error(t, err)
}

func TestResolveTaskEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "task.md")
	require.NoError(t, os.WriteFile(path, []byte("   \n"), 0o644))

	_, err := resolveTask(nil, path, strings.NewReader(""), &bytes.Buffer{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "empty")
}

func TestResolveTaskInteractivePrompt(t *testing.T) {
	var out bytes.Buffer
	task, err := resolveTask(nil, "", strings.NewReader("build a todo app\n"), &out)
	require.NoError(t, err)
	require.Equal(t, "build a todo app", task)
	require.Equal(t, "Please enter your task: ", out.String())
}

func TestResolveTaskNoInput(t *testing.T) {
	_, err := resolveTask(nil, "", strings.NewReader("\n"), &bytes.Buffer{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "no task provided")
}

func TestValidateProvider(t *testing.T) {
	require.NoError(t, validateProvider("ollama"))
	require.NoError(t, validateProvider("openai"))
	require.NoError(t, validateProvider("claude"))

	err := validateProvider("gemini")
	require.Error(t, err)
	require.Contains(t, err.Error(), "gemini")

	require.Error(t, validateProvider(""))
}

func TestRequireAPIKey(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, requireAPIKey(cfg))

	cfg.Provider = "openai"
	err := requireAPIKey(cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "OPENAI_API_KEY")

	cfg.OpenAIAPIKey = "sk-test"
	require.NoError(t, requireAPIKey(cfg))

	cfg.Provider = "claude"
	err = requireAPIKey(cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "ANTHROPIC_API_KEY")

	cfg.AnthropicAPIKey = "sk-ant-test"
	require.NoError(t, requireAPIKey(cfg))
}

func TestBuildClientOllama(t *testing.T) {
	client, err := buildClient(config.Default())
	require.NoError(t, err)
	require.NotNil(t, client)
}

func TestBuildClientUnsupportedProvider(t *testing.T) {
	cfg := config.Default()
	cfg.Provider = "gemini"
	_, err := buildClient(cfg)
	require.Error(t, err)
}

func TestApplyFlagOverridesRemapsModel(t *testing.T) {
	cfg := config.Default()
	applyFlagOverrides(&cfg, &rootOptions{provider: "claude", debug: true})
	require.Equal(t, "claude", cfg.Provider)
	require.Equal(t, "claude-3-5-sonnet-20241022", cfg.Model)
	require.True(t, cfg.Debug)
}

func TestApplyFlagOverridesKeepsLocalModel(t *testing.T) {
	cfg := config.Default()
	applyFlagOverrides(&cfg, &rootOptions{model: "llama3.2"})
	require.Equal(t, "ollama", cfg.Provider)
	require.Equal(t, "llama3.2", cfg.Model)
}

func TestNewRootCmdFlags(t *testing.T) {
	cmd := NewRootCmd()
	require.Equal(t, "nemo-agent [task]", cmd.Use)

	for _, name := range []string{"file", "model", "provider", "zip", "docs", "code", "data", "config", "debug"} {
		require.NotNil(t, cmd.Flags().Lookup(name), "missing flag %s", name)
	}
	require.Equal(t, "f", cmd.Flags().Lookup("file").Shorthand)
}

func TestRootCmdRejectsExtraArguments(t *testing.T) {
	cmd := NewRootCmd()
	require.Error(t, cmd.Args(cmd, []string{"one", "two"}))
}
