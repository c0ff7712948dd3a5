package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/truemagic-coder/nemo-agent/config"
	"github.com/truemagic-coder/nemo-agent/llm"
)

var supportedProviders = map[string]bool{
	"ollama": true,
	"openai": true,
	"claude": true,
}

func validateProvider(provider string) error {
	if supportedProviders[provider] {
		return nil
	}
	return fmt.Errorf("unsupported provider %q: choose ollama, openai, or claude", provider)
}

func requireAPIKey(cfg config.Config) error {
	key, required := cfg.APIKeyFor(cfg.Provider)
	if !required || key != "" {
		return nil
	}
	envVar := "OPENAI_API_KEY"
	if cfg.Provider == "claude" {
		envVar = "ANTHROPIC_API_KEY"
	}
	return fmt.Errorf("provider %s requires an API key: set %s or add it to the config file", cfg.Provider, envVar)
}

// resolveTask picks the task from, in order of precedence, the task file,
// the positional argument, or an interactive prompt.
func resolveTask(args []string, taskFile string, in io.Reader, out io.Writer) (string, error) {
	if taskFile != "" {
		ext := strings.ToLower(filepath.Ext(taskFile))
		if ext != ".md" && ext != ".txt" {
			return "", fmt.Errorf("task file must be a .md or .txt file, got %q", taskFile)
		}
		data, err := os.ReadFile(taskFile)
		if err != nil {
			return "", fmt.Errorf("read task file: %w", err)
		}
		task := strings.TrimSpace(string(data))
		if task == "" {
			return "", fmt.Errorf("task file %s is empty", taskFile)
		}
		return task, nil
	}

	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return strings.TrimSpace(args[0]), nil
	}

	fmt.Fprint(out, "Please enter your task: ")
	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		if task := strings.TrimSpace(scanner.Text()); task != "" {
			return task, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read task: %w", err)
	}
	return "", fmt.Errorf("no task provided")
}

func buildClient(cfg config.Config) (*llm.Client, error) {
	switch cfg.Provider {
	case "ollama":
		adapter := llm.NewOllamaAdapter(cfg.OllamaEndpoint, cfg.Model, llm.WithOllamaDebug(cfg.Debug))
		return llm.NewClient(llm.WithProvider("ollama", adapter)), nil
	case "openai", "claude":
		key, _ := cfg.APIKeyFor(cfg.Provider)
		adapter, err := llm.NewGollmAdapter(cfg.Provider, key, llm.WithGollmModel(cfg.Model))
		if err != nil {
			return nil, err
		}
		return llm.NewClient(llm.WithProvider(cfg.Provider, adapter)), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
	}
}
