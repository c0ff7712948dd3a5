// Package cli implements the nemo-agent command line interface.
package cli

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/truemagic-coder/nemo-agent/agent"
	"github.com/truemagic-coder/nemo-agent/config"
	"github.com/truemagic-coder/nemo-agent/llm"
)

// rootOptions collects the root command's flag values.
type rootOptions struct {
	taskFile   string
	model      string
	provider   string
	zipPath    string
	docsDir    string
	codeDir    string
	dataDir    string
	configPath string
	debug      bool
}

// Execute is the entry point for the CLI.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewRootCmd wires the root command.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "nemo-agent [task]",
		Short: "Generate a working, tested Python project from a task description",
		Long: `nemo-agent turns a natural language task into a working, tested Python
project. It scaffolds a uv project, asks an LLM for the implementation,
and keeps iterating until pylint, complexity, and coverage thresholds
pass or the attempt budget runs out.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.taskFile, "file", "f", "", "Read the task from a markdown or text file")
	flags.StringVar(&opts.model, "model", "", "Model to use (default mistral-nemo)")
	flags.StringVar(&opts.provider, "provider", "", "LLM provider: ollama, openai, or claude")
	flags.StringVar(&opts.zipPath, "zip", "", "Zip the finished project to this path and remove the project directory")
	flags.StringVar(&opts.docsDir, "docs", "", "Directory of reference documentation (.md, .txt)")
	flags.StringVar(&opts.codeDir, "code", "", "Directory of reference code")
	flags.StringVar(&opts.dataDir, "data", "", "Directory of reference data (.csv)")
	flags.StringVar(&opts.configPath, "config", "", "Config file (default ~/"+config.DefaultFileName+")")
	flags.BoolVar(&opts.debug, "debug", false, "Log every session event")

	return cmd
}

func run(cmd *cobra.Command, args []string, opts *rootOptions) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	applyFlagOverrides(&cfg, opts)

	if err := validateProvider(cfg.Provider); err != nil {
		return err
	}
	if err := requireAPIKey(cfg); err != nil {
		return err
	}

	task, err := resolveTask(args, opts.taskFile, cmd.InOrStdin(), cmd.OutOrStdout())
	if err != nil {
		return err
	}

	client, err := buildClient(cfg)
	if err != nil {
		return err
	}
	if err := client.Initialize(); err != nil {
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolve working directory: %w", err)
	}

	env := agent.NewLocalExecutionEnvironment(filepath.Join(cwd, agent.GenerateProjectName()))

	sessionCfg := agent.DefaultSessionConfig()
	sessionCfg.Model = cfg.Model
	sessionCfg.Provider = cfg.Provider
	sessionCfg.PylintThreshold = cfg.PylintThreshold
	sessionCfg.ComplexityThreshold = cfg.ComplexityThreshold
	sessionCfg.CoverageThreshold = cfg.CoverageThreshold
	sessionCfg.DefaultCommandTimeoutMs = cfg.CommandTimeoutMs
	sessionCfg.StreamOutput = cmd.OutOrStdout()

	session := agent.NewSession(task, env, &sessionCfg)
	session.SetClient(client)
	defer session.Close()

	if err := ingestReferences(session, opts); err != nil {
		return err
	}

	logger := log.New(cmd.ErrOrStderr(), "", log.LstdFlags)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range session.Events() {
			if opts.debug || cfg.Debug || event.Kind == agent.EventWarning || event.Kind == agent.EventError {
				logger.Printf("[%s] %v", event.Kind, event.Data)
			}
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Working on: %s\n\n", task)
	runErr := session.RunTask(ctx)

	total, entries := session.TokenUsage()
	session.Close()
	<-done

	if runErr != nil {
		return runErr
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n\nTotal tokens used: %d\n", total)
	if opts.debug || cfg.Debug {
		for _, entry := range entries {
			fmt.Fprintf(out, "  %-50s %d\n", entry.Prompt, entry.Tokens)
		}
	}

	if opts.zipPath != "" {
		if err := agent.ExportArchive(env, opts.zipPath); err != nil {
			return err
		}
		fmt.Fprintf(out, "Project archived to %s\n", opts.zipPath)
	} else {
		fmt.Fprintf(out, "Project located at %s\n", env.WorkingDirectory())
	}
	fmt.Fprintln(out, "Task completed. Please review the output and make any necessary manual adjustments.")
	return nil
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		if p, err := config.DefaultPath(); err == nil {
			path = p
		}
	}
	return config.Load(path)
}

func applyFlagOverrides(cfg *config.Config, opts *rootOptions) {
	if opts.provider != "" {
		cfg.Provider = opts.provider
	}
	if opts.model != "" {
		cfg.Model = opts.model
	}
	if opts.debug {
		cfg.Debug = true
	}
	// A model carried over from another provider's default gets remapped.
	cfg.Model = llm.ResolveModel(cfg.Provider, cfg.Model)
}

func ingestReferences(session *agent.Session, opts *rootOptions) error {
	if opts.docsDir != "" {
		if err := session.IngestDocs(opts.docsDir); err != nil {
			return err
		}
	}
	if opts.codeDir != "" {
		if err := session.IngestCode(opts.codeDir); err != nil {
			return err
		}
	}
	if opts.dataDir != "" {
		if err := session.IngestData(opts.dataDir); err != nil {
			return err
		}
	}
	return nil
}
