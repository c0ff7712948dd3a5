package agent

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/truemagic-coder/nemo-agent/llm"
)

// SessionState tracks where a session is in its lifecycle.
type SessionState string

const (
	StateIdle       SessionState = "idle"
	StateProcessing SessionState = "processing"
	StateClosed     SessionState = "closed"
)

// Default loop bounds and quality thresholds.
const (
	DefaultMaxGenerationAttempts  = 3
	DefaultMaxImprovementAttempts = 3
	DefaultPylintThreshold        = 7.0
	DefaultComplexityThreshold    = 15
	DefaultCoverageThreshold      = 80
	DefaultCommandTimeoutMs       = 300000
	DefaultMaxCommandTimeoutMs    = 600000
)

// SessionConfig controls model selection, loop bounds, thresholds, and
// output handling for a session.
type SessionConfig struct {
	// Model and Provider select the LLM. Empty values fall back to the
	// client's default provider and its default model.
	Model    string
	Provider string

	// MaxGenerationAttempts bounds the initial implementation loop.
	MaxGenerationAttempts int

	// MaxImprovementAttempts bounds the quality and test repair loops.
	MaxImprovementAttempts int

	// PylintThreshold is the minimum acceptable pylint score.
	PylintThreshold float64

	// ComplexityThreshold is the maximum acceptable total cognitive
	// complexity.
	ComplexityThreshold int

	// CoverageThreshold is the minimum acceptable test coverage percent.
	CoverageThreshold int

	// Command timeout bounds, in milliseconds.
	DefaultCommandTimeoutMs int
	MaxCommandTimeoutMs     int

	// ToolOutputLimits and ToolLineLimits override the per-tool output
	// truncation defaults.
	ToolOutputLimits map[string]int
	ToolLineLimits   map[string]int

	// EventBufferSize sizes the session event channel.
	EventBufferSize int

	// RetryPolicy overrides the default LLM retry policy.
	RetryPolicy *llm.RetryPolicy

	// StreamOutput receives generation deltas as they arrive. Nil
	// discards them.
	StreamOutput io.Writer
}

// DefaultSessionConfig returns the standard thresholds and loop bounds.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		MaxGenerationAttempts:   DefaultMaxGenerationAttempts,
		MaxImprovementAttempts:  DefaultMaxImprovementAttempts,
		PylintThreshold:         DefaultPylintThreshold,
		ComplexityThreshold:     DefaultComplexityThreshold,
		CoverageThreshold:       DefaultCoverageThreshold,
		DefaultCommandTimeoutMs: DefaultCommandTimeoutMs,
		MaxCommandTimeoutMs:     DefaultMaxCommandTimeoutMs,
	}
}

func normalizeConfig(cfg SessionConfig) SessionConfig {
	defaults := DefaultSessionConfig()
	if cfg.MaxGenerationAttempts <= 0 {
		cfg.MaxGenerationAttempts = defaults.MaxGenerationAttempts
	}
	if cfg.MaxImprovementAttempts <= 0 {
		cfg.MaxImprovementAttempts = defaults.MaxImprovementAttempts
	}
	if cfg.PylintThreshold <= 0 {
		cfg.PylintThreshold = defaults.PylintThreshold
	}
	if cfg.ComplexityThreshold <= 0 {
		cfg.ComplexityThreshold = defaults.ComplexityThreshold
	}
	if cfg.CoverageThreshold <= 0 {
		cfg.CoverageThreshold = defaults.CoverageThreshold
	}
	if cfg.DefaultCommandTimeoutMs <= 0 {
		cfg.DefaultCommandTimeoutMs = defaults.DefaultCommandTimeoutMs
	}
	if cfg.MaxCommandTimeoutMs <= 0 {
		cfg.MaxCommandTimeoutMs = defaults.MaxCommandTimeoutMs
	}
	return cfg
}

// Session drives one task from prompt to reviewed project. It owns the
// conversation history, the execution environment, and the quality and
// test loops.
type Session struct {
	id          string
	task        string
	projectName string

	env       ExecutionEnvironment
	toolchain *Toolchain
	client    *llm.Client
	config    SessionConfig
	emitter   *EventEmitter

	history     []Turn
	suggestions *suggestionLog
	ledger      *tokenLedger
	retryPolicy llm.RetryPolicy

	referenceDocs string
	referenceCode string
	referenceData string

	state SessionState
	mu    sync.Mutex
}

// NewSession creates a session for task running in env. The project name
// is the base name of the environment's working directory.
func NewSession(task string, env ExecutionEnvironment, cfg *SessionConfig) *Session {
	config := DefaultSessionConfig()
	if cfg != nil {
		config = normalizeConfig(*cfg)
	}

	id := uuid.New().String()
	emitter := NewEventEmitter(id, config.EventBufferSize)

	policy := llm.DefaultRetryPolicy
	if config.RetryPolicy != nil {
		policy = *config.RetryPolicy
	}
	policy.OnRetry = func(err error, attempt int, delay float64) {
		emitter.Emit(EventWarning, map[string]interface{}{
			"message": "retrying generation",
			"attempt": attempt,
			"delay_s": delay,
			"error":   err.Error(),
		})
	}

	return &Session{
		id:          id,
		task:        task,
		projectName: filepath.Base(env.WorkingDirectory()),
		env:         env,
		toolchain:   NewToolchain(env, emitter, config.DefaultCommandTimeoutMs, config.MaxCommandTimeoutMs),
		config:      config,
		emitter:     emitter,
		suggestions: newSuggestionLog(),
		ledger:      newTokenLedger(),
		retryPolicy: policy,
		state:       StateIdle,
	}
}

// SetClient overrides the LLM client. Must be called before RunTask.
func (s *Session) SetClient(client *llm.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = client
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Task returns the task the session was created for.
func (s *Session) Task() string {
	return s.task
}

// ProjectDir returns the generated project's directory.
func (s *Session) ProjectDir() string {
	return s.env.WorkingDirectory()
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// History returns a copy of the conversation so far.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := make([]Turn, len(s.history))
	copy(history, s.history)
	return history
}

// Events returns the session event channel.
func (s *Session) Events() <-chan SessionEvent {
	return s.emitter.Events()
}

// TokenUsage returns the total generated tokens and the per-prompt
// breakdown.
func (s *Session) TokenUsage() (int, []TokenEntry) {
	return s.ledger.Total(), s.ledger.Entries()
}

// Close marks the session closed and shuts the event channel.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return
	}
	s.state = StateClosed
	s.emitter.Close()
}

func (s *Session) ensureClient() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return nil
	}
	client, err := llm.GetDefaultClient()
	if err != nil {
		return err
	}
	s.client = client
	return nil
}

// RunTask executes the full loop: scaffold the project, generate the
// implementation, repair quality findings, and repair the test suite,
// each within its attempt budget.
func (s *Session) RunTask(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateClosed:
		s.mu.Unlock()
		return fmt.Errorf("session is closed")
	case StateProcessing:
		s.mu.Unlock()
		return fmt.Errorf("session is already processing a task")
	}
	s.state = StateProcessing
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.state == StateProcessing {
			s.state = StateIdle
		}
		s.mu.Unlock()
	}()

	s.emitter.Emit(EventSessionStart, map[string]interface{}{
		"task":    s.task,
		"project": s.projectName,
	})

	err := s.runTask(ctx)
	if err != nil {
		s.emitter.Emit(EventError, map[string]interface{}{"message": err.Error()})
		return err
	}

	total, _ := s.TokenUsage()
	s.emitter.Emit(EventSessionEnd, map[string]interface{}{"total_tokens": total})
	return nil
}

func (s *Session) runTask(ctx context.Context) error {
	if err := s.ensureClient(); err != nil {
		return fmt.Errorf("no LLM client configured: %w", err)
	}

	if err := s.bootstrapProject(ctx); err != nil {
		return fmt.Errorf("bootstrap project: %w", err)
	}

	if err := s.implementSolution(ctx); err != nil {
		return err
	}

	if err := s.qualityLoop(ctx); err != nil {
		return err
	}

	return s.testLoop(ctx)
}

// implementSolution asks for the initial implementation until files land
// and compile, or attempts run out. The conversation accumulates, so a
// retry sees its previous failure.
func (s *Session) implementSolution(ctx context.Context) error {
	prompt := implementPrompt(s.task, s.env.WorkingDirectory(), s.config,
		s.referenceDocs, s.referenceCode, s.referenceData)

	for attempt := 1; attempt <= s.config.MaxGenerationAttempts; attempt++ {
		response, err := s.generate(ctx, prompt)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.emitter.Emit(EventWarning, map[string]interface{}{
				"message": "generation failed",
				"attempt": attempt,
				"error":   err.Error(),
			})
			continue
		}

		applied := s.applyChanges(ctx, ExtractResponse(response))
		if applied && s.env.FileExists("main.py") && s.env.FileExists(filepath.Join("tests", "test_main.py")) {
			return nil
		}

		s.emitter.Emit(EventWarning, map[string]interface{}{
			"message": "implementation incomplete",
			"attempt": attempt,
		})
	}
	return fmt.Errorf("no working implementation after %d attempts", s.config.MaxGenerationAttempts)
}

// qualityLoop formats, lints, and measures complexity, then asks for
// improvements while the thresholds are missed. Running out of attempts
// moves on rather than failing the task.
func (s *Session) qualityLoop(ctx context.Context) error {
	report, err := s.codeCheck(ctx, "main.py")
	if err != nil {
		return err
	}

	for attempt := 1; attempt <= s.config.MaxImprovementAttempts; attempt++ {
		if report.Passing(s.config.PylintThreshold, s.config.ComplexityThreshold) {
			return nil
		}

		applied, halt, err := s.improveCode(ctx, "main.py", report)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.emitter.Emit(EventWarning, map[string]interface{}{
				"message": "code improvement failed",
				"attempt": attempt,
				"error":   err.Error(),
			})
			continue
		}
		if halt {
			return nil
		}
		if !applied {
			continue
		}

		report, err = s.codeCheck(ctx, "main.py")
		if err != nil {
			return err
		}
	}
	return nil
}

// improveCode requests a quality rewrite and applies it when it is new
// and validates. halt reports that the model is repeating itself and
// further attempts would not produce anything new.
func (s *Session) improveCode(ctx context.Context, file string, report QualityReport) (applied, halt bool, err error) {
	prompt := improveCodePrompt(file, report, s.task, s.env.WorkingDirectory(), s.config)
	response, err := s.generate(ctx, prompt)
	if err != nil {
		return false, false, err
	}

	proposed := ExtractResponse(response)
	if proposed == "" {
		return false, false, nil
	}

	if s.suggestions.Seen(proposed) {
		s.emitter.Emit(EventImprovementSkipped, map[string]interface{}{
			"reason": "no new improvements suggested",
		})
		return false, true, nil
	}

	if !s.validateProposal(ctx, proposed) {
		s.emitter.Emit(EventImprovementSkipped, map[string]interface{}{
			"reason": "proposal failed validation",
		})
		return false, false, nil
	}

	s.applyChanges(ctx, proposed)
	return true, false, nil
}

// validateProposal asks the model to confirm a proposed change still
// addresses the task. The exchange stays in the conversation history.
func (s *Session) validateProposal(ctx context.Context, proposed string) bool {
	response, err := s.generate(ctx, validatePrompt(proposed, s.task))
	if err != nil {
		return false
	}

	verdict := strings.ToUpper(response)
	valid := strings.Contains(verdict, "VALID") && !strings.Contains(verdict, "INVALID")
	s.emitter.Emit(EventValidation, map[string]interface{}{"valid": valid})
	return valid
}

// testLoop runs pytest with coverage and asks for test repairs while the
// suite fails or coverage is below the threshold.
func (s *Session) testLoop(ctx context.Context) error {
	report, err := s.runTests(ctx)
	if err != nil {
		return err
	}

	for attempt := 1; attempt <= s.config.MaxImprovementAttempts; attempt++ {
		if report.Passed && report.Coverage >= s.config.CoverageThreshold {
			return nil
		}

		improved, err := s.improveTests(ctx, report.Output)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.emitter.Emit(EventWarning, map[string]interface{}{
				"message": "test improvement failed",
				"attempt": attempt,
				"error":   err.Error(),
			})
			continue
		}
		if !improved {
			continue
		}

		report, err = s.runTests(ctx)
		if err != nil {
			return err
		}
	}
	return nil
}

// improveTests requests a test rewrite and applies it directly. Test
// changes are not validated; the next pytest run is the judge.
func (s *Session) improveTests(ctx context.Context, testOutput string) (bool, error) {
	prompt := improveTestsPrompt(testOutput, s.task, s.env.WorkingDirectory(), s.config)
	response, err := s.generate(ctx, prompt)
	if err != nil {
		return false, err
	}

	proposed := ExtractResponse(response)
	if proposed == "" {
		return false, nil
	}
	return s.applyChanges(ctx, proposed), nil
}

// applyChanges installs declared dependencies, writes the file blocks,
// and syntax-checks every Python file written. Returns true when at
// least one file landed and none failed.
func (s *Session) applyChanges(ctx context.Context, extracted string) bool {
	for _, pkg := range ParseDependencyBlock(extracted) {
		result, err := s.toolchain.AddPackages(ctx, pkg)
		if err != nil || result.ExitCode != 0 {
			detail := ""
			if err != nil {
				detail = err.Error()
			} else {
				detail = strings.TrimSpace(result.Output())
			}
			s.emitter.Emit(EventWarning, map[string]interface{}{
				"message": "dependency install failed",
				"package": pkg,
				"error":   detail,
			})
			continue
		}
		s.emitter.Emit(EventDependencyAdded, map[string]interface{}{"package": pkg})
	}

	blocks := ParseFileBlocks(extracted)
	if len(blocks) == 0 {
		return false
	}

	success := true
	for _, block := range blocks {
		content := CleanMarkdown(block.Content)
		if content == "" {
			success = false
			continue
		}

		if err := s.env.WriteFile(block.Path, content); err != nil {
			s.emitter.Emit(EventError, map[string]interface{}{
				"message": "file write failed",
				"file":    block.Path,
				"error":   err.Error(),
			})
			success = false
			continue
		}
		s.emitter.Emit(EventFileWritten, map[string]interface{}{
			"file":  block.Path,
			"bytes": len(content),
		})

		if strings.HasSuffix(block.Path, ".py") {
			probe, err := s.toolchain.PyCompile(ctx, block.Path)
			if err != nil || probe.ExitCode != 0 {
				s.emitter.Emit(EventWarning, map[string]interface{}{
					"message": "syntax check failed",
					"file":    block.Path,
				})
				success = false
			}
		}
	}
	return success
}

// generate sends the conversation plus prompt to the model and returns
// the raw response text. The response streams in and stops early once
// the end marker arrives or the token budget runs out.
func (s *Session) generate(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	if len(s.history) == 0 {
		s.history = append(s.history, NewSystemTurn(buildSystemPrompt(s.env, s.config.Model, s.config.Provider)))
	}
	s.history = append(s.history, NewUserTurn(prompt))
	messages := ConvertHistoryToMessages(s.history)
	s.mu.Unlock()

	req := llm.Request{
		Model:    s.config.Model,
		Provider: s.config.Provider,
		Messages: messages,
	}

	budget := llm.ContextWindowFor(s.config.Provider, s.config.Model) - llm.CountRequestTokens(req)
	if maxOut := llm.MaxOutputFor(s.config.Provider, s.config.Model); maxOut > 0 {
		req.MaxTokens = &maxOut
		if budget > maxOut {
			budget = maxOut
		}
	}

	s.emitter.Emit(EventGenerationStart, map[string]interface{}{
		"prompt_chars": len(prompt),
	})

	response, err := llm.Retry(ctx, s.retryPolicy, func() (*llm.Response, error) {
		return s.streamCompletion(ctx, req, budget)
	})
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.history = append(s.history, NewAssistantTurn(response.Text, response.ID, response.Usage))
	s.mu.Unlock()

	s.ledger.Record(prompt, response.Usage.OutputTokens)
	s.emitter.Emit(EventGenerationEnd, map[string]interface{}{
		"response_id":   response.ID,
		"output_tokens": response.Usage.OutputTokens,
	})
	return response.Text, nil
}

// streamCompletion consumes one streamed completion. It cancels the
// stream as soon as the accumulated text contains the end marker or the
// token budget is exhausted, keeping whatever arrived.
func (s *Session) streamCompletion(parent context.Context, req llm.Request, budget int) (*llm.Response, error) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	events, err := s.client.Stream(ctx, req)
	if err != nil {
		return nil, err
	}

	acc := llm.NewStreamAccumulator()
	remaining := budget
	cancelled := false
	for ev := range events {
		if cancelled {
			// Drain until the adapter notices the cancellation.
			continue
		}

		acc.Process(ev)
		if ev.Type != llm.TextDelta {
			continue
		}

		if s.config.StreamOutput != nil {
			io.WriteString(s.config.StreamOutput, ev.Delta)
		}
		if budget > 0 {
			remaining -= llm.CountTokens(ev.Delta)
		}
		if ContainsEndMarker(acc.Text()) || (budget > 0 && remaining <= 0) {
			cancel()
			cancelled = true
		}
	}

	if !cancelled && acc.Err() != nil {
		return nil, acc.Err()
	}
	if parent.Err() != nil {
		return nil, parent.Err()
	}

	response := acc.Response()
	if response.Provider == "" {
		response.Provider = req.Provider
	}
	if response.Model == "" {
		response.Model = req.Model
	}
	if response.Usage.TotalTokens == 0 {
		in := llm.CountRequestTokens(req)
		out := llm.CountTokens(response.Text)
		response.Usage = llm.Usage{InputTokens: in, OutputTokens: out, TotalTokens: in + out}
	}
	return &response, nil
}
