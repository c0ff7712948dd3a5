// Package agent implements the coding agent that turns a natural
// language task into a working, tested Python project.
//
// It drives a large language model through a conversational loop:
// prompt for an implementation, parse the marker-delimited file blocks
// out of the response, write them into a uv-managed project, run the
// developer tooling (pytest, pylint, autopep8, complexipy), and feed
// the results back until the quality and coverage thresholds pass or
// the attempt budgets run out.
//
// The package uses the llm package's streaming Client directly,
// cancelling each stream as soon as the response end marker arrives so
// no tokens are wasted past the answer.
//
// # Architecture
//
// The package is organized around these core concepts:
//
//   - Session: The central orchestrator holding conversation state,
//     running the implementation, quality, and test repair loops, and
//     enforcing attempt budgets.
//   - ExecutionEnvironment: Abstraction for where project files live
//     and commands run, confined to the project directory.
//   - Toolchain: The whitelisted uv commands the loops run (init, add,
//     pytest, pylint, autopep8, complexipy).
//   - EventEmitter: Typed event stream for host application
//     integration.
//
// # Quick Start
//
//	env := agent.NewLocalExecutionEnvironment(filepath.Join(cwd, agent.GenerateProjectName()))
//	session := agent.NewSession("Create a CLI calculator", env, nil)
//	defer session.Close()
//
//	go func() {
//	    for event := range session.Events() {
//	        fmt.Printf("[%s] %v\n", event.Kind, event.Data)
//	    }
//	}()
//
//	if err := session.RunTask(ctx); err != nil {
//	    log.Fatal(err)
//	}
package agent
