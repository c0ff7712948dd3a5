package agent

import (
	"fmt"
	"strings"
)

// TruncationMode selects how oversized tool output is cut down before it
// is fed back to the model.
type TruncationMode string

const (
	// TruncateHeadTail keeps the beginning and end, dropping the middle.
	TruncateHeadTail TruncationMode = "head_tail"
	// TruncateTail keeps only the end.
	TruncateTail TruncationMode = "tail"
)

// DefaultToolCharLimits caps feedback size per tool.
var DefaultToolCharLimits = map[string]int{
	"pytest":     30000,
	"pylint":     20000,
	"complexipy": 10000,
	"autopep8":   10000,
	"uv":         10000,
	"python":     10000,
}

// fallbackCharLimit applies to tools without an explicit limit.
const fallbackCharLimit = 30000

// DefaultTruncationModes selects a mode per tool. Pylint and pytest put
// their summaries at the end, so the tail must survive.
var DefaultTruncationModes = map[string]TruncationMode{
	"pytest":     TruncateHeadTail,
	"pylint":     TruncateTail,
	"complexipy": TruncateTail,
	"autopep8":   TruncateTail,
	"uv":         TruncateTail,
	"python":     TruncateTail,
}

// DefaultToolLineLimits caps line counts per tool.
var DefaultToolLineLimits = map[string]int{
	"pytest": 400,
	"pylint": 200,
}

// TruncateOutput cuts output to maxChars using the given mode, inserting
// a warning where content was removed.
func TruncateOutput(output string, maxChars int, mode TruncationMode) string {
	if maxChars <= 0 || len(output) <= maxChars {
		return output
	}

	removed := len(output) - maxChars

	switch mode {
	case TruncateTail:
		warning := fmt.Sprintf("[WARNING: Tool output was truncated. %d characters were removed from the beginning. The end of the output follows.]\n", removed)
		return warning + output[len(output)-maxChars:]
	default:
		half := maxChars / 2
		warning := fmt.Sprintf("\n[WARNING: Tool output was truncated. %d characters were removed from the middle of the output.]\n", removed)
		return output[:half] + warning + output[len(output)-half:]
	}
}

// TruncateLines caps output at maxLines, keeping the head and tail with
// an omission marker between them.
func TruncateLines(output string, maxLines int) string {
	if maxLines <= 0 {
		return output
	}
	lines := strings.Split(output, "\n")
	if len(lines) <= maxLines {
		return output
	}

	omitted := len(lines) - maxLines
	head := maxLines / 2
	tail := maxLines - head

	var out []string
	out = append(out, lines[:head]...)
	out = append(out, fmt.Sprintf("[... %d lines omitted ...]", omitted))
	out = append(out, lines[len(lines)-tail:]...)
	return strings.Join(out, "\n")
}

// TruncateToolOutput applies the character and line limits configured
// for a tool. Empty maps select the defaults.
func TruncateToolOutput(toolName, output string, charLimits map[string]int, lineLimits map[string]int) string {
	if charLimits == nil {
		charLimits = DefaultToolCharLimits
	}
	if lineLimits == nil {
		lineLimits = DefaultToolLineLimits
	}

	maxChars, ok := charLimits[toolName]
	if !ok {
		maxChars = fallbackCharLimit
	}
	mode, ok := DefaultTruncationModes[toolName]
	if !ok {
		mode = TruncateHeadTail
	}

	result := TruncateOutput(output, maxChars, mode)
	if maxLines, ok := lineLimits[toolName]; ok {
		result = TruncateLines(result, maxLines)
	}
	return result
}
