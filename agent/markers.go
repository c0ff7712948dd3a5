package agent

import (
	"regexp"
	"strings"
)

// Response grammar markers. The model is instructed to wrap its entire
// answer in start/end markers, emit each file as a named block, and list
// new dependencies in a uv block.
const (
	StartMarker    = "^^^start^^^"
	EndMarker      = "^^^end^^^"
	DepStartMarker = "***uv_start***"
	DepEndMarker   = "***uv_end***"
	FileBlockEnd   = "<<<end>>>"
)

var (
	fileBlockPattern       = regexp.MustCompile(`(?s)<<<(.+?)>>>\n(.*?)<<<end>>>`)
	markdownHeadingPattern = regexp.MustCompile(`(?m)^#+\s+.*$`)
	inlineCodePattern      = regexp.MustCompile("`([^`]+)`")
)

// FileBlock is one file extracted from a model response, in emission
// order.
type FileBlock struct {
	Path    string
	Content string
}

// ExtractResponse returns the content between the start and end markers.
// When either marker is missing the whole response is returned so that
// partially conforming output still parses.
func ExtractResponse(text string) string {
	start := strings.Index(text, StartMarker)
	end := strings.Index(text, EndMarker)
	if start == -1 || end == -1 || end < start {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(text[start+len(StartMarker) : end])
}

// ContainsEndMarker reports whether generation can stop early because
// the closing marker has arrived.
func ContainsEndMarker(text string) bool {
	return strings.Contains(text, EndMarker)
}

// ParseFileBlocks extracts the named file blocks from a response, in
// order. Paths and contents are trimmed.
func ParseFileBlocks(text string) []FileBlock {
	matches := fileBlockPattern.FindAllStringSubmatch(text, -1)
	blocks := make([]FileBlock, 0, len(matches))
	for _, m := range matches {
		path := strings.TrimSpace(m[1])
		if path == "" {
			continue
		}
		blocks = append(blocks, FileBlock{
			Path:    path,
			Content: strings.TrimSpace(m[2]),
		})
	}
	return blocks
}

// ParseDependencyBlock extracts the semicolon-separated package list
// from the first uv block, if any.
func ParseDependencyBlock(text string) []string {
	start := strings.Index(text, DepStartMarker)
	end := strings.Index(text, DepEndMarker)
	if start == -1 || end == -1 || end < start {
		return nil
	}

	inner := text[start+len(DepStartMarker) : end]
	var packages []string
	for _, part := range strings.Split(inner, ";") {
		pkg := strings.TrimSpace(part)
		if pkg != "" {
			packages = append(packages, pkg)
		}
	}
	return packages
}

// CleanMarkdown strips the markdown the model tends to wrap code in:
// fenced code blocks, headings, and inline backticks. Heading removal
// also strips "# " comment lines; the prompts forbid comments in
// generated code.
func CleanMarkdown(content string) string {
	content = strings.ReplaceAll(content, "```python\n", "")
	content = strings.ReplaceAll(content, "```\n", "")
	content = strings.ReplaceAll(content, "```", "")
	content = strings.TrimSpace(content)
	content = markdownHeadingPattern.ReplaceAllString(content, "")
	content = inlineCodePattern.ReplaceAllString(content, "$1")
	return content
}
