package llm

import "strings"

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single entry in a conversation transcript.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SystemMessage creates a message with the system role.
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: text}
}

// UserMessage creates a message with the user role.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// AssistantMessage creates a message with the assistant role.
func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: text}
}

// Usage reports token consumption for an exchange.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Add returns the element-wise sum of two usage reports.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		InputTokens:  u.InputTokens + other.InputTokens,
		OutputTokens: u.OutputTokens + other.OutputTokens,
		TotalTokens:  u.TotalTokens + other.TotalTokens,
	}
}

// FinishReason explains why generation stopped.
type FinishReason struct {
	// Reason is one of "stop", "length", "content_filter", "error", "other".
	Reason string `json:"reason"`
	// Raw preserves the provider's native value.
	Raw string `json:"raw,omitempty"`
}

// Request is the input to Complete and Stream.
type Request struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`

	// Provider overrides routing. When empty the client uses its default
	// provider, or infers one from the model catalog.
	Provider string `json:"provider,omitempty"`

	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// Response is the output of Complete.
type Response struct {
	ID           string       `json:"id"`
	Model        string       `json:"model"`
	Provider     string       `json:"provider"`
	Text         string       `json:"text"`
	FinishReason FinishReason `json:"finish_reason"`
	Usage        Usage        `json:"usage"`
}

// StreamEventType identifies a streaming lifecycle event.
type StreamEventType string

const (
	StreamStart  StreamEventType = "stream_start"
	TextDelta    StreamEventType = "text_delta"
	StreamFinish StreamEventType = "finish"
	StreamError  StreamEventType = "error"
)

// StreamEvent is one event in a streaming response.
type StreamEvent struct {
	Type         StreamEventType `json:"type"`
	Delta        string          `json:"delta,omitempty"`
	FinishReason *FinishReason   `json:"finish_reason,omitempty"`
	Usage        *Usage          `json:"usage,omitempty"`
	Response     *Response       `json:"response,omitempty"`
	Err          error           `json:"-"`
}

// StreamAccumulator assembles a Response from a sequence of stream
// events. Callers that cancel a stream early still get the text
// accumulated up to the cancellation point.
type StreamAccumulator struct {
	text     strings.Builder
	response Response
	err      error
	finished bool
}

// NewStreamAccumulator returns an empty accumulator.
func NewStreamAccumulator() *StreamAccumulator {
	return &StreamAccumulator{}
}

// Process folds one event into the accumulated state.
func (a *StreamAccumulator) Process(ev StreamEvent) {
	switch ev.Type {
	case TextDelta:
		a.text.WriteString(ev.Delta)
	case StreamFinish:
		a.finished = true
		if ev.Response != nil {
			a.response = *ev.Response
		}
		if ev.Usage != nil {
			a.response.Usage = *ev.Usage
		}
		if ev.FinishReason != nil {
			a.response.FinishReason = *ev.FinishReason
		}
	case StreamError:
		if a.err == nil {
			a.err = ev.Err
		}
	}
}

// Text returns the text accumulated so far.
func (a *StreamAccumulator) Text() string {
	return a.text.String()
}

// Err returns the first stream error seen, if any.
func (a *StreamAccumulator) Err() error {
	return a.err
}

// Finished reports whether a finish event was processed.
func (a *StreamAccumulator) Finished() bool {
	return a.finished
}

// Response returns the assembled response. The accumulated text takes
// precedence over any text carried by the finish event.
func (a *StreamAccumulator) Response() Response {
	resp := a.response
	resp.Text = a.text.String()
	return resp
}
