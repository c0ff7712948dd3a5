package agent

import (
	"time"

	"github.com/truemagic-coder/nemo-agent/llm"
)

// TurnKind identifies who produced a turn in the transcript.
type TurnKind string

const (
	TurnUser      TurnKind = "user"
	TurnAssistant TurnKind = "assistant"
	TurnSystem    TurnKind = "system"
)

// UserTurn is a prompt sent to the model.
type UserTurn struct {
	Content string `json:"content"`
}

// AssistantTurn is a model response.
type AssistantTurn struct {
	Content    string    `json:"content"`
	ResponseID string    `json:"response_id,omitempty"`
	Usage      llm.Usage `json:"usage"`
}

// SystemTurn carries standing instructions.
type SystemTurn struct {
	Content string `json:"content"`
}

// Turn is a single entry in a session transcript.
type Turn struct {
	Kind      TurnKind       `json:"kind"`
	Timestamp time.Time      `json:"timestamp"`
	User      *UserTurn      `json:"user,omitempty"`
	Assistant *AssistantTurn `json:"assistant,omitempty"`
	System    *SystemTurn    `json:"system,omitempty"`
}

// NewUserTurn creates a user turn.
func NewUserTurn(content string) Turn {
	return Turn{
		Kind:      TurnUser,
		Timestamp: time.Now(),
		User:      &UserTurn{Content: content},
	}
}

// NewAssistantTurn creates an assistant turn.
func NewAssistantTurn(content, responseID string, usage llm.Usage) Turn {
	return Turn{
		Kind:      TurnAssistant,
		Timestamp: time.Now(),
		Assistant: &AssistantTurn{Content: content, ResponseID: responseID, Usage: usage},
	}
}

// NewSystemTurn creates a system turn.
func NewSystemTurn(content string) Turn {
	return Turn{
		Kind:      TurnSystem,
		Timestamp: time.Now(),
		System:    &SystemTurn{Content: content},
	}
}

// TextContent returns the turn's text regardless of kind.
func (t Turn) TextContent() string {
	switch t.Kind {
	case TurnUser:
		if t.User != nil {
			return t.User.Content
		}
	case TurnAssistant:
		if t.Assistant != nil {
			return t.Assistant.Content
		}
	case TurnSystem:
		if t.System != nil {
			return t.System.Content
		}
	}
	return ""
}

// ConvertHistoryToMessages maps a transcript onto role-tagged messages
// ready for a provider request.
func ConvertHistoryToMessages(history []Turn) []llm.Message {
	messages := make([]llm.Message, 0, len(history))
	for _, turn := range history {
		text := turn.TextContent()
		if text == "" {
			continue
		}
		switch turn.Kind {
		case TurnSystem:
			messages = append(messages, llm.SystemMessage(text))
		case TurnUser:
			messages = append(messages, llm.UserMessage(text))
		case TurnAssistant:
			messages = append(messages, llm.AssistantMessage(text))
		}
	}
	return messages
}
