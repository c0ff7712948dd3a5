package llm

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
)

func loadEncoding() *tiktoken.Tiktoken {
	encodingOnce.Do(func() {
		enc, err := tiktoken.EncodingForModel("gpt-4o")
		if err != nil {
			enc, err = tiktoken.GetEncoding("cl100k_base")
			if err != nil {
				return
			}
		}
		encoding = enc
	})
	return encoding
}

// CountTokens measures text with the gpt-4o tokenizer, falling back to
// cl100k_base and then to a bytes/4 estimate when no encoding loads.
func CountTokens(text string) int {
	if text == "" {
		return 0
	}
	enc := loadEncoding()
	if enc == nil {
		return len(text)/4 + 1
	}
	return len(enc.Encode(text, nil, nil))
}

// CountRequestTokens measures all message content in a request.
func CountRequestTokens(req Request) int {
	total := 0
	for _, msg := range req.Messages {
		total += CountTokens(msg.Content)
	}
	return total
}
