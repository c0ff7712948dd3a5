package agent

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// suggestionSignature fingerprints a proposed change so repeated
// suggestions can be detected across improvement rounds.
func suggestionSignature(text string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(text)))
	return fmt.Sprintf("%x", sum[:8])
}

// suggestionLog tracks proposals the model has already made. A model
// stuck in a loop re-emits the same change; recording signatures lets
// the session skip the round instead of rewriting identical files.
type suggestionLog struct {
	seen map[string]bool
}

func newSuggestionLog() *suggestionLog {
	return &suggestionLog{seen: make(map[string]bool)}
}

// Seen records text and reports whether an identical proposal was
// already recorded.
func (l *suggestionLog) Seen(text string) bool {
	sig := suggestionSignature(text)
	if l.seen[sig] {
		return true
	}
	l.seen[sig] = true
	return false
}
